// Package changelog builds and renders the change messages stored on audit
// log entries.
//
// A Message is persisted as a JSON array of single-key objects, one per
// detected change:
//
//	[{"changed": {"fields": ["[이메일] \"a@x.com\" => \"b@x.com\""]}},
//	 {"added": {"name": "그룹 권한", "object": "staff - user | Can add user(0190...)"}},
//	 {"deleted": {"name": "그룹 권한", "object": "staff - user | Can view user"}}]
//
// The layout is shared with historical rows, so it must not change.
package changelog

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Kind identifies the variant of an Entry.
type Kind string

const (
	KindAdded   Kind = "added"
	KindChanged Kind = "changed"
	KindDeleted Kind = "deleted"
)

// Detail is the payload of an Entry. Empty attributes are omitted on the
// wire: a top-level creation is stored as {"added": {}}.
type Detail struct {
	Name   string   `json:"name,omitempty"`
	Object string   `json:"object,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

// Entry is one change. Exactly one of Added, Changed or Deleted is set.
type Entry struct {
	Added   *Detail `json:"added,omitempty"`
	Changed *Detail `json:"changed,omitempty"`
	Deleted *Detail `json:"deleted,omitempty"`
}

// Kind reports which variant e holds.
func (e Entry) Kind() Kind {
	switch {
	case e.Added != nil:
		return KindAdded
	case e.Changed != nil:
		return KindChanged
	default:
		return KindDeleted
	}
}

// Message is the ordered ChangeRecord of one save operation.
type Message []Entry

// Added returns an addition entry.
func Added(name, object string) Entry {
	return Entry{Added: &Detail{Name: name, Object: object}}
}

// Changed returns a change entry.
func Changed(name, object string, fields []string) Entry {
	return Entry{Changed: &Detail{Name: name, Object: object, Fields: fields}}
}

// Deleted returns a deletion entry.
func Deleted(name, object string) Entry {
	return Entry{Deleted: &Detail{Name: name, Object: object}}
}

// Encode serializes m in the stored layout. A nil message encodes as "[]".
func (m Message) Encode() (string, error) {
	if m == nil {
		m = Message{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Field changes contain "=>", which must stay readable in the column.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// MustEncode is Encode for messages built by this package, which always
// marshal.
func (m Message) MustEncode() string {
	s, err := m.Encode()
	if err != nil {
		panic(err)
	}
	return s
}
