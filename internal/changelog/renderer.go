package changelog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"dashboard/internal/logger"
)

// ActionFlag is the kind of action an audit entry records.
type ActionFlag int

const (
	Addition ActionFlag = 1
	Change   ActionFlag = 2
	Deletion ActionFlag = 3
)

// Valid reports whether f is one of the known flags.
func (f ActionFlag) Valid() bool {
	return f == Addition || f == Change || f == Deletion
}

func (f ActionFlag) String() string {
	switch f {
	case Addition:
		return "addition"
	case Change:
		return "change"
	case Deletion:
		return "deletion"
	}
	return "unknown"
}

// Fallback reasons passed to Renderer.OnFallback.
const (
	FallbackInvalidFormat = "invalid_format"
	FallbackRaw           = "raw"
)

var errMalformed = errors.New("malformed change message")

// Renderer turns stored change messages into display sentences. It never
// fails: unreadable input degrades to a fixed notice or the raw text.
type Renderer struct {
	catalog Catalog

	// OnFallback, when set, is told about every degraded rendering.
	OnFallback func(reason string, err error)
}

// NewRenderer returns a Renderer using catalog.
func NewRenderer(catalog Catalog) *Renderer {
	return &Renderer{catalog: catalog}
}

// Render returns the full display text of an audit entry: a header naming
// the actor, the app label and the object id, followed by the description.
func (r *Renderer) Render(actor, appLabel, objectID, raw string, flag ActionFlag) string {
	return fmt.Sprintf(r.catalog.Header, actor, appLabel, objectID) + r.Describe(raw, flag)
}

// Describe renders raw as newline separated sentences. Additions and
// deletions get a fixed sentence without looking at raw.
func (r *Renderer) Describe(raw string, flag ActionFlag) string {
	switch flag {
	case Addition:
		return r.catalog.ObjectAdded
	case Deletion:
		return r.catalog.ObjectDeleted
	}

	if !json.Valid([]byte(raw)) {
		r.fallback(FallbackInvalidFormat, errMalformed)
		return r.catalog.InvalidFormat
	}

	lines, err := r.sentences(raw)
	if err != nil {
		r.fallback(FallbackRaw, err)
		return r.redact(raw)
	}
	return strings.Join(lines, "\n")
}

// redact replaces every password field change in raw with the bare label.
// raw must be valid JSON. Untouched input is returned as is.
func (r *Renderer) redact(raw string) string {
	var doc any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return raw
	}
	doc, changed := r.redactValue(doc)
	if !changed {
		return raw
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return r.catalog.InvalidFormat
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func (r *Renderer) redactValue(v any) (any, bool) {
	switch val := v.(type) {
	case string:
		if r.isPasswordChange(val) {
			return r.catalog.PasswordLabel, true
		}
	case []any:
		changed := false
		for i, item := range val {
			var c bool
			val[i], c = r.redactValue(item)
			changed = changed || c
		}
		return val, changed
	case map[string]any:
		changed := false
		for k, item := range val {
			var c bool
			val[k], c = r.redactValue(item)
			changed = changed || c
		}
		return val, changed
	}
	return v, false
}

// isPasswordChange reports whether change is a bracketed field change of
// the password field.
func (r *Renderer) isPasswordChange(change string) bool {
	_, rest, ok := strings.Cut(change, "[")
	if !ok {
		return false
	}
	label, _, _ := strings.Cut(rest, "]")
	return label == r.catalog.PasswordLabel
}

func (r *Renderer) fallback(reason string, err error) {
	logger.Get().Warnw("change message rendered with fallback", "reason", reason, "error", err)
	if r.OnFallback != nil {
		r.OnFallback(reason, err)
	}
}

func (r *Renderer) sentences(raw string) ([]string, error) {
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		return nil, fmt.Errorf("%w: not a list", errMalformed)
	}

	results := []string{}
	for _, entry := range entries {
		if entry == nil {
			return nil, fmt.Errorf("%w: null entry", errMalformed)
		}
		if d, ok, err := detailWith(entry, "added", "name"); err != nil {
			return nil, err
		} else if ok {
			obj, err := textAttr(d, "object")
			if err != nil {
				return nil, err
			}
			results = append(results, fmt.Sprintf(r.catalog.AddedObject, obj))
			continue
		}

		if d, ok, err := detailWith(entry, "deleted", "name"); err != nil {
			return nil, err
		} else if ok {
			obj, err := textAttr(d, "object")
			if err != nil {
				return nil, err
			}
			results = append(results, fmt.Sprintf(r.catalog.DeletedObject, obj))
			continue
		}

		d, ok, err := detailWith(entry, "changed", "fields")
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var fields []any
		if err := json.Unmarshal(d["fields"], &fields); err != nil {
			return nil, fmt.Errorf("%w: fields: %v", errMalformed, err)
		}
		for _, f := range fields {
			change, isString := f.(string)
			if !isString {
				return nil, fmt.Errorf("%w: field change of type %T", errMalformed, f)
			}
			sentence, err := r.fieldSentence(change)
			if err != nil {
				return nil, err
			}
			results = append(results, sentence)
		}
	}
	return results, nil
}

// fieldSentence parses `[label] "old" => "new"`. Strings without a bracket
// are notices that a field changed without values.
func (r *Renderer) fieldSentence(change string) (string, error) {
	if !strings.Contains(change, "[") {
		return fmt.Sprintf(r.catalog.FieldChanged, change), nil
	}

	if r.isPasswordChange(change) {
		return fmt.Sprintf(r.catalog.FieldChanged, r.catalog.PasswordLabel), nil
	}
	fieldName := strings.Split(strings.Split(change, "[")[1], "]")[0]

	sides := strings.Split(change, "=>")
	if len(sides) != 2 {
		return "", fmt.Errorf("%w: expected one => in %q", errMalformed, change)
	}
	oldValue, err := lastQuoted(sides[0])
	if err != nil {
		return "", err
	}
	newValue, err := lastQuoted(sides[1])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(r.catalog.FieldChangedFromTo, fieldName, oldValue, newValue), nil
}

func lastQuoted(s string) (string, error) {
	parts := strings.Split(s, `"`)
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: no quoted value in %q", errMalformed, s)
	}
	return parts[len(parts)-2], nil
}

// detailWith returns entry[kind] as an object when it exists and contains
// attr.
func detailWith(entry map[string]json.RawMessage, kind, attr string) (map[string]json.RawMessage, bool, error) {
	rawDetail, ok := entry[kind]
	if !ok {
		return nil, false, nil
	}
	var d map[string]json.RawMessage
	if err := json.Unmarshal(rawDetail, &d); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", errMalformed, kind, err)
	}
	_, has := d[attr]
	return d, has, nil
}

func textAttr(d map[string]json.RawMessage, attr string) (string, error) {
	rawValue, ok := d[attr]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", errMalformed, attr)
	}
	var v any
	if err := json.Unmarshal(rawValue, &v); err != nil {
		return "", fmt.Errorf("%w: %s: %v", errMalformed, attr, err)
	}
	return DisplayValue(v), nil
}
