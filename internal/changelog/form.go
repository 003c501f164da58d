package changelog

import (
	"errors"
	"fmt"
)

// Field maps a field identifier to its display label.
type Field struct {
	Name  string
	Label string
}

// Labels is the declared field list of an entity type, in display order.
type Labels []Field

// Label returns the label of name, or name itself if it is not declared.
func (l Labels) Label(name string) string {
	for _, f := range l {
		if f.Name == name {
			return f.Label
		}
	}
	return name
}

// Names returns the field identifiers in declared order.
func (l Labels) Names() []string {
	names := make([]string, len(l))
	for i, f := range l {
		names[i] = f.Name
	}
	return names
}

// ChangeTrackable is implemented by anything that knows the prior and
// submitted values of a save.
type ChangeTrackable interface {
	PriorValues() map[string]any
	NewValues() map[string]any
	ChangedFields() []string
}

// Object is a persisted entity that can appear in a change message.
type Object interface {
	PrimaryKey() string
	String() string
	VerboseNamePlural() string
}

// Form is the submitted state of one entity.
type Form struct {
	Prior   map[string]any
	Cleaned map[string]any
	Changed []string
}

// NewForm compares prior and cleaned values over the declared fields and
// records which ones changed. Fields missing from cleaned were not
// submitted and are never reported.
func NewForm(labels Labels, prior, cleaned map[string]any) *Form {
	f := &Form{Prior: prior, Cleaned: cleaned}
	for _, name := range labels.Names() {
		nv, submitted := cleaned[name]
		if !submitted {
			continue
		}
		if !sameValue(prior[name], nv) {
			f.Changed = append(f.Changed, name)
		}
	}
	return f
}

func (f *Form) PriorValues() map[string]any { return f.Prior }
func (f *Form) NewValues() map[string]any   { return f.Cleaned }
func (f *Form) ChangedFields() []string     { return f.Changed }

var errNoPrimaryKey = errors.New("form has no primary key value")

// Formset is a batch of related objects edited together with a parent.
type Formset struct {
	// PKField is the form key that holds the bound object or its key.
	PKField string
	Labels  Labels
	Forms   []*Form

	NewObjects     []Object
	ChangedObjects []Object
	DeletedObjects []Object
}

// formKey resolves the primary key of the object a form is bound to. The
// submitted value wins; when it is nil the prior value is used, which covers
// rows whose key is implicit. A form without the key entry is malformed.
func (fs *Formset) formKey(f *Form) (string, bool, error) {
	v, ok := f.Cleaned[fs.PKField]
	if !ok {
		return "", false, fmt.Errorf("%w: missing %q", errNoPrimaryKey, fs.PKField)
	}
	if v == nil {
		v = f.Prior[fs.PKField]
	}
	switch key := v.(type) {
	case nil:
		return "", false, nil
	case Object:
		if isNilPointer(key) {
			return "", false, nil
		}
		return key.PrimaryKey(), true, nil
	case string:
		if key == "" {
			return "", false, nil
		}
		return key, true, nil
	default:
		return "", false, fmt.Errorf("%w: unsupported %T", errNoPrimaryKey, v)
	}
}
