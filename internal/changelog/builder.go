package changelog

import (
	"errors"
	"fmt"

	"dashboard/internal/logger"
)

// RelatedChangeLogger persists the standalone message of a changed related
// object. It is called before the parent's combined message is returned.
type RelatedChangeLogger func(obj Object, msg Message)

// Builder constructs change messages from submitted forms.
type Builder struct {
	catalog    Catalog
	logRelated RelatedChangeLogger

	// OnSkip, when set, is told about every related form left out of a
	// combined message.
	OnSkip func(err error)
}

// NewBuilder returns a Builder. logRelated may be nil.
func NewBuilder(catalog Catalog, logRelated RelatedChangeLogger) *Builder {
	return &Builder{catalog: catalog, logRelated: logRelated}
}

// Build returns the message fragment for one form. With add set it is a
// single addition; otherwise one change entry listing every changed field,
// or nothing when no field changed. When related is non-nil the entry names
// the related object instead of the parent.
func (b *Builder) Build(form ChangeTrackable, labels Labels, add bool, related Object) Message {
	var data Detail
	if related != nil {
		data.Name = related.VerboseNamePlural()
		data.Object = fmt.Sprintf("%s(%s)", related.String(), related.PrimaryKey())
	}

	if add {
		return Message{{Added: &data}}
	}
	if form == nil || len(form.ChangedFields()) == 0 {
		return nil
	}

	prior, next := form.PriorValues(), form.NewValues()
	fields := make([]string, 0, len(form.ChangedFields()))
	for _, name := range form.ChangedFields() {
		fields = append(fields, b.FieldChange(labels.Label(name), prior[name], next[name]))
	}
	data.Fields = fields
	return Message{{Changed: &data}}
}

// FieldChange formats one changed field. Password changes are reduced to
// the bare label.
func (b *Builder) FieldChange(label string, old, new any) string {
	if label == b.catalog.PasswordLabel {
		return label
	}
	return fmt.Sprintf(`[%s] "%s" => "%s"`, label, DisplayValue(old), DisplayValue(new))
}

// Construct builds the combined message of a save: the parent form first,
// then for every formset its new, changed and deleted objects. Each changed
// related object is also handed to the RelatedChangeLogger with a message
// of its own. A nested form that cannot be resolved is logged and skipped.
func (b *Builder) Construct(form ChangeTrackable, labels Labels, formsets []*Formset, add bool) Message {
	msg := b.Build(form, labels, add, nil)

	for _, fs := range formsets {
		byKey := make(map[string]*Form, len(fs.Forms))
		for i, f := range fs.Forms {
			key, ok, err := fs.formKey(f)
			if err != nil {
				logger.Get().Warnw("skipping unresolvable related form",
					"index", i,
					"pk_field", fs.PKField,
					"error", err,
				)
				b.skipped(err)
				continue
			}
			if ok {
				byKey[key] = f
			}
		}

		for _, obj := range fs.NewObjects {
			msg = append(msg, b.Build(nil, fs.Labels, true, obj)...)
		}

		for _, obj := range fs.ChangedObjects {
			f, ok := byKey[obj.PrimaryKey()]
			if !ok {
				logger.Get().Warnw("no form bound to changed related object",
					"object", obj.String(),
					"pk", obj.PrimaryKey(),
				)
				b.skipped(fmt.Errorf("%w: %s", errUnboundObject, obj.PrimaryKey()))
				continue
			}
			msg = append(msg, b.Build(f, fs.Labels, false, obj)...)
			if b.logRelated != nil {
				b.logRelated(obj, b.Build(f, fs.Labels, false, nil))
			}
		}

		for _, obj := range fs.DeletedObjects {
			msg = append(msg, Deleted(obj.VerboseNamePlural(), obj.String()))
		}
	}
	return msg
}

var errUnboundObject = errors.New("no form bound to related object")

func (b *Builder) skipped(err error) {
	if b.OnSkip != nil {
		b.OnSkip(err)
	}
}
