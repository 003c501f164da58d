package models

import (
	"github.com/jinzhu/inflection"

	"dashboard/internal/changelog"
)

// ContentTypeKey names an entity type by application and model.
type ContentTypeKey struct {
	AppLabel string
	Model    string
}

// Entity types known to the dashboard.
var (
	ContentTypeUser            = ContentTypeKey{AppLabel: "user", Model: "user"}
	ContentTypeGroup           = ContentTypeKey{AppLabel: "auth", Model: "group"}
	ContentTypePermission      = ContentTypeKey{AppLabel: "auth", Model: "permission"}
	ContentTypeGroupPermission = ContentTypeKey{AppLabel: "auth", Model: "grouppermission"}
	ContentTypeLogEntry        = ContentTypeKey{AppLabel: "admin", Model: "logentry"}
)

// KnownContentTypes lists every entity type, in sync order.
var KnownContentTypes = []ContentTypeKey{
	ContentTypeUser,
	ContentTypeGroup,
	ContentTypePermission,
	ContentTypeGroupPermission,
	ContentTypeLogEntry,
}

// ContentType is the persisted row of a ContentTypeKey. Log entries and
// permissions reference it.
type ContentType struct {
	Base
	AppLabel string `gorm:"size:100;not null;uniqueIndex:idx_content_type_app_model" json:"app_label"`
	Model    string `gorm:"size:100;not null;uniqueIndex:idx_content_type_app_model" json:"model"`
}

func (ContentType) TableName() string { return "content_types" }

// Key returns the natural key of ct.
func (ct ContentType) Key() ContentTypeKey {
	return ContentTypeKey{AppLabel: ct.AppLabel, Model: ct.Model}
}

// PluralName is the English resource name of the model, e.g. "users".
func (ct ContentType) PluralName() string {
	return inflection.Plural(ct.Model)
}

func (ct ContentType) String() string {
	return ct.AppLabel + " | " + ct.Model
}

// Auditable is a model that can be the target of a log entry.
type Auditable interface {
	changelog.Object
	ContentTypeKey() ContentTypeKey
}
