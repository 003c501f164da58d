package models

import (
	"time"

	"dashboard/internal/changelog"
)

// ObjectReprMaxLen bounds LogEntry.ObjectRepr.
const ObjectReprMaxLen = 200

// LogEntry is one append-only audit record.
type LogEntry struct {
	Base
	ActionTime    time.Time            `gorm:"not null;index" json:"action_time"`
	UserID        string               `gorm:"type:uuid;not null;index" json:"user_id"`
	User          *User                `gorm:"foreignKey:UserID" json:"-"`
	ContentTypeID string               `gorm:"type:uuid;not null;index" json:"content_type_id"`
	ContentType   *ContentType         `gorm:"foreignKey:ContentTypeID" json:"-"`
	ObjectID      string               `gorm:"size:64;index" json:"object_id"`
	ObjectRepr    string               `gorm:"size:200;not null" json:"object_repr"`
	ActionFlag    changelog.ActionFlag `gorm:"not null;index" json:"action_flag"`
	ChangeMessage string               `gorm:"type:text;not null" json:"change_message"`
}

func (LogEntry) TableName() string { return "admin_log_entries" }

func (e *LogEntry) String() string                 { return e.ObjectRepr }
func (e *LogEntry) VerboseNamePlural() string      { return "로그 항목" }
func (e *LogEntry) ContentTypeKey() ContentTypeKey { return ContentTypeLogEntry }

// TruncateRepr cuts repr to ObjectReprMaxLen runes.
func TruncateRepr(repr string) string {
	runes := []rune(repr)
	if len(runes) <= ObjectReprMaxLen {
		return repr
	}
	return string(runes[:ObjectReprMaxLen])
}

// AllModels lists every model in migration order.
var AllModels = []any{
	&ContentType{},
	&User{},
	&Permission{},
	&Group{},
	&GroupPermission{},
	&UserGroup{},
	&LogEntry{},
}
