package models

import "fmt"

// DefaultPermissionActions are the permissions created for every content type.
var DefaultPermissionActions = []string{"add", "change", "delete", "view"}

// Permission grants one action on one content type.
type Permission struct {
	Base
	Name          string       `gorm:"size:255;not null" json:"name"`
	Codename      string       `gorm:"size:100;not null;uniqueIndex:idx_permission_content_type_codename" json:"codename"`
	ContentTypeID string       `gorm:"type:uuid;not null;uniqueIndex:idx_permission_content_type_codename" json:"content_type_id"`
	ContentType   *ContentType `gorm:"foreignKey:ContentTypeID" json:"content_type,omitempty"`
}

func (Permission) TableName() string { return "auth_permissions" }

// DefaultPermissions returns the unsaved default permissions of ct.
func DefaultPermissions(ct *ContentType) []Permission {
	perms := make([]Permission, 0, len(DefaultPermissionActions))
	for _, action := range DefaultPermissionActions {
		perms = append(perms, Permission{
			Name:          fmt.Sprintf("Can %s %s", action, ct.Model),
			Codename:      fmt.Sprintf("%s_%s", action, ct.Model),
			ContentTypeID: ct.ID,
		})
	}
	return perms
}

// String renders "app_label | name" when the content type is loaded.
func (p *Permission) String() string {
	if p.ContentType == nil {
		return p.Name
	}
	return p.ContentType.AppLabel + " | " + p.Name
}

func (p *Permission) VerboseNamePlural() string      { return "권한" }
func (p *Permission) ContentTypeKey() ContentTypeKey { return ContentTypePermission }
