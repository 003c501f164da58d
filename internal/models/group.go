package models

import "dashboard/internal/changelog"

// Group is a named set of permissions.
type Group struct {
	Base
	Name        string            `gorm:"size:150;uniqueIndex;not null" json:"name"`
	Permissions []GroupPermission `gorm:"foreignKey:GroupID" json:"permissions,omitempty"`
}

func (Group) TableName() string { return "auth_groups" }

// GroupLabels are the tracked fields of a group.
var GroupLabels = changelog.Labels{
	{Name: "name", Label: "이름"},
}

// FormValues returns the tracked fields of g.
func (g *Group) FormValues() map[string]any {
	return map[string]any{"name": g.Name}
}

func (g *Group) String() string                 { return g.Name }
func (g *Group) VerboseNamePlural() string      { return "그룹" }
func (g *Group) ContentTypeKey() ContentTypeKey { return ContentTypeGroup }

// GroupPermission links a permission to a group. Rows are edited inline
// with their group.
type GroupPermission struct {
	Base
	GroupID      string      `gorm:"type:uuid;not null;uniqueIndex:idx_group_permission" json:"group_id"`
	PermissionID string      `gorm:"type:uuid;not null;uniqueIndex:idx_group_permission" json:"permission_id"`
	Group        *Group      `gorm:"foreignKey:GroupID" json:"-"`
	Permission   *Permission `gorm:"foreignKey:PermissionID" json:"permission,omitempty"`
}

func (GroupPermission) TableName() string { return "auth_group_permissions" }

// GroupPermissionLabels are the tracked fields of a group permission row.
var GroupPermissionLabels = changelog.Labels{
	{Name: "id", Label: "ID"},
	{Name: "permission", Label: "권한"},
}

// FormValues returns the tracked fields of gp. The permission is tracked
// by its display form.
func (gp *GroupPermission) FormValues() map[string]any {
	values := map[string]any{"id": gp.ID, "permission": gp.PermissionID}
	if gp.Permission != nil {
		values["permission"] = gp.Permission.String()
	}
	return values
}

// String renders "group - permission", falling back to ids when the
// relations are not loaded.
func (gp *GroupPermission) String() string {
	group := gp.GroupID
	if gp.Group != nil {
		group = gp.Group.String()
	}
	perm := gp.PermissionID
	if gp.Permission != nil {
		perm = gp.Permission.String()
	}
	return group + " - " + perm
}

func (gp *GroupPermission) VerboseNamePlural() string      { return "그룹 권한" }
func (gp *GroupPermission) ContentTypeKey() ContentTypeKey { return ContentTypeGroupPermission }
