package models

import (
	"sort"
	"time"

	"dashboard/internal/changelog"
)

// User represents a dashboard account.
type User struct {
	Base
	Username      string      `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email         *string     `gorm:"size:254;uniqueIndex" json:"email"`
	Password      string      `gorm:"size:128;not null" json:"-"`
	IsActive      bool        `gorm:"not null" json:"is_active"`
	IsStaff       bool        `gorm:"not null" json:"is_staff"`
	IsSuperuser   bool        `gorm:"not null" json:"is_superuser"`
	RegisteredAt  time.Time   `gorm:"not null;index" json:"registered_at"`
	DeactivatedAt *time.Time  `json:"deactivated_at"`
	LastLoginAt   *time.Time  `json:"last_login_at,omitempty"`
	Groups        []UserGroup `gorm:"foreignKey:UserID" json:"groups"`
}

func (User) TableName() string { return "users" }

// UserLabels are the tracked fields of a user in form order.
var UserLabels = changelog.Labels{
	{Name: "username", Label: "유저네임"},
	{Name: "password", Label: "비밀번호"},
	{Name: "email", Label: "이메일"},
	{Name: "is_active", Label: "활성화 여부"},
	{Name: "is_staff", Label: "스태프 여부"},
	{Name: "is_superuser", Label: "슈퍼유저 여부"},
	{Name: "groups", Label: "그룹"},
	{Name: "deactivated_at", Label: "비활성화 일시"},
}

// FormValues returns the tracked fields of u keyed by field name.
func (u *User) FormValues() map[string]any {
	values := map[string]any{
		"username":       u.Username,
		"password":       u.Password,
		"email":          nil,
		"is_active":      u.IsActive,
		"is_staff":       u.IsStaff,
		"is_superuser":   u.IsSuperuser,
		"groups":         u.GroupNames(),
		"deactivated_at": nil,
	}
	if u.Email != nil {
		values["email"] = *u.Email
	}
	if u.DeactivatedAt != nil {
		values["deactivated_at"] = *u.DeactivatedAt
	}
	return values
}

// GroupNames returns the sorted names of the loaded groups of u.
func (u *User) GroupNames() []string {
	names := make([]string, 0, len(u.Groups))
	for _, ug := range u.Groups {
		if ug.Group != nil {
			names = append(names, ug.Group.Name)
		}
	}
	sort.Strings(names)
	return names
}

func (u *User) String() string                 { return u.Username }
func (u *User) VerboseNamePlural() string      { return "사용자" }
func (u *User) ContentTypeKey() ContentTypeKey { return ContentTypeUser }

// UserGroup puts a user into a group.
type UserGroup struct {
	Base
	UserID  string `gorm:"type:uuid;not null;uniqueIndex:idx_user_group" json:"-"`
	GroupID string `gorm:"type:uuid;not null;uniqueIndex:idx_user_group" json:"group_id"`
	Group   *Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}

func (UserGroup) TableName() string { return "user_groups" }
