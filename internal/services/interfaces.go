package services

import (
	"time"

	"dashboard/internal/changelog"
	"dashboard/internal/models"
	"dashboard/internal/pagination"
)

// UserFields holds the editable attributes of a user. Nil fields are left
// unchanged on update.
type UserFields struct {
	Username    *string
	Email       *string
	Password    *string
	IsActive    *bool
	IsStaff     *bool
	IsSuperuser *bool
	GroupIDs    *[]string
}

// UserFilter holds optional filter parameters for listing users.
type UserFilter struct {
	IncludeInactive bool
	Search          string
}

// UserStats is the user count summary.
type UserStats struct {
	Total     int64 `json:"total_users"`
	Active    int64 `json:"active_users"`
	Inactive  int64 `json:"inactive_users"`
	Staff     int64 `json:"staff_users"`
	Superuser int64 `json:"superuser_count"`
}

// SystemStats extends UserStats with registration counts.
type SystemStats struct {
	UserStats
	RegisteredToday    int64 `json:"today_registrations"`
	RegisteredThisWeek int64 `json:"this_week_registrations"`
}

// UserServicer defines the contract for user-related business logic.
// Update operations return the form of the save so callers can build the
// audit change message.
type UserServicer interface {
	CreateUser(fields UserFields) (*models.User, error)
	GetUserByID(id string, includeInactive bool) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	ListUsers(filter UserFilter, page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	UpdateUser(id string, fields UserFields, includeInactive bool) (*models.User, *changelog.Form, error)
	DeleteUser(id string, includeInactive bool) (*models.User, error)
	ToggleActive(id string) (*models.User, *changelog.Form, error)
	ForceDeactivate(id string) (*models.User, *changelog.Form, error)
	GetStats() (*UserStats, error)
	GetSystemStats(now time.Time) (*SystemStats, error)
	VerifyPassword(user *models.User, password string) bool
}

// GroupPermissionRow is one inline row of a group edit. A row without ID
// adds a permission; a row with Delete set removes the existing link.
type GroupPermissionRow struct {
	ID           string
	PermissionID string
	Delete       bool
}

// GroupServicer defines the contract for group-related business logic.
type GroupServicer interface {
	CreateGroup(name string, permissionIDs []string) (*models.Group, []*changelog.Formset, error)
	GetGroupByID(id string) (*models.Group, error)
	ListGroups(search string, page pagination.PageRequest) (*pagination.PageResponse[models.Group], error)
	UpdateGroup(id string, name *string, rows []GroupPermissionRow) (*models.Group, *changelog.Form, []*changelog.Formset, error)
	DeleteGroup(id string) (*models.Group, error)
}

// PermissionServicer defines the contract for permission lookups. Permissions
// are read-only over HTTP; SyncDefaults creates them at startup.
type PermissionServicer interface {
	SyncDefaults() error
	ListPermissions(contentType string, search string, page pagination.PageRequest) (*pagination.PageResponse[models.Permission], error)
	GetPermissionByID(id string) (*models.Permission, error)
}

// LogEntryFilter holds optional filter parameters for listing audit entries.
type LogEntryFilter struct {
	UserID      string
	ActionFlag  *changelog.ActionFlag
	ContentType string // "app_label.model"
	ObjectID    string
	From        *time.Time
	To          *time.Time
	Search      string
}

// LogEntryView is a log entry with its display columns.
type LogEntryView struct {
	models.LogEntry
	ActionTimeDisplay string `json:"action_time_display"`
	Username          string `json:"username"`
	AppLabel          string `json:"app_label"`
	Resource          string `json:"resource"`
	ObjectReprDisplay string `json:"object_repr_display"`
	ActionName        string `json:"action_name"`
	Message           string `json:"message"`
}

// AuditServicer records and reads the audit trail. Writes never return
// errors: a failed write is logged and counted, never propagated.
type AuditServicer interface {
	ConstructChangeMessage(actorID string, form changelog.ChangeTrackable, labels changelog.Labels, formsets []*changelog.Formset, add bool) changelog.Message
	LogAddition(actorID string, obj models.Auditable, msg changelog.Message)
	LogChange(actorID string, obj models.Auditable, msg changelog.Message)
	LogDeletion(actorID string, obj models.Auditable)
	ListEntries(filter LogEntryFilter, page pagination.PageRequest) (*pagination.PageResponse[LogEntryView], error)
	GetEntry(id string) (*LogEntryView, error)
}

// EnvironmentBadge labels the server mode on the dashboard.
type EnvironmentBadge struct {
	Mode  string `json:"mode"`
	Color string `json:"color"`
}

// DashboardCard is one summary tile.
type DashboardCard struct {
	Title string `json:"title"`
	Value int64  `json:"value"`
	Badge string `json:"badge,omitempty"`
}

// Dashboard is the management landing page payload.
type Dashboard struct {
	Environment EnvironmentBadge `json:"environment"`
	Cards       []DashboardCard  `json:"cards"`
	RecentLogs  []LogEntryView   `json:"recent_logs"`
}

// DashboardServicer builds the management dashboard.
type DashboardServicer interface {
	GetDashboard(now time.Time) (*Dashboard, error)
}
