package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"dashboard/internal/models"
)

// TestPassword is the plain password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates an active user with a hashed password and unique
// username.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithUsername(t, db, fmt.Sprintf("user%d", nextID()))
}

// CreateTestUserWithUsername creates an active user with the given username.
func CreateTestUserWithUsername(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	email := username + "@test.com"
	user := &models.User{
		Username:     username,
		Email:        &email,
		Password:     string(hash),
		IsActive:     true,
		RegisteredAt: time.Now(),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestStaffUser creates an active staff user.
func CreateTestStaffUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := CreateTestUserWithUsername(t, db, fmt.Sprintf("staff%d", nextID()))
	if err := db.Model(user).Update("is_staff", true).Error; err != nil {
		t.Fatalf("failed to mark user as staff: %v", err)
	}
	user.IsStaff = true
	return user
}

// CreateTestContentTypes creates every known content type and returns them
// keyed by natural key.
func CreateTestContentTypes(t *testing.T, db *gorm.DB) map[models.ContentTypeKey]*models.ContentType {
	t.Helper()

	out := make(map[models.ContentTypeKey]*models.ContentType, len(models.KnownContentTypes))
	for _, key := range models.KnownContentTypes {
		ct := &models.ContentType{AppLabel: key.AppLabel, Model: key.Model}
		if err := db.Where(ct).FirstOrCreate(ct).Error; err != nil {
			t.Fatalf("failed to create content type %v: %v", key, err)
		}
		out[key] = ct
	}
	return out
}

// CreateTestPermissions creates the default permissions of the user
// content type and returns them with their content type loaded.
func CreateTestPermissions(t *testing.T, db *gorm.DB) []models.Permission {
	t.Helper()

	ct := CreateTestContentTypes(t, db)[models.ContentTypeUser]
	perms := models.DefaultPermissions(ct)
	if err := db.Create(&perms).Error; err != nil {
		t.Fatalf("failed to create test permissions: %v", err)
	}
	for i := range perms {
		perms[i].ContentType = ct
	}
	return perms
}

// CreateTestGroup creates a group holding the given permissions.
func CreateTestGroup(t *testing.T, db *gorm.DB, perms ...models.Permission) *models.Group {
	t.Helper()

	group := &models.Group{Name: fmt.Sprintf("Test Group %d", nextID())}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("failed to create test group: %v", err)
	}
	for _, p := range perms {
		gp := models.GroupPermission{GroupID: group.ID, PermissionID: p.ID}
		if err := db.Create(&gp).Error; err != nil {
			t.Fatalf("failed to attach permission to group: %v", err)
		}
		group.Permissions = append(group.Permissions, gp)
	}
	return group
}

// AddTestUserToGroups puts user into each of groups.
func AddTestUserToGroups(t *testing.T, db *gorm.DB, user *models.User, groups ...*models.Group) {
	t.Helper()

	for _, g := range groups {
		ug := models.UserGroup{UserID: user.ID, GroupID: g.ID, Group: g}
		if err := db.Omit("Group").Create(&ug).Error; err != nil {
			t.Fatalf("failed to add user to group: %v", err)
		}
		user.Groups = append(user.Groups, ug)
	}
}
