package services

import (
	"reflect"
	"sort"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"dashboard/internal/models"
	"dashboard/internal/pagination"
	"dashboard/internal/testutil"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestCreateUser(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser(UserFields{
			Username: strPtr("alice"),
			Email:    strPtr("Alice@Example.com"),
			Password: strPtr("password123"),
		})
		testutil.AssertNoError(t, err)

		if user.ID == "" {
			t.Fatal("expected user ID")
		}
		if user.Email == nil || *user.Email != "alice@example.com" {
			t.Errorf("expected lowercased email, got %v", user.Email)
		}
		if !user.IsActive {
			t.Error("expected user to be active")
		}
		if user.RegisteredAt.IsZero() {
			t.Error("expected registered_at to be set")
		}
	})

	t.Run("password_is_hashed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser(UserFields{Username: strPtr("bob"), Password: strPtr("password123")})
		testutil.AssertNoError(t, err)

		if user.Password == "password123" {
			t.Fatal("password stored in plain text")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")); err != nil {
			t.Errorf("stored hash does not match: %v", err)
		}
		if !svc.VerifyPassword(user, "password123") {
			t.Error("expected VerifyPassword to accept the password")
		}
		if svc.VerifyPassword(user, "wrong") {
			t.Error("expected VerifyPassword to reject a wrong password")
		}
	})

	t.Run("duplicate_username", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser(UserFields{Username: strPtr("dup"), Password: strPtr("password123")})
		testutil.AssertNoError(t, err)

		_, err = svc.CreateUser(UserFields{Username: strPtr("dup"), Password: strPtr("password456")})
		testutil.AssertAppError(t, err, "DUPLICATE_USERNAME")
	})

	t.Run("duplicate_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser(UserFields{Username: strPtr("a"), Email: strPtr("same@example.com"), Password: strPtr("password123")})
		testutil.AssertNoError(t, err)

		_, err = svc.CreateUser(UserFields{Username: strPtr("b"), Email: strPtr("same@example.com"), Password: strPtr("password123")})
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("deleted_username_stays_reserved", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user := testutil.CreateTestUserWithUsername(t, db, "ghost")
		_, err := svc.DeleteUser(user.ID, true)
		testutil.AssertNoError(t, err)

		_, err = svc.CreateUser(UserFields{Username: strPtr("ghost"), Password: strPtr("password123")})
		testutil.AssertAppError(t, err, "DUPLICATE_USERNAME")
	})

	t.Run("missing_fields", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser(UserFields{Username: strPtr("nopass")})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.CreateUser(UserFields{Password: strPtr("password123")})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUserByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)

	active := testutil.CreateTestUser(t, db)
	inactive := testutil.CreateTestUser(t, db)
	db.Model(inactive).Update("is_active", false)

	t.Run("active_user", func(t *testing.T) {
		got, err := svc.GetUserByID(active.ID, false)
		testutil.AssertNoError(t, err)
		if got.Username != active.Username {
			t.Errorf("expected %s, got %s", active.Username, got.Username)
		}
	})

	t.Run("inactive_hidden_from_app_scope", func(t *testing.T) {
		_, err := svc.GetUserByID(inactive.ID, false)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})

	t.Run("inactive_visible_to_admin_scope", func(t *testing.T) {
		_, err := svc.GetUserByID(inactive.ID, true)
		testutil.AssertNoError(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := svc.GetUserByID("0190a3c4-1d2e-7000-8000-00000000dead", true)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestListUsers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)

	testutil.CreateTestUserWithUsername(t, db, "kim")
	testutil.CreateTestUserWithUsername(t, db, "lee")
	off := testutil.CreateTestUserWithUsername(t, db, "park")
	db.Model(off).Update("is_active", false)

	t.Run("active_only", func(t *testing.T) {
		result, err := svc.ListUsers(UserFilter{}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 2 {
			t.Errorf("expected 2 active users, got %d", result.TotalItems)
		}
	})

	t.Run("include_inactive", func(t *testing.T) {
		result, err := svc.ListUsers(UserFilter{IncludeInactive: true}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 3 {
			t.Errorf("expected 3 users, got %d", result.TotalItems)
		}
	})

	t.Run("search", func(t *testing.T) {
		result, err := svc.ListUsers(UserFilter{IncludeInactive: true, Search: "par"}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 1 || result.Data[0].Username != "park" {
			t.Errorf("expected only park, got %+v", result.Data)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		result, err := svc.ListUsers(UserFilter{IncludeInactive: true}, pagination.PageRequest{Page: 2, PageSize: 2})
		testutil.AssertNoError(t, err)
		if len(result.Data) != 1 || result.TotalPages != 2 {
			t.Errorf("expected 1 item on page 2 of 2, got %d items, %d pages", len(result.Data), result.TotalPages)
		}
	})
}

func TestUpdateUser(t *testing.T) {
	t.Run("reports_changed_fields", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUserWithUsername(t, db, "before")

		updated, form, err := svc.UpdateUser(user.ID, UserFields{
			Username: strPtr("after"),
			IsStaff:  boolPtr(true),
		}, false)
		testutil.AssertNoError(t, err)

		if updated.Username != "after" || !updated.IsStaff {
			t.Errorf("unexpected user after update: %+v", updated)
		}
		want := []string{"username", "is_staff"}
		if len(form.Changed) != len(want) {
			t.Fatalf("expected changed %v, got %v", want, form.Changed)
		}
		for i := range want {
			if form.Changed[i] != want[i] {
				t.Errorf("expected changed %v, got %v", want, form.Changed)
			}
		}
	})

	t.Run("password_change_is_tracked", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		updated, form, err := svc.UpdateUser(user.ID, UserFields{Password: strPtr("new-password")}, false)
		testutil.AssertNoError(t, err)

		if len(form.Changed) != 1 || form.Changed[0] != "password" {
			t.Errorf("expected only password changed, got %v", form.Changed)
		}
		if !svc.VerifyPassword(updated, "new-password") {
			t.Error("expected new password to verify")
		}
	})

	t.Run("no_changes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		_, form, err := svc.UpdateUser(user.ID, UserFields{Username: strPtr(user.Username)}, false)
		testutil.AssertNoError(t, err)
		if len(form.Changed) != 0 {
			t.Errorf("expected no changes, got %v", form.Changed)
		}
	})

	t.Run("deactivation_sets_timestamp", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		updated, _, err := svc.UpdateUser(user.ID, UserFields{IsActive: boolPtr(false)}, true)
		testutil.AssertNoError(t, err)
		if updated.DeactivatedAt == nil {
			t.Error("expected deactivated_at to be set")
		}
	})

	t.Run("rename_to_taken_username", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		testutil.CreateTestUserWithUsername(t, db, "taken")
		user := testutil.CreateTestUser(t, db)

		_, _, err := svc.UpdateUser(user.ID, UserFields{Username: strPtr("taken")}, false)
		testutil.AssertAppError(t, err, "DUPLICATE_USERNAME")
	})
}

func TestUserGroups(t *testing.T) {
	t.Run("create_with_groups", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		g1 := testutil.CreateTestGroup(t, db)
		g2 := testutil.CreateTestGroup(t, db)

		user, err := svc.CreateUser(UserFields{
			Username: strPtr("member"),
			Password: strPtr("password123"),
			GroupIDs: &[]string{g2.ID, g1.ID, g2.ID},
		})
		testutil.AssertNoError(t, err)

		want := []string{g1.Name, g2.Name}
		sort.Strings(want)
		if got := user.GroupNames(); !reflect.DeepEqual(got, want) {
			t.Errorf("expected groups %v, got %v", want, got)
		}

		loaded, err := svc.GetUserByID(user.ID, false)
		testutil.AssertNoError(t, err)
		if got := loaded.GroupNames(); !reflect.DeepEqual(got, want) {
			t.Errorf("expected loaded groups %v, got %v", want, got)
		}
	})

	t.Run("update_replaces_membership", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		g1 := testutil.CreateTestGroup(t, db)
		g2 := testutil.CreateTestGroup(t, db)
		user := testutil.CreateTestUser(t, db)
		testutil.AddTestUserToGroups(t, db, user, g1)

		updated, form, err := svc.UpdateUser(user.ID, UserFields{GroupIDs: &[]string{g2.ID}}, false)
		testutil.AssertNoError(t, err)

		if len(form.Changed) != 1 || form.Changed[0] != "groups" {
			t.Fatalf("expected only groups changed, got %v", form.Changed)
		}
		if !reflect.DeepEqual(form.Prior["groups"], []string{g1.Name}) {
			t.Errorf("unexpected prior groups %v", form.Prior["groups"])
		}
		if !reflect.DeepEqual(updated.GroupNames(), []string{g2.Name}) {
			t.Errorf("unexpected groups after update %v", updated.GroupNames())
		}

		var rows int64
		db.Unscoped().Model(&models.UserGroup{}).Where("user_id = ?", user.ID).Count(&rows)
		if rows != 1 {
			t.Errorf("expected 1 membership row, got %d", rows)
		}
	})

	t.Run("omitted_groups_are_kept", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		g1 := testutil.CreateTestGroup(t, db)
		user := testutil.CreateTestUser(t, db)
		testutil.AddTestUserToGroups(t, db, user, g1)

		updated, form, err := svc.UpdateUser(user.ID, UserFields{IsStaff: boolPtr(true)}, false)
		testutil.AssertNoError(t, err)

		if len(form.Changed) != 1 || form.Changed[0] != "is_staff" {
			t.Errorf("expected only is_staff changed, got %v", form.Changed)
		}
		if !reflect.DeepEqual(updated.GroupNames(), []string{g1.Name}) {
			t.Errorf("expected membership kept, got %v", updated.GroupNames())
		}
	})

	t.Run("empty_list_clears_membership", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		g1 := testutil.CreateTestGroup(t, db)
		user := testutil.CreateTestUser(t, db)
		testutil.AddTestUserToGroups(t, db, user, g1)

		updated, form, err := svc.UpdateUser(user.ID, UserFields{GroupIDs: &[]string{}}, false)
		testutil.AssertNoError(t, err)

		if len(updated.GroupNames()) != 0 {
			t.Errorf("expected no groups, got %v", updated.GroupNames())
		}
		if len(form.Changed) != 1 || form.Changed[0] != "groups" {
			t.Errorf("expected groups changed, got %v", form.Changed)
		}
	})

	t.Run("unknown_group_rolls_back", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUserWithUsername(t, db, "stays")

		_, _, err := svc.UpdateUser(user.ID, UserFields{
			Username: strPtr("renamed"),
			GroupIDs: &[]string{"0190a3c4-1d2e-7000-8000-00000000dead"},
		}, false)
		testutil.AssertAppError(t, err, "GROUP_NOT_FOUND")

		reloaded, err := svc.GetUserByID(user.ID, false)
		testutil.AssertNoError(t, err)
		if reloaded.Username != "stays" {
			t.Errorf("expected rename rolled back, got %s", reloaded.Username)
		}

		_, err = svc.CreateUser(UserFields{
			Username: strPtr("orphan"),
			Password: strPtr("password123"),
			GroupIDs: &[]string{"0190a3c4-1d2e-7000-8000-00000000dead"},
		})
		testutil.AssertAppError(t, err, "GROUP_NOT_FOUND")
		if _, err := svc.GetUserByUsername("orphan"); err == nil {
			t.Error("expected user creation rolled back")
		}
	})
}

func TestToggleActive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)
	user := testutil.CreateTestUser(t, db)

	off, form, err := svc.ToggleActive(user.ID)
	testutil.AssertNoError(t, err)
	if off.IsActive {
		t.Fatal("expected user to be inactive")
	}
	if len(form.Changed) != 1 || form.Changed[0] != "is_active" {
		t.Errorf("expected is_active changed, got %v", form.Changed)
	}

	on, _, err := svc.ToggleActive(user.ID)
	testutil.AssertNoError(t, err)
	if !on.IsActive {
		t.Error("expected user to be active again")
	}
}

func TestForceDeactivate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)
	user := testutil.CreateTestUser(t, db)

	deactivated, form, err := svc.ForceDeactivate(user.ID)
	testutil.AssertNoError(t, err)

	if deactivated.IsActive || deactivated.DeactivatedAt == nil {
		t.Errorf("expected inactive user with deactivated_at, got %+v", deactivated)
	}
	if len(form.Changed) != 2 {
		t.Errorf("expected is_active and deactivated_at changed, got %v", form.Changed)
	}

	var stored models.User
	db.First(&stored, "id = ?", user.ID)
	if stored.IsActive {
		t.Error("expected persisted inactive flag")
	}
}

func TestDeleteUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)
	user := testutil.CreateTestUser(t, db)

	deleted, err := svc.DeleteUser(user.ID, false)
	testutil.AssertNoError(t, err)
	if deleted.ID != user.ID {
		t.Errorf("expected deleted user %s, got %s", user.ID, deleted.ID)
	}

	_, err = svc.GetUserByID(user.ID, true)
	testutil.AssertAppError(t, err, "USER_NOT_FOUND")

	var count int64
	db.Unscoped().Model(&models.User{}).Where("id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Error("expected user row to be soft-deleted")
	}
}

func TestUserStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)

	now := time.Now()
	testutil.CreateTestUser(t, db)
	testutil.CreateTestStaffUser(t, db)
	old := testutil.CreateTestUser(t, db)
	db.Model(old).Updates(map[string]interface{}{
		"is_active":     false,
		"registered_at": now.AddDate(0, 0, -30),
	})
	lastWeek := testutil.CreateTestUser(t, db)
	db.Model(lastWeek).Update("registered_at", now.AddDate(0, 0, -3))

	stats, err := svc.GetStats()
	testutil.AssertNoError(t, err)
	if stats.Total != 4 || stats.Active != 3 || stats.Inactive != 1 || stats.Staff != 1 || stats.Superuser != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	system, err := svc.GetSystemStats(now)
	testutil.AssertNoError(t, err)
	if system.RegisteredToday != 2 {
		t.Errorf("expected 2 registrations today, got %d", system.RegisteredToday)
	}
	if system.RegisteredThisWeek != 3 {
		t.Errorf("expected 3 registrations this week, got %d", system.RegisteredThisWeek)
	}
}
