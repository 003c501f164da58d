package services

import (
	"testing"

	"dashboard/internal/models"
	"dashboard/internal/pagination"
	"dashboard/internal/testutil"
)

func TestCreateGroup(t *testing.T) {
	t.Run("with_permissions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		perms := testutil.CreateTestPermissions(t, db)

		group, formsets, err := svc.CreateGroup("editors", []string{perms[0].ID, perms[1].ID, perms[0].ID})
		testutil.AssertNoError(t, err)

		if len(group.Permissions) != 2 {
			t.Fatalf("expected 2 permissions, got %d", len(group.Permissions))
		}
		if len(formsets) != 1 || len(formsets[0].NewObjects) != 2 {
			t.Fatalf("expected one formset with 2 new rows, got %+v", formsets)
		}
		if got := formsets[0].NewObjects[0].String(); got != "editors - user | Can add user" {
			t.Errorf("unexpected row repr %q", got)
		}
	})

	t.Run("duplicate_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)

		_, _, err := svc.CreateGroup("ops", nil)
		testutil.AssertNoError(t, err)
		_, _, err = svc.CreateGroup("ops", nil)
		testutil.AssertAppError(t, err, "DUPLICATE_GROUP_NAME")
	})

	t.Run("unknown_permission_rolls_back", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)

		_, _, err := svc.CreateGroup("broken", []string{"0190a3c4-1d2e-7000-8000-00000000dead"})
		testutil.AssertAppError(t, err, "PERMISSION_NOT_FOUND")

		var count int64
		db.Model(&models.Group{}).Count(&count)
		if count != 0 {
			t.Errorf("expected no group after rollback, got %d", count)
		}
	})

	t.Run("empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		_, _, err := NewGroupService(db).CreateGroup("  ", nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestUpdateGroup(t *testing.T) {
	t.Run("rename_add_change_delete", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		perms := testutil.CreateTestPermissions(t, db) // add, change, delete, view
		group := testutil.CreateTestGroup(t, db, perms[0], perms[1])
		keep, drop := group.Permissions[0], group.Permissions[1]

		updated, form, formsets, err := svc.UpdateGroup(group.ID, strPtr("renamed"), []GroupPermissionRow{
			{PermissionID: perms[2].ID},
			{ID: keep.ID, PermissionID: perms[3].ID},
			{ID: drop.ID, Delete: true},
		})
		testutil.AssertNoError(t, err)

		if updated.Name != "renamed" {
			t.Errorf("expected renamed group, got %s", updated.Name)
		}
		if len(form.Changed) != 1 || form.Changed[0] != "name" {
			t.Errorf("expected name changed, got %v", form.Changed)
		}

		fs := formsets[0]
		if len(fs.NewObjects) != 1 || len(fs.ChangedObjects) != 1 || len(fs.DeletedObjects) != 1 {
			t.Fatalf("expected 1 new, 1 changed, 1 deleted; got %d/%d/%d",
				len(fs.NewObjects), len(fs.ChangedObjects), len(fs.DeletedObjects))
		}
		if fs.ChangedObjects[0].PrimaryKey() != keep.ID {
			t.Errorf("expected changed row %s, got %s", keep.ID, fs.ChangedObjects[0].PrimaryKey())
		}

		codenames := map[string]bool{}
		for _, gp := range updated.Permissions {
			codenames[gp.Permission.Codename] = true
		}
		if len(codenames) != 2 || !codenames["delete_user"] || !codenames["view_user"] {
			t.Errorf("expected delete_user and view_user, got %v", codenames)
		}
	})

	t.Run("unchanged_row_is_not_reported", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		perms := testutil.CreateTestPermissions(t, db)
		group := testutil.CreateTestGroup(t, db, perms[0])

		_, form, formsets, err := svc.UpdateGroup(group.ID, nil, []GroupPermissionRow{
			{ID: group.Permissions[0].ID, PermissionID: perms[0].ID},
		})
		testutil.AssertNoError(t, err)
		if len(form.Changed) != 0 {
			t.Errorf("expected no parent changes, got %v", form.Changed)
		}
		if len(formsets[0].Forms) != 1 || len(formsets[0].ChangedObjects) != 0 {
			t.Errorf("expected one bound form and no changed rows, got %+v", formsets[0])
		}
	})

	t.Run("foreign_row", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		perms := testutil.CreateTestPermissions(t, db)
		mine := testutil.CreateTestGroup(t, db)
		other := testutil.CreateTestGroup(t, db, perms[0])

		_, _, _, err := svc.UpdateGroup(mine.ID, nil, []GroupPermissionRow{
			{ID: other.Permissions[0].ID, Delete: true},
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("already_assigned", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		perms := testutil.CreateTestPermissions(t, db)
		group := testutil.CreateTestGroup(t, db, perms[0])

		_, _, _, err := svc.UpdateGroup(group.ID, nil, []GroupPermissionRow{{PermissionID: perms[0].ID}})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		_, _, _, err := NewGroupService(db).UpdateGroup("0190a3c4-1d2e-7000-8000-00000000dead", strPtr("x"), nil)
		testutil.AssertAppError(t, err, "GROUP_NOT_FOUND")
	})
}

func TestDeleteGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewGroupService(db)
	perms := testutil.CreateTestPermissions(t, db)
	group := testutil.CreateTestGroup(t, db, perms[0], perms[1])
	member := testutil.CreateTestUser(t, db)
	testutil.AddTestUserToGroups(t, db, member, group)

	deleted, err := svc.DeleteGroup(group.ID)
	testutil.AssertNoError(t, err)
	if deleted.Name != group.Name {
		t.Errorf("expected %s, got %s", group.Name, deleted.Name)
	}

	var links int64
	db.Unscoped().Model(&models.GroupPermission{}).Where("group_id = ?", group.ID).Count(&links)
	if links != 0 {
		t.Errorf("expected permission rows removed, got %d", links)
	}

	var memberships int64
	db.Unscoped().Model(&models.UserGroup{}).Where("group_id = ?", group.ID).Count(&memberships)
	if memberships != 0 {
		t.Errorf("expected memberships removed, got %d", memberships)
	}

	_, err = svc.GetGroupByID(group.ID)
	testutil.AssertAppError(t, err, "GROUP_NOT_FOUND")
}

func TestListGroups(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewGroupService(db)
	perms := testutil.CreateTestPermissions(t, db)
	testutil.CreateTestGroup(t, db, perms[0])
	testutil.CreateTestGroup(t, db)

	result, err := svc.ListGroups("", pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if result.TotalItems != 2 {
		t.Fatalf("expected 2 groups, got %d", result.TotalItems)
	}

	withPerms := 0
	for _, g := range result.Data {
		for _, gp := range g.Permissions {
			if gp.Permission == nil || gp.Permission.ContentType == nil {
				t.Error("expected permission and content type to be preloaded")
			}
			withPerms++
		}
	}
	if withPerms != 1 {
		t.Errorf("expected 1 permission row across groups, got %d", withPerms)
	}
}
