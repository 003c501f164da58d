package services

import (
	"testing"

	"dashboard/internal/models"
	"dashboard/internal/pagination"
	"dashboard/internal/testutil"
)

func TestSyncDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewPermissionService(db)

	testutil.AssertNoError(t, svc.SyncDefaults())
	// A second run must not duplicate anything.
	testutil.AssertNoError(t, svc.SyncDefaults())

	var types, perms int64
	db.Model(&models.ContentType{}).Count(&types)
	db.Model(&models.Permission{}).Count(&perms)

	if types != int64(len(models.KnownContentTypes)) {
		t.Errorf("expected %d content types, got %d", len(models.KnownContentTypes), types)
	}
	want := int64(len(models.KnownContentTypes) * len(models.DefaultPermissionActions))
	if perms != want {
		t.Errorf("expected %d permissions, got %d", want, perms)
	}
}

func TestListPermissions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewPermissionService(db)
	testutil.AssertNoError(t, svc.SyncDefaults())

	t.Run("by_content_type", func(t *testing.T) {
		result, err := svc.ListPermissions("auth.group", "", pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 4 {
			t.Fatalf("expected 4 group permissions, got %d", result.TotalItems)
		}
		if result.Data[0].Codename != "add_group" {
			t.Errorf("expected add_group first, got %s", result.Data[0].Codename)
		}
		if result.Data[0].ContentType == nil {
			t.Error("expected content type to be preloaded")
		}
	})

	t.Run("search", func(t *testing.T) {
		result, err := svc.ListPermissions("", "view_", pagination.PageRequest{PageSize: 100})
		testutil.AssertNoError(t, err)
		if result.TotalItems != int64(len(models.KnownContentTypes)) {
			t.Errorf("expected one view permission per content type, got %d", result.TotalItems)
		}
	})

	t.Run("bad_content_type", func(t *testing.T) {
		_, err := svc.ListPermissions("group", "", pagination.PageRequest{})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetPermissionByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewPermissionService(db)
	perms := testutil.CreateTestPermissions(t, db)

	got, err := svc.GetPermissionByID(perms[2].ID)
	testutil.AssertNoError(t, err)
	if got.String() != "user | Can delete user" {
		t.Errorf("unexpected permission %q", got.String())
	}

	_, err = svc.GetPermissionByID("0190a3c4-1d2e-7000-8000-00000000dead")
	testutil.AssertAppError(t, err, "PERMISSION_NOT_FOUND")
}
