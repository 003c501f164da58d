package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"dashboard/internal/changelog"
	"dashboard/internal/models"
	"dashboard/internal/pagination"
	"dashboard/internal/services"
	"dashboard/internal/validator"
)

const (
	testActorID = "0190a3c4-1d2e-7000-8000-000000000001"
	testUserID  = "0190a3c4-1d2e-7000-8000-000000000002"
	testGroupID = "0190a3c4-1d2e-7000-8000-000000000003"
	testPermID  = "0190a3c4-1d2e-7000-8000-000000000004"
	testEntryID = "0190a3c4-1d2e-7000-8000-000000000005"
)

// --- mock user service ---

type mockUserService struct {
	createUserFn      func(fields services.UserFields) (*models.User, error)
	getUserByIDFn     func(id string, includeInactive bool) (*models.User, error)
	listUsersFn       func(filter services.UserFilter, page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	updateUserFn      func(id string, fields services.UserFields, includeInactive bool) (*models.User, *changelog.Form, error)
	deleteUserFn      func(id string, includeInactive bool) (*models.User, error)
	toggleActiveFn    func(id string) (*models.User, *changelog.Form, error)
	forceDeactivateFn func(id string) (*models.User, *changelog.Form, error)
	getStatsFn        func() (*services.UserStats, error)
	getSystemStatsFn  func(now time.Time) (*services.SystemStats, error)
}

func (m *mockUserService) CreateUser(fields services.UserFields) (*models.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(fields)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByID(id string, includeInactive bool) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(id, includeInactive)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByUsername(_ string) (*models.User, error) {
	return &models.User{}, nil
}

func (m *mockUserService) ListUsers(filter services.UserFilter, page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(filter, page)
	}
	resp := pagination.NewPageResponse([]models.User{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockUserService) UpdateUser(id string, fields services.UserFields, includeInactive bool) (*models.User, *changelog.Form, error) {
	if m.updateUserFn != nil {
		return m.updateUserFn(id, fields, includeInactive)
	}
	return &models.User{}, &changelog.Form{}, nil
}

func (m *mockUserService) DeleteUser(id string, includeInactive bool) (*models.User, error) {
	if m.deleteUserFn != nil {
		return m.deleteUserFn(id, includeInactive)
	}
	return &models.User{}, nil
}

func (m *mockUserService) ToggleActive(id string) (*models.User, *changelog.Form, error) {
	if m.toggleActiveFn != nil {
		return m.toggleActiveFn(id)
	}
	return &models.User{}, &changelog.Form{}, nil
}

func (m *mockUserService) ForceDeactivate(id string) (*models.User, *changelog.Form, error) {
	if m.forceDeactivateFn != nil {
		return m.forceDeactivateFn(id)
	}
	return &models.User{}, &changelog.Form{}, nil
}

func (m *mockUserService) GetStats() (*services.UserStats, error) {
	if m.getStatsFn != nil {
		return m.getStatsFn()
	}
	return &services.UserStats{}, nil
}

func (m *mockUserService) GetSystemStats(now time.Time) (*services.SystemStats, error) {
	if m.getSystemStatsFn != nil {
		return m.getSystemStatsFn(now)
	}
	return &services.SystemStats{}, nil
}

func (m *mockUserService) VerifyPassword(_ *models.User, _ string) bool { return false }

var _ services.UserServicer = (*mockUserService)(nil)

// --- mock audit service ---

type auditCall struct {
	action  changelog.ActionFlag
	actorID string
	object  string
	message changelog.Message
}

type mockAuditService struct {
	calls       []auditCall
	constructFn func(form changelog.ChangeTrackable, formsets []*changelog.Formset, add bool) changelog.Message
	listFn      func(filter services.LogEntryFilter, page pagination.PageRequest) (*pagination.PageResponse[services.LogEntryView], error)
	getFn       func(id string) (*services.LogEntryView, error)
}

func (m *mockAuditService) ConstructChangeMessage(_ string, form changelog.ChangeTrackable, _ changelog.Labels, formsets []*changelog.Formset, add bool) changelog.Message {
	if m.constructFn != nil {
		return m.constructFn(form, formsets, add)
	}
	if add {
		return changelog.Message{changelog.Added("", "")}
	}
	return changelog.Message{}
}

func (m *mockAuditService) LogAddition(actorID string, obj models.Auditable, msg changelog.Message) {
	m.calls = append(m.calls, auditCall{changelog.Addition, actorID, obj.String(), msg})
}

func (m *mockAuditService) LogChange(actorID string, obj models.Auditable, msg changelog.Message) {
	m.calls = append(m.calls, auditCall{changelog.Change, actorID, obj.String(), msg})
}

func (m *mockAuditService) LogDeletion(actorID string, obj models.Auditable) {
	m.calls = append(m.calls, auditCall{changelog.Deletion, actorID, obj.String(), nil})
}

func (m *mockAuditService) ListEntries(filter services.LogEntryFilter, page pagination.PageRequest) (*pagination.PageResponse[services.LogEntryView], error) {
	if m.listFn != nil {
		return m.listFn(filter, page)
	}
	resp := pagination.NewPageResponse([]services.LogEntryView{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockAuditService) GetEntry(id string) (*services.LogEntryView, error) {
	if m.getFn != nil {
		return m.getFn(id)
	}
	return &services.LogEntryView{}, nil
}

var _ services.AuditServicer = (*mockAuditService)(nil)

// assertAudit checks that exactly one entry of the given kind was recorded.
func assertAudit(t *testing.T, audit *mockAuditService, action changelog.ActionFlag) auditCall {
	t.Helper()
	if len(audit.calls) != 1 {
		t.Fatalf("expected 1 audit call, got %d: %+v", len(audit.calls), audit.calls)
	}
	call := audit.calls[0]
	if call.action != action {
		t.Errorf("expected %s, got %s", action, call.action)
	}
	if call.actorID != testActorID {
		t.Errorf("expected actor %s, got %s", testActorID, call.actorID)
	}
	return call
}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func injectUserID(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

func sampleUser(id, username string) *models.User {
	return &models.User{
		Base:         models.Base{ID: id},
		Username:     username,
		IsActive:     true,
		RegisteredAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}
