package integration

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dashboard/internal/config"
	"dashboard/internal/logger"
	"dashboard/internal/middleware"
	"dashboard/internal/models"
	"dashboard/internal/observability"
	"dashboard/internal/server"
	"dashboard/internal/services"
	"dashboard/internal/testutil"
	"dashboard/internal/validator"

	_ "dashboard/internal/docs"
)

const externalAPIKey = "integration-key"

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB      *gorm.DB
	Router  *gin.Engine
	Metrics *observability.Metrics

	// Staff is a staff member and StaffToken its bearer token.
	Staff      *models.User
	StaffToken string
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init(logger.Options{Env: "test", Level: "error"})
	validator.Register()
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	config.Set(&config.Config{
		Env:              "test",
		ServerMode:       config.ServerModeLocal,
		DocsEnabled:      true,
		AdminRedirectURL: "https://admin.example.com/",
		JWTSecret:        "integration-secret",
		JWTExpirationDur: time.Hour,
		ExternalAPIKey:   externalAPIKey,
	})
	t.Cleanup(func() { config.Set(nil) })

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	if err := services.NewPermissionService(db).SyncDefaults(); err != nil {
		t.Fatalf("failed to sync permissions: %v", err)
	}

	metrics := observability.NewMetrics()
	router, err := server.NewRouter(server.Options{Config: config.Get(), DB: db, Metrics: metrics})
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}

	app := &testApp{DB: db, Router: router, Metrics: metrics}
	app.Staff = testutil.CreateTestStaffUser(t, db)
	app.StaffToken = app.tokenFor(t, app.Staff)
	return app
}

// tokenFor issues an access token for user.
func (app *testApp) tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := middleware.GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// external makes a request authenticated with the external API key.
func (app *testApp) external(method, path, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// expectStatus fails the test when rec does not carry status.
func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
}

// logEntries returns the stored audit entries in write order.
func (app *testApp) logEntries(t *testing.T) []models.LogEntry {
	t.Helper()
	var entries []models.LogEntry
	if err := app.DB.Order("action_time, id").Find(&entries).Error; err != nil {
		t.Fatalf("failed to load log entries: %v", err)
	}
	return entries
}
