package integration

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"dashboard/internal/changelog"
	"dashboard/internal/models"
)

func TestLogEntries_RenderedDisplay(t *testing.T) {
	app := setupApp(t)

	rec := app.request("POST", "/api/user/admin/users", `{"username":"bob","password":"s3cretpass"}`, app.StaffToken)
	expectStatus(t, rec, http.StatusCreated)
	userID := parseJSON(t, rec)["user"].(map[string]interface{})["id"].(string)

	rec = app.request("PATCH", "/api/user/admin/users/"+userID, `{"username":"robert"}`, app.StaffToken)
	expectStatus(t, rec, http.StatusOK)

	rec = app.request("GET", "/api/admin/logentries?content_type=user.user&action_flag=2", "", app.StaffToken)
	expectStatus(t, rec, http.StatusOK)
	page := parseJSON(t, rec)
	if page["total_items"].(float64) != 1 {
		t.Fatalf("expected 1 change entry, got %v", page["total_items"])
	}
	row := page["data"].([]interface{})[0].(map[string]interface{})

	wantMessage := fmt.Sprintf("%s님이 user탭의 ID: %s의 '유저네임' 필드의 'bob'에서 'robert'로 변경하였습니다.",
		app.Staff.Username, userID)
	if row["message"] != wantMessage {
		t.Errorf("unexpected message\n got: %v\nwant: %s", row["message"], wantMessage)
	}
	if row["action_name"] != "변경" || row["username"] != app.Staff.Username || row["resource"] != "users" {
		t.Errorf("unexpected display columns %v", row)
	}
	if row["object_repr_display"] != "robert..." {
		t.Errorf("unexpected repr display %v", row["object_repr_display"])
	}

	rec = app.request("GET", "/api/admin/logentries/"+row["id"].(string), "", app.StaffToken)
	expectStatus(t, rec, http.StatusOK)
	if parseJSON(t, rec)["log_entry"].(map[string]interface{})["message"] != wantMessage {
		t.Error("expected the detail view to render the same message")
	}

	if got := promtest.ToFloat64(app.Metrics.AuditEntriesTotal.WithLabelValues("change")); got != 1 {
		t.Errorf("expected 1 change recorded in metrics, got %v", got)
	}
}

func TestLogEntries_LegacyRows(t *testing.T) {
	app := setupApp(t)
	target := app.Staff

	var ct models.ContentType
	app.DB.Where("app_label = ? AND model = ?", "user", "user").First(&ct)

	legacy := []models.LogEntry{
		{ActionFlag: changelog.Change, ChangeMessage: "not json at all"},
		{ActionFlag: changelog.Change, ChangeMessage: `[{"changed":{"fields":["[비밀번호] \"a=>b\" => \"c\""]}}]`},
		{ActionFlag: changelog.Change, ChangeMessage: `[{"changed":{"fields":["[이름] \"a\" \"b\""]}}]`},
	}
	for i := range legacy {
		legacy[i].ActionTime = time.Now().Add(time.Duration(i) * time.Second)
		legacy[i].UserID = target.ID
		legacy[i].ContentTypeID = ct.ID
		legacy[i].ObjectID = target.ID
		legacy[i].ObjectRepr = target.Username
		if err := app.DB.Create(&legacy[i]).Error; err != nil {
			t.Fatalf("failed to seed legacy entry: %v", err)
		}
	}

	rec := app.request("GET", "/api/admin/logentries?object_id="+target.ID, "", app.StaffToken)
	expectStatus(t, rec, http.StatusOK)
	data := parseJSON(t, rec)["data"].([]interface{})
	if len(data) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(data))
	}

	// Newest first
	messages := make([]string, len(data))
	for i, d := range data {
		messages[i] = d.(map[string]interface{})["message"].(string)
	}
	if !strings.HasSuffix(messages[2], "유효하지 않은 JSON 형식입니다.") {
		t.Errorf("expected invalid format notice, got %q", messages[2])
	}
	if !strings.HasSuffix(messages[1], "'비밀번호' 필드를 변경하였습니다.") {
		t.Errorf("expected redacted password, got %q", messages[1])
	}
	if !strings.HasSuffix(messages[0], `[{"changed":{"fields":["[이름] \"a\" \"b\""]}}]`) {
		t.Errorf("expected raw fallback, got %q", messages[0])
	}
}

func TestLogEntries_FilterValidation(t *testing.T) {
	app := setupApp(t)

	for _, q := range []string{"action_flag=9", "content_type=nodot", "from=tomorrow"} {
		rec := app.request("GET", "/api/admin/logentries?"+q, "", app.StaffToken)
		expectStatus(t, rec, http.StatusBadRequest)
	}
}

func TestDashboard(t *testing.T) {
	app := setupApp(t)

	rec := app.request("POST", "/api/user/admin/users", `{"username":"carol","password":"s3cretpass"}`, app.StaffToken)
	expectStatus(t, rec, http.StatusCreated)

	rec = app.request("GET", "/api/admin/dashboard", "", app.StaffToken)
	expectStatus(t, rec, http.StatusOK)
	body := parseJSON(t, rec)

	env := body["environment"].(map[string]interface{})
	if env["mode"] != "LOCAL" || env["color"] != "danger" {
		t.Errorf("unexpected environment %v", env)
	}
	total := body["cards"].([]interface{})[0].(map[string]interface{})
	if total["value"].(float64) != 2 || total["badge"] != "+2" {
		t.Errorf("unexpected total card %v", total)
	}
	if logs := body["recent_logs"].([]interface{}); len(logs) != 1 {
		t.Errorf("expected 1 recent log, got %d", len(logs))
	}
}
