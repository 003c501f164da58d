package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dashboard/internal/changelog"
	"dashboard/internal/services"
)

// LogEntryHandler serves the audit trail.
type LogEntryHandler struct {
	auditService services.AuditServicer
}

// NewLogEntryHandler creates a new LogEntryHandler.
func NewLogEntryHandler(auditService services.AuditServicer) *LogEntryHandler {
	return &LogEntryHandler{auditService: auditService}
}

// LogEntryListQuery holds the filters of the log entry list. Times are
// RFC 3339.
type LogEntryListQuery struct {
	UserID      string     `form:"user_id" binding:"omitempty,uuid"`
	ActionFlag  *int       `form:"action_flag" binding:"omitempty,action_flag"`
	ContentType string     `form:"content_type" binding:"max=200"`
	ObjectID    string     `form:"object_id" binding:"max=255"`
	From        *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To          *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Search      string     `form:"search" binding:"max=200"`
}

// LogEntryResponse is the single log entry envelope.
type LogEntryResponse struct {
	LogEntry services.LogEntryView `json:"log_entry"`
}

func (q LogEntryListQuery) filter() services.LogEntryFilter {
	f := services.LogEntryFilter{
		UserID:      q.UserID,
		ContentType: q.ContentType,
		ObjectID:    q.ObjectID,
		From:        q.From,
		To:          q.To,
		Search:      q.Search,
	}
	if q.ActionFlag != nil {
		flag := changelog.ActionFlag(*q.ActionFlag)
		f.ActionFlag = &flag
	}
	return f
}

// ListLogEntries lists audit entries, newest first, with rendered messages.
// @Summary     List audit log entries
// @Tags        admin-log
// @Produce     json
// @Security    BearerAuth
// @Param       page         query int    false "Page number"
// @Param       page_size    query int    false "Items per page"
// @Param       user_id      query string false "Actor ID"
// @Param       action_flag  query int    false "1 addition, 2 change, 3 deletion"
// @Param       content_type query string false "app_label.model"
// @Param       object_id    query string false "Object ID"
// @Param       from         query string false "Earliest action time (RFC 3339)"
// @Param       to           query string false "Latest action time (RFC 3339)"
// @Param       search       query string false "Object repr or username contains"
// @Success     200 {object} pagination.PageResponse[services.LogEntryView]
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Staff access required"
// @Router      /admin/logentries [get]
func (h *LogEntryHandler) ListLogEntries(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var q LogEntryListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.auditService.ListEntries(q.filter(), page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetLogEntry returns one audit entry.
// @Summary     Get an audit log entry
// @Tags        admin-log
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Log entry ID"
// @Success     200 {object} LogEntryResponse
// @Failure     404 {object} ErrorResponse "Log entry not found"
// @Router      /admin/logentries/{id} [get]
func (h *LogEntryHandler) GetLogEntry(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	entry, err := h.auditService.GetEntry(id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, LogEntryResponse{LogEntry: *entry})
}
