package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"dashboard/internal/changelog"
	apperrors "dashboard/internal/errors"
	"dashboard/internal/logger"
	"dashboard/internal/models"
	"dashboard/internal/observability"
	"dashboard/internal/pagination"
)

// auditService handles audit log recording and display.
type auditService struct {
	db       *gorm.DB
	catalog  changelog.Catalog
	renderer *changelog.Renderer
	metrics  *observability.Metrics
}

// NewAuditService creates a new AuditServicer. metrics may be nil.
func NewAuditService(db *gorm.DB, metrics *observability.Metrics) AuditServicer {
	renderer := changelog.NewRenderer(changelog.Korean)
	renderer.OnFallback = func(reason string, _ error) {
		metrics.RenderFallback(reason)
	}
	return &auditService{
		db:       db,
		catalog:  changelog.Korean,
		renderer: renderer,
		metrics:  metrics,
	}
}

// ConstructChangeMessage builds the message of a save. Changed related
// objects get their own change entry, attributed to actorID, before the
// combined message is returned.
func (s *auditService) ConstructChangeMessage(actorID string, form changelog.ChangeTrackable, labels changelog.Labels, formsets []*changelog.Formset, add bool) changelog.Message {
	builder := changelog.NewBuilder(s.catalog, func(obj changelog.Object, msg changelog.Message) {
		auditable, ok := obj.(models.Auditable)
		if !ok {
			logger.Get().Warnw("related object is not auditable", "object", obj.String())
			return
		}
		s.LogChange(actorID, auditable, msg)
	})
	builder.OnSkip = func(error) {
		s.metrics.RelatedFormSkipped()
	}
	return builder.Construct(form, labels, formsets, add)
}

// LogAddition records the creation of obj.
func (s *auditService) LogAddition(actorID string, obj models.Auditable, msg changelog.Message) {
	s.write(actorID, obj, changelog.Addition, msg)
}

// LogChange records a change of obj.
func (s *auditService) LogChange(actorID string, obj models.Auditable, msg changelog.Message) {
	s.write(actorID, obj, changelog.Change, msg)
}

// LogDeletion records the deletion of obj. Deletions carry no message.
func (s *auditService) LogDeletion(actorID string, obj models.Auditable) {
	s.writeRaw(actorID, obj, changelog.Deletion, "")
}

// write records an audit entry. Errors are logged but never propagate
// to avoid disrupting the main operation.
func (s *auditService) write(actorID string, obj models.Auditable, flag changelog.ActionFlag, msg changelog.Message) {
	raw, err := msg.Encode()
	if err != nil {
		logger.Get().Errorw("failed to encode change message", "error", err, "action", flag.String())
		raw = "[]"
	}
	s.writeRaw(actorID, obj, flag, raw)
}

func (s *auditService) writeRaw(actorID string, obj models.Auditable, flag changelog.ActionFlag, raw string) {
	ct, err := resolveContentType(s.db, obj.ContentTypeKey())
	if err != nil {
		s.writeFailed(err, actorID, obj, flag)
		return
	}

	entry := &models.LogEntry{
		ActionTime:    time.Now(),
		UserID:        actorID,
		ContentTypeID: ct.ID,
		ObjectID:      obj.PrimaryKey(),
		ObjectRepr:    models.TruncateRepr(obj.String()),
		ActionFlag:    flag,
		ChangeMessage: raw,
	}

	if err := s.db.Create(entry).Error; err != nil {
		s.writeFailed(err, actorID, obj, flag)
		return
	}
	s.metrics.AuditEntry(flag.String())
}

func (s *auditService) writeFailed(err error, actorID string, obj models.Auditable, flag changelog.ActionFlag) {
	logger.Get().Errorw("failed to create audit log entry",
		"error", err,
		"user_id", actorID,
		"action", flag.String(),
		"content_type", obj.ContentTypeKey(),
		"object_id", obj.PrimaryKey(),
	)
	s.metrics.AuditWriteFailed()
}

// ListEntries retrieves a paginated list of audit entries, newest first,
// with their display columns.
func (s *auditService) ListEntries(filter LogEntryFilter, page pagination.PageRequest) (*pagination.PageResponse[LogEntryView], error) {
	base := s.db.Model(&models.LogEntry{}).
		Joins("LEFT JOIN users ON users.id = admin_log_entries.user_id").
		Order("admin_log_entries.action_time DESC, admin_log_entries.id DESC")

	if filter.UserID != "" {
		base = base.Where("admin_log_entries.user_id = ?", filter.UserID)
	}
	if filter.ActionFlag != nil {
		if !filter.ActionFlag.Valid() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "action_flag must be 1, 2 or 3")
		}
		base = base.Where("admin_log_entries.action_flag = ?", int(*filter.ActionFlag))
	}
	if filter.ContentType != "" {
		key, ok := parseContentTypeKey(filter.ContentType)
		if !ok {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "content_type must be app_label.model")
		}
		ct, err := findContentType(s.db, key)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if ct == nil {
			// Nothing was ever logged for an unknown type.
			base = base.Where("1 = 0")
		} else {
			base = base.Where("admin_log_entries.content_type_id = ?", ct.ID)
		}
	}
	if filter.ObjectID != "" {
		base = base.Where("admin_log_entries.object_id = ?", filter.ObjectID)
	}
	if filter.From != nil {
		base = base.Where("admin_log_entries.action_time >= ?", *filter.From)
	}
	if filter.To != nil {
		base = base.Where("admin_log_entries.action_time <= ?", *filter.To)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		base = base.Where("admin_log_entries.object_repr LIKE ? OR users.username LIKE ?", like, like)
	}

	entries, err := pagination.FindPage[models.LogEntry](base, page, withLogRelations)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	views := make([]LogEntryView, len(entries.Data))
	for i := range entries.Data {
		views[i] = s.view(&entries.Data[i])
	}
	resp := pagination.NewPageResponse(views, entries.Page, entries.PageSize, entries.TotalItems)
	return &resp, nil
}

// GetEntry retrieves one audit entry with its display columns.
func (s *auditService) GetEntry(id string) (*LogEntryView, error) {
	var entry models.LogEntry
	if err := s.db.Scopes(withLogRelations).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrLogEntryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	view := s.view(&entry)
	return &view, nil
}

// withLogRelations preloads the actor, deleted or not, and the content type.
func withLogRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("User", func(db *gorm.DB) *gorm.DB {
		return db.Unscoped()
	}).Preload("ContentType")
}

// view fills the display columns of entry. Relations that do not load
// render as empty names.
func (s *auditService) view(entry *models.LogEntry) LogEntryView {
	var username, appLabel, resource string
	if entry.User != nil {
		username = entry.User.Username
	}
	if entry.ContentType != nil {
		appLabel = entry.ContentType.AppLabel
		resource = entry.ContentType.PluralName()
	}

	return LogEntryView{
		LogEntry:          *entry,
		ActionTimeDisplay: changelog.FormatActionTime(entry.ActionTime),
		Username:          username,
		AppLabel:          appLabel,
		Resource:          resource,
		ObjectReprDisplay: changelog.TruncateRepr(entry.ObjectRepr),
		ActionName:        s.catalog.ActionName(entry.ActionFlag),
		Message:           s.renderer.Render(username, appLabel, entry.ObjectID, entry.ChangeMessage, entry.ActionFlag),
	}
}
