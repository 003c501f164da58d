package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "dashboard/internal/errors"
	"dashboard/internal/logger"
	"dashboard/internal/models"
	"dashboard/internal/pagination"
)

// permissionService handles permission lookups and the default permission set.
type permissionService struct {
	db *gorm.DB
}

// NewPermissionService creates a new PermissionServicer.
func NewPermissionService(db *gorm.DB) PermissionServicer {
	return &permissionService{db: db}
}

// SyncDefaults makes sure every known content type and its add, change,
// delete and view permissions exist. Existing rows are left untouched.
func (s *permissionService) SyncDefaults() error {
	created := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, key := range models.KnownContentTypes {
			ct, err := resolveContentType(tx, key)
			if err != nil {
				return err
			}
			var existing []string
			if err := tx.Model(&models.Permission{}).Where("content_type_id = ?", ct.ID).Pluck("codename", &existing).Error; err != nil {
				return err
			}
			have := make(map[string]bool, len(existing))
			for _, codename := range existing {
				have[codename] = true
			}

			for _, perm := range models.DefaultPermissions(ct) {
				if have[perm.Codename] {
					continue
				}
				if err := tx.Create(&perm).Error; err != nil {
					return err
				}
				created++
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Get().Infow("default permissions synced",
		"content_types", len(models.KnownContentTypes),
		"created", created,
	)
	return nil
}

// ListPermissions returns permissions ordered by content type and codename.
// contentType filters by "app_label.model".
func (s *permissionService) ListPermissions(contentType string, search string, page pagination.PageRequest) (*pagination.PageResponse[models.Permission], error) {
	base := s.db.Model(&models.Permission{}).
		Joins("JOIN content_types ON content_types.id = auth_permissions.content_type_id").
		Order("content_types.app_label, content_types.model, auth_permissions.codename")

	if contentType != "" {
		key, ok := parseContentTypeKey(contentType)
		if !ok {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "content_type must be app_label.model")
		}
		base = base.Where("content_types.app_label = ? AND content_types.model = ?", key.AppLabel, key.Model)
	}
	if search != "" {
		like := "%" + search + "%"
		base = base.Where("auth_permissions.name LIKE ? OR auth_permissions.codename LIKE ?", like, like)
	}

	result, err := pagination.FindPage[models.Permission](base, page, preload("ContentType"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetPermissionByID retrieves a permission with its content type.
func (s *permissionService) GetPermissionByID(id string) (*models.Permission, error) {
	var perm models.Permission
	if err := s.db.Preload("ContentType").First(&perm, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPermissionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &perm, nil
}
