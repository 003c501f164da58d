package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"dashboard/internal/changelog"
	apperrors "dashboard/internal/errors"
	"dashboard/internal/models"
	"dashboard/internal/pagination"
)

// groupService handles groups and their inline permission rows.
type groupService struct {
	db *gorm.DB
}

// NewGroupService creates a new GroupServicer.
func NewGroupService(db *gorm.DB) GroupServicer {
	return &groupService{db: db}
}

// CreateGroup creates a group with the given permissions. The returned
// formset lists the new permission rows.
func (s *groupService) CreateGroup(name string, permissionIDs []string) (*models.Group, []*changelog.Formset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "group name is required")
	}

	group := &models.Group{Name: name}
	fs := newGroupPermissionFormset()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.checkName(tx, name, ""); err != nil {
			return err
		}
		if err := tx.Create(group).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		seen := make(map[string]bool, len(permissionIDs))
		for _, pid := range permissionIDs {
			if seen[pid] {
				continue
			}
			seen[pid] = true

			gp, err := s.attach(tx, group, pid)
			if err != nil {
				return err
			}
			fs.NewObjects = append(fs.NewObjects, gp)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	created, err := s.GetGroupByID(group.ID)
	if err != nil {
		return nil, nil, err
	}
	return created, []*changelog.Formset{fs}, nil
}

// GetGroupByID retrieves a group with its permissions.
func (s *groupService) GetGroupByID(id string) (*models.Group, error) {
	return s.load(s.db, id)
}

// ListGroups retrieves a paginated list of groups ordered by name.
func (s *groupService) ListGroups(search string, page pagination.PageRequest) (*pagination.PageResponse[models.Group], error) {
	base := s.db.Model(&models.Group{}).Order("name")
	if search != "" {
		base = base.Where("name LIKE ?", "%"+search+"%")
	}

	result, err := pagination.FindPage[models.Group](base, page,
		preload("Permissions.Permission.ContentType"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// UpdateGroup renames a group and edits its permission rows in one
// transaction. Rows are processed in order: rows without an ID are added,
// rows flagged Delete are removed and the rest may point at a different
// permission. It returns the parent form and the row formset for the
// change message.
func (s *groupService) UpdateGroup(id string, name *string, rows []GroupPermissionRow) (*models.Group, *changelog.Form, []*changelog.Formset, error) {
	var form *changelog.Form
	fs := newGroupPermissionFormset()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		group, err := s.load(tx, id)
		if err != nil {
			return err
		}

		prior := group.FormValues()
		if name != nil {
			newName := strings.TrimSpace(*name)
			if newName == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "group name must not be empty")
			}
			if newName != group.Name {
				if err := s.checkName(tx, newName, group.ID); err != nil {
					return err
				}
				group.Name = newName
				if err := tx.Model(group).Update("name", newName).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
			}
		}
		form = changelog.NewForm(models.GroupLabels, prior, group.FormValues())

		existing := make(map[string]*models.GroupPermission, len(group.Permissions))
		for i := range group.Permissions {
			gp := &group.Permissions[i]
			gp.Group = group
			existing[gp.ID] = gp
		}

		for _, row := range rows {
			if row.ID == "" {
				if row.Delete {
					continue
				}
				gp, err := s.attach(tx, group, row.PermissionID)
				if err != nil {
					return err
				}
				fs.NewObjects = append(fs.NewObjects, gp)
				continue
			}

			gp, ok := existing[row.ID]
			if !ok {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "permission row "+row.ID+" does not belong to this group")
			}

			if row.Delete {
				if err := tx.Unscoped().Delete(gp).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
				delete(existing, row.ID)
				fs.DeletedObjects = append(fs.DeletedObjects, gp)
				continue
			}

			rowPrior := gp.FormValues()
			if row.PermissionID != "" && row.PermissionID != gp.PermissionID {
				perm, err := s.permission(tx, row.PermissionID)
				if err != nil {
					return err
				}
				if err := s.checkAssigned(tx, group.ID, perm.ID); err != nil {
					return err
				}
				if err := tx.Model(gp).Update("permission_id", perm.ID).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
				gp.PermissionID = perm.ID
				gp.Permission = perm
			}

			rowForm := changelog.NewForm(models.GroupPermissionLabels, rowPrior, gp.FormValues())
			fs.Forms = append(fs.Forms, rowForm)
			if len(rowForm.Changed) > 0 {
				fs.ChangedObjects = append(fs.ChangedObjects, gp)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}

	updated, err := s.GetGroupByID(id)
	if err != nil {
		return nil, nil, nil, err
	}
	return updated, form, []*changelog.Formset{fs}, nil
}

// DeleteGroup soft-deletes a group and removes its permission rows and
// memberships.
func (s *groupService) DeleteGroup(id string) (*models.Group, error) {
	var group *models.Group
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		group, err = s.load(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Unscoped().Where("group_id = ?", group.ID).Delete(&models.GroupPermission{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Unscoped().Where("group_id = ?", group.ID).Delete(&models.UserGroup{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(group).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

func newGroupPermissionFormset() *changelog.Formset {
	return &changelog.Formset{PKField: "id", Labels: models.GroupPermissionLabels}
}

func (s *groupService) load(db *gorm.DB, id string) (*models.Group, error) {
	var group models.Group
	err := db.Preload("Permissions", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at, id")
	}).Preload("Permissions.Permission.ContentType").First(&group, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGroupNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &group, nil
}

func (s *groupService) checkName(db *gorm.DB, name, excludeID string) error {
	var count int64
	query := db.Unscoped().Model(&models.Group{}).Where("name = ?", name)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateGroupName
	}
	return nil
}

func (s *groupService) permission(db *gorm.DB, id string) (*models.Permission, error) {
	var perm models.Permission
	if err := db.Preload("ContentType").First(&perm, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPermissionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &perm, nil
}

func (s *groupService) checkAssigned(db *gorm.DB, groupID, permissionID string) error {
	var count int64
	if err := db.Model(&models.GroupPermission{}).
		Where("group_id = ? AND permission_id = ?", groupID, permissionID).
		Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "permission is already assigned to this group")
	}
	return nil
}

// attach links a permission to group.
func (s *groupService) attach(db *gorm.DB, group *models.Group, permissionID string) (*models.GroupPermission, error) {
	perm, err := s.permission(db, permissionID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAssigned(db, group.ID, perm.ID); err != nil {
		return nil, err
	}

	gp := &models.GroupPermission{GroupID: group.ID, PermissionID: perm.ID}
	if err := db.Create(gp).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	gp.Group = group
	gp.Permission = perm
	return gp, nil
}
