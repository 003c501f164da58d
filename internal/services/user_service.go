package services

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dashboard/internal/changelog"
	apperrors "dashboard/internal/errors"
	"dashboard/internal/models"
	"dashboard/internal/pagination"
)

// userService handles user-related business logic.
type userService struct {
	db *gorm.DB
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB) UserServicer {
	return &userService{db: db}
}

// CreateUser registers a new user. New users are active unless the fields
// say otherwise.
func (s *userService) CreateUser(fields UserFields) (*models.User, error) {
	// Validate input
	if fields.Username == nil || *fields.Username == "" || fields.Password == nil || *fields.Password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "username and password are required")
	}

	user := &models.User{
		IsActive:     true,
		RegisteredAt: time.Now(),
		Groups:       []models.UserGroup{},
	}
	if err := s.apply(user, fields); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if fields.GroupIDs != nil {
			return s.setGroups(tx, user, *fields.GroupIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserByID retrieves a user by ID. Inactive users are only found with
// includeInactive set.
func (s *userService) GetUserByID(id string, includeInactive bool) (*models.User, error) {
	var user models.User
	query := s.db.Scopes(withGroups).Where("id = ?", id)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username, active or not.
func (s *userService) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Scopes(withGroups).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// ListUsers retrieves a paginated list of users, newest first.
func (s *userService) ListUsers(filter UserFilter, page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	base := s.db.Model(&models.User{}).Order("registered_at DESC, id DESC")
	if !filter.IncludeInactive {
		base = base.Where("is_active = ?", true)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		base = base.Where("username LIKE ? OR email LIKE ?", like, like)
	}

	result, err := pagination.FindPage[models.User](base, page, withGroups)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// UpdateUser applies fields to a user and saves it. A non-nil GroupIDs
// replaces the group membership of the user.
func (s *userService) UpdateUser(id string, fields UserFields, includeInactive bool) (*models.User, *changelog.Form, error) {
	user, err := s.GetUserByID(id, includeInactive)
	if err != nil {
		return nil, nil, err
	}

	prior := user.FormValues()
	if err := s.apply(user, fields); err != nil {
		return nil, nil, err
	}
	if !user.IsActive && user.DeactivatedAt == nil {
		now := time.Now()
		user.DeactivatedAt = &now
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(user).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if fields.GroupIDs != nil {
			return s.setGroups(tx, user, *fields.GroupIDs)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return user, changelog.NewForm(models.UserLabels, prior, user.FormValues()), nil
}

// DeleteUser soft-deletes a user. The username and email stay reserved.
func (s *userService) DeleteUser(id string, includeInactive bool) (*models.User, error) {
	user, err := s.GetUserByID(id, includeInactive)
	if err != nil {
		return nil, err
	}
	if err := s.db.Delete(user).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user, nil
}

// ToggleActive flips the active flag of a user.
func (s *userService) ToggleActive(id string) (*models.User, *changelog.Form, error) {
	user, err := s.GetUserByID(id, true)
	if err != nil {
		return nil, nil, err
	}

	prior := user.FormValues()
	user.IsActive = !user.IsActive
	return s.save(user, prior)
}

// ForceDeactivate marks a user inactive and records when.
func (s *userService) ForceDeactivate(id string) (*models.User, *changelog.Form, error) {
	user, err := s.GetUserByID(id, true)
	if err != nil {
		return nil, nil, err
	}

	prior := user.FormValues()
	now := time.Now()
	user.IsActive = false
	user.DeactivatedAt = &now
	return s.save(user, prior)
}

// GetStats counts users by status.
func (s *userService) GetStats() (*UserStats, error) {
	var stats UserStats
	counts := []struct {
		dest  *int64
		query string
		args  []interface{}
	}{
		{&stats.Total, "", nil},
		{&stats.Active, "is_active = ?", []interface{}{true}},
		{&stats.Inactive, "is_active = ?", []interface{}{false}},
		{&stats.Staff, "is_staff = ?", []interface{}{true}},
		{&stats.Superuser, "is_superuser = ?", []interface{}{true}},
	}
	for _, c := range counts {
		query := s.db.Model(&models.User{})
		if c.query != "" {
			query = query.Where(c.query, c.args...)
		}
		if err := query.Count(c.dest).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return &stats, nil
}

// GetSystemStats adds registrations since the start of today and of the
// day a week ago to GetStats.
func (s *userService) GetSystemStats(now time.Time) (*SystemStats, error) {
	base, err := s.GetStats()
	if err != nil {
		return nil, err
	}

	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := startOfToday.AddDate(0, 0, -7)

	stats := &SystemStats{UserStats: *base}
	if err := s.db.Model(&models.User{}).Where("registered_at >= ?", startOfToday).Count(&stats.RegisteredToday).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Model(&models.User{}).Where("registered_at >= ?", weekAgo).Count(&stats.RegisteredThisWeek).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return stats, nil
}

// VerifyPassword checks if the provided password matches the stored hash
func (s *userService) VerifyPassword(user *models.User, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	return err == nil
}

// apply copies the set fields onto user, enforcing uniqueness and hashing
// the password.
func (s *userService) apply(user *models.User, fields UserFields) error {
	if fields.Username != nil {
		username := strings.TrimSpace(*fields.Username)
		if username == "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "username must not be empty")
		}
		if username != user.Username {
			taken, err := s.exists("username = ?", username, user.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperrors.ErrDuplicateUsername
			}
		}
		user.Username = username
	}

	if fields.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*fields.Email))
		if email == "" {
			user.Email = nil
		} else {
			if user.Email == nil || *user.Email != email {
				taken, err := s.exists("email = ?", email, user.ID)
				if err != nil {
					return err
				}
				if taken {
					return apperrors.ErrDuplicateEmail
				}
			}
			user.Email = &email
		}
	}

	if fields.Password != nil && *fields.Password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*fields.Password), bcrypt.DefaultCost)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		user.Password = string(hashedPassword)
	}

	if fields.IsActive != nil {
		user.IsActive = *fields.IsActive
		if user.IsActive {
			user.DeactivatedAt = nil
		}
	}
	if fields.IsStaff != nil {
		user.IsStaff = *fields.IsStaff
	}
	if fields.IsSuperuser != nil {
		user.IsSuperuser = *fields.IsSuperuser
	}
	return nil
}

// exists reports whether another user, deleted ones included, matches cond.
func (s *userService) exists(cond string, value, excludeID string) (bool, error) {
	var count int64
	query := s.db.Unscoped().Model(&models.User{}).Where(cond, value)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

func (s *userService) save(user *models.User, prior map[string]any) (*models.User, *changelog.Form, error) {
	if err := s.db.Omit(clause.Associations).Save(user).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user, changelog.NewForm(models.UserLabels, prior, user.FormValues()), nil
}

// setGroups makes groupIDs the exact membership of user and reloads
// user.Groups. Unknown or deleted groups are rejected.
func (s *userService) setGroups(tx *gorm.DB, user *models.User, groupIDs []string) error {
	wanted := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		wanted[id] = true
	}

	if len(wanted) > 0 {
		ids := make([]string, 0, len(wanted))
		for id := range wanted {
			ids = append(ids, id)
		}
		var count int64
		if err := tx.Model(&models.Group{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count != int64(len(ids)) {
			return apperrors.ErrGroupNotFound
		}
	}

	var current []models.UserGroup
	if err := tx.Where("user_id = ?", user.ID).Find(&current).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, ug := range current {
		if wanted[ug.GroupID] {
			delete(wanted, ug.GroupID)
			continue
		}
		if err := tx.Unscoped().Delete(&models.UserGroup{}, "id = ?", ug.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	for _, id := range groupIDs {
		if !wanted[id] {
			continue
		}
		delete(wanted, id)
		if err := tx.Create(&models.UserGroup{UserID: user.ID, GroupID: id}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	user.Groups = nil
	if err := tx.Preload("Group").Where("user_id = ?", user.ID).
		Order("created_at, id").Find(&user.Groups).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// withGroups preloads the group memberships of users.
func withGroups(db *gorm.DB) *gorm.DB {
	return db.Preload("Groups", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at, id")
	}).Preload("Groups.Group")
}
