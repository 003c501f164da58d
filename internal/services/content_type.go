package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"dashboard/internal/models"
)

// resolveContentType returns the row of key, creating it on first use.
func resolveContentType(db *gorm.DB, key models.ContentTypeKey) (*models.ContentType, error) {
	ct := models.ContentType{AppLabel: key.AppLabel, Model: key.Model}
	if err := db.Where("app_label = ? AND model = ?", key.AppLabel, key.Model).FirstOrCreate(&ct).Error; err != nil {
		return nil, fmt.Errorf("resolve content type %s.%s: %w", key.AppLabel, key.Model, err)
	}
	return &ct, nil
}

// parseContentTypeKey parses "app_label.model".
func parseContentTypeKey(s string) (models.ContentTypeKey, bool) {
	app, model, ok := strings.Cut(s, ".")
	if !ok || app == "" || model == "" {
		return models.ContentTypeKey{}, false
	}
	return models.ContentTypeKey{AppLabel: app, Model: model}, true
}

// findContentType looks up an existing content type without creating it.
func findContentType(db *gorm.DB, key models.ContentTypeKey) (*models.ContentType, error) {
	var ct models.ContentType
	err := db.Where("app_label = ? AND model = ?", key.AppLabel, key.Model).First(&ct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

// preload is a scope that preloads the given associations.
func preload(associations ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, a := range associations {
			db = db.Preload(a)
		}
		return db
	}
}
