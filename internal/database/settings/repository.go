// Package settings provides database operations for per-user settings.
//
// # Usage
//
//	repo := settings.NewRepository(db)
//	setting, err := repo.GetSetting(userID, entities.SettingKeyViewState)
package settings

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Repository handles all settings database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetSetting retrieves a user's setting by key.
func (r *Repository) GetSetting(ctx context.Context, userID uint, key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := r.db.WithContext(ctx).Where("user_id = ? AND key = ?", userID, key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// SetSetting creates or updates a user's setting.
func (r *Repository) SetSetting(ctx context.Context, userID uint, key, value string) error {
	db := r.db.WithContext(ctx)

	var setting entities.Setting
	result := db.Where("user_id = ? AND key = ?", userID, key).First(&setting)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		setting = entities.Setting{
			UserID: userID,
			Key:    key,
			Value:  value,
		}
		return db.Create(&setting).Error
	} else if result.Error != nil {
		return result.Error
	}

	setting.Value = value
	return db.Save(&setting).Error
}

// DeleteSetting removes a user's setting by key.
func (r *Repository) DeleteSetting(ctx context.Context, userID uint, key string) error {
	return r.db.WithContext(ctx).Where("user_id = ? AND key = ?", userID, key).Delete(&entities.Setting{}).Error
}

// GetJSON decodes a setting into out. Found is false when the key is unset.
func (r *Repository) GetJSON(ctx context.Context, userID uint, key string, out any) (found bool, err error) {
	setting, err := r.GetSetting(ctx, userID, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(setting.Value), out); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v encoded as JSON.
func (r *Repository) SetJSON(ctx context.Context, userID uint, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.SetSetting(ctx, userID, key, string(data))
}
