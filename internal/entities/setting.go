package entities

import (
	"time"
)

// Setting is a per-user key/value row in the relational backend.
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_settings_user_key,priority:1" json:"user_id"`
	Key       string    `gorm:"uniqueIndex:idx_settings_user_key,priority:2;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	SettingKeyViewState = "library_view_state"
)
