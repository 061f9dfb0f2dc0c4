package domain

import (
	"context"
	"time"
)

type UserPermission struct {
	UserID             string    `json:"user_id"`
	Username           string    `json:"username"`
	AllowTTS           bool      `json:"allow_tts"`
	AssignedVoiceID    string    `json:"assigned_voice_id,omitempty"`
	AssignedEngineID   string    `json:"assigned_engine_id,omitempty"`
	LanguagePreference string    `json:"language_preference,omitempty"`
	VolumeGain         float64   `json:"volume_gain"`
	IsBlacklisted      bool      `json:"is_blacklisted"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// PermissionRepository persists user permission rows. Get returns (nil, nil)
// when the user has no row.
type PermissionRepository interface {
	GetUserPermission(ctx context.Context, userID string) (*UserPermission, error)
	SaveUserPermission(ctx context.Context, perm *UserPermission) error
	DeleteUserPermission(ctx context.Context, userID string) error
	ListUserPermissions(ctx context.Context) ([]*UserPermission, error)
}

type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}
