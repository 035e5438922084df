package models

import (
	"time"

	"github.com/google/uuid"
)

// ModelConfig holds the per-account configuration for one external completion
// endpoint. All three fields must be set before the stage can be called.
type ModelConfig struct {
	BaseURL string `json:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty"`
	ModelID string `json:"model_id,omitempty"`
}

// Complete reports whether every field is populated.
func (c ModelConfig) Complete() bool {
	return c.BaseURL != "" && c.APIKey != "" && c.ModelID != ""
}

type Account struct {
	ID                  uuid.UUID   `json:"id"`
	Username            string      `json:"username"`
	AccessKey           string      `json:"access_key"`
	DeviceKey           *string     `json:"device_key,omitempty"`
	IsActive            bool        `json:"is_active"`
	APICallsTotal       int         `json:"api_calls_total"`
	APICallLimit        *int        `json:"api_call_limit,omitempty"`
	ExpiresOn           *time.Time  `json:"expires_on,omitempty"`
	PendingNotification *string     `json:"-"`
	UninstallPending    bool        `json:"uninstall_pending"`
	VisionConfig        ModelConfig `json:"vision_config"`
	TextConfig          ModelConfig `json:"text_config"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}
