package models

import "time"

// SettingEventCreationFee is the settings key holding the flat fee for paid events.
const SettingEventCreationFee = "event_creation_fee"

// PlatformSetting is a key/value pair managed from the admin settings panel.
type PlatformSetting struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedBy uint      `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}
