package model

import (
	"time"

	"github.com/google/uuid"
)

// DeviceType identifies the platform a device token belongs to
type DeviceType string

const (
	DeviceTypeAndroid DeviceType = "ANDROID"
	DeviceTypeIOS     DeviceType = "IOS"
	DeviceTypeWeb     DeviceType = "WEB"
	DeviceTypeMac     DeviceType = "MAC"
	DeviceTypeWindows DeviceType = "WINDOWS"
	DeviceTypeLinux   DeviceType = "LINUX"
	DeviceTypeDesktop DeviceType = "DESKTOP"
	DeviceTypeOther   DeviceType = "OTHER"
)

// IsValid reports whether the device type is one of the supported platforms
func (d DeviceType) IsValid() bool {
	switch d {
	case DeviceTypeAndroid, DeviceTypeIOS, DeviceTypeWeb, DeviceTypeMac,
		DeviceTypeWindows, DeviceTypeLinux, DeviceTypeDesktop, DeviceTypeOther:
		return true
	}
	return false
}

// DeviceToken represents a registered push endpoint for one of a user's devices.
// At most one row exists per (user_id, device_id), and a token value appears at
// most once per user: re-registration from the same device refreshes the row,
// while a known token showing up under a new device id repoints the existing
// row instead of duplicating it.
type DeviceToken struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID     uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_user_device;uniqueIndex:idx_user_token"`
	Token      string     `json:"-" gorm:"not null;uniqueIndex:idx_user_token"`
	DeviceID   string     `json:"device_id" gorm:"size:255;not null;uniqueIndex:idx_user_device"`
	DeviceType DeviceType `json:"device_type" gorm:"size:20;not null"`
	LastUsedAt time.Time  `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}
