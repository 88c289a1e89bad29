package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TargetType declares how the target ids of a notification are interpreted
type TargetType string

const (
	TargetUser          TargetType = "USER"
	TargetRole          TargetType = "ROLE"
	TargetMultipleUsers TargetType = "MULTIPLE_USERS"
)

// IsValid reports whether the target type is supported
func (t TargetType) IsValid() bool {
	switch t {
	case TargetUser, TargetRole, TargetMultipleUsers:
		return true
	}
	return false
}

// NotificationStatus is the lifecycle state of a notification record.
// PENDING moves to exactly one of SENT or FAILED; terminal states are final.
type NotificationStatus string

const (
	StatusPending NotificationStatus = "PENDING"
	StatusSent    NotificationStatus = "SENT"
	StatusFailed  NotificationStatus = "FAILED"
)

// StringMap is a map[string]string stored as jsonb
type StringMap map[string]string

func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("unsupported jsonb source type")
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, m)
}

// StringList is a []string stored as jsonb, used for the raw target ids
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("unsupported jsonb source type")
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, l)
}

// Notification is the audit root for one fan-out. It keeps the raw,
// unresolved target specification exactly as the caller supplied it, plus
// the aggregate outcome once every batch for the record has completed.
type Notification struct {
	ID           uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title        string             `json:"title" gorm:"size:255;not null"`
	Body         string             `json:"body" gorm:"type:text;not null"`
	Data         StringMap          `json:"data,omitempty" gorm:"type:jsonb"`
	ImageURL     string             `json:"image_url,omitempty" gorm:"size:500"`
	TargetType   TargetType         `json:"target_type" gorm:"size:20;not null;index"`
	TargetIDs    StringList         `json:"target_ids" gorm:"type:jsonb;not null"`
	SenderID     *uuid.UUID         `json:"sender_id,omitempty" gorm:"type:uuid;index"`
	Status       NotificationStatus `json:"status" gorm:"size:10;not null;default:'PENDING';index"`
	SuccessCount int                `json:"success_count" gorm:"not null;default:0"`
	FailureCount int                `json:"failure_count" gorm:"not null;default:0"`
	SentAt       *time.Time         `json:"sent_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at" gorm:"index"`

	Deliveries []DeliveryStatus `json:"deliveries,omitempty" gorm:"foreignKey:NotificationID"`
}

// DeliveryState is the per-token delivery outcome
type DeliveryState string

const (
	DeliveryPending DeliveryState = "PENDING"
	DeliverySent    DeliveryState = "SENT"
	DeliveryFailed  DeliveryState = "FAILED"
)

// DeliveryStatus records the outcome of one token within one notification.
// Exactly one row exists per (notification_id, token_id); the row is created
// PENDING before the gateway call and updated in place afterward. Rows are
// never deleted, so the audit trail survives later token hygiene.
type DeliveryStatus struct {
	ID             uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NotificationID uuid.UUID     `json:"notification_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_notification_token"`
	TokenID        uuid.UUID     `json:"token_id" gorm:"type:uuid;not null;uniqueIndex:idx_notification_token"`
	UserID         uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;index"`
	Token          string        `json:"-" gorm:"not null"`
	Status         DeliveryState `json:"status" gorm:"size:10;not null;default:'PENDING'"`
	ErrorCode      string        `json:"error_code,omitempty" gorm:"size:100"`
	ErrorMessage   string        `json:"error_message,omitempty" gorm:"size:500"`
	ProcessedAt    *time.Time    `json:"processed_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}
