package model

import (
	"time"

	"github.com/google/uuid"
)

// ========== Device DTOs ==========

type RegisterDeviceRequest struct {
	Token      string     `json:"token" binding:"required"`
	DeviceID   string     `json:"device_id" binding:"required,max=255"`
	DeviceType DeviceType `json:"device_type" binding:"required"`
}

type UnregisterDeviceRequest struct {
	Token string `json:"token" binding:"required"`
}

// ========== Notification DTOs ==========

type DispatchRequest struct {
	TargetType TargetType        `json:"target_type" binding:"required"`
	TargetIDs  []string          `json:"target_ids" binding:"required,min=1"`
	Title      string            `json:"title" binding:"required,max=255"`
	Body       string            `json:"body" binding:"required"`
	Data       map[string]string `json:"data,omitempty"`
	ImageURL   string            `json:"image_url,omitempty" binding:"omitempty,max=500"`
}

// HistoryFilter narrows the notification history listing. UserID filters by
// involvement: records with at least one delivery row for that user.
type HistoryFilter struct {
	TargetType TargetType
	UserID     *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// NotificationSummary is one history page entry with its delivery tally
type NotificationSummary struct {
	Notification
	DeliveryCount int64 `json:"delivery_count"`
}

type HistoryResponse struct {
	Items []NotificationSummary `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

// NotificationDetail is a record plus its full audit trail and the users the
// raw target specification resolved to at read time
type NotificationDetail struct {
	Notification
	Targets []UserResponse `json:"targets"`
}

// StatusCount is one bucket of the aggregate stats query
type StatusCount struct {
	Status NotificationStatus `json:"status"`
	Count  int64              `json:"count"`
}

type TargetTypeCount struct {
	TargetType TargetType `json:"target_type"`
	Count      int64      `json:"count"`
}

type StatsResponse struct {
	Since        time.Time         `json:"since"`
	Total        int64             `json:"total"`
	ByStatus     []StatusCount     `json:"by_status"`
	ByTargetType []TargetTypeCount `json:"by_target_type"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type UploadResponse struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}
