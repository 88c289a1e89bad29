package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/minhngodev/campus-api/internal/model"
	"gorm.io/gorm"
)

// DeliveryUpdate carries the gateway outcome back onto one delivery row
type DeliveryUpdate struct {
	TokenID      uuid.UUID
	Status       model.DeliveryState
	ErrorCode    string
	ErrorMessage string
}

// NotificationRepository owns the notification audit root and its delivery
// rows. Delivery rows are created in bulk before dispatch and updated in
// place afterward; they are never re-created or deleted.
type NotificationRepository interface {
	Create(n *model.Notification) error
	FindByID(id uuid.UUID) (*model.Notification, error)
	Finalize(id uuid.UUID, status model.NotificationStatus, successCount, failureCount int, sentAt time.Time) error

	CreateDeliveryStatuses(rows []model.DeliveryStatus) error
	CloseDeliveries(notificationID uuid.UUID, updates []DeliveryUpdate) error
	CountDeliveries(notificationID uuid.UUID) (int64, error)

	ListHistory(filter model.HistoryFilter, page, limit int) ([]model.Notification, int64, error)
	CountSince(since time.Time) (int64, error)
	CountByStatusSince(since time.Time) ([]model.StatusCount, error)
	CountByTargetTypeSince(since time.Time) ([]model.TargetTypeCount, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create inserts a new notification record
func (r *notificationRepository) Create(n *model.Notification) error {
	return r.db.Create(n).Error
}

// FindByID returns a record with its full delivery trail
func (r *notificationRepository) FindByID(id uuid.UUID) (*model.Notification, error) {
	var n model.Notification
	err := r.db.
		Preload("Deliveries").
		Where("id = ?", id).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Finalize writes the terminal status and aggregate counts exactly once
func (r *notificationRepository) Finalize(id uuid.UUID, status model.NotificationStatus, successCount, failureCount int, sentAt time.Time) error {
	return r.db.Model(&model.Notification{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{
			"status":        status,
			"success_count": successCount,
			"failure_count": failureCount,
			"sent_at":       sentAt,
		}).Error
}

// CreateDeliveryStatuses bulk-inserts the PENDING rows in one round trip
func (r *notificationRepository) CreateDeliveryStatuses(rows []model.DeliveryStatus) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Create(&rows).Error
}

// CloseDeliveries applies the gateway outcomes to their rows
func (r *notificationRepository) CloseDeliveries(notificationID uuid.UUID, updates []DeliveryUpdate) error {
	now := time.Now()
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			err := tx.Model(&model.DeliveryStatus{}).
				Where("notification_id = ? AND token_id = ?", notificationID, u.TokenID).
				Updates(map[string]interface{}{
					"status":        u.Status,
					"error_code":    u.ErrorCode,
					"error_message": u.ErrorMessage,
					"processed_at":  now,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// CountDeliveries counts the delivery rows created for a record
func (r *notificationRepository) CountDeliveries(notificationID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&model.DeliveryStatus{}).
		Where("notification_id = ?", notificationID).
		Count(&count).Error
	return count, err
}

// ListHistory returns one page of records, newest first, plus the unpaged total
func (r *notificationRepository) ListHistory(filter model.HistoryFilter, page, limit int) ([]model.Notification, int64, error) {
	query := r.db.Model(&model.Notification{})

	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.UserID != nil {
		query = query.Where(
			"EXISTS (SELECT 1 FROM delivery_statuses ds WHERE ds.notification_id = notifications.id AND ds.user_id = ?)",
			*filter.UserID,
		)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	notifications := []model.Notification{}
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&notifications).Error
	return notifications, total, err
}

// CountSince counts all records created in the window
func (r *notificationRepository) CountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.Notification{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

// CountByStatusSince groups the window's records by terminal status
func (r *notificationRepository) CountByStatusSince(since time.Time) ([]model.StatusCount, error) {
	counts := []model.StatusCount{}
	err := r.db.Model(&model.Notification{}).
		Select("status, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("status").
		Scan(&counts).Error
	return counts, err
}

// CountByTargetTypeSince groups the window's records by target type
func (r *notificationRepository) CountByTargetTypeSince(since time.Time) ([]model.TargetTypeCount, error) {
	counts := []model.TargetTypeCount{}
	err := r.db.Model(&model.Notification{}).
		Select("target_type, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("target_type").
		Scan(&counts).Error
	return counts, err
}
