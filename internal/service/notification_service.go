package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/minhngodev/campus-api/internal/model"
	"github.com/minhngodev/campus-api/internal/repository"
	"github.com/minhngodev/campus-api/pkg/push"
	"gorm.io/gorm"
)

// DispatchEvent is broadcast to connected dashboards when a fan-out reaches
// its terminal state
type DispatchEvent struct {
	NotificationID uuid.UUID                `json:"notification_id"`
	Title          string                   `json:"title"`
	TargetType     model.TargetType         `json:"target_type"`
	Status         model.NotificationStatus `json:"status"`
	SuccessCount   int                      `json:"success_count"`
	FailureCount   int                      `json:"failure_count"`
	SentAt         time.Time                `json:"sent_at"`
}

// EventPublisher pushes dispatch events to live listeners; nil disables it
type EventPublisher interface {
	PublishDispatch(event DispatchEvent)
}

// NotificationService owns the fan-out pipeline: token registration, target
// resolution, delivery tracking, token hygiene and the audit/stats queries.
type NotificationService struct {
	userRepo   repository.UserRepository
	deviceRepo repository.DeviceRepository
	notifRepo  repository.NotificationRepository
	dispatcher *push.Dispatcher
	events     EventPublisher
}

func NewNotificationService(
	userRepo repository.UserRepository,
	deviceRepo repository.DeviceRepository,
	notifRepo repository.NotificationRepository,
	dispatcher *push.Dispatcher,
	events EventPublisher,
) *NotificationService {
	return &NotificationService{
		userRepo:   userRepo,
		deviceRepo: deviceRepo,
		notifRepo:  notifRepo,
		dispatcher: dispatcher,
		events:     events,
	}
}

// RegisterDevice upserts a push endpoint for one of a user's devices.
// Resolution order: a row for (user, device) is refreshed in place; else a
// row already carrying the token under another device id is repointed (a
// client reinstall can migrate token ownership between device ids); else a
// new row is inserted. The ordering keeps the (user, device) and
// (user, token) uniqueness invariants without ever duplicating a token.
func (s *NotificationService) RegisterDevice(userID uuid.UUID, token, deviceID string, deviceType model.DeviceType) (*model.DeviceToken, error) {
	if !deviceType.IsValid() {
		return nil, ErrInvalidDeviceType
	}

	now := time.Now()

	device, err := s.deviceRepo.FindByUserAndDevice(userID, deviceID)
	if err == nil {
		device.Token = token
		device.DeviceType = deviceType
		device.LastUsedAt = now
		if err := s.deviceRepo.Save(device); err != nil {
			return nil, err
		}
		return device, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	device, err = s.deviceRepo.FindByUserAndToken(userID, token)
	if err == nil {
		device.DeviceID = deviceID
		device.DeviceType = deviceType
		device.LastUsedAt = now
		if err := s.deviceRepo.Save(device); err != nil {
			return nil, err
		}
		return device, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	device = &model.DeviceToken{
		ID:         uuid.New(),
		UserID:     userID,
		Token:      token,
		DeviceID:   deviceID,
		DeviceType: deviceType,
		LastUsedAt: now,
	}
	if err := s.deviceRepo.Create(device); err != nil {
		return nil, err
	}
	return device, nil
}

// UnregisterDevice drops one of a user's push endpoints (logout path)
func (s *NotificationService) UnregisterDevice(userID uuid.UUID, token string) error {
	return s.deviceRepo.DeleteByUserAndToken(userID, token)
}

// targetSpec is a parsed, format-validated target specification
type targetSpec struct {
	users []uuid.UUID
	role  model.Role
}

// parseTargetSpec validates the raw target specification without touching
// storage, so malformed requests are rejected before any write happens
func parseTargetSpec(targetType model.TargetType, targetIDs []string) (targetSpec, error) {
	if len(targetIDs) == 0 {
		return targetSpec{}, ErrInvalidTarget
	}

	switch targetType {
	case model.TargetUser:
		if len(targetIDs) != 1 {
			return targetSpec{}, ErrInvalidTarget
		}
		id, err := uuid.Parse(targetIDs[0])
		if err != nil {
			return targetSpec{}, ErrInvalidTarget
		}
		return targetSpec{users: []uuid.UUID{id}}, nil

	case model.TargetMultipleUsers:
		users := make([]uuid.UUID, 0, len(targetIDs))
		for _, raw := range targetIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return targetSpec{}, ErrInvalidTarget
			}
			users = append(users, id)
		}
		return targetSpec{users: users}, nil

	case model.TargetRole:
		if len(targetIDs) != 1 {
			return targetSpec{}, ErrInvalidTarget
		}
		role := model.Role(targetIDs[0])
		switch role {
		case model.RoleAdmin, model.RoleStaff, model.RoleStudent:
			return targetSpec{role: role}, nil
		}
		return targetSpec{}, ErrInvalidTarget
	}
	return targetSpec{}, ErrInvalidTarget
}

// resolveTarget turns a parsed spec into a deduplicated set of user ids.
// An empty result is not an error; the caller takes the no-op path.
func (s *NotificationService) resolveTarget(spec targetSpec) ([]uuid.UUID, error) {
	ids := spec.users
	if spec.role != "" {
		roleIDs, err := s.userRepo.FindIDsByRole(spec.role)
		if err != nil {
			return nil, fmt.Errorf("resolve role members: %w", err)
		}
		ids = roleIDs
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	resolved := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		resolved = append(resolved, id)
	}
	return resolved, nil
}

// Dispatch runs the full fan-out pipeline for one notification: create the
// PENDING audit record, resolve the target, open PENDING delivery rows, call
// the gateway in chunks, close the rows from the per-token outcomes, retire
// terminally dead tokens, and finalize the record. Delivery failures are
// absorbed into the returned record; only validation and persistence
// failures surface as errors.
func (s *NotificationService) Dispatch(ctx context.Context, req model.DispatchRequest, senderID *uuid.UUID) (*model.Notification, error) {
	spec, err := parseTargetSpec(req.TargetType, req.TargetIDs)
	if err != nil {
		return nil, err
	}

	n := &model.Notification{
		ID:         uuid.New(),
		Title:      req.Title,
		Body:       req.Body,
		Data:       req.Data,
		ImageURL:   req.ImageURL,
		TargetType: req.TargetType,
		TargetIDs:  req.TargetIDs,
		SenderID:   senderID,
		Status:     model.StatusPending,
	}
	if err := s.notifRepo.Create(n); err != nil {
		return nil, fmt.Errorf("create notification record: %w", err)
	}

	userIDs, err := s.resolveTarget(spec)
	if err != nil {
		return nil, s.failRecord(n, err)
	}

	devices, err := s.deviceRepo.FindByUserIDs(userIDs)
	if err != nil {
		return nil, s.failRecord(n, fmt.Errorf("fetch device tokens: %w", err))
	}

	// Nobody to notify: terminal FAILED with zero delivery rows, counts 0/0
	if len(devices) == 0 {
		return s.finalize(n, model.StatusFailed, 0, 0)
	}

	rows := make([]model.DeliveryStatus, len(devices))
	tokens := make([]string, len(devices))
	for i, d := range devices {
		rows[i] = model.DeliveryStatus{
			ID:             uuid.New(),
			NotificationID: n.ID,
			TokenID:        d.ID,
			UserID:         d.UserID,
			Token:          d.Token,
			Status:         model.DeliveryPending,
		}
		tokens[i] = d.Token
	}

	// An un-auditable send is worse than no send: the gateway is never
	// called unless the PENDING rows are on disk.
	if err := s.notifRepo.CreateDeliveryStatuses(rows); err != nil {
		return nil, s.failRecord(n, fmt.Errorf("open delivery rows: %w", err))
	}

	result := s.dispatcher.Send(ctx, tokens, &push.Message{
		Title:    req.Title,
		Body:     req.Body,
		ImageURL: req.ImageURL,
		Data:     req.Data,
	})

	updates := make([]repository.DeliveryUpdate, len(result.Outcomes))
	for i, o := range result.Outcomes {
		u := repository.DeliveryUpdate{TokenID: rows[i].TokenID, Status: model.DeliverySent}
		if !o.Success {
			u.Status = model.DeliveryFailed
			u.ErrorCode = o.ErrorCode
			u.ErrorMessage = o.ErrorMessage
		}
		updates[i] = u
	}
	// Audit rows must reflect the outcome before hygiene may delete tokens
	if err := s.notifRepo.CloseDeliveries(n.ID, updates); err != nil {
		return nil, fmt.Errorf("close delivery rows: %w", err)
	}

	var dead []string
	for _, o := range result.Outcomes {
		if !o.Success && o.Class == push.ClassTerminal {
			dead = append(dead, o.Token)
		}
	}
	if len(dead) > 0 {
		if err := s.deviceRepo.DeleteByTokens(dead); err != nil {
			log.Printf("⚠️ Failed to retire %d dead tokens: %v", len(dead), err)
		}
	}

	status := model.StatusFailed
	if result.SuccessCount > 0 {
		status = model.StatusSent
	}
	return s.finalize(n, status, result.SuccessCount, result.FailureCount)
}

// finalize writes the terminal state and mirrors it onto the in-memory record
func (s *NotificationService) finalize(n *model.Notification, status model.NotificationStatus, successCount, failureCount int) (*model.Notification, error) {
	sentAt := time.Now()
	if err := s.notifRepo.Finalize(n.ID, status, successCount, failureCount, sentAt); err != nil {
		return nil, fmt.Errorf("finalize notification record: %w", err)
	}
	n.Status = status
	n.SuccessCount = successCount
	n.FailureCount = failureCount
	n.SentAt = &sentAt

	if s.events != nil {
		s.events.PublishDispatch(DispatchEvent{
			NotificationID: n.ID,
			Title:          n.Title,
			TargetType:     n.TargetType,
			Status:         status,
			SuccessCount:   successCount,
			FailureCount:   failureCount,
			SentAt:         sentAt,
		})
	}
	return n, nil
}

// failRecord closes a record that hit an infrastructure failure before any
// delivery was attempted, then propagates the original error
func (s *NotificationService) failRecord(n *model.Notification, cause error) error {
	if err := s.notifRepo.Finalize(n.ID, model.StatusFailed, 0, 0, time.Now()); err != nil {
		log.Printf("⚠️ Failed to finalize notification %s after error: %v", n.ID, err)
	}
	return cause
}

// ListHistory returns one page of the audit trail with per-record delivery
// tallies, read-only
func (s *NotificationService) ListHistory(filter model.HistoryFilter, page, limit int) (*model.HistoryResponse, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	notifications, total, err := s.notifRepo.ListHistory(filter, page, limit)
	if err != nil {
		return nil, err
	}

	items := make([]model.NotificationSummary, 0, len(notifications))
	for i := range notifications {
		count, err := s.notifRepo.CountDeliveries(notifications[i].ID)
		if err != nil {
			return nil, err
		}
		items = append(items, model.NotificationSummary{
			Notification:  notifications[i],
			DeliveryCount: count,
		})
	}

	return &model.HistoryResponse{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// GetDetail returns a record, its full delivery trail, and the users its raw
// target specification resolves to now
func (s *NotificationService) GetDetail(id uuid.UUID) (*model.NotificationDetail, error) {
	n, err := s.notifRepo.FindByID(id)
	if err != nil {
		return nil, err
	}

	var users []model.User
	switch n.TargetType {
	case model.TargetRole:
		users, err = s.userRepo.FindByRole(model.Role(n.TargetIDs[0]))
	default:
		ids := make([]uuid.UUID, 0, len(n.TargetIDs))
		for _, raw := range n.TargetIDs {
			if id, parseErr := uuid.Parse(raw); parseErr == nil {
				ids = append(ids, id)
			}
		}
		users, err = s.userRepo.FindByIDs(ids)
	}
	if err != nil {
		return nil, err
	}

	targets := make([]model.UserResponse, 0, len(users))
	for i := range users {
		targets = append(targets, users[i].ToResponse())
	}

	return &model.NotificationDetail{
		Notification: *n,
		Targets:      targets,
	}, nil
}

// GetStats aggregates the rolling window for dashboards, read-only
func (s *NotificationService) GetStats(days int) (*model.StatsResponse, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days)

	total, err := s.notifRepo.CountSince(since)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.notifRepo.CountByStatusSince(since)
	if err != nil {
		return nil, err
	}
	byTarget, err := s.notifRepo.CountByTargetTypeSince(since)
	if err != nil {
		return nil, err
	}

	return &model.StatsResponse{
		Since:        since,
		Total:        total,
		ByStatus:     byStatus,
		ByTargetType: byTarget,
	}, nil
}
