package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minhngodev/campus-api/internal/model"
	"github.com/minhngodev/campus-api/internal/service"
	"gorm.io/gorm"
)

// NotificationHandler handles device registration and notification endpoints
type NotificationHandler struct {
	notifService *service.NotificationService
}

func NewNotificationHandler(notifService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifService: notifService}
}

// RegisterDevice godoc
// @Summary Register a device token for push notifications
// @Description Upsert the calling user's device token. Re-registering from the same device refreshes the existing row.
// @Tags Devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.RegisterDeviceRequest true "Device registration"
// @Success 200 {object} model.DeviceToken
// @Failure 400 {object} model.ErrorResponse
// @Router /devices [post]
func (h *NotificationHandler) RegisterDevice(c *gin.Context) {
	var req model.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	device, err := h.notifService.RegisterDevice(userID, req.Token, req.DeviceID, req.DeviceType)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDeviceType) {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to register device"})
		return
	}

	c.JSON(http.StatusOK, device)
}

// UnregisterDevice godoc
// @Summary Remove a device token
// @Description Drop one of the calling user's device tokens, typically on logout.
// @Tags Devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.UnregisterDeviceRequest true "Token to remove"
// @Success 204
// @Failure 400 {object} model.ErrorResponse
// @Router /devices [delete]
func (h *NotificationHandler) UnregisterDevice(c *gin.Context) {
	var req model.UnregisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	if err := h.notifService.UnregisterDevice(userID, req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to remove device"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Dispatch godoc
// @Summary Send a notification to a user, a role, or a list of users
// @Description Runs the full fan-out pipeline and returns the finalized record. Delivery failures are reflected in the counts, not in the HTTP status.
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.DispatchRequest true "Dispatch request"
// @Success 201 {object} model.Notification
// @Failure 400 {object} model.ErrorResponse
// @Router /notifications [post]
func (h *NotificationHandler) Dispatch(c *gin.Context) {
	var req model.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	senderID := c.MustGet("user_id").(uuid.UUID)
	n, err := h.notifService.Dispatch(c.Request.Context(), req, &senderID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTarget) {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Dispatch failed", Message: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, n)
}

// ListHistory godoc
// @Summary List notification history
// @Description Paginated audit trail, newest first. Filter by target type, involved user, and date range.
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param target_type query string false "Filter by target type (USER, ROLE, MULTIPLE_USERS)"
// @Param user_id query string false "Only records with a delivery row for this user"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} model.HistoryResponse
// @Router /notifications [get]
func (h *NotificationHandler) ListHistory(c *gin.Context) {
	var filter model.HistoryFilter

	if tt := c.Query("target_type"); tt != "" {
		targetType := model.TargetType(tt)
		if !targetType.IsValid() {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid target_type"})
			return
		}
		filter.TargetType = targetType
	}
	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid user_id"})
			return
		}
		filter.UserID = &userID
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid from timestamp"})
			return
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid to timestamp"})
			return
		}
		filter.To = &to
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	history, err := h.notifService.ListHistory(filter, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to list history"})
		return
	}

	c.JSON(http.StatusOK, history)
}

// GetDetail godoc
// @Summary Get one notification with its full delivery trail
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} model.NotificationDetail
// @Failure 404 {object} model.ErrorResponse
// @Router /notifications/{id} [get]
func (h *NotificationHandler) GetDetail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid notification ID"})
		return
	}

	detail, err := h.notifService.GetDetail(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to load notification"})
		return
	}

	c.JSON(http.StatusOK, detail)
}

// GetStats godoc
// @Summary Aggregate notification statistics
// @Description Counts by status and by target type over a rolling window.
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param days query int false "Window size in days (default 7)"
// @Success 200 {object} model.StatsResponse
// @Router /notifications/stats [get]
func (h *NotificationHandler) GetStats(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

	stats, err := h.notifService.GetStats(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
