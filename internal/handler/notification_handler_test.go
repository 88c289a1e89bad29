package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minhngodev/campus-api/internal/model"
	"github.com/minhngodev/campus-api/internal/repository"
	"github.com/minhngodev/campus-api/internal/service"
	"github.com/minhngodev/campus-api/pkg/push"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Stubs embed the repository interface so only the methods a test path
// actually hits need an implementation; anything else panics loudly.

type stubUserRepo struct {
	repository.UserRepository
}

type stubDeviceRepo struct {
	repository.DeviceRepository
	created *model.DeviceToken
}

func (r *stubDeviceRepo) FindByUserAndDevice(userID uuid.UUID, deviceID string) (*model.DeviceToken, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *stubDeviceRepo) FindByUserAndToken(userID uuid.UUID, token string) (*model.DeviceToken, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *stubDeviceRepo) Create(device *model.DeviceToken) error {
	r.created = device
	return nil
}

type stubNotifRepo struct {
	repository.NotificationRepository
}

func (r *stubNotifRepo) CountSince(since time.Time) (int64, error) { return 4, nil }

func (r *stubNotifRepo) CountByStatusSince(since time.Time) ([]model.StatusCount, error) {
	return []model.StatusCount{{Status: model.StatusSent, Count: 3}, {Status: model.StatusFailed, Count: 1}}, nil
}

func (r *stubNotifRepo) CountByTargetTypeSince(since time.Time) ([]model.TargetTypeCount, error) {
	return []model.TargetTypeCount{{TargetType: model.TargetRole, Count: 4}}, nil
}

type nopGateway struct{}

func (nopGateway) SendBatch(ctx context.Context, tokens []string, msg *push.Message) ([]push.TokenOutcome, error) {
	outs := make([]push.TokenOutcome, len(tokens))
	for i, token := range tokens {
		outs[i] = push.TokenOutcome{Token: token, Success: true}
	}
	return outs, nil
}

func setupRouter(devices *stubDeviceRepo) (*gin.Engine, uuid.UUID) {
	gin.SetMode(gin.TestMode)

	svc := service.NewNotificationService(
		&stubUserRepo{},
		devices,
		&stubNotifRepo{},
		push.NewDispatcher(nopGateway{}, push.Config{}),
		nil,
	)
	h := NewNotificationHandler(svc)

	userID := uuid.New()
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("role", model.RoleAdmin)
	})
	router.POST("/devices", h.RegisterDevice)
	router.POST("/notifications", h.Dispatch)
	router.GET("/notifications/stats", h.GetStats)
	return router, userID
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegisterDeviceEndpoint(t *testing.T) {
	devices := &stubDeviceRepo{}
	router, userID := setupRouter(devices)

	w := doJSON(router, http.MethodPost, "/devices", model.RegisterDeviceRequest{
		Token:      "tok-1",
		DeviceID:   "pixel-8",
		DeviceType: model.DeviceTypeAndroid,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, devices.created)
	assert.Equal(t, userID, devices.created.UserID)

	var got model.DeviceToken
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "tok-1", got.Token)
}

func TestRegisterDeviceEndpointMissingToken(t *testing.T) {
	router, _ := setupRouter(&stubDeviceRepo{})

	w := doJSON(router, http.MethodPost, "/devices", map[string]string{
		"device_id": "pixel-8",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDispatchEndpointInvalidTarget(t *testing.T) {
	router, _ := setupRouter(&stubDeviceRepo{})

	w := doJSON(router, http.MethodPost, "/notifications", model.DispatchRequest{
		TargetType: model.TargetUser,
		TargetIDs:  []string{"not-a-uuid"},
		Title:      "hi",
		Body:       "hi",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
}

func TestDispatchEndpointMissingTitle(t *testing.T) {
	router, _ := setupRouter(&stubDeviceRepo{})

	w := doJSON(router, http.MethodPost, "/notifications", map[string]interface{}{
		"target_type": "USER",
		"target_ids":  []string{uuid.NewString()},
		"body":        "hi",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	router, _ := setupRouter(&stubDeviceRepo{})

	w := doJSON(router, http.MethodGet, "/notifications/stats?days=30", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var stats model.StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(4), stats.Total)
	assert.Len(t, stats.ByStatus, 2)
}
