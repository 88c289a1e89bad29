package repository

import (
	"github.com/google/uuid"
	"github.com/minhngodev/campus-api/internal/model"
	"gorm.io/gorm"
)

// DeviceRepository owns the device token table. It stays deliberately thin:
// the upsert resolution order lives in the service layer, built on these
// primitives, so it can be exercised without a database.
type DeviceRepository interface {
	FindByUserAndDevice(userID uuid.UUID, deviceID string) (*model.DeviceToken, error)
	FindByUserAndToken(userID uuid.UUID, token string) (*model.DeviceToken, error)
	Create(device *model.DeviceToken) error
	Save(device *model.DeviceToken) error
	FindByUserIDs(userIDs []uuid.UUID) ([]model.DeviceToken, error)
	DeleteByTokens(tokens []string) error
	DeleteByUserAndToken(userID uuid.UUID, token string) error
	DeleteByUser(userID uuid.UUID) error
}

type deviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

// FindByUserAndDevice finds the row registered for one of a user's devices
func (r *deviceRepository) FindByUserAndDevice(userID uuid.UUID, deviceID string) (*model.DeviceToken, error) {
	var device model.DeviceToken
	err := r.db.Where("user_id = ? AND device_id = ?", userID, deviceID).First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// FindByUserAndToken finds a user's row carrying the given token value
func (r *deviceRepository) FindByUserAndToken(userID uuid.UUID, token string) (*model.DeviceToken, error) {
	var device model.DeviceToken
	err := r.db.Where("user_id = ? AND token = ?", userID, token).First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// Create inserts a new device token row
func (r *deviceRepository) Create(device *model.DeviceToken) error {
	return r.db.Create(device).Error
}

// Save persists all fields of an existing row
func (r *deviceRepository) Save(device *model.DeviceToken) error {
	return r.db.Save(device).Error
}

// FindByUserIDs returns every registered device for the given users
func (r *deviceRepository) FindByUserIDs(userIDs []uuid.UUID) ([]model.DeviceToken, error) {
	devices := []model.DeviceToken{}
	if len(userIDs) == 0 {
		return devices, nil
	}
	err := r.db.Where("user_id IN ?", userIDs).Find(&devices).Error
	return devices, err
}

// DeleteByTokens retires tokens in one batch, used by token hygiene after
// the gateway reports them permanently invalid
func (r *deviceRepository) DeleteByTokens(tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.db.Where("token IN ?", tokens).Delete(&model.DeviceToken{}).Error
}

// DeleteByUserAndToken removes one registration, used on logout
func (r *deviceRepository) DeleteByUserAndToken(userID uuid.UUID, token string) error {
	return r.db.Where("user_id = ? AND token = ?", userID, token).Delete(&model.DeviceToken{}).Error
}

// DeleteByUser removes every registration a user has
func (r *deviceRepository) DeleteByUser(userID uuid.UUID) error {
	return r.db.Where("user_id = ?", userID).Delete(&model.DeviceToken{}).Error
}
