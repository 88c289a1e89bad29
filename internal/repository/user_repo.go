package repository

import (
	"github.com/google/uuid"
	"github.com/minhngodev/campus-api/internal/model"
	"gorm.io/gorm"
)

// UserRepository is the slice of the campus user store the notification
// engine consumes: identity lookups and role membership.
type UserRepository interface {
	Create(user *model.User) error
	FindByID(id uuid.UUID) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	FindByIDs(ids []uuid.UUID) ([]model.User, error)
	FindByRole(role model.Role) ([]model.User, error)
	FindIDsByRole(role model.Role) ([]uuid.UUID, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user
func (r *userRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by UUID
func (r *userRepository) FindByID(id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *userRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs returns the users matching the given ids; unknown ids are skipped
func (r *userRepository) FindByIDs(ids []uuid.UUID) ([]model.User, error) {
	users := []model.User{}
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// FindByRole returns all users holding the given role
func (r *userRepository) FindByRole(role model.Role) ([]model.User, error) {
	users := []model.User{}
	err := r.db.Where("role = ?", role).Find(&users).Error
	return users, err
}

// FindIDsByRole is the role-membership lookup used by target resolution
func (r *userRepository) FindIDsByRole(role model.Role) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.db.Model(&model.User{}).Where("role = ?", role).Pluck("id", &ids).Error
	return ids, err
}
