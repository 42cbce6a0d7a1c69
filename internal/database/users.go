package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/emilythestrangee/readit/backend/internal/models"
)

// UserStore is the identity store.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) FindByID(ctx context.Context, id int) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *UserStore) exists(ctx context.Context, column, value string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where(fmt.Sprintf("%s = ?", column), value).
		Count(&count).Error
	return count > 0, err
}

func (s *UserStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "email", email)
}

func (s *UserStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "username", username)
}

// Create inserts user. A unique violation on email or username surfaces as
// an error satisfying IsUniqueViolation.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}
