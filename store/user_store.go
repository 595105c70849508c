package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cppla/blogapi/models"
)

// GormUserStore implements UserStore on a gorm handle.
type GormUserStore struct {
	db *gorm.DB
}

// NewUserStore creates a GormUserStore.
func NewUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) Create(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *GormUserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return s.first(s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *GormUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.first(s.db.WithContext(ctx).Where("email = ?", email))
}

func (s *GormUserStore) first(q *gorm.DB) (*models.User, error) {
	var user models.User
	if err := q.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormUserStore) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *GormUserStore) Update(ctx context.Context, id uint, fields UserFields) (*models.User, error) {
	values := map[string]interface{}{}
	if fields.Name != "" {
		values["name"] = fields.Name
	}
	if fields.Email != "" {
		values["email"] = fields.Email
	}
	if fields.PasswordHash != "" {
		values["password_hash"] = fields.PasswordHash
	}
	if fields.Avatar != "" {
		values["avatar"] = fields.Avatar
	}
	if len(values) == 0 {
		return s.FindByID(ctx, id)
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *GormUserStore) IncrementPosts(ctx context.Context, id uint, delta int) error {
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id)
	if delta < 0 {
		q = q.Where("posts >= ?", -delta)
	}
	res := q.UpdateColumn("posts", gorm.Expr("posts + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
