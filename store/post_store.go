package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cppla/blogapi/models"
)

// GormPostStore implements PostStore on a gorm handle.
type GormPostStore struct {
	db *gorm.DB
}

// NewPostStore creates a GormPostStore.
func NewPostStore(db *gorm.DB) *GormPostStore {
	return &GormPostStore{db: db}
}

func (s *GormPostStore) Create(ctx context.Context, post *models.Post) error {
	return s.db.WithContext(ctx).Create(post).Error
}

func (s *GormPostStore) FindByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (s *GormPostStore) List(ctx context.Context) ([]models.Post, error) {
	return s.find(s.db.WithContext(ctx).Order("updated_at DESC, id DESC"))
}

func (s *GormPostStore) ListByCategory(ctx context.Context, category string) ([]models.Post, error) {
	return s.find(s.db.WithContext(ctx).Where("category = ?", category).Order("updated_at DESC, id DESC"))
}

func (s *GormPostStore) ListByCreator(ctx context.Context, creator uint) ([]models.Post, error) {
	return s.find(s.db.WithContext(ctx).Where("creator = ?", creator).Order("created_at DESC, id DESC"))
}

func (s *GormPostStore) find(q *gorm.DB) ([]models.Post, error) {
	posts := []models.Post{}
	if err := q.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *GormPostStore) Update(ctx context.Context, id uint, fields PostFields) (*models.Post, error) {
	values := map[string]interface{}{
		"title":       fields.Title,
		"category":    fields.Category,
		"description": fields.Description,
	}
	if fields.Thumbnail != "" {
		values["thumbnail"] = fields.Thumbnail
	}

	res := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *GormPostStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
