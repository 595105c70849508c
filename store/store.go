// Package store persists posts and users through gorm.
package store

import (
	"context"
	"errors"

	"github.com/cppla/blogapi/models"
)

// ErrNotFound is returned when the addressed record does not exist.
var ErrNotFound = errors.New("record not found")

// PostFields holds the mutable columns of a post. An empty Thumbnail leaves the column untouched.
type PostFields struct {
	Title       string
	Category    string
	Description string
	Thumbnail   string
}

// PostStore is the persistent collection of posts.
type PostStore interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id uint) (*models.Post, error)
	// List returns every post, most recently updated first.
	List(ctx context.Context) ([]models.Post, error)
	// ListByCategory returns posts of one category, most recently updated first.
	ListByCategory(ctx context.Context, category string) ([]models.Post, error)
	// ListByCreator returns posts of one author, most recently created first.
	ListByCreator(ctx context.Context, creator uint) ([]models.Post, error)
	Update(ctx context.Context, id uint, fields PostFields) (*models.Post, error)
	Delete(ctx context.Context, id uint) error
}

// UserFields holds the mutable profile columns of a user. Empty values leave columns untouched.
type UserFields struct {
	Name         string
	Email        string
	PasswordHash string
	Avatar       string
}

// UserStore is the persistent collection of users.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id uint, fields UserFields) (*models.User, error)
	// IncrementPosts adds delta to the post counter in one statement; the counter never drops below zero.
	IncrementPosts(ctx context.Context, id uint, delta int) error
}
