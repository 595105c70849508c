package models

import "time"

// Post represents a blog entry written by a user.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Category    string    `gorm:"size:32;index;not null;default:'Uncategorized'" json:"category"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Thumbnail   string    `gorm:"size:255;not null" json:"thumbnail"` // filename inside the thumbnail store
	Creator     uint      `gorm:"index;not null" json:"creator"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"index" json:"updated_at"`
}

// Categories lists the accepted post categories.
var Categories = []string{
	"Agriculture",
	"Business",
	"Education",
	"Entertainment",
	"Art",
	"Investment",
	"Uncategorized",
	"Weather",
}

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}
