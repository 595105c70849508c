// Package storage keeps uploaded thumbnails and avatars, addressed by generated filename.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ErrNotExist is returned when no object is stored under the requested name.
var ErrNotExist = errors.New("stored file does not exist")

// ErrInvalidName is returned for names that could escape the store.
var ErrInvalidName = errors.New("invalid stored file name")

// Object is an opened stored file. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// ThumbnailStore holds uploaded image files.
type ThumbnailStore interface {
	Save(ctx context.Context, name string, data []byte, contentType string) error
	Remove(ctx context.Context, name string) error
	Open(ctx context.Context, name string) (*Object, error)
}

// Longest base name and extension, in runes, kept from an uploaded filename.
// Together with the UUID this stays well inside a 255 character column.
const (
	maxBaseRunes = 100
	maxExtRunes  = 16
)

// UniqueName derives a collision-free stored name from an uploaded filename:
// the part before the first dot, a random UUID, then the part after the last dot.
func UniqueName(original string) string {
	if i := strings.LastIndexAny(original, `/\`); i >= 0 {
		original = original[i+1:]
	}
	token := uuid.NewString()
	dot := strings.Index(original, ".")
	if dot < 0 {
		return truncateRunes(original, maxBaseRunes) + token
	}
	base := truncateRunes(original[:dot], maxBaseRunes)
	ext := truncateRunes(original[strings.LastIndex(original, ".")+1:], maxExtRunes)
	if ext == "" {
		return base + token
	}
	return base + token + "." + ext
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// validName rejects empty names and anything containing a path element.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}
