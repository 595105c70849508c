package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
)

// Local stores files in a directory on the local filesystem.
type Local struct {
	dir string
}

// NewLocal creates the directory if needed and returns a Local store rooted at it.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Local{dir: dir}, nil
}

// Dir returns the root directory.
func (l *Local) Dir() string { return l.dir }

// Path returns the filesystem path for name.
func (l *Local) Path(name string) string { return filepath.Join(l.dir, name) }

// Save writes data through a temp file and renames it into place, so readers never see partial files.
func (l *Local) Save(ctx context.Context, name string, data []byte, contentType string) error {
	if !validName(name) {
		return ErrInvalidName
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), l.Path(name)); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (l *Local) Remove(ctx context.Context, name string) error {
	if !validName(name) {
		return ErrInvalidName
	}
	if err := os.Remove(l.Path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotExist
		}
		return err
	}
	return nil
}

func (l *Local) Open(ctx context.Context, name string) (*Object, error) {
	if !validName(name) {
		return nil, ErrInvalidName
	}
	f, err := os.Open(l.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, ErrNotExist
	}
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Object{Body: f, Size: info.Size(), ContentType: contentType}, nil
}
