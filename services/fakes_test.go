package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/storage"
	"github.com/cppla/blogapi/store"
)

// fakePostStore is an in-memory store.PostStore.
type fakePostStore struct {
	mu        sync.Mutex
	nextID    uint
	posts     map[uint]models.Post
	clock     time.Time
	createErr error
	updateErr error
	deleteErr error
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{posts: map[uint]models.Post{}, clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakePostStore) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fakePostStore) Create(ctx context.Context, post *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	post.ID = f.nextID
	now := f.tick()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = now
	}
	f.posts[post.ID] = *post
	return nil
}

func (f *fakePostStore) FindByID(ctx context.Context, id uint) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (f *fakePostStore) filter(keep func(models.Post) bool, less func(a, b models.Post) bool) []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Post{}
	for _, p := range f.posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byUpdated(a, b models.Post) bool { return a.UpdatedAt.After(b.UpdatedAt) }
func byCreated(a, b models.Post) bool { return a.CreatedAt.After(b.CreatedAt) }

func (f *fakePostStore) List(ctx context.Context) ([]models.Post, error) {
	return f.filter(func(models.Post) bool { return true }, byUpdated), nil
}

func (f *fakePostStore) ListByCategory(ctx context.Context, category string) ([]models.Post, error) {
	return f.filter(func(p models.Post) bool { return p.Category == category }, byUpdated), nil
}

func (f *fakePostStore) ListByCreator(ctx context.Context, creator uint) ([]models.Post, error) {
	return f.filter(func(p models.Post) bool { return p.Creator == creator }, byCreated), nil
}

func (f *fakePostStore) Update(ctx context.Context, id uint, fields store.PostFields) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	p, ok := f.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Title, p.Category, p.Description = fields.Title, fields.Category, fields.Description
	if fields.Thumbnail != "" {
		p.Thumbnail = fields.Thumbnail
	}
	p.UpdatedAt = f.tick()
	f.posts[id] = p
	return &p, nil
}

func (f *fakePostStore) Delete(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.posts, id)
	return nil
}

// fakeUserStore is an in-memory store.UserStore.
type fakeUserStore struct {
	mu           sync.Mutex
	nextID       uint
	users        map[uint]models.User
	incrementErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uint]models.User{}}
}

func (f *fakeUserStore) Create(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) List(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.User{}
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeUserStore) Update(ctx context.Context, id uint, fields store.UserFields) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if fields.Name != "" {
		u.Name = fields.Name
	}
	if fields.Email != "" {
		u.Email = fields.Email
	}
	if fields.PasswordHash != "" {
		u.PasswordHash = fields.PasswordHash
	}
	if fields.Avatar != "" {
		u.Avatar = fields.Avatar
	}
	f.users[id] = u
	return &u, nil
}

func (f *fakeUserStore) IncrementPosts(ctx context.Context, id uint, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementErr != nil {
		return f.incrementErr
	}
	u, ok := f.users[id]
	if !ok || u.Posts+delta < 0 {
		return store.ErrNotFound
	}
	u.Posts += delta
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) posts(id uint) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id].Posts
}

// fakeFiles is an in-memory storage.ThumbnailStore.
type fakeFiles struct {
	mu        sync.Mutex
	files     map[string][]byte
	saveErr   error
	removeErr error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{files: map[string][]byte{}}
}

func (f *fakeFiles) Save(ctx context.Context, name string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.files[name] = append([]byte(nil), data...)
	return nil
}

func (f *fakeFiles) Remove(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	if _, ok := f.files[name]; !ok {
		return storage.ErrNotExist
	}
	delete(f.files, name)
	return nil
}

func (f *fakeFiles) Open(ctx context.Context, name string) (*storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[name]
	if !ok {
		return nil, storage.ErrNotExist
	}
	return &storage.Object{Body: io.NopCloser(bytes.NewReader(data)), Size: int64(len(data))}, nil
}

func (f *fakeFiles) has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[name]
	return ok
}

func (f *fakeFiles) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

var errBoom = errors.New("boom")

func upload(name string, size int) *Upload {
	return &Upload{
		Filename:    name,
		Size:        int64(size),
		ContentType: "image/png",
		Body:        bytes.NewReader(bytes.Repeat([]byte{0x42}, size)),
	}
}
