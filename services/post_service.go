// Package services holds the post and user workflows on top of injected stores.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/storage"
	"github.com/cppla/blogapi/store"
	"github.com/cppla/blogapi/utils"
)

// MinDescriptionLength is the shortest description accepted when editing a post.
const MinDescriptionLength = 12

// PostInput carries the text fields of a create or edit request.
type PostInput struct {
	Title       string
	Category    string
	Description string
}

// DeleteResult confirms a deleted post.
type DeleteResult struct {
	ID      uint   `json:"id"`
	Message string `json:"message"`
}

// PostService creates, reads, edits and deletes posts and keeps their thumbnails and
// the authors' post counters in line.
type PostService struct {
	posts     store.PostStore
	users     store.UserStore
	thumbs    storage.ThumbnailStore
	processor storage.Processor
	maxBytes  int64
}

// NewPostService wires a PostService. maxBytes bounds thumbnail uploads.
func NewPostService(posts store.PostStore, users store.UserStore, thumbs storage.ThumbnailStore, processor storage.Processor, maxBytes int64) *PostService {
	if processor == nil {
		processor = storage.Passthrough{}
	}
	return &PostService{posts: posts, users: users, thumbs: thumbs, processor: processor, maxBytes: maxBytes}
}

// Create validates the input, stores the thumbnail and records the post for the requester.
func (s *PostService) Create(ctx context.Context, requester uint, in PostInput, thumbnail *Upload) (*models.Post, error) {
	in = trimPostInput(in)
	missing := utils.Validation(42201, "Fill in all fields and choose thumbnail.")
	if in.Title == "" || in.Category == "" || in.Description == "" || thumbnail == nil {
		return nil, missing
	}
	if !models.ValidCategory(in.Category) {
		return nil, utils.Validation(42202, "Invalid category.")
	}
	if in = sanitizePostInput(in); in.Title == "" || in.Description == "" {
		return nil, missing
	}

	name, err := s.storeThumbnail(ctx, thumbnail)
	if err != nil {
		return nil, err
	}

	post := models.Post{
		Title:       in.Title,
		Category:    in.Category,
		Description: in.Description,
		Thumbnail:   name,
		Creator:     requester,
	}
	if err := s.posts.Create(ctx, &post); err != nil {
		s.discard(ctx, name)
		return nil, utils.Unhandled(50013, "Post couldn't be created.", err)
	}

	s.adjustPostCount(ctx, requester, 1)
	return &post, nil
}

// List returns every post, most recently updated first.
func (s *PostService) List(ctx context.Context) ([]models.Post, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, utils.Unhandled(50014, "failed to list posts", err)
	}
	return posts, nil
}

// Get returns one post.
func (s *PostService) Get(ctx context.Context, rawID string) (*models.Post, error) {
	id, err := parseID(rawID, postNotFound(), postNotFound())
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// ListByCategory returns the posts of one category, most recently updated first.
func (s *PostService) ListByCategory(ctx context.Context, category string) ([]models.Post, error) {
	posts, err := s.posts.ListByCategory(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, utils.Unhandled(50015, "failed to list posts", err)
	}
	return posts, nil
}

// ListByCreator returns the posts of one author, most recently created first.
func (s *PostService) ListByCreator(ctx context.Context, rawUserID string) ([]models.Post, error) {
	invalid := utils.BadRequest(40002, "Invalid user id.")
	userID, err := parseID(rawUserID, invalid, invalid)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListByCreator(ctx, userID)
	if err != nil {
		return nil, utils.Unhandled(50016, "failed to list posts", err)
	}
	return posts, nil
}

// Edit updates the text fields of a post owned by requester and, when a new thumbnail is
// given, swaps the stored file. The previous file is removed only after the record points
// at the new one; failing to remove it is logged, not returned.
func (s *PostService) Edit(ctx context.Context, requester uint, rawID string, in PostInput, thumbnail *Upload) (*models.Post, error) {
	in = trimPostInput(in)
	missing := utils.Validation(42203, "Fill in all fields.")
	if in.Title == "" || in.Category == "" {
		return nil, missing
	}
	if utf8.RuneCountInString(in.Description) < MinDescriptionLength {
		return nil, utils.Validation(42204, fmt.Sprintf("Description must be at least %d characters.", MinDescriptionLength))
	}
	if !models.ValidCategory(in.Category) {
		return nil, utils.Validation(42202, "Invalid category.")
	}
	if in = sanitizePostInput(in); in.Title == "" || in.Description == "" {
		return nil, missing
	}

	id, err := parseID(rawID, postUnavailable(), postNotFound())
	if err != nil {
		return nil, err
	}
	old, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if old.Creator != requester {
		return nil, utils.Forbidden(40301, "You can't update other users' posts.")
	}

	fields := store.PostFields{Title: in.Title, Category: in.Category, Description: in.Description}
	if thumbnail == nil {
		updated, err := s.posts.Update(ctx, id, fields)
		if err != nil {
			return nil, updateFailed(err)
		}
		return updated, nil
	}

	name, err := s.storeThumbnail(ctx, thumbnail)
	if err != nil {
		return nil, err
	}
	fields.Thumbnail = name
	updated, err := s.posts.Update(ctx, id, fields)
	if err != nil {
		s.discard(ctx, name)
		return nil, updateFailed(err)
	}
	s.discard(ctx, old.Thumbnail)
	return updated, nil
}

// Delete removes a post owned by requester together with its thumbnail.
func (s *PostService) Delete(ctx context.Context, requester uint, rawID string) (*DeleteResult, error) {
	id, err := parseID(rawID, postUnavailable(), postNotFound())
	if err != nil {
		return nil, err
	}
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Creator != requester {
		return nil, utils.Forbidden(40302, "You can't delete other users' posts.")
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, postNotFound()
		}
		return nil, utils.Unhandled(50017, "Post couldn't be deleted.", err)
	}
	s.discard(ctx, post.Thumbnail)
	s.adjustPostCount(ctx, requester, -1)

	return &DeleteResult{ID: id, Message: fmt.Sprintf("Post %d deleted successfully.", id)}, nil
}

func (s *PostService) load(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, postNotFound()
		}
		return nil, utils.Unhandled(50018, "failed to load post", err)
	}
	return post, nil
}

// storeThumbnail enforces the size limit and persists the upload under a fresh unique name.
func (s *PostService) storeThumbnail(ctx context.Context, thumbnail *Upload) (string, error) {
	tooLarge := utils.PayloadTooLarge(41301, fmt.Sprintf("Thumbnail too big. File should be less than %s.", humanBytes(s.maxBytes)))
	data, err := readUpload(thumbnail, s.maxBytes, tooLarge)
	if err != nil {
		return "", err
	}
	data, err = s.processor.Process(data, thumbnail.Filename)
	if err != nil {
		return "", utils.Storage(50011, "Couldn't process thumbnail.", err)
	}
	name := storage.UniqueName(thumbnail.Filename)
	if err := s.thumbs.Save(ctx, name, data, contentTypeOf(thumbnail)); err != nil {
		return "", utils.Storage(50012, "Couldn't store thumbnail.", err)
	}
	return name, nil
}

// discard removes a stored thumbnail, logging failures. Orphaned files are tolerated.
func (s *PostService) discard(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.thumbs.Remove(ctx, name); err != nil {
		utils.Sugar.Warnw("thumbnail removal failed", "thumbnail", name, "err", err)
	}
}

// adjustPostCount is best-effort: the post itself already succeeded.
func (s *PostService) adjustPostCount(ctx context.Context, userID uint, delta int) {
	if err := s.users.IncrementPosts(ctx, userID, delta); err != nil {
		utils.Sugar.Warnw("post counter update failed", "user_id", userID, "delta", delta, "err", err)
	}
}

// trimPostInput prepares the fields for validation, which counts what the client typed.
func trimPostInput(in PostInput) PostInput {
	return PostInput{
		Title:       strings.TrimSpace(in.Title),
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
	}
}

// sanitizePostInput strips markup from the title and unsafe markup from the description.
// Plain text comes back unchanged.
func sanitizePostInput(in PostInput) PostInput {
	in.Title = strings.TrimSpace(utils.SanitizePlain(in.Title))
	in.Description = strings.TrimSpace(utils.Sanitize(in.Description))
	return in
}

func updateFailed(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return postNotFound()
	}
	return utils.Unhandled(50019, "Couldn't update post.", err)
}

func postNotFound() *utils.AppError {
	return utils.NotFound(40401, "Post not found.")
}

func postUnavailable() *utils.AppError {
	return utils.BadRequest(40001, "Post unavailable.")
}
