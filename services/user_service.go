package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/storage"
	"github.com/cppla/blogapi/store"
	"github.com/cppla/blogapi/utils"
)

// MinPasswordLength is the shortest password accepted at registration and on change.
const MinPasswordLength = 6

// RegisterInput is a new account request.
type RegisterInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// EditUserInput changes the profile and password of the requester.
type EditUserInput struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	CurrentPassword    string `json:"currentPassword"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token string `json:"token"`
	ID    uint   `json:"id"`
	Name  string `json:"name"`
}

// UserService manages accounts and avatars.
type UserService struct {
	users     store.UserStore
	avatars   storage.ThumbnailStore
	processor storage.Processor
	maxBytes  int64
	tokenTTL  time.Duration
}

// NewUserService wires a UserService. maxBytes bounds avatar uploads.
func NewUserService(users store.UserStore, avatars storage.ThumbnailStore, processor storage.Processor, maxBytes int64, tokenTTL time.Duration) *UserService {
	if processor == nil {
		processor = storage.Passthrough{}
	}
	return &UserService{users: users, avatars: avatars, processor: processor, maxBytes: maxBytes, tokenTTL: tokenTTL}
}

// Register creates an account with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(utils.SanitizePlain(in.Name))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || in.Password == "" {
		return nil, utils.Validation(42210, "Fill in all fields.")
	}
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(in.Password)) < MinPasswordLength {
		return nil, utils.Validation(42212, fmt.Sprintf("Password should be at least %d characters.", MinPasswordLength))
	}
	if in.Password != in.Password2 {
		return nil, utils.Validation(42213, "Passwords do not match.")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, utils.Unhandled(50020, "failed to hash password", err)
	}
	user := models.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, &user); err != nil {
		return nil, utils.Unhandled(50021, "User registration failed.", err)
	}
	return &user, nil
}

// Login verifies credentials and issues a JWT.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, utils.Validation(42214, "Fill in all fields.")
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, utils.Validation(42215, "Invalid credentials.")
		}
		return nil, utils.Unhandled(50022, "failed to load user", err)
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, utils.Validation(42215, "Invalid credentials.")
	}

	token, err := utils.GenerateToken(user.ID, user.Name, s.tokenTTL)
	if err != nil {
		return nil, utils.Unhandled(50023, "failed to generate token", err)
	}
	return &LoginResult{Token: token, ID: user.ID, Name: user.Name}, nil
}

// GetUser returns one user.
func (s *UserService) GetUser(ctx context.Context, rawID string) (*models.User, error) {
	id, err := parseID(rawID, userNotFound(), userNotFound())
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// ListAuthors returns every user, newest first.
func (s *UserService) ListAuthors(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, utils.Unhandled(50024, "failed to list users", err)
	}
	return users, nil
}

// ChangeAvatar stores a new avatar for requester and removes the previous one.
func (s *UserService) ChangeAvatar(ctx context.Context, requester uint, avatar *Upload) (*models.User, error) {
	if avatar == nil {
		return nil, utils.Validation(42216, "Please choose an image.")
	}
	user, err := s.load(ctx, requester)
	if err != nil {
		return nil, err
	}

	tooLarge := utils.PayloadTooLarge(41302, fmt.Sprintf("Profile picture too big. Should be less than %s.", humanBytes(s.maxBytes)))
	data, err := readUpload(avatar, s.maxBytes, tooLarge)
	if err != nil {
		return nil, err
	}
	data, err = s.processor.Process(data, avatar.Filename)
	if err != nil {
		return nil, utils.Storage(50025, "Couldn't process avatar.", err)
	}
	name := storage.UniqueName(avatar.Filename)
	if err := s.avatars.Save(ctx, name, data, contentTypeOf(avatar)); err != nil {
		return nil, utils.Storage(50026, "Couldn't store avatar.", err)
	}

	updated, err := s.users.Update(ctx, requester, store.UserFields{Avatar: name})
	if err != nil {
		s.discard(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			return nil, userNotFound()
		}
		return nil, utils.Unhandled(50027, "Avatar couldn't be changed.", err)
	}
	s.discard(ctx, user.Avatar)
	return updated, nil
}

// EditUser changes name, email and password of requester after checking the current password.
func (s *UserService) EditUser(ctx context.Context, requester uint, in EditUserInput) (*models.User, error) {
	name := strings.TrimSpace(utils.SanitizePlain(in.Name))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || in.CurrentPassword == "" || in.NewPassword == "" {
		return nil, utils.Validation(42217, "Fill in all fields.")
	}

	user, err := s.load(ctx, requester)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email, requester); err != nil {
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, in.CurrentPassword) {
		return nil, utils.Validation(42219, "Invalid current password.")
	}
	if in.NewPassword != in.ConfirmNewPassword {
		return nil, utils.Validation(42220, "New passwords do not match.")
	}
	if len(strings.TrimSpace(in.NewPassword)) < MinPasswordLength {
		return nil, utils.Validation(42212, fmt.Sprintf("Password should be at least %d characters.", MinPasswordLength))
	}

	hash, err := utils.HashPassword(in.NewPassword)
	if err != nil {
		return nil, utils.Unhandled(50020, "failed to hash password", err)
	}
	updated, err := s.users.Update(ctx, requester, store.UserFields{Name: name, Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, userNotFound()
		}
		return nil, utils.Unhandled(50028, "Couldn't update user.", err)
	}
	return updated, nil
}

// ensureEmailFree fails when email belongs to a user other than owner.
func (s *UserService) ensureEmailFree(ctx context.Context, email string, owner uint) error {
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return utils.Unhandled(50022, "failed to load user", err)
	case existing.ID != owner:
		return utils.Validation(42211, "Email already exists.")
	}
	return nil
}

func (s *UserService) load(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, userNotFound()
		}
		return nil, utils.Unhandled(50022, "failed to load user", err)
	}
	return user, nil
}

func (s *UserService) discard(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.avatars.Remove(ctx, name); err != nil {
		utils.Sugar.Warnw("avatar removal failed", "avatar", name, "err", err)
	}
}

func userNotFound() *utils.AppError {
	return utils.NotFound(40410, "User not found.")
}
