package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogapi/middleware"
	"github.com/cppla/blogapi/services"
	"github.com/cppla/blogapi/utils"
)

// UserController handles registration, login and profile endpoints.
type UserController struct {
	users    *services.UserService
	tokenTTL time.Duration
}

// NewUserController creates a UserController.
func NewUserController(users *services.UserService, tokenTTL time.Duration) *UserController {
	return &UserController{users: users, tokenTTL: tokenTTL}
}

// Register handles local account registration with bcrypt hashing.
func (u *UserController) Register(ctx *gin.Context) {
	var req services.RegisterInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, utils.Validation(42200, "invalid request payload"))
		return
	}

	user, err := u.users.Register(ctx.Request.Context(), req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, user)
}

// Login verifies user credentials and issues a JWT.
func (u *UserController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, utils.Validation(42200, "invalid request payload"))
		return
	}

	res, err := u.users.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// Logout invalidates the token by blacklisting it until expiration.
func (u *UserController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Fail(ctx, utils.Unauthorized(40105, "Unauthorized. Invalid token."))
		return
	}

	expiresAt := time.Now().Add(u.tokenTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// GetUser returns public user info by ID.
func (u *UserController) GetUser(ctx *gin.Context) {
	user, err := u.users.GetUser(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, user)
}

// ListAuthors returns all users.
func (u *UserController) ListAuthors(ctx *gin.Context) {
	users, err := u.users.ListAuthors(ctx.Request.Context())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, users)
}

// ChangeAvatar replaces the caller's avatar with the multipart file "avatar".
func (u *UserController) ChangeAvatar(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Fail(ctx, utils.Unauthorized(40113, "unauthorized"))
		return
	}

	avatar, done, err := formUpload(ctx, "avatar")
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	defer done()

	user, err := u.users.ChangeAvatar(ctx.Request.Context(), userID, avatar)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, user)
}

// EditUser updates the caller's name, email and password.
func (u *UserController) EditUser(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Fail(ctx, utils.Unauthorized(40114, "unauthorized"))
		return
	}

	var req services.EditUserInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, utils.Validation(42200, "invalid request payload"))
		return
	}

	user, err := u.users.EditUser(ctx.Request.Context(), userID, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, user)
}
