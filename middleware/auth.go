package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogapi/utils"
)

const (
	// ContextUserIDKey is the key used to store the authenticated user ID (uint) in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUserNameKey stores the display name inside Gin context.
	ContextUserNameKey = "user_name"
	// ContextTokenKey stores the raw bearer token, used by logout.
	ContextTokenKey = "token"
)

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			abort(ctx, utils.Unauthorized(40101, "Unauthorized. No token."))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abort(ctx, utils.Unauthorized(40102, "invalid authorization header format"))
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			abort(ctx, utils.Unauthorized(40103, "empty bearer token"))
			return
		}

		if utils.IsTokenBlacklisted(tokenString) {
			abort(ctx, utils.Unauthorized(40104, "token revoked"))
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			abort(ctx, utils.Unauthorized(40105, "Unauthorized. Invalid token."))
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUserNameKey, claims.Name)
		ctx.Set(ContextTokenKey, tokenString)
		ctx.Next()
	}
}

// UserID returns the authenticated user id set by AuthRequired.
func UserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok && id != 0
}

func abort(ctx *gin.Context, err *utils.AppError) {
	utils.Fail(ctx, err)
	ctx.Abort()
}
