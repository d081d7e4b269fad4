package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskflow/internal/auth"
	"github.com/monocle-dev/taskflow/internal/models"
	"github.com/monocle-dev/taskflow/internal/types"
	"gorm.io/gorm"
)

const TokenCookie = "token"

func unauthorized(ctx *gin.Context, message string) {
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": message})
}

func bearerToken(ctx *gin.Context) (string, bool) {
	authHeader := ctx.GetHeader("Authorization")

	if authHeader == "" {
		if cookie, err := ctx.Cookie(TokenCookie); err == nil && cookie != "" {
			return cookie, true
		}
		unauthorized(ctx, "Authorization token is required")
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)

	if len(parts) != 2 || parts[0] != "Bearer" {
		unauthorized(ctx, "Authorization header format must be Bearer {token}")
		return "", false
	}

	return parts[1], true
}

// AuthMiddleware resolves the caller from a bearer token (or the token
// cookie) and reloads the user, so role and company changes apply at once.
func AuthMiddleware(tokens *auth.Tokens, conn *gorm.DB, log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, ok := bearerToken(ctx)
		if !ok {
			return
		}

		claims, err := tokens.Verify(tokenString)
		if err != nil {
			unauthorized(ctx, "Invalid or expired token")
			return
		}

		var user models.User

		if err := conn.WithContext(ctx.Request.Context()).Where("id = ?", claims.UserID).First(&user).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Error("load authenticated user", "user_id", claims.UserID, "error", err)
			}
			unauthorized(ctx, "User not found")
			return
		}

		if !user.IsActive {
			unauthorized(ctx, "Account is disabled")
			return
		}

		identity := types.Identity{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		}
		if user.CompanyID != nil {
			identity.CompanyID = *user.CompanyID
		}

		ctx.Set(types.ContextUserKey, identity)
		ctx.Next()
	}
}

// RequireRoles must run after AuthMiddleware.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		value, _ := ctx.Get(types.ContextUserKey)
		identity, ok := value.(types.Identity)

		if !ok {
			unauthorized(ctx, "User not authenticated")
			return
		}

		for _, role := range roles {
			if identity.Role == role {
				ctx.Next()
				return
			}
		}

		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Not authorized to access this resource"})
	}
}
