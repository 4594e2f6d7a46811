package middlewares

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type PermissionChecker interface {
	HasPermission(ctx context.Context, userID string, perm int64) (bool, error)
}

// RequirePermission must run after LoadSession.
func RequirePermission(checker PermissionChecker, perm int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserIDFromContext(c)

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "User is not logged in",
			})
			return
		}

		allowed, err := checker.HasPermission(c.Request.Context(), userID, perm)
		if err != nil {
			slog.Default().ErrorContext(c.Request.Context(), "permission_check_failed", "user_id", userID, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    "internal_error",
				"message": "Could not check permissions",
			})
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "forbidden",
				"message": "User is not authorized",
			})
			return
		}
		c.Next()
	}
}
