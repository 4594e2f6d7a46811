package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware lets the configured front-end origins call the API with the
// session cookie. Preflights from any other origin are refused.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))

	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")
		_, ok := allowed[origin]

		if origin != "" {
			ctx.Header("Vary", "Origin")
		}

		if ok {
			ctx.Header("Access-Control-Allow-Origin", origin)
			ctx.Header("Access-Control-Allow-Credentials", "true")
			ctx.Header("Access-Control-Expose-Headers", "X-Request-Id")
		}

		if ctx.Request.Method != http.MethodOptions {
			ctx.Next()
			return
		}

		if origin != "" && !ok {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "origin_not_allowed",
				"message": "Origin is not allowed",
			})
			return
		}

		if ok {
			ctx.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			ctx.Header("Access-Control-Allow-Headers", "Content-Type,X-Request-Id")
			ctx.Header("Access-Control-Max-Age", "600")
		}
		ctx.AbortWithStatus(http.StatusNoContent)
	}
}
