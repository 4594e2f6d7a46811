package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tingyu91/snsjf/internal/actorctx"
	"github.com/tingyu91/snsjf/internal/domain/user"
	"github.com/tingyu91/snsjf/internal/session"
)

// Keep this small interface so tests can fake it easily.
type SessionReader interface {
	Current(ctx context.Context, id string) (session.Session, error)
}

// LoadSession resolves the session cookie, if any, and stashes the session on
// the context. Requests without a valid session continue anonymously.
func LoadSession(sessions SessionReader, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cookieName)
		if err != nil || id == "" {
			c.Next()
			return
		}

		s, err := sessions.Current(c.Request.Context(), id)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				slog.Default().WarnContext(c.Request.Context(), "session_load_failed", "err", err)
			}
			c.Next()
			return
		}

		c.Set(ctxSessionKey, s)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), s.User.ID))
		c.Next()
	}
}

func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := SessionFromContext(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "User is not logged in",
			})
			return
		}
		c.Next()
	}
}

// Optional helpers so handlers don't need to know the magic keys.

func SessionFromContext(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(ctxSessionKey)
	if !ok {
		return session.Session{}, false
	}
	s, ok := v.(session.Session)
	return s, ok
}

func UserFromContext(c *gin.Context) (*user.User, bool) {
	s, ok := SessionFromContext(c)
	if !ok {
		return nil, false
	}
	u := s.User
	return &u, true
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	s, ok := SessionFromContext(c)
	if !ok || s.User.ID == "" {
		return "", false
	}
	return s.User.ID, true
}
