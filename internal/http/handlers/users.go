package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tingyu91/snsjf/internal/config"
	"github.com/tingyu91/snsjf/internal/http/middlewares"
)

type PermissionLister interface {
	PermissionsFor(ctx context.Context, userID string) ([]int64, error)
}

type UsersHandler struct {
	auth     AuthService
	sessions SessionManager
	perms    PermissionLister
	timeout  time.Duration
}

func NewUsersHandler(auth AuthService, sessions SessionManager, perms PermissionLister) *UsersHandler {
	return &UsersHandler{auth: auth, sessions: sessions, perms: perms, timeout: 3 * time.Second}
}

// Me returns the session user with the permissions its roles grant.
func (h *UsersHandler) Me(ctx *gin.Context) {
	s, ok := middlewares.SessionFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "User is not logged in")
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	perms, err := h.perms.PermissionsFor(cctx, s.User.ID)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": s.User, "permissions": perms})
}

// RemoveAccount unlinks the provider named by ?provider= and refreshes the
// session with the updated user.
func (h *UsersHandler) RemoveAccount(ctx *gin.Context) {
	s, ok := middlewares.SessionFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "User is not logged in")
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	u, err := h.auth.UnlinkOAuthProvider(cctx, s.User, ctx.Query("provider"))
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	if _, err := h.sessions.Refresh(cctx, s.ID, u); err != nil {
		RespondBadRequest(ctx, "Could not refresh session", nil)
		return
	}

	ctx.JSON(http.StatusOK, u)
}
