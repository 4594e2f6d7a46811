package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tingyu91/snsjf/internal/apperr"
	"github.com/tingyu91/snsjf/internal/authn"
	"github.com/tingyu91/snsjf/internal/config"
	"github.com/tingyu91/snsjf/internal/domain/user"
	"github.com/tingyu91/snsjf/internal/http/middlewares"
	"github.com/tingyu91/snsjf/internal/oauth"
	"github.com/tingyu91/snsjf/internal/security"
	"github.com/tingyu91/snsjf/internal/session"
)

const signInPage = "/#!/signin"

type AuthService interface {
	ValidateUser(ctx context.Context, usernameOrEmail string) (bool, error)
	SignUp(ctx context.Context, req user.SignUpRequest, ip string) (authn.SignUpResult, error)
	SignIn(ctx context.Context, req user.SignInRequest, ip string) (authn.SignInResult, error)
	LinkOAuthProfile(ctx context.Context, current *user.User, profile user.Profile) (authn.LinkResult, error)
	UnlinkOAuthProvider(ctx context.Context, current user.User, provider string) (user.User, error)
	ForgotPassword(ctx context.Context, usernameOrEmail string) error
	ResetPassword(ctx context.Context, token, newSecret string) (authn.ResetResult, error)
}

type SessionManager interface {
	Login(ctx context.Context, u user.User) (session.Session, error)
	Refresh(ctx context.Context, id string, u user.User) (session.Session, error)
	Logout(ctx context.Context, id string) error
}

type StrategyRegistry interface {
	Get(name string) (oauth.Strategy, error)
}

type AuthHandler struct {
	auth     AuthService
	sessions SessionManager
	oauth    StrategyRegistry
	cookies  CookieConfig
	timeout  time.Duration
}

func NewAuthHandler(auth AuthService, sessions SessionManager, strategies StrategyRegistry, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		sessions: sessions,
		oauth:    strategies,
		cookies:  cookies,
		timeout:  3 * time.Second,
	}
}

func (h *AuthHandler) Validate(ctx *gin.Context) {
	var req user.ValidateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	exists, err := h.auth.ValidateUser(cctx, req.UsernameOrEmail)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"userExists": exists})
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req user.SignUpRequest

	// roles are never client-settable
	if !BindJSONWithout(ctx, &req, "roles") {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	res, err := h.auth.SignUp(cctx, req, ctx.ClientIP())
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	if res.Outcome == authn.OutcomeUserExists {
		ctx.JSON(http.StatusOK, gin.H{
			"userExists":       true,
			"possibleUsername": res.PossibleUsername,
		})
		return
	}

	if !h.login(ctx, cctx, res.User) {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": res.User})
}

func (h *AuthHandler) SignIn(ctx *gin.Context) {
	var req user.SignInRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	res, err := h.auth.SignIn(cctx, req, ctx.ClientIP())
	if err != nil {
		if errors.Is(err, authn.ErrStrategy) {
			ctx.JSON(http.StatusBadRequest, gin.H{"err": apperr.Message(err)})
			return
		}
		RespondAppError(ctx, err)
		return
	}

	switch res.Outcome {
	case authn.OutcomeInvalidSecret:
		ctx.JSON(http.StatusOK, gin.H{"invalidSecret": true})
		return
	case authn.OutcomeExpiredPassword:
		ctx.JSON(http.StatusOK, gin.H{"expiredPassword": true})
		return
	}

	if !h.login(ctx, cctx, res.User) {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": res.User})
}

func (h *AuthHandler) SignOut(ctx *gin.Context) {
	id, err := ctx.Cookie(h.cookies.SessionName)

	if err == nil && id != "" {
		cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
		defer cancel()

		// the cookie goes away regardless
		if err := h.sessions.Logout(cctx, id); err != nil {
			slog.Default().WarnContext(ctx.Request.Context(), "session_logout_failed", "err", err)
		}
	}

	h.cookies.clearSession(ctx)
	RespondMessage(ctx, http.StatusOK, "You are now logged out of the system")
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req user.ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	if err := h.auth.ForgotPassword(cctx, req.UsernameOrEmail); err != nil {
		RespondAppError(ctx, err)
		return
	}

	RespondMessage(ctx, http.StatusOK, "If the account exists, a reset link has been sent")
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var req user.ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	res, err := h.auth.ResetPassword(cctx, req.Token, req.NewPassword)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	switch res.Outcome {
	case authn.OutcomeInvalidSecret:
		ctx.JSON(http.StatusOK, gin.H{"invalidSecret": true})
	case authn.OutcomeTokenInvalid:
		ctx.JSON(http.StatusOK, gin.H{"tokenInvalid": true})
	default:
		ctx.JSON(http.StatusOK, gin.H{"secretReset": true})
	}
}

// OAuthStart redirects to the provider's consent page.
func (h *AuthHandler) OAuthStart(ctx *gin.Context) {
	strategy, err := h.oauth.Get(ctx.Param("provider"))
	if err != nil {
		RespondNotFound(ctx, "Unknown provider")
		return
	}

	state, err := oauth.NewState()
	if err != nil {
		RespondInternal(ctx, "Could not start sign in")
		return
	}

	h.cookies.setState(ctx, state)
	ctx.Redirect(http.StatusFound, strategy.AuthCodeURL(state))
}

// OAuthCallback finishes the provider round trip. Every failure lands back on
// the sign in page.
func (h *AuthHandler) OAuthCallback(ctx *gin.Context) {
	strategy, err := h.oauth.Get(ctx.Param("provider"))
	if err != nil {
		ctx.Redirect(http.StatusFound, signInPage)
		return
	}

	state, _ := ctx.Cookie(oauthStateCookie)
	h.cookies.clearState(ctx)

	if state == "" || !security.ConstantTimeEqual(state, ctx.Query("state")) {
		ctx.Redirect(http.StatusFound, signInPage)
		return
	}

	code := ctx.Query("code")
	if code == "" || ctx.Query("error") != "" {
		ctx.Redirect(http.StatusFound, signInPage)
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()

	profile, err := strategy.Exchange(cctx, code)
	if err != nil {
		slog.Default().WarnContext(ctx.Request.Context(), "oauth_exchange_failed", "provider", strategy.Name(), "err", err)
		ctx.Redirect(http.StatusFound, signInPage)
		return
	}

	current, _ := middlewares.UserFromContext(ctx)

	res, err := h.auth.LinkOAuthProfile(cctx, current, profile)
	if err != nil {
		ctx.Redirect(http.StatusFound, signInPage+"?err="+url.QueryEscape(apperr.Message(err)))
		return
	}

	if s, ok := middlewares.SessionFromContext(ctx); ok {
		if _, err := h.sessions.Refresh(cctx, s.ID, res.User); err != nil {
			ctx.Redirect(http.StatusFound, signInPage)
			return
		}
	} else {
		h.dropPreviousSession(ctx, cctx)

		s, err := h.sessions.Login(cctx, res.User)
		if err != nil {
			ctx.Redirect(http.StatusFound, signInPage)
			return
		}
		h.cookies.setSession(ctx, s.ID, time.Until(s.ExpiresAt))
	}

	redirect := res.RedirectURL
	if redirect == "" {
		redirect = "/"
	}
	ctx.Redirect(http.StatusFound, redirect)
}

func (h *AuthHandler) login(ctx *gin.Context, cctx context.Context, u user.User) bool {
	h.dropPreviousSession(ctx, cctx)

	s, err := h.sessions.Login(cctx, u)
	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "session_login_failed", "user_id", u.ID, "err", err)
		RespondBadRequest(ctx, "Could not establish session", nil)
		return false
	}

	h.cookies.setSession(ctx, s.ID, time.Until(s.ExpiresAt))
	return true
}

// dropPreviousSession ends whatever session the request cookie names, so a
// fresh login never leaves the old id live until its TTL.
func (h *AuthHandler) dropPreviousSession(ctx *gin.Context, cctx context.Context) {
	id, err := ctx.Cookie(h.cookies.SessionName)
	if err != nil || id == "" {
		return
	}

	if err := h.sessions.Logout(cctx, id); err != nil {
		slog.Default().WarnContext(ctx.Request.Context(), "session_logout_failed", "err", err)
	}
}
