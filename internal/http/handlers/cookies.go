package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const oauthStateCookie = "oauth_state"

type CookieConfig struct {
	SessionName string
	Secure      bool
	StateTTL    time.Duration
}

// Lax so the session and the oauth state survive the provider's redirect
// back to the callback.
func (c CookieConfig) setSession(ctx *gin.Context, id string, maxAge time.Duration) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(c.SessionName, id, int(maxAge.Seconds()), "/", "", c.Secure, true)
}

func (c CookieConfig) clearSession(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(c.SessionName, "", -1, "/", "", c.Secure, true)
}

func (c CookieConfig) setState(ctx *gin.Context, state string) {
	ttl := c.StateTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(oauthStateCookie, state, int(ttl.Seconds()), "/api/auth", "", c.Secure, true)
}

func (c CookieConfig) clearState(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(oauthStateCookie, "", -1, "/api/auth", "", c.Secure, true)
}
