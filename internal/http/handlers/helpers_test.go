package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tingyu91/snsjf/internal/authn"
	"github.com/tingyu91/snsjf/internal/domain/user"
	"github.com/tingyu91/snsjf/internal/oauth"
	"github.com/tingyu91/snsjf/internal/session"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuthService struct {
	validateFn func(ctx context.Context, usernameOrEmail string) (bool, error)
	signUpFn   func(ctx context.Context, req user.SignUpRequest, ip string) (authn.SignUpResult, error)
	signInFn   func(ctx context.Context, req user.SignInRequest, ip string) (authn.SignInResult, error)
	linkFn     func(ctx context.Context, current *user.User, profile user.Profile) (authn.LinkResult, error)
	unlinkFn   func(ctx context.Context, current user.User, provider string) (user.User, error)
	forgotFn   func(ctx context.Context, usernameOrEmail string) error
	resetFn    func(ctx context.Context, token, newSecret string) (authn.ResetResult, error)
}

func (f *fakeAuthService) ValidateUser(ctx context.Context, usernameOrEmail string) (bool, error) {
	if f.validateFn != nil {
		return f.validateFn(ctx, usernameOrEmail)
	}
	return false, nil
}

func (f *fakeAuthService) SignUp(ctx context.Context, req user.SignUpRequest, ip string) (authn.SignUpResult, error) {
	if f.signUpFn != nil {
		return f.signUpFn(ctx, req, ip)
	}
	return authn.SignUpResult{Outcome: authn.OutcomeAuthenticated}, nil
}

func (f *fakeAuthService) SignIn(ctx context.Context, req user.SignInRequest, ip string) (authn.SignInResult, error) {
	if f.signInFn != nil {
		return f.signInFn(ctx, req, ip)
	}
	return authn.SignInResult{Outcome: authn.OutcomeInvalidSecret}, nil
}

func (f *fakeAuthService) LinkOAuthProfile(ctx context.Context, current *user.User, profile user.Profile) (authn.LinkResult, error) {
	if f.linkFn != nil {
		return f.linkFn(ctx, current, profile)
	}
	return authn.LinkResult{}, nil
}

func (f *fakeAuthService) UnlinkOAuthProvider(ctx context.Context, current user.User, provider string) (user.User, error) {
	if f.unlinkFn != nil {
		return f.unlinkFn(ctx, current, provider)
	}
	return current, nil
}

func (f *fakeAuthService) ForgotPassword(ctx context.Context, usernameOrEmail string) error {
	if f.forgotFn != nil {
		return f.forgotFn(ctx, usernameOrEmail)
	}
	return nil
}

func (f *fakeAuthService) ResetPassword(ctx context.Context, token, newSecret string) (authn.ResetResult, error) {
	if f.resetFn != nil {
		return f.resetFn(ctx, token, newSecret)
	}
	return authn.ResetResult{Outcome: authn.OutcomeSecretReset}, nil
}

// fakeSessions keeps sessions in a map so LoadSession and the handlers see
// the same state.
type fakeSessions struct {
	byID      map[string]session.Session
	loginErr  error
	loggedOut []string
	refreshed []user.User
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: map[string]session.Session{}}
}

func (f *fakeSessions) put(id string, u user.User) {
	f.byID[id] = session.Session{ID: id, User: u, ExpiresAt: time.Now().Add(time.Hour)}
}

func (f *fakeSessions) Login(ctx context.Context, u user.User) (session.Session, error) {
	if f.loginErr != nil {
		return session.Session{}, f.loginErr
	}
	id := "sess-" + u.ID
	f.put(id, u)
	return f.byID[id], nil
}

func (f *fakeSessions) Refresh(ctx context.Context, id string, u user.User) (session.Session, error) {
	f.refreshed = append(f.refreshed, u)
	f.put(id, u)
	return f.byID[id], nil
}

func (f *fakeSessions) Logout(ctx context.Context, id string) error {
	f.loggedOut = append(f.loggedOut, id)
	delete(f.byID, id)
	return nil
}

func (f *fakeSessions) Current(ctx context.Context, id string) (session.Session, error) {
	s, ok := f.byID[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return s, nil
}

type fakeStrategy struct {
	name       string
	exchangeFn func(ctx context.Context, code string) (user.Profile, error)
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) AuthCodeURL(state string) string {
	return "https://provider.test/authorize?state=" + state
}

func (f *fakeStrategy) Exchange(ctx context.Context, code string) (user.Profile, error) {
	if f.exchangeFn != nil {
		return f.exchangeFn(ctx, code)
	}
	return user.Profile{Provider: f.name, IdentifierField: "id", ProviderData: user.ProviderData{"id": "1"}}, nil
}

type fakeRegistry struct {
	strategies map[string]oauth.Strategy
}

func (f *fakeRegistry) Get(name string) (oauth.Strategy, error) {
	s, ok := f.strategies[name]
	if !ok {
		return nil, oauth.ErrUnknownProvider
	}
	return s, nil
}

func doJSON(r http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func bodyContains(w *httptest.ResponseRecorder, s string) bool {
	return strings.Contains(w.Body.String(), s)
}
