package authn_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tingyu91/snsjf/internal/apperr"
	"github.com/tingyu91/snsjf/internal/auth"
	"github.com/tingyu91/snsjf/internal/authn"
	"github.com/tingyu91/snsjf/internal/credentials"
	"github.com/tingyu91/snsjf/internal/domain/user"
	"github.com/tingyu91/snsjf/internal/notifications"
	"github.com/tingyu91/snsjf/internal/repo/memory"
	"github.com/tingyu91/snsjf/internal/security"
)

const goodPassword = "Str0ng!Pass"

type captureNotifier struct {
	sent []notifications.PasswordResetInput
	err  error
}

func (c *captureNotifier) SendPasswordReset(ctx context.Context, in notifications.PasswordResetInput) error {
	c.sent = append(c.sent, in)
	return c.err
}

type fixture struct {
	svc      *authn.Service
	users    *memory.UsersRepo
	notifier *captureNotifier
	tokens   *auth.ResetTokens
}

func newFixture(t *testing.T, maxAge time.Duration) fixture {
	t.Helper()

	users := memory.NewUsersRepo()
	notifier := &captureNotifier{}
	tokens := auth.NewResetTokens("test-secret", time.Hour, "meancore")

	svc := authn.NewService(authn.Options{
		Users:          users,
		Credentials:    credentials.NewValidator(users, []string{"admin"}, security.DefaultPasswordPolicy()),
		Resets:         memory.NewResetTokensRepo(users),
		Tokens:         tokens,
		Notifier:       notifier,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		AppName:        "MeanCore",
		PasswordMaxAge: maxAge,
		ResetURL:       "http://localhost/#!/password/reset",
	})

	return fixture{svc: svc, users: users, notifier: notifier, tokens: tokens}
}

func signUpReq(username, email string) user.SignUpRequest {
	return user.SignUpRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Username:  username,
		Password:  goodPassword,
	}
}

func TestSignUp_CreatesLocalUser(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	res, err := f.svc.SignUp(ctx, signUpReq("Ada", "ada@example.com"), "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, authn.OutcomeAuthenticated, res.Outcome)

	assert.Equal(t, "ada", res.User.Username)
	assert.Equal(t, user.ProviderLocal, res.User.Provider)
	assert.Equal(t, "Ada Lovelace", res.User.DisplayName)
	assert.Equal(t, "meancore", res.User.AppName)
	assert.Equal(t, []string{"10.0.0.1"}, res.User.KnownIPAddresses)
	assert.Empty(t, res.User.Roles)
	assert.Empty(t, res.User.PasswordHash)
	assert.Empty(t, res.User.Salt)

	raw, err := json.Marshal(res.User)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), "salt")
}

func TestSignUp_CollisionSuggestsUsername(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, signUpReq("ada", "ada@example.com"), "10.0.0.1")
	require.NoError(t, err)

	res, err := f.svc.SignUp(ctx, signUpReq("ADA", "other@example.com"), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, authn.OutcomeUserExists, res.Outcome)
	assert.Equal(t, "ada1", res.PossibleUsername)

	exists, err := f.users.UsernameExists(ctx, "ada1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSignUp_Failures(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, signUpReq("ada", "ada@example.com"), "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     user.SignUpRequest
		wantMsg string
	}{
		{name: "duplicate email", req: signUpReq("grace", "ADA@example.com"), wantMsg: "Email already exists"},
		{name: "illegal username", req: signUpReq("admin", "x@example.com"), wantMsg: "Please enter a valid username: admin is not allowed"},
		{name: "weak password", req: user.SignUpRequest{FirstName: "a", LastName: "b", Email: "w@example.com", Username: "weakling", Password: "password"}, wantMsg: "password must contain at least one uppercase letter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SignUp(ctx, tt.req, "")
			require.Error(t, err)

			var fe *apperr.FlowError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, apperr.FlowSignUp, fe.Flow)
			assert.Equal(t, tt.wantMsg, apperr.Message(err))
		})
	}
}

func TestSignUp_DerivesUsernameFromEmail(t *testing.T) {
	f := newFixture(t, 0)

	res, err := f.svc.SignUp(context.Background(), signUpReq("", "Grace.Hopper@example.com"), "")
	require.NoError(t, err)
	assert.Equal(t, "grace.hopper", res.User.Username)
}

func TestSignIn(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, signUpReq("ada", "ada@example.com"), "10.0.0.1")
	require.NoError(t, err)

	t.Run("wrong secret leaves ips alone", func(t *testing.T) {
		res, err := f.svc.SignIn(ctx, user.SignInRequest{UsernameOrEmail: "ada", Password: "nope"}, "10.9.9.9")
		require.NoError(t, err)
		assert.Equal(t, authn.OutcomeInvalidSecret, res.Outcome)

		u, err := f.users.FindByUsernameOrEmail(ctx, "ada")
		require.NoError(t, err)
		assert.Equal(t, []string{"10.0.0.1"}, u.KnownIPAddresses)
	})

	t.Run("unknown user", func(t *testing.T) {
		res, err := f.svc.SignIn(ctx, user.SignInRequest{UsernameOrEmail: "ghost", Password: goodPassword}, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, authn.OutcomeInvalidSecret, res.Outcome)
	})

	t.Run("new ip appended once", func(t *testing.T) {
		res, err := f.svc.SignIn(ctx, user.SignInRequest{UsernameOrEmail: "ADA@example.com", Password: goodPassword}, "10.0.0.2")
		require.NoError(t, err)
		require.Equal(t, authn.OutcomeAuthenticated, res.Outcome)
		assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, res.User.KnownIPAddresses)
		assert.Empty(t, res.User.PasswordHash)

		res, err = f.svc.SignIn(ctx, user.SignInRequest{UsernameOrEmail: "ada", Password: goodPassword}, "10.0.0.2")
		require.NoError(t, err)
		assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, res.User.KnownIPAddresses)
	})
}

func TestSignIn_ExpiredPassword(t *testing.T) {
	f := newFixture(t, 24*time.Hour)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	hash, salt, err := security.HashPassword(goodPassword)
	require.NoError(t, err)

	_, err = f.users.Create(ctx, user.User{
		Username:          "old",
		Email:             "old@example.com",
		Provider:          user.ProviderLocal,
		PasswordHash:      hash,
		Salt:              salt,
		PasswordUpdatedAt: &old,
	})
	require.NoError(t, err)

	res, err := f.svc.SignIn(ctx, user.SignInRequest{UsernameOrEmail: "old", Password: goodPassword}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, authn.OutcomeExpiredPassword, res.Outcome)
}

func githubProfile(id string) user.Profile {
	return user.Profile{
		Provider:        "github",
		IdentifierField: "id",
		Username:        "octocat",
		Email:           "octo@example.com",
		DisplayName:     "The Octocat",
		ProviderData:    user.ProviderData{"id": id, "login": "octocat"},
	}
}

func TestLinkOAuthProfile_CreatesThenFinds(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	first, err := f.svc.LinkOAuthProfile(ctx, nil, githubProfile("42"))
	require.NoError(t, err)
	assert.Equal(t, "octocat", first.User.Username)
	assert.Equal(t, "github", first.User.Provider)
	assert.Empty(t, first.RedirectURL)

	again, err := f.svc.LinkOAuthProfile(ctx, nil, githubProfile("42"))
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, again.User.ID)
}

func TestLinkOAuthProfile_AttachesToSessionUser(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	signed, err := f.svc.SignUp(ctx, signUpReq("ada", "ada@example.com"), "")
	require.NoError(t, err)
	current := signed.User

	res, err := f.svc.LinkOAuthProfile(ctx, &current, githubProfile("42"))
	require.NoError(t, err)
	assert.Equal(t, "/#!/settings/accounts", res.RedirectURL)
	assert.True(t, res.User.LinkedTo("github"))

	_, err = f.svc.LinkOAuthProfile(ctx, &current, githubProfile("42"))
	assert.ErrorIs(t, err, apperr.ErrAlreadyConnected)

	stored, err := f.users.GetByID(ctx, current.ID)
	require.NoError(t, err)
	assert.Len(t, stored.AdditionalProvidersData, 1)

	// the linked account now signs in as ada
	found, err := f.svc.LinkOAuthProfile(ctx, nil, githubProfile("42"))
	require.NoError(t, err)
	assert.Equal(t, current.ID, found.User.ID)
}

func TestLinkOAuthProfile_MainProviderIsAlreadyConnected(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	created, err := f.svc.LinkOAuthProfile(ctx, nil, githubProfile("42"))
	require.NoError(t, err)

	_, err = f.svc.LinkOAuthProfile(ctx, &created.User, githubProfile("43"))
	assert.ErrorIs(t, err, apperr.ErrAlreadyConnected)
}

func TestUnlinkOAuthProvider(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	signed, err := f.svc.SignUp(ctx, signUpReq("ada", "ada@example.com"), "")
	require.NoError(t, err)
	current := signed.User

	_, err = f.svc.LinkOAuthProfile(ctx, &current, githubProfile("42"))
	require.NoError(t, err)

	got, err := f.svc.UnlinkOAuthProvider(ctx, current, "github")
	require.NoError(t, err)
	assert.False(t, got.LinkedTo("github"))

	again, err := f.svc.UnlinkOAuthProvider(ctx, current, "github")
	require.NoError(t, err)
	assert.Equal(t, got.ID, again.ID)

	_, err = f.svc.UnlinkOAuthProvider(ctx, current, "")
	assert.Equal(t, "Invalid provider", apperr.Message(err))
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, signUpReq("ada", "ada@example.com"), "")
	require.NoError(t, err)

	require.NoError(t, f.svc.ForgotPassword(ctx, "nobody"))
	assert.Empty(t, f.notifier.sent)

	require.NoError(t, f.svc.ForgotPassword(ctx, "ada@example.com"))
	require.Len(t, f.notifier.sent, 1)
	link := f.notifier.sent[0].ResetURL
	require.Contains(t, link, "?token=")

	// the notifier holds the only copy of the raw token
	token := tokenFromLink(t, link)

	res, err := f.svc.ResetPassword(ctx, token, "weak")
	require.NoError(t, err)
	assert.Equal(t, authn.OutcomeInvalidSecret, res.Outcome)

	res, err = f.svc.ResetPassword(ctx, "not-a-token", "N3w!Secret")
	require.NoError(t, err)
	assert.Equal(t, authn.OutcomeTokenInvalid, res.Outcome)

	res, err = f.svc.ResetPassword(ctx, token, "N3w!Secret")
	require.NoError(t, err)
	assert.Equal(t, authn.OutcomeSecretReset, res.Outcome)

	res, err = f.svc.ResetPassword(ctx, token, "An0ther!Secret")
	require.NoError(t, err)
	assert.Equal(t, authn.OutcomeTokenInvalid, res.Outcome)

	signin, err := f.svc.SignIn(ctx, user.SignInRequest{UsernameOrEmail: "ada", Password: "N3w!Secret"}, "")
	require.NoError(t, err)
	assert.Equal(t, authn.OutcomeAuthenticated, signin.Outcome)
}

func TestForgotPassword_NotifierFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	f.notifier.err = errors.New("smtp down")

	_, err := f.svc.SignUp(ctx, signUpReq("ada", "ada@example.com"), "")
	require.NoError(t, err)

	assert.NoError(t, f.svc.ForgotPassword(ctx, "ada"))
}

func TestValidateUser(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	exists, err := f.svc.ValidateUser(ctx, "ada")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.svc.SignUp(ctx, signUpReq("ada", "ada@example.com"), "")
	require.NoError(t, err)

	exists, err = f.svc.ValidateUser(ctx, "ADA")
	require.NoError(t, err)
	assert.True(t, exists)
}
