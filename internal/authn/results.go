package authn

import (
	"errors"

	"github.com/tingyu91/snsjf/internal/domain/user"
)

type Outcome string

const (
	OutcomeAuthenticated   Outcome = "authenticated"
	OutcomeUserExists      Outcome = "user_exists"
	OutcomeInvalidSecret   Outcome = "invalid_secret"
	OutcomeExpiredPassword Outcome = "expired_password"
	OutcomeTokenInvalid    Outcome = "token_invalid"
	OutcomeSecretReset     Outcome = "secret_reset"
)

// ErrStrategy marks a failure inside the local credential check itself, as
// opposed to a failure persisting what it decided.
var ErrStrategy = errors.New("authentication strategy failed")

type SignUpResult struct {
	Outcome Outcome
	User    user.User
	// set when Outcome is OutcomeUserExists
	PossibleUsername string
}

type SignInResult struct {
	Outcome Outcome
	User    user.User
}

type LinkResult struct {
	User user.User
	// empty means the default landing page
	RedirectURL string
}

type ResetResult struct {
	Outcome Outcome
}
