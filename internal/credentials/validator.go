// Package credentials answers "does this identity exist" and "is this name or
// secret acceptable" for the auth flows.
package credentials

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/tingyu91/snsjf/internal/apperr"
	"github.com/tingyu91/snsjf/internal/domain/user"
	"github.com/tingyu91/snsjf/internal/security"
)

const (
	maxSuffixProbes = 50
	maxRandomProbes = 3
	fallbackBase    = "user"
	maxUsernameLen  = 34
)

var (
	usernameRe    = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,33}$`)
	usernameStrip = regexp.MustCompile(`[^a-z0-9._-]+`)
)

type UserLookup interface {
	FindByUsernameOrEmail(ctx context.Context, identifier string) (user.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type Validation struct {
	Exists bool
	User   *user.User
}

type Validator struct {
	users   UserLookup
	illegal map[string]bool
	policy  security.PasswordPolicy
}

func NewValidator(users UserLookup, illegalUsernames []string, policy security.PasswordPolicy) *Validator {
	illegal := make(map[string]bool, len(illegalUsernames))
	for _, name := range illegalUsernames {
		if name = user.Fold(name); name != "" {
			illegal[name] = true
		}
	}

	return &Validator{
		users:   users,
		illegal: illegal,
		policy:  policy,
	}
}

// Validate looks up a username or email. Absence is not an error.
func (v *Validator) Validate(ctx context.Context, identifier string) (Validation, error) {
	folded := user.Fold(identifier)
	if folded == "" {
		return Validation{}, nil
	}

	u, err := v.users.FindByUsernameOrEmail(ctx, folded)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Validation{}, nil
		}
		return Validation{}, err
	}

	return Validation{Exists: true, User: &u}, nil
}

func (v *Validator) CheckUsername(username string) error {
	folded := user.Fold(username)

	if folded == "" {
		return apperr.Validation("username", "Please fill in a username")
	}

	if v.illegal[folded] {
		return apperr.Validation("username", "Please enter a valid username: "+folded+" is not allowed")
	}

	if !usernameRe.MatchString(folded) {
		return apperr.Validation("username", "Username must be 3-34 characters of letters, numbers, dots, dashes or underscores")
	}

	return nil
}

func (v *Validator) CheckPassword(secret string) error {
	if err := v.policy.Check(secret); err != nil {
		return apperr.Validation("password", err.Error())
	}
	return nil
}

// UniqueUsername derives a free username from base: base itself, then
// base1..base50, then a few random suffixes.
func (v *Validator) UniqueUsername(ctx context.Context, base string) (string, error) {
	base = sanitize(base)

	candidates := make([]string, 0, maxSuffixProbes+1)
	if !v.illegal[base] && usernameRe.MatchString(base) {
		candidates = append(candidates, base)
	}
	for i := 1; i <= maxSuffixProbes; i++ {
		candidates = append(candidates, withSuffix(base, strconv.Itoa(i)))
	}

	for _, candidate := range candidates {
		ok, err := v.available(ctx, candidate)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate, nil
		}
	}

	for i := 0; i < maxRandomProbes; i++ {
		candidate := withSuffix(base, randomSuffix())

		ok, err := v.available(ctx, candidate)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate, nil
		}
	}

	return "", apperr.ErrNoUsernameAvailable
}

func (v *Validator) available(ctx context.Context, candidate string) (bool, error) {
	if v.illegal[candidate] {
		return false, nil
	}

	exists, err := v.users.UsernameExists(ctx, candidate)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

func sanitize(base string) string {
	base = user.Fold(base)
	if i := strings.IndexByte(base, '@'); i >= 0 {
		base = base[:i]
	}

	base = usernameStrip.ReplaceAllString(base, "")
	base = strings.TrimLeft(base, "._-")

	if len(base) < 3 {
		base = fallbackBase
	}
	return base
}

func withSuffix(base, suffix string) string {
	if len(base)+len(suffix) > maxUsernameLen {
		base = base[:maxUsernameLen-len(suffix)]
	}
	return base + suffix
}

func randomSuffix() string {
	buf := make([]byte, 3)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
