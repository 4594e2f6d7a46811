package security

import (
	"fmt"
	"regexp"
	"strings"
)

// PasswordPolicy defines the requirements for password complexity.
type PasswordPolicy struct {
	MinLength          int
	MaxLength          int
	RequireUppercase   bool
	RequireLowercase   bool
	RequireDigit       bool
	RequireSpecialChar bool
	DisallowCommonPwds bool
	MaxRepeatedChars   int
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:          8,
		MaxLength:          72,
		RequireUppercase:   true,
		RequireLowercase:   true,
		RequireDigit:       true,
		RequireSpecialChar: true,
		DisallowCommonPwds: true,
		MaxRepeatedChars:   3,
	}
}

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

var commonPasswords = map[string]bool{
	"password": true, "password1": true, "password1!": true, "123456": true, "12345678": true,
	"qwerty": true, "qwerty123!": true, "admin": true, "welcome": true, "welcome1!": true,
	"login": true, "abc123": true, "letmein": true, "monkey": true, "passw0rd!": true,
}

// Check returns the first rule the password breaks, or nil.
func (p PasswordPolicy) Check(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}

	if p.MaxLength > 0 && len(password) > p.MaxLength {
		return fmt.Errorf("password must be at most %d characters long", p.MaxLength)
	}

	if p.RequireUppercase && !upperRe.MatchString(password) {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}

	if p.RequireLowercase && !lowerRe.MatchString(password) {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}

	if p.RequireDigit && !digitRe.MatchString(password) {
		return fmt.Errorf("password must contain at least one digit")
	}

	if p.RequireSpecialChar && !specialRe.MatchString(password) {
		return fmt.Errorf("password must contain at least one special character")
	}

	if p.DisallowCommonPwds && commonPasswords[strings.ToLower(password)] {
		return fmt.Errorf("password is too common, please choose a more secure password")
	}

	if p.MaxRepeatedChars > 0 && longestRun(password) > p.MaxRepeatedChars {
		return fmt.Errorf("password cannot contain more than %d consecutive repeated characters", p.MaxRepeatedChars)
	}

	return nil
}

func longestRun(s string) int {
	best, run := 0, 0
	var prev rune

	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
		prev = r
	}
	return best
}
