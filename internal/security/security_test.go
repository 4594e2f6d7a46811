package security_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tingyu91/snsjf/internal/security"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, salt, err := security.HashPassword("Str0ng!Pass")
	require.NoError(t, err)
	require.NotEmpty(t, salt)

	assert.NoError(t, security.CheckPassword(hash, salt, "Str0ng!Pass"))
	assert.True(t, errors.Is(security.CheckPassword(hash, salt, "wrong"), security.ErrMismatchedPassword))
	assert.True(t, errors.Is(security.CheckPassword(hash, "other-salt", "Str0ng!Pass"), security.ErrMismatchedPassword))
}

func TestHashPassword_FreshSaltEachTime(t *testing.T) {
	_, s1, err := security.HashPassword("Str0ng!Pass")
	require.NoError(t, err)
	_, s2, err := security.HashPassword("Str0ng!Pass")
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
}

func TestCheckPassword_NoHash(t *testing.T) {
	assert.ErrorIs(t, security.CheckPassword("", "", "anything"), security.ErrMismatchedPassword)
}

func TestPasswordPolicy(t *testing.T) {
	policy := security.DefaultPasswordPolicy()

	tests := []struct {
		name    string
		pwd     string
		wantErr bool
	}{
		{name: "ok", pwd: "Str0ng!Pass", wantErr: false},
		{name: "short", pwd: "S0!a", wantErr: true},
		{name: "no upper", pwd: "str0ng!pass", wantErr: true},
		{name: "no lower", pwd: "STR0NG!PASS", wantErr: true},
		{name: "no digit", pwd: "Strong!Pass", wantErr: true},
		{name: "no special", pwd: "Str0ngPass1", wantErr: true},
		{name: "common", pwd: "Password1!", wantErr: true},
		{name: "repeats", pwd: "Str0ng!Paaaass", wantErr: true},
		{name: "three repeats allowed", pwd: "Str0ng!Paaass", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Check(tt.pwd)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
