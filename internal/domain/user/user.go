package user

import (
	"strings"
	"time"
)

const ProviderLocal = "local"

// ProviderData is the raw profile blob an identity provider returned.
type ProviderData map[string]any

type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DisplayName string `json:"displayName"`
	AppName     string `json:"appName"`

	PasswordHash string `json:"-"` // never expose hash in JSON
	Salt         string `json:"-"`

	Provider                string                  `json:"provider"`
	ProviderData            ProviderData            `json:"providerData,omitempty"`
	AdditionalProvidersData map[string]ProviderData `json:"additionalProvidersData,omitempty"`

	KnownIPAddresses  []string   `json:"knownIPAddresses"`
	Roles             []string   `json:"roles"`
	PasswordUpdatedAt *time.Time `json:"passwordUpdatedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Sanitize returns a copy safe to hand to a client.
func (u User) Sanitize() User {
	out := u
	out.PasswordHash = ""
	out.Salt = ""

	out.KnownIPAddresses = append([]string(nil), u.KnownIPAddresses...)
	out.Roles = append([]string(nil), u.Roles...)

	if u.AdditionalProvidersData != nil {
		out.AdditionalProvidersData = make(map[string]ProviderData, len(u.AdditionalProvidersData))
		for k, v := range u.AdditionalProvidersData {
			out.AdditionalProvidersData[k] = v
		}
	}

	return out
}

func (u User) HasPassword() bool {
	return u.PasswordHash != ""
}

func (u User) KnowsIP(ip string) bool {
	for _, known := range u.KnownIPAddresses {
		if known == ip {
			return true
		}
	}
	return false
}

func (u User) LinkedTo(provider string) bool {
	if u.Provider == provider {
		return true
	}
	_, ok := u.AdditionalProvidersData[provider]
	return ok
}

// Fold is the case-insensitive form used for username and email matching.
func Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SignUpRequest has no roles field; roles are never client-settable.
type SignUpRequest struct {
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"omitempty,max=34"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
}

type SignInRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

type ValidateRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" binding:"required"`
}

type ForgotPasswordRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" binding:"required"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}
