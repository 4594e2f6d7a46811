package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const saltBytes = 16

var ErrMismatchedPassword = errors.New("password does not match")

// HashPassword hashes a plain text password with a fresh per-user salt.
// bcrypt caps input at 72 bytes, so salt and password are folded through
// HMAC-SHA256 first.
func HashPassword(plain string) (hash string, salt string, err error) {
	buf := make([]byte, saltBytes)

	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}

	salt = base64.RawStdEncoding.EncodeToString(buf)

	out, err := bcrypt.GenerateFromPassword(peppered(salt, plain), bcrypt.DefaultCost)

	if err != nil {
		return "", "", err
	}

	return string(out), salt, nil
}

// CheckPassword compares a stored hash and salt with a plaintext password.
func CheckPassword(hash, salt, plain string) error {
	if hash == "" {
		return ErrMismatchedPassword
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), peppered(salt, plain))

	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatchedPassword
	}

	return err
}

func peppered(salt, plain string) []byte {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(plain))
	return []byte(hex.EncodeToString(h.Sum(nil)))
}

// ConstantTimeEqual reports whether two hex digests match.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
