package user

import "errors"

var (
	ErrNotFound          = errors.New("user not found")
	ErrResetTokenInvalid = errors.New("reset token invalid")
)
