package notifications

import "context"

type PasswordResetInput struct {
	UserID    string
	Email     string
	Username  string
	ResetURL  string
	ExpiresIn string
}

// Notifier is the trigger point for outgoing user mail. Delivery itself is
// somebody else's job.
type Notifier interface {
	SendPasswordReset(ctx context.Context, input PasswordResetInput) error
}
