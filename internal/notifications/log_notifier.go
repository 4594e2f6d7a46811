package notifications

import (
	"context"
	"log/slog"
)

// LogNotifier records notifications in the structured log instead of
// delivering them.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, in PasswordResetInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.logger.InfoContext(ctx, "notification.password_reset",
		slog.String("user_id", in.UserID),
		slog.String("email", in.Email),
		slog.String("username", in.Username),
		slog.String("expires_in", in.ExpiresIn),
	)
	return nil
}
