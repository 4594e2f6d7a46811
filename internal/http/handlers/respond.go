package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tingyu91/snsjf/internal/apperr"
)

// APIError is the failure body. message is always present at the top level
// so clients can show it as-is.
type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, APIError{
		Code:      code,
		Message:   message,
		RequestID: requestIDFrom(ctx),
		Details:   details,
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, "unauthorized", message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// RespondAppError reports err with the formatted message. Everything the
// auth flows fail with is a 400; role lookups on a missing id are a 404.
func RespondAppError(ctx *gin.Context, err error) {
	msg := apperr.Message(err)

	switch {
	case apperr.IsKind(err, apperr.KindNotFound):
		RespondNotFound(ctx, msg)
	case apperr.IsKind(err, apperr.KindConflict):
		RespondError(ctx, http.StatusBadRequest, "conflict", msg, nil)
	case errors.Is(err, apperr.ErrAlreadyConnected):
		RespondError(ctx, http.StatusBadRequest, "already_connected", msg, nil)
	default:
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			RespondError(ctx, http.StatusBadRequest, "invalid_request", msg, gin.H{"field": ve.Field})
			return
		}
		RespondError(ctx, http.StatusBadRequest, "request_failed", msg, nil)
	}
}

// RespondMessage sends a bare {message} body.
func RespondMessage(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"message": message})
}
