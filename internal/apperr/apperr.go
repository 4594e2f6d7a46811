// Package apperr holds the error kinds shared by the stores, the auth flows
// and the HTTP layer.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrAlreadyConnected is returned when linking a provider the user
	// already signs in with.
	ErrAlreadyConnected = errors.New("User is already connected using this provider")

	ErrNoUsernameAvailable = errors.New("no username available")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindUnavailable Kind = "unavailable"
	KindInternal    Kind = "internal"
)

// StoreError wraps a persistence failure with a client-presentable message.
type StoreError struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func NotFound(op, message string) error {
	return &StoreError{Kind: KindNotFound, Op: op, Message: message}
}

// Store classifies a driver error. Unique violations become conflicts named
// after the offending field.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *StoreError
	if errors.As(err, &se) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &StoreError{Kind: KindConflict, Op: op, Message: uniqueMessage(pgErr), Err: err}
		case "57014", "57P01", "08000", "08003", "08006":
			return &StoreError{Kind: KindUnavailable, Op: op, Message: "Storage unavailable", Err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &StoreError{Kind: KindUnavailable, Op: op, Message: "Storage unavailable", Err: err}
	}

	return &StoreError{Kind: KindInternal, Op: op, Message: "Something went wrong", Err: err}
}

// uniqueMessage turns "users_username_key" style constraint names into
// "Username already exists".
func uniqueMessage(pgErr *pgconn.PgError) string {
	name := pgErr.ConstraintName

	for _, field := range []string{"username", "email", "name"} {
		if strings.Contains(name, field) {
			return strings.ToUpper(field[:1]) + field[1:] + " already exists"
		}
	}
	return "Unique field already exists"
}

func IsKind(err error, kind Kind) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == kind
}

type Flow string

const (
	FlowSignUp Flow = "signup"
	FlowSignIn Flow = "signin"
)

// FlowError marks a failure that aborted sign-up or sign-in.
type FlowError struct {
	Flow Flow
	Err  error
}

func (e *FlowError) Error() string {
	return string(e.Flow) + ": " + e.Err.Error()
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func SignUpError(err error) error {
	return &FlowError{Flow: FlowSignUp, Err: err}
}

func SignInError(err error) error {
	return &FlowError{Flow: FlowSignIn, Err: err}
}

// Message renders err for a client without leaking driver details.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}

	var se *StoreError
	if errors.As(err, &se) {
		return se.Message
	}

	if errors.Is(err, ErrAlreadyConnected) {
		return ErrAlreadyConnected.Error()
	}

	if errors.Is(err, ErrNoUsernameAvailable) {
		return "Could not find an available username"
	}

	return "Something went wrong"
}
