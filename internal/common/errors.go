package common

import (
	"errors"
	"fmt"
)

// Business logic errors
var (
	// General errors
	ErrNotFound   = errors.New("resource not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("invalid input")
	ErrConflict   = errors.New("conflict")

	// Channel errors
	ErrChannelNotFound = errors.New("channel not found")
	ErrNotMember       = errors.New("not a member of this channel")
	ErrAlreadyMember   = errors.New("already a member of this channel")

	// Message errors
	ErrMessageNotFound = errors.New("message not found")
	ErrDuplicateKey    = errors.New("duplicate client key")
	ErrNotSender       = errors.New("only the sender may modify this message")

	// Invitation errors
	ErrInvitationNotFound  = errors.New("invitation not found")
	ErrDuplicateInvitation = errors.New("a pending invitation already exists")
	ErrInvalidTransition   = errors.New("invitation is not pending")
	ErrInvitationExpired   = errors.New("invitation has expired")

	// Alert errors
	ErrAlertNotFound = errors.New("alert not found")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrUserNotFound = errors.New("user not found")
)

// RateLimitError reports a rejected request along with retry timing so
// clients can back off. It is distinct from authorization failures.
type RateLimitError struct {
	Remaining         int
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %ds", e.RetryAfterSeconds)
}

// IsConflict reports whether err belongs to the conflict family
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrAlreadyMember) ||
		errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrDuplicateInvitation) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvitationExpired)
}

// IsNotFound reports whether err belongs to the not-found family
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrChannelNotFound) ||
		errors.Is(err, ErrMessageNotFound) ||
		errors.Is(err, ErrInvitationNotFound) ||
		errors.Is(err, ErrAlertNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
