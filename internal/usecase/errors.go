package usecase

import (
	"errors"
	"fmt"
	"time"

	"subtitle-hub/pkg/utils"
)

// Sentinel errors returned by the comment services. Messages are safe to show
// to end users; handlers map them to status codes with errors.Is.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrRateLimited          = errors.New("please wait before requesting another code")
	ErrChallengeNotFound    = errors.New("OTP not found, request a new one")
	ErrChallengeExpired     = errors.New("OTP expired, request a new one")
	ErrChallengeAlreadyUsed = errors.New("OTP already used, request a new one")
	ErrOTPMismatch          = errors.New("wrong OTP")
	ErrTooManyAttempts      = errors.New("too many wrong attempts, request a new OTP")
	ErrForbidden            = errors.New("not allowed to delete this comment")
	ErrNotFound             = errors.New("comment not found")
	ErrStorage              = errors.New("storage failure")
)

// ValidationError lists the violated constraints keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidInput, utils.FormatValidationErrors(e.Fields))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidField(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// RateLimitError carries how long the caller should wait before retrying.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	seconds := int((e.RetryAfter + time.Second - 1) / time.Second)
	return fmt.Sprintf("please wait %d seconds and try again", seconds)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
