package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthExpired marks missing, expired, or revoked credentials.
	ErrAuthExpired = errors.New("authentication expired")
	// ErrRateLimited marks upstream throttling after retries were exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransport marks network failures and unexpected upstream responses.
	ErrTransport = errors.New("transport failure")
	// ErrSourceUnavailable marks a download source that is disabled or cannot serve the track.
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
	ErrNotFound          = errors.New("not found")
	ErrTimeout           = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// MessageError pairs a classified failure with the text recorded on a job.
type MessageError struct {
	Message string
	Err     error
}

func (e *MessageError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *MessageError) Unwrap() error { return e.Err }

// WithMessage attaches a job-facing message to err.
func WithMessage(err error, message string) error {
	if err == nil {
		return nil
	}
	return &MessageError{Message: message, Err: err}
}

// Retryable reports whether a failed call may succeed when repeated against
// the same upstream.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrTimeout), errors.Is(err, ErrTransport):
		return true
	case errors.Is(err, context.DeadlineExceeded):
		return true
	default:
		return false
	}
}

// UserMessage converts an error into the short message recorded on a job.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthExpired):
		return "Not authenticated with Spotify"
	case errors.Is(err, ErrRateLimited):
		return "Spotify rate limit exceeded, try again later"
	case errors.Is(err, context.Canceled):
		return "Job cancelled"
	}
	var msgErr *MessageError
	switch {
	case errors.As(err, &msgErr) && strings.TrimSpace(msgErr.Message) != "":
		return strings.TrimSpace(msgErr.Message)
	default:
		return strings.TrimSpace(err.Error())
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
