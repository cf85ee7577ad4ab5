package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/relay-api/internal/redact"
)

var (
	// ErrRejected means the channel refused the message, for example because
	// of a bad credential, a rate limit or a missing target.
	ErrRejected = errors.New("delivery rejected")

	// ErrNetwork means the channel could not be reached or did not answer in time.
	ErrNetwork = errors.New("delivery network failure")
)

// RejectedError carries the channel's numeric error code.
type RejectedError struct {
	Code   int
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("delivery rejected with code %d", e.Code)
	}
	return fmt.Sprintf("delivery rejected with code %d: %s", e.Code, e.Reason)
}

// Unwrap lets errors.Is(err, ErrRejected) match.
func (e *RejectedError) Unwrap() error {
	return ErrRejected
}

// NetworkError wraps a transport failure so it matches ErrNetwork. The
// cause is redacted because transport errors often embed the request URL,
// and with it the credential. Context errors stay matchable with errors.Is.
func NetworkError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return fmt.Errorf("%w: %s", ErrNetwork, redact.Error(err))
}

// Sender delivers one message to one target using one credential.
// A nil error means the channel accepted the message. Implementations must
// honor ctx cancellation and be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, credential, target, message string) error
}

// SenderFunc adapts a plain function to the Sender interface.
type SenderFunc func(ctx context.Context, credential, target, message string) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, credential, target, message string) error {
	return f(ctx, credential, target, message)
}
