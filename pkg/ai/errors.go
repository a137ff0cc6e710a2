// Package ai provides the error taxonomy and retry helper shared by the
// speech recognition and voice activity providers.
package ai

import "errors"

var (
	// ErrRecoverable marks a temporary failure that may succeed if retried:
	// a websocket dial timeout, HTTP 429, a dropped connection.
	ErrRecoverable = errors.New("recoverable provider error")

	// ErrFatal marks a failure retrying cannot fix: a rejected handshake
	// signature, missing credentials, an unsupported audio format.
	ErrFatal = errors.New("fatal provider error")
)

// IsRecoverable reports whether err is classified as recoverable.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrRecoverable)
}

// IsFatal reports whether err is classified as fatal.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// Classify names the class of err for log attributes: "fatal",
// "recoverable" or "unclassified".
func Classify(err error) string {
	switch {
	case IsFatal(err):
		return "fatal"
	case IsRecoverable(err):
		return "recoverable"
	}
	return "unclassified"
}

// RetryableError attaches a retry classification and a short description to
// a provider error. Both the class sentinel and the underlying error are
// reachable through errors.Is and errors.As.
type RetryableError struct {
	Underlying error
	Retryable  bool
	Message    string
}

func (e *RetryableError) Error() string {
	switch {
	case e.Underlying == nil:
		return e.Message
	case e.Message == "":
		return e.Underlying.Error()
	}
	return e.Message + ": " + e.Underlying.Error()
}

func (e *RetryableError) Unwrap() []error {
	class := ErrFatal
	if e.Retryable {
		class = ErrRecoverable
	}
	if e.Underlying == nil {
		return []error{class}
	}
	return []error{class, e.Underlying}
}

// NewRecoverableError classifies underlying as recoverable.
func NewRecoverableError(underlying error, message string) error {
	return &RetryableError{Underlying: underlying, Retryable: true, Message: message}
}

// NewFatalError classifies underlying as fatal.
func NewFatalError(underlying error, message string) error {
	return &RetryableError{Underlying: underlying, Retryable: false, Message: message}
}
