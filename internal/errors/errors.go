package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// Kind classifies an error for propagation and user presentation.
type Kind int

const (
	// KindUserInput - bad argument, path traversal, unknown tool,
	// validation failure of a translated query. Surfaced verbatim.
	KindUserInput Kind = iota
	// KindTimeout - a cooperative deadline expired.
	KindTimeout
	// KindUnavailable - the graph store is unreachable.
	KindUnavailable
	// KindCircuitOpen - a circuit breaker refused the call.
	KindCircuitOpen
	// KindRateLimited - the client's token bucket is empty.
	KindRateLimited
	// KindConfig - missing or invalid configuration.
	KindConfig
	// KindInternal - everything else. Carries a correlation id.
	KindInternal
)

// Error is a structured error with classification and context.
type Error struct {
	Kind          Kind
	Message       string
	Cause         error
	Context       map[string]interface{}
	CorrelationID string
	StackTrace    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by kind so callers can use errors.Is with sentinel
// kind values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithContext attaches a key/value pair to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// UserMessage returns what should be shown to the caller. Internal errors
// hide the cause behind a correlation id.
func (e *Error) UserMessage() string {
	if e.Kind == KindInternal {
		return fmt.Sprintf("internal error (id %s)", e.CorrelationID)
	}
	return e.Error()
}

// DetailedString renders the full error for logs.
func (e *Error) DetailedString() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s\n", kindString(e.Kind), e.Message))
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Caused by: %v\n", e.Cause))
	}
	if e.CorrelationID != "" {
		sb.WriteString(fmt.Sprintf("Correlation id: %s\n", e.CorrelationID))
	}
	if len(e.Context) > 0 {
		sb.WriteString("Context:\n")
		for k, v := range e.Context {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, v))
		}
	}
	if e.StackTrace != "" {
		sb.WriteString(fmt.Sprintf("Stack trace:\n%s", e.StackTrace))
	}
	return sb.String()
}

func kindString(k Kind) string {
	switch k {
	case KindUserInput:
		return "USER_INPUT"
	case KindTimeout:
		return "TIMEOUT"
	case KindUnavailable:
		return "UNAVAILABLE"
	case KindCircuitOpen:
		return "CIRCUIT_OPEN"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindConfig:
		return "CONFIG"
	case KindInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

func captureStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		sb.WriteString(fmt.Sprintf("  %s:%d %s\n", file, line, fn.Name()))
	}
	return sb.String()
}

// New creates a new error of the given kind.
func New(kind Kind, message string) *Error {
	e := &Error{
		Kind:    kind,
		Message: message,
		Context: make(map[string]interface{}),
	}
	if kind == KindInternal {
		e.CorrelationID = uuid.NewString()
		e.StackTrace = captureStackTrace(2)
	}
	return e
}

// Wrap wraps an existing error with a kind and message. Returns nil for a
// nil cause.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	e := &Error{
		Kind:    kind,
		Message: message,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
	if kind == KindInternal {
		e.CorrelationID = uuid.NewString()
		e.StackTrace = captureStackTrace(2)
	}
	return e
}

// KindOf returns the kind of err, or KindInternal when err is not a
// structured error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Convenience constructors

// UserInputf creates a user-input error with formatting.
func UserInputf(format string, args ...interface{}) *Error {
	return New(KindUserInput, fmt.Sprintf(format, args...))
}

// Timeoutf creates a timeout error with formatting.
func Timeoutf(format string, args ...interface{}) *Error {
	return New(KindTimeout, fmt.Sprintf(format, args...))
}

// Unavailablef creates an unavailable error with formatting.
func Unavailablef(format string, args ...interface{}) *Error {
	return New(KindUnavailable, fmt.Sprintf(format, args...))
}

// Configf creates a configuration error with formatting.
func Configf(format string, args ...interface{}) *Error {
	return New(KindConfig, fmt.Sprintf(format, args...))
}

// Internalf creates an internal error with formatting.
func Internalf(format string, args ...interface{}) *Error {
	return New(KindInternal, fmt.Sprintf(format, args...))
}
