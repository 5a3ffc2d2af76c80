package tts

import (
	"errors"
	"fmt"
	"strings"

	"voicegen/internal/domain/speech"
)

// Failure classes surfaced by the voice service. Match them with errors.Is.
var (
	ErrInvalidInput   = speech.ErrInvalidInput
	ErrAuthentication = errors.New("voice service rejected credentials")
	ErrQuotaExceeded  = errors.New("voice service quota exceeded")
	ErrValidation     = errors.New("voice service rejected request")
	ErrRateLimited    = errors.New("voice service rate limit exceeded")
	ErrNetwork        = errors.New("voice service unreachable")
	ErrServerFault    = errors.New("voice service internal error")
	ErrUnknownService = errors.New("unexpected voice service response")
)

// ServiceError describes one failed call to the voice service.
type ServiceError struct {
	Kind ErrorKind

	// StatusCode is NoStatus when no response was received.
	StatusCode int

	// Code and Message come from the structured error body, when present.
	Code    string
	Message string

	Cause error
}

// NewServiceError classifies a failed response. body may be nil.
func NewServiceError(statusCode int, body []byte, cause error) *ServiceError {
	d := parseDetail(body)
	return &ServiceError{
		Kind:       classify(statusCode, d),
		StatusCode: statusCode,
		Code:       d.Status,
		Message:    d.Message,
		Cause:      cause,
	}
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.StatusCode != NoStatus {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Code != "" {
		b.WriteString(": ")
		b.WriteString(e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's kind.
func (e *ServiceError) Is(target error) bool {
	return target != nil && target == e.Kind.Sentinel()
}

// Retryable reports whether another attempt may succeed.
func (e *ServiceError) Retryable() bool {
	return e.Kind.Retryable()
}

// AsServiceError normalizes any error returned by a Service. Errors that did
// not come from a response are treated as network failures.
func AsServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return NewServiceError(NoStatus, nil, err)
}
