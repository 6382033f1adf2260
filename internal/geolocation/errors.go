package geolocation

import "errors"

// ErrorCode classifies position acquisition failures
type ErrorCode int

const (
	// PermissionDenied means the user revoked or refused location access.
	// Terminal: not retried, and the shared cache is invalidated.
	PermissionDenied ErrorCode = iota + 1
	// PositionUnavailable means the hardware could not produce a fix.
	// Transient: retried once with relaxed accuracy, cache retained.
	PositionUnavailable
	// Timeout means the hardware did not respond within the allowed window.
	// Transient: retried once with relaxed accuracy, cache retained.
	Timeout
	// Unsupported means no geolocation source exists on this device.
	// Terminal: not retried.
	Unsupported
)

func (c ErrorCode) String() string {
	switch c {
	case PermissionDenied:
		return "PERMISSION_DENIED"
	case PositionUnavailable:
		return "POSITION_UNAVAILABLE"
	case Timeout:
		return "TIMEOUT"
	case Unsupported:
		return "UNSUPPORTED"
	}
	return "UNKNOWN"
}

// PositionError is a typed geolocation failure
type PositionError struct {
	Code    ErrorCode
	Message string
}

func (e *PositionError) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Message
}

// NewPositionError creates a typed position error
func NewPositionError(code ErrorCode, message string) *PositionError {
	return &PositionError{Code: code, Message: message}
}

// CodeOf extracts the error code, or 0 if err is not a PositionError
func CodeOf(err error) ErrorCode {
	var pe *PositionError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return 0
}

// IsTransient reports whether the failure may succeed on retry
func IsTransient(err error) bool {
	code := CodeOf(err)
	return code == PositionUnavailable || code == Timeout
}
