package api

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a client error.
type ErrorType string

const (
	ErrorTypeInvalidArgument     ErrorType = "invalid_argument"
	ErrorTypePathConflict        ErrorType = "path_conflict"
	ErrorTypeUnsupportedFormat   ErrorType = "unsupported_format"
	ErrorTypeUnsupportedEndpoint ErrorType = "unsupported_endpoint"
	ErrorTypeTransport           ErrorType = "transport_error"
)

// APIError is the error returned by every sandbox client operation.
//
// Param names the offending argument (for example "task_id" or the
// destination path), StatusCode is set when the server answered with a
// non-2xx status, and Err holds the underlying network, decode or file
// system error, if any.
type APIError struct {
	Type       ErrorType `json:"type"`
	Param      string    `json:"param,omitempty"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	Err        error     `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, msg, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewInvalidArgumentError creates an APIError for a missing or invalid argument.
func NewInvalidArgumentError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidArgument,
		Param:   param,
		Message: message,
	}
}

// NewPathConflictError creates an APIError for a destination path that
// already exists or cannot be used.
func NewPathConflictError(path string) *APIError {
	return &APIError{
		Type:    ErrorTypePathConflict,
		Param:   path,
		Message: fmt.Sprintf("%s already exists or is invalid", path),
	}
}

// NewUnsupportedFormatError creates an APIError for a report format the
// client does not handle. The URL that would have been requested is kept
// in the message.
func NewUnsupportedFormatError(format ReportFormat, apiURL string) *APIError {
	return &APIError{
		Type:    ErrorTypeUnsupportedFormat,
		Param:   "format",
		Message: fmt.Sprintf("report format %q is not implemented: %s", format, apiURL),
	}
}

// NewUnsupportedEndpointError creates an APIError for a call that is not
// available on the target server flavor.
func NewUnsupportedEndpointError(apiURL string) *APIError {
	return &APIError{
		Type: ErrorTypeUnsupportedEndpoint,
		Message: fmt.Sprintf("%s is not available on the target server; "+
			"are calls for the Django web interface mixed with the api.py interface?", apiURL),
	}
}

// NewTransportError wraps a network, decode or file system failure.
func NewTransportError(message string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeTransport,
		Message: message,
		Err:     err,
	}
}

// NewStatusError creates a transport APIError for a non-2xx HTTP response.
func NewStatusError(statusCode int, message string) *APIError {
	if message == "" {
		message = fmt.Sprintf("sandbox returned HTTP %d", statusCode)
	} else {
		message = fmt.Sprintf("sandbox returned HTTP %d: %s", statusCode, message)
	}
	return &APIError{
		Type:       ErrorTypeTransport,
		Message:    message,
		StatusCode: statusCode,
	}
}

// IsInvalidArgument reports whether err is an invalid argument error.
func IsInvalidArgument(err error) bool { return hasType(err, ErrorTypeInvalidArgument) }

// IsPathConflict reports whether err is a path conflict error.
func IsPathConflict(err error) bool { return hasType(err, ErrorTypePathConflict) }

// IsUnsupportedFormat reports whether err is an unsupported format error.
func IsUnsupportedFormat(err error) bool { return hasType(err, ErrorTypeUnsupportedFormat) }

// IsUnsupportedEndpoint reports whether err is an unsupported endpoint error.
func IsUnsupportedEndpoint(err error) bool { return hasType(err, ErrorTypeUnsupportedEndpoint) }

// IsTransportError reports whether err is a transport error.
func IsTransportError(err error) bool { return hasType(err, ErrorTypeTransport) }

func hasType(err error, t ErrorType) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Type == t
	}
	return false
}
