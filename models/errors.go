package models

import "fmt"

// Error codes used for internal error handling and HTTP status mapping.
const (
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeUpstreamTimeout     = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeTransport           = "TRANSPORT_ERROR"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// ErrorResponse is the JSON body written for every failed lookup.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PriceError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type PriceError struct {
	Code    string
	Message string
	Status  int   // upstream HTTP status, when one was received
	Err     error // wrapped original error
}

func (e *PriceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PriceError) Unwrap() error {
	return e.Err
}

// NewPriceError creates a new PriceError.
func NewPriceError(code, message string, err error) *PriceError {
	return &PriceError{Code: code, Message: message, Err: err}
}

// NewUpstreamError reports an upstream reply whose status cannot be used.
func NewUpstreamError(status int) *PriceError {
	return &PriceError{
		Code:    ErrCodeUpstreamUnavailable,
		Message: fmt.Sprintf("upstream returned status %d", status),
		Status:  status,
	}
}

// ToResponse converts an internal error to the API-facing body.
func (e *PriceError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message}
}
