package models

import "fmt"

// Error codes attached to per-task and startup failures.
const (
	ErrCodeTimeout      = "NAVIGATION_TIMEOUT"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeCapture      = "CAPTURE_FAILED"
	ErrCodeWrite        = "WRITE_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// CaptureError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type CaptureError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// NewCaptureError creates a new CaptureError.
func NewCaptureError(code, message string, err error) *CaptureError {
	return &CaptureError{Code: code, Message: message, Err: err}
}
