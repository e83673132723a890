package domain

import "fmt"

// Error is the typed failure every core operation returns. Status is the
// HTTP-class outcome, Code a stable machine-readable identifier rendered in
// the response body. Only the handler layer turns it into a transport response.
type Error struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message,omitempty"`
	Extra   map[string]any `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// NewError creates a typed operation error
func NewError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// ErrInternal is the generic 500 returned when an unexpected failure was
// already logged with full detail.
func ErrInternal() *Error {
	return NewError(500, "internal_error", "Internal Server Error")
}
