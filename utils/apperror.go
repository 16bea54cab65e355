package utils

import "fmt"

// AppError is a client-facing failure with an HTTP status. Services raise it
// at the first failing precondition; controllers map it to the JSON envelope.
// Anything that is not an AppError collapses to a generic 500 and the detail
// stays in the server log.
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`   // stable machine-readable identifier
	Message string `json:"message"` // customer-friendly text
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}
