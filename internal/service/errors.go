package service

import (
	"errors"
	"fmt"
)

const (
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION_ERROR"
)

// BusinessError is an expected, caller-facing failure. Handlers turn Code into
// an HTTP status and render Message and Details as the response body.
type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

// FieldViolation names one invalid request field.
type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type Detail struct {
	Key     string
	Payload any
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(resource string, id int64) *BusinessError {
	return NewBusinessError(CodeNotFound, "Task not found",
		ToDetail("resource", resource),
		ToDetail("id", id),
	)
}

func NewValidationError(field, reason string) *BusinessError {
	return NewValidationErrors([]FieldViolation{{Field: field, Reason: reason}})
}

func NewValidationErrors(violations []FieldViolation) *BusinessError {
	message := "Request validation failed"
	if len(violations) == 1 {
		message = fmt.Sprintf("Invalid value for field '%s': %s", violations[0].Field, violations[0].Reason)
	}
	return NewBusinessError(CodeValidation, message, ToDetail("fields", violations))
}

// HasCode reports whether err carries a BusinessError with the given code.
func HasCode(err error, code string) bool {
	var businessErr *BusinessError
	return errors.As(err, &businessErr) && businessErr.Code == code
}
