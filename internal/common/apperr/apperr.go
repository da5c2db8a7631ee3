package apperr

import (
	"errors"
	"fmt"
)

// Code классифицирует ошибку приложения
type Code string

const (
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeDatabase     Code = "DATABASE_ERROR"
	CodeTelegramAPI  Code = "TELEGRAM_API_ERROR"
)

// Error is a typed application error carrying a classification code,
// an operator-facing message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsUnauthorized проверяет, является ли ошибка ошибкой авторизации
func (e *Error) IsUnauthorized() bool {
	return e.Code == CodeUnauthorized
}

// IsValidation проверяет, является ли ошибка ошибкой валидации
func (e *Error) IsValidation() bool {
	return e.Code == CodeValidation
}

// IsInternal проверяет, является ли ошибка внутренней ошибкой
func (e *Error) IsInternal() bool {
	return e.Code == CodeInternal || e.Code == CodeDatabase || e.Code == CodeTelegramAPI
}

// New создает новую ошибку приложения
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap оборачивает существующую ошибку
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Cause: err}
}

// Wrapf оборачивает существующую ошибку с форматированием
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// CodeOf returns the classification of err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
