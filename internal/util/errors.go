package util

import (
	"fmt"
	"net/http"
)

const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInvalidIdentifier  = "INVALID_IDENTIFIER"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// AppError 带 HTTP 状态码与错误码的业务错误
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

var (
	ErrChapterNotFound    = &AppError{Code: ErrCodeNotFound, Message: "Chapter not found", Status: http.StatusNotFound}
	ErrAdminNotFound      = &AppError{Code: ErrCodeNotFound, Message: "Admin not found", Status: http.StatusNotFound}
	ErrInvalidChapterID   = &AppError{Code: ErrCodeInvalidIdentifier, Message: "Invalid chapter ID format", Status: http.StatusBadRequest}
	ErrEmailRegistered    = &AppError{Code: ErrCodeConflict, Message: "Admin with this email already exists", Status: http.StatusBadRequest}
	ErrInvalidCredentials = &AppError{Code: ErrCodeInvalidCredentials, Message: "Invalid credentials", Status: http.StatusUnauthorized}
	ErrUnauthenticated    = &AppError{Code: ErrCodeUnauthenticated, Message: "Access token required", Status: http.StatusUnauthorized}
	ErrInvalidToken       = &AppError{Code: ErrCodeInvalidToken, Message: "Invalid token", Status: http.StatusForbidden}
	ErrTokenExpired       = &AppError{Code: ErrCodeTokenExpired, Message: "Token expired", Status: http.StatusUnauthorized}
	ErrAdminGone          = &AppError{Code: ErrCodeInvalidToken, Message: "Invalid token or user not found", Status: http.StatusForbidden}
)

func NewValidationError(field, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("%s %s", field, reason),
		Status:  http.StatusBadRequest,
	}
}

func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}
