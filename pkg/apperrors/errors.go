package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes
const (
	CodeNotFound           = "RESOURCE_NOT_FOUND"
	CodeValidation         = "VALIDATION_FAILED"
	CodeConflict           = "INVALID_STATE"
	CodeGmailNotConfigured = "GMAIL_NOT_CONFIGURED"
	CodeGmailNotConnected  = "GMAIL_NOT_CONNECTED"
	CodeOAuthState         = "OAUTH_INVALID_STATE"
	CodeUpstream           = "UPSTREAM_FAILURE"
	CodeInternal           = "INTERNAL_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code       string `json:"error"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewNotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

func NewBadRequest(code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: http.StatusBadRequest}
}

func NewConflict(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

// NewUnavailable is used for missing integrations; the UI shows these as warnings.
func NewUnavailable(code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: http.StatusServiceUnavailable}
}

func NewUpstream(message string, err error) *AppError {
	return &AppError{Code: CodeUpstream, Message: message, HTTPStatus: http.StatusBadGateway, Err: err}
}

func Wrap(err error, message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// Is reports whether err carries an AppError with the given code.
func Is(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// Respond writes err as JSON. Unknown errors become a 500.
func Respond(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Wrap(err, "internal server error")
	}
	_ = c.Error(err)

	body := gin.H{"error": appErr.Code, "message": appErr.Message}
	if appErr.HTTPStatus == http.StatusServiceUnavailable {
		body["warning"] = appErr.Message
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, body)
}
