package apperr

import (
	"fmt"
	"net/http"
)

// Error is a domain error with a stable machine-readable code and an HTTP
// status. Domain errors are constructed where they are detected and travel
// unmodified to the boundary; anything else is an infrastructure error and
// collapses to a generic 500 there.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds a one-off domain error.
func New(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

var (
	ErrEmailMobileEmpty = &Error{Code: "email_mobile_empty", Message: "mobile number and email both cannot be empty", Status: http.StatusBadRequest}
	ErrUserNotFound     = &Error{Code: "user_not_found", Message: "user does not exist", Status: http.StatusBadRequest}
	ErrPasswordMismatch = &Error{Code: "password_mismatch", Message: "invalid username or password", Status: http.StatusUnauthorized}

	ErrInvalidOTP          = &Error{Code: "invalid_otp", Message: "invalid or expired OTP", Status: http.StatusBadRequest}
	ErrInvalidValidationID = &Error{Code: "invalid_validation_id", Message: "invalid validation ID", Status: http.StatusBadRequest}
	ErrUserContactMissing  = &Error{Code: "user_contact_missing", Message: "user has no contact to deliver an OTP to", Status: http.StatusBadRequest}

	ErrInvalidRefreshToken = &Error{Code: "invalid_refresh_token", Message: "invalid refresh token", Status: http.StatusUnauthorized}
	ErrTokenExpired        = &Error{Code: "token_expired", Message: "token expired", Status: http.StatusUnauthorized}
	ErrUnauthorized        = &Error{Code: "unauthorized", Message: "unauthorized", Status: http.StatusUnauthorized}

	ErrOAuthProviderNotFound = &Error{Code: "oauth_provider_not_found", Message: "unknown OAuth provider", Status: http.StatusNotFound}
)

// UserAlreadyExists carries the conflicting account identifier so the caller
// can redirect a duplicate signup to login.
type UserAlreadyExists struct {
	ExistingID string
}

func (e *UserAlreadyExists) Error() string {
	return "user_already_exists: user already exists"
}

// AsError converts the conflict to the wire form.
func (e *UserAlreadyExists) AsError() *Error {
	return &Error{Code: "user_already_exists", Message: "user already exists", Status: http.StatusBadRequest}
}

// OAuthFailed wraps a provider-side failure with its description.
func OAuthFailed(detail string) *Error {
	return &Error{Code: "oauth_failed", Message: "OAuth login failed: " + detail, Status: http.StatusBadGateway}
}

// Validation reports malformed input with field-level detail.
func Validation(field, detail string) *Error {
	return &Error{Code: "validation_error", Message: fmt.Sprintf("%s: %s", field, detail), Status: http.StatusBadRequest}
}
