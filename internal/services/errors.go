package services

import (
	"context"
	"errors"

	"github.com/AnshRaj112/newsdesk-backend/pkg/utils"
)

var (
	ErrDuplicateEmail         = errors.New("email already in use")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidOrExpiredToken  = errors.New("password reset token is invalid or has expired")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrRandomnessUnavailable  = errors.New("secure random source unavailable")
	ErrMailDispatchFailed     = errors.New("mail dispatch failed")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrSessionDestroyFailed   = errors.New("session destroy failed")
	ErrSessionNotFound        = errors.New("session not found")
	ErrNoImagesProvided       = errors.New("no images found in request")
	ErrImagesRequired         = errors.New("images required")
	ErrInvalidPath            = errors.New("path escapes uploads root")
	ErrUnsupportedImage       = errors.New("unsupported image type")
	ErrInvalidOAuthState      = errors.New("oauth state is invalid or expired")
	ErrUnknownProvider        = errors.New("unknown social provider")
	ErrUnverifiedEmail        = errors.New("provider email is not verified")
	ErrInvalidUserID          = errors.New("invalid user id")
	ErrInvalidToken           = errors.New("invalid bearer token")
	ErrMailInvalidConfig      = errors.New("mail sender misconfigured")
	ErrFileStoreInvalidConfig = errors.New("file store misconfigured")
)

// ValidationError carries a message that is returned to the client verbatim.
type ValidationError = utils.ValidationError

// NewValidationError builds a field-less validation error.
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

// ErrorKind maps err to a stable label for logs and the activity log.
func ErrorKind(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return "ValidationError"
	case errors.Is(err, ErrDuplicateEmail):
		return "DuplicateEmail"
	case errors.Is(err, ErrUserNotFound):
		return "UserNotFound"
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return "InvalidOrExpiredToken"
	case errors.Is(err, ErrInvalidCredentials):
		return "InvalidCredentials"
	case errors.Is(err, ErrRandomnessUnavailable):
		return "RandomnessUnavailable"
	case errors.Is(err, ErrMailDispatchFailed):
		return "MailDispatchFailed"
	case errors.Is(err, ErrSessionDestroyFailed):
		return "SessionDestroyFailed"
	case errors.Is(err, ErrNoImagesProvided):
		return "NoImagesProvided"
	case errors.Is(err, ErrImagesRequired):
		return "ImagesRequired"
	case errors.Is(err, ErrUnverifiedEmail):
		return "UnverifiedEmail"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.Is(err, ErrStoreUnavailable):
		return "StoreUnavailable"
	}
	return "Internal"
}
