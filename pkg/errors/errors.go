package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrBadRequest         = errors.New("bad request")
	ErrInternalServer     = errors.New("internal server error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")

	// ErrValidation is the parent of every input rejection on the chat relay.
	ErrValidation      = errors.New("validation failed")
	ErrEmptyMessage    = fmt.Errorf("%w: message must not be empty", ErrValidation)
	ErrMessageTooLong  = fmt.Errorf("%w: message is too long", ErrValidation)
	ErrInvalidRoomID   = fmt.Errorf("%w: invalid room id", ErrValidation)
	ErrRoomMismatch    = fmt.Errorf("%w: room does not match sender and receiver", ErrValidation)
	ErrInvalidCursor   = fmt.Errorf("%w: invalid cursor", ErrValidation)
	ErrInvalidEvent    = fmt.Errorf("%w: invalid event", ErrValidation)
	ErrInvalidIdentity = fmt.Errorf("%w: invalid identity", ErrValidation)

	ErrPersistence = errors.New("persistence failure")
	ErrRoomFull    = errors.New("room is full")
	ErrRateLimited = errors.New("rate limit exceeded")
)

type APIError struct {
	Message string `json:"error"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(message string, code int) *APIError {
	return &APIError{
		Message: message,
		Code:    code,
	}
}

func HTTPStatusFromError(err error) int {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrRoomFull), errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns the text that may be shown to a client for err.
// Anything unclassified collapses to a generic message.
func ClientMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return validationMessage(err)
	case errors.Is(err, ErrPersistence):
		return "message could not be delivered"
	case errors.Is(err, ErrRoomFull):
		return ErrRoomFull.Error()
	case errors.Is(err, ErrRateLimited):
		return ErrRateLimited.Error()
	case errors.Is(err, ErrTokenExpired):
		return ErrTokenExpired.Error()
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken):
		return ErrUnauthorized.Error()
	default:
		return "internal error"
	}
}

func validationMessage(err error) string {
	for _, known := range []error{
		ErrEmptyMessage, ErrMessageTooLong, ErrInvalidRoomID,
		ErrRoomMismatch, ErrInvalidCursor, ErrInvalidEvent, ErrInvalidIdentity,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return ErrValidation.Error()
}
