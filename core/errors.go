package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	OrderErrorBadInput           = "ORDERS_BAD_INPUT"
	OrderErrorUnauthorized       = "ORDERS_UNAUTHORIZED"
	OrderErrorNotFound           = "ORDERS_NOT_FOUND"
	OrderErrorRateLimited        = "ORDERS_RATE_LIMITED"
	OrderErrorRemotePermanent    = "ORDERS_REMOTE_PERMANENT"
	OrderErrorRetriesExhausted   = "ORDERS_RETRIES_EXHAUSTED"
	OrderErrorRemoteFailure      = "ORDERS_REMOTE_FAILURE"
	OrderErrorDownstreamRejected = "ORDERS_DOWNSTREAM_REJECTED"
	OrderErrorStorageFailure     = "ORDERS_STORAGE_FAILURE"
	OrderErrorInternal           = "ORDERS_INTERNAL_ERROR"
)

// NewError builds the pipeline error envelope: category, HTTP code, text
// code, and a context metadata map (order id, stage, status code).
func NewError(message string, category goerrors.Category, metadata map[string]any) error {
	err := goerrors.New(message, category).
		WithCode(DefaultErrorCode(category)).
		WithTextCode(DefaultErrorTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// WrapError wraps a source error in the pipeline envelope.
func WrapError(source error, category goerrors.Category, message string, metadata map[string]any) error {
	if source == nil {
		return NewError(message, category, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(DefaultErrorCode(category)).
		WithTextCode(DefaultErrorTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func DefaultErrorTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return OrderErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return OrderErrorUnauthorized
	case goerrors.CategoryNotFound:
		return OrderErrorNotFound
	case goerrors.CategoryRateLimit:
		return OrderErrorRateLimited
	case goerrors.CategoryExternal:
		return OrderErrorRemoteFailure
	case goerrors.CategoryOperation:
		return OrderErrorStorageFailure
	default:
		return OrderErrorInternal
	}
}

func DefaultErrorCode(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsPermanent reports whether err carries the permanent remote failure
// text code, meaning retrying cannot help.
func IsPermanent(err error) bool {
	return hasTextCode(err, OrderErrorRemotePermanent)
}

// IsRetriesExhausted reports whether err is the bounded-retry exhaustion
// outcome.
func IsRetriesExhausted(err error) bool {
	return hasTextCode(err, OrderErrorRetriesExhausted)
}

// IsDownstreamRejection reports whether err records an internal API
// non-2xx response.
func IsDownstreamRejection(err error) bool {
	return hasTextCode(err, OrderErrorDownstreamRejected)
}

func hasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(richErr.TextCode), textCode)
}

// ErrorStatusCode extracts the HTTP code from an envelope error, falling
// back to 500 for untyped errors.
func ErrorStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code != 0 {
		return richErr.Code
	}
	return http.StatusInternalServerError
}
