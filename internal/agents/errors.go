package agents

import (
	"errors"
	"net/http"
)

// Domain errors for agent authentication and key management.
var (
	ErrMissingKey     = errors.New("missing X-Agent-Key header")
	ErrInvalidKey     = errors.New("invalid or expired agent key")
	ErrForbidden      = errors.New("agent role not permitted for this operation")
	ErrInvalidRole    = errors.New("invalid agent role")
	ErrInvalidKeySpec = errors.New("invalid agent key")
	ErrKeyNotFound    = errors.New("agent key not found")
	ErrDuplicateKey   = errors.New("agent key already exists")
)

// MapHTTPStatus maps agent errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrMissingKey), errors.Is(err, ErrInvalidKey):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrKeyNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRole), errors.Is(err, ErrInvalidKeySpec):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
