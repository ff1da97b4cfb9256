package verification

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidRequest  = errors.New("invalid verification request")
	ErrProgramNotFound = errors.New("program not found")
)

// MapHTTPStatus maps verification errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrProgramNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
