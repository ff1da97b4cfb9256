package linkrules

import (
	"errors"
	"net/http"
)

var ErrInvalidRule = errors.New("invalid link rule")

// MapHTTPStatus maps link rule errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrInvalidRule) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
