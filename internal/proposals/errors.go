package proposals

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JaimeStill/affwiki/internal/entities"
)

// Domain errors for editorial pipeline operations.
var (
	ErrNotFound        = errors.New("proposal not found")
	ErrDuplicate       = errors.New("proposal already exists")
	ErrInvalidProposal = errors.New("invalid proposal")
	ErrInvalidDecision = errors.New("decision must be approve, reject, or request_changes")
	ErrInvalidSEO      = errors.New("invalid seo metadata")
	ErrInvalidState    = errors.New("invalid proposal state")
	ErrUnpublishable   = errors.New("only program proposals can be published")
	ErrConflict        = errors.New("entity changed since proposal was created")
)

// StateError reports an operation attempted in a status that forbids it.
// It carries the current status so callers can resynchronize.
type StateError struct {
	Op      string
	Current Status
	Allowed []Status
}

func (e *StateError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = "'" + string(s) + "'"
	}
	return fmt.Sprintf(
		"cannot %s proposal with status '%s': must be %s",
		e.Op, e.Current, strings.Join(allowed, " or "),
	)
}

// Is matches ErrInvalidState.
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

// ConflictError lists the fields that changed under a strict publish.
type ConflictError struct {
	Fields []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConflict, strings.Join(e.Fields, ", "))
}

// Is matches ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// MapHTTPStatus maps pipeline errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrNotFound), errors.Is(err, entities.ErrUnknownType):
		return entities.MapHTTPStatus(err)
	case errors.Is(err, ErrConflict), errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidProposal),
		errors.Is(err, ErrInvalidDecision),
		errors.Is(err, ErrInvalidSEO),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrUnpublishable):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
