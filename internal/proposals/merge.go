package proposals

import (
	"fmt"
	"reflect"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/JaimeStill/affwiki/pkg/jsonmap"
)

// Provenance keys stamped onto every published document.
const (
	KeyLastEditorialUpdate = "last_editorial_update"
	KeyEditorialProposalID = "editorial_proposal_id"
	KeySEOMetadata         = "seo_metadata"
)

// CapturePrevious returns the current values of fields that changes would
// overwrite. Fields absent from current are omitted.
func CapturePrevious(current, changes jsonmap.Map) jsonmap.Map {
	prev := jsonmap.Map{}
	for k := range changes {
		if v, ok := current[k]; ok {
			prev[k] = v
		}
	}
	return prev
}

// Merge produces the published document: a flat union of current and
// changes with changes winning, stamped with provenance and any SEO
// metadata. Neither input is modified.
func Merge(current, changes jsonmap.Map, proposalID uuid.UUID, now time.Time, seo jsonmap.Map) jsonmap.Map {
	next := current.Clone()
	for k, v := range changes {
		next[k] = v
	}
	next[KeyLastEditorialUpdate] = now.UTC().Format(time.RFC3339Nano)
	next[KeyEditorialProposalID] = proposalID.String()
	if len(seo) > 0 {
		next[KeySEOMetadata] = seo.Clone()
	}
	return next
}

// Conflicts returns, sorted, the changed fields whose current value no
// longer matches the value captured at proposal creation, including fields
// that did not exist at capture and exist now.
func Conflicts(changes, previous, current jsonmap.Map) []string {
	var fields []string
	for k := range changes {
		was, captured := previous[k]
		now, exists := current[k]
		switch {
		case captured && !exists:
			fields = append(fields, k)
		case !captured && exists:
			fields = append(fields, k)
		case captured && !reflect.DeepEqual(was, now):
			fields = append(fields, k)
		}
	}
	slices.Sort(fields)
	return fields
}

// SEO presentation fields and their maximum lengths (0 = unbounded).
var seoFields = map[string]int{
	"title":            70,
	"meta_description": 160,
	"og_title":         70,
	"og_description":   200,
	"og_image":         0,
	"json_ld":          0,
	"internal_links":   0,
}

// SEOFields returns the accepted presentation field names, sorted.
func SEOFields() []string {
	names := make([]string, 0, len(seoFields))
	for k := range seoFields {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// FilterSEO keeps only the presentation fields, drops empty values, and
// enforces per-field length limits.
func FilterSEO(in map[string]any) (jsonmap.Map, error) {
	out := jsonmap.Map{}
	for k, v := range in {
		limit, ok := seoFields[k]
		if !ok || empty(v) {
			continue
		}
		if limit > 0 {
			s, isString := v.(string)
			if !isString {
				return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidSEO, k)
			}
			if utf8.RuneCountInString(s) > limit {
				return nil, fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidSEO, k, limit)
			}
		}
		out[k] = v
	}
	return out, nil
}

func empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case bool:
		return !t
	}
	return false
}
