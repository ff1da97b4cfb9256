// Package pagination windows list endpoints by limit and offset.
package pagination

import (
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/JaimeStill/affwiki/pkg/query"
)

// SortFields decodes from either "status,-created_at" or a JSON array of
// query.SortField objects.
type SortFields []query.SortField

func (s *SortFields) UnmarshalJSON(data []byte) error {
	var joined string
	if json.Unmarshal(data, &joined) == nil {
		*s = query.ParseSortFields(joined)
		return nil
	}

	var fields []query.SortField
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*s = fields
	return nil
}

type PageRequest struct {
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
	Sort   SortFields `json:"sort,omitempty"`
}

// Normalize makes r safe to hand to a query: a missing limit becomes the
// default, an oversized one is capped and a negative offset becomes zero.
func (r *PageRequest) Normalize(cfg Config) {
	switch {
	case r.Limit < 1:
		r.Limit = cfg.DefaultLimit
	case r.Limit > cfg.MaxLimit:
		r.Limit = cfg.MaxLimit
	}
	r.Offset = max(r.Offset, 0)
}

// PageRequestFromQuery reads ?limit=&offset=&sort= and normalizes the
// result. Unparseable numbers count as absent.
func PageRequestFromQuery(values url.Values, cfg Config) PageRequest {
	atoi := func(key string) int {
		n, _ := strconv.Atoi(values.Get(key))
		return n
	}

	req := PageRequest{
		Limit:  atoi("limit"),
		Offset: atoi("offset"),
		Sort:   query.ParseSortFields(values.Get("sort")),
	}
	req.Normalize(cfg)
	return req
}

type PageResult[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (p PageResult[T]) HasMore() bool {
	return p.Offset+len(p.Data) < p.Total
}

// NewPageResult echoes the request window. Nil data encodes as [].
func NewPageResult[T any](data []T, total int, page PageRequest) PageResult[T] {
	if data == nil {
		data = []T{}
	}
	return PageResult[T]{Data: data, Total: total, Limit: page.Limit, Offset: page.Offset}
}
