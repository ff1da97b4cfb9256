package pagination_test

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/JaimeStill/affwiki/pkg/pagination"
)

var cfg = pagination.Config{DefaultLimit: 50, MaxLimit: 200}

func TestPageRequestFromQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
		wantSort   int
	}{
		{"defaults", "", 50, 0, 0},
		{"explicit", "limit=10&offset=30", 10, 30, 0},
		{"limit clamped", "limit=1000", 200, 0, 0},
		{"negative offset floored", "offset=-5", 50, 0, 0},
		{"garbage ignored", "limit=abc&offset=xyz", 50, 0, 0},
		{"sort parsed", "sort=status,-created_at", 50, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			req := pagination.PageRequestFromQuery(values, cfg)

			if req.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", req.Limit, tt.wantLimit)
			}
			if req.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", req.Offset, tt.wantOffset)
			}
			if len(req.Sort) != tt.wantSort {
				t.Errorf("Sort = %v, want %d fields", req.Sort, tt.wantSort)
			}
		})
	}
}

func TestSortFieldsUnmarshal(t *testing.T) {
	var fromString struct {
		Sort pagination.SortFields `json:"sort"`
	}
	if err := json.Unmarshal([]byte(`{"sort":"-created_at"}`), &fromString); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if len(fromString.Sort) != 1 || !fromString.Sort[0].Descending {
		t.Errorf("string form = %v", fromString.Sort)
	}

	var fromArray struct {
		Sort pagination.SortFields `json:"sort"`
	}
	if err := json.Unmarshal([]byte(`{"sort":[{"Field":"status","Descending":false}]}`), &fromArray); err != nil {
		t.Fatalf("unmarshal array: %v", err)
	}
	if len(fromArray.Sort) != 1 || fromArray.Sort[0].Field != "status" {
		t.Errorf("array form = %v", fromArray.Sort)
	}
}

func TestNewPageResult(t *testing.T) {
	page := pagination.PageRequest{Limit: 2, Offset: 2}

	result := pagination.NewPageResult[string](nil, 5, page)
	if result.Data == nil {
		t.Error("Data is nil, want empty slice")
	}

	result = pagination.NewPageResult([]string{"a", "b"}, 5, page)
	if !result.HasMore() {
		t.Error("HasMore() = false, want true")
	}

	result = pagination.NewPageResult([]string{"a"}, 5, pagination.PageRequest{Limit: 2, Offset: 4})
	if result.HasMore() {
		t.Error("HasMore() on last page = true")
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var c pagination.Config
		if err := c.Finalize(nil); err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		if c.DefaultLimit != 50 || c.MaxLimit != 200 {
			t.Errorf("defaults = %+v", c)
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("TEST_PAGE_DEFAULT", "25")
		t.Setenv("TEST_PAGE_MAX", "500")

		var c pagination.Config
		err := c.Finalize(&pagination.ConfigEnv{DefaultLimit: "TEST_PAGE_DEFAULT", MaxLimit: "TEST_PAGE_MAX"})
		if err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		if c.DefaultLimit != 25 || c.MaxLimit != 500 {
			t.Errorf("env = %+v", c)
		}
	})

	t.Run("default exceeds max", func(t *testing.T) {
		c := pagination.Config{DefaultLimit: 300, MaxLimit: 100}
		if err := c.Finalize(nil); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("merge", func(t *testing.T) {
		c := pagination.Config{DefaultLimit: 50, MaxLimit: 200}
		c.Merge(&pagination.Config{MaxLimit: 500})
		if c.DefaultLimit != 50 || c.MaxLimit != 500 {
			t.Errorf("Merge() = %+v", c)
		}
	})
}
