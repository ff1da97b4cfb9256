// Package jsonmap provides open-ended JSON document types backed by JSONB columns.
//
// Stored documents are intentionally schemaless. Scanning is lenient: a NULL
// or malformed column yields an empty value rather than an error, so a single
// corrupt row cannot fail a whole read or publish.
package jsonmap

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Map is a JSON object with arbitrary values.
type Map map[string]any

// Scan implements sql.Scanner.
func (m *Map) Scan(src any) error {
	*m = Map{}
	data, err := bytesOf(src)
	if err != nil || len(data) == 0 {
		return err
	}

	var decoded map[string]any
	if json.Unmarshal(data, &decoded) != nil {
		return nil
	}
	if decoded != nil {
		*m = decoded
	}
	return nil
}

// Value implements driver.Valuer. A nil map is stored as an empty object.
func (m Map) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(m))
}

// Clone returns a shallow copy. The result is never nil.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	maps.Copy(out, m)
	return out
}

// Keys returns the map keys in sorted order.
func (m Map) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// String returns the string value at key, or "" when absent or not a string.
func (m Map) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// List is a JSON array of objects, such as an ordered evidence list.
type List []Map

// Scan implements sql.Scanner.
func (l *List) Scan(src any) error {
	*l = List{}
	data, err := bytesOf(src)
	if err != nil || len(data) == 0 {
		return err
	}

	var decoded []Map
	if json.Unmarshal(data, &decoded) != nil {
		return nil
	}
	if decoded != nil {
		*l = decoded
	}
	return nil
}

// Value implements driver.Valuer. A nil list is stored as an empty array.
func (l List) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Map(l))
}

func bytesOf(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("jsonmap: unsupported scan type %T", src)
	}
}
