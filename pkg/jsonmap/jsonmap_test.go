package jsonmap_test

import (
	"testing"

	"github.com/JaimeStill/affwiki/pkg/jsonmap"
)

func TestMapScan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want int
	}{
		{"null", nil, 0},
		{"bytes", []byte(`{"a":1,"b":"x"}`), 2},
		{"string", `{"a":1}`, 1},
		{"malformed treated as empty", []byte(`{"a":`), 0},
		{"array treated as empty", []byte(`[1,2]`), 0},
		{"json null", []byte(`null`), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m jsonmap.Map
			if err := m.Scan(tt.src); err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if m == nil {
				t.Fatal("Scan() left nil map")
			}
			if len(m) != tt.want {
				t.Errorf("len = %d, want %d", len(m), tt.want)
			}
		})
	}
}

func TestMapScanUnsupported(t *testing.T) {
	var m jsonmap.Map
	if err := m.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}
}

func TestMapValue(t *testing.T) {
	var nilMap jsonmap.Map
	v, err := nilMap.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if string(v.([]byte)) != "{}" {
		t.Errorf("nil Value() = %s, want {}", v)
	}

	v, err = jsonmap.Map{"a": 1}.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if string(v.([]byte)) != `{"a":1}` {
		t.Errorf("Value() = %s", v)
	}
}

func TestMapClone(t *testing.T) {
	orig := jsonmap.Map{"a": 1}
	c := orig.Clone()
	c["b"] = 2

	if _, ok := orig["b"]; ok {
		t.Error("Clone() shares storage with original")
	}

	var nilMap jsonmap.Map
	if nilMap.Clone() == nil {
		t.Error("Clone() of nil map returned nil")
	}
}

func TestMapKeys(t *testing.T) {
	got := jsonmap.Map{"c": 1, "a": 2, "b": 3}.Keys()
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", got, want)
		}
	}
}

func TestListScan(t *testing.T) {
	var l jsonmap.List
	if err := l.Scan([]byte(`[{"url":"https://a.com"},{"url":"https://b.com"}]`)); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(l) != 2 || l[1].String("url") != "https://b.com" {
		t.Errorf("Scan() = %v", l)
	}

	if err := l.Scan([]byte(`{"not":"a list"}`)); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(l) != 0 {
		t.Errorf("malformed list len = %d, want 0", len(l))
	}
}
