package gates

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed schema.yaml
var schemaYAML []byte

// FieldRule constrains one researched field.
type FieldRule struct {
	Type    string   `yaml:"type"`
	Pattern string   `yaml:"pattern"`
	Min     *float64 `yaml:"min"`
	Max     *float64 `yaml:"max"`
	Allowed []string `yaml:"allowed"`
	// Partial accepts values containing any allowed entry.
	Partial bool `yaml:"partial"`

	re *regexp.Regexp
}

// Schema maps field names to rules.
type Schema struct {
	Fields map[string]*FieldRule `yaml:"fields"`
}

// LoadSchema parses the embedded field schema.
func LoadSchema() (*Schema, error) {
	return ParseSchema(schemaYAML)
}

// ParseSchema parses and compiles a YAML field schema.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse field schema: %w", err)
	}
	for name, rule := range s.Fields {
		switch rule.Type {
		case "string", "int", "list", "dict", "":
		default:
			return nil, fmt.Errorf("field %s: unknown type %q", name, rule.Type)
		}
		if rule.Pattern != "" {
			re, err := regexp.Compile("(?i)" + rule.Pattern)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", name, err)
			}
			rule.re = re
		}
	}
	return &s, nil
}

// SchemaGate checks changed fields against the field schema.
type SchemaGate struct {
	Schema *Schema
}

func (SchemaGate) Name() string { return NameSchema }

func (g SchemaGate) Check(_ context.Context, in Input) Result {
	errs := []string{}
	for _, name := range in.Changes.Keys() {
		if strings.HasPrefix(name, "_") {
			continue
		}
		rule, ok := g.Schema.Fields[name]
		if !ok {
			continue
		}
		errs = append(errs, rule.check(name, in.Changes[name])...)
	}

	msg := "All fields valid"
	if len(errs) > 0 {
		msg = strings.Join(errs, "; ")
	}
	return Result{
		Passed:  len(errs) == 0,
		Message: msg,
		Details: map[string]any{"errors": errs},
	}
}

func (r *FieldRule) check(name string, v any) []string {
	if got, ok := r.typeMatches(v); !ok {
		return []string{fmt.Sprintf("%s: expected %s, got %s", name, r.Type, got)}
	}

	var errs []string
	if s, ok := v.(string); ok && r.re != nil && !r.re.MatchString(s) {
		errs = append(errs, fmt.Sprintf("%s: value '%s' doesn't match expected pattern", name, s))
	}
	if n, ok := v.(float64); ok {
		if r.Min != nil && n < *r.Min {
			errs = append(errs, fmt.Sprintf("%s: value %v below minimum %v", name, n, *r.Min))
		}
		if r.Max != nil && n > *r.Max {
			errs = append(errs, fmt.Sprintf("%s: value %v above maximum %v", name, n, *r.Max))
		}
	}
	if len(r.Allowed) > 0 && !r.allows(v) {
		errs = append(errs, fmt.Sprintf("%s: value '%v' not in allowed list", name, v))
	}
	return errs
}

func (r *FieldRule) allows(v any) bool {
	s := fmt.Sprint(v)
	if slices.Contains(r.Allowed, s) {
		return true
	}
	if !r.Partial {
		return false
	}
	lower := strings.ToLower(s)
	for _, a := range r.Allowed {
		if strings.Contains(lower, strings.ToLower(a)) {
			return true
		}
	}
	return false
}

// typeMatches reports whether v has the rule's type, and names v's type.
func (r *FieldRule) typeMatches(v any) (string, bool) {
	got := jsonType(v)
	switch r.Type {
	case "":
		return got, true
	case "int":
		n, ok := v.(float64)
		return got, ok && n == math.Trunc(n)
	}
	return got, got == r.Type
}

func jsonType(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case float64:
		if t == math.Trunc(t) {
			return "int"
		}
		return "float"
	case []any:
		return "list"
	case map[string]any:
		return "dict"
	}
	return fmt.Sprintf("%T", v)
}
