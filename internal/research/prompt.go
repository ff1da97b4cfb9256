package research

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/JaimeStill/affwiki/internal/entities"
	"github.com/JaimeStill/affwiki/pkg/formatting"
	"github.com/JaimeStill/affwiki/pkg/jsonmap"
)

const promptTemplate = `You are an affiliate marketing research assistant. Extract specific,
structured data about affiliate programs. Be precise and factual. If
information is not available, use null.

Research the affiliate program for: %s
Domain: %s

Respond with a single JSON object using exactly these keys:

{
  "commission_rate": "percentage or flat fee",
  "cookie_duration_days": 30,
  "payout_model": "CPA | CPS | CPL | RevShare | Recurring | Hybrid",
  "minimum_payout": "threshold, e.g. $50",
  "payment_methods": ["PayPal", "Wire"],
  "payment_frequency": "weekly, monthly, net-30, ...",
  "tracking_platform": "Impact, ShareASale, CJ, Awin, Rakuten, in-house, ...",
  "requirements": "application requirements",
  "restrictions": "promotional restrictions such as no PPC",
  "signup_url": "official affiliate signup URL",
  "languages": ["en"],
  "countries": ["US"],
  "regional_links": {"region": "url"}
}

If this domain does NOT have an affiliate program, respond with:
{"no_program": "reason"}

Only include information you can verify.`

// Prompt renders the research prompt for a program.
func Prompt(p entities.Program) string {
	return fmt.Sprintf(promptTemplate, p.Name, p.Domain)
}

// noProgramError reports that the model found no affiliate program.
type noProgramError struct {
	Reason string
}

func (e *noProgramError) Error() string {
	return "no affiliate program: " + e.Reason
}

func (e *noProgramError) Is(target error) bool {
	return target == ErrNoProgram
}

var listFields = map[string]bool{
	"payment_methods": true,
	"languages":       true,
	"countries":       true,
}

var listSplit = regexp.MustCompile(`[,;]`)

// ParseResponse extracts researched fields from a model response. Unknown
// values are dropped. A no_program answer returns an error matching
// ErrNoProgram.
func ParseResponse(content string) (jsonmap.Map, error) {
	raw, err := formatting.Parse[jsonmap.Map](content)
	if err != nil {
		return nil, err
	}

	if v, ok := raw["no_program"]; ok && v != nil && v != false {
		reason, _ := v.(string)
		if reason == "" {
			reason = "not specified"
		}
		return nil, &noProgramError{Reason: reason}
	}

	fields := jsonmap.Map{}
	for key, v := range raw {
		if strings.HasPrefix(key, "_") || key == "no_program" {
			continue
		}
		if v, ok := normalize(key, v); ok {
			fields[key] = v
		}
	}
	return fields, nil
}

func normalize(key string, v any) (any, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if unknown(s) {
			return nil, false
		}
		v = s
	}

	switch {
	case v == nil:
		return nil, false
	case key == "cookie_duration_days":
		return days(v)
	case key == "regional_links":
		links, ok := v.(map[string]any)
		return links, ok && len(links) > 0
	case listFields[key]:
		return list(v)
	}
	return v, true
}

func unknown(s string) bool {
	switch strings.ToLower(s) {
	case "", "unknown", "none", "n/a", "null":
		return true
	}
	return false
}

func days(v any) (any, bool) {
	switch n := v.(type) {
	case float64:
		return n, n == math.Trunc(n)
	case string:
		d, err := strconv.Atoi(strings.Fields(n)[0])
		if err != nil {
			return nil, false
		}
		return float64(d), true
	}
	return nil, false
}

func list(v any) (any, bool) {
	var items []any
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && !unknown(strings.TrimSpace(s)) {
				items = append(items, strings.TrimSpace(s))
			}
		}
	case string:
		for _, part := range listSplit.Split(t, -1) {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	}
	return items, len(items) > 0
}

// Diff returns fields whose researched value differs from current.
// Internal fields are never part of a diff.
func Diff(current, researched jsonmap.Map) jsonmap.Map {
	changes := jsonmap.Map{}
	for key, v := range researched {
		if strings.HasPrefix(key, "_") {
			continue
		}
		if !reflect.DeepEqual(current[key], v) {
			changes[key] = v
		}
	}
	return changes
}
