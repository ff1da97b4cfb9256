package gates

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

type policyRule struct {
	name  string
	match func(string) bool
}

var policyRules = []policyRule{
	{"no_script_injection", regexp.MustCompile(`(?i)<script|javascript:|onclick|onerror`).MatchString},
	{"no_data_urls", regexp.MustCompile(`(?i)data:text/html|data:application/`).MatchString},
	{"no_suspicious_redirects", mentionsShortener},
}

var shorteners = []string{"bit.ly", "tinyurl.com", "t.co"}

// hostPattern finds dotted host names, with or without a scheme. A match
// starts at the first label, so "www.target.com" is taken whole.
var hostPattern = regexp.MustCompile(`(?i)(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}`)

// mentionsShortener reports whether s names a shortener host or one of
// its subdomains. Hosts that merely end in the same letters do not count.
func mentionsShortener(s string) bool {
	for _, host := range hostPattern.FindAllString(s, -1) {
		host = strings.ToLower(host)
		for _, short := range shorteners {
			if host == short || strings.HasSuffix(host, "."+short) {
				return true
			}
		}
	}
	return false
}

// PolicyGate rejects script injection, data URLs, and URL shorteners in
// changed values and in the raw model response.
type PolicyGate struct{}

func (PolicyGate) Name() string { return NamePolicy }

func (PolicyGate) Check(_ context.Context, in Input) Result {
	violations := []string{}
	scan := func(where, s string) {
		for _, rule := range policyRules {
			if rule.match(s) {
				violations = append(violations, fmt.Sprintf("%s: %s", where, rule.name))
			}
		}
	}

	for _, field := range in.Changes.Keys() {
		switch v := in.Changes[field].(type) {
		case string:
			scan(field, v)
		case []any:
			for i, item := range v {
				if s, ok := item.(string); ok {
					scan(fmt.Sprintf("%s[%d]", field, i), s)
				}
			}
		case map[string]any:
			for _, k := range sortedKeys(v) {
				if s, ok := v[k].(string); ok {
					scan(field+"."+k, s)
				}
			}
		}
	}

	if in.RawResponse != "" {
		scan("raw_response", in.RawResponse)
	}

	msg := "No policy violations"
	if len(violations) > 0 {
		msg = strings.Join(violations, "; ")
	}
	return Result{
		Passed:  len(violations) == 0,
		Message: msg,
		Details: map[string]any{"violations": violations},
	}
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
