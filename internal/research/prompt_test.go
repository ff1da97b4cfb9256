package research_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/JaimeStill/affwiki/internal/entities"
	"github.com/JaimeStill/affwiki/internal/research"
	"github.com/JaimeStill/affwiki/pkg/formatting"
	"github.com/JaimeStill/affwiki/pkg/jsonmap"
)

func TestParseResponse(t *testing.T) {
	content := "Here you go:\n```json\n" + `{
		"commission_rate": "30% recurring",
		"cookie_duration_days": "60 days",
		"payout_model": "Recurring",
		"minimum_payout": "Unknown",
		"payment_methods": "PayPal, Wire; Payoneer",
		"payment_frequency": null,
		"languages": ["en", "n/a", " de "],
		"countries": [],
		"regional_links": {"uk": "https://acme.co.uk/partners"},
		"signup_url": "https://acme.com/partners",
		"_internal": "dropped"
	}` + "\n```"

	got, err := research.ParseResponse(content)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}

	want := jsonmap.Map{
		"commission_rate":      "30% recurring",
		"cookie_duration_days": float64(60),
		"payout_model":         "Recurring",
		"payment_methods":      []any{"PayPal", "Wire", "Payoneer"},
		"languages":            []any{"en", "de"},
		"regional_links":       map[string]any{"uk": "https://acme.co.uk/partners"},
		"signup_url":           "https://acme.com/partners",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseResponse =\n%v\nwant\n%v", got, want)
	}
}

func TestParseResponseNoProgram(t *testing.T) {
	_, err := research.ParseResponse(`{"no_program": "domain is a personal blog"}`)
	if !errors.Is(err, research.ErrNoProgram) {
		t.Fatalf("err = %v, want ErrNoProgram", err)
	}
	if !strings.Contains(err.Error(), "personal blog") {
		t.Errorf("err = %v, want reason", err)
	}
}

func TestParseResponseInvalid(t *testing.T) {
	_, err := research.ParseResponse("COMMISSION: 20%")
	if !errors.Is(err, formatting.ErrParseFailed) {
		t.Fatalf("err = %v, want ErrParseFailed", err)
	}
}

func TestDiff(t *testing.T) {
	current := jsonmap.Map{
		"commission_rate":  "20%",
		"payment_methods":  []any{"PayPal"},
		"_needs_attention": true,
	}
	researched := jsonmap.Map{
		"commission_rate":  "20%",
		"payment_methods":  []any{"PayPal", "Wire"},
		"signup_url":       "https://acme.com/join",
		"_needs_attention": false,
	}

	got := research.Diff(current, researched)
	want := jsonmap.Map{
		"payment_methods": []any{"PayPal", "Wire"},
		"signup_url":      "https://acme.com/join",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Diff = %v, want %v", got, want)
	}
}

func TestPrompt(t *testing.T) {
	p := research.Prompt(entities.Program{Name: "Acme", Domain: "acme.com"})
	if !strings.Contains(p, "Research the affiliate program for: Acme\nDomain: acme.com") {
		t.Errorf("prompt missing program header:\n%s", p)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("status 429: too many requests"), true},
		{errors.New("provider returned 503"), true},
		{errors.New("Rate limited by provider"), true},
		{fmt.Errorf("chat: %w", context.DeadlineExceeded), true},
		{fmt.Errorf("dial: %w", timeoutErr{}), true},
		{errors.New("status 401: invalid token"), false},
		{errors.New("model not found"), false},
		{context.Canceled, false},
	}
	for _, tt := range tests {
		if got := research.Retryable(tt.err); got != tt.want {
			t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
