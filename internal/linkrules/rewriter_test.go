package linkrules_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/JaimeStill/affwiki/internal/linkrules"
)

type fakeSource struct {
	rules []linkrules.Rule
	err   error
	calls int
}

func (s *fakeSource) ListEnabled(context.Context) ([]linkrules.Rule, error) {
	s.calls++
	return s.rules, s.err
}

func ptr[T any](v T) *T { return &v }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDomainMatches(t *testing.T) {
	tests := []struct {
		host, pattern string
		want          bool
	}{
		{"amazon.com", "amazon.com", true},
		{"www.amazon.com", "amazon.com", true},
		{"amazon.com", "www.amazon.com", true},
		{"smile.amazon.com", "amazon.com", false},
		{"smile.amazon.com", "*.amazon.com", true},
		{"amazon.com", "*.amazon.com", true},
		{"evilamazon.com", "*.amazon.com", false},
		{"amazon.co.uk", "amazon.*", true},
		{"amazonia.com", "amazon.*", false},
		{"Amazon.COM", "amazon.com", true},
	}
	for _, tt := range tests {
		if got := linkrules.DomainMatches(tt.host, tt.pattern); got != tt.want {
			t.Errorf("DomainMatches(%q, %q) = %v, want %v", tt.host, tt.pattern, got, tt.want)
		}
	}
}

func TestRewrite(t *testing.T) {
	src := &fakeSource{rules: []linkrules.Rule{
		{
			ID:                1,
			MatchDomain:       "amazon.*",
			MatchPathPattern:  ptr("/dp/*"),
			AffiliateTemplate: "{url_raw}?tag={tag}",
			DefaultTag:        ptr("wiki-20"),
			ExceptionPaths:    []string{"/dp/B0*"},
			Priority:          500,
		},
		{
			ID:                2,
			MatchDomain:       "*.shop.com",
			AffiliateTemplate: "https://go.example/?u={url}&s={utm_source}&m={utm_medium}&c={utm_campaign}",
			UTMCampaign:       ptr("spring"),
			Priority:          100,
		},
	}}
	rw := linkrules.NewRewriter(src, time.Minute, discard())

	tests := []struct {
		name   string
		url    string
		params linkrules.Params
		want   string
	}{
		{"no match", "https://example.com/x", linkrules.Params{}, "https://example.com/x"},
		{"empty", "", linkrules.Params{}, ""},
		{"relative", "/dp/123", linkrules.Params{}, "/dp/123"},
		{"path glob crosses slashes", "https://amazon.de/dp/123/ref", linkrules.Params{}, "https://amazon.de/dp/123/ref?tag=wiki-20"},
		{"path mismatch", "https://amazon.de/gp/help", linkrules.Params{}, "https://amazon.de/gp/help"},
		{"exception path", "https://amazon.de/dp/B0ABC", linkrules.Params{}, "https://amazon.de/dp/B0ABC"},
		{
			"defaults and escaping",
			"https://www.shop.com/a b?x=1",
			linkrules.Params{},
			"https://go.example/?u=https%3A%2F%2Fwww.shop.com%2Fa%20b%3Fx%3D1&s=affiliateprograms.wiki&m=referral&c=spring",
		},
		{
			"params override",
			"https://shop.com/",
			linkrules.Params{UTMSource: "news", UTMCampaign: "fall"},
			"https://go.example/?u=https%3A%2F%2Fshop.com%2F&s=news&m=referral&c=fall",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rw.Rewrite(context.Background(), tt.url, tt.params)
			if err != nil {
				t.Fatalf("Rewrite: %v", err)
			}
			if got != tt.want {
				t.Errorf("Rewrite(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}

	if src.calls != 1 {
		t.Errorf("rules loaded %d times, want 1", src.calls)
	}
}

func TestRewriterCache(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{rules: []linkrules.Rule{}}
	rw := linkrules.NewRewriter(src, time.Minute, discard()).WithClock(func() time.Time { return now })
	ctx := context.Background()

	if err := rw.RefreshIfStale(ctx); err != nil {
		t.Fatal(err)
	}
	rw.RefreshIfStale(ctx)
	if src.calls != 1 {
		t.Fatalf("calls = %d, want 1 within ttl", src.calls)
	}

	now = now.Add(2 * time.Minute)
	rw.RefreshIfStale(ctx)
	if src.calls != 2 {
		t.Fatalf("calls = %d, want reload after ttl", src.calls)
	}

	rw.Invalidate()
	src.rules = []linkrules.Rule{{MatchDomain: "a.com", AffiliateTemplate: "x"}}
	rw.RefreshIfStale(ctx)
	if src.calls != 3 || rw.Count() != 1 {
		t.Fatalf("calls = %d count = %d after invalidate", src.calls, rw.Count())
	}

	rw.Invalidate()
	src.err = errors.New("db down")
	if err := rw.RefreshIfStale(ctx); err != nil {
		t.Errorf("reload failure with cached rules = %v, want nil", err)
	}
	if rw.Count() != 1 {
		t.Errorf("cached rules dropped")
	}
}

func TestRewriterLoadFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("db down")}
	rw := linkrules.NewRewriter(src, time.Minute, discard())

	got, err := rw.Rewrite(context.Background(), "https://a.com", linkrules.Params{})
	if err == nil {
		t.Fatal("expected error without cached rules")
	}
	if got != "https://a.com" {
		t.Errorf("Rewrite = %q, want input", got)
	}
}
