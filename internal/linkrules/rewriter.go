package linkrules

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long loaded rules are reused before a reload.
const DefaultTTL = 5 * time.Minute

// Source loads the enabled rules in priority order. System satisfies it.
type Source interface {
	ListEnabled(ctx context.Context) ([]Rule, error)
}

// Params carries per-request UTM values. Empty fields fall back to the
// rule's values and then to the defaults.
type Params struct {
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
}

type compiledRule struct {
	Rule
	path       *regexp.Regexp
	exceptions []*regexp.Regexp
}

// Rewriter applies link rules to URLs, caching the rule set for a TTL.
type Rewriter struct {
	source Source
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	rules    []compiledRule
	loadedAt time.Time
	loaded   bool
}

func NewRewriter(source Source, ttl time.Duration, logger *slog.Logger) *Rewriter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Rewriter{
		source: source,
		ttl:    ttl,
		logger: logger.With("system", "rewriter"),
		now:    time.Now,
	}
}

// WithClock replaces the time source used for TTL checks.
func (rw *Rewriter) WithClock(now func() time.Time) *Rewriter {
	rw.now = now
	return rw
}

// Invalidate forces the next Rewrite to reload rules.
func (rw *Rewriter) Invalidate() {
	rw.mu.Lock()
	rw.loaded = false
	rw.mu.Unlock()
}

// RefreshIfStale reloads rules when none are cached or the TTL elapsed.
// A failed reload keeps serving the previous rules when there are any.
func (rw *Rewriter) RefreshIfStale(ctx context.Context) error {
	rw.mu.RLock()
	fresh := rw.loaded && rw.now().Sub(rw.loadedAt) < rw.ttl
	rw.mu.RUnlock()
	if fresh {
		return nil
	}

	rules, err := rw.source.ListEnabled(ctx)
	if err == nil {
		compiled := compile(rules, rw.logger)
		rw.mu.Lock()
		rw.rules = compiled
		rw.loadedAt = rw.now()
		rw.loaded = true
		rw.mu.Unlock()
		rw.logger.Debug("link rules loaded", "count", len(compiled))
		return nil
	}

	rw.mu.RLock()
	defer rw.mu.RUnlock()
	if rw.rules != nil {
		rw.logger.Warn("link rule reload failed, serving cached rules", "error", err)
		return nil
	}
	return fmt.Errorf("load link rules: %w", err)
}

// Rewrite returns the affiliate URL for raw, or raw unchanged when no
// rule matches, the path is an exception, or raw is not an absolute URL.
func (rw *Rewriter) Rewrite(ctx context.Context, raw string, p Params) (string, error) {
	if raw == "" {
		return raw, nil
	}
	if err := rw.RefreshIfStale(ctx); err != nil {
		return raw, err
	}

	rw.mu.RLock()
	rules := rw.rules
	rw.mu.RUnlock()
	return apply(rules, raw, p), nil
}

// Count returns the number of cached rules.
func (rw *Rewriter) Count() int {
	rw.mu.RLock()
	defer rw.mu.RUnlock()
	return len(rw.rules)
}

func compile(rules []Rule, logger *slog.Logger) []compiledRule {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		c := compiledRule{Rule: r}
		if r.MatchPathPattern != nil && *r.MatchPathPattern != "" {
			re, err := compileGlob(*r.MatchPathPattern)
			if err != nil {
				logger.Warn("skipping link rule with invalid path pattern", "id", r.ID, "error", err)
				continue
			}
			c.path = re
		}
		for _, exc := range r.ExceptionPaths {
			re, err := compileGlob(exc)
			if err != nil {
				logger.Warn("ignoring invalid exception path", "id", r.ID, "pattern", exc, "error", err)
				continue
			}
			c.exceptions = append(c.exceptions, re)
		}
		compiled = append(compiled, c)
	}
	return compiled
}

func apply(rules []compiledRule, raw string, p Params) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	host := strings.ToLower(u.Hostname())

	for _, r := range rules {
		if !DomainMatches(host, r.MatchDomain) {
			continue
		}
		if r.path != nil && !r.path.MatchString(u.Path) {
			continue
		}
		for _, exc := range r.exceptions {
			if exc.MatchString(u.Path) {
				return raw
			}
		}
		return expand(r.Rule, raw, p)
	}
	return raw
}

// DomainMatches reports whether host matches a rule domain pattern:
// "*.example.com" covers the apex and any subdomain, "example.*" covers any
// suffix, and anything else is exact with or without "www.".
func DomainMatches(host, pattern string) bool {
	host = strings.ToLower(host)
	pattern = strings.ToLower(pattern)

	switch {
	case strings.HasPrefix(pattern, "*."):
		apex := pattern[2:]
		return host == apex || strings.HasSuffix(host, "."+apex)
	case strings.HasSuffix(pattern, ".*"):
		return strings.HasPrefix(host, pattern[:len(pattern)-1])
	}
	return host == pattern || host == "www."+pattern || "www."+host == pattern
}

func expand(r Rule, raw string, p Params) string {
	return strings.NewReplacer(
		"{url}", strings.ReplaceAll(url.QueryEscape(raw), "+", "%20"),
		"{url_raw}", raw,
		"{tag}", deref(r.DefaultTag),
		"{utm_source}", first(p.UTMSource, deref(r.UTMSource), DefaultUTMSource),
		"{utm_medium}", first(p.UTMMedium, deref(r.UTMMedium), DefaultUTMMedium),
		"{utm_campaign}", first(p.UTMCampaign, deref(r.UTMCampaign)),
	).Replace(r.AffiliateTemplate)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
