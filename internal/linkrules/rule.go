// Package linkrules stores affiliate link rules and rewrites outbound URLs
// with the highest-priority matching rule.
package linkrules

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultPriority = 100
	MaxPriority     = 1000

	DefaultUTMSource = "affiliateprograms.wiki"
	DefaultUTMMedium = "referral"
)

// Rule maps a domain (and optionally a path glob) to an affiliate URL
// template.
type Rule struct {
	ID                int64     `json:"id"`
	MatchDomain       string    `json:"match_domain"`
	MatchPathPattern  *string   `json:"match_path_pattern"`
	AffiliateTemplate string    `json:"affiliate_template"`
	Network           *string   `json:"network"`
	DefaultTag        *string   `json:"default_tag"`
	UTMSource         *string   `json:"utm_source"`
	UTMMedium         *string   `json:"utm_medium"`
	UTMCampaign       *string   `json:"utm_campaign"`
	ExceptionPaths    []string  `json:"exception_paths"`
	Priority          int       `json:"priority"`
	Enabled           bool      `json:"is_enabled"`
	CreatedAt         time.Time `json:"created_at"`
}

// RuleList is the listing response.
type RuleList struct {
	Rules []Rule `json:"rules"`
	Total int    `json:"total"`
}

// CreateCommand is the request body for creating a rule.
type CreateCommand struct {
	MatchDomain       string   `json:"match_domain"`
	MatchPathPattern  *string  `json:"match_path_pattern"`
	AffiliateTemplate string   `json:"affiliate_template"`
	Network           *string  `json:"network"`
	DefaultTag        *string  `json:"default_tag"`
	ExceptionPaths    []string `json:"exception_paths"`
	Priority          *int     `json:"priority"`
}

// CreateResult is returned after a rule is stored.
type CreateResult struct {
	ID          int64     `json:"id"`
	MatchDomain string    `json:"match_domain"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c *CreateCommand) validate() error {
	c.MatchDomain = strings.TrimSpace(c.MatchDomain)
	switch {
	case c.MatchDomain == "":
		return fmt.Errorf("%w: match_domain is required", ErrInvalidRule)
	case c.AffiliateTemplate == "":
		return fmt.Errorf("%w: affiliate_template is required", ErrInvalidRule)
	}

	limits := []struct {
		name  string
		value *string
		max   int
	}{
		{"match_domain", &c.MatchDomain, 255},
		{"match_path_pattern", c.MatchPathPattern, 255},
		{"affiliate_template", &c.AffiliateTemplate, 1000},
		{"network", c.Network, 100},
		{"default_tag", c.DefaultTag, 100},
	}
	for _, l := range limits {
		if l.value != nil && utf8.RuneCountInString(*l.value) > l.max {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidRule, l.name, l.max)
		}
	}

	if c.Priority == nil {
		p := DefaultPriority
		c.Priority = &p
	}
	if *c.Priority < 0 || *c.Priority > MaxPriority {
		return fmt.Errorf("%w: priority must be between 0 and %d", ErrInvalidRule, MaxPriority)
	}
	if c.ExceptionPaths == nil {
		c.ExceptionPaths = []string{}
	}
	return nil
}
