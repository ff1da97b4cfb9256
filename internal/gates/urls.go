package gates

import (
	"context"
	"fmt"
	"strings"

	"github.com/JaimeStill/affwiki/pkg/formatting"
	"github.com/JaimeStill/affwiki/pkg/urlcheck"
)

// URLChecker checks a single URL. *urlcheck.Checker satisfies it.
type URLChecker interface {
	Check(ctx context.Context, url string) urlcheck.Outcome
}

// URLGate verifies signup_url and http regional_links resolve.
type URLGate struct {
	Checker URLChecker
}

func (URLGate) Name() string { return NameURLs }

func (g URLGate) Check(ctx context.Context, in Input) Result {
	type target struct{ name, url string }
	var targets []target

	if u := in.Changes.String("signup_url"); strings.HasPrefix(u, "http") {
		targets = append(targets, target{"signup_url", u})
	}
	if links, ok := in.Changes["regional_links"].(map[string]any); ok {
		for _, region := range sortedKeys(links) {
			if u, _ := links[region].(string); strings.HasPrefix(u, "http") {
				targets = append(targets, target{"regional_" + region, u})
			}
		}
	}

	if len(targets) == 0 {
		return Result{
			Passed:  true,
			Message: "No URLs to verify",
			Details: map[string]any{"checked": 0},
		}
	}

	errs := []string{}
	for _, t := range targets {
		out := g.Checker.Check(ctx, t.url)
		if !out.Status.Failed() {
			continue
		}
		if out.HTTPCode >= 400 {
			errs = append(errs, fmt.Sprintf("%s: HTTP %d", t.name, out.HTTPCode))
		} else {
			errs = append(errs, fmt.Sprintf("%s: %s", t.name, formatting.Truncate(out.Error, 50)))
		}
	}

	msg := fmt.Sprintf("All %d URLs verified", len(targets))
	if len(errs) > 0 {
		msg = strings.Join(errs, "; ")
	}
	return Result{
		Passed:  len(errs) == 0,
		Message: msg,
		Details: map[string]any{"checked": len(targets), "errors": errs},
	}
}
