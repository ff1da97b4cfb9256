// Package urlcheck classifies the liveness of URLs with bounded HEAD requests.
package urlcheck

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// DefaultUserAgent identifies outbound liveness checks.
const DefaultUserAgent = "Mozilla/5.0 (compatible; AffiliateWiki/1.0)"

const maxRedirects = 10

// Status is the classified outcome of a URL check.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusRedirect Status = "redirect"
	StatusBroken   Status = "broken"
	StatusTimeout  Status = "timeout"
)

// Failed reports whether the status represents an unreachable URL.
func (s Status) Failed() bool {
	return s == StatusBroken || s == StatusTimeout
}

// Outcome records a single check. Network failures are captured here
// rather than returned as errors.
type Outcome struct {
	URL           string        `json:"url"`
	Status        Status        `json:"status"`
	HTTPCode      int           `json:"http_status_code,omitempty"`
	FinalURL      string        `json:"final_url,omitempty"`
	RedirectChain []string      `json:"redirect_chain,omitempty"`
	ResponseTime  time.Duration `json:"-"`
	Error         string        `json:"error,omitempty"`
	CheckedAt     time.Time     `json:"checked_at"`
}

// ResponseTimeMS returns the response time in whole milliseconds.
func (o Outcome) ResponseTimeMS() int {
	return int(o.ResponseTime.Milliseconds())
}

// Checker performs URL checks.
type Checker struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// New creates a Checker with the given per-request timeout.
// A zero timeout defaults to 10 seconds.
func New(timeout time.Duration, userAgent string) *Checker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Checker{
		client:    &http.Client{},
		timeout:   timeout,
		userAgent: userAgent,
	}
}

// WithClient replaces the HTTP client used for requests.
func (c *Checker) WithClient(client *http.Client) *Checker {
	c.client = client
	return c
}

// Check issues a HEAD request following redirects and classifies the result.
// Codes below 400 are success, or redirect when the final URL differs.
func (c *Checker) Check(ctx context.Context, rawURL string) Outcome {
	out := Outcome{URL: rawURL, CheckedAt: time.Now().UTC()}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		out.Status = StatusBroken
		out.Error = err.Error()
		return out
	}
	req.Header.Set("User-Agent", c.userAgent)

	var chain []string
	client := *c.client
	client.CheckRedirect = func(next *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errors.New("too many redirects")
		}
		chain = append(chain, via[len(via)-1].URL.String())
		return nil
	}

	start := time.Now()
	resp, err := client.Do(req)
	out.ResponseTime = time.Since(start)

	if err != nil {
		out.Error = err.Error()
		if isTimeout(err) {
			out.Status = StatusTimeout
		} else {
			out.Status = StatusBroken
		}
		return out
	}
	resp.Body.Close()

	out.HTTPCode = resp.StatusCode
	out.FinalURL = resp.Request.URL.String()
	out.RedirectChain = chain

	switch {
	case resp.StatusCode >= 400:
		out.Status = StatusBroken
	case len(chain) > 0 && out.FinalURL != rawURL:
		out.Status = StatusRedirect
	default:
		out.Status = StatusSuccess
	}

	return out
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
