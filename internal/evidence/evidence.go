// Package evidence captures content-addressed snapshots of source pages
// so proposals can cite exactly what a researcher saw.
package evidence

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JaimeStill/affwiki/pkg/jsonmap"
	"github.com/JaimeStill/affwiki/pkg/storage"
)

// MaxPageBytes bounds the body read from a captured page.
const MaxPageBytes = 5 << 20

var (
	ErrInvalidURL  = errors.New("snapshot url must be absolute http(s)")
	ErrInvalidHash = errors.New("snapshot hash must be 64 hex characters")
	ErrFetch       = errors.New("fetch page")
	ErrNoStorage   = errors.New("snapshot storage is disabled")
)

// MapHTTPStatus maps capture errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidURL), errors.Is(err, ErrInvalidHash):
		return http.StatusBadRequest
	case errors.Is(err, ErrFetch):
		return http.StatusBadGateway
	case errors.Is(err, ErrNoStorage):
		return http.StatusServiceUnavailable
	}
	return storage.MapHTTPStatus(err)
}

// Snapshot describes one captured page.
type Snapshot struct {
	URL        string    `json:"url"`
	Hash       string    `json:"snapshot_hash"`
	Title      string    `json:"title,omitempty"`
	Canonical  string    `json:"canonical,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
	Key        string    `json:"key,omitempty"`
}

// Source returns the snapshot as a proposal source entry.
func (s Snapshot) Source() jsonmap.Map {
	src := jsonmap.Map{
		"url":           s.URL,
		"snapshot_hash": s.Hash,
		"captured_at":   s.CapturedAt.UTC().Format(time.RFC3339),
	}
	if s.Title != "" {
		src["title"] = s.Title
	}
	return src
}

// Capturer fetches pages and stores them by content hash. With no store
// it still hashes and parses pages but keeps nothing.
type Capturer struct {
	client    *http.Client
	store     storage.System
	userAgent string
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Capturer. store may be nil.
func New(store storage.System, timeout time.Duration, userAgent string, logger *slog.Logger) *Capturer {
	return &Capturer{
		client:    &http.Client{Timeout: timeout},
		store:     store,
		userAgent: userAgent,
		logger:    logger.With("system", "evidence"),
		now:       time.Now,
	}
}

// WithClient replaces the HTTP client.
func (c *Capturer) WithClient(client *http.Client) *Capturer {
	c.client = client
	return c
}

// Capture fetches rawURL and records its snapshot.
func (c *Capturer) Capture(ctx context.Context, rawURL string) (*Snapshot, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}

	body, err := c.fetch(ctx, u.String())
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(body)
	snap := &Snapshot{
		URL:        u.String(),
		Hash:       hex.EncodeToString(sum[:]),
		CapturedAt: c.now().UTC(),
	}

	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
		snap.Title = strings.TrimSpace(doc.Find("title").First().Text())
		if href, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
			snap.Canonical = resolve(u, href)
		}
	}

	if c.store != nil {
		key := snapshotKey(snap.Hash)
		if err := c.put(ctx, key, body); err != nil {
			return nil, err
		}
		snap.Key = key
	}

	c.logger.Info("page captured", "url", snap.URL, "hash", snap.Hash, "stored", snap.Key != "")
	return snap, nil
}

// Open returns the stored page for a snapshot hash. The caller must close it.
func (c *Capturer) Open(ctx context.Context, hash string) (io.ReadCloser, error) {
	if c.store == nil {
		return nil, ErrNoStorage
	}
	if b, err := hex.DecodeString(hash); err != nil || len(b) != sha256.Size {
		return nil, ErrInvalidHash
	}
	return c.store.Open(ctx, snapshotKey(strings.ToLower(hash)))
}

func snapshotKey(hash string) string {
	return "snapshots/" + hash + ".html"
}

func (c *Capturer) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return body, nil
}

// put stores body once per content hash.
func (c *Capturer) put(ctx context.Context, key string, body []byte) error {
	created, err := c.store.Put(ctx, key, body, "text/html; charset=utf-8")
	if err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	if !created {
		c.logger.Debug("snapshot already stored", "key", key)
	}
	return nil
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
