// Package storage keeps write-once blobs in an Azure Blob Storage container.
// Link evidence is addressed by content hash, so a blob never changes once
// written and a repeated write is a no-op.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/JaimeStill/affwiki/pkg/lifecycle"
)

type System interface {
	// Start ensures the container exists once the lifecycle starts.
	Start(lc *lifecycle.Coordinator) error
	// Put writes body under key unless the key is taken. It reports
	// whether this call created the blob.
	Put(ctx context.Context, key string, body []byte, contentType string) (bool, error)
	// Open streams the blob at key, or returns ErrNotFound. The caller
	// closes the reader.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type container struct {
	client *azblob.Client
	name   string
	logger *slog.Logger
}

// New builds a client without contacting the service. ConnectionString
// wins when set; otherwise AccountURL is paired with the default Azure
// credential chain.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	opts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries: cfg.MaxRetries,
				TryTimeout: cfg.TryTimeoutDuration(),
			},
		},
	}

	client, err := newClient(cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &container{
		client: client,
		name:   cfg.ContainerName,
		logger: logger.With("system", "storage", "container", cfg.ContainerName),
	}, nil
}

func newClient(cfg *Config, opts *azblob.ClientOptions) (*azblob.Client, error) {
	if cfg.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(cfg.ConnectionString, opts)
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azblob.NewClient(cfg.AccountURL, cred, opts)
}

func (c *container) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() {
		_, err := c.client.CreateContainer(lc.Context(), c.name, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			// Evidence capture degrades to hash-only until the container appears.
			c.logger.Error("container unavailable", "error", err)
			return
		}
		c.logger.Info("container ready")
	})
	return nil
}

func (c *container) Put(ctx context.Context, key string, body []byte, contentType string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}

	absent := azcore.ETagAny
	_, err := c.client.UploadBuffer(ctx, c.name, key, body, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: &absent},
		},
	})
	switch {
	case err == nil:
		c.logger.Debug("blob written", "key", key, "bytes", len(body))
		return true, nil
	case bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet):
		return false, nil
	}
	return false, fmt.Errorf("put blob %s: %w", key, err)
}

func (c *container) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	resp, err := c.client.DownloadStream(ctx, c.name, key, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", key, err)
	}
	return resp.Body, nil
}

// ValidateKey accepts relative blob names without ".." segments.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return ErrEmptyKey
	case strings.HasPrefix(key, "/"), strings.Contains(key, ".."):
		return ErrInvalidKey
	}
	return nil
}

// Memory is an in-process System with the same write-once semantics,
// used by tests of packages that depend on storage.
type Memory struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: map[string][]byte{}}
}

func (m *Memory) Start(*lifecycle.Coordinator) error { return nil }

func (m *Memory) Put(_ context.Context, key string, body []byte, _ string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[key]; ok {
		return false, nil
	}
	m.blobs[key] = bytes.Clone(body)
	return true, nil
}

func (m *Memory) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Len reports how many blobs are held.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}
