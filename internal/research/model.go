package research

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

// Model answers a research prompt with raw text.
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

type agentModel struct {
	chat func(ctx context.Context, prompt string) (string, error)
	name string
}

var _ Model = (*agentModel)(nil)

// NewAgentModel builds a Model backed by a go-agents chat agent.
func NewAgentModel(cfg *gaconfig.AgentConfig) (Model, error) {
	a, err := agent.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}

	name := cfg.Name
	if cfg.Model != nil && cfg.Model.Name != "" {
		name = cfg.Model.Name
	}

	return &agentModel{
		chat: func(ctx context.Context, prompt string) (string, error) {
			resp, err := a.Chat(ctx, prompt)
			if err != nil {
				return "", err
			}
			return resp.Content(), nil
		},
		name: name,
	}, nil
}

func (m *agentModel) Complete(ctx context.Context, prompt string) (string, error) {
	return m.chat(ctx, prompt)
}

func (m *agentModel) Name() string {
	return m.name
}

var transient = regexp.MustCompile(`(?i)\b(429|5\d\d)\b|rate.?limit|timed? ?out|temporar|unavailable|overloaded|connection reset`)

// Retryable reports whether a model error is worth another attempt:
// rate limits, server errors, and timeouts.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return transient.MatchString(err.Error())
}
