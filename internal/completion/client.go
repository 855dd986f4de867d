// Package completion talks to the hosted chat-completion service. The core
// treats the provider as an opaque synchronous collaborator: one request, one
// generated text, and a single failure kind for everything that goes wrong.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fasihullahsaeed729-wq/study-bot/internal/prompt"
)

// ErrUnavailable covers every provider failure: network, auth, quota, or a
// malformed response. Callers must not interpret partial responses.
var ErrUnavailable = errors.New("completion service unavailable")

// Client produces a completion for an assembled prompt.
type Client interface {
	Complete(ctx context.Context, messages []prompt.Message) (string, error)
}

// Config controls client construction.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// New builds a client for the configured provider mode.
func New(cfg Config) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "groq"
	}

	switch provider {
	case "groq":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("groq API key is required for the groq provider")
		}
		client := NewGroqClient(cfg.APIKey, cfg.BaseURL, cfg.Model)
		client.SetTimeout(cfg.Timeout)
		return client, nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported completion provider %q", cfg.Provider)
	}
}
