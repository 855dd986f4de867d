package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/fasihullahsaeed729-wq/study-bot/internal/prompt"
)

// MockClient provides deterministic local replies when no provider is
// configured.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Complete(ctx context.Context, messages []prompt.Message) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	question := ""
	if n := len(messages); n > 0 && messages[n-1].Role == prompt.RoleUser {
		question = messages[n-1].Content
	}
	// Assembled prompts are [system, history..., question]; anything between
	// the first and last message is history.
	lastHistory := ""
	if n := len(messages); n > 2 {
		lastHistory = messages[n-2].Content
	}

	base := strings.TrimSpace(question)
	if base == "" {
		base = "I am listening."
	}
	if strings.TrimSpace(lastHistory) == "" {
		return fmt.Sprintf("Let's work through it: %s", base), nil
	}
	return fmt.Sprintf("Let's work through it: %s\nEarlier we covered: %s", base, strings.TrimSpace(lastHistory)), nil
}
