// LLM Client - per-call timeout and usage accounting around a Provider.

package llm

import (
	"context"
	"fmt"
	"time"
)

// Client wraps a Provider with a per-call timeout.
type Client struct {
	provider Provider
	timeout  time.Duration
}

// NewClient creates a new LLM client from a provider.
// A zero timeout leaves calls bounded only by the caller's context.
func NewClient(provider Provider, timeout time.Duration) *Client {
	return &Client{provider: provider, timeout: timeout}
}

// Complete sends one decision request.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (Response, error) {
	parent := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.provider.Complete(ctx, messages, tools)
	if err != nil {
		if c.timeout > 0 && parent.Err() == nil && ctx.Err() == context.DeadlineExceeded {
			return Response{}, fmt.Errorf("%s model call timed out after %s", c.provider.Name(), c.timeout)
		}
		return Response{}, err
	}
	return resp, nil
}
