package providers

import (
	"context"
	"fmt"
)

// RoutedClient resolves its LLM client from a registry on every call, so
// provider reloads and default changes apply to the next request.
type RoutedClient struct {
	registry *Registry
	name     func() string
}

// NewRoutedClient returns a client that sends each request to the registry
// entry named by name().
func NewRoutedClient(registry *Registry, name func() string) *RoutedClient {
	return &RoutedClient{registry: registry, name: name}
}

// Name returns the currently selected provider name.
func (c *RoutedClient) Name() string {
	return c.name()
}

// Chat forwards req to the selected provider.
func (c *RoutedClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	name := c.name()
	if name == "" {
		return nil, fmt.Errorf("no LLM provider selected")
	}
	client, err := c.registry.GetLLM(name)
	if err != nil {
		return nil, err
	}
	return client.Chat(ctx, req)
}
