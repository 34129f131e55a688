package platform

import "context"

// PublishResult carries the destination's identifier for a published post.
type PublishResult struct {
	ExternalID string
}

// Adapter submits content to one destination platform. Adapters are
// pre-authenticated; credential management lives outside this service.
type Adapter interface {
	Publish(ctx context.Context, content string, metadata map[string]any) (*PublishResult, error)
}

// Registry maps platform names to their adapters.
type Registry map[string]Adapter

func (r Registry) For(platform string) (Adapter, bool) {
	a, ok := r[platform]
	return a, ok
}
