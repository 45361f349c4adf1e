// Package pubsub publishes completion events to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// EventAttribute carries the logical event name on every message.
const EventAttribute = "event"

// Config identifies the Pub/Sub topic that receives every event.
type Config struct {
	ProjectID string
	TopicID   string
}

// Publisher wraps a Pub/Sub topic publisher.
type Publisher struct {
	publisher *pubsub.Publisher
}

var _ prospect.Publisher = (*Publisher)(nil)

// New creates a Publisher for the provided topic publisher.
func New(publisher *pubsub.Publisher) *Publisher {
	return &Publisher{publisher: publisher}
}

// Connect dials Pub/Sub and returns a publisher plus a function that flushes
// pending messages and closes the client.
func Connect(ctx context.Context, cfg Config) (*Publisher, func() error, error) {
	if cfg.ProjectID == "" || cfg.TopicID == "" {
		return nil, nil, fmt.Errorf("pubsub project and topic are required")
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("create pubsub client: %w", err)
	}
	publisher := client.Publisher(cfg.TopicID)
	closeFn := func() error {
		publisher.Stop()
		return client.Close()
	}
	return New(publisher), closeFn, nil
}

// Publish marshals payload to JSON and waits for the server-assigned message ID.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if p.publisher == nil {
		return "", fmt.Errorf("pubsub publisher is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	msg := &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{EventAttribute: topic},
	}
	result := p.publisher.Publish(ctx, msg)
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", topic, err)
	}
	return id, nil
}
