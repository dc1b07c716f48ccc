// Package notifications publishes post lifecycle events over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/redis/go-redis/v9"
)

// PostEventsChannel is the Redis channel post events are published on.
const PostEventsChannel = "posts:events"

// Post lifecycle event types.
const (
	EventPostCreated = "post.created"
	EventPostUpdated = "post.updated"
	EventPostDeleted = "post.deleted"
)

// PostEvent is the payload published for every successful write.
type PostEvent struct {
	Type   string       `json:"type"`
	PostID string       `json:"postId"`
	Post   *models.Post `json:"post,omitempty"`
	At     time.Time    `json:"at"`
}

// Notifier provides helpers to publish events into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishPostEvent publishes ev on PostEventsChannel. It is a no-op without a client.
func (n *Notifier) PublishPostEvent(ctx context.Context, ev PostEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, PostEventsChannel, payload).Err(); err != nil {
		return err
	}
	observability.PostEvents.WithLabelValues(ev.Type).Inc()
	return nil
}
