package redis

import (
	"context"
	"time"
)

const processedPrefix = "shop:processed:"

// Deduper remembers processed event ids for a limited time so redelivered
// events are applied once.
type Deduper struct {
	client *Client
	ttl    time.Duration
}

func NewDeduper(client *Client, ttl time.Duration) *Deduper {
	return &Deduper{client: client, ttl: ttl}
}

// Processed reports whether the event was marked by an earlier delivery.
func (d *Deduper) Processed(ctx context.Context, eventID string) (bool, error) {
	return d.client.Exists(ctx, processedPrefix+eventID)
}

// MarkProcessed records an applied event for the configured TTL.
func (d *Deduper) MarkProcessed(ctx context.Context, eventID string) error {
	return d.client.Mark(ctx, processedPrefix+eventID, d.ttl)
}
