// Package reporter provides rundriver.ProgressReporter implementations: an
// in-process, bounded drop-oldest channel sink for local consumers, and an
// optional Redis-backed adapter for a run driven from a separate process —
// the same fire-and-forget, never-block-the-caller discipline
// PricingRepository uses for its Redis cache writes.
package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TechniCodeCamp2025/fleet-api/internal/rundriver"
)

// ChannelReporter publishes progress events to a bounded channel, dropping
// the oldest unread event rather than blocking the run when nobody is
// draining it — a run must never stall waiting on a progress consumer.
type ChannelReporter struct {
	events chan rundriver.ProgressEvent
}

// NewChannelReporter builds a ChannelReporter with the given buffer size.
func NewChannelReporter(size int) *ChannelReporter {
	if size < 1 {
		size = 1
	}
	return &ChannelReporter{events: make(chan rundriver.ProgressEvent, size)}
}

// Report implements rundriver.ProgressReporter. It never blocks: if the
// channel is full, the oldest queued event is dropped to make room.
func (r *ChannelReporter) Report(_ context.Context, evt rundriver.ProgressEvent) {
	select {
	case r.events <- evt:
		return
	default:
	}
	select {
	case <-r.events:
	default:
	}
	select {
	case r.events <- evt:
	default:
	}
}

// Events returns the channel consumers read progress events from.
func (r *ChannelReporter) Events() <-chan rundriver.ProgressEvent {
	return r.events
}

// Close closes the events channel so readers see the end of the stream.
// A Report call after Close panics (send on a closed channel).
func (r *ChannelReporter) Close() {
	close(r.events)
}

// redisReportTTL bounds how long a published progress key lives, so a
// crashed run doesn't leave stale progress visible forever.
const redisReportTTL = 5 * time.Minute

// RedisReporter publishes the latest progress event to a Redis key, for a
// status-polling HTTP handler running in a different process than the run
// itself. Writes are fire-and-forget: a reporting hiccup must not abort
// the run.
type RedisReporter struct {
	client *redis.Client
	key    string
}

// NewRedisReporter builds a RedisReporter publishing under the given key
// (typically scoped by run id, e.g. "fleet:run:42:progress").
func NewRedisReporter(client *redis.Client, key string) *RedisReporter {
	return &RedisReporter{client: client, key: key}
}

// Report implements rundriver.ProgressReporter.
func (r *RedisReporter) Report(ctx context.Context, evt rundriver.ProgressEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		log.Printf("[reporter] marshal progress event: %v", err)
		return
	}
	if err := r.client.Set(ctx, r.key, payload, redisReportTTL).Err(); err != nil {
		log.Printf("[reporter] publish progress to redis: %v", err)
	}
}

// Latest reads back the most recently published progress event, for the
// run-status HTTP handler.
func (r *RedisReporter) Latest(ctx context.Context) (rundriver.ProgressEvent, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		return rundriver.ProgressEvent{}, fmt.Errorf("reporter: read progress: %w", err)
	}
	var evt rundriver.ProgressEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return rundriver.ProgressEvent{}, fmt.Errorf("reporter: decode progress: %w", err)
	}
	return evt, nil
}
