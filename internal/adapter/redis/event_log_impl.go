package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/clone-service/internal/entity"
)

const eventLogPrefix = "clone:events:"

// EventLogRepoImpl archives clone events in a Redis list per clone.
type EventLogRepoImpl struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEventLogRepo creates a new instance of EventLogRepoImpl. Lists expire
// ttl after the last append.
func NewEventLogRepo(client *redis.Client, ttl time.Duration) *EventLogRepoImpl {
	return &EventLogRepoImpl{client: client, ttl: ttl}
}

func (r *EventLogRepoImpl) key(cloneID string) string {
	return eventLogPrefix + cloneID
}

// Append pushes the event to the right of the list, so LRANGE returns events
// in Seq order.
func (r *EventLogRepoImpl) Append(ctx context.Context, cloneID string, ev entity.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	key := r.key(cloneID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Range returns the events with Seq >= fromSeq. Seq starts at 1 and has no
// gaps, so the list index is Seq-1.
func (r *EventLogRepoImpl) Range(ctx context.Context, cloneID string, fromSeq int64) ([]entity.Event, error) {
	start := max(fromSeq-1, 0)
	raw, err := r.client.LRange(ctx, r.key(cloneID), start, -1).Result()
	if err != nil {
		return nil, err
	}
	events := make([]entity.Event, 0, len(raw))
	for _, item := range raw {
		var ev entity.Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		if ev.Seq >= fromSeq {
			events = append(events, ev)
		}
	}
	return events, nil
}
