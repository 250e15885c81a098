package lru

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/user/clone-service/internal/entity"
)

// EventLog keeps the event streams of the most recent clones in memory.
type EventLog struct {
	mu    sync.Mutex
	cache *lru.Cache[string, []entity.Event]
}

// NewEventLog keeps up to size clone streams.
func NewEventLog(size int) (*EventLog, error) {
	cache, err := lru.New[string, []entity.Event](size)
	if err != nil {
		return nil, err
	}
	return &EventLog{cache: cache}, nil
}

func (l *EventLog) Append(_ context.Context, cloneID string, ev entity.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	events, _ := l.cache.Get(cloneID)
	l.cache.Add(cloneID, append(events, ev))
	return nil
}

func (l *EventLog) Range(_ context.Context, cloneID string, fromSeq int64) ([]entity.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	events, _ := l.cache.Peek(cloneID)
	var out []entity.Event
	for _, ev := range events {
		if ev.Seq >= fromSeq {
			out = append(out, ev)
		}
	}
	return out, nil
}
