package lru

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/clone-service/internal/entity"
)

type countingExtractor struct {
	calls int
	err   error
}

func (c *countingExtractor) Extract(_ context.Context, url string, _ entity.LogFunc) (*entity.PageSnapshot, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &entity.PageSnapshot{URL: url, ExtractedAt: time.Now()}, nil
}

func TestCachedExtractorServesRepeats(t *testing.T) {
	inner := &countingExtractor{}
	ex := NewCachedExtractor(inner, 4, time.Minute)
	ctx := context.Background()

	first, err := ex.Extract(ctx, "https://acme.test/", nil)
	require.NoError(t, err)
	var logs []string
	second, err := ex.Extract(ctx, "https://acme.test/", func(m string) { logs = append(logs, m) })
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Len(t, logs, 1)

	_, err = ex.Extract(ctx, "https://other.test/", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedExtractorDoesNotCacheErrors(t *testing.T) {
	inner := &countingExtractor{err: errors.New("boom")}
	ex := NewCachedExtractor(inner, 4, time.Minute)

	_, err := ex.Extract(context.Background(), "https://acme.test/", nil)
	assert.Error(t, err)
	_, err = ex.Extract(context.Background(), "https://acme.test/", nil)
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedExtractorDisabled(t *testing.T) {
	inner := &countingExtractor{}
	assert.Same(t, inner, NewCachedExtractor(inner, 0, time.Minute))
}

func TestEventLog(t *testing.T) {
	log, err := NewEventLog(1)
	require.NoError(t, err)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, log.Append(ctx, "a", entity.Event{Seq: i}))
	}
	events, err := log.Range(ctx, "a", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].Seq)

	// Capacity 1: a second clone evicts the first.
	require.NoError(t, log.Append(ctx, "b", entity.Event{Seq: 1}))
	events, err = log.Range(ctx, "a", 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}
