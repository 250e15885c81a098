package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/clone-service/internal/entity"
)

func drain(ch <-chan entity.Event) []entity.Event {
	var out []entity.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestProgressOrdersEventsAndClosesAfterTerminal(t *testing.T) {
	var sunk []entity.Event
	p := NewProgress(context.Background(), "c1", 16, func(ev entity.Event) { sunk = append(sunk, ev) })

	p.Status(entity.StatusScraping, "Scraping website...")
	p.Log("hello")
	p.Done("code", "https://preview", map[string]string{"a": "b"})
	p.Log("after terminal")
	p.Fail("after terminal")

	events := drain(p.Events())
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Seq)
		assert.Equal(t, "c1", ev.CloneID)
	}
	assert.Equal(t, entity.StatusScraping, events[0].Status)
	assert.Equal(t, "hello", events[1].Log)
	assert.True(t, events[2].IsTerminal())
	assert.Equal(t, "https://preview", events[2].PreviewURL)
	assert.Equal(t, events, sunk)
	assert.True(t, p.Finished())
}

func TestProgressConcurrentProducersGetUniqueSequence(t *testing.T) {
	p := NewProgress(context.Background(), "c2", 1024, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p.Log("line")
			}
		}()
	}
	wg.Wait()
	p.Fail("boom")

	events := drain(p.Events())
	require.Len(t, events, 401)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
	assert.Equal(t, entity.StatusError, events[400].Status)
}

func TestProgressDropsEventsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewProgress(ctx, "c3", 0, nil)
	cancel()

	done := make(chan struct{})
	go func() {
		p.Log("nobody is listening")
		p.Fail("cancelled")
		close(done)
	}()
	<-done

	_, open := <-p.Events()
	assert.False(t, open)
}

func TestProgressCloseWithoutTerminal(t *testing.T) {
	p := NewProgress(context.Background(), "c4", 4, nil)
	p.Log("one")
	p.Close()
	p.Close()
	p.Log("dropped")

	events := drain(p.Events())
	require.Len(t, events, 1)
	assert.Equal(t, "one", events[0].Log)
}
