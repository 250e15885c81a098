package usecase

import (
	"context"
	"sync"

	"github.com/user/clone-service/internal/entity"
)

// Progress serializes events from concurrent producers into one ordered
// stream. Seq increases by one per event and exactly one terminal event is
// delivered; anything emitted after it is dropped.
type Progress struct {
	mu      sync.Mutex
	cloneID string
	seq     int64
	out     chan entity.Event
	done    <-chan struct{}
	closed  bool
	sink    func(entity.Event)
}

// NewProgress creates a stream for cloneID. Sends block while the buffer is
// full until ctx is cancelled, after which events are dropped. sink, when
// non-nil, observes every delivered event in order.
func NewProgress(ctx context.Context, cloneID string, buffer int, sink func(entity.Event)) *Progress {
	return &Progress{
		cloneID: cloneID,
		out:     make(chan entity.Event, buffer),
		done:    ctx.Done(),
		sink:    sink,
	}
}

// Events is closed after the terminal event.
func (p *Progress) Events() <-chan entity.Event { return p.out }

func (p *Progress) Log(msg string) {
	p.emit(entity.Event{Log: msg})
}

func (p *Progress) Status(status entity.CloneStatus, msg string) {
	p.emit(entity.Event{Status: status, Message: msg})
}

func (p *Progress) Done(code, previewURL string, files map[string]string) {
	p.emit(entity.Event{Status: entity.StatusDone, Code: code, PreviewURL: previewURL, Files: files})
}

func (p *Progress) Fail(msg string) {
	p.emit(entity.Event{Status: entity.StatusError, Message: msg})
}

// Close ends the stream without a terminal event. It is a no-op after one.
func (p *Progress) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.out)
	}
}

// Finished reports whether the terminal event has been emitted.
func (p *Progress) Finished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Progress) emit(ev entity.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.seq++
	ev.Seq = p.seq
	ev.CloneID = p.cloneID

	select {
	case p.out <- ev:
	case <-p.done:
	}
	if p.sink != nil {
		p.sink(ev)
	}
	if ev.IsTerminal() {
		p.closed = true
		close(p.out)
	}
}
