package events

import (
	"context"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler processes one matched event. It returns nothing; a handler
// panic is recovered and logged, never propagated back to the caller of
// Emit.
type Handler func(Event)

type subscription struct {
	id      uint64
	pattern string
	handler Handler
}

// Bus is an in-process publish/subscribe event bus with glob-style
// pattern matching and bounded background task tracking for
// fire-and-forget delivery.
type Bus struct {
	mu     sync.Mutex
	subs   []subscription
	nextID uint64

	tasks  sync.WaitGroup
	logger *slog.Logger
}

// New constructs an empty Bus. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers handler against a glob-style pattern matched
// against an event's type string ("policy.*", "*.created", "*").
// Returns an unsubscribe function.
func (b *Bus) Subscribe(pattern string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, pattern: pattern, handler: handler})
	return func() { b.remove(id) }
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) matching(eventType string) []Handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	var matched []Handler
	for _, s := range b.subs {
		ok, err := path.Match(s.pattern, eventType)
		if err == nil && ok {
			matched = append(matched, s.handler)
		}
	}
	return matched
}

// Emit builds an event from eventType/data, finds every subscriber whose
// pattern matches, and runs them. With fireAndForget true each handler
// runs as a tracked background goroutine; otherwise handlers run
// synchronously in registration order and Emit blocks until all finish.
// In both modes a handler panic is recovered and logged and never
// reaches the caller.
func (b *Bus) Emit(eventType string, data map[string]any, fireAndForget bool) Event {
	ev := Event{Type: eventType, Data: data, EventID: uuid.NewString()}
	handlers := b.matching(eventType)

	if !fireAndForget {
		for _, h := range handlers {
			b.runSafely(h, ev)
		}
		return ev
	}

	for _, h := range handlers {
		h := h
		b.tasks.Add(1)
		go func() {
			defer b.tasks.Done()
			b.runSafely(h, ev)
		}()
	}
	return ev
}

func (b *Bus) runSafely(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event_type", ev.Type, "event_id", ev.EventID, "panic", r)
		}
	}()
	h(ev)
}

// WaitForBackgroundTasks blocks until every fire-and-forget handler
// spawned so far has completed, or timeout elapses first. Returns true
// if all tasks drained before the deadline.
func (b *Bus) WaitForBackgroundTasks(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		b.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
