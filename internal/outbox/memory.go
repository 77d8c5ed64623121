package outbox

import (
	"context"
	"sync"
)

// MemOutbox is the in-memory backend, used in tests and single-shot
// reconcile requests where the payload arrives in the same call.
type MemOutbox struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemOutbox() *MemOutbox {
	return &MemOutbox{entries: map[string]Entry{}}
}

func (o *MemOutbox) Enqueue(_ context.Context, owner string, e Entry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries[owner] = e
	return nil
}

func (o *MemOutbox) Peek(_ context.Context, owner string) (Entry, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[owner]
	if !ok || e.Token == "" {
		delete(o.entries, owner)
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (o *MemOutbox) Ack(_ context.Context, owner string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.entries, owner)
	return nil
}
