package memory

import (
	"context"
	"sync"
	"time"
)

// flusher coalesces rapid successive session writes: dirty keys accumulate
// in a set and are written once per interval, so burst conversations cost
// one upsert per key per window instead of one per message.
type flusher struct {
	manager  *Manager
	interval time.Duration

	mu    sync.Mutex
	dirty map[string]struct{}

	stop chan struct{}
	done chan struct{}
}

func newFlusher(manager *Manager, interval time.Duration) *flusher {
	f := &flusher{
		manager:  manager,
		interval: interval,
		dirty:    make(map[string]struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *flusher) markDirty(key string) {
	f.mu.Lock()
	f.dirty[key] = struct{}{}
	f.mu.Unlock()
}

func (f *flusher) run() {
	defer close(f.done)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.flush()
		case <-f.stop:
			f.flush()
			return
		}
	}
}

func (f *flusher) flush() {
	f.mu.Lock()
	if len(f.dirty) == 0 {
		f.mu.Unlock()
		return
	}
	keys := make([]string, 0, len(f.dirty))
	for key := range f.dirty {
		keys = append(keys, key)
	}
	f.dirty = make(map[string]struct{})
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), f.interval)
	defer cancel()

	for _, key := range keys {
		f.manager.flushKey(ctx, key)
	}
}

func (f *flusher) close() {
	close(f.stop)
	<-f.done
}
