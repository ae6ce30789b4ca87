package optimistic

import (
	"context"
	"sync"
)

// Sequencer serializes work per key. Waiters on the same key are admitted in arrival
// order; different keys never block each other. Idle keys are dropped.
type Sequencer struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewSequencer() *Sequencer {
	return &Sequencer{slots: make(map[string]*slot)}
}

// Acquire blocks until key is free or ctx is done. The returned release must be
// called exactly once.
func (s *Sequencer) Acquire(ctx context.Context, key string) (func(), error) {
	s.mu.Lock()
	sl, ok := s.slots[key]
	if !ok {
		sl = &slot{ch: make(chan struct{}, 1)}
		s.slots[key] = sl
	}
	sl.refs++
	s.mu.Unlock()

	select {
	case sl.ch <- struct{}{}:
	case <-ctx.Done():
		s.unref(key, sl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-sl.ch
			s.unref(key, sl)
		})
	}, nil
}

func (s *Sequencer) unref(key string, sl *slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(s.slots, key)
	}
}

// Pending reports how many callers hold or wait for key.
func (s *Sequencer) Pending(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.slots[key]; ok {
		return sl.refs
	}
	return 0
}
