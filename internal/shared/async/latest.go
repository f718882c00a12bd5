package async

import (
	"context"
	"sync"
)

// LatestLoader serializes overlapping loads so that only the most recently
// started one gets to deliver its result. Starting a new load cancels the
// context of the previous one; a stale load that finishes late is dropped
// even if its context was never observed.
type LatestLoader[T any] struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func NewLatestLoader[T any]() *LatestLoader[T] {
	return &LatestLoader[T]{}
}

// Load runs fetch and, if this is still the newest load when fetch returns,
// passes the result to apply. At most one apply happens per Load call, and a
// superseded load never applies.
func (l *LatestLoader[T]) Load(ctx context.Context, fetch func(context.Context) (T, error), apply func(T, error)) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.seq++
	seq := l.seq
	l.mu.Unlock()

	go func() {
		defer cancel()
		result, err := fetch(ctx)

		l.mu.Lock()
		stale := seq != l.seq
		l.mu.Unlock()
		if stale {
			return
		}
		apply(result, err)
	}()
}

// Cancel aborts the in-flight load, if any.
func (l *LatestLoader[T]) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.seq++
}
