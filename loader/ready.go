package loader

import (
	"context"
	"sync"
	"sync/atomic"
)

// Ready completes exactly once, with the loaded module or with the error
// that stopped it. Each Ready belongs to a single load.
type Ready struct {
	done    chan struct{}
	mod     *Module
	err     error
	once    sync.Once
	claimed atomic.Bool
}

func newReady() *Ready {
	return &Ready{done: make(chan struct{})}
}

// claim reserves r for one load. It fails if another load already owns r.
func (r *Ready) claim() bool {
	return r.claimed.CompareAndSwap(false, true)
}

func (r *Ready) resolve(m *Module) {
	r.once.Do(func() {
		r.mod = m
		close(r.done)
	})
}

func (r *Ready) reject(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

// Done is closed when the load finishes either way.
func (r *Ready) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the load finishes or ctx is done.
func (r *Ready) Wait(ctx context.Context) (*Module, error) {
	select {
	case <-r.done:
		return r.mod, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Err returns the load failure, or nil if the load succeeded or is still
// running.
func (r *Ready) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}
