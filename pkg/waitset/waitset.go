// Package waitset implements the socket wait-set (spec section 4.5,
// component E): a thread-safe, level-triggered readiness multiplexer with
// a single consumer. WaitSet itself is the platform-independent core
// contract; epoll_linux.go bridges it to real file descriptors on Linux,
// the design note's "three equivalent implementations (select/kqueue/
// WFMO)" reduced to the one this module actually ships a kernel backend
// for.
package waitset

import (
	"context"
	"sync"
)

type entry struct {
	index   int
	data    any
	pending bool
}

// WaitSet holds a set of registered connections, each identified by an
// opaque payload supplied at Add time, and lets one consumer wait for any
// of them to become ready.
type WaitSet struct {
	mu        sync.Mutex
	cond      *sync.Cond
	entries   []*entry
	nextIndex int
}

// New constructs an empty WaitSet.
func New() *WaitSet {
	ws := &WaitSet{}
	ws.cond = sync.NewCond(&ws.mu)
	return ws
}

// Handle is the registration returned by Add; callers use it to Trigger or
// Remove the connection later.
type Handle struct {
	ws    *WaitSet
	index int
}

// Add registers a new connection, identified to callers of Wait by data,
// and returns a Handle to trigger or remove it. Indices increase
// monotonically across the WaitSet's lifetime, the ordering Purge relies
// on.
func (ws *WaitSet) Add(data any) *Handle {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	idx := ws.nextIndex
	ws.nextIndex++
	ws.entries = append(ws.entries, &entry{index: idx, data: data})
	return &Handle{ws: ws, index: idx}
}

// Remove detaches the connection. Safe to call more than once.
func (h *Handle) Remove() {
	ws := h.ws
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for i, e := range ws.entries {
		if e.index == h.index {
			ws.entries = append(ws.entries[:i], ws.entries[i+1:]...)
			return
		}
	}
}

// Trigger marks the connection ready. Level-triggered: if called before
// the consumer's next Wait, that Wait returns immediately including this
// connection.
func (h *Handle) Trigger() {
	ws := h.ws
	ws.mu.Lock()
	for _, e := range ws.entries {
		if e.index == h.index {
			e.pending = true
			break
		}
	}
	ws.mu.Unlock()
	ws.cond.Broadcast()
}

// Purge detaches every connection added at or after index, atomically
// with respect to a concurrent Wait (spec section 4.5): a Wait blocked or
// in progress will not report a purged connection's readiness.
func (ws *WaitSet) Purge(index int) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	kept := ws.entries[:0:0]
	for _, e := range ws.entries {
		if e.index < index {
			kept = append(kept, e)
		}
	}
	ws.entries = kept
}

func (ws *WaitSet) anyPendingLocked() bool {
	for _, e := range ws.entries {
		if e.pending {
			return true
		}
	}
	return false
}

// Wait blocks until at least one connection is ready (or ctx is done),
// then returns every ready connection's data, each at most once, clearing
// their pending flags. Spurious wakeups are permitted by the contract but
// never manufactured by this implementation.
func (ws *WaitSet) Wait(ctx context.Context) ([]any, error) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			ws.cond.Broadcast()
		case <-stop:
		}
	}()

	ws.mu.Lock()
	defer ws.mu.Unlock()
	for !ws.anyPendingLocked() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ws.cond.Wait()
	}

	var out []any
	for _, e := range ws.entries {
		if e.pending {
			out = append(out, e.data)
			e.pending = false
		}
	}
	return out, nil
}
