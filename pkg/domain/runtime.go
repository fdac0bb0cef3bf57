// Runtime wiring: the owned object spec section 9 calls for in place of the
// original's process-wide global state ("encapsulate as an owned Runtime
// object with explicit init/teardown and no statics"), coordinating the
// named thread roles of spec section 5 that it owns (a delivery thread per
// delivery queue and the timed-event scheduler thread; no garbage-collect
// thread is started) via errgroup, grounded on controlplane/cmd/yncp-director/main.go's
// errgroup.WithContext(ctx) + wg.Go(...) shutdown shape.
package domain

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ddsgo/cyclone/internal/ddserror"
	"github.com/ddsgo/cyclone/pkg/delivery"
	"github.com/ddsgo/cyclone/pkg/security/keymaterial"
	"github.com/ddsgo/cyclone/pkg/timedevent"
)

// Runtime owns every Participant in one process, the shared instance
// registry they use (so instance handles are comparable across
// participants, not just within one), the key material store, and the
// timed-event scheduler thread retransmit timeouts and liveliness checks
// run on.
type Runtime struct {
	instances *InstanceRegistry
	keys      *keymaterial.Store
	scheduler *timedevent.Scheduler

	mu           sync.Mutex
	participants map[Guid]*Participant
	queues       []*delivery.Queue

	deleted bool
}

// NewRuntime constructs an empty Runtime.
func NewRuntime() *Runtime {
	return &Runtime{
		instances:    NewInstanceRegistry(),
		keys:         keymaterial.New(),
		scheduler:    timedevent.New(),
		participants: make(map[Guid]*Participant),
	}
}

// KeyMaterialStore returns the Runtime's shared Key Material Store
// (component H), used by a wire-protocol layer to install and look up
// participant/endpoint key material before invoking the Cryptographic
// Transform.
func (rt *Runtime) KeyMaterialStore() *keymaterial.Store { return rt.keys }

// Scheduler returns the Runtime's timed-event scheduler (component K's
// pkg/timedevent), the single goroutine Run below drives.
func (rt *Runtime) Scheduler() *timedevent.Scheduler { return rt.scheduler }

// CreateParticipant creates and registers a new Participant joining
// domainID, sharing this Runtime's instance registry.
func (rt *Runtime) CreateParticipant(guid Guid, domainID uint32) (*Participant, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.deleted {
		return nil, ddserror.New(ddserror.AlreadyDeleted, "domain: runtime already shut down")
	}
	if _, exists := rt.participants[guid]; exists {
		return nil, ddserror.New(ddserror.BadParameter, "domain: participant guid already in use")
	}
	p := NewParticipant(guid, domainID, rt.instances)
	rt.participants[guid] = p
	return p, nil
}

// DeleteParticipant deletes and unregisters a participant, cascading to its
// readers/writers via Participant.Delete. It does not itself unblock
// threads waiting on the participant's entities.
func (rt *Runtime) DeleteParticipant(guid Guid) {
	rt.mu.Lock()
	p, ok := rt.participants[guid]
	delete(rt.participants, guid)
	rt.mu.Unlock()
	if ok {
		p.Delete()
	}
}

// NewDeliveryQueue constructs a delivery.Queue (component D) owned by this
// Runtime, returned so the caller can Enqueue/EnqueueCallback/EnqueueRDGuid
// into it; Run below starts its consumer goroutine alongside every other
// named thread role.
func (rt *Runtime) NewDeliveryQueue(capacity int, handler delivery.Handler) *delivery.Queue {
	q := delivery.New(capacity, handler)
	rt.mu.Lock()
	rt.queues = append(rt.queues, q)
	rt.mu.Unlock()
	return q
}

// Run starts one goroutine per named thread role this Runtime owns — a
// delivery thread per delivery queue and the timed-event scheduler thread
// — via errgroup.WithContext, and blocks until ctx is canceled or any of
// them returns an error. Receive threads and application threads are the
// caller's own goroutines, driving ProxyWriter/Writer/Reader directly, so
// they are not started here.
func (rt *Runtime) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)

	rt.mu.Lock()
	queues := append([]*delivery.Queue(nil), rt.queues...)
	rt.mu.Unlock()

	for _, q := range queues {
		q := q
		group.Go(func() error {
			return q.Run(gctx)
		})
	}
	group.Go(func() error {
		return rt.scheduler.Run(gctx)
	})

	return group.Wait()
}

// Shutdown stops every delivery queue's consumer loop and marks the
// Runtime so further CreateParticipant calls fail, then lets Run's
// errgroup drain and return. Participants and their entities are not
// otherwise touched; callers that want a full teardown should
// DeleteParticipant each one first.
func (rt *Runtime) Shutdown() {
	rt.mu.Lock()
	rt.deleted = true
	queues := append([]*delivery.Queue(nil), rt.queues...)
	rt.mu.Unlock()
	for _, q := range queues {
		q.Stop()
	}
}
