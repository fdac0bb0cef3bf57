// Package delivery implements the delivery queue (spec section 4.4,
// component D): a single-producer/single-consumer FIFO of reassembled
// sample chains plus typed bubbles, draining to reader callbacks on a
// dedicated background thread.
package delivery

import (
	"context"

	"github.com/ddsgo/cyclone/pkg/rbuf"
	"github.com/ddsgo/cyclone/pkg/reassembly/reorder"
)

// Guid identifies a reader (or, for RDGUID bubbles, a proxy reader) well
// enough to route a delivered sample chain without depending on
// pkg/domain, which itself depends on this package.
type Guid [16]byte

// Kind distinguishes a plain sample delivery from the three bubble types
// spec section 4.4 names.
type Kind int

const (
	// KindSample carries one delivered sample chain (the return value of
	// a reorder.Reorder.Insert/Gap call that reported Delivered).
	KindSample Kind = iota
	// KindStop tells the consumer to exit its run loop.
	KindStop
	// KindCallback carries an arbitrary thunk to run on the consumer
	// thread, used to serialize cross-thread calls into reader handlers.
	KindCallback
	// KindRDGuid sets "direct the next Count sample deliveries to Target"
	// mode, supporting out-of-sync match delivery: historical samples
	// replayed to a newly matched reader must be attributed to it
	// regardless of which reader ID the producer stamped on the item.
	KindRDGuid
)

// Item is one entry in the queue.
type Item struct {
	Kind     Kind
	ReaderID Guid
	Chain    *reorder.Entry // valid for KindSample
	Fn       func()         // valid for KindCallback
	Target   Guid           // valid for KindRDGuid
	Count    int            // valid for KindRDGuid
}

// Handler is invoked once per delivered sample chain, on the consumer
// thread only.
type Handler func(reader Guid, chain *reorder.Entry)

// Queue is the delivery queue for one participant's receive path. Exactly
// one goroutine may call Run; any number of goroutines may enqueue.
type Queue struct {
	items   chan Item
	handler Handler

	// RDGUID diversion state, touched only by the consumer goroutine.
	diverting    bool
	divertTarget Guid
	divertLeft   int
}

// New constructs a Queue with the given advisory capacity, invoking
// handler for every delivered sample chain.
func New(capacity int, handler Handler) *Queue {
	return &Queue{items: make(chan Item, capacity), handler: handler}
}

// IsFull is an advisory, best-effort check: producers may consult it
// before enqueuing low-value data (spec section 4.4), but a false
// negative or positive is not a correctness bug since the channel itself
// never drops or blocks incorrectly.
func (q *Queue) IsFull() bool {
	return len(q.items) >= cap(q.items)
}

// Enqueue hands a delivered sample chain to the queue, attributed to
// reader.
func (q *Queue) Enqueue(reader Guid, chain *reorder.Entry) {
	q.items <- Item{Kind: KindSample, ReaderID: reader, Chain: chain}
}

// EnqueueCallback schedules fn to run on the consumer thread.
func (q *Queue) EnqueueCallback(fn func()) {
	q.items <- Item{Kind: KindCallback, Fn: fn}
}

// EnqueueRDGuid sets diversion mode for the next count sample deliveries.
func (q *Queue) EnqueueRDGuid(target Guid, count int) {
	q.items <- Item{Kind: KindRDGuid, Target: target, Count: count}
}

// Stop enqueues a STOP bubble; Run returns nil once it is dequeued.
func (q *Queue) Stop() {
	q.items <- Item{Kind: KindStop}
}

// Run drains the queue until a STOP bubble is dequeued or ctx is
// cancelled, invoking handler for every sample chain and unreffing each
// fragment chain exactly once after the handler returns.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item := <-q.items:
			switch item.Kind {
			case KindStop:
				return nil
			case KindCallback:
				if item.Fn != nil {
					item.Fn()
				}
			case KindRDGuid:
				q.divertTarget = item.Target
				q.divertLeft = item.Count
				q.diverting = item.Count > 0
			case KindSample:
				q.deliver(item)
			}
		}
	}
}

func (q *Queue) deliver(item Item) {
	reader := item.ReaderID
	if q.diverting {
		reader = q.divertTarget
		q.divertLeft--
		if q.divertLeft <= 0 {
			q.diverting = false
		}
	}
	if q.handler != nil {
		q.handler(reader, item.Chain)
	}
	releaseChain(item.Chain)
}

// releaseChain unrefs every sample's underlying fragment chain exactly
// once, walking the reorder.Entry sample-level chain (distinct from the
// rbuf.Data fragment-level chain each Entry.Data heads).
func releaseChain(head *reorder.Entry) {
	for e := head; e != nil; e = e.Next {
		rbuf.ReleaseChain(e.Data)
	}
}
