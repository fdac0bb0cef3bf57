// Package rbuf implements the receive-buffer pool (spec section 4.1,
// component A): reference-counted raw packet memory owned by one receive
// thread at allocation time, released from any thread via an atomic
// refcount. The design note calls for "a small Arc-like type whose payload
// is (live_chunks: AtomicU32, freeptr: AtomicPtr, capacity: usize, raw:
// Box<[u8]>)"; Buf below is exactly that, and Msg/Data are index-and-length
// handles into it rather than raw pointers.
package rbuf

import (
	"fmt"
	"sync/atomic"
)

const (
	// UncommittedBias is added to a fresh Msg's refcount so that it
	// survives synchronous processing even if no rdata ends up retained;
	// Commit subtracts it again (spec section 4.1).
	UncommittedBias = int64(1) << 31
	// RdataBias is added once per rdata the allocating thread stores or
	// forwards, and subtracted once by whichever downstream consumer (a
	// defragmenter, a reorder buffer, the delivery queue) finishes with
	// that rdata. The bias lets a single atomic subtract account for all
	// retained references without each consumer touching a shared counter
	// more than once.
	RdataBias = int64(1) << 20
)

// Buf is one fixed-capacity arena carved sequentially by a single
// allocating thread. liveChunks counts every Msg and overflow chunk carved
// from it, plus one implicit hold for whichever Pool currently considers it
// "current"; the arena's backing array is dropped only when liveChunks
// reaches zero.
type Buf struct {
	raw        []byte
	capacity   int
	freeptr    int // bump pointer; touched only by the owning pool's thread
	liveChunks int64
	released   atomic.Bool
}

func newBuf(capacity int) *Buf {
	return &Buf{raw: make([]byte, capacity), capacity: capacity, liveChunks: 1}
}

// carve reserves n bytes from the buffer's free region, returning nil, ok=false
// if insufficient contiguous space remains. Only the owning pool thread
// calls this.
func (b *Buf) carve(n int) ([]byte, bool) {
	if b.freeptr+n > b.capacity {
		return nil, false
	}
	region := b.raw[b.freeptr : b.freeptr+n]
	b.freeptr += n
	atomic.AddInt64(&b.liveChunks, 1)
	return region, true
}

// release drops one hold on the buffer. When the last hold is released the
// backing array is freed eagerly (set to nil) rather than left to the
// garbage collector, so storage-released is observable by tests (spec
// section 8's "R.storage has been released").
func (b *Buf) release() {
	if atomic.AddInt64(&b.liveChunks, -1) == 0 {
		b.released.Store(true)
		b.raw = nil
	}
}

// Released reports whether every chunk carved from this buffer, plus the
// pool's own hold, has been released.
func (b *Buf) Released() bool { return b.released.Load() }

// Pool owns raw packet memory for one receive thread (spec section 4.1:
// "owned by one receive thread (only that thread may allocate) but any
// thread may release"). Allocation methods are not safe to call
// concurrently from multiple goroutines; release paths (Msg.Commit,
// Msg.SubBias, Data release) are.
type Pool struct {
	bufCapacity int
	maxMsgSize  int
	current     *Buf
}

// NewPool constructs a pool whose arenas are bufCapacity bytes each, used to
// carve messages up to maxMsgSize bytes (header + payload) before an
// overflow chunk is needed.
func NewPool(bufCapacity, maxMsgSize int) *Pool {
	if maxMsgSize > bufCapacity {
		panic("rbuf: maxMsgSize must not exceed bufCapacity")
	}
	return &Pool{bufCapacity: bufCapacity, maxMsgSize: maxMsgSize, current: newBuf(bufCapacity)}
}

// region is one carved span of bytes plus the Buf it came from, used both
// for a Msg's primary reservation and for its overflow chunks.
type region struct {
	buf  *Buf
	data []byte
}

// alloc carves n bytes from the pool's current arena, minting (and
// releasing the pool's hold on the previous) arena if necessary.
func (p *Pool) alloc(n int) region {
	if n > p.bufCapacity {
		panic(fmt.Sprintf("rbuf: allocation of %d bytes exceeds arena capacity %d", n, p.bufCapacity))
	}
	if data, ok := p.current.carve(n); ok {
		return region{buf: p.current, data: data}
	}
	old := p.current
	p.current = newBuf(p.bufCapacity)
	old.release() // pool's own hold on the old arena; already-carved chunks keep it alive
	data, ok := p.current.carve(n)
	if !ok {
		panic("rbuf: fresh arena too small for requested allocation")
	}
	return region{buf: p.current, data: data}
}

// Msg is the header structure placed at the start of one packet's worth of
// rbuf space (spec section 4.1's RMsg). It owns a linked list of overflow
// chunks and a biased refcount.
type Msg struct {
	pool      *Pool
	primary   region
	overflow  []region
	refcount  int64
	committed atomic.Bool
}

// NewMsg reserves space for one message header plus up to the pool's
// maxMsgSize payload bytes, starting life with UncommittedBias so that it
// survives until Commit even with zero rdata stored.
func (p *Pool) NewMsg() *Msg {
	r := p.alloc(p.maxMsgSize)
	return &Msg{pool: p, primary: r, refcount: UncommittedBias}
}

// Payload returns the message's primary byte region, the allocating
// thread's scratch space for the just-received packet.
func (m *Msg) Payload() []byte { return m.primary.data }

// AllocOverflowChunk links a fresh chunk of n bytes onto this message when a
// submessage would otherwise exceed the message's reserved capacity (spec
// section 4.1 "Overflow chunks"). The entire chain shares the message's
// refcount.
func (m *Msg) AllocOverflowChunk(n int) []byte {
	r := m.pool.alloc(n)
	m.overflow = append(m.overflow, r)
	return r.data
}

// AddBias records that the allocating thread is storing or forwarding one
// more rdata referencing this message, per the bias-and-batch protocol.
func (m *Msg) AddBias() {
	atomic.AddInt64(&m.refcount, RdataBias)
}

// Commit subtracts UncommittedBias, the required call at the end of
// synchronous processing of the packet that owns this message. If the
// message turns out to have no retained rdata (the common case for
// uninteresting packets), storage is released immediately.
//
// Contract: the allocating thread performs every allocation before
// Commit; after Commit the message's bytes are immutable and the refcount
// is authoritative (spec section 4.1).
func (m *Msg) Commit() {
	if !m.committed.CompareAndSwap(false, true) {
		panic("rbuf: Msg committed twice")
	}
	if atomic.AddInt64(&m.refcount, -UncommittedBias) == 0 {
		m.releaseStorage()
	}
}

// SubBias is called exactly once by a consumer (a defrag sample interval, a
// reorder interval, the delivery queue) finished with the rdata it was
// retaining, accounting for an earlier AddBias in a single atomic
// subtraction. Releases storage if this was the last outstanding bias.
func (m *Msg) SubBias() {
	if atomic.AddInt64(&m.refcount, -RdataBias) == 0 {
		m.releaseStorage()
	}
}

// SubBiasN subtracts the bias for n retained rdata in a single atomic
// operation, the "batch" half of the bias-and-batch trick: a reorder
// buffer holding a whole chain of coalesced fragments releases them all at
// once instead of looping SubBias per fragment.
func (m *Msg) SubBiasN(n int) {
	if n == 0 {
		return
	}
	if atomic.AddInt64(&m.refcount, -RdataBias*int64(n)) == 0 {
		m.releaseStorage()
	}
}

func (m *Msg) releaseStorage() {
	m.primary.buf.release()
	for _, r := range m.overflow {
		r.buf.release()
	}
}

// Refcount returns the current raw refcount value, exposed for tests that
// assert the invariant in spec section 8 ("sum of per-worker refcount
// additions minus subtractions == 0 implies storage has been released").
func (m *Msg) Refcount() int64 { return atomic.LoadInt64(&m.refcount) }

// Released reports whether this message's storage (primary region and every
// overflow chunk) has been released: the message is committed and its
// refcount has dropped to zero. The arena a region was carved from is
// itself freed only once all of its chunks, and the pool's hold on the
// current arena, are released.
func (m *Msg) Released() bool {
	return m.committed.Load() && atomic.LoadInt64(&m.refcount) == 0
}

// Data is a read-data descriptor referencing a byte range within a Msg: a
// submessage's payload plus enough bookkeeping to walk a fragment chain
// (spec section 3's RData). It is never standalone; keeping one alive keeps
// its Msg's storage alive via the bias-and-batch refcount, not via a direct
// reference held here.
type Data struct {
	Msg            *Msg
	Min, Maxp1     uint32 // byte range [Min, Maxp1) this fragment covers within its sample
	SubmsgOffset   uint32
	PayloadOffset  uint32 // offset of this fragment's bytes within Msg's payload
	Next           *Data // next fragment in arrival order, nil if last
}

// Bytes returns this fragment's Maxp1-Min bytes, read from its owning
// message's payload starting at PayloadOffset (primary region only; callers
// that need overflow-chunk bytes address them directly via Msg.overflow
// semantics, which this package does not expose outside the primary span
// since no caller in this codebase splits a single rdata across the
// boundary).
func (d *Data) Bytes() []byte {
	return d.Msg.Payload()[d.PayloadOffset : d.PayloadOffset+(d.Maxp1-d.Min)]
}

// NewData constructs a Data descriptor over msg, calling AddBias on msg to
// record that this fragment is now retained by the caller (a defragmenter
// or reorder buffer). The caller must eventually arrange a single SubBias /
// SubBiasN call covering every Data it derived from msg.
func NewData(msg *Msg, min, maxp1, submsgOffset, payloadOffset uint32) *Data {
	msg.AddBias()
	return &Data{Msg: msg, Min: min, Maxp1: maxp1, SubmsgOffset: submsgOffset, PayloadOffset: payloadOffset}
}

// ReleaseChain walks a Data fragment chain (following Next) and subtracts
// the bias once per distinct Msg, batching every fragment from the same
// message into one SubBiasN call. Shared by every component that
// retains fragment chains across a Commit boundary (defrag intervals,
// reorder sample chains).
func ReleaseChain(head *Data) {
	if head == nil {
		return
	}
	counts := make(map[*Msg]int)
	for d := head; d != nil; d = d.Next {
		counts[d.Msg]++
	}
	for msg, n := range counts {
		msg.SubBiasN(n)
	}
}
