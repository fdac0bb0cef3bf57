// Package reorder implements the per-proxy-writer reorder buffer (spec
// section 4.3, component C): it holds out-of-order samples until the gap
// before them closes, then hands back the longest deliverable run as a
// linked chain. Like defrag, it keeps a small sorted-slice index of
// intervals rather than the original's AVL tree, justified the same way:
// the number of concurrently buffered gaps is bounded by max_samples.
package reorder

import (
	"sort"

	"github.com/ddsgo/cyclone/pkg/bitset"
	"github.com/ddsgo/cyclone/pkg/rbuf"
)

// Mode selects how aggressively samples are delivered out of order (spec
// section 4.3).
type Mode int

const (
	// Normal buffers out-of-order samples and only delivers a contiguous
	// run starting at next_seq.
	Normal Mode = iota
	// MonotonicIncreasing delivers on arrival whenever seq >= next_seq,
	// jumping next_seq forward without ever buffering.
	MonotonicIncreasing
	// AlwaysDeliver delivers on arrival whenever seq >= next_seq, exactly
	// like MonotonicIncreasing; a sample below next_seq is reported TooOld
	// even if it was never delivered.
	AlwaysDeliver
)

// Status reports the outcome of Insert or Gap.
type Status int

const (
	// Delivered means the caller should hand the returned chain to the
	// delivery queue immediately.
	Delivered Status = iota
	// Buffered means the sample (or gap) was accepted and is being held;
	// nothing is deliverable yet.
	Buffered
	// TooOld means seq is below next_seq and was dropped.
	TooOld
	// Rejected means the sample was a duplicate of one already buffered,
	// or the buffer could not grow to hold it (delivery queue full, or no
	// room under max_samples).
	Rejected
)

// Accepted reports whether storage already retains (or immediately handed
// off) whatever was inserted, i.e. the caller must not release its bias.
func (s Status) Accepted() bool { return s == Delivered || s == Buffered }

// Entry is one reordered sample in a delivery chain.
type Entry struct {
	Seq  uint64
	Data *rbuf.Data
	Next *Entry
}

// interval is a contiguous run of sequence numbers, either a run of
// buffered samples (first/last non-nil, count == number of samples) or a
// gap placeholder recorded by Gap before next_seq catches up to it
// (first == nil, count == 0).
type interval struct {
	min, maxp1 uint64
	first      *Entry
	last       *Entry
	count      int
}

func (iv *interval) appendEntry(e *Entry) {
	if iv.last == nil {
		iv.first, iv.last = e, e
		return
	}
	iv.last.Next = e
	iv.last = e
}

func (iv *interval) prependEntry(e *Entry) {
	if iv.first == nil {
		iv.first, iv.last = e, e
		return
	}
	e.Next = iv.first
	iv.first = e
}

// Reorder holds out-of-order samples for one proxy writer. Accessed only
// by its owning receive thread (spec section 5: "no locking").
type Reorder struct {
	mode       Mode
	maxSamples int
	nextSeq    uint64
	intervals  []*interval // sorted ascending by min, non-overlapping
	buffered   int         // count of samples (not gap placeholders) held
}

// New constructs a Reorder expecting startSeq next, holding at most
// maxSamples buffered samples at once.
func New(mode Mode, maxSamples int, startSeq uint64) *Reorder {
	return &Reorder{mode: mode, maxSamples: maxSamples, nextSeq: startSeq}
}

// NextSeq returns the lowest sequence number not yet delivered.
func (r *Reorder) NextSeq() uint64 { return r.nextSeq }

// Buffered returns the number of samples currently held awaiting delivery.
func (r *Reorder) Buffered() int { return r.buffered }

// predecessorIndex returns the index of the rightmost interval whose min
// is <= seq, or -1 if none.
func (r *Reorder) predecessorIndex(seq uint64) int {
	i := sort.Search(len(r.intervals), func(i int) bool { return r.intervals[i].min > seq })
	return i - 1
}

// Insert admits one newly received sample. deliveryQueueFull, when true,
// forbids growing the buffer even if max_samples would allow it (spec
// section 4.3's backpressure from the delivery queue).
//
// On Delivered, the caller owns the returned chain and must eventually
// release it (or hand it to the delivery queue, which will). On TooOld the
// caller must release data itself; on Rejected Insert has already released
// it.
func (r *Reorder) Insert(seq uint64, data *rbuf.Data, deliveryQueueFull bool) (Status, *Entry) {
	if seq < r.nextSeq {
		return TooOld, nil
	}

	switch r.mode {
	case MonotonicIncreasing, AlwaysDeliver:
		entry := &Entry{Seq: seq, Data: data}
		r.nextSeq = seq + 1
		return Delivered, entry
	}

	if seq == r.nextSeq {
		entry := &Entry{Seq: seq, Data: data}
		r.nextSeq = seq + 1
		if len(r.intervals) > 0 && r.intervals[0].min == r.nextSeq && r.intervals[0].count > 0 {
			iv := r.intervals[0]
			entry.Next = iv.first
			r.nextSeq = iv.maxp1
			r.buffered -= iv.count
			r.intervals = r.intervals[1:]
		}
		return Delivered, entry
	}

	predIdx := r.predecessorIndex(seq)
	if predIdx >= 0 && seq < r.intervals[predIdx].maxp1 {
		// Already buffered (or covered by a recorded gap): duplicate.
		rbuf.ReleaseChain(data)
		return Rejected, nil
	}

	if deliveryQueueFull {
		rbuf.ReleaseChain(data)
		return Rejected, nil
	}

	if r.buffered >= r.maxSamples {
		if !r.makeRoom() {
			rbuf.ReleaseChain(data)
			return Rejected, nil
		}
		predIdx = r.predecessorIndex(seq)
	}

	entry := &Entry{Seq: seq, Data: data}
	r.storeEntry(seq, entry, predIdx)
	r.buffered++
	return Buffered, entry
}

// storeEntry inserts entry at seq, merging with an adjacent predecessor or
// successor interval when contiguous, matching defrag's
// extend-then-merge-forward shape adapted to discrete sequence numbers
// (where contiguity means exact adjacency, not mere overlap).
func (r *Reorder) storeEntry(seq uint64, entry *Entry, predIdx int) {
	if predIdx >= 0 && r.intervals[predIdx].maxp1 == seq {
		pred := r.intervals[predIdx]
		pred.appendEntry(entry)
		pred.maxp1 = seq + 1
		pred.count++
		r.mergeForward(predIdx)
		return
	}

	succIdx := predIdx + 1
	if succIdx < len(r.intervals) && r.intervals[succIdx].min == seq+1 {
		succ := r.intervals[succIdx]
		succ.prependEntry(entry)
		succ.min = seq
		succ.count++
		return
	}

	iv := &interval{min: seq, maxp1: seq + 1, count: 1}
	iv.appendEntry(entry)
	r.intervals = append(r.intervals, nil)
	copy(r.intervals[succIdx+1:], r.intervals[succIdx:])
	r.intervals[succIdx] = iv
}

// mergeForward absorbs any successor intervals (sample-bearing or gap
// placeholders) now contiguous with the interval at idx.
func (r *Reorder) mergeForward(idx int) {
	cur := r.intervals[idx]
	j := idx + 1
	for j < len(r.intervals) && r.intervals[j].min <= cur.maxp1 {
		next := r.intervals[j]
		for e := next.first; e != nil; {
			n := e.Next
			e.Next = nil
			cur.appendEntry(e)
			e = n
		}
		if next.maxp1 > cur.maxp1 {
			cur.maxp1 = next.maxp1
		}
		cur.count += next.count
		j++
	}
	if j > idx+1 {
		r.intervals = append(r.intervals[:idx+1], r.intervals[j:]...)
	}
}

// makeRoom evicts the highest-numbered buffered sample to make space for a
// newcomer, preferring to keep samples closest to next_seq (nearest
// delivery). Reports false if nothing evictable was found (every
// remaining interval is a gap placeholder).
func (r *Reorder) makeRoom() bool {
	for i := len(r.intervals) - 1; i >= 0; i-- {
		if r.intervals[i].count > 0 {
			r.popTail(i)
			return true
		}
	}
	return false
}

func (r *Reorder) popTail(idx int) {
	iv := r.intervals[idx]
	evicted := iv.last
	rbuf.ReleaseChain(evicted.Data)

	if iv.count == 1 {
		r.intervals = append(r.intervals[:idx], r.intervals[idx+1:]...)
		r.buffered--
		return
	}

	prev := iv.first
	for prev.Next != iv.last {
		prev = prev.Next
	}
	prev.Next = nil
	iv.last = prev
	iv.maxp1--
	iv.count--
	r.buffered--
}

// Gap records that sequence numbers [lo, hi) will never be sent (from a
// Heartbeat or Gap submessage), advancing next_seq if lo has already been
// reached and discarding any buffered samples it overlaps.
func (r *Reorder) Gap(lo, hi uint64) (Status, *Entry) {
	if hi <= lo || hi <= r.nextSeq {
		return TooOld, nil
	}
	if lo < r.nextSeq {
		lo = r.nextSeq
	}

	r.discardRange(lo, hi)

	if lo > r.nextSeq {
		r.insertGapInterval(lo, hi)
		return Buffered, nil
	}

	r.nextSeq = hi
	if len(r.intervals) > 0 && r.intervals[0].min == r.nextSeq && r.intervals[0].count > 0 {
		iv := r.intervals[0]
		chainHead := iv.first
		r.nextSeq = iv.maxp1
		r.buffered -= iv.count
		r.intervals = r.intervals[1:]
		return Delivered, chainHead
	}
	if len(r.intervals) > 0 && r.intervals[0].min == r.nextSeq {
		// pure gap placeholder now exactly at the floor: absorb it too.
		iv := r.intervals[0]
		r.nextSeq = iv.maxp1
		r.intervals = r.intervals[1:]
	}
	return Buffered, nil
}

func (r *Reorder) insertGapInterval(lo, hi uint64) {
	predIdx := r.predecessorIndex(lo)
	if predIdx >= 0 && r.intervals[predIdx].maxp1 >= lo {
		pred := r.intervals[predIdx]
		if hi > pred.maxp1 {
			pred.maxp1 = hi
		}
		r.mergeForward(predIdx)
		return
	}

	succIdx := predIdx + 1
	if succIdx < len(r.intervals) && r.intervals[succIdx].min <= hi {
		succ := r.intervals[succIdx]
		if lo < succ.min {
			succ.min = lo
		}
		if hi > succ.maxp1 {
			succ.maxp1 = hi
			r.mergeForward(succIdx)
		}
		return
	}

	iv := &interval{min: lo, maxp1: hi}
	r.intervals = append(r.intervals, nil)
	copy(r.intervals[succIdx+1:], r.intervals[succIdx:])
	r.intervals[succIdx] = iv
}

// discardRange releases and removes every buffered sample whose sequence
// number falls in [lo, hi), splitting any interval the range punches a
// hole through.
func (r *Reorder) discardRange(lo, hi uint64) {
	var rebuilt []*interval
	for _, iv := range r.intervals {
		if iv.maxp1 <= lo || iv.min >= hi {
			rebuilt = append(rebuilt, iv)
			continue
		}

		var beforeFirst, beforeLast, afterFirst, afterLast *Entry
		beforeCount, afterCount := 0, 0
		for e := iv.first; e != nil; {
			next := e.Next
			e.Next = nil
			switch {
			case e.Seq < lo:
				if beforeFirst == nil {
					beforeFirst = e
				} else {
					beforeLast.Next = e
				}
				beforeLast = e
				beforeCount++
			case e.Seq >= hi:
				if afterFirst == nil {
					afterFirst = e
				} else {
					afterLast.Next = e
				}
				afterLast = e
				afterCount++
			default:
				rbuf.ReleaseChain(e.Data)
				r.buffered--
			}
			e = next
		}

		if beforeFirst != nil {
			rebuilt = append(rebuilt, &interval{min: iv.min, maxp1: lo, first: beforeFirst, last: beforeLast, count: beforeCount})
		} else if iv.min < lo && iv.first == nil {
			rebuilt = append(rebuilt, &interval{min: iv.min, maxp1: lo})
		}
		if afterFirst != nil {
			rebuilt = append(rebuilt, &interval{min: hi, maxp1: iv.maxp1, first: afterFirst, last: afterLast, count: afterCount})
		} else if iv.maxp1 > hi && iv.first == nil {
			rebuilt = append(rebuilt, &interval{min: hi, maxp1: iv.maxp1})
		}
	}
	r.intervals = rebuilt
}

// Nackmap reports, for each of the maxbits sequence numbers starting at
// base (capped below maxseq), whether it is still missing. notail
// suppresses bits past the highest sequence number this buffer has actual
// evidence for (an unreceived heartbeat range isn't necessarily a loss).
func (r *Reorder) Nackmap(base, maxseq uint64, maxbits int, notail bool) *bitset.NackBitmap {
	if maxseq <= base {
		return bitset.NewNackBitmap(0)
	}
	width := int(maxseq - base)
	if width > maxbits {
		width = maxbits
	}

	if notail {
		knownHigh := r.nextSeq
		if n := len(r.intervals); n > 0 {
			if h := r.intervals[n-1].maxp1; h > knownHigh {
				knownHigh = h
			}
		}
		if knownHigh <= base {
			width = 0
		} else if kw := int(knownHigh - base); kw < width {
			width = kw
		}
	}

	bm := bitset.NewNackBitmap(width)
	for i := 0; i < width; i++ {
		seq := base + uint64(i)
		if seq < r.nextSeq || r.covered(seq) {
			continue
		}
		bm.Set(i)
	}
	return bm
}

func (r *Reorder) covered(seq uint64) bool {
	idx := r.predecessorIndex(seq)
	if idx < 0 {
		return false
	}
	return seq < r.intervals[idx].maxp1
}
