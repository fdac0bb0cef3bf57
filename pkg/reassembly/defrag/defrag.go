// Package defrag implements the per-writer fragment reassembler (spec
// section 4.2, component B). It replaces the original's AVL-tree-of-
// intervals-per-sample with a small sorted-slice index per the design
// note's "array-backed B-tree ... for defrag byte offsets", acceptable
// because sample and interval counts are bounded by MaxSamples and by
// fragmentation factor respectively.
package defrag

import (
	"sort"

	"github.com/ddsgo/cyclone/pkg/bitset"
	"github.com/ddsgo/cyclone/pkg/rbuf"
)

// Policy selects what happens when adding a fragment for a previously
// unseen sequence number would exceed MaxSamples.
type Policy int

const (
	// DropLatest discards the newcomer fragment when it belongs to the
	// highest-seq sample and the cap is already full.
	DropLatest Policy = iota
	// DropOldest evicts the lowest-seq in-flight sample to make room,
	// unless the newcomer is itself older than that sample, in which case
	// the newcomer is dropped instead.
	DropOldest
)

// DropReason classifies why a sample was discarded before completion, fed
// to an OnDrop callback (SPEC_FULL.md section C.3, a supplemental
// observability hook not present in spec.md).
type DropReason int

const (
	DropReasonDuplicateFragment DropReason = iota
	DropReasonNoteGap
	DropReasonCapLatest
	DropReasonCapOldest
)

// interval is one non-overlapping, non-adjacent contiguous byte range
// received for a sample, with its fragment chain in arrival order (spec
// section 3's "Defrag interval").
type interval struct {
	min, maxp1 uint32
	first      *rbuf.Data
	last       *rbuf.Data
}

func (iv *interval) append(d *rbuf.Data) {
	if iv.last == nil {
		iv.first, iv.last = d, d
		return
	}
	iv.last.Next = d
	iv.last = d
}

func (iv *interval) prepend(d *rbuf.Data) {
	if iv.first == nil {
		iv.first, iv.last = d, d
		return
	}
	d.Next = iv.first
	iv.first = d
}

// sample tracks one (writer, sequence-number) reassembly in progress.
type sample struct {
	seq       uint64
	totalSize uint32
	intervals []*interval // sorted ascending by min, non-overlapping, non-adjacent
}

func (s *sample) complete() bool {
	return len(s.intervals) == 1 && s.intervals[0].min == 0 && s.intervals[0].maxp1 == s.totalSize
}

// predecessorIndex returns the index of the rightmost interval whose min is
// <= at, or -1 if none.
func (s *sample) predecessorIndex(at uint32) int {
	i := sort.Search(len(s.intervals), func(i int) bool { return s.intervals[i].min > at })
	return i - 1
}

// Defragmenter reassembles fragmented samples for a single proxy writer.
// Accessed only by its owning receive thread, per spec section 5 ("no
// locking").
type Defragmenter struct {
	maxSamples int
	policy     Policy
	samples    map[uint64]*sample
	order      []uint64 // sorted ascending, kept in sync with samples
	onDrop     func(seq uint64, reason DropReason)
}

// New constructs a Defragmenter bounded to maxSamples concurrently in-flight
// samples.
func New(maxSamples int, policy Policy) *Defragmenter {
	return &Defragmenter{
		maxSamples: maxSamples,
		policy:     policy,
		samples:    make(map[uint64]*sample),
	}
}

// OnDrop installs a callback invoked whenever an in-flight sample is
// discarded before completion (SPEC_FULL.md section C.3).
func (d *Defragmenter) OnDrop(fn func(seq uint64, reason DropReason)) {
	d.onDrop = fn
}

func (d *Defragmenter) notifyDrop(seq uint64, reason DropReason) {
	if d.onDrop != nil {
		d.onDrop(seq, reason)
	}
}

func (d *Defragmenter) insertOrder(seq uint64) {
	i := sort.Search(len(d.order), func(i int) bool { return d.order[i] >= seq })
	d.order = append(d.order, 0)
	copy(d.order[i+1:], d.order[i:])
	d.order[i] = seq
}

func (d *Defragmenter) removeOrder(seq uint64) {
	i := sort.Search(len(d.order), func(i int) bool { return d.order[i] >= seq })
	if i < len(d.order) && d.order[i] == seq {
		d.order = append(d.order[:i], d.order[i+1:]...)
	}
}

// evictForNewSample applies the max-sample policy before admitting a
// fragment for a brand-new sequence number. Returns false if the newcomer
// itself must be dropped.
func (d *Defragmenter) evictForNewSample(seq uint64) bool {
	if len(d.samples) < d.maxSamples {
		return true
	}
	switch d.policy {
	case DropLatest:
		maxSeq := d.order[len(d.order)-1]
		if seq > maxSeq {
			d.notifyDrop(seq, DropReasonCapLatest)
			return false
		}
		// newcomer is not the highest; evict the current highest to make
		// room, mirroring DROP_LATEST's intent of always keeping the
		// lowest-numbered in-flight samples.
		d.discardSample(maxSeq, DropReasonCapLatest)
		return true
	case DropOldest:
		minSeq := d.order[0]
		if seq < minSeq {
			d.notifyDrop(seq, DropReasonCapOldest)
			return false
		}
		d.discardSample(minSeq, DropReasonCapOldest)
		return true
	default:
		return true
	}
}

func (d *Defragmenter) discardSample(seq uint64, reason DropReason) {
	s, ok := d.samples[seq]
	if !ok {
		return
	}
	releaseSample(s)
	delete(d.samples, seq)
	d.removeOrder(seq)
	d.notifyDrop(seq, reason)
}

func releaseSample(s *sample) {
	for _, iv := range s.intervals {
		rbuf.ReleaseChain(iv.first)
	}
}

// AddFragment adds one fragment spanning [fragMin, fragMaxp1) of a sample
// of size totalSize for sequence number seq. Reports whether the sample
// completed, and if so, a Sample you can walk to read its bytes and must
// later Release.
func (d *Defragmenter) AddFragment(data *rbuf.Data, seq uint64, fragMin, fragMaxp1, totalSize uint32) (*Sample, error) {
	s, exists := d.samples[seq]
	if !exists {
		if !d.evictForNewSample(seq) {
			rbuf.ReleaseChain(data)
			return nil, nil
		}
		s = &sample{seq: seq, totalSize: totalSize}
		// Sentinel interval [0,0) when the first fragment received is not
		// at offset 0 (spec section 4.2): makes the "extend predecessor at
		// the tail" / "prepend to successor" logic uniform without special
		// casing index -1.
		if fragMin != 0 {
			s.intervals = append(s.intervals, &interval{min: 0, maxp1: 0})
		}
		d.samples[seq] = s
		d.insertOrder(seq)
	}

	data.Min, data.Maxp1 = fragMin, fragMaxp1
	addFragmentToSample(s, data)

	if s.complete() {
		delete(d.samples, seq)
		d.removeOrder(seq)
		return &Sample{Seq: seq, TotalSize: s.totalSize, head: s.intervals[0].first}, nil
	}
	return nil, nil
}

func addFragmentToSample(s *sample, d *rbuf.Data) {
	predIdx := s.predecessorIndex(d.Min)

	if predIdx >= 0 {
		pred := s.intervals[predIdx]
		if d.Maxp1 <= pred.maxp1 {
			// Step 1: entirely within predecessor, duplicate.
			rbuf.ReleaseChain(d)
			return
		}
		if d.Min <= pred.maxp1 {
			// Step 2: extends predecessor at the tail (or touches it).
			pred.append(d)
			pred.maxp1 = d.Maxp1
			mergeForward(s, predIdx)
			return
		}
	}

	succIdx := predIdx + 1
	if succIdx < len(s.intervals) {
		succ := s.intervals[succIdx]
		if d.Maxp1 >= succ.min {
			// Step 3: touches or overlaps the immediate successor from
			// below; prepend and coalesce.
			succ.prepend(d)
			if d.Min < succ.min {
				succ.min = d.Min
			}
			mergeForward(s, succIdx)
			return
		}
	}

	// Step 4: brand new interval, inserted in sorted position.
	iv := &interval{min: d.Min, maxp1: d.Maxp1, first: d, last: d}
	s.intervals = append(s.intervals, nil)
	copy(s.intervals[succIdx+1:], s.intervals[succIdx:])
	s.intervals[succIdx] = iv
}

// mergeForward greedily absorbs any successor intervals whose min is <= the
// interval at idx's current maxp1, per spec section 4.2 "extend maxp1, then
// greedily merge with any successor whose min <= new maxp1."
func mergeForward(s *sample, idx int) {
	cur := s.intervals[idx]
	j := idx + 1
	for j < len(s.intervals) && s.intervals[j].min <= cur.maxp1 {
		next := s.intervals[j]
		cur.append(next.first)
		if next.maxp1 > cur.maxp1 {
			cur.maxp1 = next.maxp1
		}
		j++
	}
	if j > idx+1 {
		s.intervals = append(s.intervals[:idx+1], s.intervals[j:]...)
	}
}

// Notegap drops all in-flight samples with seq in [lo, hi), used on
// Heartbeats and Gaps (spec section 4.2).
func (d *Defragmenter) Notegap(lo, hi uint64) {
	var toDrop []uint64
	for _, seq := range d.order {
		if seq >= lo && seq < hi {
			toDrop = append(toDrop, seq)
		}
	}
	for _, seq := range toDrop {
		d.discardSample(seq, DropReasonNoteGap)
	}
}

// Nackmap computes a missing-fragment bitmap for seq, fragment-indexed (bit
// i corresponds to fragment i, assumed to be a constant fragment size known
// to the caller/transport), per spec section 4.2.
func (d *Defragmenter) Nackmap(seq uint64, maxfrag uint32, fragSize uint32, maxbits int) *bitset.NackBitmap {
	width := int(maxfrag)
	if width > maxbits {
		width = maxbits
	}

	s, ok := d.samples[seq]
	if !ok {
		// Unknown sample: if the peer advertises fragments [0, maxfrag],
		// everything is missing.
		return bitset.AllOnes(width)
	}

	bm := bitset.NewNackBitmap(width)
	frag := 0
	covered := uint32(0)
	for _, iv := range s.intervals {
		for covered < iv.min && frag < width {
			bm.Set(frag)
			frag++
			covered += fragSize
		}
		for covered < iv.maxp1 && frag < width {
			frag++
			covered += fragSize
		}
	}
	for frag < width {
		bm.Set(frag)
		frag++
	}
	return bm
}

// Sample is a defragmenter-completed sample: its fragment chain concatenates
// to exactly TotalSize bytes in offset order (spec section 8's invariant).
type Sample struct {
	Seq       uint64
	TotalSize uint32
	head      *rbuf.Data
}

// Payload concatenates the fragment chain into one contiguous byte slice.
func (s *Sample) Payload() []byte {
	out := make([]byte, 0, s.TotalSize)
	for d := s.head; d != nil; d = d.Next {
		out = append(out, d.Bytes()...)
	}
	return out
}

// Release unrefs every fragment's backing message exactly once, to be
// called after the caller is done reading Payload (or after copying it
// into a reader's history cache).
func (s *Sample) Release() {
	rbuf.ReleaseChain(s.head)
}
