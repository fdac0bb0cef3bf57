// Package bitset provides fixed- and variable-width bit sets. TinyBitset and
// BitsTraverser are adapted, with their word-traversal core kept verbatim,
// from the teacher's common/go/bitset package, where they served as a
// comparable-key bit set over route attributes; here TinyBitset indexes the
// small, closed set of intended receivers during secure submessage encode
// (spec section 4.8, step 6 — at most a few dozen readers share a writer),
// and NackBitmap is new: a variable-width bitmap sized to a negotiated
// maxbits, used by the defragmenter's and reorder buffer's nackmap
// operations (spec sections 4.2 and 4.3).
package bitset

import (
	"fmt"
	"iter"
	"math/bits"
)

// MaxBitsetWords specifies the number of 64-bit words in a TinyBitset.
const MaxBitsetWords = 4

// TinyBitset implements a constant-length bitset comparable as a map key,
// used to track which of a writer's matched readers have already received a
// receiver-specific MAC during incremental secure-submessage encode.
type TinyBitset struct {
	words [MaxBitsetWords]uint64
}

// Count returns the number of bits set in the bitset.
func (m *TinyBitset) Count() uint {
	count := uint(0)
	for _, word := range m.words {
		count += uint(bits.OnesCount64(word))
	}
	return count
}

// Insert inserts the given index into the bitset.
func (m *TinyBitset) Insert(idx uint32) {
	if idx >= 64*MaxBitsetWords {
		panic(fmt.Sprintf("index %d is too big: must be less than %d", idx, 64*MaxBitsetWords))
	}
	m.words[idx/64] |= 1 << (idx % 64)
}

// Contains reports whether idx is set.
func (m *TinyBitset) Contains(idx uint32) bool {
	if idx >= 64*MaxBitsetWords {
		return false
	}
	return m.words[idx/64]&(1<<(idx%64)) != 0
}

// Traverse calls fn for each set bit, least significant first, stopping
// early if fn returns false.
func (m *TinyBitset) Traverse(fn func(uint32) bool) {
	for idx, word := range m.words {
		if !NewBitsTraverser(word).Traverse(func(r uint32) bool {
			return fn(64*uint32(idx) + r)
		}) {
			break
		}
	}
}

func (m *TinyBitset) Iter() iter.Seq[uint32] {
	return func(yield func(uint32) bool) { m.Traverse(yield) }
}

// AsSlice returns the set bits as an index slice, ascending.
func (m *TinyBitset) AsSlice() []uint32 {
	out := make([]uint32, 0, m.Count())
	m.Traverse(func(idx uint32) bool {
		out = append(out, idx)
		return true
	})
	return out
}

// BitsTraverser iterates over the bits set in a single 64-bit word, least
// significant first.
type BitsTraverser struct {
	word uint64
}

// NewBitsTraverser constructs a traverser over the given word.
func NewBitsTraverser(word uint64) BitsTraverser {
	return BitsTraverser{word: word}
}

// Traverse calls fn for each set bit; returns false if fn stopped it early.
func (m BitsTraverser) Traverse(fn func(uint32) bool) bool {
	word := m.word
	for word > 0 {
		r := bits.TrailingZeros64(word)
		t := word & -word
		word ^= t
		if !fn(uint32(r)) {
			return false
		}
	}
	return true
}

func (m BitsTraverser) Iter() iter.Seq[uint32] {
	return func(yield func(uint32) bool) { m.Traverse(yield) }
}

// NackBitmap is a variable-width, 0-based bitmap used to report missing
// fragments or sequence numbers. Bit i set means "missing".
type NackBitmap struct {
	numBits int
	words   []uint64
}

// NewNackBitmap allocates a bitmap capable of holding numBits bits, all
// initially clear. numBits is clamped to be >= 0.
func NewNackBitmap(numBits int) *NackBitmap {
	if numBits < 0 {
		numBits = 0
	}
	return &NackBitmap{
		numBits: numBits,
		words:   make([]uint64, (numBits+63)/64),
	}
}

// NumBits returns the logical width of the bitmap.
func (b *NackBitmap) NumBits() int { return b.numBits }

// Set marks bit i as missing. Panics if i is out of [0, NumBits).
func (b *NackBitmap) Set(i int) {
	if i < 0 || i >= b.numBits {
		panic(fmt.Sprintf("bit %d out of range [0, %d)", i, b.numBits))
	}
	b.words[i/64] |= 1 << uint(i%64)
}

// SetRange marks every bit in [lo, hi) as missing.
func (b *NackBitmap) SetRange(lo, hi int) {
	for i := lo; i < hi; i++ {
		b.Set(i)
	}
}

// IsSet reports whether bit i is marked missing.
func (b *NackBitmap) IsSet(i int) bool {
	if i < 0 || i >= b.numBits {
		return false
	}
	return b.words[i/64]&(1<<uint(i%64)) != 0
}

// Words returns the underlying 64-bit words, exactly as they would be
// serialized on the wire in an RTPS NACK_FRAG/Gap bitmap field.
func (b *NackBitmap) Words() []uint64 {
	return b.words
}

// AllOnes returns a bitmap of width numBits with every bit set, matching the
// "unknown sample" nackmap case in spec section 4.2 ("it returns an
// all-ones bitmap of the appropriate width").
func AllOnes(numBits int) *NackBitmap {
	b := NewNackBitmap(numBits)
	b.SetRange(0, numBits)
	return b
}
