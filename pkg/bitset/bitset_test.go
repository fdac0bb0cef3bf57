package bitset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTinyBitsetInsertContains(t *testing.T) {
	var b TinyBitset
	b.Insert(0)
	b.Insert(63)
	b.Insert(64)
	b.Insert(200)

	for _, idx := range []uint32{0, 63, 64, 200} {
		require.True(t, b.Contains(idx), "expected bit %d to be set", idx)
	}
	require.False(t, b.Contains(1), "expected bit 1 to be clear")
	require.EqualValues(t, 4, b.Count())
	require.Equal(t, []uint32{0, 63, 64, 200}, b.AsSlice())
}

func TestNackBitmapAllOnes(t *testing.T) {
	b := AllOnes(5)
	for i := 0; i < 5; i++ {
		require.True(t, b.IsSet(i), "bit %d should be set", i)
	}
}

func TestNackBitmapSetRange(t *testing.T) {
	b := NewNackBitmap(10)
	b.SetRange(2, 5)
	for i := 0; i < 10; i++ {
		want := i >= 2 && i < 5
		require.Equal(t, want, b.IsSet(i), "IsSet(%d)", i)
	}
}

func TestNackBitmapOutOfRange(t *testing.T) {
	b := NewNackBitmap(4)
	require.Panics(t, func() { b.Set(4) }, "expected panic on out-of-range Set")
}
