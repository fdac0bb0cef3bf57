package wire

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReaderWriterRoundTrip(t *testing.T) {
	w := NewWriter(binary.BigEndian, 0)
	w.PutU8(0x31)
	w.PutU16(0x0203)
	w.PutU32(0x04050607)
	w.PutU64(0x08090a0b0c0d0e0f)
	w.PutBE32(0xaabbccdd)
	w.Align4()

	require.Zero(t, w.Len()%4, "Align4 left length not a multiple of 4")

	r := NewReader(w.Bytes(), binary.BigEndian)
	v8, err := r.U8()
	require.NoError(t, err, "U8")
	require.Equal(t, uint8(0x31), v8)

	v16, err := r.U16()
	require.NoError(t, err, "U16")
	require.Equal(t, uint16(0x0203), v16)

	v32, err := r.U32()
	require.NoError(t, err, "U32")
	require.Equal(t, uint32(0x04050607), v32)

	v64, err := r.U64()
	require.NoError(t, err, "U64")
	require.Equal(t, uint64(0x08090a0b0c0d0e0f), v64)

	be32, err := r.BE32()
	require.NoError(t, err, "BE32")
	require.Equal(t, uint32(0xaabbccdd), be32)
}

func TestReaderOverflowIsRejected(t *testing.T) {
	r := NewReader([]byte{1, 2, 3}, binary.BigEndian)
	_, err := r.U32()
	require.Error(t, err, "expected short-buffer error reading U32 from 3 bytes")
}

func TestAlignUp4(t *testing.T) {
	cases := map[int]int{0: 0, 1: 4, 3: 4, 4: 4, 5: 8}
	for in, want := range cases {
		require.Equal(t, want, AlignUp4(in), "AlignUp4(%d)", in)
	}
}
