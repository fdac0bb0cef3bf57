package defrag

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ddsgo/cyclone/pkg/rbuf"
)

func newTestPool() *rbuf.Pool {
	return rbuf.NewPool(1<<16, 4096)
}

func frag(t *testing.T, pool *rbuf.Pool, payload []byte, min, maxp1 uint32) *rbuf.Data {
	t.Helper()
	msg := pool.NewMsg()
	copy(msg.Payload(), payload)
	d := rbuf.NewData(msg, min, maxp1, 0, 0)
	msg.Commit()
	return d
}

func TestDefragInOrderFragments(t *testing.T) {
	pool := newTestPool()
	d := New(8, DropOldest)

	full := []byte("abcdefghijklmnopqrstuvwxyz0123")
	const fragSize = 10
	var completed *Sample
	for off := 0; off < len(full); off += fragSize {
		end := off + fragSize
		if end > len(full) {
			end = len(full)
		}
		df := frag(t, pool, full[off:end], uint32(off), uint32(end))
		s, err := d.AddFragment(df, 1, uint32(off), uint32(end), uint32(len(full)))
		require.NoError(t, err, "AddFragment")
		if s != nil {
			completed = s
		}
	}

	require.NotNil(t, completed, "sample never completed")
	require.Equal(t, full, completed.Payload())
	completed.Release()
}

func TestDefragOutOfOrderFragments(t *testing.T) {
	pool := newTestPool()
	d := New(8, DropOldest)

	full := []byte("0123456789ABCDEFGHIJ")
	order := [][2]int{{10, 20}, {0, 5}, {5, 10}}

	var completed *Sample
	for _, r := range order {
		df := frag(t, pool, full[r[0]:r[1]], uint32(r[0]), uint32(r[1]))
		s, err := d.AddFragment(df, 42, uint32(r[0]), uint32(r[1]), uint32(len(full)))
		require.NoError(t, err, "AddFragment")
		if s != nil {
			completed = s
		}
	}

	require.NotNil(t, completed, "sample never completed")
	require.Equal(t, full, completed.Payload())
	completed.Release()
}

func TestDefragDuplicateFragmentDropped(t *testing.T) {
	pool := newTestPool()
	d := New(8, DropOldest)

	payload := []byte("hello world")
	df1 := frag(t, pool, payload, 0, uint32(len(payload)))
	s, err := d.AddFragment(df1, 1, 0, uint32(len(payload)), uint32(len(payload)))
	require.NoError(t, err)
	require.NotNil(t, s, "expected completion on first fragment")

	// Adding the same full range for a new sample (seq 2) completes it on
	// its own.
	df2 := frag(t, pool, payload, 0, uint32(len(payload)))
	df3 := frag(t, pool, payload[:5], 0, 5) // sub-range of seq 2
	_, err = d.AddFragment(df2, 2, 0, uint32(len(payload)), uint32(len(payload)))
	require.NoError(t, err, "AddFragment")
	// seq 2 already completed and was removed from the map by the previous
	// call; the defragmenter keeps no record of completed samples, so this
	// sub-range opens a fresh in-flight sample for seq 2.
	s, err = d.AddFragment(df3, 2, 0, 5, uint32(len(payload)))
	require.NoError(t, err, "AddFragment duplicate")
	require.Nil(t, s, "reopened seq 2 holds only [0,5)")

	// A fragment entirely within the [0,5) interval is a duplicate and is
	// dropped, so completing the sample yields the original bytes once.
	df4 := frag(t, pool, payload[:3], 0, 3)
	s, err = d.AddFragment(df4, 2, 0, 3, uint32(len(payload)))
	require.NoError(t, err, "AddFragment duplicate within interval")
	require.Nil(t, s)
	df5 := frag(t, pool, payload[5:], 5, uint32(len(payload)))
	s, err = d.AddFragment(df5, 2, 5, uint32(len(payload)), uint32(len(payload)))
	require.NoError(t, err, "AddFragment tail")
	require.NotNil(t, s, "seq 2 completes once the tail arrives")
	require.Equal(t, payload, s.Payload())
}

func TestNotegapDropsInFlightSamples(t *testing.T) {
	pool := newTestPool()
	d := New(8, DropOldest)

	df := frag(t, pool, []byte("partial"), 0, 4)
	s, _ := d.AddFragment(df, 5, 0, 4, 10)
	require.Nil(t, s, "sample should not be complete yet")

	var dropped []uint64
	d.OnDrop(func(seq uint64, reason DropReason) { dropped = append(dropped, seq) })
	d.Notegap(0, 10)

	require.Equal(t, []uint64{5}, dropped)
}

func TestNackmapUnknownSampleIsAllOnes(t *testing.T) {
	d := New(8, DropOldest)
	bm := d.Nackmap(99, 4, 10, 16)
	for i := 0; i < 4; i++ {
		require.True(t, bm.IsSet(i), "bit %d should be set for unknown sample", i)
	}
}

func TestNackmapReportsGaps(t *testing.T) {
	pool := newTestPool()
	d := New(8, DropOldest)

	// Fragment size 10; we have fragment 1 ([10,20)) but not fragment 0 or 2.
	df := frag(t, pool, make([]byte, 10), 10, 20)
	_, err := d.AddFragment(df, 7, 10, 20, 30)
	require.NoError(t, err, "AddFragment")

	bm := d.Nackmap(7, 3, 10, 16)
	require.True(t, bm.IsSet(0), "fragment 0 should be reported missing")
	require.False(t, bm.IsSet(1), "fragment 1 should not be reported missing (already received)")
	require.True(t, bm.IsSet(2), "fragment 2 should be reported missing")
}

func TestDropLatestPolicyDiscardsNewcomerAtCap(t *testing.T) {
	pool := newTestPool()
	d := New(1, DropLatest)

	df1 := frag(t, pool, []byte("x"), 0, 1)
	s, _ := d.AddFragment(df1, 1, 0, 1, 2)
	require.Nil(t, s, "sample 1 should stay incomplete (needs 2 bytes)")

	var dropped []uint64
	d.OnDrop(func(seq uint64, reason DropReason) { dropped = append(dropped, seq) })

	df2 := frag(t, pool, []byte("y"), 0, 1)
	s, _ = d.AddFragment(df2, 2, 0, 1, 2)
	require.Nil(t, s, "newcomer sample 2 should have been dropped, not stored")
	require.Equal(t, []uint64{2}, dropped, "expected newcomer (seq 2, the higher seq) to be dropped under DropLatest")
}
