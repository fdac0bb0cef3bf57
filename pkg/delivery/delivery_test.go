package delivery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ddsgo/cyclone/pkg/rbuf"
	"github.com/ddsgo/cyclone/pkg/reassembly/reorder"
)

func newTestPool() *rbuf.Pool {
	return rbuf.NewPool(1<<16, 4096)
}

func oneEntry(t *testing.T, pool *rbuf.Pool, seq uint64) *reorder.Entry {
	t.Helper()
	msg := pool.NewMsg()
	d := rbuf.NewData(msg, 0, 1, 0, 0)
	msg.Commit()
	return &reorder.Entry{Seq: seq, Data: d}
}

func TestRunDeliversSamplesInOrderThenStops(t *testing.T) {
	pool := newTestPool()
	var delivered []Guid
	q := New(4, func(reader Guid, chain *reorder.Entry) {
		delivered = append(delivered, reader)
	})

	readerA := Guid{0xA}
	q.Enqueue(readerA, oneEntry(t, pool, 1))
	q.Enqueue(readerA, oneEntry(t, pool, 2))
	q.Stop()

	require.NoError(t, q.Run(context.Background()), "Run should return nil after STOP")
	require.Len(t, delivered, 2)
	require.Equal(t, []Guid{readerA, readerA}, delivered, "delivered should both be attributed to readerA")
}

func TestRunInvokesCallback(t *testing.T) {
	q := New(4, nil)
	called := false
	q.EnqueueCallback(func() { called = true })
	q.Stop()

	require.NoError(t, q.Run(context.Background()))
	require.True(t, called, "callback was not invoked")
}

func TestRDGuidDivertsSubsequentDeliveries(t *testing.T) {
	pool := newTestPool()
	var delivered []Guid
	q := New(8, func(reader Guid, chain *reorder.Entry) {
		delivered = append(delivered, reader)
	})

	producer := Guid{0x01}
	divertTo := Guid{0x02}

	q.EnqueueRDGuid(divertTo, 2)
	q.Enqueue(producer, oneEntry(t, pool, 1))
	q.Enqueue(producer, oneEntry(t, pool, 2))
	q.Enqueue(producer, oneEntry(t, pool, 3)) // after the diversion window closes
	q.Stop()

	require.NoError(t, q.Run(context.Background()))
	require.Len(t, delivered, 3)
	require.Equal(t, []Guid{divertTo, divertTo}, delivered[:2], "first two deliveries should go to divertTo")
	require.Equal(t, producer, delivered[2], "third delivery should fall back to producer's own reader")
}

func TestIsFullIsAdvisory(t *testing.T) {
	pool := newTestPool()
	q := New(1, func(Guid, *reorder.Entry) {})

	require.False(t, q.IsFull(), "IsFull() should be false before any enqueue")
	q.Enqueue(Guid{}, oneEntry(t, pool, 1))
	require.True(t, q.IsFull(), "IsFull() should be true once the advisory capacity is reached")
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	q := New(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, q.Run(ctx), "Run should return the context error once cancelled")
}
