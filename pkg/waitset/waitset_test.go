package waitset

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTriggerBeforeWaitWakesImmediately(t *testing.T) {
	ws := New()
	h := ws.Add("conn-a")
	h.Trigger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := ws.Wait(ctx)
	require.NoError(t, err, "Wait")
	require.Equal(t, []any{"conn-a"}, got)
}

func TestWaitReportsEachConnectionAtMostOnce(t *testing.T) {
	ws := New()
	h := ws.Add("conn-a")
	h.Trigger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := ws.Wait(ctx)
	require.NoError(t, err, "first Wait")

	// Nothing re-triggered: a second Wait must block, so use a short
	// deadline and expect a context-deadline error rather than a result.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	_, err = ws.Wait(ctx2)
	require.Error(t, err, "second Wait should not report conn-a again without a fresh Trigger")
}

func TestPurgeDetachesConnectionsAddedAfterIndex(t *testing.T) {
	ws := New()
	ws.Add("conn-a")
	idx := ws.nextIndex
	ws.Add("conn-b")
	h := ws.entries[len(ws.entries)-1]
	h.pending = true // simulate a trigger landing just before purge

	ws.Purge(idx)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := ws.Wait(ctx)
	require.Error(t, err, "Wait should not report the purged connection's pending trigger")
}

func TestRemoveDetachesConnection(t *testing.T) {
	ws := New()
	h := ws.Add("conn-a")
	h.Remove()
	h.Trigger() // triggering a removed handle must be a no-op, not a panic

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := ws.Wait(ctx)
	require.Error(t, err, "Wait should not report a removed connection")
}

// TestGuardConditionSpuriousWakeupRobustness is spec section 8 scenario 1:
// attach a guard condition, have another thread sleep 200ms then set it,
// and expect a 2000ms Wait to return exactly the guard condition's payload.
func TestGuardConditionSpuriousWakeupRobustness(t *testing.T) {
	ws := New()
	guard := ws.Add("guard-condition")

	go func() {
		time.Sleep(200 * time.Millisecond)
		guard.Trigger()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2000*time.Millisecond)
	defer cancel()
	got, err := ws.Wait(ctx)
	require.NoError(t, err, "Wait")
	require.Equal(t, []any{"guard-condition"}, got)
}

func TestWaitReturnsContextErrorOnCancellation(t *testing.T) {
	ws := New()
	ws.Add("conn-a")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var err error
	go func() {
		_, err = ws.Wait(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Wait did not return after context cancellation")
	}
	require.Error(t, err, "Wait should have returned a context error")
}
