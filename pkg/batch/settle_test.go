package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettle_OrderFollowsInput(t *testing.T) {
	items := []int{50, 10, 30, 0, 20}

	outcomes := Settle(context.Background(), items, 3, func(_ context.Context, ms int) (int, error) {
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return ms * 2, nil
	})

	require.Len(t, outcomes, len(items))
	for i, o := range outcomes {
		assert.True(t, o.OK())
		assert.Equal(t, items[i]*2, o.Value)
	}
}

func TestSettle_FailuresAreIsolated(t *testing.T) {
	boom := errors.New("boom")
	items := []string{"a", "fail", "c", "panic", "e"}

	outcomes := Settle(context.Background(), items, 2, func(_ context.Context, s string) (string, error) {
		switch s {
		case "fail":
			return "", boom
		case "panic":
			panic("kaboom")
		}
		return s + "!", nil
	})

	require.Len(t, outcomes, 5)
	assert.Equal(t, "a!", outcomes[0].Value)
	assert.ErrorIs(t, outcomes[1].Err, boom)
	assert.Equal(t, "c!", outcomes[2].Value)
	assert.ErrorContains(t, outcomes[3].Err, "kaboom")
	assert.Equal(t, "e!", outcomes[4].Value)
}

func TestSettle_RespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int64
	items := make([]int, 20)

	Settle(context.Background(), items, 4, func(_ context.Context, _ int) (struct{}, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, peak.Load(), int64(4))
	assert.Positive(t, peak.Load())
}

func TestSettle_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int64
	outcomes := Settle(ctx, []int{1, 2, 3}, 0, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	})

	assert.Equal(t, int64(0), calls.Load())
	for _, o := range outcomes {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestSettle_Empty(t *testing.T) {
	outcomes := Settle(context.Background(), []int(nil), 4, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	assert.Empty(t, outcomes)
}
