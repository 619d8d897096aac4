package tokenpool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseReturnsReadySlotImmediately(t *testing.T) {
	p := New([]string{"tok-a", "tok-b"}, 10*time.Millisecond, nil)
	slot, err := p.Lease(context.Background())
	require.NoError(t, err)
	assert.Contains(t, []string{"tok-a", "tok-b"}, slot.Token)
}

func TestReleaseThenLeaseRotatesToTheOtherToken(t *testing.T) {
	p := New([]string{"tok-a", "tok-b"}, time.Hour, nil)
	ctx := context.Background()

	first, err := p.Lease(ctx)
	require.NoError(t, err)
	p.Release(first, 200, 0, 0, time.Time{})

	second, err := p.Lease(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)
}

func TestReleaseWithRetryAfterSetsCooldown(t *testing.T) {
	p := New([]string{"tok-a"}, time.Millisecond, nil)
	ctx := context.Background()

	slot, err := p.Lease(ctx)
	require.NoError(t, err)
	p.Release(slot, 429, 30*time.Millisecond, 0, time.Time{})

	start := time.Now()
	_, err = p.Lease(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestInvalidateRemovesTokenPermanently(t *testing.T) {
	p := New([]string{"tok-a", "tok-b"}, time.Millisecond, nil)
	ctx := context.Background()

	slot, err := p.Lease(ctx)
	require.NoError(t, err)
	p.Invalidate(slot)
	p.Release(slot, 401, 0, 0, time.Time{})

	for i := 0; i < 5; i++ {
		s, err := p.Lease(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, slot.Token, s.Token)
		p.Release(s, 200, 0, 0, time.Time{})
	}
}

func TestLeaseNeverReturnsAnAlreadyLeasedSlotConcurrently(t *testing.T) {
	p := New([]string{"tok-a"}, time.Millisecond, nil)
	ctx := context.Background()

	first, err := p.Lease(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(5 * time.Millisecond)
		p.Release(first, 200, 0, 0, time.Time{})
	}()

	// A concurrent Lease must block on the sole token until it's
	// released, never hand out the slot a second time while in flight.
	start := time.Now()
	second, err := p.Lease(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 4*time.Millisecond)
	assert.Equal(t, first.Token, second.Token)
	<-done
}

func TestLeaseHonorsContextCancellationWhenPoolExhausted(t *testing.T) {
	p := New([]string{"tok-a"}, time.Millisecond, nil)
	slot, err := p.Lease(context.Background())
	require.NoError(t, err)
	p.Invalidate(slot)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = p.Lease(ctx)
	assert.Error(t, err)
}
