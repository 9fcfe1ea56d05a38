package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcam-filters/internal/domain"
)

func newStreamingPool(t *testing.T, n int) (*BufferPool, *fakeDriver) {
	t.Helper()
	d := newFakeDriver(n, 4, 2, yuyvBlack)
	require.NoError(t, d.StartStream())
	pool, err := NewBufferPool(d)
	require.NoError(t, err)
	return pool, d
}

func TestBufferPool_FifthAcquireBlocksUntilRelease(t *testing.T) {
	pool, _ := newStreamingPool(t, 4)
	ctx := context.Background()

	leases := make([]*Lease, 0, 4)
	for i := 0; i < 4; i++ {
		l, err := pool.Acquire(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, l.Index(), "ring order")
		leases = append(leases, l)
	}
	assert.Equal(t, 0, pool.DriverOwned())
	assert.False(t, pool.FullyQueued())

	short, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err := pool.Acquire(short)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	got := make(chan *Lease, 1)
	go func() {
		l, err := pool.Acquire(ctx)
		if err == nil {
			got <- l
		}
		close(got)
	}()

	select {
	case <-got:
		t.Fatal("fifth acquire must block while all segments are held")
	case <-time.After(30 * time.Millisecond):
	}

	require.NoError(t, pool.Release(leases[2]))

	select {
	case l, ok := <-got:
		require.True(t, ok)
		assert.Equal(t, 2, l.Index())
		require.NoError(t, pool.Release(l))
	case <-time.After(2 * time.Second):
		t.Fatal("acquire did not resume after release")
	}

	for _, i := range []int{0, 1, 3} {
		require.NoError(t, pool.Release(leases[i]))
	}
	assert.True(t, pool.FullyQueued())
}

func TestBufferPool_TryAcquireFailsWhenExhausted(t *testing.T) {
	pool, _ := newStreamingPool(t, 2)
	ctx := context.Background()

	a, err := pool.TryAcquire(ctx)
	require.NoError(t, err)
	b, err := pool.TryAcquire(ctx)
	require.NoError(t, err)

	_, err = pool.TryAcquire(ctx)
	require.ErrorIs(t, err, domain.ErrPoolExhausted)

	require.NoError(t, pool.Release(a))
	c, err := pool.TryAcquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.Index(), c.Index())

	require.NoError(t, pool.Release(b))
	require.NoError(t, pool.Release(c))
	assert.True(t, pool.FullyQueued())
}

func TestBufferPool_ReleasedSegmentIsUnreadable(t *testing.T) {
	pool, _ := newStreamingPool(t, 2)

	l, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	raw, err := l.Frame(4, 2)
	require.NoError(t, err)
	assert.Len(t, raw.Data, 16)

	require.NoError(t, pool.Release(l))
	assert.True(t, l.Released())

	_, err = l.Frame(4, 2)
	assert.ErrorIs(t, err, domain.ErrSegmentReleased)

	err = pool.Release(l)
	assert.ErrorIs(t, err, domain.ErrContractViolation, "double release")
	assert.Equal(t, 2, pool.DriverOwned())
}

func TestBufferPool_Segments(t *testing.T) {
	pool, _ := newStreamingPool(t, 3)

	l, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	segs := pool.Segments()
	require.Len(t, segs, 3)
	assert.Equal(t, domain.OwnerApplication, segs[0].Owner)
	assert.Equal(t, 16, segs[0].Length)
	assert.Equal(t, domain.OwnerDriver, segs[1].Owner)
	assert.Equal(t, domain.OwnerDriver, segs[2].Owner)

	require.NoError(t, pool.Release(l))
	assert.Equal(t, domain.OwnerDriver, pool.Segments()[0].Owner)
}

func TestBufferPool_DequeueErrorReturnsToken(t *testing.T) {
	pool, d := newStreamingPool(t, 1)
	d.dequeueErrs = []error{errEIO}

	_, err := pool.Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDriverIO)
	assert.ErrorIs(t, err, errEIO)

	var de *domain.DriverIOError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "dequeue", de.Op)

	l, err := pool.Acquire(context.Background())
	require.NoError(t, err, "failed dequeue must not leak the slot")
	require.NoError(t, pool.Release(l))
}

func TestBufferPool_QueueError(t *testing.T) {
	pool, d := newStreamingPool(t, 2)

	l, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	d.queueErr = errEIO
	err = pool.Release(l)

	var de *domain.DriverIOError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "queue", de.Op)
	assert.Equal(t, l.Index(), de.Index)
}

func TestBufferPool_Reset(t *testing.T) {
	pool, _ := newStreamingPool(t, 2)

	a, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	_, err = pool.Acquire(context.Background())
	require.NoError(t, err)

	pool.Reset()
	assert.True(t, pool.FullyQueued())
	assert.True(t, a.Released())

	_, err = a.Frame(4, 2)
	assert.ErrorIs(t, err, domain.ErrSegmentReleased)
}

func TestBufferPool_ForeignLease(t *testing.T) {
	a, _ := newStreamingPool(t, 1)
	b, _ := newStreamingPool(t, 1)

	l, err := a.Acquire(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, b.Release(l), domain.ErrContractViolation)
	assert.ErrorIs(t, b.Release(nil), domain.ErrContractViolation)
	require.NoError(t, a.Release(l))
}

func TestNewBufferPool_EmptyRing(t *testing.T) {
	_, err := NewBufferPool(newFakeDriver(0, 2, 2, yuyvBlack))
	assert.ErrorIs(t, err, domain.ErrContractViolation)
}
