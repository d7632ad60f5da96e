package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "evidex/pkg/domain"
	"evidex/pkg/platform/sentinel"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal()
	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "k")
			require.NoError(t, err)
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Zero(t, l.held())
}

func TestLocalDifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	releaseA, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	releaseB, err := l.Acquire(ctx, "b")
	require.NoError(t, err)
	releaseB()
}

func TestLocalAcquireTimesOut(t *testing.T) {
	l := NewLocal()
	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, sentinel.ErrLockNotAcquired)

	release()
	release() // second call is a no-op
	assert.Zero(t, l.held())
}

func TestSeriesKey(t *testing.T) {
	caseID := id.NewCaseID()
	assert.Equal(t, "bates:"+caseID.String()+":ABC", SeriesKey(caseID, "ABC"))
}
