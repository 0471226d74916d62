package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, -1} {
		_, err := NewPool(size)
		assert.Error(t, err)
	}

	p, err := NewPool(3)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Size())
	assert.Equal(t, 0, p.Running())
	assert.Equal(t, 0, p.Waiting())
}

func TestPool_Do_ReturnsError(t *testing.T) {
	t.Parallel()

	p, err := NewPool(1)
	require.NoError(t, err)

	boom := errors.New("boom")
	assert.ErrorIs(t, p.Do(context.Background(), func() error { return boom }), boom)
	assert.NoError(t, p.Do(context.Background(), func() error { return nil }))
}

func TestPool_Do_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	const size = 3
	p, err := NewPool(size)
	require.NoError(t, err)

	var (
		current atomic.Int32
		peak    atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Do(context.Background(), func() error {
				n := current.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				current.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(size))
	assert.Equal(t, 0, p.Running())
}

func TestPool_Do_CancelWhileWaiting(t *testing.T) {
	t.Parallel()

	p, err := NewPool(1)
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Do(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	assert.Equal(t, 1, p.Running())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err = p.Do(ctx, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
	assert.Equal(t, 0, p.Waiting())

	close(release)
	<-done
}
