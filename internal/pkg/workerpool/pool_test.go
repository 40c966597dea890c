package workerpool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPool(t *testing.T, workers int) *Pool {
	t.Helper()

	p, err := New(&Config{Workers: workers}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(p.Shutdown)

	return p
}

func TestSubmit(t *testing.T) {
	p := newTestPool(t, 4)

	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			mu.Lock()
			count++
			mu.Unlock()
		})
		require.NoError(t, err)
	}

	wg.Wait()
	assert.Equal(t, 20, count)
	assert.Equal(t, int64(20), p.Stats().Submitted)
}

func TestRun(t *testing.T) {
	p := newTestPool(t, 2)

	err := p.Run(context.Background(), func() error {
		return nil
	})
	assert.NoError(t, err)

	wantErr := errors.New("boom")
	err = p.Run(context.Background(), func() error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, int64(1), p.Stats().Failed)
}

func TestRunContextCancelled(t *testing.T) {
	p := newTestPool(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Run(ctx, func() error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmitAfterShutdown(t *testing.T) {
	p, err := New(DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	p.Shutdown()

	err = p.Submit(func() {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}
