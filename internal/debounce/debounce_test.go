package debounce

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

func TestNew_DefaultQuiet(t *testing.T) {
	assert.Equal(t, DefaultQuiet, New[int](0).Quiet())
	assert.Equal(t, 20*time.Millisecond, New[int](20*time.Millisecond).Quiet())
}

func TestDo_SingleCall(t *testing.T) {
	d := New[string](10 * time.Millisecond)

	start := time.Now()
	v, err := d.Do(context.Background(), "u1", func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestDo_LatestWins(t *testing.T) {
	d := New[string](50 * time.Millisecond)
	var calls atomic.Int32

	type result struct {
		v   string
		err error
	}
	results := make([]result, 3)
	var wg sync.WaitGroup
	for i, q := range []string{"c", "ca", "caf"} {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			v, err := d.Do(context.Background(), "u1", func(context.Context) (string, error) {
				calls.Add(1)
				return q, nil
			})
			results[i] = result{v, err}
		}(i, q)
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	assert.ErrorIs(t, results[0].err, ErrSuperseded)
	assert.ErrorIs(t, results[1].err, ErrSuperseded)
	require.NoError(t, results[2].err)
	assert.Equal(t, "caf", results[2].v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_InFlightResultDiscarded(t *testing.T) {
	d := New[string](5 * time.Millisecond)
	started := make(chan struct{})

	var firstErr error
	var firstCtxErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, firstErr = d.Do(context.Background(), "u1", func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			firstCtxErr = ctx.Err()
			return "stale", nil
		})
	}()

	<-started
	v, err := d.Do(context.Background(), "u1", func(context.Context) (string, error) {
		return "fresh", nil
	})
	<-done

	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.ErrorIs(t, firstErr, ErrSuperseded)
	assert.ErrorIs(t, firstCtxErr, context.Canceled)
}

func TestDo_KeysIndependent(t *testing.T) {
	d := New[string](10 * time.Millisecond)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, key := range []string{"u1", "u2"} {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			_, errs[i] = d.Do(context.Background(), key, func(context.Context) (string, error) {
				return key, nil
			})
		}(i, key)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
}

func TestDo_ContextCancelledWhileWaiting(t *testing.T) {
	d := New[string](time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := d.Do(ctx, "u1", func(context.Context) (string, error) {
		called = true
		return "", nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrSuperseded)
	assert.False(t, called)
}

func TestDo_PropagatesError(t *testing.T) {
	d := New[int](time.Millisecond)
	boom := errors.New("boom")

	_, err := d.Do(context.Background(), "u1", func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestDo_KeyReleased(t *testing.T) {
	d := New[int](time.Millisecond)

	_, err := d.Do(context.Background(), "u1", func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Empty(t, d.slots)
}
