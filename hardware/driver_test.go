package hardware

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sensorstream/errors"
)

func TestLifecycle_StartStop(t *testing.T) {
	l := NewLifecycle("imu-driver")
	_, err := uuid.Parse(l.ID())
	require.NoError(t, err)
	assert.False(t, l.Started())
	assert.Equal(t, time.Duration(0), l.Uptime())

	running := make(chan struct{})
	require.NoError(t, l.Go(context.Background(), func(ctx context.Context) error {
		close(running)
		<-ctx.Done()
		return nil
	}))
	<-running

	assert.True(t, l.Started())
	assert.False(t, l.Stopping())

	err = l.Go(context.Background(), func(context.Context) error { return nil })
	assert.True(t, errors.Is(err, errors.ErrAlreadyStarted))

	require.NoError(t, l.Stop(time.Second))
	assert.True(t, l.Stopping())

	select {
	case <-l.Done():
	default:
		t.Fatal("done not closed after stop")
	}

	err = l.Stop(time.Second)
	assert.True(t, errors.Is(err, errors.ErrAlreadyStopped))
}

func TestLifecycle_StopBeforeStart(t *testing.T) {
	l := NewLifecycle("camera-driver")
	err := l.Stop(time.Second)
	assert.True(t, errors.Is(err, errors.ErrNotStarted))
}

func TestLifecycle_LoopError(t *testing.T) {
	l := NewLifecycle("replay")
	boom := errors.New("log truncated")

	require.NoError(t, l.Go(context.Background(), func(context.Context) error { return boom }))
	assert.Equal(t, boom, l.Wait())
	assert.Equal(t, boom, l.Err())
}

func TestLifecycle_StopTimeout(t *testing.T) {
	l := NewLifecycle("stuck")
	release := make(chan struct{})
	defer close(release)

	require.NoError(t, l.Go(context.Background(), func(context.Context) error {
		<-release
		return nil
	}))

	err := l.Stop(20 * time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestLifecycle_ParentContext(t *testing.T) {
	l := NewLifecycle("parent")
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, l.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	cancel()

	assert.ErrorIs(t, l.Wait(), context.Canceled)
}

func TestLifecycle_StopRacingGo(t *testing.T) {
	for i := 0; i < 50; i++ {
		l := NewLifecycle("race")

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Go(context.Background(), func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			})
		}()

		// the first Stop that sees the driver started must also cancel it
		var err error
		for {
			err = l.Stop(time.Second)
			if !errors.Is(err, errors.ErrNotStarted) {
				break
			}
			runtime.Gosched()
		}
		wg.Wait()

		require.NoError(t, err, "iteration %d", i)
		select {
		case <-l.Done():
		default:
			t.Fatalf("iteration %d: loop still running after stop", i)
		}
	}
}
