package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type countingExpirer struct {
	calls atomic.Int32
	grace atomic.Int64
	err   error
}

func (e *countingExpirer) ExpireStale(ctx context.Context, grace time.Duration) (int, error) {
	e.calls.Add(1)
	e.grace.Store(int64(grace))
	return 1, e.err
}

func TestExpiryWorkerSweepsUntilCancelled(t *testing.T) {
	exp := &countingExpirer{}
	w := NewExpiryWorker(exp, 5*time.Millisecond, 3*time.Minute, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(stopped)
	}()

	assert.Eventually(t, func() bool { return exp.calls.Load() >= 3 }, time.Second, time.Millisecond)
	assert.Equal(t, int64(3*time.Minute), exp.grace.Load())

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestExpiryWorkerSurvivesErrors(t *testing.T) {
	exp := &countingExpirer{err: errors.New("redis down")}
	w := NewExpiryWorker(exp, time.Hour, time.Minute, zerolog.Nop())

	w.sweep(context.Background())
	w.sweep(context.Background())
	assert.Equal(t, int32(2), exp.calls.Load())
}
