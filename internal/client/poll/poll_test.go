package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRun_DeliversEachInterval(t *testing.T) {
	var fetches atomic.Int64
	p := New(15*time.Millisecond, func(ctx context.Context) error {
		fetches.Add(1)
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { p.Run(ctx); close(done) }()

	deadline := time.Now().Add(time.Second)
	for fetches.Load() < 4 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	assert.GreaterOrEqual(t, fetches.Load(), int64(4), "immediate fetch plus interval fetches")
}

func TestRun_ErrorsDoNotStopLoop(t *testing.T) {
	var fetches atomic.Int64
	p := New(10*time.Millisecond, func(ctx context.Context) error {
		fetches.Add(1)
		return errors.New("socket down, backend flaky")
	})
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	p.Run(ctx)
	assert.GreaterOrEqual(t, fetches.Load(), int64(3), "keeps polling through errors")
}

func TestWake_TriggersImmediateFetch(t *testing.T) {
	var fetches atomic.Int64
	p := New(time.Hour, func(ctx context.Context) error {
		fetches.Add(1)
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { p.Run(ctx); close(done) }()

	deadline := time.Now().Add(time.Second)
	for fetches.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	p.Wake()
	for fetches.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	<-done
	assert.GreaterOrEqual(t, fetches.Load(), int64(2), "wake fetch without waiting for the interval")
}

func TestCancel_StopsCleanly(t *testing.T) {
	var fetches atomic.Int64
	p := New(5*time.Millisecond, func(ctx context.Context) error {
		fetches.Add(1)
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { p.Run(ctx); close(done) }()
	time.Sleep(25 * time.Millisecond)
	cancel()
	<-done
	n := fetches.Load()
	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, n, fetches.Load(), "no fetches after cancellation")
}
