package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingCompleter struct {
	calls atomic.Int32
	err   error
}

func (c *countingCompleter) CompleteElapsed(context.Context) (int, error) {
	c.calls.Add(1)
	return 0, c.err
}

func TestScheduler_RunsImmediatelyAndOnTick(t *testing.T) {
	c := &countingCompleter{}
	s := NewScheduler(c, 10*time.Millisecond, zap.NewNop())

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return c.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := c.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, c.calls.Load())
}

func TestScheduler_StopsOnContextAndSurvivesErrors(t *testing.T) {
	c := &countingCompleter{err: errors.New("db down")}
	s := NewScheduler(c, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	assert.Eventually(t, func() bool { return c.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
}

func TestNewScheduler_DefaultInterval(t *testing.T) {
	s := NewScheduler(&countingCompleter{}, 0, zap.NewNop())
	assert.Equal(t, time.Hour, s.interval)
}
