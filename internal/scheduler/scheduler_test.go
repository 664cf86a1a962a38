package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntilNextRunAlignment(t *testing.T) {
	s := NewAlignedScheduler(context.Background(), time.Hour, 5*time.Second)

	now := time.Date(2024, 3, 1, 10, 42, 17, 0, time.UTC)
	wait, barClose := s.untilNextRun(now)
	assert.Equal(t, time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC), barClose)
	assert.Equal(t, 17*time.Minute+43*time.Second+5*time.Second, wait)

	// 恰好落在边界上：等满下一个完整周期
	onBoundary := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
	wait, barClose = s.untilNextRun(onBoundary)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), barClose)
	assert.Equal(t, time.Hour+5*time.Second, wait)
}

func TestNewAlignedSchedulerClampsOffset(t *testing.T) {
	s := NewAlignedScheduler(nil, time.Minute, -3*time.Second)
	require.NotNil(t, s)
	assert.Equal(t, time.Duration(0), s.Offset)
	assert.NotNil(t, s.ctx)
}

func TestStartGuards(t *testing.T) {
	// 非法 interval 或空 task 直接返回，不阻塞
	done := make(chan struct{})
	go func() {
		NewAlignedScheduler(context.Background(), 0, 0).Start(func() {})
		NewAlignedScheduler(context.Background(), time.Minute, 0).Start(nil)
		var nilSched *AlignedScheduler
		nilSched.Start(func() {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("守卫分支不应阻塞")
	}
}

func TestStartRunImmediatelyAndCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewAlignedScheduler(ctx, time.Hour, 0)
	s.RunImmediately = true

	ran := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		s.Start(func() { ran <- struct{}{} })
		close(done)
	}()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("RunImmediately 应立即执行一次")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ctx 取消后 Start 应返回")
	}
}
