package scheduler

import (
	"context"
	"time"

	"quantbt/internal/logger"
)

// AlignedScheduler 把任务对齐到 K 线收盘边界执行：等到下一个
// interval 整点再加 offset 才唤醒，保证增量拉取时该根 bar 已收盘。
type AlignedScheduler struct {
	Interval       time.Duration
	Offset         time.Duration
	RunImmediately bool

	ctx context.Context
	now func() time.Time
}

func NewAlignedScheduler(ctx context.Context, interval, offset time.Duration) *AlignedScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	if offset < 0 {
		offset = 0
	}
	return &AlignedScheduler{
		Interval: interval,
		Offset:   offset,
		ctx:      ctx,
		now:      time.Now,
	}
}

// untilNextRun 返回距下次执行的等待时长和对应的收盘时刻。
// 等待时长不会为负：即使 now 恰好落在边界上也等满下一个周期。
func (s *AlignedScheduler) untilNextRun(now time.Time) (time.Duration, time.Time) {
	now = now.UTC()
	barClose := now.Truncate(s.Interval).Add(s.Interval)
	wait := barClose.Add(s.Offset).Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait, barClose
}

// Start 阻塞运行，每个对齐点执行一次 task，ctx 取消后返回。
func (s *AlignedScheduler) Start(task func()) {
	if s == nil || task == nil {
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("[scheduler] interval 非法: %s，调度循环不启动", s.Interval)
		return
	}
	if s.now == nil {
		s.now = time.Now
	}

	logger.Infof("[scheduler] 对齐调度启动 interval=%s offset=%s immediate=%v",
		s.Interval, s.Offset, s.RunImmediately)

	if s.RunImmediately {
		task()
	}

	timer := time.NewTimer(s.Interval)
	defer timer.Stop()

	for {
		wait, barClose := s.untilNextRun(s.now())
		logger.Debugf("[scheduler] 下一根收盘 %s，%s 后执行",
			barClose.Format(time.RFC3339), wait.Truncate(time.Second))

		timer.Reset(wait)
		select {
		case <-s.ctx.Done():
			logger.Infof("[scheduler] 收到停止信号，调度退出")
			return
		case <-timer.C:
			task()
		}
	}
}
