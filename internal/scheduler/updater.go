package scheduler

import (
	"context"
	"time"

	"quantbt/internal/config"
	"quantbt/internal/ingest"
	"quantbt/internal/logger"
	"quantbt/internal/market"
)

// Updater 按 K 线收盘节奏驱动增量数据更新。
type Updater struct {
	cfg config.IngestConfig
	svc *ingest.Service
}

func NewUpdater(cfg config.IngestConfig, svc *ingest.Service) *Updater {
	return &Updater{cfg: cfg, svc: svc}
}

// Run 阻塞运行更新循环；ctx 结束时退出。
func (u *Updater) Run(ctx context.Context) error {
	if !u.cfg.Enabled || len(u.cfg.Symbols) == 0 {
		logger.Infof("[updater] 增量更新未启用")
		<-ctx.Done()
		return nil
	}
	iv, err := market.ParseInterval(u.cfg.Interval)
	if err != nil {
		return err
	}

	sched := NewAlignedScheduler(ctx, iv.Duration, time.Duration(u.cfg.OffsetSec)*time.Second)
	sched.RunImmediately = true
	sched.Start(func() { u.updateOnce(ctx) })
	return nil
}

func (u *Updater) updateOnce(ctx context.Context) {
	for _, symbol := range u.cfg.Symbols {
		report, err := u.svc.IncrementalUpdate(ctx, symbol, u.cfg.Exchange, u.cfg.Interval, u.cfg.BufferDays)
		if err != nil {
			logger.Errorf("[updater] %s %s 增量更新失败: %v", symbol, u.cfg.Interval, err)
			continue
		}
		logger.Infof("[updater] %s %s fetched=%d stored=%d", symbol, u.cfg.Interval, report.Fetched, report.Stored)
		for _, note := range report.QualityNotes {
			logger.Warnf("[updater] %s %s 数据质量: %s", symbol, u.cfg.Interval, note)
		}
	}
}
