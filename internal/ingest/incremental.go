package ingest

import (
	"context"
	"fmt"
	"time"

	"quantbt/internal/market"
)

// UpdateReport 汇总一次增量更新的结果。
type UpdateReport struct {
	Symbol       string   `json:"symbol"`
	Exchange     string   `json:"exchange"`
	Interval     string   `json:"interval"`
	Fetched      int64    `json:"fetched"`
	Stored       int64    `json:"stored"`
	QualityNotes []string `json:"quality_notes,omitempty"`
}

// IncrementalUpdate 以 manifest 的 max_time 为锚点向前回看 bufferDays 天补数，
// 保证近端数据新鲜。首次调用（本地无数据）时只回看 bufferDays。
func (s *Service) IncrementalUpdate(ctx context.Context, symbol, exchange, interval string, bufferDays int) (UpdateReport, error) {
	report := UpdateReport{Symbol: symbol, Exchange: exchange, Interval: interval}
	iv, err := market.ParseInterval(interval)
	if err != nil {
		return report, err
	}
	if bufferDays <= 0 {
		bufferDays = 1
	}
	now := time.Now().UnixMilli()
	start := now - int64(bufferDays)*24*time.Hour.Milliseconds()
	if m, err := s.ManifestInfo(ctx, symbol, interval); err == nil && m.MaxTime > 0 && m.MaxTime < start {
		start = m.MaxTime
	}
	// 丢掉尚未收盘的最后一根
	end := alignedLastClosed(now, iv)
	if end <= start {
		report.QualityNotes = append(report.QualityNotes, "区间过短，跳过")
		return report, nil
	}

	job, err := s.SubmitFetch(FetchParams{
		Exchange: exchange,
		Symbol:   symbol,
		Interval: interval,
		Start:    start,
		End:      end,
	})
	if err != nil {
		return report, err
	}
	final, err := s.waitJob(ctx, job.ID)
	if err != nil {
		return report, err
	}
	report.Fetched = final.Total
	report.Stored = final.Completed
	report.QualityNotes = append(report.QualityNotes, final.Warnings...)
	if len(final.Missing) > 0 {
		report.QualityNotes = append(report.QualityNotes,
			fmt.Sprintf("仍存在 %d 段缺口", len(final.Missing)))
	}
	return report, nil
}

func (s *Service) waitJob(ctx context.Context, jobID string) (FetchJob, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		snap, ok := s.JobSnapshot(jobID)
		if !ok {
			return FetchJob{}, fmt.Errorf("任务 %s 不存在", jobID)
		}
		switch snap.Status {
		case JobStatusDone, JobStatusPartial:
			return snap, nil
		case JobStatusFailed:
			return snap, fmt.Errorf("任务 %s 失败: %s", jobID, snap.Message)
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ticker.C:
		}
	}
}

func alignedLastClosed(nowMs int64, iv market.Interval) int64 {
	step := iv.Millis()
	aligned := nowMs - nowMs%step
	return aligned - step
}
