package store

import (
	"context"

	"quantbt/internal/market"
)

// Gap 表示一段缺失的 K 线区间（open_time 闭区间）。
type Gap struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// IntegrityReport 汇总某 symbol@interval 区间的完整性检查结果。
type IntegrityReport struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Expected int64  `json:"expected"`
	Present  int64  `json:"present"`
	Gaps     []Gap  `json:"gaps,omitempty"`
}

// Complete 表示区间内没有缺口。
func (r IntegrityReport) Complete() bool {
	return r.Expected > 0 && r.Present >= r.Expected && len(r.Gaps) == 0
}

// CheckIntegrity 对齐周期网格后统计缺口，相邻缺失时间合并为一个 Gap。
func (s *Store) CheckIntegrity(ctx context.Context, symbol, interval string, iv market.Interval, start, end int64) (IntegrityReport, error) {
	start, end = iv.AlignRange(start, end)
	report := IntegrityReport{
		Symbol:   symbol,
		Interval: iv.Key,
		Start:    start,
		End:      end,
		Expected: iv.ExpectedBars(start, end),
	}
	times, err := s.LoadOpenTimes(ctx, symbol, interval, start, end)
	if err != nil {
		return report, err
	}
	report.Present = int64(len(times))

	step := iv.Millis()
	have := make(map[int64]struct{}, len(times))
	for _, ts := range times {
		have[ts] = struct{}{}
	}
	var open *Gap
	for ts := start; ts <= end; ts += step {
		if _, ok := have[ts]; ok {
			if open != nil {
				report.Gaps = append(report.Gaps, *open)
				open = nil
			}
			continue
		}
		if open == nil {
			open = &Gap{From: ts, To: ts}
		} else {
			open.To = ts
		}
	}
	if open != nil {
		report.Gaps = append(report.Gaps, *open)
	}
	return report, nil
}
