package engine

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

// PerformanceSummary 汇总一次回测的绩效指标。
// 数学上无定义的指标（零交易的胜率、无亏损的盈亏比、无下行波动的
// sortino）用 nil 表示，序列化后是 null 而不是误导性的 0。
type PerformanceSummary struct {
	TotalReturn   decimal.Decimal `json:"total_return"`
	MaxDrawdown   decimal.Decimal `json:"max_drawdown"` // 非正小数，-0.08 即回撤 8%
	NumTrades     int             `json:"num_trades"`
	WinningTrades int             `json:"winning_trades"`
	LosingTrades  int             `json:"losing_trades"`
	WinRate       *float64        `json:"win_rate"`
	ProfitFactor  *float64        `json:"profit_factor"`
	AvgTradePnL   decimal.Decimal `json:"avg_trade_pnl"`
	Volatility    *float64        `json:"volatility"`
	Sharpe        *float64        `json:"sharpe"`
	Sortino       *float64        `json:"sortino"`
	TotalFees     decimal.Decimal `json:"total_fees"`
}

// Summarize 从回测结果计算绩效指标。
// 收益率相关统计基于快照序列的单步简单收益，PeriodsPerYear>0 时年化。
func Summarize(result *BacktestResult) PerformanceSummary {
	s := PerformanceSummary{
		TotalReturn: totalReturn(result),
		MaxDrawdown: maxDrawdown(result.EquityCurve),
		NumTrades:   len(result.Trades),
	}

	grossWin := decimal.Zero
	grossLoss := decimal.Zero
	totalPnL := decimal.Zero
	for _, t := range result.Trades {
		totalPnL = totalPnL.Add(t.NetProfit)
		s.TotalFees = s.TotalFees.Add(t.CommissionPaid)
		switch t.NetProfit.Sign() {
		case 1:
			s.WinningTrades++
			grossWin = grossWin.Add(t.NetProfit)
		case -1:
			s.LosingTrades++
			grossLoss = grossLoss.Add(t.NetProfit.Neg())
		}
	}
	if s.NumTrades > 0 {
		s.AvgTradePnL = totalPnL.Div(decimal.NewFromInt(int64(s.NumTrades)))
		rate := float64(s.WinningTrades) / float64(s.NumTrades)
		s.WinRate = &rate
	}
	if grossLoss.Sign() > 0 {
		pf, _ := grossWin.Div(grossLoss).Float64()
		s.ProfitFactor = &pf
	}

	returns := stepReturns(result.EquityCurve)
	if len(returns) >= 2 {
		s.Volatility, s.Sharpe, s.Sortino = ratioMetrics(returns, result.Config.PeriodsPerYear)
	}
	return s
}

func totalReturn(result *BacktestResult) decimal.Decimal {
	if result.StartingEquity.Sign() <= 0 {
		return decimal.Zero
	}
	return result.EndingEquity.Sub(result.StartingEquity).Div(result.StartingEquity)
}

// maxDrawdown 返回相对历史峰值的最大回撤，约定为非正小数：
// -0.08 表示最深回撤 8%，无回撤时为 0。
func maxDrawdown(curve []Snapshot) decimal.Decimal {
	if len(curve) == 0 {
		return decimal.Zero
	}
	one := decimal.NewFromInt(1)
	peak := curve[0].Equity
	maxDD := decimal.Zero
	for _, snap := range curve[1:] {
		if snap.Equity.GreaterThan(peak) {
			peak = snap.Equity
			continue
		}
		if peak.Sign() <= 0 {
			continue
		}
		dd := snap.Equity.Div(peak).Sub(one)
		if dd.LessThan(maxDD) {
			maxDD = dd
		}
	}
	return maxDD
}

// stepReturns 计算相邻快照之间的简单收益率；前值非正的步跳过。
func stepReturns(curve []Snapshot) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev.Sign() <= 0 {
			continue
		}
		r, _ := curve[i].Equity.Sub(prev).Div(prev).Float64()
		out = append(out, r)
	}
	return out
}

func ratioMetrics(returns []float64, periodsPerYear int) (vol, sharpe, sortino *float64) {
	mean, err := stats.Mean(returns)
	if err != nil {
		return nil, nil, nil
	}
	sd, err := stats.StandardDeviationSample(returns)
	if err != nil {
		return nil, nil, nil
	}

	annual := 1.0
	if periodsPerYear > 0 {
		annual = math.Sqrt(float64(periodsPerYear))
	}
	v := sd * annual
	vol = &v

	if sd > 0 {
		sh := mean / sd * annual
		sharpe = &sh
	}

	// sortino 只考虑下行波动；没有负收益则无定义
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return vol, sharpe, nil
	}
	sumSq := 0.0
	for _, r := range downside {
		sumSq += r * r
	}
	downDev := math.Sqrt(sumSq / float64(len(returns)))
	if downDev > 0 {
		so := mean / downDev * annual
		sortino = &so
	}
	return vol, sharpe, sortino
}
