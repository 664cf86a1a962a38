package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func curveOf(values ...float64) []Snapshot {
	curve := make([]Snapshot, 0, len(values))
	for i, v := range values {
		curve = append(curve, Snapshot{Timestamp: int64(i + 1), Cash: d(v), Equity: d(v)})
	}
	return curve
}

func TestSummarizeBasics(t *testing.T) {
	result := &BacktestResult{
		Status:         RunStatusCompleted,
		StartingEquity: d(100000),
		EndingEquity:   d(110000),
		Trades: []Trade{
			{NetProfit: d(1000), CommissionPaid: d(10)},
			{NetProfit: d(800), CommissionPaid: d(8)},
			{NetProfit: d(-550), CommissionPaid: d(12)},
		},
		EquityCurve: curveOf(100000, 105000, 103000, 110000),
	}
	s := Summarize(result)

	assert.True(t, s.TotalReturn.Equal(d(0.1)), "total_return=%s", s.TotalReturn)
	// 峰值 105000 回落到 103000，回撤为负小数
	expectedDD := d(103000).Div(d(105000)).Sub(d(1))
	assert.True(t, s.MaxDrawdown.Equal(expectedDD), "max_drawdown=%s", s.MaxDrawdown)
	assert.True(t, s.MaxDrawdown.IsNegative())

	assert.Equal(t, 3, s.NumTrades)
	assert.Equal(t, 2, s.WinningTrades)
	assert.Equal(t, 1, s.LosingTrades)
	if assert.NotNil(t, s.WinRate) {
		assert.InDelta(t, 2.0/3.0, *s.WinRate, 1e-12)
	}
	if assert.NotNil(t, s.ProfitFactor) {
		assert.InDelta(t, 1800.0/550.0, *s.ProfitFactor, 1e-9)
	}
	assert.True(t, s.TotalFees.Equal(d(30)))
	assert.True(t, s.AvgTradePnL.Equal(d(1250).Div(d(3))))

	// 收益序列含一个下行步，三个比率指标都有定义
	assert.NotNil(t, s.Volatility)
	assert.NotNil(t, s.Sharpe)
	assert.NotNil(t, s.Sortino)
}

func TestMaxDrawdownSignConvention(t *testing.T) {
	// 105000 → 103000：equity/peak − 1 ≈ -0.019048
	dd := maxDrawdown(curveOf(100000, 105000, 103000, 110000))
	assert.InDelta(t, -2000.0/105000.0, dd.InexactFloat64(), 1e-12)
	assert.True(t, dd.IsNegative())

	// 单调上行没有回撤
	assert.True(t, maxDrawdown(curveOf(100, 110, 120)).IsZero())

	// 持续下行取最深的一步
	dd = maxDrawdown(curveOf(100, 80, 60))
	assert.InDelta(t, -0.4, dd.InexactFloat64(), 1e-12)
}

func TestSummarizeUndefinedMetricsAreNil(t *testing.T) {
	result := &BacktestResult{
		Status:         RunStatusCompleted,
		StartingEquity: d(100000),
		EndingEquity:   d(100000),
		EquityCurve:    curveOf(100000, 100000, 100000),
	}
	s := Summarize(result)

	assert.Equal(t, 0, s.NumTrades)
	assert.Nil(t, s.WinRate, "零交易的胜率无定义")
	assert.Nil(t, s.ProfitFactor)
	assert.True(t, s.TotalReturn.IsZero())
	assert.True(t, s.MaxDrawdown.IsZero())
}

func TestSummarizeNoLossesNoDownside(t *testing.T) {
	result := &BacktestResult{
		Status:         RunStatusCompleted,
		StartingEquity: d(100000),
		EndingEquity:   d(104000),
		Trades: []Trade{
			{NetProfit: d(2000)},
			{NetProfit: d(2000)},
		},
		EquityCurve: curveOf(100000, 102000, 104000),
	}
	s := Summarize(result)

	assert.Nil(t, s.ProfitFactor, "无亏损时盈亏比无定义")
	if assert.NotNil(t, s.WinRate) {
		assert.InDelta(t, 1.0, *s.WinRate, 1e-12)
	}
	assert.Nil(t, s.Sortino, "无下行收益时 sortino 无定义")
	assert.NotNil(t, s.Volatility)
}

func TestSummarizeAnnualization(t *testing.T) {
	result := &BacktestResult{
		Status:         RunStatusCompleted,
		Config:         RunConfig{PeriodsPerYear: 252},
		StartingEquity: d(100000),
		EndingEquity:   d(100500),
		EquityCurve:    curveOf(100000, 100200, 100100, 100500),
	}
	s := Summarize(result)
	if assert.NotNil(t, s.Volatility) {
		assert.Greater(t, *s.Volatility, 0.0)
	}

	// 不年化的同曲线波动率必然更小
	result.Config.PeriodsPerYear = 0
	raw := Summarize(result)
	if assert.NotNil(t, raw.Volatility) {
		assert.Less(t, *raw.Volatility, *s.Volatility)
	}
}
