package engine

import (
	"context"
	"encoding/json"
	"testing"

	"quantbt/internal/market"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type signalKey struct {
	symbol string
	ts     int64
}

// scriptStrategy 按预先写好的剧本在指定 bar 上产出意图。
type scriptStrategy struct {
	signals map[signalKey][]TradeIntent
}

func (s *scriptStrategy) Name() string { return "script" }

func (s *scriptStrategy) Decide(bar market.Bar, htf *HTFContext) []TradeIntent {
	return s.signals[signalKey{bar.Symbol, bar.OpenTime}]
}

func engineTestConfig() RunConfig {
	return RunConfig{
		RunID:               "test-run",
		InitialCapital:      d(100000),
		RiskPerTradePct:     d(0.01),
		MaxPositions:        5,
		MaxPortfolioRiskPct: d(0.05),
		CommissionRate:      decimal.Zero,
		SlippageBps:         decimal.Zero,
		AllowShort:          false,
		MaxSignalsPerBar:    10,
	}
}

func seriesBundle(symbol string, start int64, closes ...float64) SymbolDataBundle {
	bars := make(market.Bars, 0, len(closes))
	for i, c := range closes {
		bars = append(bars, mkBar(symbol, start+int64(i), c))
	}
	return NewBundle(symbol, bars)
}

func TestEngineRunRoundTrip(t *testing.T) {
	strat := &scriptStrategy{signals: map[signalKey][]TradeIntent{
		{"AAA", 1}: {{Side: SideLong, SizeFrac: d(0.1)}},
	}}
	eng, err := New(engineTestConfig(), strat, nil)
	assert.NoError(t, err)
	assert.Equal(t, RunStatusInitialized, eng.Status())

	result, err := eng.Run(context.Background(), map[string]SymbolDataBundle{
		"AAA": seriesBundle("AAA", 1, 100, 110, 120, 130),
	})
	assert.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, eng.Status())
	assert.Equal(t, RunStatusCompleted, result.Status)
	assert.Equal(t, 4, result.TotalBars)

	// qty = 0.1×100000/100 = 100，末根强平于 130
	assert.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.True(t, trade.Quantity.Equal(d(100)))
	assert.True(t, trade.EntryPrice.Equal(d(100)))
	assert.True(t, trade.ExitPrice.Equal(d(130)))
	assert.True(t, trade.NetProfit.Equal(d(3000)))

	assert.Len(t, result.EquityCurve, 4)
	assert.True(t, result.EquityCurve[0].Equity.Equal(d(100000)))
	assert.True(t, result.EquityCurve[1].Equity.Equal(d(101000)))
	assert.True(t, result.EquityCurve[3].Equity.Equal(d(103000)))
	assert.True(t, result.EndingEquity.Equal(d(103000)))
	assert.True(t, result.EndingCash.Equal(d(103000)), "强平后现金与权益一致")

	// 引擎是一次性的：终态不允许再启动
	_, err = eng.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestEngineZeroSignalsPreservesCapital(t *testing.T) {
	eng, err := New(engineTestConfig(), &scriptStrategy{}, nil)
	assert.NoError(t, err)

	result, err := eng.Run(context.Background(), map[string]SymbolDataBundle{
		"AAA": seriesBundle("AAA", 1, 100, 90, 80),
	})
	assert.NoError(t, err)
	assert.Empty(t, result.Trades)
	assert.True(t, result.EndingEquity.Equal(result.StartingEquity), "零信号权益分毫不差")
	for _, snap := range result.EquityCurve {
		assert.True(t, snap.Equity.Equal(d(100000)))
	}
}

func TestEngineForceCloseUsesOwnLastMark(t *testing.T) {
	strat := &scriptStrategy{signals: map[signalKey][]TradeIntent{
		{"BBB", 1}: {{Side: SideLong, Quantity: d(10)}},
	}}
	eng, err := New(engineTestConfig(), strat, nil)
	assert.NoError(t, err)

	// BBB 在 ts=2 之后停牌，AAA 继续到 ts=4
	result, err := eng.Run(context.Background(), map[string]SymbolDataBundle{
		"AAA": seriesBundle("AAA", 1, 10, 11, 12, 13),
		"BBB": seriesBundle("BBB", 1, 50, 60),
	})
	assert.NoError(t, err)
	assert.Len(t, result.Trades, 1)
	// 强平价取 BBB 自己最后可得的收盘价 60，而非别的 symbol 的末根
	assert.True(t, result.Trades[0].ExitPrice.Equal(d(60)), "exit=%s", result.Trades[0].ExitPrice)
	assert.Equal(t, int64(4), result.Trades[0].ExitTime)
}

func TestEngineCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng, err := New(engineTestConfig(), &scriptStrategy{}, nil)
	assert.NoError(t, err)
	result, err := eng.Run(ctx, map[string]SymbolDataBundle{
		"AAA": seriesBundle("AAA", 1, 100, 101),
	})
	assert.NoError(t, err)
	assert.Equal(t, RunStatusCancelled, result.Status)
	assert.Empty(t, result.EquityCurve, "第一步之前即取消")
	assert.NotEmpty(t, result.Notes)
}

func TestEngineMaxSignalsPerBar(t *testing.T) {
	cfg := engineTestConfig()
	cfg.MaxSignalsPerBar = 1
	strat := &scriptStrategy{signals: map[signalKey][]TradeIntent{
		{"AAA", 1}: {{Side: SideLong, SizeFrac: d(0.01)}},
		{"BBB", 1}: {{Side: SideLong, SizeFrac: d(0.01)}},
	}}
	eng, err := New(cfg, strat, nil)
	assert.NoError(t, err)

	result, err := eng.Run(context.Background(), map[string]SymbolDataBundle{
		"AAA": seriesBundle("AAA", 1, 100, 101),
		"BBB": seriesBundle("BBB", 1, 100, 101),
	})
	assert.NoError(t, err)
	// 字典序在先的 AAA 保留；BBB 的意图被丢弃，计入独立的丢弃计数
	assert.Len(t, result.Trades, 1)
	assert.Equal(t, "AAA", result.Trades[0].Symbol)
	assert.Equal(t, 1, result.DroppedIntents)
	assert.Equal(t, 0, result.Rejections, "上限丢弃不混入风控拒绝")
}

func TestEngineMarginExceeded(t *testing.T) {
	strat := &scriptStrategy{signals: map[signalKey][]TradeIntent{
		{"AAA", 1}: {{Side: SideLong, Quantity: d(10000)}},
	}}
	eng, err := New(engineTestConfig(), strat, nil)
	assert.NoError(t, err)

	// 名义 1e6 远超权益，价格跌到 85 时权益转负
	result, err := eng.Run(context.Background(), map[string]SymbolDataBundle{
		"AAA": seriesBundle("AAA", 1, 100, 85, 80),
	})
	assert.ErrorIs(t, err, ErrMarginExceeded)
	assert.NotNil(t, result, "失败也要返回可检视的部分结果")
	assert.Equal(t, RunStatusFailed, result.Status)
	assert.Equal(t, ErrMarginExceeded.Error(), result.Error)
	assert.Len(t, result.EquityCurve, 2, "爆仓步之后不再推进")
}

func TestEngineDeterministic(t *testing.T) {
	run := func() *BacktestResult {
		strat := &scriptStrategy{signals: map[signalKey][]TradeIntent{
			{"AAA", 1}: {{Side: SideLong, SizeFrac: d(0.1)}},
			{"BBB", 2}: {{Side: SideLong, SizeFrac: d(0.05)}},
		}}
		eng, err := New(engineTestConfig(), strat, nil)
		assert.NoError(t, err)
		result, err := eng.Run(context.Background(), map[string]SymbolDataBundle{
			"AAA": seriesBundle("AAA", 1, 100, 101, 102, 103),
			"BBB": seriesBundle("BBB", 1, 50, 51, 52, 53),
		})
		assert.NoError(t, err)
		return result
	}

	first, second := run(), run()
	// 结果不含墙钟时间，整个 BacktestResult 序列化后必须逐字节一致
	rawA, errA := json.Marshal(first)
	rawB, errB := json.Marshal(second)
	assert.NoError(t, errA)
	assert.NoError(t, errB)
	assert.Equal(t, string(rawA), string(rawB), "同输入同配置，完整结果逐字节一致")
}
