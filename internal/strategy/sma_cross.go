package strategy

import (
	"quantbt/internal/engine"
	"quantbt/internal/market"

	talib "github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
)

// SMACross 是快慢均线交叉策略：金叉开多、死叉反手。
// 每个 symbol 维护独立的收盘价窗口，同一输入序列输出完全确定。
type SMACross struct {
	fast    int
	slow    int
	stopPct float64
	useHTF  bool

	closes map[string][]float64
}

// NewSMACross 按参数构造策略实例。
func NewSMACross(params map[string]any) (engine.Strategy, error) {
	s := &SMACross{
		fast:    intParam(params, "fast", 10),
		slow:    intParam(params, "slow", 30),
		stopPct: floatParam(params, "stop_pct", 0.02),
		useHTF:  boolParam(params, "htf_filter", true),
		closes:  make(map[string][]float64),
	}
	if s.fast >= s.slow {
		s.fast, s.slow = 10, 30
	}
	return s, nil
}

func (s *SMACross) Name() string { return "sma_cross" }

// Decide 观察一根 bar 并给出交叉信号。
func (s *SMACross) Decide(bar market.Bar, htf *engine.HTFContext) []engine.TradeIntent {
	window := append(s.closes[bar.Symbol], bar.Close.InexactFloat64())
	if max := s.slow * 3; len(window) > max {
		window = window[len(window)-max:]
	}
	s.closes[bar.Symbol] = window
	if len(window) < s.slow+1 {
		return nil
	}

	fastArr := talib.Sma(window, s.fast)
	slowArr := talib.Sma(window, s.slow)
	n := len(window)
	cur := fastArr[n-1] - slowArr[n-1]
	prev := fastArr[n-2] - slowArr[n-2]

	trend := 0.0
	if htf != nil {
		trend = htf.Values["trend"]
	}

	switch {
	case prev <= 0 && cur > 0:
		// 大周期下行时不追多
		if s.useHTF && htf != nil && trend < 0 {
			return nil
		}
		stop := bar.Close.Mul(decimal.NewFromFloat(1 - s.stopPct))
		return []engine.TradeIntent{{
			Symbol:     bar.Symbol,
			Side:       engine.SideLong,
			Stop:       &stop,
			Confidence: crossConfidence(cur, slowArr[n-1]),
		}}
	case prev >= 0 && cur < 0:
		if s.useHTF && htf != nil && trend > 0 {
			return nil
		}
		stop := bar.Close.Mul(decimal.NewFromFloat(1 + s.stopPct))
		return []engine.TradeIntent{{
			Symbol:     bar.Symbol,
			Side:       engine.SideShort,
			Stop:       &stop,
			Confidence: crossConfidence(-cur, slowArr[n-1]),
		}}
	}
	return nil
}

// crossConfidence 用价差相对慢线的比例近似信号强度，截断到 [0,1]。
func crossConfidence(spread, base float64) float64 {
	if base <= 0 {
		return 0
	}
	c := spread / base * 100
	if c > 1 {
		c = 1
	}
	if c < 0 {
		c = 0
	}
	return c
}
