package strategy

import (
	"quantbt/internal/engine"
	"quantbt/internal/market"

	talib "github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
)

// Momentum 是动量突破策略：ROC 超过阈值且 RSI 未过热时顺势进场。
type Momentum struct {
	rocPeriod int
	rsiPeriod int
	threshold float64
	overbuy   float64
	oversell  float64
	stopPct   float64

	closes map[string][]float64
}

// NewMomentum 按参数构造策略实例。
func NewMomentum(params map[string]any) (engine.Strategy, error) {
	return &Momentum{
		rocPeriod: intParam(params, "roc_period", 12),
		rsiPeriod: intParam(params, "rsi_period", 14),
		threshold: floatParam(params, "threshold", 2.0),
		overbuy:   floatParam(params, "rsi_overbought", 70),
		oversell:  floatParam(params, "rsi_oversold", 30),
		stopPct:   floatParam(params, "stop_pct", 0.03),
		closes:    make(map[string][]float64),
	}, nil
}

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) Decide(bar market.Bar, htf *engine.HTFContext) []engine.TradeIntent {
	need := m.rocPeriod
	if m.rsiPeriod > need {
		need = m.rsiPeriod
	}
	window := append(m.closes[bar.Symbol], bar.Close.InexactFloat64())
	if max := need * 4; len(window) > max {
		window = window[len(window)-max:]
	}
	m.closes[bar.Symbol] = window
	if len(window) < need+1 {
		return nil
	}

	roc := talib.Roc(window, m.rocPeriod)
	rsi := talib.Rsi(window, m.rsiPeriod)
	lastRoc := roc[len(roc)-1]
	lastRsi := rsi[len(rsi)-1]

	switch {
	case lastRoc > m.threshold && lastRsi < m.overbuy:
		stop := bar.Close.Mul(decimal.NewFromFloat(1 - m.stopPct))
		return []engine.TradeIntent{{
			Symbol:     bar.Symbol,
			Side:       engine.SideLong,
			Stop:       &stop,
			Confidence: momentumConfidence(lastRoc, m.threshold),
		}}
	case lastRoc < -m.threshold && lastRsi > m.oversell:
		stop := bar.Close.Mul(decimal.NewFromFloat(1 + m.stopPct))
		return []engine.TradeIntent{{
			Symbol:     bar.Symbol,
			Side:       engine.SideShort,
			Stop:       &stop,
			Confidence: momentumConfidence(-lastRoc, m.threshold),
		}}
	}
	return nil
}

func momentumConfidence(roc, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	c := roc / (threshold * 2)
	if c > 1 {
		c = 1
	}
	if c < 0 {
		c = 0
	}
	return c
}
