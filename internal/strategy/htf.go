package strategy

import (
	"sort"

	"quantbt/internal/engine"
	"quantbt/internal/market"

	talib "github.com/markcheno/go-talib"
)

const htfTrendPeriod = 20

// HTFProvider 基于大周期 K 线预计算趋势上下文。
// 每根大周期 bar 只有在收盘之后才对小周期可见，杜绝未来数据泄漏。
type HTFProvider struct {
	interval string
	contexts map[string][]engine.HTFContext // 按 CloseTime 升序
}

// NewHTFProvider 从各 symbol 的大周期序列构建 provider。
func NewHTFProvider(interval string, bundles map[string]market.Bars) *HTFProvider {
	p := &HTFProvider{interval: interval, contexts: make(map[string][]engine.HTFContext, len(bundles))}
	for symbol, bars := range bundles {
		p.contexts[symbol] = buildContexts(symbol, interval, bars)
	}
	return p
}

// Context 返回 ts 时刻可用的最新大周期上下文；没有则返回 nil。
func (p *HTFProvider) Context(symbol string, ts int64) *engine.HTFContext {
	series := p.contexts[symbol]
	if len(series) == 0 {
		return nil
	}
	// 第一个 CloseTime > ts 的位置，其前一个即为可用上下文
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp > ts
	})
	if idx == 0 {
		return nil
	}
	ctx := series[idx-1]
	return &ctx
}

func buildContexts(symbol, interval string, bars market.Bars) []engine.HTFContext {
	if len(bars) == 0 {
		return nil
	}
	closes := bars.Closes()
	smaArr := talib.Sma(closes, htfTrendPeriod)
	out := make([]engine.HTFContext, 0, len(bars))
	for i, bar := range bars {
		values := map[string]float64{"close": closes[i]}
		if i >= htfTrendPeriod-1 {
			sma := smaArr[i]
			values["sma"] = sma
			switch {
			case closes[i] > sma:
				values["trend"] = 1
			case closes[i] < sma:
				values["trend"] = -1
			default:
				values["trend"] = 0
			}
		}
		out = append(out, engine.HTFContext{
			Symbol:    symbol,
			Interval:  interval,
			Timestamp: bar.CloseTime,
			Values:    values,
		})
	}
	return out
}
