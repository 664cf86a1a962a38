package engine

import (
	"sort"

	"quantbt/internal/market"
)

// SymbolDataBundle 是单个 symbol 的只读输入序列。
// Synchronize 在构建时间线期间独占合并结构，但从不修改 bundle 本身。
type SymbolDataBundle struct {
	Symbol string
	Bars   market.Bars
	Count  int
}

func NewBundle(symbol string, bars market.Bars) SymbolDataBundle {
	return SymbolDataBundle{Symbol: symbol, Bars: bars, Count: len(bars)}
}

// Timestep 是合并时间线上的一个点。某 symbol 在该时间没有 bar 时
// 不出现在 Symbols 中——跨市场日历不一致是常态，不是错误。
type Timestep struct {
	Timestamp int64
	Symbols   []string // 字典序
	Bars      map[string]market.Bar
}

// Synchronize 把各 symbol 的有序序列归并为一条按时间升序的稀疏时间线。
// 每个游标只前进不回退，总开销与 bar 总数成线性关系；不做插值或前向填充。
func Synchronize(bundles map[string]SymbolDataBundle) []Timestep {
	if len(bundles) == 0 {
		return nil
	}
	symbols := make([]string, 0, len(bundles))
	for sym := range bundles {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	cursors := make([]int, len(symbols))
	var steps []Timestep
	for {
		// 所有游标中最小的未消费时间戳
		minTS := int64(0)
		found := false
		for i, sym := range symbols {
			bars := bundles[sym].Bars
			if cursors[i] >= len(bars) {
				continue
			}
			ts := bars[cursors[i]].OpenTime
			if !found || ts < minTS {
				minTS = ts
				found = true
			}
		}
		if !found {
			break
		}
		step := Timestep{
			Timestamp: minTS,
			Bars:      make(map[string]market.Bar),
		}
		for i, sym := range symbols {
			bars := bundles[sym].Bars
			if cursors[i] < len(bars) && bars[cursors[i]].OpenTime == minTS {
				step.Bars[sym] = bars[cursors[i]]
				step.Symbols = append(step.Symbols, sym)
				cursors[i]++
			}
		}
		steps = append(steps, step)
	}
	return steps
}
