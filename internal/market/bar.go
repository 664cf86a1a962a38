package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar 表示单个 symbol 在一个周期内的 OHLCV 观测，产出后不可变。
// 价格一律使用 decimal，避免资金曲线累计舍入误差。
type Bar struct {
	Symbol    string          `json:"symbol"`
	OpenTime  int64           `json:"open_time"`  // Unix ms，按周期对齐
	CloseTime int64           `json:"close_time"` // Unix ms
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	AdjClose  decimal.Decimal `json:"adj_close"`
	Volume    decimal.Decimal `json:"volume"`
}

// Timestamp 返回 bar 的对齐时间（UTC）。
func (b Bar) Timestamp() time.Time {
	return time.UnixMilli(b.OpenTime).UTC()
}

// Bars 为按 OpenTime 升序排列的序列。
type Bars []Bar

// Closes 提取收盘价序列（float64，供指标库使用）。
func (bs Bars) Closes() []float64 {
	out := make([]float64, len(bs))
	for i, b := range bs {
		out[i], _ = b.Close.Float64()
	}
	return out
}

// Highs 提取最高价序列。
func (bs Bars) Highs() []float64 {
	out := make([]float64, len(bs))
	for i, b := range bs {
		out[i], _ = b.High.Float64()
	}
	return out
}

// Lows 提取最低价序列。
func (bs Bars) Lows() []float64 {
	out := make([]float64, len(bs))
	for i, b := range bs {
		out[i], _ = b.Low.Float64()
	}
	return out
}

// Sorted 判断序列是否严格按 OpenTime 升序且无重复。
func (bs Bars) Sorted() bool {
	for i := 1; i < len(bs); i++ {
		if bs[i].OpenTime <= bs[i-1].OpenTime {
			return false
		}
	}
	return true
}
