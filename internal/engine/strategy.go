package engine

import (
	"quantbt/internal/market"
)

// HTFContext 是外部预先计算好的高周期分析快照，引擎只透传不解释。
type HTFContext struct {
	Symbol    string             `json:"symbol"`
	Interval  string             `json:"interval"`
	Timestamp int64              `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
}

// HTFProvider 按 symbol+时间提供高周期上下文；返回 nil 表示该时刻没有。
// 取值只允许使用当前时间之前收盘的数据，避免前视。
type HTFProvider interface {
	Context(symbol string, ts int64) *HTFContext
}

// Strategy 是可插拔的决策能力：给定当前 bar 与可选高周期上下文，
// 产出若干交易意图。实现可以维护滚动窗口等内部状态，但输出必须是
// 已观测 bar 序列的确定性函数——不读墙钟、不用随机数、不做外部 IO，
// 否则破坏可复现性。
type Strategy interface {
	Name() string
	Decide(bar market.Bar, htf *HTFContext) []TradeIntent
}
