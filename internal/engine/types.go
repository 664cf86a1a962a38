package engine

import (
	"errors"

	"quantbt/internal/config"

	"github.com/shopspring/decimal"
)

const (
	SideLong  = "long"
	SideShort = "short"
)

const (
	RunStatusInitialized = "initialized"
	RunStatusRunning     = "running"
	RunStatusCompleted   = "completed"
	RunStatusCancelled   = "cancelled"
	RunStatusFailed      = "failed"
)

// ErrMarginExceeded 表示权益转负且未开启做空保证金，属于致命错误。
var ErrMarginExceeded = errors.New("margin exceeded")

// TradeIntent 是策略在单个 timestep 内提出的交易意图，仅在当步内有效。
type TradeIntent struct {
	Symbol     string           `json:"symbol"`
	Side       string           `json:"side"`
	SizeFrac   decimal.Decimal  `json:"size_frac"` // 可选：直接指定权益占比
	Quantity   decimal.Decimal  `json:"quantity"`  // 可选：直接指定数量
	Stop       *decimal.Decimal `json:"stop,omitempty"`
	Target     *decimal.Decimal `json:"target,omitempty"`
	Confidence float64          `json:"confidence"`
}

// AdmittedOrder 是通过风控准入后的可执行订单。
type AdmittedOrder struct {
	Intent     TradeIntent
	Quantity   decimal.Decimal
	RiskAmount decimal.Decimal // 该仓位占用的名义风险额度
	CloseFirst bool            // 反向意图：先平掉现有仓位
}

// FillResult 是模拟撮合的结果；撮合本身从不失败。
type FillResult struct {
	Price      decimal.Decimal
	Commission decimal.Decimal
}

// Position 表示一个已开仓位；同一 symbol 同时最多一个，
// 状态只允许 Ledger 修改。
type Position struct {
	Symbol          string           `json:"symbol"`
	Side            string           `json:"side"`
	Quantity        decimal.Decimal  `json:"quantity"`
	EntryPrice      decimal.Decimal  `json:"entry_price"`
	EntryTime       int64            `json:"entry_time"`
	Stop            *decimal.Decimal `json:"stop,omitempty"`
	Target          *decimal.Decimal `json:"target,omitempty"`
	EntryCommission decimal.Decimal  `json:"entry_commission"`
	RiskAmount      decimal.Decimal  `json:"risk_amount"`
	LastMark        decimal.Decimal  `json:"last_mark"` // 最近一次 mark-to-market 价格
}

// Trade 记录一次完整的开平仓，落定后不可变。
type Trade struct {
	Symbol         string          `json:"symbol"`
	Side           string          `json:"side"`
	Quantity       decimal.Decimal `json:"quantity"`
	EntryTime      int64           `json:"entry_time"`
	EntryPrice     decimal.Decimal `json:"entry_price"`
	ExitTime       int64           `json:"exit_time"`
	ExitPrice      decimal.Decimal `json:"exit_price"`
	GrossProfit    decimal.Decimal `json:"gross_profit"`
	CommissionPaid decimal.Decimal `json:"commission_paid"`
	NetProfit      decimal.Decimal `json:"net_profit"`
}

// Snapshot 是资金曲线上的一个点，每个 timestep 追加一条。
type Snapshot struct {
	Timestamp int64           `json:"timestamp"`
	Cash      decimal.Decimal `json:"cash"`
	Equity    decimal.Decimal `json:"equity"`
}

// RunConfig 是引擎内部使用的参数快照（资金字段一律 decimal）。
type RunConfig struct {
	RunID               string          `json:"run_id"`
	Symbols             []string        `json:"symbols"`
	TradingInterval     string          `json:"trading_interval"`
	HTFInterval         string          `json:"htf_interval"`
	Start               int64           `json:"start"`
	End                 int64           `json:"end"`
	InitialCapital      decimal.Decimal `json:"initial_capital"`
	RiskPerTradePct     decimal.Decimal `json:"risk_per_trade_pct"`
	MaxPositions        int             `json:"max_positions"`
	MaxPortfolioRiskPct decimal.Decimal `json:"max_portfolio_risk_pct"`
	CommissionRate      decimal.Decimal `json:"commission_rate"`
	SlippageBps         decimal.Decimal `json:"slippage_bps"`
	RegularHoursOnly    bool            `json:"regular_hours_only"`
	AllowShort          bool            `json:"allow_short"`
	MaxSignalsPerBar    int             `json:"max_signals_per_bar"`
	PeriodsPerYear      int             `json:"periods_per_year"`
	Strategy            string          `json:"strategy"`
}

// NewRunConfig 把用户配置折算为引擎参数。
func NewRunConfig(bt config.BacktestConfig) RunConfig {
	return RunConfig{
		TradingInterval:     bt.TradingInterval,
		HTFInterval:         bt.HTFInterval,
		InitialCapital:      decimal.NewFromFloat(bt.InitialCapital),
		RiskPerTradePct:     decimal.NewFromFloat(bt.RiskPerTradePct),
		MaxPositions:        bt.MaxPositions,
		MaxPortfolioRiskPct: decimal.NewFromFloat(bt.MaxPortfolioRiskPct),
		CommissionRate:      decimal.NewFromFloat(bt.CommissionRate),
		SlippageBps:         decimal.NewFromFloat(bt.SlippageBps),
		RegularHoursOnly:    bt.RegularHoursOnly,
		AllowShort:          bt.AllowShort,
		MaxSignalsPerBar:    bt.MaxSignalsPerBar,
		PeriodsPerYear:      bt.PeriodsPerYear,
	}
}

// BacktestResult 是一次回测的全部产物，引擎返回后不再修改。
// 不携带墙钟时间：相同配置与数据两次运行的序列化结果逐字节一致，
// 起止时刻由 results 层的 run 记录负责。
type BacktestResult struct {
	RunID          string          `json:"run_id"`
	Status         string          `json:"status"`
	Config         RunConfig       `json:"config"`
	Trades         []Trade         `json:"trades"`
	EquityCurve    []Snapshot      `json:"equity_curve"`
	StartingCash   decimal.Decimal `json:"starting_cash"`
	EndingCash     decimal.Decimal `json:"ending_cash"`
	StartingEquity decimal.Decimal `json:"starting_equity"`
	EndingEquity   decimal.Decimal `json:"ending_equity"`
	TotalBars      int             `json:"total_bars"`
	Rejections     int             `json:"rejections"`      // 风控准入拒绝
	DroppedIntents int             `json:"dropped_intents"` // 超出单步信号上限被丢弃
	Notes          []string        `json:"notes,omitempty"`
	Error          string          `json:"error,omitempty"`
}
