package results

import "gorm.io/datatypes"

// RunModel 是一次回测 run 的持久化记录。
// 资金字段存十进制字符串，避免 REAL 往返引入浮点误差。
type RunModel struct {
	ID              string         `gorm:"column:id;primaryKey" json:"id"`
	Strategy        string         `gorm:"column:strategy;index" json:"strategy"`
	Status          string         `gorm:"column:status;index" json:"status"`
	Symbols         datatypes.JSON `gorm:"column:symbols;type:TEXT" json:"symbols"`
	TradingInterval string         `gorm:"column:trading_interval" json:"trading_interval"`
	HTFInterval     string         `gorm:"column:htf_interval" json:"htf_interval"`
	StartTS         int64          `gorm:"column:start_ts" json:"start_ts"`
	EndTS           int64          `gorm:"column:end_ts" json:"end_ts"`
	InitialCapital  string         `gorm:"column:initial_capital" json:"initial_capital"`
	EndingEquity    string         `gorm:"column:ending_equity" json:"ending_equity"`
	TotalReturn     string         `gorm:"column:total_return" json:"total_return"`
	MaxDrawdown     string         `gorm:"column:max_drawdown" json:"max_drawdown"`
	NumTrades       int            `gorm:"column:num_trades" json:"num_trades"`
	TotalBars       int            `gorm:"column:total_bars" json:"total_bars"`
	Rejections      int            `gorm:"column:rejections" json:"rejections"`
	DroppedIntents  int            `gorm:"column:dropped_intents" json:"dropped_intents"`
	ConfigJSON      datatypes.JSON `gorm:"column:config_json;type:TEXT" json:"config"`
	SummaryJSON     datatypes.JSON `gorm:"column:summary_json;type:TEXT" json:"summary"`
	NotesJSON       datatypes.JSON `gorm:"column:notes_json;type:TEXT" json:"notes,omitempty"`
	Message         string         `gorm:"column:message" json:"message,omitempty"`
	CreatedAtUnix   int64          `gorm:"column:created_at" json:"created_at"`
	UpdatedAtUnix   int64          `gorm:"column:updated_at" json:"updated_at"`
	CompletedAtUnix *int64         `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (RunModel) TableName() string { return "backtest_runs" }

// TradeModel 是一条已平仓交易记录。
type TradeModel struct {
	ID             int64  `gorm:"column:id;primaryKey" json:"id"`
	RunID          string `gorm:"column:run_id;index" json:"run_id"`
	Symbol         string `gorm:"column:symbol" json:"symbol"`
	Side           string `gorm:"column:side" json:"side"`
	Quantity       string `gorm:"column:quantity" json:"quantity"`
	EntryTime      int64  `gorm:"column:entry_time" json:"entry_time"`
	EntryPrice     string `gorm:"column:entry_price" json:"entry_price"`
	ExitTime       int64  `gorm:"column:exit_time" json:"exit_time"`
	ExitPrice      string `gorm:"column:exit_price" json:"exit_price"`
	GrossProfit    string `gorm:"column:gross_profit" json:"gross_profit"`
	CommissionPaid string `gorm:"column:commission_paid" json:"commission_paid"`
	NetProfit      string `gorm:"column:net_profit" json:"net_profit"`
}

func (TradeModel) TableName() string { return "backtest_trades" }

// SnapshotModel 是资金曲线上的一个点。
type SnapshotModel struct {
	ID     int64  `gorm:"column:id;primaryKey" json:"id"`
	RunID  string `gorm:"column:run_id;index" json:"run_id"`
	TS     int64  `gorm:"column:ts" json:"ts"`
	Cash   string `gorm:"column:cash" json:"cash"`
	Equity string `gorm:"column:equity" json:"equity"`
}

func (SnapshotModel) TableName() string { return "backtest_snapshots" }
