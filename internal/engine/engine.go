package engine

import (
	"context"
	"fmt"

	"quantbt/internal/logger"

	"github.com/shopspring/decimal"
)

// Engine 把时间线、策略、风控、撮合与账本编排为一次确定性回测。
// 推进严格单线程、按时间线顺序执行：策略与风控依赖前序步骤改写的
// 账本状态，乱序即破坏可复现性，这是正确性要求而非性能取舍。
type Engine struct {
	cfg      RunConfig
	strategy Strategy
	htf      HTFProvider
	status   string
}

// New 构建引擎，初始状态 Initialized。
func New(cfg RunConfig, strategy Strategy, htf HTFProvider) (*Engine, error) {
	if strategy == nil {
		return nil, fmt.Errorf("strategy 不能为空")
	}
	if cfg.MaxSignalsPerBar <= 0 {
		cfg.MaxSignalsPerBar = 1
	}
	return &Engine{cfg: cfg, strategy: strategy, htf: htf, status: RunStatusInitialized}, nil
}

func (e *Engine) Status() string { return e.status }

// Run 对给定的 bundle 集执行一次完整回测。
// Completed / Failed / Cancelled 均为终态；取消与爆仓都返回可检视的
// 部分结果而不是直接抛错。
func (e *Engine) Run(ctx context.Context, bundles map[string]SymbolDataBundle) (*BacktestResult, error) {
	if e.status != RunStatusInitialized {
		return nil, fmt.Errorf("引擎状态 %s 不允许启动", e.status)
	}
	e.status = RunStatusRunning

	timeline := Synchronize(bundles)
	ledger := NewLedger(e.cfg.InitialCapital)
	admission := NewAdmission(e.cfg)
	filler := NewFillSimulator(e.cfg.SlippageBps, e.cfg.CommissionRate)

	totalBars := 0
	rejections := 0
	droppedIntents := 0
	var notes []string

	for idx, step := range timeline {
		// 每个 timestep 检查一次取消信号，返回已完成部分
		select {
		case <-ctx.Done():
			e.status = RunStatusCancelled
			res := e.buildResult(ledger, totalBars, rejections, droppedIntents,
				append(notes, "run cancelled: "+ctx.Err().Error()))
			return res, nil
		default:
		}

		totalBars += len(step.Bars)
		prices := make(map[string]decimal.Decimal, len(step.Bars))
		for sym, bar := range step.Bars {
			prices[sym] = bar.Close
		}

		// 1. 按字典序逐 symbol 询问策略，收集本步意图
		var intents []TradeIntent
		for _, sym := range step.Symbols {
			bar := step.Bars[sym]
			var htfCtx *HTFContext
			if e.htf != nil {
				htfCtx = e.htf.Context(sym, step.Timestamp)
			}
			for _, intent := range e.strategy.Decide(bar, htfCtx) {
				intent.Symbol = sym
				intents = append(intents, intent)
			}
		}
		// 2. 超出单步上限的意图丢弃，保留先生成的。
		// 丢弃与风控拒绝是两类事件，分开计数
		if len(intents) > e.cfg.MaxSignalsPerBar {
			droppedIntents += len(intents) - e.cfg.MaxSignalsPerBar
			intents = intents[:e.cfg.MaxSignalsPerBar]
		}

		// 3. 风控准入（同一固定顺序），4. 撮合并记账
		admitted, stepRejected := admission.Admit(intents, ledger, prices)
		rejections += len(stepRejected)
		for _, order := range admitted {
			e.applyOrder(ledger, filler, order, prices, step.Timestamp)
		}

		// 6. 最后一个 timestep 强制平掉所有剩余仓位
		if idx == len(timeline)-1 {
			ledger.MarkToMarket(prices)
			e.forceCloseAll(ledger, filler, step.Timestamp, &notes)
		}

		// 5. mark-to-market 并记录本步资金快照
		equity := ledger.MarkToMarket(prices)
		ledger.RecordSnapshot(step.Timestamp, equity)

		// 爆仓：权益转负且未允许做空 → Failed，部分结果仍可检视
		if equity.Sign() < 0 && !e.cfg.AllowShort {
			e.status = RunStatusFailed
			res := e.buildResult(ledger, totalBars, rejections, droppedIntents,
				append(notes, fmt.Sprintf("margin call at ts=%d equity=%s", step.Timestamp, equity)))
			res.Error = ErrMarginExceeded.Error()
			return res, fmt.Errorf("ts=%d equity=%s: %w", step.Timestamp, equity, ErrMarginExceeded)
		}
	}

	e.status = RunStatusCompleted
	return e.buildResult(ledger, totalBars, rejections, droppedIntents, notes), nil
}

// applyOrder 先平后开；撮合价基于当前 bar 收盘价。
func (e *Engine) applyOrder(ledger *Ledger, filler FillSimulator, order AdmittedOrder, prices map[string]decimal.Decimal, ts int64) {
	sym := order.Intent.Symbol
	closePrice := prices[sym]

	if order.CloseFirst {
		if pos := ledger.Position(sym); pos != nil {
			fill := filler.Fill(isBuyToClose(pos.Side), closePrice, pos.Quantity)
			if _, err := ledger.Close(sym, fill.Price, ts, fill.Commission); err != nil {
				logger.Warnf("[engine] 平仓 %s 失败: %v", sym, err)
			}
		}
	}
	if order.Quantity.Sign() <= 0 {
		return
	}
	fill := filler.Fill(isBuyToOpen(order.Intent.Side), closePrice, order.Quantity)
	pos := &Position{
		Symbol:          sym,
		Side:            order.Intent.Side,
		Quantity:        order.Quantity,
		EntryPrice:      fill.Price,
		EntryTime:       ts,
		Stop:            order.Intent.Stop,
		Target:          order.Intent.Target,
		EntryCommission: fill.Commission,
		RiskAmount:      order.RiskAmount,
	}
	if err := ledger.Open(pos); err != nil {
		logger.Warnf("[engine] 开仓 %s 失败: %v", sym, err)
	}
}

// forceCloseAll 以各仓位自身最近的 mark 价强平。
// symbol 提前停牌时不会借用其它 symbol 的全局末根价格。
func (e *Engine) forceCloseAll(ledger *Ledger, filler FillSimulator, ts int64, notes *[]string) {
	for _, sym := range ledger.OpenSymbols() {
		pos := ledger.Position(sym)
		fill := filler.Fill(isBuyToClose(pos.Side), pos.LastMark, pos.Quantity)
		if _, err := ledger.Close(sym, fill.Price, ts, fill.Commission); err != nil {
			logger.Warnf("[engine] 强制平仓 %s 失败: %v", sym, err)
			continue
		}
		*notes = append(*notes, fmt.Sprintf("force-closed %s at %s", sym, fill.Price))
	}
}

func (e *Engine) buildResult(ledger *Ledger, totalBars, rejections, droppedIntents int, notes []string) *BacktestResult {
	curve := ledger.Curve()
	endingEquity := e.cfg.InitialCapital
	if len(curve) > 0 {
		endingEquity = curve[len(curve)-1].Equity
	}
	return &BacktestResult{
		RunID:          e.cfg.RunID,
		Status:         e.status,
		Config:         e.cfg,
		Trades:         ledger.Trades(),
		EquityCurve:    curve,
		StartingCash:   e.cfg.InitialCapital,
		EndingCash:     ledger.Cash(),
		StartingEquity: e.cfg.InitialCapital,
		EndingEquity:   endingEquity,
		TotalBars:      totalBars,
		Rejections:     rejections,
		DroppedIntents: droppedIntents,
		Notes:          notes,
	}
}
