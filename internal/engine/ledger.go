package engine

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Ledger 独占持有现金、持仓与资金曲线；任何其它组件都不得直接改写。
type Ledger struct {
	cash      decimal.Decimal
	positions map[string]*Position
	trades    []Trade
	curve     []Snapshot
}

func NewLedger(initialCash decimal.Decimal) *Ledger {
	return &Ledger{
		cash:      initialCash,
		positions: make(map[string]*Position),
	}
}

func (l *Ledger) Cash() decimal.Decimal { return l.cash }

func (l *Ledger) Trades() []Trade { return l.trades }

func (l *Ledger) Curve() []Snapshot { return l.curve }

// Position 返回 symbol 的当前持仓（无则 nil）。调用方不得修改。
func (l *Ledger) Position(symbol string) *Position {
	return l.positions[symbol]
}

func (l *Ledger) OpenCount() int { return len(l.positions) }

// OpenSymbols 返回当前持仓 symbol（字典序）。
func (l *Ledger) OpenSymbols() []string {
	out := make([]string, 0, len(l.positions))
	for sym := range l.positions {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// RiskInUse 返回所有持仓占用的名义风险额度之和。
func (l *Ledger) RiskInUse() decimal.Decimal {
	sum := decimal.Zero
	for _, pos := range l.positions {
		sum = sum.Add(pos.RiskAmount)
	}
	return sum
}

// Open 记入一笔新仓位；开仓腿的手续费立即从现金扣除。
func (l *Ledger) Open(pos *Position) error {
	if pos == nil {
		return fmt.Errorf("position 不能为空")
	}
	if _, exists := l.positions[pos.Symbol]; exists {
		return fmt.Errorf("%s 已存在持仓", pos.Symbol)
	}
	pos.LastMark = pos.EntryPrice
	l.positions[pos.Symbol] = pos
	l.cash = l.cash.Sub(pos.EntryCommission)
	return nil
}

// Close 平掉 symbol 的仓位并产出一笔不可变 Trade。
// gross = (exit−entry)×qty×方向；net = gross − 两腿手续费；
// 现金增加 gross − 平仓腿手续费（开仓腿在 Open 时已扣）。
func (l *Ledger) Close(symbol string, exitPrice decimal.Decimal, exitTime int64, exitCommission decimal.Decimal) (Trade, error) {
	pos, ok := l.positions[symbol]
	if !ok {
		return Trade{}, fmt.Errorf("%s 没有持仓可平", symbol)
	}
	gross := exitPrice.Sub(pos.EntryPrice).Mul(pos.Quantity)
	if pos.Side == SideShort {
		gross = gross.Neg()
	}
	commission := pos.EntryCommission.Add(exitCommission)
	trade := Trade{
		Symbol:         pos.Symbol,
		Side:           pos.Side,
		Quantity:       pos.Quantity,
		EntryTime:      pos.EntryTime,
		EntryPrice:     pos.EntryPrice,
		ExitTime:       exitTime,
		ExitPrice:      exitPrice,
		GrossProfit:    gross,
		CommissionPaid: commission,
		NetProfit:      gross.Sub(commission),
	}
	l.cash = l.cash.Add(gross).Sub(exitCommission)
	delete(l.positions, symbol)
	l.trades = append(l.trades, trade)
	return trade, nil
}

// unrealized 返回仓位按 mark 价的浮动盈亏。
func unrealized(pos *Position, mark decimal.Decimal) decimal.Decimal {
	pnl := mark.Sub(pos.EntryPrice).Mul(pos.Quantity)
	if pos.Side == SideShort {
		pnl = pnl.Neg()
	}
	return pnl
}

// EquityAt 用给定价格计算权益，不修改任何状态；价格缺失的 symbol
// 沿用其最近一次 mark 价。
func (l *Ledger) EquityAt(prices map[string]decimal.Decimal) decimal.Decimal {
	equity := l.cash
	for sym, pos := range l.positions {
		mark := pos.LastMark
		if p, ok := prices[sym]; ok {
			mark = p
		}
		equity = equity.Add(unrealized(pos, mark))
	}
	return equity
}

// MarkToMarket 用每个 symbol 最近可得的收盘价刷新仓位 mark 价并返回权益。
func (l *Ledger) MarkToMarket(prices map[string]decimal.Decimal) decimal.Decimal {
	for sym, pos := range l.positions {
		if p, ok := prices[sym]; ok {
			pos.LastMark = p
		}
	}
	return l.EquityAt(nil)
}

// RecordSnapshot 追加一条资金曲线记录。
func (l *Ledger) RecordSnapshot(ts int64, equity decimal.Decimal) {
	l.curve = append(l.curve, Snapshot{Timestamp: ts, Cash: l.cash, Equity: equity})
}
