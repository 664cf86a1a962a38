package engine

import (
	"github.com/shopspring/decimal"
)

var bpsDenominator = decimal.NewFromInt(10000)

// FillSimulator 把已准入订单折算为成交价与手续费。
// 没有部分成交：订单要么在上游被拒，要么在这里全额成交——模拟器本身从不失败。
type FillSimulator struct {
	slippageBps    decimal.Decimal
	commissionRate decimal.Decimal
}

func NewFillSimulator(slippageBps, commissionRate decimal.Decimal) FillSimulator {
	return FillSimulator{slippageBps: slippageBps, commissionRate: commissionRate}
}

// Fill 以 bar 收盘价为基准，滑点方向永远对交易者不利：
// 买入（开多/平空）上浮，卖出（开空/平多）下调。
func (f FillSimulator) Fill(isBuy bool, closePrice, quantity decimal.Decimal) FillResult {
	slip := closePrice.Mul(f.slippageBps).Div(bpsDenominator)
	price := closePrice
	if isBuy {
		price = price.Add(slip)
	} else {
		price = price.Sub(slip)
	}
	notional := price.Mul(quantity)
	return FillResult{
		Price:      price,
		Commission: f.commissionRate.Mul(notional),
	}
}

// isBuyToOpen 返回开仓方向是否为买入。
func isBuyToOpen(side string) bool { return side == SideLong }

// isBuyToClose 返回平仓方向是否为买入。
func isBuyToClose(side string) bool { return side == SideShort }
