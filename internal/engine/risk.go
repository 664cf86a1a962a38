package engine

import (
	"github.com/shopspring/decimal"
)

const (
	RejectNoPrice       = "no_price"
	RejectPyramiding    = "pyramiding"
	RejectMaxPositions  = "max_positions"
	RejectZeroQuantity  = "zero_quantity"
	RejectRiskBudget    = "risk_budget"
	RejectShortDisabled = "short_disabled"
)

// defaultSizeFraction 是未提供止损也未指定数量时的权益占比回退值。
var defaultSizeFraction = decimal.NewFromFloat(0.2)

// Rejection 记录一次被风控拒绝的意图；这是预期内事件，计数而不抛错。
type Rejection struct {
	Intent TradeIntent `json:"intent"`
	Reason string      `json:"reason"`
}

// Admission 按固定顺序对意图做风控准入。同一步内多个意图竞争剩余
// 风险额度时，先到者（symbol 字典序）得，后到者整单拒绝，不做部分成交。
type Admission struct {
	cfg RunConfig
}

func NewAdmission(cfg RunConfig) Admission {
	return Admission{cfg: cfg}
}

// Admit 过滤并定量一组意图。intents 必须已按固定 symbol 顺序排列，
// 函数本身保持输入顺序，保证可复现。
func (a Admission) Admit(intents []TradeIntent, led *Ledger, prices map[string]decimal.Decimal) ([]AdmittedOrder, []Rejection) {
	var admitted []AdmittedOrder
	var rejected []Rejection

	equity := led.EquityAt(prices)
	budget := a.cfg.MaxPortfolioRiskPct.Mul(equity)
	openCount := led.OpenCount()
	riskInUse := led.RiskInUse()

	for _, intent := range intents {
		price, ok := prices[intent.Symbol]
		if !ok || price.Sign() <= 0 {
			rejected = append(rejected, Rejection{Intent: intent, Reason: RejectNoPrice})
			continue
		}

		closeFirst := false
		freedRisk := decimal.Zero
		if existing := led.Position(intent.Symbol); existing != nil {
			if existing.Side == intent.Side {
				rejected = append(rejected, Rejection{Intent: intent, Reason: RejectPyramiding})
				continue
			}
			// 反向意图：先平仓，随后按新仓评估是否再开
			closeFirst = true
			freedRisk = existing.RiskAmount
		}

		slots := openCount
		if closeFirst {
			slots--
		}
		if slots >= a.cfg.MaxPositions {
			rejected = append(rejected, Rejection{Intent: intent, Reason: RejectMaxPositions})
			continue
		}

		qty, riskAmt := a.size(intent, price, equity)
		if qty.Sign() <= 0 {
			if closeFirst {
				// 平仓仍然执行，只是不再反向开仓
				admitted = append(admitted, AdmittedOrder{Intent: intent, CloseFirst: true})
				openCount--
				riskInUse = riskInUse.Sub(freedRisk)
				continue
			}
			rejected = append(rejected, Rejection{Intent: intent, Reason: RejectZeroQuantity})
			continue
		}

		if riskInUse.Sub(freedRisk).Add(riskAmt).GreaterThan(budget) {
			if closeFirst {
				admitted = append(admitted, AdmittedOrder{Intent: intent, CloseFirst: true})
				openCount--
				riskInUse = riskInUse.Sub(freedRisk)
				continue
			}
			rejected = append(rejected, Rejection{Intent: intent, Reason: RejectRiskBudget})
			continue
		}

		if intent.Side == SideShort && !a.cfg.AllowShort {
			if closeFirst {
				admitted = append(admitted, AdmittedOrder{Intent: intent, CloseFirst: true})
				openCount--
				riskInUse = riskInUse.Sub(freedRisk)
				continue
			}
			rejected = append(rejected, Rejection{Intent: intent, Reason: RejectShortDisabled})
			continue
		}

		admitted = append(admitted, AdmittedOrder{
			Intent:     intent,
			Quantity:   qty,
			RiskAmount: riskAmt,
			CloseFirst: closeFirst,
		})
		if closeFirst {
			riskInUse = riskInUse.Sub(freedRisk)
		} else {
			openCount++
		}
		riskInUse = riskInUse.Add(riskAmt)
	}
	return admitted, rejected
}

// size 计算下单数量与该仓位占用的名义风险额度。
// 有止损：qty = risk_per_trade_pct×equity / 每单位风险（入场价与止损的距离）。
// 无止损：回退为固定权益占比，风险额度按 risk_per_trade_pct×equity 预算。
func (a Admission) size(intent TradeIntent, price, equity decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	riskBudget := a.cfg.RiskPerTradePct.Mul(equity)

	if intent.Quantity.Sign() > 0 {
		qty := intent.Quantity
		if intent.Stop != nil {
			dist := price.Sub(*intent.Stop).Abs()
			if dist.Sign() > 0 {
				return qty, qty.Mul(dist)
			}
		}
		return qty, riskBudget
	}

	if intent.Stop != nil {
		dist := price.Sub(*intent.Stop).Abs()
		if dist.Sign() > 0 {
			return riskBudget.Div(dist), riskBudget
		}
	}

	frac := intent.SizeFrac
	if frac.Sign() <= 0 {
		frac = defaultSizeFraction
	}
	notional := frac.Mul(equity)
	if price.Sign() <= 0 {
		return decimal.Zero, decimal.Zero
	}
	return notional.Div(price), riskBudget
}
