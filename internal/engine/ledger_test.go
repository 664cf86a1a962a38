package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestLedgerOpenClose(t *testing.T) {
	led := NewLedger(d(100000))

	err := led.Open(&Position{
		Symbol:          "AAA",
		Side:            SideLong,
		Quantity:        d(100),
		EntryPrice:      d(100),
		EntryTime:       1,
		EntryCommission: d(4),
	})
	assert.NoError(t, err)
	assert.True(t, led.Cash().Equal(d(99996)), "开仓腿手续费立即扣现金")
	assert.Equal(t, 1, led.OpenCount())

	// 同 symbol 不允许叠加
	err = led.Open(&Position{Symbol: "AAA", Side: SideLong, Quantity: d(1), EntryPrice: d(100)})
	assert.Error(t, err)

	trade, err := led.Close("AAA", d(110), 2, d(5))
	assert.NoError(t, err)
	assert.True(t, trade.GrossProfit.Equal(d(1000)))
	assert.True(t, trade.CommissionPaid.Equal(d(9)))
	assert.True(t, trade.NetProfit.Equal(d(991)))
	assert.True(t, led.Cash().Equal(d(100991)), "现金 = 初始 − 开仓费 + 毛利 − 平仓费")
	assert.Equal(t, 0, led.OpenCount())

	_, err = led.Close("AAA", d(110), 3, decimal.Zero)
	assert.Error(t, err, "重复平仓必须报错")
}

func TestLedgerShortProfit(t *testing.T) {
	led := NewLedger(d(10000))
	assert.NoError(t, led.Open(&Position{
		Symbol: "SSS", Side: SideShort, Quantity: d(10), EntryPrice: d(100), EntryTime: 1,
	}))

	trade, err := led.Close("SSS", d(90), 2, decimal.Zero)
	assert.NoError(t, err)
	assert.True(t, trade.GrossProfit.Equal(d(100)), "做空下跌获利")
	assert.True(t, led.Cash().Equal(d(10100)))
}

func TestLedgerEquityIdentity(t *testing.T) {
	led := NewLedger(d(100000))
	assert.NoError(t, led.Open(&Position{
		Symbol: "AAA", Side: SideLong, Quantity: d(100), EntryPrice: d(100), EntryTime: 1,
	}))
	assert.NoError(t, led.Open(&Position{
		Symbol: "BBB", Side: SideShort, Quantity: d(10), EntryPrice: d(50), EntryTime: 1,
	}))

	prices := map[string]decimal.Decimal{"AAA": d(105), "BBB": d(48)}
	equity := led.EquityAt(prices)
	// cash + Σ浮盈 = 100000 + 100×5 + 10×2
	assert.True(t, equity.Equal(d(100520)), "equity=%s", equity)
	// EquityAt 不改状态
	assert.True(t, led.Position("AAA").LastMark.Equal(d(100)))

	marked := led.MarkToMarket(prices)
	assert.True(t, marked.Equal(equity))
	assert.True(t, led.Position("AAA").LastMark.Equal(d(105)))

	// 价格缺失沿用 LastMark
	again := led.EquityAt(nil)
	assert.True(t, again.Equal(equity))
}

func TestLedgerSnapshots(t *testing.T) {
	led := NewLedger(d(1000))
	led.RecordSnapshot(1, d(1000))
	led.RecordSnapshot(2, d(1010))
	curve := led.Curve()
	assert.Len(t, curve, 2)
	assert.Equal(t, int64(1), curve[0].Timestamp)
	assert.True(t, curve[0].Cash.Equal(d(1000)))
	assert.True(t, curve[1].Equity.Equal(d(1010)))
}
