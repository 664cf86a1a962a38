package config

import (
	"fmt"

	"quantbt/internal/market"
)

// validate 对配置进行基础校验；配置错误一律在任何模拟开始前直接失败。
func validate(c *Config) error {
	if err := c.Data.validate(); err != nil {
		return err
	}
	if err := c.Backtest.validate(); err != nil {
		return err
	}
	if err := c.Ingest.validate(); err != nil {
		return err
	}
	return nil
}

func (d *DataConfig) validate() error {
	if d.Root == "" {
		return fmt.Errorf("data.root cannot be empty")
	}
	return nil
}

func (b *BacktestConfig) validate() error {
	if b.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be > 0")
	}
	if b.RiskPerTradePct <= 0 || b.RiskPerTradePct >= 1 {
		return fmt.Errorf("backtest.risk_per_trade_pct must be in (0,1)")
	}
	if b.MaxPortfolioRiskPct < b.RiskPerTradePct {
		return fmt.Errorf("backtest.max_portfolio_risk_pct (%.4f) must be >= risk_per_trade_pct (%.4f)",
			b.MaxPortfolioRiskPct, b.RiskPerTradePct)
	}
	if b.MaxPositions < 1 {
		return fmt.Errorf("backtest.max_positions must be >= 1")
	}
	if b.CommissionRate < 0 {
		return fmt.Errorf("backtest.commission_rate must be >= 0")
	}
	if b.SlippageBps < 0 {
		return fmt.Errorf("backtest.slippage_bps must be >= 0")
	}
	if b.MaxSignalsPerBar < 1 {
		return fmt.Errorf("backtest.max_signals_per_bar must be >= 1")
	}
	trading, err := market.ParseInterval(b.TradingInterval)
	if err != nil {
		return fmt.Errorf("backtest.trading_interval: %w", err)
	}
	htf, err := market.ParseInterval(b.HTFInterval)
	if err != nil {
		return fmt.Errorf("backtest.htf_interval: %w", err)
	}
	if htf.Duration <= trading.Duration {
		return fmt.Errorf("backtest.htf_interval (%s) must be longer than trading_interval (%s)",
			htf.Key, trading.Key)
	}
	if b.PeriodsPerYear < 0 {
		return fmt.Errorf("backtest.periods_per_year must be >= 0")
	}
	return nil
}

func (i *IngestConfig) validate() error {
	if !i.Enabled {
		return nil
	}
	if len(i.Symbols) == 0 {
		return fmt.Errorf("ingest.symbols cannot be empty when ingest.enabled")
	}
	if _, err := market.ParseInterval(i.Interval); err != nil {
		return fmt.Errorf("ingest.interval: %w", err)
	}
	return nil
}
