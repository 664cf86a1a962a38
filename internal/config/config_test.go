package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  env: prod
backtest:
  initial_capital: 50000
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":9991", cfg.App.HTTPAddr)
	assert.Equal(t, "data/bars", cfg.Data.Root)
	assert.Equal(t, "binance", cfg.Data.DefaultExchange)
	assert.Equal(t, float64(50000), cfg.Backtest.InitialCapital)
	assert.Equal(t, 0.01, cfg.Backtest.RiskPerTradePct)
	assert.Equal(t, "1h", cfg.Backtest.TradingInterval)
	assert.Equal(t, "1d", cfg.Backtest.HTFInterval)
	assert.Equal(t, 10, cfg.Backtest.MaxSignalsPerBar)
	assert.Equal(t, "sma_cross", cfg.Strategy.Name)
	// ingest 未启用时 interval 继承 trading_interval
	assert.Equal(t, "1h", cfg.Ingest.Interval)
}

func TestLoadValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{
			name: "风险比例越界",
			yaml: "backtest:\n  risk_per_trade_pct: 1.5\n",
		},
		{
			name: "组合风险小于单笔风险",
			yaml: "backtest:\n  risk_per_trade_pct: 0.1\n  max_portfolio_risk_pct: 0.02\n",
		},
		{
			name: "HTF 周期不大于交易周期",
			yaml: "backtest:\n  trading_interval: 1d\n  htf_interval: 1h\n",
		},
		{
			name: "非法交易周期",
			yaml: "backtest:\n  trading_interval: 3h\n",
		},
		{
			name: "ingest 启用但无 symbols",
			yaml: "ingest:\n  enabled: true\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadStrategyParams(t *testing.T) {
	path := writeConfig(t, `
strategy:
  name: momentum
  params:
    roc_period: 10
    threshold: 1.5
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "momentum", cfg.Strategy.Name)
	assert.Equal(t, 1.5, cfg.Strategy.Params["threshold"])
}
