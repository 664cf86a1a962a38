package config

import "strings"

// 默认值常量
const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppHTTPAddr     = ":9991"
	defaultDataRoot        = "data/bars"
	defaultResultsPath     = "data/results/runs.db"
	defaultExchange        = "binance"
	defaultRateLimit       = 480
	defaultMaxBatch        = 1000
	defaultMaxConcurrent   = 2
	defaultBufferDays      = 3
	defaultIngestInterval  = "1h"
	defaultInitialCapital  = 100000
	defaultRiskPerTrade    = 0.01
	defaultMaxPositions    = 5
	defaultPortfolioRisk   = 0.05
	defaultCommissionRate  = 0.0004
	defaultSlippageBps     = 2
	defaultTradingInterval = "1h"
	defaultHTFInterval     = "1d"
	defaultMaxSignals      = 10
	defaultStrategyName    = "sma_cross"
	defaultProfilesPath    = "configs/strategies.yaml"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults() {
	c.App.applyDefaults()
	c.Data.applyDefaults()
	c.Ingest.applyDefaults(c.Data, c.Backtest)
	c.Backtest.applyDefaults()
	c.Strategy.applyDefaults()
}

func (a *AppConfig) applyDefaults() {
	if strings.TrimSpace(a.Env) == "" {
		a.Env = defaultAppEnv
	}
	if strings.TrimSpace(a.LogLevel) == "" {
		a.LogLevel = defaultAppLogLevel
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		a.HTTPAddr = defaultAppHTTPAddr
	}
}

func (d *DataConfig) applyDefaults() {
	if strings.TrimSpace(d.Root) == "" {
		d.Root = defaultDataRoot
	}
	if strings.TrimSpace(d.ResultsPath) == "" {
		d.ResultsPath = defaultResultsPath
	}
	if strings.TrimSpace(d.DefaultExchange) == "" {
		d.DefaultExchange = defaultExchange
	}
	if d.RateLimitPerMin <= 0 {
		d.RateLimitPerMin = defaultRateLimit
	}
	if d.MaxBatch <= 0 {
		d.MaxBatch = defaultMaxBatch
	}
	if d.MaxConcurrent <= 0 {
		d.MaxConcurrent = defaultMaxConcurrent
	}
}

func (i *IngestConfig) applyDefaults(data DataConfig, bt BacktestConfig) {
	if strings.TrimSpace(i.Exchange) == "" {
		i.Exchange = data.DefaultExchange
	}
	if strings.TrimSpace(i.Interval) == "" {
		if strings.TrimSpace(bt.TradingInterval) != "" {
			i.Interval = bt.TradingInterval
		} else {
			i.Interval = defaultIngestInterval
		}
	}
	if i.BufferDays <= 0 {
		i.BufferDays = defaultBufferDays
	}
}

func (b *BacktestConfig) applyDefaults() {
	if b.InitialCapital <= 0 {
		b.InitialCapital = defaultInitialCapital
	}
	if b.RiskPerTradePct <= 0 {
		b.RiskPerTradePct = defaultRiskPerTrade
	}
	if b.MaxPositions <= 0 {
		b.MaxPositions = defaultMaxPositions
	}
	if b.MaxPortfolioRiskPct <= 0 {
		b.MaxPortfolioRiskPct = defaultPortfolioRisk
	}
	if b.CommissionRate < 0 {
		b.CommissionRate = defaultCommissionRate
	}
	if b.SlippageBps < 0 {
		b.SlippageBps = defaultSlippageBps
	}
	if strings.TrimSpace(b.TradingInterval) == "" {
		b.TradingInterval = defaultTradingInterval
	}
	if strings.TrimSpace(b.HTFInterval) == "" {
		b.HTFInterval = defaultHTFInterval
	}
	if b.MaxSignalsPerBar <= 0 {
		b.MaxSignalsPerBar = defaultMaxSignals
	}
}

func (s *StrategyConfig) applyDefaults() {
	if strings.TrimSpace(s.Name) == "" {
		s.Name = defaultStrategyName
	}
	if strings.TrimSpace(s.ProfilesPath) == "" {
		s.ProfilesPath = defaultProfilesPath
	}
}
