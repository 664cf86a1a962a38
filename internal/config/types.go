package config

// Config 是 quantbt 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Data     DataConfig     `toml:"data"`
	Ingest   IngestConfig   `toml:"ingest"`
	Backtest BacktestConfig `toml:"backtest"`
	Strategy StrategyConfig `toml:"strategy"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// DataConfig 描述本地 K 线仓库与远端数据源。
type DataConfig struct {
	Root            string `toml:"root"`              // bar store 根目录
	ResultsPath     string `toml:"results_path"`      // 回测结果 sqlite 路径
	DefaultExchange string `toml:"default_exchange"`  // binance / rest
	RESTBaseURL     string `toml:"rest_base_url"`     // 通用 JSON 数据源地址
	RateLimitPerMin int    `toml:"rate_limit_per_min"`
	MaxBatch        int    `toml:"max_batch"`
	MaxConcurrent   int    `toml:"max_concurrent"`
}

// IngestConfig 控制增量更新调度。
type IngestConfig struct {
	Enabled    bool     `toml:"enabled"`
	Symbols    []string `toml:"symbols"`
	Exchange   string   `toml:"exchange"`
	Interval   string   `toml:"interval"`
	BufferDays int      `toml:"buffer_days"`
	OffsetSec  int      `toml:"offset_seconds"`
}

// BacktestConfig 汇总一次回测运行的资金与风控参数。
type BacktestConfig struct {
	InitialCapital      float64 `toml:"initial_capital"`
	RiskPerTradePct     float64 `toml:"risk_per_trade_pct"`
	MaxPositions        int     `toml:"max_positions"`
	MaxPortfolioRiskPct float64 `toml:"max_portfolio_risk_pct"`
	CommissionRate      float64 `toml:"commission_rate"`
	SlippageBps         float64 `toml:"slippage_bps"`
	RegularHoursOnly    bool    `toml:"regular_hours_only"`
	AllowShort          bool    `toml:"allow_short"`
	HTFInterval         string  `toml:"htf_interval"`
	TradingInterval     string  `toml:"trading_interval"`
	MaxSignalsPerBar    int     `toml:"max_signals_per_bar"`
	PeriodsPerYear      int     `toml:"periods_per_year"` // 0 表示不做年化
}

// StrategyConfig 指定策略变体与参数文件。
type StrategyConfig struct {
	Name         string         `toml:"name"`
	Params       map[string]any `toml:"params"`
	ProfilesPath string         `toml:"profiles_path"`
}
