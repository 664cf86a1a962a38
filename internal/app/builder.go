package app

import (
	"fmt"
	"strings"
	"time"

	"quantbt/internal/config"
	"quantbt/internal/ingest"
	"quantbt/internal/logger"
	"quantbt/internal/results"
	"quantbt/internal/store"
	"quantbt/internal/strategy"
)

// Builder 按配置逐层组装应用依赖。
type Builder struct {
	cfg *config.Config
}

func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// Build 构建完整应用（不启动）。
func (b *Builder) Build() (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	barStore, err := store.NewStore(cfg.Data.Root)
	if err != nil {
		return nil, fmt.Errorf("初始化 bar store 失败: %w", err)
	}

	sources, err := buildSources(cfg.Data)
	if err != nil {
		return nil, err
	}
	svc, err := ingest.NewService(ingest.ServiceConfig{
		Store:           barStore,
		Sources:         sources,
		DefaultExchange: cfg.Data.DefaultExchange,
		RateLimitPerMin: cfg.Data.RateLimitPerMin,
		MaxBatch:        cfg.Data.MaxBatch,
		MaxConcurrent:   cfg.Data.MaxConcurrent,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 ingest service 失败: %w", err)
	}

	resultStore, err := results.NewStore(cfg.Data.ResultsPath)
	if err != nil {
		return nil, fmt.Errorf("初始化 result store 失败: %w", err)
	}

	var registry *strategy.Registry
	if path := strings.TrimSpace(cfg.Strategy.ProfilesPath); path != "" {
		registry, err = strategy.NewRegistry(path)
		if err != nil {
			// 档案文件缺失只降级为内置默认参数
			logger.Warnf("策略档案不可用，使用内置默认参数: %v", err)
			registry = nil
		}
	}
	factory := strategy.NewFactory(registry)

	loader := ingest.NewLoader(barStore, cfg.Data.MaxConcurrent)
	runner := NewRunner(cfg, loader, factory, resultStore)

	return &App{
		cfg:      cfg,
		barStore: barStore,
		svc:      svc,
		results:  resultStore,
		factory:  factory,
		runner:   runner,
	}, nil
}

// buildSources 按配置装配可用数据源。
func buildSources(cfg config.DataConfig) (map[string]ingest.BarSource, error) {
	sources := map[string]ingest.BarSource{
		"binance": ingest.NewBinanceSource("", 15*time.Second),
	}
	if base := strings.TrimSpace(cfg.RESTBaseURL); base != "" {
		sources["rest"] = ingest.NewRESTSource(base, 15*time.Second)
	}
	if cfg.DefaultExchange != "" {
		if _, ok := sources[strings.ToLower(cfg.DefaultExchange)]; !ok {
			return nil, fmt.Errorf("默认数据源 %s 未配置", cfg.DefaultExchange)
		}
	}
	return sources, nil
}
