package app

import (
	"context"
	"fmt"

	"quantbt/internal/config"
	"quantbt/internal/ingest"
	"quantbt/internal/logger"
	"quantbt/internal/results"
	"quantbt/internal/scheduler"
	"quantbt/internal/store"
	"quantbt/internal/strategy"
	httpapi "quantbt/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 与数据调度。
type App struct {
	cfg      *config.Config
	barStore *store.Store
	svc      *ingest.Service
	results  *results.Store
	factory  *strategy.Factory
	runner   *Runner
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return NewBuilder(cfg).Build()
}

// Runner 暴露底层 runner，供命令行一次性模式使用。
func (a *App) Runner() *Runner {
	if a == nil {
		return nil
	}
	return a.runner
}

// Run 启动 HTTP 服务与增量更新调度，阻塞到 ctx 结束。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)
	a.svc.SetContext(ctx)
	a.runner.SetContext(ctx)

	server, err := httpapi.NewServer(httpapi.Config{
		Addr:    a.cfg.App.HTTPAddr,
		Service: a.svc,
		Runner:  a.runner,
		Results: a.results,
		Bars:    a.barStore,
	})
	if err != nil {
		return err
	}
	group.Go(func() error {
		if err := server.Run(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	if a.cfg.Ingest.Enabled {
		updater := scheduler.NewUpdater(a.cfg.Ingest, a.svc)
		group.Go(func() error {
			return updater.Run(ctx)
		})
	}

	defer a.Close()
	return group.Wait()
}

// Close 释放底层存储连接。
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.results != nil {
		if err := a.results.Close(); err != nil {
			logger.Warnf("关闭 result store 失败: %v", err)
		}
	}
	if a.barStore != nil {
		if err := a.barStore.Close(); err != nil {
			logger.Warnf("关闭 bar store 失败: %v", err)
		}
	}
}
