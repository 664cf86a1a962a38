package backtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"quantbt/internal/config"
	"quantbt/internal/engine"
	"quantbt/internal/ingest"
	"quantbt/internal/logger"
	"quantbt/internal/market"
	"quantbt/internal/results"
	"quantbt/internal/strategy"

	"github.com/google/uuid"
)

// htfLookbackBars 决定大周期数据往前多取多少根，保证趋势指标在
// 回测窗口起点就有值。
const htfLookbackBars = 60

// RunRequest 描述一次回测请求。
type RunRequest struct {
	Symbols  []string       `json:"symbols"`
	Start    int64          `json:"start"`
	End      int64          `json:"end"`
	Strategy string         `json:"strategy"`
	Params   map[string]any `json:"params"`
}

// Runner 负责组装并驱动回测：加载数据、创建策略、执行引擎、落盘结果。
type Runner struct {
	cfg     *config.Config
	loader  *ingest.Loader
	factory *strategy.Factory
	results *results.Store

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	baseCtx context.Context
}

// NewRunner 创建 Runner；baseCtx 控制所有后台 run 的生命周期。
func NewRunner(cfg *config.Config, loader *ingest.Loader, factory *strategy.Factory, resultStore *results.Store) *Runner {
	return &Runner{
		cfg:     cfg,
		loader:  loader,
		factory: factory,
		results: resultStore,
		cancels: make(map[string]context.CancelFunc),
		baseCtx: context.Background(),
	}
}

// SetContext 注入进程级 context，服务退出时所有 run 一并取消。
func (r *Runner) SetContext(ctx context.Context) {
	if ctx != nil {
		r.baseCtx = ctx
	}
}

// buildRunConfig 校验请求并折算成引擎参数。
func (r *Runner) buildRunConfig(req RunRequest) (engine.RunConfig, error) {
	if len(req.Symbols) == 0 {
		return engine.RunConfig{}, fmt.Errorf("symbols 不能为空")
	}
	if req.Start <= 0 || req.End <= 0 || req.Start >= req.End {
		return engine.RunConfig{}, fmt.Errorf("时间区间非法: [%d, %d)", req.Start, req.End)
	}
	name := strings.TrimSpace(req.Strategy)
	if name == "" {
		name = r.cfg.Strategy.Name
	}

	symbols := make([]string, 0, len(req.Symbols))
	seen := make(map[string]bool, len(req.Symbols))
	for _, s := range req.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	cfg := engine.NewRunConfig(r.cfg.Backtest)
	cfg.RunID = uuid.NewString()
	cfg.Symbols = symbols
	cfg.Start = req.Start
	cfg.End = req.End
	cfg.Strategy = name
	return cfg, nil
}

// StartRun 登记并异步执行一次回测，立即返回 runID。
func (r *Runner) StartRun(ctx context.Context, req RunRequest) (string, error) {
	runCfg, err := r.buildRunConfig(req)
	if err != nil {
		return "", err
	}
	if err := r.results.CreateRun(ctx, runCfg); err != nil {
		return "", fmt.Errorf("登记 run 失败: %w", err)
	}

	runCtx, cancel := context.WithCancel(r.baseCtx)
	r.mu.Lock()
	r.cancels[runCfg.RunID] = cancel
	r.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.cancels, runCfg.RunID)
			r.mu.Unlock()
		}()
		if _, _, err := r.execute(runCtx, runCfg, req.Params); err != nil {
			logger.Errorf("[runner] run=%s 执行失败: %v", runCfg.RunID, err)
		}
	}()
	return runCfg.RunID, nil
}

// RunSync 同步执行一次回测，供命令行一次性模式使用。
func (r *Runner) RunSync(ctx context.Context, req RunRequest) (*engine.BacktestResult, engine.PerformanceSummary, error) {
	runCfg, err := r.buildRunConfig(req)
	if err != nil {
		return nil, engine.PerformanceSummary{}, err
	}
	if err := r.results.CreateRun(ctx, runCfg); err != nil {
		return nil, engine.PerformanceSummary{}, fmt.Errorf("登记 run 失败: %w", err)
	}
	return r.execute(ctx, runCfg, req.Params)
}

// CancelRun 取消一个进行中的 run。
func (r *Runner) CancelRun(id string) bool {
	r.mu.Lock()
	cancel, ok := r.cancels[id]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (r *Runner) execute(ctx context.Context, runCfg engine.RunConfig, params map[string]any) (*engine.BacktestResult, engine.PerformanceSummary, error) {
	markStatus := func(status, message string) {
		if err := r.results.UpdateRunStatus(context.Background(), runCfg.RunID, status, message); err != nil {
			logger.Warnf("[runner] 更新 run=%s 状态失败: %v", runCfg.RunID, err)
		}
	}
	markStatus(engine.RunStatusRunning, "")

	fail := func(err error) (*engine.BacktestResult, engine.PerformanceSummary, error) {
		markStatus(engine.RunStatusFailed, err.Error())
		return nil, engine.PerformanceSummary{}, err
	}

	loaded, err := r.loader.LoadBundles(ctx, runCfg.Symbols, runCfg.TradingInterval, runCfg.Start, runCfg.End)
	if err != nil {
		return fail(fmt.Errorf("加载交易周期数据失败: %w", err))
	}
	if len(loaded.Bundles) == 0 {
		return fail(fmt.Errorf("所有 symbol 在区间内均无数据"))
	}

	htf, htfWarnings := r.loadHTF(ctx, runCfg)
	strat, err := r.factory.NewStrategy(runCfg.Strategy, params)
	if err != nil {
		return fail(err)
	}

	bundles := make(map[string]engine.SymbolDataBundle, len(loaded.Bundles))
	for symbol, bars := range loaded.Bundles {
		bundles[symbol] = engine.NewBundle(symbol, bars)
	}

	eng, err := engine.New(runCfg, strat, htf)
	if err != nil {
		return fail(err)
	}
	result, runErr := eng.Run(ctx, bundles)
	if result == nil {
		return fail(fmt.Errorf("引擎未返回结果: %w", runErr))
	}
	result.Notes = append(append(result.Notes, loaded.Warnings...), htfWarnings...)
	if runErr != nil {
		logger.Warnf("[runner] run=%s 以 %s 结束: %v", runCfg.RunID, result.Status, runErr)
	}

	summary := engine.Summarize(result)
	if err := r.results.SaveResult(context.Background(), result, summary); err != nil {
		logger.Errorf("[runner] run=%s 结果落盘失败: %v", runCfg.RunID, err)
	}
	logger.Infof("[runner] run=%s status=%s trades=%d return=%s",
		runCfg.RunID, result.Status, summary.NumTrades, summary.TotalReturn)
	return result, summary, runErr
}

// loadHTF 加载大周期数据并构建趋势上下文；缺数据只降级不报错。
func (r *Runner) loadHTF(ctx context.Context, runCfg engine.RunConfig) (engine.HTFProvider, []string) {
	interval, err := market.ParseInterval(runCfg.HTFInterval)
	if err != nil {
		return nil, []string{fmt.Sprintf("htf interval 无效: %v", err)}
	}
	lookback := int64(htfLookbackBars) * interval.Millis()
	loaded, err := r.loader.LoadBundles(ctx, runCfg.Symbols, interval.Key, runCfg.Start-lookback, runCfg.End)
	if err != nil {
		return nil, []string{fmt.Sprintf("加载 htf 数据失败: %v", err)}
	}
	provider := strategy.NewHTFProvider(interval.Key, loaded.Bundles)
	return provider, loaded.Warnings
}
