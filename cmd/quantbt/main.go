package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"quantbt/internal/app"
	qbcfg "quantbt/internal/config"
	"quantbt/internal/logger"
)

func main() {
	cfgPath := os.Getenv("QUANTBT_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	flag.StringVar(&cfgPath, "config", cfgPath, "配置文件路径")
	symbols := flag.String("symbols", "", "一次性回测的 symbol 列表（逗号分隔），为空则启动服务模式")
	start := flag.Int64("start", 0, "回测起点（Unix 毫秒）")
	end := flag.Int64("end", 0, "回测终点（Unix 毫秒）")
	strategyName := flag.String("strategy", "", "策略名（默认取配置）")
	flag.Parse()

	cfg, err := qbcfg.Load(cfgPath)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("初始化日志文件失败: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ 配置加载成功（环境=%s，strategy=%s）", cfg.App.Env, cfg.Strategy.Name)

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if strings.TrimSpace(*symbols) != "" {
		runOnce(ctx, application, cfg, *symbols, *start, *end, *strategyName)
		return
	}
	if err := application.Run(ctx); err != nil {
		log.Fatalf("运行失败: %v", err)
	}
}

// runOnce 执行一次性回测并把绩效摘要打印到标准输出。
func runOnce(ctx context.Context, application *app.App, cfg *qbcfg.Config, symbols string, start, end int64, strategyName string) {
	defer application.Close()
	req := app.RunRequest{
		Start:    start,
		End:      end,
		Strategy: strategyName,
		Params:   cfg.Strategy.Params,
	}
	for _, s := range strings.Split(symbols, ",") {
		if s = strings.TrimSpace(s); s != "" {
			req.Symbols = append(req.Symbols, s)
		}
	}
	result, summary, err := application.Runner().RunSync(ctx, req)
	if err != nil && result == nil {
		log.Fatalf("回测失败: %v", err)
	}
	out, mErr := json.MarshalIndent(map[string]any{
		"run_id":  result.RunID,
		"status":  result.Status,
		"summary": summary,
	}, "", "  ")
	if mErr != nil {
		log.Fatalf("序列化结果失败: %v", mErr)
	}
	os.Stdout.Write(append(out, '\n'))
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
