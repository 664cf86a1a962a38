package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"quantbt/internal/backtest"
	"quantbt/internal/engine"
	"quantbt/internal/ingest"
	"quantbt/internal/logger"
	"quantbt/internal/report"
	"quantbt/internal/results"
	"quantbt/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Server 提供回测的 Gin 接口：数据拉取、run 管理与结果查询。
type Server struct {
	addr    string
	svc     *ingest.Service
	runner  *backtest.Runner
	results *results.Store
	bars    *store.Store
	router  *gin.Engine
}

type Config struct {
	Addr    string
	Service *ingest.Service
	Runner  *backtest.Runner
	Results *results.Store
	Bars    *store.Store
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("ingest service 不能为空")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:    cfg.Addr,
		svc:     cfg.Service,
		runner:  cfg.Runner,
		results: cfg.Results,
		bars:    cfg.Bars,
		router:  router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := s.router.Group("/api/backtest")
	api.POST("/fetch", s.handleFetch)
	api.GET("/fetch/:id", s.handleFetchStatus)
	api.GET("/jobs", s.handleJobs)
	api.GET("/data", s.handleManifest)
	api.GET("/bars", s.handleBars)
	api.POST("/runs", s.handleRunStart)
	api.GET("/runs", s.handleRunList)
	api.GET("/runs/:id", s.handleRunDetail)
	api.POST("/runs/:id/cancel", s.handleRunCancel)
	api.DELETE("/runs/:id", s.handleRunDelete)
	api.GET("/runs/:id/trades", s.handleRunTrades)
	api.GET("/runs/:id/snapshots", s.handleRunSnapshots)
	api.GET("/runs/:id/report", s.handleRunReport)
}

// Run 启动 HTTP 服务并在 ctx 结束时优雅关停。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[http] 服务启动 addr=%s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Router 暴露路由，测试用。
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) handleFetch(c *gin.Context) {
	var req struct {
		Exchange string `json:"exchange"`
		Symbol   string `json:"symbol" binding:"required"`
		Interval string `json:"interval" binding:"required"`
		StartTS  int64  `json:"start_ts" binding:"required"`
		EndTS    int64  `json:"end_ts" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	job, err := s.svc.SubmitFetch(ingest.FetchParams{
		Exchange: req.Exchange,
		Symbol:   req.Symbol,
		Interval: req.Interval,
		Start:    req.StartTS,
		End:      req.EndTS,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

func (s *Server) handleFetchStatus(c *gin.Context) {
	job, ok := s.svc.JobSnapshot(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job})
}

func (s *Server) handleJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.svc.JobsSnapshot()})
}

func (s *Server) handleManifest(c *gin.Context) {
	symbol := c.Query("symbol")
	interval := c.Query("interval")
	if symbol == "" || interval == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol/interval 必填"})
		return
	}
	info, err := s.svc.ManifestInfo(c.Request.Context(), symbol, interval)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"manifest": info})
}

func (s *Server) handleBars(c *gin.Context) {
	if s.bars == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "数据存储未启用"})
		return
	}
	symbol := c.Query("symbol")
	interval := c.Query("interval")
	if symbol == "" || interval == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol/interval 必填"})
		return
	}
	start, _ := strconv.ParseInt(c.Query("start_ts"), 10, 64)
	end, _ := strconv.ParseInt(c.Query("end_ts"), 10, 64)
	bars, err := s.bars.Load(c.Request.Context(), symbol, interval, start, end)
	if err != nil {
		if errors.Is(err, store.ErrDataUnavailable) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bars": bars})
}

func (s *Server) handleRunStart(c *gin.Context) {
	if s.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "runner 未启用"})
		return
	}
	var req backtest.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := s.runner.StartRun(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": id})
}

func (s *Server) handleRunList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.results.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunDetail(c *gin.Context) {
	run, err := s.results.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, results.ErrRunNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (s *Server) handleRunCancel(c *gin.Context) {
	if s.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "runner 未启用"})
		return
	}
	if !s.runner.CancelRun(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run 不在执行中"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

func (s *Server) handleRunDelete(c *gin.Context) {
	if err := s.results.DeleteRun(c.Request.Context(), c.Param("id")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, results.ErrRunNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleRunTrades(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "500"))
	trades, err := s.results.ListTrades(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleRunSnapshots(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "2000"))
	snaps, err := s.results.ListSnapshots(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
}

// handleRunReport 从持久化记录重建曲线并渲染 HTML 报告。
func (s *Server) handleRunReport(c *gin.Context) {
	ctx := c.Request.Context()
	run, err := s.results.GetRun(ctx, c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, results.ErrRunNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	snaps, err := s.results.ListSnapshots(ctx, run.ID, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	result, summary, err := rebuildResult(run, snaps)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := report.RenderEquity(c.Writer, result, summary); err != nil {
		logger.Errorf("[http] 渲染报告失败 run=%s: %v", run.ID, err)
	}
}

func rebuildResult(run results.RunModel, snaps []results.SnapshotModel) (*engine.BacktestResult, engine.PerformanceSummary, error) {
	var summary engine.PerformanceSummary
	if len(run.SummaryJSON) > 0 {
		if err := json.Unmarshal(run.SummaryJSON, &summary); err != nil {
			return nil, summary, err
		}
	}
	var symbols []string
	if len(run.Symbols) > 0 {
		if err := json.Unmarshal(run.Symbols, &symbols); err != nil {
			return nil, summary, err
		}
	}
	curve := make([]engine.Snapshot, 0, len(snaps))
	for _, snap := range snaps {
		cash, err := decimal.NewFromString(snap.Cash)
		if err != nil {
			return nil, summary, err
		}
		equity, err := decimal.NewFromString(snap.Equity)
		if err != nil {
			return nil, summary, err
		}
		curve = append(curve, engine.Snapshot{Timestamp: snap.TS, Cash: cash, Equity: equity})
	}
	result := &engine.BacktestResult{
		RunID:          run.ID,
		Status:         run.Status,
		Config:         engine.RunConfig{RunID: run.ID, Symbols: symbols},
		EquityCurve:    curve,
		TotalBars:      run.TotalBars,
		Rejections:     run.Rejections,
		DroppedIntents: run.DroppedIntents,
	}
	return result, summary, nil
}
