package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quantbt/internal/engine"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrRunNotFound 表示指定 run 不存在。
var ErrRunNotFound = errors.New("run not found")

// Store 用 Gorm + SQLite 持久化回测结果。
type Store struct {
	db *gorm.DB
}

// NewStore 打开（必要时创建）结果库并迁移表结构。
func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("result store 路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&RunModel{}, &TradeModel{}, &SnapshotModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL：留一点并发空间给 HTTP 读请求
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateRun 在回测启动前登记一条记录。
func (s *Store) CreateRun(ctx context.Context, cfg engine.RunConfig) error {
	symbolsJSON, err := json.Marshal(cfg.Symbols)
	if err != nil {
		return err
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	row := RunModel{
		ID:              cfg.RunID,
		Strategy:        cfg.Strategy,
		Status:          engine.RunStatusInitialized,
		Symbols:         datatypes.JSON(symbolsJSON),
		TradingInterval: cfg.TradingInterval,
		HTFInterval:     cfg.HTFInterval,
		StartTS:         cfg.Start,
		EndTS:           cfg.End,
		InitialCapital:  cfg.InitialCapital.String(),
		ConfigJSON:      datatypes.JSON(cfgJSON),
		CreatedAtUnix:   now,
		UpdatedAtUnix:   now,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// UpdateRunStatus 仅更新状态与提示信息。
func (s *Store) UpdateRunStatus(ctx context.Context, id, status, message string) error {
	updates := map[string]any{
		"status":     status,
		"message":    message,
		"updated_at": time.Now().UnixMilli(),
	}
	res := s.db.WithContext(ctx).Model(&RunModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// SaveResult 落盘一次回测的全部产物（run 汇总、成交、资金曲线）。
func (s *Store) SaveResult(ctx context.Context, result *engine.BacktestResult, summary engine.PerformanceSummary) error {
	if result == nil {
		return fmt.Errorf("result 不能为空")
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	notesJSON, err := json.Marshal(result.Notes)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":        result.Status,
			"ending_equity": result.EndingEquity.String(),
			"total_return":  summary.TotalReturn.String(),
			"max_drawdown":  summary.MaxDrawdown.String(),
			"num_trades":    summary.NumTrades,
			"total_bars":      result.TotalBars,
			"rejections":      result.Rejections,
			"dropped_intents": result.DroppedIntents,
			"summary_json":  datatypes.JSON(summaryJSON),
			"notes_json":    datatypes.JSON(notesJSON),
			"message":       result.Error,
			"updated_at":    now,
			"completed_at":  now,
		}
		res := tx.Model(&RunModel{}).Where("id = ?", result.RunID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, result.RunID)
		}

		if len(result.Trades) > 0 {
			rows := make([]TradeModel, 0, len(result.Trades))
			for _, t := range result.Trades {
				rows = append(rows, TradeModel{
					RunID:          result.RunID,
					Symbol:         t.Symbol,
					Side:           t.Side,
					Quantity:       t.Quantity.String(),
					EntryTime:      t.EntryTime,
					EntryPrice:     t.EntryPrice.String(),
					ExitTime:       t.ExitTime,
					ExitPrice:      t.ExitPrice.String(),
					GrossProfit:    t.GrossProfit.String(),
					CommissionPaid: t.CommissionPaid.String(),
					NetProfit:      t.NetProfit.String(),
				})
			}
			if err := tx.CreateInBatches(rows, 200).Error; err != nil {
				return err
			}
		}
		if len(result.EquityCurve) > 0 {
			rows := make([]SnapshotModel, 0, len(result.EquityCurve))
			for _, snap := range result.EquityCurve {
				rows = append(rows, SnapshotModel{
					RunID:  result.RunID,
					TS:     snap.Timestamp,
					Cash:   snap.Cash.String(),
					Equity: snap.Equity.String(),
				})
			}
			if err := tx.CreateInBatches(rows, 500).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetRun 返回一条 run 记录。
func (s *Store) GetRun(ctx context.Context, id string) (RunModel, error) {
	var row RunModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RunModel{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return row, err
}

// ListRuns 按创建时间倒序返回最近的 run。
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunModel, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []RunModel
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// ListTrades 按成交顺序返回一次 run 的交易。
func (s *Store) ListTrades(ctx context.Context, runID string, limit int) ([]TradeModel, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	var rows []TradeModel
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("id ASC").Limit(limit).Find(&rows).Error
	return rows, err
}

// ListSnapshots 按时间升序返回资金曲线。
func (s *Store) ListSnapshots(ctx context.Context, runID string, limit int) ([]SnapshotModel, error) {
	if limit <= 0 || limit > 10000 {
		limit = 2000
	}
	var rows []SnapshotModel
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("ts ASC").Limit(limit).Find(&rows).Error
	return rows, err
}

// DeleteRun 删除 run 及其交易与快照。
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&TradeModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", id).Delete(&SnapshotModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&RunModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil
	})
}
