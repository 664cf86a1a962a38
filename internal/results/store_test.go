package results

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantbt/internal/engine"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleConfig(runID string) engine.RunConfig {
	return engine.RunConfig{
		RunID:           runID,
		Symbols:         []string{"BTCUSDT", "ETHUSDT"},
		Strategy:        "sma_cross",
		TradingInterval: "1h",
		HTFInterval:     "1d",
		Start:           1000,
		End:             9000,
		InitialCapital:  decimal.NewFromInt(100000),
	}
}

func sampleResult(runID string) *engine.BacktestResult {
	return &engine.BacktestResult{
		RunID:          runID,
		Status:         engine.RunStatusCompleted,
		EndingEquity:   decimal.NewFromInt(103000),
		TotalBars:      8,
		Rejections:     1,
		DroppedIntents: 2,
		Notes:          []string{"force-closed BTCUSDT at 51000"},
		Trades: []engine.Trade{{
			Symbol:         "BTCUSDT",
			Side:           engine.SideLong,
			Quantity:       decimal.NewFromInt(2),
			EntryTime:      2000,
			EntryPrice:     decimal.NewFromInt(50000),
			ExitTime:       8000,
			ExitPrice:      decimal.NewFromInt(51000),
			GrossProfit:    decimal.NewFromInt(2000),
			CommissionPaid: decimal.NewFromInt(40),
			NetProfit:      decimal.NewFromInt(1960),
		}},
		EquityCurve: []engine.Snapshot{
			{Timestamp: 1000, Cash: decimal.NewFromInt(100000), Equity: decimal.NewFromInt(100000)},
			{Timestamp: 9000, Cash: decimal.NewFromInt(103000), Equity: decimal.NewFromInt(103000)},
		},
	}
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	const runID = "run-001"

	require.NoError(t, s.CreateRun(ctx, sampleConfig(runID)))

	row, err := s.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, engine.RunStatusInitialized, row.Status)
	assert.Equal(t, "sma_cross", row.Strategy)
	assert.Equal(t, "100000", row.InitialCapital)

	require.NoError(t, s.UpdateRunStatus(ctx, runID, engine.RunStatusRunning, ""))

	summary := engine.Summarize(sampleResult(runID))
	require.NoError(t, s.SaveResult(ctx, sampleResult(runID), summary))

	row, err = s.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, engine.RunStatusCompleted, row.Status)
	assert.Equal(t, "103000", row.EndingEquity)
	assert.Equal(t, 1, row.NumTrades)
	assert.Equal(t, 8, row.TotalBars)
	assert.Equal(t, 1, row.Rejections)
	assert.Equal(t, 2, row.DroppedIntents)
	require.NotNil(t, row.CompletedAtUnix)

	trades, err := s.ListTrades(ctx, runID, 0)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "50000", trades[0].EntryPrice)
	assert.Equal(t, "1960", trades[0].NetProfit)

	snaps, err := s.ListSnapshots(ctx, runID, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, int64(1000), snaps[0].TS)
	assert.Equal(t, "103000", snaps[1].Equity)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = s.UpdateRunStatus(ctx, "missing", engine.RunStatusRunning, "")
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = s.SaveResult(ctx, sampleResult("missing"), engine.PerformanceSummary{})
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = s.DeleteRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestDeleteRunCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	const runID = "run-002"

	require.NoError(t, s.CreateRun(ctx, sampleConfig(runID)))
	require.NoError(t, s.SaveResult(ctx, sampleResult(runID), engine.PerformanceSummary{}))
	require.NoError(t, s.DeleteRun(ctx, runID))

	_, err := s.GetRun(ctx, runID)
	assert.ErrorIs(t, err, ErrRunNotFound)

	trades, err := s.ListTrades(ctx, runID, 0)
	require.NoError(t, err)
	assert.Empty(t, trades)

	snaps, err := s.ListSnapshots(ctx, runID, 0)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}
