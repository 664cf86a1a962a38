package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantbt/internal/market"
)

const hourMs = int64(3600_000)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func hourBar(ts int64, close string) market.Bar {
	c, _ := decimal.NewFromString(close)
	return market.Bar{
		Symbol:    "BTCUSDT",
		OpenTime:  ts,
		CloseTime: ts + hourMs - 1,
		Open:      c,
		High:      c,
		Low:       c,
		Close:     c,
		AdjClose:  c,
		Volume:    decimal.NewFromInt(10),
	}
}

func TestInsertAndLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bars := []market.Bar{
		hourBar(hourMs, "42000.12345678"),
		hourBar(2*hourMs, "42100.5"),
		hourBar(3*hourMs, "41990.00000001"),
	}
	n, err := s.InsertBars(ctx, "btcusdt", "1h", bars)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := s.Load(ctx, "BTCUSDT", "1h", hourMs, 3*hourMs)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got.Sorted())
	// TEXT 落库不丢精度
	assert.Equal(t, "42000.12345678", got[0].Close.String())
	assert.Equal(t, "41990.00000001", got[2].Close.String())
	assert.Equal(t, "BTCUSDT", got[0].Symbol)
}

func TestInsertUpsertOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertBars(ctx, "ETHUSDT", "1h", []market.Bar{hourBar(hourMs, "100")})
	require.NoError(t, err)
	_, err = s.InsertBars(ctx, "ETHUSDT", "1h", []market.Bar{hourBar(hourMs, "101")})
	require.NoError(t, err)

	got, err := s.Load(ctx, "ETHUSDT", "1h", hourMs, hourMs)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "101", got[0].Close.String())
}

func TestLoadDataUnavailable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertBars(ctx, "BTCUSDT", "1h", []market.Bar{hourBar(hourMs, "100")})
	require.NoError(t, err)

	_, err = s.Load(ctx, "BTCUSDT", "1h", 10*hourMs, 20*hourMs)
	assert.ErrorIs(t, err, ErrDataUnavailable)

	// 不存在的 symbol 同样返回 ErrDataUnavailable（建库成功但无数据）
	_, err = s.Load(ctx, "SOLUSDT", "1h", hourMs, 2*hourMs)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestManifestTracksRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertBars(ctx, "BTCUSDT", "1h", []market.Bar{
		hourBar(2*hourMs, "1"),
		hourBar(5*hourMs, "2"),
	})
	require.NoError(t, err)

	m, err := s.Manifest(ctx, "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", m.Symbol)
	assert.Equal(t, "1h", m.Interval)
	assert.Equal(t, 2*hourMs, m.MinTime)
	assert.Equal(t, 5*hourMs, m.MaxTime)
	assert.Equal(t, int64(2), m.Rows)
	assert.Greater(t, m.LastSyncAt, int64(0))
}

func TestCheckIntegrityMergesGaps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	iv, _ := market.ParseInterval("1h")

	// 写入 1h、2h、5h：缺 3h~4h 一个合并缺口
	_, err := s.InsertBars(ctx, "BTCUSDT", "1h", []market.Bar{
		hourBar(hourMs, "1"),
		hourBar(2*hourMs, "2"),
		hourBar(5*hourMs, "3"),
	})
	require.NoError(t, err)

	report, err := s.CheckIntegrity(ctx, "BTCUSDT", "1h", iv, hourMs, 5*hourMs)
	require.NoError(t, err)
	assert.Equal(t, int64(5), report.Expected)
	assert.Equal(t, int64(3), report.Present)
	require.Len(t, report.Gaps, 1)
	assert.Equal(t, Gap{From: 3 * hourMs, To: 4 * hourMs}, report.Gaps[0])
	assert.False(t, report.Complete())
}

func TestCheckIntegrityComplete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	iv, _ := market.ParseInterval("1h")

	_, err := s.InsertBars(ctx, "BTCUSDT", "1h", []market.Bar{
		hourBar(hourMs, "1"),
		hourBar(2*hourMs, "2"),
	})
	require.NoError(t, err)

	report, err := s.CheckIntegrity(ctx, "BTCUSDT", "1h", iv, hourMs, 2*hourMs)
	require.NoError(t, err)
	assert.True(t, report.Complete())
	assert.Empty(t, report.Gaps)
}
