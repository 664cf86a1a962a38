package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"quantbt/internal/logger"
	"quantbt/internal/market"
	"quantbt/internal/store"

	"golang.org/x/sync/errgroup"
)

// LoadResult 是一次多 symbol 并发加载的产物。缺数据的 symbol 不进入
// Bundles，只记录为警告；模拟开始前所有加载必须先行结束。
type LoadResult struct {
	Bundles  map[string]market.Bars
	Warnings []string
}

// Loader 从本地 store 并发加载多 symbol 历史数据，受并发额度约束。
type Loader struct {
	store         *store.Store
	maxConcurrent int
}

func NewLoader(st *store.Store, maxConcurrent int) *Loader {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Loader{store: st, maxConcurrent: maxConcurrent}
}

// LoadBundles 并发读取每个 symbol 的区间数据。symbol 无数据视为警告而非失败。
func (l *Loader) LoadBundles(ctx context.Context, symbols []string, interval string, start, end int64) (LoadResult, error) {
	result := LoadResult{Bundles: make(map[string]market.Bars, len(symbols))}
	if len(symbols) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(l.maxConcurrent)
	for _, symbol := range symbols {
		symbol := symbol
		group.Go(func() error {
			bars, err := l.store.Load(gctx, symbol, interval, start, end)
			if err != nil {
				if errors.Is(err, store.ErrDataUnavailable) {
					logger.Warnf("[loader] %s %s 区间无数据，跳过该 symbol", symbol, interval)
					mu.Lock()
					result.Warnings = append(result.Warnings,
						fmt.Sprintf("%s: 区间 [%d,%d] 无数据", symbol, start, end))
					mu.Unlock()
					return nil
				}
				return fmt.Errorf("加载 %s %s 失败: %w", symbol, interval, err)
			}
			if !bars.Sorted() {
				return fmt.Errorf("%s %s 数据存在乱序或重复时间戳", symbol, interval)
			}
			mu.Lock()
			result.Bundles[symbol] = bars
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return result, err
	}
	sort.Strings(result.Warnings)
	return result, nil
}
