package ingest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"quantbt/internal/market"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

const maxBinanceLimit = 1000

// BinanceSource 基于 go-binance SDK 的现货 klines 接口。
// 现货没有复权概念，adj_close 直接取 close。
type BinanceSource struct {
	client *binance.Client
}

func NewBinanceSource(baseURL string, timeout time.Duration) *BinanceSource {
	client := binance.NewClient("", "")
	if strings.TrimSpace(baseURL) != "" {
		client.BaseURL = strings.TrimSpace(baseURL)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client.HTTPClient = &http.Client{Timeout: timeout}
	return &BinanceSource{client: client}
}

func (b *BinanceSource) Name() string { return "binance" }

func (b *BinanceSource) Fetch(ctx context.Context, req FetchRequest) (market.Bars, error) {
	if req.Symbol == "" || req.Interval == "" {
		return nil, fmt.Errorf("symbol/interval 不能为空")
	}
	limit := req.Limit
	if limit <= 0 || limit > maxBinanceLimit {
		limit = maxBinanceLimit
	}
	svc := b.client.NewKlinesService().
		Symbol(strings.ToUpper(req.Symbol)).
		Interval(strings.ToLower(req.Interval)).
		Limit(limit)
	if req.Start > 0 {
		svc = svc.StartTime(req.Start)
	}
	if req.End > 0 {
		svc = svc.EndTime(req.End)
	}
	kls, err := svc.Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make(market.Bars, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		bar, err := barFromStrings(req.Symbol, kl.OpenTime, kl.CloseTime, kl.Open, kl.High, kl.Low, kl.Close, kl.Close, kl.Volume)
		if err != nil {
			return nil, fmt.Errorf("binance kline 解析失败 (open_time=%d): %w", kl.OpenTime, err)
		}
		out = append(out, bar)
	}
	return out, nil
}

func barFromStrings(symbol string, openTime, closeTime int64, open, high, low, close, adjClose, volume string) (market.Bar, error) {
	parse := func(s string) (decimal.Decimal, error) {
		if strings.TrimSpace(s) == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	}
	var b market.Bar
	var err error
	b.Symbol = strings.ToUpper(symbol)
	b.OpenTime = openTime
	b.CloseTime = closeTime
	if b.Open, err = parse(open); err != nil {
		return b, err
	}
	if b.High, err = parse(high); err != nil {
		return b, err
	}
	if b.Low, err = parse(low); err != nil {
		return b, err
	}
	if b.Close, err = parse(close); err != nil {
		return b, err
	}
	if b.AdjClose, err = parse(adjClose); err != nil {
		return b, err
	}
	if b.Volume, err = parse(volume); err != nil {
		return b, err
	}
	return b, nil
}
