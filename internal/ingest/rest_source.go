package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"quantbt/internal/market"

	"github.com/tidwall/gjson"
)

// RESTSource 对接通用 JSON 行情服务（股票日线等，带复权收盘价）。
// 期望响应为对象数组：[{"t":..,"ct":..,"o":"..","h":"..","l":"..","c":"..","ac":"..","v":".."}]。
type RESTSource struct {
	baseURL string
	client  *http.Client
}

func NewRESTSource(base string, timeout time.Duration) *RESTSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RESTSource{
		baseURL: strings.TrimRight(base, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (r *RESTSource) Name() string { return "rest" }

func (r *RESTSource) Fetch(ctx context.Context, req FetchRequest) (market.Bars, error) {
	if req.Symbol == "" || req.Interval == "" {
		return nil, fmt.Errorf("symbol/interval 不能为空")
	}
	if r.baseURL == "" {
		return nil, fmt.Errorf("rest source 未配置 base url")
	}
	u, err := url.Parse(r.baseURL + "/v1/bars")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("symbol", strings.ToUpper(req.Symbol))
	q.Set("interval", strings.ToLower(req.Interval))
	if req.Start > 0 {
		q.Set("start", strconv.FormatInt(req.Start, 10))
	}
	if req.End > 0 {
		q.Set("end", strconv.FormatInt(req.End, 10))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	u.RawQuery = q.Encode()

	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rest source 返回状态码 %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return parseRESTBars(req.Symbol, body)
}

func parseRESTBars(symbol string, body []byte) (market.Bars, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("rest source 响应不是合法 JSON")
	}
	parsed := gjson.ParseBytes(body)
	rows := parsed
	if parsed.IsObject() {
		rows = parsed.Get("bars")
	}
	if !rows.IsArray() {
		return nil, fmt.Errorf("rest source 响应缺少 bars 数组")
	}
	var out market.Bars
	var firstErr error
	rows.ForEach(func(_, row gjson.Result) bool {
		adj := row.Get("ac").String()
		if adj == "" {
			adj = row.Get("c").String()
		}
		bar, err := barFromStrings(symbol,
			row.Get("t").Int(), row.Get("ct").Int(),
			row.Get("o").String(), row.Get("h").String(),
			row.Get("l").String(), row.Get("c").String(),
			adj, row.Get("v").String())
		if err != nil {
			firstErr = fmt.Errorf("rest bar 解析失败 (t=%d): %w", row.Get("t").Int(), err)
			return false
		}
		if bar.CloseTime == 0 {
			bar.CloseTime = bar.OpenTime
		}
		out = append(out, bar)
		return true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
