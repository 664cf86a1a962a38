package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRESTBarsRootArray(t *testing.T) {
	body := []byte(`[
		{"t":1000,"ct":1999,"o":"10","h":"12","l":"9","c":"11","ac":"10.5","v":"100"},
		{"t":2000,"o":"11","h":"13","l":"10","c":"12","v":"80"}
	]`)
	bars, err := parseRESTBars("aapl", body)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, "AAPL", bars[0].Symbol)
	assert.Equal(t, int64(1000), bars[0].OpenTime)
	assert.Equal(t, int64(1999), bars[0].CloseTime)
	assert.Equal(t, "10.5", bars[0].AdjClose.String())

	// 缺 ct 时回退到 open_time；缺 ac 时回退到收盘价
	assert.Equal(t, int64(2000), bars[1].CloseTime)
	assert.Equal(t, "12", bars[1].AdjClose.String())
}

func TestParseRESTBarsWrappedObject(t *testing.T) {
	body := []byte(`{"bars":[{"t":1000,"ct":1999,"o":"1","h":"1","l":"1","c":"1","v":"1"}]}`)
	bars, err := parseRESTBars("MSFT", body)
	require.NoError(t, err)
	require.Len(t, bars, 1)
}

func TestParseRESTBarsInvalid(t *testing.T) {
	_, err := parseRESTBars("AAPL", []byte(`not-json`))
	assert.Error(t, err)

	_, err = parseRESTBars("AAPL", []byte(`{"rows":[]}`))
	assert.Error(t, err, "缺少 bars 数组")

	_, err = parseRESTBars("AAPL", []byte(`[{"t":1000,"c":"abc"}]`))
	assert.Error(t, err)
}

func TestRESTSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/bars", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "1000", r.URL.Query().Get("start"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"t":1000,"ct":1999,"o":"5","h":"6","l":"4","c":"5.5","ac":"5.4","v":"42"}]`))
	}))
	defer srv.Close()

	src := NewRESTSource(srv.URL, time.Second)
	bars, err := src.Fetch(context.Background(), FetchRequest{
		Symbol:   "aapl",
		Interval: "1D",
		Start:    1000,
		End:      2000,
	})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "5.5", bars[0].Close.String())
}

func TestRESTSourceFetchErrors(t *testing.T) {
	src := NewRESTSource("", time.Second)
	_, err := src.Fetch(context.Background(), FetchRequest{Symbol: "AAPL", Interval: "1d"})
	assert.Error(t, err, "未配置 base url")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	src = NewRESTSource(srv.URL, time.Second)
	_, err = src.Fetch(context.Background(), FetchRequest{Symbol: "AAPL", Interval: "1d"})
	assert.Error(t, err)
}
