package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"quantbt/internal/engine"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/shopspring/decimal"
)

const (
	colorBackground = "#060c1b"
	colorText       = "#eceff4"
	colorTextDim    = "#9ca3af"
	colorEquity     = "#3b82f6"
	colorCash       = "#fbbf24"
	colorDrawdown   = "#f87171"

	chartWidthPx  = 1400
	chartHeightPx = 420
)

// RenderEquity 把资金曲线和回撤渲染为单页 HTML。
func RenderEquity(w io.Writer, result *engine.BacktestResult, summary engine.PerformanceSummary) error {
	if result == nil || len(result.EquityCurve) == 0 {
		return fmt.Errorf("资金曲线为空，无法渲染")
	}

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)

	xAxis := buildXAxis(result.EquityCurve)
	page.AddCharts(
		buildEquityChart(xAxis, result, summary),
		buildDrawdownChart(xAxis, result.EquityCurve),
	)
	return page.Render(w)
}

func buildXAxis(curve []engine.Snapshot) []string {
	x := make([]string, len(curve))
	for i, snap := range curve {
		x[i] = time.UnixMilli(snap.Timestamp).UTC().Format("2006-01-02 15:04")
	}
	return x
}

func buildEquityChart(xAxis []string, result *engine.BacktestResult, summary engine.PerformanceSummary) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         fmt.Sprintf("Equity %s", strings.Join(result.Config.Symbols, ",")),
			Subtitle:      summarySubtitle(result, summary),
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorText, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextDim},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorText}}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextDim},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextDim, Opacity: opts.Float(0.2)}},
		}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)

	equity := make([]opts.LineData, len(result.EquityCurve))
	cash := make([]opts.LineData, len(result.EquityCurve))
	for i, snap := range result.EquityCurve {
		equity[i] = opts.LineData{Value: snap.Equity.InexactFloat64()}
		cash[i] = opts.LineData{Value: snap.Cash.InexactFloat64()}
	}
	line.SetXAxis(xAxis)
	line.AddSeries("Equity", equity, charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}))
	line.AddSeries("Cash", cash, charts.WithLineStyleOpts(opts.LineStyle{Color: colorCash, Width: 1}))
	return line
}

func buildDrawdownChart(xAxis []string, curve []engine.Snapshot) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Drawdown", Left: "left", TitleStyle: &opts.TextStyle{Color: colorText}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextDim},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextDim, Opacity: opts.Float(0.15)}},
		}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.3)}),
	)

	// 与绩效指标同一约定：回撤是非正小数，这里换算成百分比
	data := make([]opts.LineData, len(curve))
	peak := curve[0].Equity
	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	for i, snap := range curve {
		if snap.Equity.GreaterThan(peak) {
			peak = snap.Equity
		}
		dd := 0.0
		if peak.Sign() > 0 {
			dd = snap.Equity.Div(peak).Sub(one).Mul(hundred).InexactFloat64()
		}
		data[i] = opts.LineData{Value: dd}
	}
	line.SetXAxis(xAxis)
	line.AddSeries("Drawdown", data, charts.WithLineStyleOpts(opts.LineStyle{Color: colorDrawdown, Width: 2}))
	return line
}

func summarySubtitle(result *engine.BacktestResult, summary engine.PerformanceSummary) string {
	parts := []string{
		fmt.Sprintf("return %s%%", summary.TotalReturn.Mul(decimal.NewFromInt(100)).Round(2)),
		fmt.Sprintf("maxDD %s%%", summary.MaxDrawdown.Mul(decimal.NewFromInt(100)).Round(2)),
		fmt.Sprintf("trades %d", summary.NumTrades),
	}
	if summary.WinRate != nil {
		parts = append(parts, fmt.Sprintf("winRate %.1f%%", *summary.WinRate*100))
	}
	if summary.Sharpe != nil {
		parts = append(parts, fmt.Sprintf("sharpe %.2f", *summary.Sharpe))
	}
	parts = append(parts, "status "+result.Status)
	return strings.Join(parts, " | ")
}
