// Package plot renders aggregated bias results as self-contained HTML
// pages: one page per case with the five bias panels S1..S5 plus the
// class distribution, and an overview scatter comparing final bias
// values across cases.
package plot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"Q8-Frobenius/bias"
	"Q8-Frobenius/quat"
)

const (
	observedColor    = "#111827"
	theoreticalColor = "#ef4444"
	expectedColor    = "#9ca3af"
)

// OverviewPageName is the file name of the cross-case overview.
const OverviewPageName = "bias_overview.html"

// CasePageName returns the canonical HTML file name for one case.
func CasePageName(caseID int) string {
	return fmt.Sprintf("case_%02d_bias.html", caseID)
}

// biasPanel builds one S-panel: the observed bias scatter overlaid with
// the theoretical (M+m) log log x curve on a log-scaled x axis.
func biasPanel(res *bias.Result, k quat.Class) *charts.Line {
	s := res.Series[k]
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Case %d: S%d (sigma = %s)", res.CaseID, int(k)+1, s.Class),
			Subtitle: fmt.Sprintf("m_rho0 = %d, %d heights up to x = %d",
				res.MRho0, len(s.Points), res.MaxX),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x", Type: "log"}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: fmt.Sprintf("pi_half(x) - %d pi_half(x; %s)", 8/s.Class.Size(), s.Class),
			Type: "value",
		}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "inside"},
			opts.DataZoom{Type: "slider"},
		),
		charts.WithToolboxOpts(opts.Toolbox{
			Show: opts.Bool(true),
			Feature: &opts.ToolBoxFeature{
				SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{Show: opts.Bool(true)},
				Restore:     &opts.ToolBoxFeatureRestore{Show: opts.Bool(true)},
				DataZoom:    &opts.ToolBoxFeatureDataZoom{Show: opts.Bool(true)},
			},
		}),
	)

	theo := make([]opts.LineData, 0, len(s.Points))
	for _, p := range s.Points {
		theo = append(theo, opts.LineData{Value: []interface{}{p.X, p.Theoretical}})
	}
	line.AddSeries(fmt.Sprintf("%g log(log x)", s.Coefficient), theo,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), Smooth: opts.Bool(true)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: theoreticalColor, Width: 2}),
	)

	obs := make([]opts.ScatterData, 0, len(s.Points))
	for _, p := range s.Points {
		obs = append(obs, opts.ScatterData{Value: []interface{}{p.X, p.Observed}})
	}
	sc := charts.NewScatter()
	sc.AddSeries("observed bias", obs,
		charts.WithScatterChartOpts(opts.ScatterChart{Symbol: "circle", SymbolSize: 4}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: observedColor}),
	)
	line.Overlap(sc)
	return line
}

// distributionPanel compares observed class frequencies against the
// Chebyshev density |c|/8.
func distributionPanel(res *bias.Result) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Case %d: Frobenius distribution", res.CaseID),
			Subtitle: fmt.Sprintf("%d classified primes", res.Distribution.Classified),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "% of classified primes", Type: "value"}),
	)
	axis := make([]string, 0, quat.NumClasses)
	observed := make([]opts.BarData, 0, quat.NumClasses)
	expected := make([]opts.BarData, 0, quat.NumClasses)
	for k := quat.Class(0); k < quat.NumClasses; k++ {
		axis = append(axis, k.String())
		observed = append(observed, opts.BarData{Value: res.Distribution.Percent(k)})
		expected = append(expected, opts.BarData{Value: 100 * float64(k.Size()) / 8})
	}
	bar.SetXAxis(axis).
		AddSeries("observed", observed).
		AddSeries("Chebyshev density", expected,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: expectedColor}))
	return bar
}

// CasePage assembles the five bias panels and the distribution panel of
// one case into a single page.
func CasePage(res *bias.Result) *components.Page {
	page := components.NewPage().SetPageTitle(fmt.Sprintf("Case %d Chebyshev bias", res.CaseID))
	for k := quat.Class(0); k < quat.NumClasses; k++ {
		page.AddCharts(biasPanel(res, k))
	}
	page.AddCharts(distributionPanel(res))
	return page
}

// WriteCasePage renders the case page under dir and returns its path.
func WriteCasePage(dir string, res *bias.Result) (string, error) {
	return writePage(filepath.Join(dir, CasePageName(res.CaseID)), CasePage(res))
}

// OverviewPage plots each case's final bias value per class: one glance
// at which classes lead and which trail across all cases.
func OverviewPage(results []*bias.Result) *components.Page {
	page := components.NewPage().SetPageTitle("Chebyshev bias overview")
	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Final bias by case and class",
			Subtitle: fmt.Sprintf("%d cases", len(results)),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "case", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "bias at max x", Type: "value"}),
		charts.WithToolboxOpts(opts.Toolbox{
			Show: opts.Bool(true),
			Feature: &opts.ToolBoxFeature{
				SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{Show: opts.Bool(true)},
			},
		}),
	)
	for k := quat.Class(0); k < quat.NumClasses; k++ {
		items := make([]opts.ScatterData, 0, len(results))
		for _, res := range results {
			pts := res.Series[k].Points
			if len(pts) == 0 {
				continue
			}
			items = append(items, opts.ScatterData{
				Value: []interface{}{res.CaseID, pts[len(pts)-1].Observed},
			})
		}
		sc.AddSeries(fmt.Sprintf("sigma = %s", k), items,
			charts.WithScatterChartOpts(opts.ScatterChart{Symbol: "circle", SymbolSize: 8}))
	}
	page.AddCharts(sc)
	return page
}

// WriteOverviewPage renders the overview under dir and returns its path.
func WriteOverviewPage(dir string, results []*bias.Result) (string, error) {
	return writePage(filepath.Join(dir, OverviewPageName), OverviewPage(results))
}

func writePage(path string, page *components.Page) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("plot: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("plot: %w", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return "", fmt.Errorf("plot: render %s: %w", path, err)
	}
	return path, nil
}
