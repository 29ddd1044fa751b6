package chart

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/kappa/internal/kappa"
)

// AssetsHost is where the rendered page loads echarts.min.js from.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// WriteHTML renders the curves as a go-echarts line chart. All curves share
// one stake-term axis; a curve with no value at some stake term leaves a gap
// there.
func WriteHTML(w io.Writer, title string, curves []Curve) error {
	if len(curves) == 0 {
		return fmt.Errorf("no curves to plot")
	}

	axis := stakeAxis(curves)
	labels := make([]string, len(axis))
	for i, ts := range axis {
		labels[i] = kappa.FormatValue(ts)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1000px", Height: "600px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("curves=%d stake_terms=%d", len(curves), len(axis))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "T_s", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "c_kappa", NameLocation: "middle", NameGap: 40}),
	)
	line.SetXAxis(labels)

	colors := palette(len(curves))
	for i, c := range curves {
		byTS := make(map[float64]float64, len(c.Points))
		for _, xy := range c.Points {
			byTS[xy.TS] = xy.Kappa
		}
		data := make([]opts.LineData, len(axis))
		for j, ts := range axis {
			if k, ok := byTS[ts]; ok {
				data[j] = opts.LineData{Value: k}
			} else {
				data[j] = opts.LineData{Value: "-"}
			}
		}
		color := hexColor(colors[i])
		line.AddSeries(c.Label(), data,
			charts.WithLineStyleOpts(opts.LineStyle{Color: color}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
		)
	}

	return line.Render(w)
}

// stakeAxis returns the sorted union of stake terms across curves.
func stakeAxis(curves []Curve) []float64 {
	seen := make(map[float64]struct{})
	var axis []float64
	for _, c := range curves {
		for _, xy := range c.Points {
			if _, ok := seen[xy.TS]; ok {
				continue
			}
			seen[xy.TS] = struct{}{}
			axis = append(axis, xy.TS)
		}
	}
	sort.Float64s(axis)
	return axis
}
