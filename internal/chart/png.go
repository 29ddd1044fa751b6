package chart

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SavePNG draws one line per curve and saves the chart to path. The image
// format follows the file extension (png, svg, pdf, ...), as plot.Save does.
func SavePNG(path, title string, curves []Curve) error {
	if len(curves) == 0 {
		return fmt.Errorf("no curves to plot")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "T_s (stake term)"
	p.Y.Label.Text = "c_kappa"
	p.Add(plotter.NewGrid())

	colors := palette(len(curves))
	for i, c := range curves {
		pts := make(plotter.XYs, len(c.Points))
		for j, xy := range c.Points {
			pts[j] = plotter.XY{X: xy.TS, Y: xy.Kappa}
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("%s: %w", c.Label(), err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(c.Label(), line)
	}

	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.XOffs = 10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save kappa plot: %w", err)
	}
	return nil
}
