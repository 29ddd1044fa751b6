// Package chart renders c_kappa curves from sweep points, one line per
// median term, as PNG (gonum/plot) or interactive HTML (go-echarts).
package chart

import (
	"fmt"
	"image/color"
	"sort"

	"github.com/banshee-data/kappa/internal/kappa"
	"github.com/banshee-data/kappa/internal/sweep"
)

// XY is one point of a curve.
type XY struct {
	TS    float64
	Kappa float64
}

// Curve is c_kappa against stake term for a single median term.
type Curve struct {
	TMed   float64
	Points []XY
}

// Label names the curve in legends.
func (c Curve) Label() string {
	return fmt.Sprintf("T_med=%s", kappa.FormatValue(c.TMed))
}

// Curves groups sweep points by median term, in first-seen order, with each
// curve sorted by stake term. Points that carry a domain error are left out;
// a median term whose points all failed yields no curve.
func Curves(points []sweep.Point) []Curve {
	var order []float64
	byTMed := make(map[float64][]XY)
	for _, p := range points {
		if !p.OK() {
			continue
		}
		if _, seen := byTMed[p.TMed]; !seen {
			order = append(order, p.TMed)
		}
		byTMed[p.TMed] = append(byTMed[p.TMed], XY{TS: p.TS, Kappa: p.Kappa})
	}

	out := make([]Curve, 0, len(order))
	for _, tMed := range order {
		pts := byTMed[tMed]
		sort.Slice(pts, func(a, b int) bool { return pts[a].TS < pts[b].TS })
		out = append(out, Curve{TMed: tMed, Points: pts})
	}
	return out
}

// palette creates n distinct colours spread around the hue wheel.
func palette(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}

func hexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
