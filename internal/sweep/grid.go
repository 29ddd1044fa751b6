package sweep

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/kappa/internal/kappa"
)

// Point is one evaluation of the grid. Err is set, and Kappa is zero, when
// the formula rejected the inputs with kappa.ErrDomain.
type Point struct {
	TMed  float64
	TS    float64
	Kappa float64
	Err   error
}

// OK reports whether the point carries a value.
func (p Point) OK() bool { return p.Err == nil }

// Evaluate computes v over every (tMed, tS) combination, tMed varying
// slowest. Domain errors are recorded on their point and the sweep
// continues; any other error aborts it.
func Evaluate(v kappa.Variant, tMeds, tSs []float64) ([]Point, error) {
	if int64(len(tMeds))*int64(len(tSs)) > maxValues {
		return nil, fmt.Errorf("grid of %dx%d exceeds safe limit of %d points", len(tMeds), len(tSs), maxValues)
	}

	points := make([]Point, 0, len(tMeds)*len(tSs))
	for _, tMed := range tMeds {
		for _, tS := range tSs {
			k, err := kappa.Compute(v, tMed, tS)
			if err != nil && !errors.Is(err, kappa.ErrDomain) {
				return nil, err
			}
			points = append(points, Point{TMed: tMed, TS: tS, Kappa: k, Err: err})
		}
	}
	return points, nil
}

// EvaluateSpecs parses the two axis specs and evaluates the grid.
func EvaluateSpecs(v kappa.Variant, tMedSpec, tSSpec string) ([]Point, error) {
	tMeds, err := ParseParamList(tMedSpec)
	if err != nil {
		return nil, fmt.Errorf("t_med: %w", err)
	}
	tSs, err := ParseParamList(tSSpec)
	if err != nil {
		return nil, fmt.Errorf("t_s: %w", err)
	}
	if len(tMeds) == 0 || len(tSs) == 0 {
		return nil, fmt.Errorf("empty grid: %d median terms, %d stake terms", len(tMeds), len(tSs))
	}
	return Evaluate(v, tMeds, tSs)
}

// Summary aggregates the points sharing one median term.
type Summary struct {
	TMed         float64
	Count        int
	DomainErrors int
	Min          float64
	Max          float64
	Mean         float64
	Stddev       float64
}

// Summarise groups points by TMed, in first-seen order. Min, Max, Mean and
// Stddev cover valid points only and are NaN when a group has none.
func Summarise(points []Point) []Summary {
	var order []float64
	groups := make(map[float64][]float64)
	errs := make(map[float64]int)
	for _, p := range points {
		if _, seen := groups[p.TMed]; !seen {
			order = append(order, p.TMed)
			groups[p.TMed] = nil
		}
		if !p.OK() {
			errs[p.TMed]++
			continue
		}
		groups[p.TMed] = append(groups[p.TMed], p.Kappa)
	}

	out := make([]Summary, 0, len(order))
	for _, tMed := range order {
		vals := groups[tMed]
		s := Summary{TMed: tMed, Count: len(vals) + errs[tMed], DomainErrors: errs[tMed]}
		if len(vals) == 0 {
			s.Min, s.Max, s.Mean, s.Stddev = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		} else {
			s.Min = floats.Min(vals)
			s.Max = floats.Max(vals)
			s.Mean, s.Stddev = MeanStddev(vals)
		}
		out = append(out, s)
	}
	return out
}

// MeanStddev returns the mean and sample standard deviation of xs. It returns
// (0, 0) for an empty slice and a zero deviation for a single value.
func MeanStddev(xs []float64) (mean float64, stddev float64) {
	switch len(xs) {
	case 0:
		return 0, 0
	case 1:
		return xs[0], 0
	}
	return stat.MeanStdDev(xs, nil)
}
