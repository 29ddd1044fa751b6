// Package stakes derives the median stake term from a distribution of
// sub-stakes and splits a reward pool between them, weighting each
// sub-stake's amount by its kappa coefficient.
package stakes

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoStakes   = errors.New("stakes: no sub-stakes")
	ErrZeroWeight = errors.New("stakes: total kappa-weighted amount is zero")
)

// SubStake is one locked position: its term (in periods) and amount.
type SubStake struct {
	ID     string
	Term   float64
	Amount float64
}

// Load reads sub-stakes from CSV. The first record is a header that must
// name a "term" column; "id" and "amount" columns are optional. Lines
// starting with '#' are ignored. Missing amounts default to 1 and missing
// IDs to s1, s2, ...
func Load(r io.Reader) ([]SubStake, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoStakes
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := map[string]int{"id": -1, "term": -1, "amount": -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, ok := cols[name]; ok {
			cols[name] = i
		}
	}
	if cols["term"] < 0 {
		return nil, fmt.Errorf("header %q has no term column", strings.Join(header, ","))
	}

	var out []SubStake
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sub-stake: %w", err)
		}
		line, _ := cr.FieldPos(0)

		s := SubStake{ID: fmt.Sprintf("s%d", len(out)+1), Amount: 1}
		if s.Term, err = field(rec, cols["term"], "term"); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if i := cols["amount"]; i >= 0 && i < len(rec) && strings.TrimSpace(rec[i]) != "" {
			if s.Amount, err = field(rec, i, "amount"); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			if s.Amount < 0 {
				return nil, fmt.Errorf("line %d: amount must be non-negative, got %g", line, s.Amount)
			}
		}
		if i := cols["id"]; i >= 0 && i < len(rec) && strings.TrimSpace(rec[i]) != "" {
			s.ID = strings.TrimSpace(rec[i])
		}
		out = append(out, s)
	}

	if len(out) == 0 {
		return nil, ErrNoStakes
	}
	return out, nil
}

func field(rec []string, i int, name string) (float64, error) {
	if i >= len(rec) {
		return 0, fmt.Errorf("missing %s", name)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, rec[i], err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s %q is not finite", name, rec[i])
	}
	return v, nil
}

// Terms returns the terms of stakes in input order.
func Terms(stakes []SubStake) []float64 {
	out := make([]float64, len(stakes))
	for i, s := range stakes {
		out[i] = s.Term
	}
	return out
}

// MedianTerm returns the median of the sub-stake terms, averaging the two
// middle terms when the count is even.
func MedianTerm(stakes []SubStake) (float64, error) {
	if len(stakes) == 0 {
		return 0, ErrNoStakes
	}
	terms := Terms(stakes)
	sort.Float64s(terms)

	n := len(terms)
	if n%2 == 1 {
		return terms[n/2], nil
	}
	return (terms[n/2-1] + terms[n/2]) / 2, nil
}

// WeightedMedianTerm returns the smallest term at which the cumulative
// amount reaches half of the total amount.
func WeightedMedianTerm(stakes []SubStake) (float64, error) {
	if len(stakes) == 0 {
		return 0, ErrNoStakes
	}
	terms := Terms(stakes)
	weights := make([]float64, len(stakes))
	for i, s := range stakes {
		weights[i] = s.Amount
	}
	if floats.Sum(weights) == 0 {
		return 0, fmt.Errorf("weighted median: %w", ErrZeroWeight)
	}
	stat.SortWeighted(terms, weights)
	return stat.Quantile(0.5, stat.Empirical, terms, weights), nil
}

// Distribution summarises the terms of a set of sub-stakes.
type Distribution struct {
	Count       int
	TotalAmount float64
	MinTerm     float64
	MaxTerm     float64
	MeanTerm    float64
	StddevTerm  float64
}

// Describe summarises stakes. The zero Distribution is returned for an
// empty slice.
func Describe(stakes []SubStake) Distribution {
	if len(stakes) == 0 {
		return Distribution{}
	}
	terms := Terms(stakes)
	d := Distribution{
		Count:   len(stakes),
		MinTerm: floats.Min(terms),
		MaxTerm: floats.Max(terms),
	}
	for _, s := range stakes {
		d.TotalAmount += s.Amount
	}
	if len(terms) == 1 {
		d.MeanTerm = terms[0]
		return d
	}
	d.MeanTerm, d.StddevTerm = stat.MeanStdDev(terms, nil)
	return d
}
