// Package sweep evaluates a kappa formula over grids of median and stake
// terms, summarises the results per median term and writes them as CSV.
package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxValues bounds the length of one generated axis and the size of a grid.
const maxValues = 10000

// RangeSpec defines a floating-point term range for sweeping.
type RangeSpec struct {
	Min  float64
	Max  float64
	Step float64
}

// ParseRangeSpec parses a "min:max:step" string into a RangeSpec.
func ParseRangeSpec(s string) (RangeSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return RangeSpec{}, fmt.Errorf("invalid range format %q: expected min:max:step", s)
	}

	min, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return RangeSpec{}, fmt.Errorf("invalid min value %q: %w", parts[0], err)
	}

	max, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return RangeSpec{}, fmt.Errorf("invalid max value %q: %w", parts[1], err)
	}

	step, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return RangeSpec{}, fmt.Errorf("invalid step value %q: %w", parts[2], err)
	}

	if !isFinite(min) || !isFinite(max) || !isFinite(step) {
		return RangeSpec{}, fmt.Errorf("range %q must use finite values", s)
	}
	if step <= 0 {
		return RangeSpec{}, fmt.Errorf("step must be positive, got %f", step)
	}
	if min > max {
		return RangeSpec{}, fmt.Errorf("min %g is greater than max %g", min, max)
	}
	if n := (max-min)/step + 1; n > maxValues {
		return RangeSpec{}, fmt.Errorf("range %q would generate more than %d values", s, maxValues)
	}

	return RangeSpec{Min: min, Max: max, Step: step}, nil
}

// Values expands the spec with GenerateRange.
func (r RangeSpec) Values() []float64 {
	return GenerateRange(r.Min, r.Max, r.Step)
}

// GenerateRange generates float64 values from min to max (inclusive)
// stepping by step. It returns nil if min > max, step is not positive, or
// the range would exceed maxValues entries.
func GenerateRange(min, max, step float64) []float64 {
	if step <= 0 || min > max {
		return nil
	}

	expectedCount := int((max-min)/step) + 1
	if expectedCount > maxValues || expectedCount < 0 {
		return nil
	}

	// Round to 1e-9 so that 0.1 steps print cleanly.
	result := make([]float64, 0, expectedCount)
	for i := 0; i <= expectedCount; i++ {
		v := math.Round((min+float64(i)*step)*1e9) / 1e9
		if v > max {
			break
		}
		result = append(result, v)
	}
	return result
}

// ParseParamList parses a comma-separated list of floats or a range
// specification. A string containing a colon is treated as "min:max:step".
func ParseParamList(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}

	if strings.Contains(s, ":") {
		spec, err := ParseRangeSpec(s)
		if err != nil {
			return nil, err
		}
		return spec.Values(), nil
	}

	return ParseCSVFloat64s(s)
}

// ExpandRanges generates the cartesian product of several specs, each either
// "min:max:step" or comma-separated values. The first spec varies slowest.
func ExpandRanges(specs ...string) ([][]float64, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	values := make([][]float64, len(specs))
	for i, spec := range specs {
		v, err := ParseParamList(spec)
		if err != nil {
			return nil, fmt.Errorf("parsing spec %d (%q): %w", i, spec, err)
		}
		if len(v) == 0 {
			return nil, fmt.Errorf("spec %d (%q) produced no values", i, spec)
		}
		values[i] = v
	}

	total := int64(1)
	for _, v := range values {
		total *= int64(len(v))
		if total > maxValues {
			return nil, fmt.Errorf("parameter combinations would exceed safe limit of %d", maxValues)
		}
	}

	result := make([][]float64, total)
	for i := range result {
		result[i] = make([]float64, len(specs))
	}

	repeat := int64(1)
	for dim := len(specs) - 1; dim >= 0; dim-- {
		dimValues := values[dim]
		cycle := int64(len(dimValues))
		for i := int64(0); i < total; i++ {
			result[i][dim] = dimValues[(i/repeat)%cycle]
		}
		repeat *= cycle
	}

	return result, nil
}

// ParseCSVFloat64s parses a comma-separated list of float64 values, skipping
// empty entries. It returns nil, nil for an empty string.
func ParseCSVFloat64s(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		if !isFinite(v) {
			return nil, fmt.Errorf("value '%s' is not finite", p)
		}
		out = append(out, v)
	}
	if len(out) > maxValues {
		return nil, fmt.Errorf("list has %d values (max %d)", len(out), maxValues)
	}
	return out, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
