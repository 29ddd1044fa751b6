package kappa

import (
	"math"
	"strconv"
	"strings"
)

// FormatValue renders v as a plain decimal: the shortest string that parses
// back to v, with ".0" appended to integral values. Magnitudes below 1e-4 or
// at or above 1e16 switch to exponent form.
func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
