// Package kappa computes the c_kappa reward multiplier for a sub-stake from
// the median stake term of the distribution (T_med) and the sub-stake's own
// term (T_s).
//
// Two revisions of the formula exist. V1 blends linearly around the median
// with stake terms capped at TMax. V2 holds a MinKappa floor until the stake
// term exceeds the median by at least one, then rises linearly towards an
// implicit horizon of V2Cap.
package kappa

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// V1 constants
const (
	SmallStakeMultiplier = 0.5
	TMax                 = 12.0
)

// V2 constants
const (
	MinKappa = 0.25
	V2Cap    = 16.0
)

// ErrDomain is returned when a formula denominator evaluates to zero.
var ErrDomain = errors.New("kappa: arithmetic domain error")

// ErrUnknownVariant is returned for a formula revision that does not exist.
var ErrUnknownVariant = errors.New("kappa: unknown variant")

// Variant names a formula revision.
type Variant string

const (
	VariantV1 Variant = "v1"
	VariantV2 Variant = "v2"
)

// Variants lists the known revisions in release order.
var Variants = []Variant{VariantV1, VariantV2}

// ParseVariant accepts "v1", "1", "v2" or "2" in any case.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "v1", "1":
		return VariantV1, nil
	case "v2", "2":
		return VariantV2, nil
	default:
		return "", fmt.Errorf("%w %q (valid: v1, v2)", ErrUnknownVariant, s)
	}
}

// V1 returns the first revision of c_kappa. T_s is clamped at TMax in both
// branches, so stake terms beyond the cap are never rewarded further.
func V1(tMed, tS float64) float64 {
	if tS > tMed {
		return v1Above(tMed, tS)
	}
	return v1AtOrBelow(tMed, tS)
}

func v1Above(tMed, tS float64) float64 {
	return (math.Min(tS, TMax)-tMed)/(TMax*2) + SmallStakeMultiplier
}

func v1AtOrBelow(tMed, tS float64) float64 {
	return (1 + (math.Min(tS, TMax)-tMed)/TMax) / 2
}

// V2 returns the second revision of c_kappa. Stake terms less than one above
// the median get the MinKappa floor. Above that, the result grows by
// (T_s - T_med) / (V2Cap - T_med); a median term equal to V2Cap makes that
// denominator zero and V2 returns ErrDomain.
func V2(tMed, tS float64) (float64, error) {
	if tS < tMed+1 {
		return MinKappa, nil
	}
	return v2Linear(tMed, tS)
}

func v2Linear(tMed, tS float64) (float64, error) {
	denom := V2Cap - tMed
	if denom == 0 {
		return 0, fmt.Errorf("v2 denominator %g - T_med is zero (T_med=%g, T_s=%g): %w", V2Cap, tMed, tS, ErrDomain)
	}
	return MinKappa + (tS-tMed)/denom, nil
}

// Compute dispatches to the formula named by v.
func Compute(v Variant, tMed, tS float64) (float64, error) {
	switch v {
	case VariantV1:
		return V1(tMed, tS), nil
	case VariantV2:
		return V2(tMed, tS)
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownVariant, string(v))
	}
}
