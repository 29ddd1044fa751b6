package kappa

import "fmt"

// BoundaryReport holds both branches of a formula evaluated at its branch
// point for one median term.
type BoundaryReport struct {
	Variant Variant
	TMed    float64
	// At is the stake term where the formula switches branch.
	At    float64
	Lower float64
	Upper float64
	// Jump is Upper - Lower.
	Jump float64
}

// Continuous reports whether the branches agree at the boundary to within
// tol.
func (r BoundaryReport) Continuous(tol float64) bool {
	j := r.Jump
	if j < 0 {
		j = -j
	}
	return j <= tol
}

// Boundary evaluates both branches of v at its branch point.
//
// For V1 the branch point is T_s == T_med; Upper is the T_s > T_med
// expression and Lower the T_s <= T_med expression. For V2 the branch point
// is T_s == T_med + 1; Lower is the floor and Upper the linear branch.
func Boundary(v Variant, tMed float64) (BoundaryReport, error) {
	r := BoundaryReport{Variant: v, TMed: tMed}
	switch v {
	case VariantV1:
		r.At = tMed
		r.Lower = v1AtOrBelow(tMed, tMed)
		r.Upper = v1Above(tMed, tMed)
	case VariantV2:
		r.At = tMed + 1
		r.Lower = MinKappa
		upper, err := v2Linear(tMed, r.At)
		if err != nil {
			return BoundaryReport{}, err
		}
		r.Upper = upper
	default:
		return BoundaryReport{}, fmt.Errorf("%w %q", ErrUnknownVariant, string(v))
	}
	r.Jump = r.Upper - r.Lower
	return r, nil
}
