package stakes

import (
	"fmt"
	"math"

	"github.com/banshee-data/kappa/internal/kappa"
)

// Share is the part of a reward pool allocated to one sub-stake.
type Share struct {
	SubStake
	Kappa  float64
	Weight float64
	Reward float64
}

// Allocate splits pool between stakes in proportion to amount * c_kappa,
// with c_kappa computed by v against median term tMed. A domain error from
// the formula fails the whole allocation. A negative c_kappa (v1 with a term
// more than 12 below tMed) is reported in Kappa but gives zero weight, so no
// share is negative and the rewards sum to pool.
func Allocate(v kappa.Variant, tMed, pool float64, stakes []SubStake) ([]Share, error) {
	if len(stakes) == 0 {
		return nil, ErrNoStakes
	}

	shares := make([]Share, len(stakes))
	var total float64
	for i, s := range stakes {
		k, err := kappa.Compute(v, tMed, s.Term)
		if err != nil {
			return nil, fmt.Errorf("sub-stake %s: %w", s.ID, err)
		}
		shares[i] = Share{SubStake: s, Kappa: k, Weight: math.Max(0, s.Amount*k)}
		total += shares[i].Weight
	}
	if !(total > 0) {
		return nil, ErrZeroWeight
	}

	for i := range shares {
		shares[i].Reward = pool * shares[i].Weight / total
	}
	return shares, nil
}
