package sweep

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/kappa/internal/kappa"
)

var approx = cmp.Options{
	cmpopts.EquateApprox(0, 1e-12),
	cmpopts.EquateNaNs(),
	cmpopts.EquateErrors(),
}

func TestEvaluateV2AroundCap(t *testing.T) {
	t.Parallel()

	points, err := Evaluate(kappa.VariantV2, []float64{15, 16}, []float64{15, 16, 17})
	require.NoError(t, err)

	expected := []Point{
		{TMed: 15, TS: 15, Kappa: 0.25},
		{TMed: 15, TS: 16, Kappa: 1.25},
		{TMed: 15, TS: 17, Kappa: 2.25},
		{TMed: 16, TS: 15, Kappa: 0.25},
		{TMed: 16, TS: 16, Kappa: 0.25},
		{TMed: 16, TS: 17, Err: kappa.ErrDomain},
	}
	if diff := cmp.Diff(expected, points, approx); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateV1MatchesFormula(t *testing.T) {
	t.Parallel()

	tMeds := GenerateRange(0, 12, 2)
	tSs := GenerateRange(0, 20, 0.5)
	points, err := Evaluate(kappa.VariantV1, tMeds, tSs)
	require.NoError(t, err)
	require.Len(t, points, len(tMeds)*len(tSs))

	for _, p := range points {
		assert.True(t, p.OK())
		assert.Equal(t, kappa.V1(p.TMed, p.TS), p.Kappa)
	}
	// row-major: T_med varies slowest
	assert.Equal(t, 0.0, points[0].TMed)
	assert.Equal(t, 0.5, points[1].TS)
	assert.Equal(t, 2.0, points[len(tSs)].TMed)
}

func TestEvaluateErrors(t *testing.T) {
	_, err := Evaluate("v5", []float64{1}, []float64{2})
	assert.ErrorIs(t, err, kappa.ErrUnknownVariant)

	big := GenerateRange(0, 200, 1)
	_, err = Evaluate(kappa.VariantV1, big, big)
	assert.Error(t, err)
}

func TestEvaluateSpecs(t *testing.T) {
	points, err := EvaluateSpecs(kappa.VariantV2, "4", "11,12")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.InDelta(t, 0.8333333333333334, points[0].Kappa, 1e-12)

	_, err = EvaluateSpecs(kappa.VariantV2, "1:2", "3")
	assert.ErrorContains(t, err, "t_med")

	_, err = EvaluateSpecs(kappa.VariantV2, "1", "x")
	assert.ErrorContains(t, err, "t_s")

	_, err = EvaluateSpecs(kappa.VariantV2, "", "3")
	assert.ErrorContains(t, err, "empty grid")
}

func TestSummarise(t *testing.T) {
	points, err := Evaluate(kappa.VariantV2, []float64{15, 16}, []float64{15, 16, 17})
	require.NoError(t, err)

	expected := []Summary{
		{TMed: 15, Count: 3, Min: 0.25, Max: 2.25, Mean: 1.25, Stddev: 1},
		{TMed: 16, Count: 3, DomainErrors: 1, Min: 0.25, Max: 0.25, Mean: 0.25, Stddev: 0},
	}
	if diff := cmp.Diff(expected, Summarise(points), approx); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestSummariseAllErrors(t *testing.T) {
	points := []Point{{TMed: 16, TS: 20, Err: kappa.ErrDomain}}
	got := Summarise(points)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Count)
	assert.Equal(t, 1, got[0].DomainErrors)
	assert.True(t, math.IsNaN(got[0].Mean))
}

func TestMeanStddev(t *testing.T) {
	testCases := []struct {
		name       string
		input      []float64
		wantMean   float64
		wantStddev float64
	}{
		{"empty", nil, 0, 0},
		{"single", []float64{0.25}, 0.25, 0},
		{"pair", []float64{0.25, 0.75}, 0.5, math.Sqrt(0.125)},
		{"constant", []float64{0.5, 0.5, 0.5}, 0.5, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mean, stddev := MeanStddev(tc.input)
			assert.InDelta(t, tc.wantMean, mean, 1e-12)
			assert.InDelta(t, tc.wantStddev, stddev, 1e-12)
		})
	}
}
