package kappa

// Example is one reference evaluation.
type Example struct {
	Variant Variant
	TMed    float64
	TS      float64
	// Documented is the rounded value noted beside the call, or 0 when none
	// was given. It is descriptive only; the computed value is authoritative.
	Documented float64
}

// Value evaluates the example.
func (e Example) Value() (float64, error) {
	return Compute(e.Variant, e.TMed, e.TS)
}

// ReferenceExamples returns the reference calls in their published order.
func ReferenceExamples() []Example {
	return []Example{
		{Variant: VariantV1, TMed: 4, TS: 11},
		{Variant: VariantV2, TMed: 2, TS: 3, Documented: 0.32},
		{Variant: VariantV2, TMed: 10, TS: 11, Documented: 0.42},
		{Variant: VariantV2, TMed: 4, TS: 11, Documented: 0.83},
	}
}

// ExamplesFor filters ReferenceExamples to one variant. An empty variant
// returns all of them.
func ExamplesFor(v Variant) []Example {
	all := ReferenceExamples()
	if v == "" {
		return all
	}
	out := make([]Example, 0, len(all))
	for _, e := range all {
		if e.Variant == v {
			out = append(out, e)
		}
	}
	return out
}
