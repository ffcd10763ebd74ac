// Package admission provides the pure admission decision for the
// traffic-gated variant. The caller measures traffic; Decide only
// compares.
package admission

// Decision represents the outcome of an admission check (value type).
type Decision struct {
	Admitted  bool
	Count     int // measured traffic for the key in the current second
	Threshold int
}

// Decide performs the admission check. The measuring increment itself
// counts as traffic, so repeated rejected attempts raise the count
// toward eventual admission.
//
// This is a PURE function - no side effects, deterministic.
func Decide(count, threshold int) Decision {
	return Decision{
		Admitted:  count >= threshold,
		Count:     count,
		Threshold: threshold,
	}
}
