package conekta

import "math"

// The processor denominates all amounts in minor currency units (integer
// cents). Both helpers round half away from zero, matching the
// processor's own rounding, so a price like 99.995 always lands on 10000
// rather than drifting a cent depending on float representation.

// ToMinorUnits converts a major-unit amount (pesos) to integer cents.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ToMajorUnits converts integer cents back to a major-unit amount.
func ToMajorUnits(cents int64) float64 {
	return float64(cents) / 100
}
