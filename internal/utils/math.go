package utils

import (
	"fmt"
	"math"
)

const (
	// KiB is 1024 bytes
	KiB = 1024
	// MiB is 1024 KiB
	MiB = 1024 * KiB
	// GiB is 1024 MiB
	GiB = 1024 * MiB
)

// Round rounds a float64 value to 2 decimal places.
// Used for percentages and sizes in reports to avoid noisy precision.
func Round(val float64) float64 {
	return math.Round(val*100) / 100
}

// BytesToGB converts bytes to GiB rounded to 2 decimal places
func BytesToGB(b uint64) float64 {
	return Round(float64(b) / GiB)
}

// Percent returns part/total as a rounded percentage. A zero total yields 0.
func Percent(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return Round(part / total * 100)
}

// HumanBytes renders a byte count with a binary unit, e.g. "1.5GiB"
func HumanBytes(b uint64) string {
	switch {
	case b >= GiB:
		return fmt.Sprintf("%.2fGiB", float64(b)/GiB)
	case b >= MiB:
		return fmt.Sprintf("%.2fMiB", float64(b)/MiB)
	case b >= KiB:
		return fmt.Sprintf("%.2fKiB", float64(b)/KiB)
	default:
		return fmt.Sprintf("%dB", b)
	}
}
