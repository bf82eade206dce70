package engine

import "github.com/meliguard/acosd/internal/model"

// EvaluateThreshold reports whether the ratio crosses the threshold.
// Maximum rules trigger on ratio > threshold, minimum rules on
// ratio < threshold. No hysteresis: each cycle evaluates fresh, so a ratio
// oscillating around the threshold retriggers every pass.
func EvaluateThreshold(ratio, threshold float64, mode model.ThresholdType) bool {
	switch mode {
	case model.ThresholdMaximum:
		return ratio > threshold
	case model.ThresholdMinimum:
		return ratio < threshold
	default:
		return false
	}
}
