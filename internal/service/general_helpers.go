package service

import "math"

// RoundingPrecision is the multiplier used for two-decimal monetary rounding.
const RoundingPrecision = 100

// round rounds a float64 value to two decimal places. Used throughout the
// service layer so stored and returned monetary values stay consistent.
//
// Example:
//
//	round(123.456789)  // returns 123.46
//	round(1.994)       // returns 1.99
func round(value float64) float64 {
	return math.Round(value*RoundingPrecision) / RoundingPrecision
}
