package main

import "math"

// NormalizeRotation reduces a continuous rotation to [0, 360).
func NormalizeRotation(r float64) float64 {
	n := math.Mod(math.Mod(r, 360)+360, 360)
	// Mod can return exactly 360 for tiny negative inputs after the +360.
	if n >= 360 {
		n = 0
	}
	return n
}

// QuantizeShift maps a continuous rotation onto one of count buckets.
// The result is always in [0, count) for count > 0 and finite r.
func QuantizeShift(r float64, count int) int {
	if count <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	n := NormalizeRotation(r)
	s := int(math.Round(n/360*float64(count))) % count
	if s < 0 {
		s += count
	}
	return s
}

// ShiftAngle is the rotation at which the wheel rests on shift.
func ShiftAngle(shift, count int) float64 {
	if count <= 0 {
		return 0
	}
	return float64(shift) * (360 / float64(count))
}

// nearestShiftAngle returns the angle equivalent to ShiftAngle(shift, count)
// (modulo 360) that lies closest to rotation, so a settle after a
// multi-revolution drag does not unwind the extra turns.
func nearestShiftAngle(rotation float64, shift, count int) float64 {
	base := ShiftAngle(shift, count)
	turns := math.Round((rotation - base) / 360)
	return base + turns*360
}

// clampShift clamps shift into [0, count).
func clampShift(shift, count int) int {
	if shift < 0 {
		return 0
	}
	if count > 0 && shift >= count {
		return count - 1
	}
	return shift
}
