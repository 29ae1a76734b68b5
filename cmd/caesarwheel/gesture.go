package main

import "math"

// Point is a pointer position in host coordinates (y grows downward on
// screens; the tracker only needs consistency, not orientation).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// valid reports whether both coordinates are finite numbers.
func (p Point) valid() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// pointerAngle returns the angle of point around center in degrees, in (-180, 180].
//
// ok is false when either point is not finite or the pointer sits exactly on
// the center, where the angle is undefined.
func pointerAngle(point, center Point) (deg float64, ok bool) {
	if !point.valid() || !center.valid() {
		return 0, false
	}
	dx := point.X - center.X
	dy := point.Y - center.Y
	if dx == 0 && dy == 0 {
		return 0, false
	}
	return math.Atan2(dy, dx) * 180 / math.Pi, true
}

// wrapDelta folds a raw angle difference onto the shortest path, so a pointer
// crossing the -180/180 seam contributes a small step instead of a full turn.
func wrapDelta(diff float64) float64 {
	if diff > 180 {
		diff -= 360
	} else if diff < -180 {
		diff += 360
	}
	return diff
}

// beginGesture records the origin angle of a drag session.
func beginGesture(point, center Point) (lastAngle float64, ok bool) {
	return pointerAngle(point, center)
}

// updateGesture advances an active drag session.
//
// rotation is the session's continuous rotation in degrees. It is never
// wrapped, so several revolutions keep accumulating. The returned lastAngle
// must be stored by the caller for the next update.
func updateGesture(rotation, lastAngle float64, point, center Point) (nextRotation, nextAngle float64, ok bool) {
	angle, ok := pointerAngle(point, center)
	if !ok {
		return rotation, lastAngle, false
	}
	return rotation + wrapDelta(angle-lastAngle), angle, true
}
