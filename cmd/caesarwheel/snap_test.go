package main

import (
	"math"
	"testing"
)

const testDt = 1.0 / 60

// TestSpringConfig_DefaultPhysics tests the physical mapping.
func TestSpringConfig_DefaultPhysics(t *testing.T) {
	cfg := DefaultSpringConfig()
	if w := cfg.AngularFrequency(); !approx(w, math.Sqrt(200), 1e-9) {
		t.Fatalf("angular frequency = %v", w)
	}
	if z := cfg.DampingRatio(); !approx(z, 12/(2*math.Sqrt(72)), 1e-9) {
		t.Fatalf("damping ratio = %v", z)
	}
}

// TestSpringSettler_ConvergesForEveryShift tests convergence and that the
// settle motion stays inside the committed bucket.
func TestSpringSettler_ConvergesForEveryShift(t *testing.T) {
	s := newSpringSettler(DefaultSpringConfig())
	halfBucket := 360.0 / 26 / 2

	for shift := 0; shift < 26; shift++ {
		for _, turns := range []float64{-2, 0, 3} {
			for _, off := range []float64{-halfBucket + 0.01, -1, 0.5, halfBucket - 0.01} {
				start := ShiftAngle(shift, 26) + 360*turns + off
				target := nearestShiftAngle(start, shift, 26)

				pos, vel := start, 0.0
				steps := 0
				for !s.AtRest(pos, vel, target) {
					pos, vel = s.Step(pos, vel, target, testDt)
					if q := QuantizeShift(pos, 26); q != shift {
						t.Fatalf("shift %d start %v: settle crossed into bucket %d at pos %v", shift, start, q, pos)
					}
					steps++
					if steps > maxSettleSteps {
						t.Fatalf("shift %d start %v: did not converge in %d steps", shift, start, maxSettleSteps)
					}
				}
				if math.Abs(pos-target) > DefaultSpringConfig().RestDisplacement {
					t.Fatalf("shift %d: rest pos %v outside tolerance of %v", shift, pos, target)
				}
			}
		}
	}
}

// TestSpringSettler_ZeroDtIsIdentity tests that non-positive steps do nothing.
func TestSpringSettler_ZeroDtIsIdentity(t *testing.T) {
	s := newSpringSettler(DefaultSpringConfig())
	pos, vel := s.Step(10, 3, 0, 0)
	if pos != 10 || vel != 3 {
		t.Fatalf("expected unchanged, got %v %v", pos, vel)
	}
}

// TestSpringSettler_OverdampedConverges tests a heavily damped configuration.
func TestSpringSettler_OverdampedConverges(t *testing.T) {
	cfg := DefaultSpringConfig()
	cfg.Damping = 40
	s := newSpringSettler(cfg)
	pos, vel := 170.0, 0.0
	for i := 0; i < maxSettleSteps && !s.AtRest(pos, vel, 0); i++ {
		pos, vel = s.Step(pos, vel, 0, testDt)
	}
	if !s.AtRest(pos, vel, 0) {
		t.Fatalf("overdamped spring did not rest: pos=%v vel=%v", pos, vel)
	}
}
