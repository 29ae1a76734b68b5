package main

import (
	"math"

	"github.com/charmbracelet/harmonica"
)

// Settler eases a value toward a target and decides when it has come to rest.
//
// Implementations must converge: repeated Step calls with a positive dt must
// drive (pos, vel) into the AtRest region for any finite starting point. The
// reducer additionally bounds a settle by maxSettleSteps.
type Settler interface {
	Step(pos, vel, target, dt float64) (nextPos, nextVel float64)
	AtRest(pos, vel, target float64) bool
}

// SpringConfig describes a damped spring in physical terms.
type SpringConfig struct {
	Damping          float64 `yaml:"damping"`
	Stiffness        float64 `yaml:"stiffness"`
	Mass             float64 `yaml:"mass"`
	RestSpeed        float64 `yaml:"rest_speed"`        // deg/s
	RestDisplacement float64 `yaml:"rest_displacement"` // deg
}

// DefaultSpringConfig is slightly underdamped: a short overshoot, then rest.
func DefaultSpringConfig() SpringConfig {
	return SpringConfig{
		Damping:          defaultSpringDamping,
		Stiffness:        defaultSpringStiffness,
		Mass:             defaultSpringMass,
		RestSpeed:        defaultSpringRestSpeed,
		RestDisplacement: defaultSpringRestDisplacement,
	}
}

// AngularFrequency is sqrt(k/m) in rad/s.
func (c SpringConfig) AngularFrequency() float64 {
	return math.Sqrt(c.Stiffness / c.Mass)
}

// DampingRatio is c / (2*sqrt(k*m)); 1 is critical damping.
func (c SpringConfig) DampingRatio() float64 {
	return c.Damping / (2 * math.Sqrt(c.Stiffness*c.Mass))
}

// springSettler adapts harmonica's analytic spring to Settler.
//
// harmonica bakes the time step into the Spring, so a spring is built per step;
// that is a handful of float ops and keeps irregular ticks exact.
type springSettler struct {
	omega            float64
	zeta             float64
	restSpeed        float64
	restDisplacement float64
}

var _ Settler = springSettler{}

func newSpringSettler(cfg SpringConfig) springSettler {
	return springSettler{
		omega:            cfg.AngularFrequency(),
		zeta:             cfg.DampingRatio(),
		restSpeed:        cfg.RestSpeed,
		restDisplacement: cfg.RestDisplacement,
	}
}

func (s springSettler) Step(pos, vel, target, dt float64) (float64, float64) {
	if dt <= 0 {
		return pos, vel
	}
	return harmonica.NewSpring(dt, s.omega, s.zeta).Update(pos, vel, target)
}

func (s springSettler) AtRest(pos, vel, target float64) bool {
	return math.Abs(vel) <= s.restSpeed && math.Abs(target-pos) <= s.restDisplacement
}
