package commands

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"
)

// spinEnvelopes builds a drag of deg degrees around the origin: one
// pointer_down, moves of at most stepDeg, and a pointer_up.
func spinEnvelopes(deg, stepDeg float64) ([]eventEnvelope, error) {
	// At 180 or more the daemon takes the shorter way round and the
	// wheel turns backwards.
	if !(stepDeg > 0 && stepDeg < 180) {
		return nil, errors.New("step must be > 0 and < 180")
	}
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return nil, fmt.Errorf("invalid angle %v", deg)
	}

	const radius = 100.0
	center := point{}
	at := func(a float64) point {
		rad := a * math.Pi / 180
		return point{X: radius * math.Cos(rad), Y: radius * math.Sin(rad)}
	}

	n := int(math.Ceil(math.Abs(deg) / stepDeg))
	envs := make([]eventEnvelope, 0, n+2)

	down, err := envelope("pointer_down", pointerEvent{Point: at(0), Center: center})
	if err != nil {
		return nil, err
	}
	envs = append(envs, down)
	for i := 1; i <= n; i++ {
		a := deg * float64(i) / float64(n)
		mv, err := envelope("pointer_move", pointerEvent{Point: at(a), Center: center})
		if err != nil {
			return nil, err
		}
		envs = append(envs, mv)
	}
	up, _ := envelope("pointer_up", nil)
	return append(envs, up), nil
}

// spin <degrees>: clockwise is positive. The wheel commits a shift per
// detent crossed and settles on release, exactly as for a finger drag.
func spinCmd() *cobra.Command {
	var step float64
	cmd := &cobra.Command{
		Use:   "spin <degrees>",
		Short: "Drive a synthetic drag gesture through the running wheel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deg, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid angle %q: %w", args[0], err)
			}
			envs, err := spinEnvelopes(deg, step)
			if err != nil {
				return err
			}
			return send(socketPath, envs...)
		},
	}
	cmd.Flags().Float64Var(&step, "step", 5, "maximum degrees per pointer move (must stay below 180)")
	return cmd
}
