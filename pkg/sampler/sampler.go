package sampler

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

var (
	// ErrInvalidWeight is returned when a weight is negative, NaN or infinite.
	ErrInvalidWeight = errors.New("invalid weight")
	// ErrInvalidTemperature is returned when the temperature is negative or NaN.
	ErrInvalidTemperature = errors.New("invalid temperature")
	// ErrEmptyDistribution is returned when a distribution has no outcomes.
	ErrEmptyDistribution = errors.New("empty distribution")
	// ErrNoProbabilityMass is returned when every weight is zero and a random
	// draw is required.
	ErrNoProbabilityMass = errors.New("distribution has no positive weight")
)

// Source is the random capability used for a draw. *rand.Rand from
// math/rand/v2 satisfies it.
type Source interface {
	// Float64 returns a pseudo-random number in [0.0, 1.0).
	Float64() float64
}

// globalSource adapts the math/rand/v2 top-level generator to Source.
type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Result is the outcome of a single Sample call.
type Result struct {
	// Label is the chosen outcome.
	Label string
	// Distribution is the original weights formatted for display.
	Distribution Display
}

// CheckTemperature reports whether t is usable as a sampling temperature:
// finite and not negative.
func CheckTemperature(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTemperature, t)
	}
	return nil
}

// Sample draws one label from d at the given temperature and returns it with
// the untransformed distribution formatted as percentages.
func Sample(d Distribution, temperature float64, src Source) (Result, error) {
	label, err := Choose(d, temperature, src)
	if err != nil {
		return Result{}, err
	}
	return Result{Label: label, Distribution: d.Display()}, nil
}

// Choose draws one label from d at the given temperature.
//
// A temperature of exactly 0 selects the first outcome with the maximum weight
// and never touches src. A single-outcome distribution is returned as is. A nil
// src falls back to the math/rand/v2 top-level generator.
func Choose(d Distribution, temperature float64, src Source) (string, error) {
	if err := CheckTemperature(temperature); err != nil {
		return "", err
	}
	if err := d.Validate(); err != nil {
		return "", err
	}

	if len(d) == 1 {
		return d[0].Label, nil
	}
	if temperature == 0 {
		return d.ArgMax().Label, nil
	}

	probs, err := d.Adjusted(temperature)
	if err != nil {
		return "", err
	}

	if src == nil {
		src = globalSource{}
	}
	return pick(d, probs, src.Float64()), nil
}

// pick walks the cumulative probabilities until r is exhausted. Rounding can
// leave r just above the final sum, in which case the last outcome with a
// non-zero probability wins.
func pick(d Distribution, probs []float64, r float64) string {
	last := -1
	for i, p := range probs {
		if p <= 0 {
			continue
		}
		last = i
		r -= p
		if r < 0 {
			return d[i].Label
		}
	}
	return d[last].Label
}
