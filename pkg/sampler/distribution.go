package sampler

import (
	"fmt"
	"math"
	"strings"
)

// Outcome is a single labeled entry of a Distribution with its relative weight.
type Outcome struct {
	Label  string  `yaml:"label"`
	Weight float64 `yaml:"weight"`
}

// Distribution is an ordered list of outcomes. Weights are relative and need
// not sum to 1. The order decides ties when picking the maximum weight.
type Distribution []Outcome

// Validate checks that d is non-empty and that every weight is a finite,
// non-negative number.
func (d Distribution) Validate() error {
	if len(d) == 0 {
		return ErrEmptyDistribution
	}
	for _, o := range d {
		if o.Weight < 0 || math.IsNaN(o.Weight) || math.IsInf(o.Weight, 0) {
			return fmt.Errorf("%w: %q has weight %v", ErrInvalidWeight, o.Label, o.Weight)
		}
	}
	return nil
}

// ArgMax returns the first outcome carrying the maximum weight. It returns the
// zero Outcome for an empty distribution.
func (d Distribution) ArgMax() Outcome {
	var best Outcome
	for i, o := range d {
		if i == 0 || o.Weight > best.Weight {
			best = o
		}
	}
	return best
}

// Labels returns the outcome labels in order.
func (d Distribution) Labels() []string {
	labels := make([]string, len(d))
	for i, o := range d {
		labels[i] = o.Label
	}
	return labels
}

// Contains reports whether label is one of the outcomes.
func (d Distribution) Contains(label string) bool {
	for _, o := range d {
		if o.Label == label {
			return true
		}
	}
	return false
}

// Adjusted returns the sampling probabilities for the given temperature, in
// outcome order, summing to 1.
//
// For a temperature above 0 every positive weight p becomes p^(1/t) before
// normalization, and zero weights keep probability 0. The transform is
// carried out in log space. When 1/t is so large that the log weights
// overflow, the result is the one-hot vector at ArgMax, the limit as t
// approaches 0. A temperature of 0 yields that vector directly.
func (d Distribution) Adjusted(temperature float64) ([]float64, error) {
	if err := CheckTemperature(temperature); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if temperature == 0 {
		return d.oneHot(), nil
	}

	probs := make([]float64, len(d))
	maxLog := math.Inf(-1)
	positive := false
	for i, o := range d {
		if o.Weight == 0 {
			continue
		}
		positive = true
		lp := math.Log(o.Weight) / temperature
		probs[i] = lp
		if lp > maxLog {
			maxLog = lp
		}
	}
	if !positive {
		return nil, ErrNoProbabilityMass
	}
	if math.IsInf(maxLog, 0) {
		return d.oneHot(), nil
	}

	var total float64
	for i, o := range d {
		if o.Weight == 0 {
			continue
		}
		w := math.Exp(probs[i] - maxLog)
		probs[i] = w
		total += w
	}
	for i := range probs {
		probs[i] /= total
	}
	return probs, nil
}

// oneHot returns probability 1 at the first outcome with the maximum weight.
func (d Distribution) oneHot() []float64 {
	probs := make([]float64, len(d))
	best := 0
	for i, o := range d {
		if o.Weight > d[best].Weight {
			best = i
		}
	}
	probs[best] = 1
	return probs
}

// Display formats the original weights as percentages with one decimal place.
func (d Distribution) Display() Display {
	display := make(Display, len(d))
	for i, o := range d {
		display[i] = Percentage{Label: o.Label, Value: FormatPercent(o.Weight)}
	}
	return display
}

// FormatPercent renders a weight as weight*100 with one decimal and a percent sign.
func FormatPercent(weight float64) string {
	return fmt.Sprintf("%.1f%%", weight*100)
}

// Percentage is one displayed entry of a distribution.
type Percentage struct {
	Label string
	Value string
}

// Display is a distribution formatted for humans, in outcome order.
type Display []Percentage

// Get returns the formatted percentage for label.
func (d Display) Get(label string) (string, bool) {
	for _, p := range d {
		if p.Label == label {
			return p.Value, true
		}
	}
	return "", false
}

// String renders the display as {label: value, ...}.
func (d Display) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, p := range d {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Label)
		b.WriteString(": ")
		b.WriteString(p.Value)
	}
	b.WriteByte('}')
	return b.String()
}
