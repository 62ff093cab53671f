// Package simulator imitates next-word prediction by sampling completions
// from fixed, prompt-keyed probability tables. It knows patterns, not facts.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/Mimicry/pkg/sampler"
)

// UnknownPattern is the label returned for prompts without a pattern.
const UnknownPattern = "unknown pattern"

// ErrDuplicatePrompt is returned by New when two patterns share a prompt.
var ErrDuplicatePrompt = errors.New("duplicate prompt")

// Pattern is a learned completion table for a single prompt.
type Pattern struct {
	Prompt      string               `yaml:"prompt"`
	Completions sampler.Distribution `yaml:"completions"`
}

// Generation is the outcome of a single Generate call.
type Generation struct {
	sampler.Result
	Prompt      string
	Temperature float64
	// Known is false when the prompt had no pattern; Label is then UnknownPattern.
	Known bool
}

// Simulator samples completions for known prompts. The pattern table is
// fixed at construction and only read afterwards.
type Simulator struct {
	patterns []Pattern
	index    map[string]int
	src      sampler.Source
	logger   *slog.Logger
}

// New validates every pattern and returns a Simulator drawing from src.
func New(patterns []Pattern, src sampler.Source) (*Simulator, error) {
	s := &Simulator{
		patterns: make([]Pattern, 0, len(patterns)),
		index:    make(map[string]int, len(patterns)),
		src:      src,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, p := range patterns {
		if _, ok := s.index[p.Prompt]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePrompt, p.Prompt)
		}
		if err := p.Completions.Validate(); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p.Prompt, err)
		}
		s.index[p.Prompt] = len(s.patterns)
		s.patterns = append(s.patterns, Pattern{
			Prompt:      p.Prompt,
			Completions: append(sampler.Distribution(nil), p.Completions...),
		})
	}
	return s, nil
}

// SetLogger sets the logger for the Simulator. By default, all logs are discarded.
func (s *Simulator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Prompts returns every known prompt in table order.
func (s *Simulator) Prompts() []string {
	prompts := make([]string, len(s.patterns))
	for i, p := range s.patterns {
		prompts[i] = p.Prompt
	}
	return prompts
}

// Pattern returns a copy of the pattern registered for prompt.
func (s *Simulator) Pattern(prompt string) (Pattern, bool) {
	i, ok := s.index[prompt]
	if !ok {
		return Pattern{}, false
	}
	p := s.patterns[i]
	return Pattern{Prompt: p.Prompt, Completions: append(sampler.Distribution(nil), p.Completions...)}, true
}

// Generate samples a completion for prompt. The temperature is checked before
// anything else. An unknown prompt is not an error: the Generation comes back
// with Known set to false and the UnknownPattern label.
func (s *Simulator) Generate(ctx context.Context, prompt string, temperature float64) (Generation, error) {
	if err := sampler.CheckTemperature(temperature); err != nil {
		return Generation{}, err
	}

	gen := Generation{Prompt: prompt, Temperature: temperature}
	i, ok := s.index[prompt]
	if !ok {
		gen.Label = UnknownPattern
		gen.Distribution = sampler.Display{}
		s.logger.DebugContext(ctx, "No pattern for prompt", slog.String("prompt", prompt))
		return gen, nil
	}

	res, err := sampler.Sample(s.patterns[i].Completions, temperature, s.src)
	if err != nil {
		return Generation{}, fmt.Errorf("could not sample %q: %w", prompt, err)
	}
	gen.Result = res
	gen.Known = true

	s.logger.DebugContext(ctx, "Completion sampled",
		slog.String("prompt", prompt),
		slog.Float64("temperature", temperature),
		slog.String("label", res.Label),
	)
	return gen, nil
}
