// Package dataset holds the fixed data the demonstration runs on: completion
// patterns, the facts they are checked against, the cascade corpus and the
// training data scenarios. It is parsed once and only read afterwards.
package dataset

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"github.com/CTAG07/Mimicry/pkg/knowledge"
	"github.com/CTAG07/Mimicry/pkg/sampler"
	"github.com/CTAG07/Mimicry/pkg/simulator"
	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var embedded []byte

// ErrInvalidDataset is returned when a document parses but cannot drive the demo.
var ErrInvalidDataset = errors.New("invalid dataset")

// Labels of the distribution built from a Scenario.
const (
	GoodLabel = "high-quality"
	BadLabel  = "low-quality"
)

// Dataset is the full set of demo data.
type Dataset struct {
	Patterns     []simulator.Pattern `yaml:"patterns"`
	Knowledge    []knowledge.Fact    `yaml:"knowledge"`
	Temperatures []float64           `yaml:"temperatures"`
	Cascade      Cascade             `yaml:"cascade"`
	Training     []Scenario          `yaml:"training"`
	Insights     string              `yaml:"insights"`
	Conclusion   string              `yaml:"conclusion"`
}

// Cascade describes the chain hallucination walk: a model of Order is
// trained on Corpus and continued from Seed.
type Cascade struct {
	Prompt      string  `yaml:"prompt"`
	Seed        string  `yaml:"seed"`
	Order       int     `yaml:"order"`
	MaxLength   int     `yaml:"max_length"`
	Temperature float64 `yaml:"temperature"`
	Corpus      string  `yaml:"corpus"`
}

// Scenario is a training data mix for one topic.
type Scenario struct {
	Topic  string `yaml:"topic"`
	Good   int    `yaml:"good"`
	Bad    int    `yaml:"bad"`
	Result string `yaml:"result"`
}

// Total returns the number of training instances.
func (s Scenario) Total() int {
	return s.Good + s.Bad
}

// GoodShare returns the fraction of high-quality instances.
func (s Scenario) GoodShare() float64 {
	return float64(s.Good) / float64(s.Total())
}

// BadShare returns the fraction of low-quality instances.
func (s Scenario) BadShare() float64 {
	return float64(s.Bad) / float64(s.Total())
}

// Distribution returns the mix as sampler weights, so a model trained on it
// can be imitated by drawing from it.
func (s Scenario) Distribution() sampler.Distribution {
	return sampler.Distribution{
		{Label: GoodLabel, Weight: float64(s.Good)},
		{Label: BadLabel, Weight: float64(s.Bad)},
	}
}

// Load parses the embedded document.
func Load() (*Dataset, error) {
	return Parse(embedded)
}

// Parse decodes and validates a YAML document. Unknown fields are rejected.
func Parse(data []byte) (*Dataset, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	ds := &Dataset{}
	if err := dec.Decode(ds); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidDataset)
		}
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Validate reports the first problem that would stop the demo from running.
func (ds *Dataset) Validate() error {
	if len(ds.Patterns) == 0 {
		return fmt.Errorf("%w: no patterns", ErrInvalidDataset)
	}
	for _, p := range ds.Patterns {
		if p.Prompt == "" {
			return fmt.Errorf("%w: pattern without prompt", ErrInvalidDataset)
		}
		if err := p.Completions.Validate(); err != nil {
			return fmt.Errorf("%w: pattern %q: %w", ErrInvalidDataset, p.Prompt, err)
		}
	}

	if len(ds.Temperatures) == 0 {
		return fmt.Errorf("%w: no temperatures", ErrInvalidDataset)
	}
	for _, t := range ds.Temperatures {
		if err := sampler.CheckTemperature(t); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDataset, err)
		}
	}

	c := ds.Cascade
	if c.Order < 1 {
		return fmt.Errorf("%w: cascade order %d is below 1", ErrInvalidDataset, c.Order)
	}
	if c.MaxLength < 1 {
		return fmt.Errorf("%w: cascade max_length %d is below 1", ErrInvalidDataset, c.MaxLength)
	}
	if err := sampler.CheckTemperature(c.Temperature); err != nil {
		return fmt.Errorf("%w: cascade: %w", ErrInvalidDataset, err)
	}
	if c.Seed == "" || c.Corpus == "" {
		return fmt.Errorf("%w: cascade needs a seed and a corpus", ErrInvalidDataset)
	}

	for _, s := range ds.Training {
		if s.Good < 0 || s.Bad < 0 {
			return fmt.Errorf("%w: scenario %q has negative counts", ErrInvalidDataset, s.Topic)
		}
		if s.Total() == 0 {
			return fmt.Errorf("%w: scenario %q has no data", ErrInvalidDataset, s.Topic)
		}
	}
	return nil
}
