package dataset

import (
	"strings"
	"testing"

	"github.com/CTAG07/Mimicry/pkg/knowledge"
	"github.com/CTAG07/Mimicry/pkg/sampler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	ds, err := Load()
	require.NoError(t, err)

	require.Len(t, ds.Patterns, 4)
	assert.Equal(t, "The capital of France is", ds.Patterns[0].Prompt)
	assert.Equal(t, sampler.Distribution{
		{Label: "Paris", Weight: 0.95},
		{Label: "London", Weight: 0.03},
		{Label: "Berlin", Weight: 0.02},
	}, ds.Patterns[0].Completions)
	assert.Equal(t, "The 2025 Nobel Prize in Physics was won by", ds.Patterns[3].Prompt)

	kb := knowledge.New(ds.Knowledge)
	assert.Equal(t, 3, kb.Len())
	assert.Equal(t, "Paris", kb.Retrieve("The capital of France is"))
	assert.Equal(t, knowledge.NotFound, kb.Retrieve(ds.Patterns[3].Prompt))

	assert.Equal(t, []float64{0, 0.7, 1.5}, ds.Temperatures)

	assert.Equal(t, 1, ds.Cascade.Order)
	assert.Equal(t, "1847 Toronto Summit", ds.Cascade.Seed)
	assert.NotContains(t, ds.Cascade.Corpus, "Toronto Summit")

	require.Len(t, ds.Training, 3)
	assert.Equal(t, Scenario{
		Topic:  "Vaccine Safety",
		Good:   1000,
		Bad:    10,
		Result: "95% accurate, 5% chance of anti-vax talking points",
	}, ds.Training[0])

	assert.NotEmpty(t, ds.Insights)
	assert.NotEmpty(t, ds.Conclusion)
}

func TestScenarioShares(t *testing.T) {
	s := Scenario{Topic: "Programming Best Practices", Good: 10000, Bad: 500}

	assert.Equal(t, 10500, s.Total())
	assert.InDelta(t, 0.9524, s.GoodShare(), 1e-4)
	assert.InDelta(t, 0.0476, s.BadShare(), 1e-4)
	assert.Equal(t, []string{GoodLabel, BadLabel}, s.Distribution().Labels())
}

const validDoc = `
patterns:
  - prompt: "p"
    completions:
      - { label: "a", weight: 1 }
temperatures: [0]
cascade:
  prompt: "c"
  seed: "a"
  order: 1
  max_length: 5
  temperature: 0
  corpus: "a b."
`

func TestParse(t *testing.T) {
	ds, err := Parse([]byte(validDoc))
	require.NoError(t, err)
	assert.Len(t, ds.Patterns, 1)
	assert.Empty(t, ds.Training)
}

func TestParseRejects(t *testing.T) {
	testCases := []struct {
		name    string
		doc     string
		invalid bool
	}{
		{name: "empty document", doc: "", invalid: true},
		{name: "no patterns", doc: strings.Replace(validDoc, `  - prompt: "p"
    completions:
      - { label: "a", weight: 1 }`, "", 1), invalid: true},
		{name: "negative weight", doc: strings.Replace(validDoc, "weight: 1", "weight: -1", 1), invalid: true},
		{name: "negative temperature", doc: strings.Replace(validDoc, "temperatures: [0]", "temperatures: [-0.5]", 1), invalid: true},
		{name: "zero order", doc: strings.Replace(validDoc, "order: 1", "order: 0", 1), invalid: true},
		{name: "no data", doc: validDoc + "training:\n  - { topic: t, good: 0, bad: 0 }\n", invalid: true},
		{name: "negative count", doc: validDoc + "training:\n  - { topic: t, good: 5, bad: -1 }\n", invalid: true},
		{name: "unknown field", doc: validDoc + "extra: true\n"},
		{name: "malformed", doc: "patterns: [\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			require.Error(t, err)
			if tc.invalid {
				assert.ErrorIs(t, err, ErrInvalidDataset)
			} else {
				assert.NotErrorIs(t, err, ErrInvalidDataset)
			}
		})
	}
}
