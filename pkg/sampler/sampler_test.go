package sampler

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource replays a fixed list of values and counts how often it was used.
type scriptedSource struct {
	values []float64
	calls  int
}

func (s *scriptedSource) Float64() float64 {
	v := s.values[s.calls%len(s.values)]
	s.calls++
	return v
}

// forbiddenSource fails the test if a draw is attempted.
type forbiddenSource struct{ t *testing.T }

func (f forbiddenSource) Float64() float64 {
	f.t.Fatal("random source must not be used")
	return 0
}

func capitals() Distribution {
	return Distribution{
		{Label: "Paris", Weight: 0.95},
		{Label: "London", Weight: 0.03},
		{Label: "Berlin", Weight: 0.02},
	}
}

func TestSampleZeroTemperature(t *testing.T) {
	res, err := Sample(capitals(), 0, forbiddenSource{t})
	require.NoError(t, err)

	assert.Equal(t, "Paris", res.Label)
	assert.Equal(t, Display{
		{Label: "Paris", Value: "95.0%"},
		{Label: "London", Value: "3.0%"},
		{Label: "Berlin", Value: "2.0%"},
	}, res.Distribution)
	assert.Equal(t, "{Paris: 95.0%, London: 3.0%, Berlin: 2.0%}", res.Distribution.String())
}

func TestChooseZeroTemperatureIsStable(t *testing.T) {
	testCases := []struct {
		name     string
		dist     Distribution
		expected string
	}{
		{name: "clear maximum", dist: capitals(), expected: "Paris"},
		{name: "maximum last", dist: Distribution{{"a", 0.1}, {"b", 0.2}, {"c", 0.7}}, expected: "c"},
		{name: "tie keeps first", dist: Distribution{{"a", 0.5}, {"b", 0.5}}, expected: "a"},
		{name: "all zero keeps first", dist: Distribution{{"a", 0}, {"b", 0}}, expected: "a"},
		{name: "unnormalized weights", dist: Distribution{{"x", 3}, {"y", 9}, {"z", 9}}, expected: "y"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 20; i++ {
				label, err := Choose(tc.dist, 0, forbiddenSource{t})
				require.NoError(t, err)
				assert.Equal(t, tc.expected, label)
			}
			assert.Equal(t, tc.expected, tc.dist.ArgMax().Label)
		})
	}
}

func TestChooseSingleEntry(t *testing.T) {
	dist := Distribution{{Label: "only", Weight: 0.4}}
	for _, temp := range []float64{0, 0.1, 0.7, 1, 1.5, 10} {
		label, err := Choose(dist, temp, forbiddenSource{t})
		require.NoError(t, err)
		assert.Equal(t, "only", label, "temperature %v", temp)
	}
}

func TestChooseFollowsCumulativeProbabilities(t *testing.T) {
	testCases := []struct {
		draw     float64
		expected string
	}{
		{draw: 0, expected: "Paris"},
		{draw: 0.5, expected: "Paris"},
		{draw: 0.94, expected: "Paris"},
		{draw: 0.96, expected: "London"},
		{draw: 0.99, expected: "Berlin"},
		{draw: 0.999999999, expected: "Berlin"},
	}

	for _, tc := range testCases {
		src := &scriptedSource{values: []float64{tc.draw}}
		label, err := Choose(capitals(), 1, src)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, label, "draw %v", tc.draw)
		assert.Equal(t, 1, src.calls)
	}
}

func TestChooseSkipsZeroWeights(t *testing.T) {
	dist := Distribution{{"never", 0}, {"always", 1}, {"also never", 0}}
	for _, draw := range []float64{0, 0.3, 0.999999} {
		label, err := Choose(dist, 0.7, &scriptedSource{values: []float64{draw}})
		require.NoError(t, err)
		assert.Equal(t, "always", label)
	}
}

func TestChooseAlwaysReturnsMember(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	dist := capitals()
	for _, temp := range []float64{0.1, 0.7, 1, 1.5, 5} {
		for i := 0; i < 500; i++ {
			label, err := Choose(dist, temp, rng)
			require.NoError(t, err)
			require.True(t, dist.Contains(label), "unexpected label %q", label)
		}
	}
}

func TestChooseMatchesWeightsAtTemperatureOne(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	dist := Distribution{{"a", 0.8}, {"b", 0.2}}

	const draws = 20000
	var hits int
	for i := 0; i < draws; i++ {
		label, err := Choose(dist, 1, rng)
		require.NoError(t, err)
		if label == "a" {
			hits++
		}
	}
	assert.InDelta(t, 0.8, float64(hits)/draws, 0.03)
}

func TestChooseNilSourceUsesGlobalGenerator(t *testing.T) {
	label, err := Choose(capitals(), 0.7, nil)
	require.NoError(t, err)
	assert.True(t, capitals().Contains(label))
}

func TestAdjusted(t *testing.T) {
	dist := Distribution{{"a", 0.7}, {"b", 0.3}}

	for _, temp := range []float64{0.5, 0.7, 1, 1.5, 3} {
		probs, err := dist.Adjusted(temp)
		require.NoError(t, err)

		wa := math.Pow(0.7, 1/temp)
		wb := math.Pow(0.3, 1/temp)
		assert.InDelta(t, wa/(wa+wb), probs[0], 1e-12)
		assert.InDelta(t, wb/(wa+wb), probs[1], 1e-12)
		assert.InDelta(t, 1, probs[0]+probs[1], 1e-12)
		assert.Greater(t, probs[0], probs[1], "rank order inverted at %v", temp)
	}

	probs, err := dist.Adjusted(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, probs)
}

func TestAdjustedFlattensWithTemperature(t *testing.T) {
	dist := capitals()
	cold, err := dist.Adjusted(0.7)
	require.NoError(t, err)
	neutral, err := dist.Adjusted(1)
	require.NoError(t, err)
	hot, err := dist.Adjusted(1.5)
	require.NoError(t, err)

	assert.Greater(t, cold[0], neutral[0])
	assert.Greater(t, neutral[0], hot[0])
	assert.Less(t, cold[2], hot[2])
}

func TestAdjustedTinyTemperatureDoesNotUnderflow(t *testing.T) {
	testCases := []struct {
		name        string
		dist        Distribution
		temperature float64
		expected    []float64
	}{
		{name: "close weights", dist: Distribution{{"a", 0.5}, {"b", 0.49}}, temperature: 0.001},
		{name: "log weights overflow", dist: Distribution{{"a", 0.5}, {"b", 0.4}}, temperature: 1e-310, expected: []float64{1, 0}},
		{name: "weights above one overflow", dist: Distribution{{"a", 2}, {"b", 3}}, temperature: 1e-310, expected: []float64{0, 1}},
		{name: "zero weight stays zero", dist: Distribution{{"good", 1}, {"zero", 0}}, temperature: 1e-310, expected: []float64{1, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			probs, err := tc.dist.Adjusted(tc.temperature)
			require.NoError(t, err)
			if tc.expected != nil {
				assert.Equal(t, tc.expected, probs)
			}
			assert.Greater(t, probs[0]+probs[1], 0.999999)
			assert.Greater(t, slices.Max(probs), 0.999)

			want := tc.dist.ArgMax().Label
			label, err := Choose(tc.dist, tc.temperature, &scriptedSource{values: []float64{0.9999}})
			require.NoError(t, err)
			assert.Equal(t, want, label)
		})
	}
}

func TestAdjustedZeroWeights(t *testing.T) {
	dist := Distribution{{"zero", 0}, {"good", 1}, {"also zero", 0}}

	for _, temp := range []float64{0.5, 1, 1.5, 1e6} {
		probs, err := dist.Adjusted(temp)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 1, 0}, probs, "temperature %v", temp)

		label, err := Choose(dist, temp, &scriptedSource{values: []float64{0.1, 0.99}})
		require.NoError(t, err)
		assert.Equal(t, "good", label)
	}
}

func TestDisplayIgnoresTemperature(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	dist := Distribution{{"east", 0.98}, {"west", 0.01}, {"morning", 0.01}}
	want := dist.Display()

	for _, temp := range []float64{0, 0.7, 1.5} {
		res, err := Sample(dist, temp, rng)
		require.NoError(t, err)
		assert.Equal(t, want, res.Distribution)
	}
	value, ok := want.Get("east")
	require.True(t, ok)
	assert.Equal(t, "98.0%", value)
	_, ok = want.Get("north")
	assert.False(t, ok)
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "33.0%", FormatPercent(0.33))
	assert.Equal(t, "34.0%", FormatPercent(0.34))
	assert.Equal(t, "0.0%", FormatPercent(0))
	assert.Equal(t, "150.0%", FormatPercent(1.5))
}

func TestSampleErrors(t *testing.T) {
	testCases := []struct {
		name        string
		dist        Distribution
		temperature float64
		expected    error
	}{
		{name: "negative temperature", dist: capitals(), temperature: -0.1, expected: ErrInvalidTemperature},
		{name: "NaN temperature", dist: capitals(), temperature: math.NaN(), expected: ErrInvalidTemperature},
		{name: "infinite temperature", dist: Distribution{{"good", 1}, {"zero", 0}}, temperature: math.Inf(1), expected: ErrInvalidTemperature},
		{name: "negative infinite temperature", dist: capitals(), temperature: math.Inf(-1), expected: ErrInvalidTemperature},
		{name: "negative weight", dist: Distribution{{"a", 0.5}, {"b", -0.1}}, temperature: 0.7, expected: ErrInvalidWeight},
		{name: "negative weight at zero temperature", dist: Distribution{{"a", -1}}, temperature: 0, expected: ErrInvalidWeight},
		{name: "NaN weight", dist: Distribution{{"a", math.NaN()}, {"b", 1}}, temperature: 1, expected: ErrInvalidWeight},
		{name: "infinite weight", dist: Distribution{{"a", math.Inf(1)}, {"b", 1}}, temperature: 1, expected: ErrInvalidWeight},
		{name: "empty", dist: nil, temperature: 1, expected: ErrEmptyDistribution},
		{name: "no mass", dist: Distribution{{"a", 0}, {"b", 0}}, temperature: 1, expected: ErrNoProbabilityMass},
		{name: "temperature checked first", dist: Distribution{{"a", -1}}, temperature: -1, expected: ErrInvalidTemperature},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Sample(tc.dist, tc.temperature, forbiddenSource{t})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestSampleDoesNotMutateInput(t *testing.T) {
	dist := capitals()
	original := append(Distribution(nil), dist...)
	_, err := Sample(dist, 1.5, rand.New(rand.NewPCG(5, 6)))
	require.NoError(t, err)
	assert.Equal(t, original, dist)
}

func BenchmarkChoose(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 1))
	dist := capitals()
	for _, temp := range []float64{0, 0.7, 1.5} {
		b.Run(FormatPercent(temp), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := Choose(dist, temp, rng); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
