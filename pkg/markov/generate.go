package markov

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/CTAG07/Mimicry/pkg/sampler"
)

// ErrUnknownSeedToken is returned when a seed contains a token the model never saw.
var ErrUnknownSeedToken = errors.New("not found in model vocabulary")

// generateOptions holds the settings shared by every generation entry point.
type generateOptions struct {
	maxLength   int
	canEndEarly bool
	temperature float64
	topK        int
	src         sampler.Source
}

func newGenerateOptions(opts []GenerateOption) *generateOptions {
	options := &generateOptions{
		maxLength:   100,
		canEndEarly: true,
		temperature: 1.0,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// GenerateOption configures a single generation call.
type GenerateOption func(*generateOptions)

// WithMaxLength sets the maximum number of tokens, seed included.
func WithMaxLength(n int) GenerateOption {
	return func(o *generateOptions) { o.maxLength = n }
}

// WithEarlyTermination sets whether an End-Of-Chain token stops generation
// before the maximum length is reached.
func WithEarlyTermination(canEnd bool) GenerateOption {
	return func(o *generateOptions) { o.canEndEarly = canEnd }
}

// WithTemperature sets the sampling temperature. 0 always takes the most
// frequent continuation, 1 samples learned frequencies as they are and values
// above 1 favor rarer continuations. Negative values make generation fail.
func WithTemperature(t float64) GenerateOption {
	return func(o *generateOptions) { o.temperature = t }
}

// WithTopK restricts each choice to the k most frequent continuations.
// 0 disables the restriction.
func WithTopK(k int) GenerateOption {
	return func(o *generateOptions) { o.topK = k }
}

// WithSource sets the random source used for every draw. Without it the
// math/rand/v2 top-level generator is used.
func WithSource(src sampler.Source) GenerateOption {
	return func(o *generateOptions) { o.src = src }
}

// Step is one generated token along with what the model knew when choosing it.
type Step struct {
	// Context is the text of the prefix the token was predicted from.
	Context string
	// Token is the chosen text, EOCTokenText for an End-Of-Chain.
	Token string
	// Probability is the learned frequency of Token after Context divided by
	// the frequency of all continuations, before any temperature is applied.
	Probability float64
	// Candidates is the number of distinct continuations the model knew.
	Candidates int
}

// Generation is the output of Trace.
type Generation struct {
	Text  string
	Steps []Step
}

// Generate builds a chain from the Start-Of-Chain state and returns it as text.
func (g *Generator) Generate(ctx context.Context, model ModelInfo, opts ...GenerateOption) (string, error) {
	gen, err := g.generateChain(ctx, model, nil, newGenerateOptions(opts))
	if err != nil {
		return "", err
	}
	return gen.Text, nil
}

// GenerateFromStream tokenizes r and continues the chain from it. Every seed
// token must be in the vocabulary.
func (g *Generator) GenerateFromStream(ctx context.Context, model ModelInfo, r io.Reader, opts ...GenerateOption) (string, error) {
	gen, err := g.traceStream(ctx, model, r, newGenerateOptions(opts))
	if err != nil {
		return "", err
	}
	return gen.Text, nil
}

// GenerateFromString is GenerateFromStream over a string. An empty string
// behaves like Generate.
func (g *Generator) GenerateFromString(ctx context.Context, model ModelInfo, startText string, opts ...GenerateOption) (string, error) {
	gen, err := g.Trace(ctx, model, startText, opts...)
	if err != nil {
		return "", err
	}
	return gen.Text, nil
}

// Trace works like GenerateFromString and also reports every generated step.
// Seed tokens appear in the text but not in the steps.
func (g *Generator) Trace(ctx context.Context, model ModelInfo, seed string, opts ...GenerateOption) (*Generation, error) {
	options := newGenerateOptions(opts)
	if seed == "" {
		return g.generateChain(ctx, model, nil, options)
	}
	return g.traceStream(ctx, model, strings.NewReader(seed), options)
}

func (g *Generator) traceStream(ctx context.Context, model ModelInfo, r io.Reader, options *generateOptions) (*Generation, error) {
	stream := g.tokenizer.NewStream(r)

	var seedTokens []int
	for {
		token, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tokenizer error while reading seed: %w", err)
		}
		// The chain continues from the seed, so its EOC tokens are dropped.
		if token.EOC {
			continue
		}
		tokenID, err := g.VocabStr(ctx, token.Text)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("seed token '%s' %w", token.Text, ErrUnknownSeedToken)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up seed token '%s': %w", token.Text, err)
		}
		seedTokens = append(seedTokens, tokenID)
	}

	return g.generateChain(ctx, model, seedTokens, options)
}

// generateChain contains the main generation loop.
func (g *Generator) generateChain(ctx context.Context, model ModelInfo, seed []int, options *generateOptions) (*Generation, error) {
	if err := sampler.CheckTemperature(options.temperature); err != nil {
		return nil, err
	}

	var builder strings.Builder
	gen := &Generation{}

	cache := map[int]string{
		SOCTokenID: SOCTokenText,
		EOCTokenID: EOCTokenText,
	}

	prefix := make([]int, model.Order)
	generatedCount := 0
	firstWord := true
	lastWord := SOCTokenText

	write := func(text string) {
		if !firstWord {
			builder.WriteString(g.tokenizer.Separator(lastWord, text))
		}
		firstWord = false
		lastWord = text
		builder.WriteString(text)
	}

	if len(seed) > options.maxLength {
		seed = seed[:options.maxLength]
	}
	for _, tokenID := range seed {
		text, err := g.tokenText(ctx, tokenID, cache)
		if err != nil {
			return nil, fmt.Errorf("failed to get text for seed token %d: %w", tokenID, err)
		}
		write(text)
		prefix = append(prefix[1:], tokenID)
		generatedCount++
	}

	var keyBuf []byte
	terminatedEarly := false

	for generatedCount < options.maxLength {
		var key string
		keyBuf, key = prefixKey(keyBuf, prefix)

		choices, totalFreq, err := g.GetNextTokens(ctx, model, key)
		if err != nil {
			return nil, fmt.Errorf("failed to get next tokens for prefix '%s': %w", key, err)
		}

		if len(choices) == 0 {
			terminatedEarly = true
			g.logger.DebugContext(ctx, "Generation terminated due to dead-end",
				slog.String("model_name", model.Name),
				slog.Int("model_id", model.Id),
				slog.String("last_prefix", key),
				slog.Int("generated_length", generatedCount),
			)
			builder.WriteString(g.tokenizer.EOC(lastWord))
			break
		}

		next, err := chooseNextToken(choices, options)
		if err != nil {
			return nil, fmt.Errorf("failed to choose next token for prefix '%s': %w", key, err)
		}

		contextText, err := g.contextText(ctx, prefix, cache)
		if err != nil {
			return nil, err
		}
		step := Step{
			Context:     contextText,
			Probability: float64(frequencyOf(choices, next)) / float64(totalFreq),
			Candidates:  len(choices),
		}

		if next == EOCTokenID {
			step.Token = EOCTokenText
			gen.Steps = append(gen.Steps, step)
			builder.WriteString(g.tokenizer.EOC(lastWord))

			if options.canEndEarly {
				terminatedEarly = true
				g.logger.DebugContext(ctx, "Generation terminated by EOC token",
					slog.String("model_name", model.Name),
					slog.Int("model_id", model.Id),
					slog.Int("generated_length", generatedCount),
				)
				break
			}

			lastWord = EOCTokenText
			clear(prefix)
		} else {
			text, err := g.tokenText(ctx, next, cache)
			if err != nil {
				return nil, fmt.Errorf("failed to get text for generated token %d: %w", next, err)
			}
			step.Token = text
			gen.Steps = append(gen.Steps, step)
			write(text)
			prefix = append(prefix[1:], next)
		}
		generatedCount++
	}

	if !terminatedEarly {
		// Every returned chain ends with an EOC.
		builder.WriteString(g.tokenizer.EOC(lastWord))
		g.logger.DebugContext(ctx, "Generation terminated by reaching maxLength",
			slog.String("model_name", model.Name),
			slog.Int("model_id", model.Id),
			slog.Int("max_length", options.maxLength),
			slog.Int("generated_length", generatedCount),
		)
	}

	gen.Text = builder.String()
	return gen, nil
}

// contextText renders the non-<SOC> part of prefix, or <SOC> when nothing is left.
func (g *Generator) contextText(ctx context.Context, prefix []int, cache map[int]string) (string, error) {
	words := make([]string, 0, len(prefix))
	for _, id := range prefix {
		if id == SOCTokenID {
			continue
		}
		text, err := g.tokenText(ctx, id, cache)
		if err != nil {
			return "", fmt.Errorf("failed to get text for prefix token %d: %w", id, err)
		}
		words = append(words, text)
	}
	if len(words) == 0 {
		return SOCTokenText, nil
	}
	return strings.Join(words, " "), nil
}

// chooseNextToken applies the top-K filter and hands the remaining
// frequencies to the sampler. Ties at temperature 0 go to the lowest token id.
func chooseNextToken(choices []ChainToken, options *generateOptions) (int, error) {
	if options.topK > 0 && options.topK < len(choices) {
		choices = slices.Clone(choices)
		slices.SortStableFunc(choices, func(a, b ChainToken) int {
			return b.Freq - a.Freq
		})
		choices = choices[:options.topK]
		slices.SortFunc(choices, func(a, b ChainToken) int {
			return a.Id - b.Id
		})
	}

	dist := make(sampler.Distribution, len(choices))
	for i, choice := range choices {
		dist[i] = sampler.Outcome{Label: strconv.Itoa(choice.Id), Weight: float64(choice.Freq)}
	}

	label, err := sampler.Choose(dist, options.temperature, options.src)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(label)
}

func frequencyOf(choices []ChainToken, id int) int {
	for _, c := range choices {
		if c.Id == id {
			return c.Freq
		}
	}
	return 0
}
