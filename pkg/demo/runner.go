// Package demo prints the hallucination demonstration: sampled completions
// against known answers, a computed chain hallucination and the effect of
// training data quality.
package demo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/CTAG07/Mimicry/pkg/dataset"
	"github.com/CTAG07/Mimicry/pkg/knowledge"
	"github.com/CTAG07/Mimicry/pkg/markov"
	"github.com/CTAG07/Mimicry/pkg/sampler"
	"github.com/CTAG07/Mimicry/pkg/simulator"
	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
)

// Unknown is shown as the correct answer for prompts the knowledge base lacks.
const Unknown = "UNKNOWN - not in training data"

const cascadeModelName = "cascade"

// Chain is the Markov chain store the cascade section trains and walks.
// *markov.Generator satisfies it.
type Chain interface {
	CreateModel(ctx context.Context, name string, order int) (markov.ModelInfo, error)
	Train(ctx context.Context, model markov.ModelInfo, data io.Reader) error
	Trace(ctx context.Context, model markov.ModelInfo, seed string, opts ...markov.GenerateOption) (*markov.Generation, error)
	GetStats(ctx context.Context) (*markov.DBStats, error)
}

var _ Chain = (*markov.Generator)(nil)

// Config holds the presentation settings of a Runner.
type Config struct {
	// Width of horizontal rules and wrapped markdown.
	Width int
	// Trials is the number of draws per training scenario. 0 skips the
	// observed rate.
	Trials int
	// Source drives the cascade walk and the training draws. nil uses the
	// math/rand/v2 top-level generator.
	Source sampler.Source
}

// DefaultConfig returns the settings the demonstration was written for.
func DefaultConfig() Config {
	return Config{
		Width:  70,
		Trials: 1000,
	}
}

// Runner prints every section of the demonstration in order.
type Runner struct {
	cfg    Config
	ds     *dataset.Dataset
	sim    *simulator.Simulator
	kb     *knowledge.Base
	chain  Chain
	model  *markov.ModelInfo
	logger *slog.Logger
}

// New returns a Runner over the given collaborators. A Width below 1 falls
// back to the default.
func New(cfg Config, ds *dataset.Dataset, sim *simulator.Simulator, kb *knowledge.Base, chain Chain) *Runner {
	if cfg.Width < 1 {
		cfg.Width = DefaultConfig().Width
	}
	return &Runner{
		cfg:    cfg,
		ds:     ds,
		sim:    sim,
		kb:     kb,
		chain:  chain,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Runner. By default, all logs are discarded.
func (r *Runner) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Run prints the whole demonstration to w.
func (r *Runner) Run(ctx context.Context, w io.Writer) error {
	md, err := newMarkdownRenderer(w, r.cfg.Width)
	if err != nil {
		return fmt.Errorf("could not create markdown renderer: %w", err)
	}
	p := &printer{w: w, st: newStyles(w), md: md, width: r.cfg.Width}

	sections := []struct {
		name string
		fn   func(context.Context, *printer) error
	}{
		{"banner", r.banner},
		{"hallucination", r.hallucination},
		{"insights", r.insights},
		{"cascade", r.cascade},
		{"training", r.training},
		{"conclusion", r.conclusion},
	}
	for _, s := range sections {
		if err = ctx.Err(); err != nil {
			return err
		}
		r.logger.DebugContext(ctx, "Printing section", slog.String("section", s.name))
		if err = s.fn(ctx, p); err != nil {
			return fmt.Errorf("%s section: %w", s.name, err)
		}
		if p.err != nil {
			return fmt.Errorf("%s section: %w", s.name, p.err)
		}
	}
	return nil
}

func (r *Runner) banner(_ context.Context, p *printer) error {
	p.println()
	p.println(p.st.title.Render("🧠 UNDERSTANDING HOW LLMs WORK"))
	p.println("A Practical, Interactive Demonstration")
	p.println()
	return nil
}

func (r *Runner) hallucination(ctx context.Context, p *printer) error {
	p.heading("DEMONSTRATION: LLM Pattern Matching vs Knowledge Retrieval")

	for _, prompt := range r.sim.Prompts() {
		p.println()
		p.printf("📝 Prompt: %s\n", p.st.prompt.Render("'"+prompt+"'"))
		p.println(strings.Repeat("-", p.width))

		correct, ok := r.kb.Lookup(prompt)
		if !ok {
			correct = Unknown
		}
		p.println()
		p.printf("✅ Knowledge Base (correct answer): %s\n", correct)
		p.println()
		p.println("🤖 LLM Pattern Matching:")

		for _, temp := range r.ds.Temperatures {
			gen, err := r.sim.Generate(ctx, prompt, temp)
			if err != nil {
				return err
			}
			marker := p.st.correct.Render("✓")
			if gen.Label != correct {
				marker = p.st.wrong.Render("✗ HALLUCINATION")
			}
			p.println()
			p.printf("   Temperature %.1f:\n", temp)
			p.printf("   %s'%s' %s\n", column("Generated:", 26), gen.Label, marker)
			p.printf("   %s%s\n", column("Probability distribution:", 26), gen.Distribution)
		}
		p.println()
	}
	return nil
}

func (r *Runner) insights(_ context.Context, p *printer) error {
	p.heading("KEY INSIGHTS:")
	return p.markdown(r.ds.Insights)
}

func (r *Runner) cascade(ctx context.Context, p *printer) error {
	c := r.ds.Cascade
	p.heading("DEMONSTRATION: Cascade Effect (Chain Hallucination)")
	p.println()
	p.println("Scenario: Generating text about a fake event")
	p.println()
	p.printf("Prompt: %s\n", p.st.prompt.Render(`"`+c.Prompt+`"`))

	model, err := r.cascadeModel(ctx)
	if err != nil {
		return err
	}
	stats, err := r.chain.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("could not read chain stats: %w", err)
	}
	ms := stats.Stats[model.Id]
	p.println()
	p.printf("Model: order-%d chain, %s words, %s learned transitions (%s distinct)\n",
		model.Order,
		humanize.Comma(int64(stats.VocabSize)),
		humanize.Comma(int64(ms.TotalFrequency)),
		humanize.Comma(int64(ms.TotalChains)),
	)
	p.println(p.st.dim.Render(fmt.Sprintf("None of its training sentences mention the %s.", c.Seed)))

	opts := []markov.GenerateOption{
		markov.WithMaxLength(c.MaxLength),
		markov.WithTemperature(c.Temperature),
	}
	if r.cfg.Source != nil {
		opts = append(opts, markov.WithSource(r.cfg.Source))
	}
	gen, err := r.chain.Trace(ctx, model, c.Seed, opts...)
	if err != nil {
		return fmt.Errorf("could not continue %q: %w", c.Seed, err)
	}

	for i, step := range gen.Steps {
		p.println()
		p.printf("Step %d: Generate next word after %q\n", i+1, step.Context)
		p.printf("  %s%s (probability: %s, %s)\n",
			column("Generated:", 11), stepToken(step.Token), sampler.FormatPercent(step.Probability),
			plural(step.Candidates, "candidate"))
	}

	p.println()
	p.printf("Result: %s\n", p.st.wrong.Render(gen.Text))
	p.println("Reason: Each word is plausible given the previous context")
	p.printf("Issue: No fact-checking that the %s never happened\n", c.Seed)
	p.println()
	p.println("💡 This is why a model can write entire fake academic papers,")
	p.println("   cite non-existent sources, and invent historical events")
	p.println("   that sound completely legitimate!")
	return nil
}

// EndOfSentence is shown in place of the chain's end token.
const EndOfSentence = "(end of sentence)"

func stepToken(token string) string {
	if token == markov.EOCTokenText {
		return EndOfSentence
	}
	return fmt.Sprintf("%q", token)
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}

// cascadeModel trains the cascade model on first use.
func (r *Runner) cascadeModel(ctx context.Context) (markov.ModelInfo, error) {
	if r.model != nil {
		return *r.model, nil
	}
	c := r.ds.Cascade
	model, err := r.chain.CreateModel(ctx, cascadeModelName, c.Order)
	if err != nil {
		return markov.ModelInfo{}, fmt.Errorf("could not create cascade model: %w", err)
	}
	if err = r.chain.Train(ctx, model, strings.NewReader(c.Corpus)); err != nil {
		return markov.ModelInfo{}, fmt.Errorf("could not train cascade model: %w", err)
	}
	r.model = &model
	return model, nil
}

func (r *Runner) training(_ context.Context, p *printer) error {
	p.heading("DEMONSTRATION: Training Data Quality Impact")
	p.println()
	p.println("How training data mix affects outputs:")
	p.println()

	for _, s := range r.ds.Training {
		p.printf("Topic: %s\n", p.st.prompt.Render(s.Topic))
		p.println("  Training data composition:")
		p.printf("    %s%s instances (%s)\n",
			column("✅ High-quality sources:", 25), humanize.Comma(int64(s.Good)), sampler.FormatPercent(s.GoodShare()))
		p.printf("    %s%s instances (%s)\n",
			column("❌ Low-quality sources:", 25), humanize.Comma(int64(s.Bad)), sampler.FormatPercent(s.BadShare()))
		p.printf("  Expected output: %s\n", s.Result)

		if r.cfg.Trials > 0 {
			bad, err := r.lowQualityDraws(s)
			if err != nil {
				return fmt.Errorf("topic %q: %w", s.Topic, err)
			}
			p.printf("  Observed over %s draws: %s low-quality outputs (%s)\n",
				humanize.Comma(int64(r.cfg.Trials)),
				humanize.Comma(int64(bad)),
				sampler.FormatPercent(float64(bad)/float64(r.cfg.Trials)),
			)
		}
		p.println()
	}

	p.println("Key Point: Even small amounts of bad data can cause problems")
	p.println("because the model learns ALL patterns, not just correct ones.")
	return nil
}

// lowQualityDraws samples the scenario mix Trials times at temperature 1 and
// counts the low-quality outcomes.
func (r *Runner) lowQualityDraws(s dataset.Scenario) (int, error) {
	dist := s.Distribution()
	bad := 0
	for range r.cfg.Trials {
		label, err := sampler.Choose(dist, 1, r.cfg.Source)
		if err != nil {
			return 0, err
		}
		if label == dataset.BadLabel {
			bad++
		}
	}
	return bad, nil
}

func (r *Runner) conclusion(_ context.Context, p *printer) error {
	p.heading("CONCLUSION")
	if err := p.markdown(r.ds.Conclusion); err != nil {
		return err
	}
	p.println()
	p.println(strings.Repeat("=", p.width))
	p.println("Run it again to see randomness in action!")
	p.println("Each run can show different results due to probability sampling.")
	p.println(strings.Repeat("=", p.width))
	p.println()
	return nil
}

// printer writes to w and keeps the first write error.
type printer struct {
	w     io.Writer
	st    styles
	md    *glamour.TermRenderer
	width int
	err   error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) println(args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, args...)
}

func (p *printer) heading(title string) {
	rule := strings.Repeat("=", p.width)
	p.println()
	p.println(rule)
	p.println(p.st.heading.Render(title))
	p.println(rule)
}

// markdown renders text and strips the padding glamour adds up to the wrap width.
func (p *printer) markdown(text string) error {
	out, err := p.md.Render(text)
	if err != nil {
		return fmt.Errorf("could not render markdown: %w", err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	p.println(strings.Join(lines, "\n"))
	return nil
}
