// Package knowledge provides a deterministic prompt-to-answer lookup used as
// the ground truth that sampled completions are compared against.
package knowledge

// NotFound is returned by Retrieve for prompts the base has no answer for.
const NotFound = "Not found in knowledge base"

// Fact pairs a prompt with its single correct answer.
type Fact struct {
	Prompt string `yaml:"prompt"`
	Answer string `yaml:"answer"`
}

// Base is a read-only set of facts. It is safe for concurrent use.
type Base struct {
	answers map[string]string
	prompts []string
}

// New builds a Base from facts. Later duplicates of a prompt replace earlier
// answers while keeping the prompt's original position.
func New(facts []Fact) *Base {
	b := &Base{answers: make(map[string]string, len(facts))}
	for _, f := range facts {
		if _, ok := b.answers[f.Prompt]; !ok {
			b.prompts = append(b.prompts, f.Prompt)
		}
		b.answers[f.Prompt] = f.Answer
	}
	return b
}

// Lookup returns the answer for prompt and whether one exists.
func (b *Base) Lookup(prompt string) (string, bool) {
	answer, ok := b.answers[prompt]
	return answer, ok
}

// Retrieve returns the answer for prompt, or NotFound.
func (b *Base) Retrieve(prompt string) string {
	if answer, ok := b.answers[prompt]; ok {
		return answer
	}
	return NotFound
}

// Len returns the number of known prompts.
func (b *Base) Len() int {
	return len(b.prompts)
}

// Prompts returns the known prompts in insertion order.
func (b *Base) Prompts() []string {
	return append([]string(nil), b.prompts...)
}
