package markov

import (
	"bufio"
	"io"
	"regexp"
)

var (
	// Words (letters, digits, apostrophes) or single punctuation marks.
	defaultWordPattern = regexp.MustCompile(`[\w']+|[.,!?;:]`)
	// Sentence-ending punctuation.
	defaultEOCPattern = regexp.MustCompile(`^[.!?]$`)
	// Tokens that attach to the previous word.
	punctuationPattern = regexp.MustCompile(`^[.,!?;:]`)
)

// DefaultTokenizer splits text into words and punctuation with regular
// expressions and treats sentence-ending punctuation as End-Of-Chain.
type DefaultTokenizer struct {
	separator   string
	eoc         string
	wordPattern *regexp.Regexp
	eocPattern  *regexp.Regexp
}

// Option configures a DefaultTokenizer.
type Option func(*DefaultTokenizer)

// WithSeparator sets the string placed between generated words. Default: " ".
func WithSeparator(sep string) Option {
	return func(t *DefaultTokenizer) { t.separator = sep }
}

// WithEOC sets the text written for an End-Of-Chain token. Default: ".".
func WithEOC(eoc string) Option {
	return func(t *DefaultTokenizer) { t.eoc = eoc }
}

// WithWordPattern sets the expression used to find tokens in the input.
func WithWordPattern(pattern string) Option {
	return func(t *DefaultTokenizer) { t.wordPattern = regexp.MustCompile(pattern) }
}

// WithEOCPattern sets the expression deciding whether a token ends a chain.
func WithEOCPattern(pattern string) Option {
	return func(t *DefaultTokenizer) { t.eocPattern = regexp.MustCompile(pattern) }
}

// NewDefaultTokenizer returns a tokenizer with default settings overridden by opts.
func NewDefaultTokenizer(opts ...Option) *DefaultTokenizer {
	t := &DefaultTokenizer{
		separator:   " ",
		eoc:         ".",
		wordPattern: defaultWordPattern,
		eocPattern:  defaultEOCPattern,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Separator returns nothing before punctuation and the configured separator otherwise.
func (t *DefaultTokenizer) Separator(_, next string) string {
	if punctuationPattern.MatchString(next) {
		return ""
	}
	return t.separator
}

// EOC returns the configured end text unless last is already punctuation.
func (t *DefaultTokenizer) EOC(last string) string {
	if punctuationPattern.MatchString(last) {
		return ""
	}
	return t.eoc
}

// NewStream returns a line-buffered StreamTokenizer over r.
func (t *DefaultTokenizer) NewStream(r io.Reader) StreamTokenizer {
	return &defaultStream{
		scanner:     bufio.NewScanner(r),
		wordPattern: t.wordPattern,
		eocPattern:  t.eocPattern,
	}
}

type defaultStream struct {
	scanner     *bufio.Scanner
	pending     []string
	wordPattern *regexp.Regexp
	eocPattern  *regexp.Regexp
}

// Next returns the next token, reading further lines as needed.
func (s *defaultStream) Next() (*Token, error) {
	for len(s.pending) == 0 {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		s.pending = s.wordPattern.FindAllString(s.scanner.Text(), -1)
	}

	word := s.pending[0]
	s.pending = s.pending[1:]
	return &Token{Text: word, EOC: s.eocPattern.MatchString(word)}, nil
}
