package markov

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Token is one unit of tokenized text. EOC marks the end of a chain, such as
// sentence-ending punctuation.
type Token struct {
	Text string
	EOC  bool
}

// Tokenizer splits input text into tokens and joins generated tokens back
// into text.
type Tokenizer interface {
	// NewStream returns a StreamTokenizer reading from r.
	NewStream(r io.Reader) StreamTokenizer
	// Separator returns the string placed between prev and current when
	// building output.
	Separator(prev, current string) string
	// EOC returns the text written for an End-Of-Chain token following last.
	EOC(last string) string
}

// StreamTokenizer returns one token at a time from an underlying stream.
type StreamTokenizer interface {
	// Next returns the next token, or io.EOF once the stream is exhausted.
	Next() (*Token, error)
}

// ChainToken is a candidate next token and how often it followed a prefix.
type ChainToken struct {
	Id   int
	Freq int
}

// GetNextTokens returns the candidates learned after prefix, ordered by
// token id, and the sum of their frequencies. An unseen prefix yields no
// candidates and no error.
func (g *Generator) GetNextTokens(ctx context.Context, model ModelInfo, prefix string) ([]ChainToken, int, error) {
	var prefixID int
	err := g.stmtGetPrefixID.QueryRowContext(ctx, prefix).Scan(&prefixID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("could not get prefix ID for '%s': %w", prefix, err)
	}

	rows, err := g.stmtGetChain.QueryContext(ctx, model.Id, prefixID)
	if err != nil {
		return nil, 0, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var tokens []ChainToken
	var totalFreq int
	for rows.Next() {
		var token ChainToken
		if err = rows.Scan(&token.Id, &token.Freq); err != nil {
			return nil, 0, err
		}
		tokens = append(tokens, token)
		totalFreq += token.Freq
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}
	return tokens, totalFreq, nil
}

// VocabStr returns the id of a token text.
func (g *Generator) VocabStr(ctx context.Context, token string) (int, error) {
	var tokenId int
	if err := g.stmtGetTokenID.QueryRowContext(ctx, token).Scan(&tokenId); err != nil {
		return 0, err
	}
	return tokenId, nil
}

// VocabInt returns the text of a token id.
func (g *Generator) VocabInt(ctx context.Context, id int) (string, error) {
	var tokenText string
	if err := g.stmtGetTokenText.QueryRowContext(ctx, id).Scan(&tokenText); err != nil {
		return "", err
	}
	return tokenText, nil
}

// tokenText resolves id through cache, falling back to the vocabulary table.
func (g *Generator) tokenText(ctx context.Context, id int, cache map[int]string) (string, error) {
	if text, ok := cache[id]; ok {
		return text, nil
	}
	text, err := g.VocabInt(ctx, id)
	if err != nil {
		return "", err
	}
	cache[id] = text
	return text, nil
}

// prefixKey renders token ids as the space separated key stored in markov_prefixes.
func prefixKey(buf []byte, ids []int) ([]byte, string) {
	buf = buf[:0]
	for i, id := range ids {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendInt(buf, int64(id), 10)
	}
	return buf, string(buf)
}
