package markov

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// maxSentenceLength caps how many tokens of one sentence are kept in memory.
const maxSentenceLength = 4096

// Train tokenizes data and adds every prefix→next transition it contains to
// model. Each sentence is padded with Start-Of-Chain tokens and closed with an
// End-Of-Chain token. The whole corpus is written in a single transaction.
func (g *Generator) Train(ctx context.Context, model ModelInfo, data io.Reader) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmtInsertVocab := tx.StmtContext(ctx, g.stmtInsertVocab)
	stmtGetOrInsertPrefix := tx.StmtContext(ctx, g.stmtGetOrInsertPrefix)
	stmtInsertLink, err := tx.PrepareContext(ctx, `INSERT INTO markov_chains (model_id, prefix_id, next_token_id, frequency) VALUES (?, ?, ?, 1) ON CONFLICT(model_id, prefix_id, next_token_id) DO UPDATE SET frequency = frequency + 1;`)
	if err != nil {
		return fmt.Errorf("failed to prepare chain insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertLink)

	t := &trainer{
		model:       model,
		prefixCache: make(map[string]int),
		getPrefix:   stmtGetOrInsertPrefix,
		insertLink:  stmtInsertLink,
	}

	stream := g.tokenizer.NewStream(data)
	var sentence []int
	var sentences, tokens int64

	for {
		token, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("tokenizer error: %w", err)
		}

		if !token.EOC && len(sentence) < maxSentenceLength {
			var tokenID int
			if err = stmtInsertVocab.QueryRowContext(ctx, token.Text).Scan(&tokenID); err != nil {
				return fmt.Errorf("sql insert vocabulary error for token '%s': %w", token.Text, err)
			}
			sentence = append(sentence, tokenID)
			tokens++
			continue
		}

		if len(sentence) > 0 {
			if err = t.sentence(ctx, sentence); err != nil {
				return fmt.Errorf("sentence processing error: %w", err)
			}
			sentences++
			sentence = sentence[:0]
		}
	}

	if len(sentence) > 0 {
		if err = t.sentence(ctx, sentence); err != nil {
			return fmt.Errorf("final sentence processing error: %w", err)
		}
		sentences++
	}

	g.logger.InfoContext(ctx, "Training completed",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.Int64("sentences_processed", sentences),
		slog.Int64("tokens_processed", tokens),
	)

	return tx.Commit()
}

// trainer holds the per-call state of Train.
type trainer struct {
	model       ModelInfo
	prefixCache map[string]int
	keyBuf      []byte
	getPrefix   *sql.Stmt
	insertLink  *sql.Stmt
}

// sentence records every transition of one sentence, including the leading
// <SOC> padding and the closing <EOC>.
func (t *trainer) sentence(ctx context.Context, sentence []int) error {
	order := t.model.Order
	padded := make([]int, len(sentence)+order+1)
	copy(padded[order:], sentence)
	padded[len(padded)-1] = EOCTokenID

	for i := 0; i <= len(sentence); i++ {
		var key string
		t.keyBuf, key = prefixKey(t.keyBuf, padded[i:i+order])

		prefixID, ok := t.prefixCache[key]
		if !ok {
			if err := t.getPrefix.QueryRowContext(ctx, key).Scan(&prefixID); err != nil {
				return fmt.Errorf("failed to get or insert prefix '%s': %w", key, err)
			}
			t.prefixCache[key] = prefixID
		}

		next := padded[i+order]
		if _, err := t.insertLink.ExecContext(ctx, t.model.Id, prefixID, next); err != nil {
			return fmt.Errorf("failed to insert chain link (%d -> %d): %w", prefixID, next, err)
		}
	}
	return nil
}
