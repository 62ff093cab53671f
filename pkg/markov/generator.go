package markov

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
)

const (
	// SOCTokenID is the reserved ID for the Start-Of-Chain token.
	SOCTokenID = 0
	// EOCTokenID is the reserved ID for the End-Of-Chain token.
	EOCTokenID = 1
	// SOCTokenText is the reserved text for the Start-Of-Chain token.
	SOCTokenText = "<SOC>"
	// EOCTokenText is the reserved text for the End-Of-Chain token.
	EOCTokenText = "<EOC>"
)

// SetupSchema creates the vocabulary, prefix, model and chain tables and the
// reserved tokens. It is idempotent.
func SetupSchema(db *sql.DB) error {
	const (
		schemaVocab = `
CREATE TABLE IF NOT EXISTS markov_vocabulary (
    token_id INTEGER PRIMARY KEY,
    token_text TEXT NOT NULL UNIQUE
);`
		schemaPrefixes = `
CREATE TABLE IF NOT EXISTS markov_prefixes (
    prefix_id INTEGER PRIMARY KEY,
    prefix_text TEXT NOT NULL UNIQUE
);`
		schemaModels = `
CREATE TABLE IF NOT EXISTS markov_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    model_order INTEGER NOT NULL CHECK (model_order > 0)
);`
		schemaChains = `
CREATE TABLE IF NOT EXISTS markov_chains (
    model_id INTEGER NOT NULL,
    prefix_id INTEGER NOT NULL,
    next_token_id INTEGER NOT NULL,
    frequency INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (model_id, prefix_id, next_token_id)
);`
		reservedTokens = `INSERT OR IGNORE INTO markov_vocabulary (token_id, token_text) VALUES (?, ?), (?, ?);`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	// No-op once Commit has succeeded.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, stmt := range []string{schemaVocab, schemaPrefixes, schemaModels, schemaChains} {
		if _, err = tx.Exec(stmt); err != nil {
			return fmt.Errorf("could not create schema: %w", err)
		}
	}

	if _, err = tx.Exec(reservedTokens, SOCTokenID, SOCTokenText, EOCTokenID, EOCTokenText); err != nil {
		return fmt.Errorf("could not insert special tokens: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// Generator trains and queries Markov models stored in a database. It holds
// the connection, a Tokenizer and the prepared statements used on every step.
type Generator struct {
	db                    *sql.DB
	tokenizer             Tokenizer
	stmtGetModelInfo      *sql.Stmt
	stmtGetModels         *sql.Stmt
	stmtAddModel          *sql.Stmt
	stmtModelChains       *sql.Stmt
	stmtModelStarters     *sql.Stmt
	stmtModelFreq         *sql.Stmt
	stmtGetTokenID        *sql.Stmt
	stmtGetPrefixID       *sql.Stmt
	stmtGetTokenText      *sql.Stmt
	stmtGetChain          *sql.Stmt
	stmtGetVocabLen       *sql.Stmt
	stmtGetPrefixLen      *sql.Stmt
	stmtInsertVocab       *sql.Stmt
	stmtGetOrInsertPrefix *sql.Stmt
	logger                *slog.Logger
}

// NewGenerator prepares every statement the Generator needs against db. The
// schema must already exist (see SetupSchema).
func NewGenerator(db *sql.DB, tokenizer Tokenizer) (*Generator, error) {
	g := &Generator{
		db:        db,
		tokenizer: tokenizer,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	statements := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&g.stmtGetModelInfo, `SELECT model_id, model_order FROM markov_models WHERE model_name = ?;`},
		{&g.stmtGetModels, `SELECT model_id, model_name, model_order FROM markov_models ORDER BY model_id;`},
		{&g.stmtAddModel, `INSERT INTO markov_models (model_name, model_order) VALUES (?, ?);`},
		{&g.stmtModelChains, `SELECT COUNT(*) FROM markov_chains WHERE model_id = ?;`},
		{&g.stmtModelStarters, `SELECT COUNT(*) FROM markov_chains WHERE model_id = ? AND prefix_id = ?;`},
		{&g.stmtModelFreq, `SELECT coalesce(SUM(frequency), 0) FROM markov_chains WHERE model_id = ?;`},
		{&g.stmtGetTokenID, `SELECT token_id FROM markov_vocabulary WHERE token_text = ?;`},
		{&g.stmtGetPrefixID, `SELECT prefix_id FROM markov_prefixes WHERE prefix_text = ?;`},
		{&g.stmtGetTokenText, `SELECT token_text FROM markov_vocabulary WHERE token_id = ?;`},
		{&g.stmtGetChain, `SELECT next_token_id, frequency FROM markov_chains WHERE model_id = ? AND prefix_id = ? ORDER BY next_token_id;`},
		{&g.stmtGetVocabLen, `SELECT COUNT(*) FROM markov_vocabulary;`},
		{&g.stmtGetPrefixLen, `SELECT COUNT(*) FROM markov_prefixes;`},
		{&g.stmtInsertVocab, `INSERT INTO markov_vocabulary (token_text) VALUES (?) ON CONFLICT(token_text) DO UPDATE SET token_text=excluded.token_text RETURNING token_id;`},
		{&g.stmtGetOrInsertPrefix, `INSERT INTO markov_prefixes (prefix_text) VALUES (?) ON CONFLICT(prefix_text) DO UPDATE SET prefix_text=excluded.prefix_text RETURNING prefix_id;`},
	}

	for _, s := range statements {
		stmt, err := db.Prepare(s.query)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("could not prepare statement: %w", err)
		}
		*s.dst = stmt
	}
	return g, nil
}

// Close releases the prepared statements. The database itself stays open.
func (g *Generator) Close() {
	for _, stmt := range []*sql.Stmt{
		g.stmtGetModelInfo, g.stmtGetModels, g.stmtAddModel, g.stmtModelChains,
		g.stmtModelStarters, g.stmtModelFreq, g.stmtGetTokenID, g.stmtGetPrefixID,
		g.stmtGetTokenText, g.stmtGetChain, g.stmtGetVocabLen, g.stmtGetPrefixLen,
		g.stmtInsertVocab, g.stmtGetOrInsertPrefix,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the Generator. By default, all logs are discarded.
func (g *Generator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		g.logger = logger
	}
}
