package markov

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const fishCorpus = "one fish two fish. red fish blue fish."

// setupTestDB opens a private in-memory database and a Generator over it.
// A single connection keeps every statement on the same in-memory database.
func setupTestDB(tb testing.TB) (*sql.DB, *Generator) {
	tb.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(tb, err)
	db.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = db.Close() })

	require.NoError(tb, SetupSchema(db))

	g, err := NewGenerator(db, NewDefaultTokenizer())
	require.NoError(tb, err)
	tb.Cleanup(g.Close)

	return db, g
}

// setupTrainedModel creates a model of the given order trained on corpus.
func setupTrainedModel(tb testing.TB, order int, corpus string) (context.Context, *Generator, ModelInfo) {
	tb.Helper()
	_, g := setupTestDB(tb)
	ctx := context.Background()

	model, err := g.CreateModel(ctx, "test_model", order)
	require.NoError(tb, err)
	require.NoError(tb, g.Train(ctx, model, strings.NewReader(corpus)))
	return ctx, g, model
}

// scriptedSource replays fixed draws in order.
type scriptedSource struct {
	values []float64
	calls  int
}

func (s *scriptedSource) Float64() float64 {
	v := s.values[s.calls%len(s.values)]
	s.calls++
	return v
}
