package main

import (
	"database/sql"
	"fmt"

	"github.com/CTAG07/Mimicry/pkg/markov"
)

// openChainDB opens a private in-memory database with the markov schema.
// It is limited to one connection, since every new connection to :memory:
// gets an empty database of its own.
func openChainDB() (*sql.DB, error) {
	db, err := sql.Open(sqliteDriver, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", sqliteDriver, err)
	}
	db.SetMaxOpenConns(1)

	if err = markov.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup markov schema: %w", err)
	}
	return db, nil
}
