package main

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/CTAG07/Mimicry/pkg/dataset"
	"github.com/CTAG07/Mimicry/pkg/demo"
	"github.com/CTAG07/Mimicry/pkg/knowledge"
	"github.com/CTAG07/Mimicry/pkg/markov"
	"github.com/CTAG07/Mimicry/pkg/simulator"
	"github.com/google/uuid"
)

func main() {
	os.Exit(mainWithCode(os.Stdout, os.Stderr))
}

func mainWithCode(stdout, stderr io.Writer) int {
	cfg := DefaultConfig()
	err := ParseEnv(&cfg)
	if err == nil {
		err = cfg.Validate()
	}

	logger := newLogger(stderr, cfg.Level())
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, cfg, stdout, logger); err != nil {
		logger.Error("Demonstration failed", "error", err)
		return 1
	}
	return 0
}

// newLogger writes text logs to w, tagging every record with the run id.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})).
		With(slog.String("run_id", uuid.NewString()))
}

// run loads the dataset, wires every component and prints the demonstration.
func run(ctx context.Context, cfg Config, stdout io.Writer, logger *slog.Logger) error {
	seed := cfg.Seed
	if seed == 0 {
		var err error
		if seed, err = randomSeed(); err != nil {
			return err
		}
	}
	logger.Info("Starting demonstration", "seed", seed, "trials", cfg.Trials)
	src := rand.New(rand.NewPCG(seed, seed))

	ds, err := dataset.Load()
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	sim, err := simulator.New(ds.Patterns, src)
	if err != nil {
		return fmt.Errorf("failed to create simulator: %w", err)
	}
	sim.SetLogger(logger)

	db, err := openChainDB()
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	mg, err := markov.NewGenerator(db, markov.NewDefaultTokenizer())
	if err != nil {
		return fmt.Errorf("error creating markov generator: %w", err)
	}
	defer mg.Close()
	mg.SetLogger(logger)

	runner := demo.New(demo.Config{
		Width:  cfg.Width,
		Trials: cfg.Trials,
		Source: src,
	}, ds, sim, knowledge.New(ds.Knowledge), mg)
	runner.SetLogger(logger)

	if err = runner.Run(ctx, stdout); err != nil {
		return err
	}
	logger.Info("Demonstration finished")
	return nil
}

func randomSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("failed to read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
