package markov

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strconv"
	"strings"
)

// DBStats is a snapshot of the whole database.
type DBStats struct {
	Models     []ModelInfo        // Every model, ordered by id
	Stats      map[int]ModelStats // Per-model stats keyed by model id
	VocabSize  int                // Unique tokens across all models, reserved tokens included
	PrefixSize int                // Unique prefixes across all models
}

// ModelStats summarizes what a single model has learned.
type ModelStats struct {
	TotalChains    int // Unique prefix->next_token links
	TotalFrequency int // Sum of link frequencies, i.e. trained transitions
	StartingTokens int // Unique tokens that can open a chain
}

// GetStats returns global counts and per-model stats.
func (g *Generator) GetStats(ctx context.Context) (*DBStats, error) {
	modelInfos, err := g.GetModelInfos(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DBStats{
		Models: make([]ModelInfo, 0, len(modelInfos)),
		Stats:  make(map[int]ModelStats, len(modelInfos)),
	}
	if err = g.stmtGetVocabLen.QueryRowContext(ctx).Scan(&stats.VocabSize); err != nil {
		return nil, err
	}
	if err = g.stmtGetPrefixLen.QueryRowContext(ctx).Scan(&stats.PrefixSize); err != nil {
		return nil, err
	}

	for _, model := range modelInfos {
		stats.Models = append(stats.Models, model)
		ms, err := g.GetModelStats(ctx, model)
		if err != nil {
			return nil, err
		}
		stats.Stats[model.Id] = ms
	}
	slices.SortFunc(stats.Models, func(a, b ModelInfo) int { return a.Id - b.Id })

	return stats, nil
}

// GetModelStats returns the stats of a single model.
func (g *Generator) GetModelStats(ctx context.Context, model ModelInfo) (ModelStats, error) {
	var ms ModelStats
	if err := g.stmtModelChains.QueryRowContext(ctx, model.Id).Scan(&ms.TotalChains); err != nil {
		return ModelStats{}, err
	}
	if err := g.stmtModelFreq.QueryRowContext(ctx, model.Id).Scan(&ms.TotalFrequency); err != nil {
		return ModelStats{}, err
	}

	// The opening prefix is <SOC> repeated Order times.
	soc := strings.TrimSuffix(strings.Repeat(strconv.Itoa(SOCTokenID)+" ", model.Order), " ")
	var socID int
	err := g.stmtGetPrefixID.QueryRowContext(ctx, soc).Scan(&socID)
	if errors.Is(err, sql.ErrNoRows) {
		return ms, nil
	}
	if err != nil {
		return ModelStats{}, err
	}
	if err = g.stmtModelStarters.QueryRowContext(ctx, model.Id, socID).Scan(&ms.StartingTokens); err != nil {
		return ModelStats{}, err
	}
	return ms, nil
}
