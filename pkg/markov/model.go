package markov

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// ErrInvalidOrder is returned when a model is created with an order below 1.
var ErrInvalidOrder = errors.New("model order must be at least 1")

// ModelInfo identifies a model and the number of preceding tokens (its order)
// used to predict the next one.
type ModelInfo struct {
	Id    int
	Name  string
	Order int
}

// GetModelInfos returns every model in the database keyed by name.
func (g *Generator) GetModelInfos(ctx context.Context) (map[string]ModelInfo, error) {
	rows, err := g.stmtGetModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	models := make(map[string]ModelInfo)
	for rows.Next() {
		var model ModelInfo
		if err = rows.Scan(&model.Id, &model.Name, &model.Order); err != nil {
			return nil, err
		}
		models[model.Name] = model
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// GetModelInfo returns the model registered under modelName, or
// sql.ErrNoRows if there is none.
func (g *Generator) GetModelInfo(ctx context.Context, modelName string) (ModelInfo, error) {
	model := ModelInfo{Name: modelName}
	err := g.stmtGetModelInfo.QueryRowContext(ctx, modelName).Scan(&model.Id, &model.Order)
	if err != nil {
		return ModelInfo{}, err
	}
	return model, nil
}

// InsertModel registers a new, empty model. The Id field of model is ignored.
func (g *Generator) InsertModel(ctx context.Context, model ModelInfo) error {
	if model.Order < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidOrder, model.Order)
	}
	if _, err := g.stmtAddModel.ExecContext(ctx, model.Name, model.Order); err != nil {
		return fmt.Errorf("could not insert model '%s': %w", model.Name, err)
	}
	g.logger.DebugContext(ctx, "Model created",
		slog.String("model_name", model.Name),
		slog.Int("model_order", model.Order),
	)
	return nil
}

// CreateModel inserts a model and returns it with its assigned Id.
func (g *Generator) CreateModel(ctx context.Context, name string, order int) (ModelInfo, error) {
	if err := g.InsertModel(ctx, ModelInfo{Name: name, Order: order}); err != nil {
		return ModelInfo{}, err
	}
	return g.GetModelInfo(ctx, name)
}
