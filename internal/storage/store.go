package storage

import (
	"context"

	"sailbench/internal/model"
)

// Store persists evaluation records keyed by run id.
type Store interface {
	Init(ctx context.Context) error
	SaveEvaluation(ctx context.Context, record model.EvaluationRecord) error
	GetEvaluation(ctx context.Context, runID string) (model.EvaluationRecord, bool, error)
	// ListEvaluations returns records newest first; limit <= 0 returns all.
	ListEvaluations(ctx context.Context, limit int) ([]model.EvaluationRecord, error)
}
