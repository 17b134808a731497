package eval

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"sailbench/internal/model"
)

type instruments struct {
	episodes metric.Int64Counter
	failures metric.Int64Counter
	steps    metric.Int64Histogram
	reward   metric.Float64Histogram
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	episodes, err := meter.Int64Counter("sailbench.episodes",
		metric.WithDescription("Completed evaluation episodes"))
	if err != nil {
		return nil, fmt.Errorf("create episodes counter: %w", err)
	}
	failures, err := meter.Int64Counter("sailbench.episode.failures",
		metric.WithDescription("Episodes aborted by agent or simulator errors"))
	if err != nil {
		return nil, fmt.Errorf("create failures counter: %w", err)
	}
	steps, err := meter.Int64Histogram("sailbench.episode.steps",
		metric.WithDescription("Steps taken per episode"))
	if err != nil {
		return nil, fmt.Errorf("create steps histogram: %w", err)
	}
	reward, err := meter.Float64Histogram("sailbench.episode.reward",
		metric.WithDescription("Total reward per episode"))
	if err != nil {
		return nil, fmt.Errorf("create reward histogram: %w", err)
	}
	return &instruments{episodes: episodes, failures: failures, steps: steps, reward: reward}, nil
}

func (m *instruments) recordEpisode(ctx context.Context, scenarioName string, outcome model.EpisodeOutcome) {
	attrs := metric.WithAttributes(
		attribute.String("scenario", scenarioName),
		attribute.Bool("success", outcome.Success),
		attribute.Bool("truncated", outcome.Truncated),
	)
	m.episodes.Add(ctx, 1, attrs)
	m.steps.Record(ctx, int64(outcome.StepCount), attrs)
	m.reward.Record(ctx, outcome.TotalReward, attrs)
}

func (m *instruments) recordFailure(ctx context.Context, scenarioName string) {
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("scenario", scenarioName)))
}
