package eval

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sailbench/internal/model"
	"sailbench/internal/scenario"
)

// FailurePolicy decides what a multi-scenario run does when one scenario
// fails.
type FailurePolicy int

const (
	// FailurePolicyAbort stops at the first failing scenario and returns a
	// *ScenarioError naming it.
	FailurePolicyAbort FailurePolicy = iota
	// FailurePolicyTolerate records a summary with Failed set and keeps going.
	// Failed scenarios stay in the mapping and count as a 0 success rate.
	FailurePolicyTolerate
)

// ScenarioProgressFunc is the multi-scenario form of ProgressFunc.
type ScenarioProgressFunc func(scenarioName string, done, total int)

type EvaluateAllOptions struct {
	Seeds       SeedSpec
	Horizon     int
	Retain      RetainScope
	RetainIndex int
	Policy      FailurePolicy
	Progress    ScenarioProgressFunc
}

type CrossScenarioResult struct {
	Summary      model.CrossScenarioSummary
	Seeds        []int64
	Trajectories []model.Trajectory
	Failed       []string
}

// EvaluateAll evaluates each named scenario in order. Names are resolved and
// seeds expanded before the first episode runs.
func (e *Engine) EvaluateAll(ctx context.Context, agent Agent, names []string, opts EvaluateAllOptions) (CrossScenarioResult, error) {
	if len(names) == 0 {
		return CrossScenarioResult{}, fmt.Errorf("%w: no scenarios requested", ErrScenarioLookup)
	}
	seeds, err := opts.Seeds.Expand()
	if err != nil {
		return CrossScenarioResult{}, err
	}
	if opts.Horizon < 1 {
		return CrossScenarioResult{}, fmt.Errorf("%w, got %d", ErrInvalidHorizon, opts.Horizon)
	}

	descs := make([]scenario.Descriptor, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return CrossScenarioResult{}, fmt.Errorf("scenario %s listed more than once", name)
		}
		seen[name] = struct{}{}
		desc, err := e.Lookup(name)
		if err != nil {
			return CrossScenarioResult{}, err
		}
		descs = append(descs, desc)
	}

	result := CrossScenarioResult{Seeds: seeds}
	summaries := make(map[string]model.ScenarioSummary, len(descs))
	for _, desc := range descs {
		if err := ctx.Err(); err != nil {
			return CrossScenarioResult{}, err
		}

		scenarioResult, err := e.evaluateScenario(ctx, agent, desc, opts)
		if err != nil {
			if opts.Policy != FailurePolicyTolerate || !tolerable(err) {
				return CrossScenarioResult{}, &ScenarioError{Scenario: desc.Name, Err: err}
			}
			e.logger.Warn("scenario failed, recording sentinel summary", "scenario", desc.Name, "error", err)
			summaries[desc.Name] = model.ScenarioSummary{ScenarioName: desc.Name, Failed: true, Error: err.Error()}
			result.Failed = append(result.Failed, desc.Name)
			if cloner, ok := agent.(Cloner); ok && errors.Is(err, context.DeadlineExceeded) {
				agent = cloner.Clone()
			}
			continue
		}
		summaries[desc.Name] = scenarioResult.Summary
		result.Trajectories = append(result.Trajectories, scenarioResult.Trajectories...)
		e.logger.Info("scenario evaluated",
			"scenario", desc.Name,
			"episodes", scenarioResult.Summary.Episodes,
			"success_rate", scenarioResult.Summary.SuccessRate,
			"mean_reward", scenarioResult.Summary.MeanReward,
			"mean_steps", scenarioResult.Summary.MeanSteps,
		)
	}

	order := make([]string, len(descs))
	for i, desc := range descs {
		order[i] = desc.Name
	}
	result.Summary, err = Combine(order, summaries)
	if err != nil {
		return CrossScenarioResult{}, err
	}
	return result, nil
}

func (e *Engine) evaluateScenario(ctx context.Context, agent Agent, desc scenario.Descriptor, opts EvaluateAllOptions) (EvaluationResult, error) {
	ctx, span := e.tracer.Start(ctx, "eval.scenario", trace.WithAttributes(
		attribute.String("scenario", desc.Name),
		attribute.Int("horizon", opts.Horizon),
	))
	defer span.End()

	var progress ProgressFunc
	if opts.Progress != nil {
		progress = func(done, total int) { opts.Progress(desc.Name, done, total) }
	}
	res, err := e.Evaluate(ctx, agent, desc, EvaluateOptions{
		Seeds:       opts.Seeds,
		Horizon:     opts.Horizon,
		Retain:      opts.Retain,
		RetainIndex: opts.RetainIndex,
		Progress:    progress,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scenario evaluation failed")
		return EvaluationResult{}, err
	}
	span.SetAttributes(
		attribute.Float64("success_rate", res.Summary.SuccessRate),
		attribute.Float64("mean_reward", res.Summary.MeanReward),
	)
	return res, nil
}

func tolerable(err error) bool {
	if isPrecondition(err) {
		return false
	}
	var agentErr *AgentExecutionError
	if errors.As(err, &agentErr) {
		return true
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
