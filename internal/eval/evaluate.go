package eval

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"sailbench/internal/model"
	"sailbench/internal/scenario"
)

// RetainScope selects which episodes keep their step trace.
type RetainScope int

const (
	RetainNone RetainScope = iota
	RetainOne
	RetainAll
)

func ParseRetainScope(value string) (RetainScope, error) {
	switch value {
	case "", "none":
		return RetainNone, nil
	case "one":
		return RetainOne, nil
	case "all", "full_trajectory":
		return RetainAll, nil
	default:
		return RetainNone, fmt.Errorf("unsupported trajectory retention: %s", value)
	}
}

func (r RetainScope) String() string {
	switch r {
	case RetainOne:
		return "one"
	case RetainAll:
		return "all"
	default:
		return "none"
	}
}

// ProgressFunc receives (episodes done, total) after each episode, in seed
// order, from the goroutine that called Evaluate.
type ProgressFunc func(done, total int)

type EvaluateOptions struct {
	Seeds   SeedSpec
	Horizon int
	Retain  RetainScope
	// RetainIndex is the seed position kept when Retain is RetainOne.
	RetainIndex int
	Progress    ProgressFunc
}

func (o EvaluateOptions) retains(idx int) bool {
	switch o.Retain {
	case RetainAll:
		return true
	case RetainOne:
		return idx == o.RetainIndex
	default:
		return false
	}
}

type EvaluationResult struct {
	Summary      model.ScenarioSummary
	Seeds        []int64
	Trajectories []model.Trajectory
}

// Evaluate runs every seed of opts against one scenario and summarizes the
// outcomes. Seed and horizon errors surface before any episode runs.
func (e *Engine) Evaluate(ctx context.Context, agent Agent, desc scenario.Descriptor, opts EvaluateOptions) (EvaluationResult, error) {
	seeds, err := opts.Seeds.Expand()
	if err != nil {
		return EvaluationResult{}, err
	}
	if opts.Horizon < 1 {
		return EvaluationResult{}, fmt.Errorf("%w, got %d", ErrInvalidHorizon, opts.Horizon)
	}
	if opts.Retain == RetainOne && (opts.RetainIndex < 0 || opts.RetainIndex >= len(seeds)) {
		return EvaluationResult{}, fmt.Errorf("retained episode index %d out of range [0,%d)", opts.RetainIndex, len(seeds))
	}

	e.logger.Debug("evaluating scenario", "scenario", desc.Name, "episodes", len(seeds), "horizon", opts.Horizon, "retain", opts.Retain.String())

	var outcomes []model.EpisodeOutcome
	if cloner, ok := agent.(Cloner); ok && e.workers > 1 && len(seeds) > 1 {
		outcomes, err = e.runParallel(ctx, cloner, desc, seeds, opts)
	} else {
		outcomes, err = e.runSequential(ctx, agent, desc, seeds, opts)
	}
	if err != nil {
		return EvaluationResult{}, err
	}

	summary, err := Aggregate(desc.Name, outcomes)
	if err != nil {
		return EvaluationResult{}, err
	}
	result := EvaluationResult{Summary: summary, Seeds: seeds}
	for i, outcome := range outcomes {
		if outcome.Steps == nil {
			continue
		}
		result.Trajectories = append(result.Trajectories, model.Trajectory{
			Scenario: desc.Name,
			Index:    i,
			Seed:     outcome.Seed,
			Steps:    outcome.Steps,
		})
	}
	return result, nil
}

func (e *Engine) runSequential(ctx context.Context, agent Agent, desc scenario.Descriptor, seeds []int64, opts EvaluateOptions) ([]model.EpisodeOutcome, error) {
	outcomes := make([]model.EpisodeOutcome, len(seeds))
	for i, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcome, err := e.runTracked(ctx, agent, desc, seed, opts.Horizon, opts.retains(i))
		if err != nil {
			return nil, err
		}
		outcomes[i] = outcome
		if opts.Progress != nil {
			opts.Progress(i+1, len(seeds))
		}
	}
	return outcomes, nil
}

// runParallel gives every episode its own agent clone. Outcomes land in seed
// order regardless of completion order, and progress only advances over the
// completed prefix.
func (e *Engine) runParallel(ctx context.Context, cloner Cloner, desc scenario.Descriptor, seeds []int64, opts EvaluateOptions) ([]model.EpisodeOutcome, error) {
	outcomes := make([]model.EpisodeOutcome, len(seeds))
	completed := make(chan int, len(seeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	waitErr := make(chan error, 1)
	go func() {
		launched := 0
		for i, seed := range seeds {
			if gctx.Err() != nil {
				break
			}
			launched++
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				outcome, err := e.runTracked(gctx, cloner.Clone(), desc, seed, opts.Horizon, opts.retains(i))
				if err != nil {
					return err
				}
				outcomes[i] = outcome
				completed <- i
				return nil
			})
		}
		err := g.Wait()
		if err == nil && launched < len(seeds) {
			err = ctx.Err()
		}
		waitErr <- err
	}()

	done := make([]bool, len(seeds))
	next := 0
	advance := func(idx int) {
		done[idx] = true
		for next < len(seeds) && done[next] {
			next++
			if opts.Progress != nil {
				opts.Progress(next, len(seeds))
			}
		}
	}
	for {
		select {
		case idx := <-completed:
			advance(idx)
		case err := <-waitErr:
			if err != nil {
				return nil, err
			}
			// every send happened before Wait returned
			for len(completed) > 0 {
				advance(<-completed)
			}
			return outcomes, nil
		}
	}
}

func (e *Engine) runTracked(ctx context.Context, agent Agent, desc scenario.Descriptor, seed int64, horizon int, retain bool) (model.EpisodeOutcome, error) {
	outcome, err := e.RunEpisode(ctx, agent, desc, seed, horizon, retain)
	if err != nil {
		e.metrics.recordFailure(ctx, desc.Name)
		e.logger.Warn("episode failed", "scenario", desc.Name, "seed", seed, "error", err)
		return model.EpisodeOutcome{}, err
	}
	e.metrics.recordEpisode(ctx, desc.Name, outcome)
	e.logger.Debug("episode finished",
		"scenario", desc.Name,
		"seed", seed,
		"steps", outcome.StepCount,
		"reward", outcome.TotalReward,
		"success", outcome.Success,
		"truncated", outcome.Truncated,
	)
	return outcome, nil
}
