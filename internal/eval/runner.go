package eval

import (
	"context"
	"fmt"

	"sailbench/internal/model"
	"sailbench/internal/scenario"
)

// RunEpisode plays one seeded episode to termination or horizon exhaustion.
// Only a terminal step flagged as success counts as success; running out of
// horizon is reported as Truncated with Success false.
//
// Cancellation of ctx is not observed mid-episode: agents receive a context
// detached from ctx's cancellation, bounded only by the action timeout.
func (e *Engine) RunEpisode(ctx context.Context, agent Agent, desc scenario.Descriptor, seed int64, horizon int, retain bool) (model.EpisodeOutcome, error) {
	if horizon < 1 {
		return model.EpisodeOutcome{}, fmt.Errorf("%w, got %d", ErrInvalidHorizon, horizon)
	}
	if agent == nil {
		return model.EpisodeOutcome{}, fmt.Errorf("agent is required")
	}

	sim, err := e.factory(desc, seed)
	if err != nil {
		return model.EpisodeOutcome{}, fmt.Errorf("scenario %s seed %d: build simulator: %w", desc.Name, seed, err)
	}
	if resetter, ok := agent.(Resetter); ok {
		resetter.Reset()
	}

	episodeCtx := context.WithoutCancel(ctx)
	outcome := model.EpisodeOutcome{Seed: seed}
	for outcome.StepCount < horizon {
		step := outcome.StepCount
		obs := sim.Observe()
		var before model.Observation
		if retain {
			before = obs.Clone()
		}

		action, err := e.selectAction(episodeCtx, agent, obs)
		if err != nil {
			return model.EpisodeOutcome{}, &AgentExecutionError{Scenario: desc.Name, Seed: seed, Step: step, Err: err}
		}
		if !action.Valid() {
			return model.EpisodeOutcome{}, &AgentExecutionError{
				Scenario: desc.Name,
				Seed:     seed,
				Step:     step,
				Err:      fmt.Errorf("%w: %d", ErrMalformedAction, action),
			}
		}

		result, err := sim.Step(action)
		if err != nil {
			return model.EpisodeOutcome{}, fmt.Errorf("scenario %s seed %d step %d: simulator step: %w", desc.Name, seed, step, err)
		}
		outcome.TotalReward += result.Reward
		outcome.StepCount++
		if retain {
			outcome.Steps = append(outcome.Steps, model.StepRecord{
				Index:    step,
				Before:   before,
				Action:   action,
				Reward:   result.Reward,
				After:    sim.Observe(),
				Terminal: result.Terminal,
			})
		}
		if result.Terminal {
			outcome.Success = result.Success
			return outcome, nil
		}
	}
	outcome.Truncated = true
	return outcome, nil
}

func (e *Engine) selectAction(ctx context.Context, agent Agent, obs model.Observation) (model.Action, error) {
	if e.actionTimeout <= 0 {
		return callAgent(ctx, agent, obs)
	}

	ctx, cancel := context.WithTimeout(ctx, e.actionTimeout)
	defer cancel()

	type reply struct {
		action model.Action
		err    error
	}
	replies := make(chan reply, 1)
	go func() {
		action, err := callAgent(ctx, agent, obs)
		replies <- reply{action: action, err: err}
	}()

	select {
	case r := <-replies:
		return r.action, r.err
	case <-ctx.Done():
		return 0, fmt.Errorf("select action: %w", ctx.Err())
	}
}

// callAgent turns a panic inside SelectAction into an error so it fails the
// episode instead of the process.
func callAgent(ctx context.Context, agent Agent, obs model.Observation) (action model.Action, err error) {
	defer func() {
		if r := recover(); r != nil {
			action, err = 0, fmt.Errorf("%w: %v", ErrAgentPanic, r)
		}
	}()
	return agent.SelectAction(ctx, obs)
}
