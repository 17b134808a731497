package eval

import (
	"fmt"

	"sailbench/internal/model"
	"sailbench/internal/stats"
)

// Aggregate summarizes one scenario's episodes. Standard deviations are
// population (ddof=0). Trajectories are not copied into the summary.
func Aggregate(scenarioName string, outcomes []model.EpisodeOutcome) (model.ScenarioSummary, error) {
	if len(outcomes) == 0 {
		return model.ScenarioSummary{}, fmt.Errorf("%w: scenario %s has no episodes", ErrEmptyResultSet, scenarioName)
	}

	rewards := make([]float64, len(outcomes))
	steps := make([]float64, len(outcomes))
	retained := make([]model.EpisodeOutcome, len(outcomes))
	successes := 0
	for i, outcome := range outcomes {
		rewards[i] = outcome.TotalReward
		steps[i] = float64(outcome.StepCount)
		retained[i] = outcome.WithoutSteps()
		if outcome.Success {
			successes++
		}
	}

	summary := model.ScenarioSummary{
		ScenarioName: scenarioName,
		Episodes:     len(outcomes),
		SuccessRate:  float64(successes) / float64(len(outcomes)),
		Outcomes:     retained,
	}
	// Mean and Std only fail on empty input, which is excluded above.
	summary.MeanReward, _ = stats.Mean(rewards)
	summary.StdReward, _ = stats.Std(rewards)
	summary.MeanSteps, _ = stats.Mean(steps)
	summary.StdSteps, _ = stats.Std(steps)
	return summary, nil
}

// Combine builds the cross-scenario summary. The overall success rate is the
// unweighted mean of per-scenario rates; failed scenarios count as 0.
func Combine(order []string, summaries map[string]model.ScenarioSummary) (model.CrossScenarioSummary, error) {
	if len(order) == 0 {
		return model.CrossScenarioSummary{}, fmt.Errorf("%w: no scenarios evaluated", ErrEmptyResultSet)
	}
	cross := model.CrossScenarioSummary{
		Order:     append([]string(nil), order...),
		Scenarios: make(map[string]model.ScenarioSummary, len(order)),
	}
	rates := make([]float64, 0, len(order))
	for _, name := range order {
		summary, ok := summaries[name]
		if !ok {
			return model.CrossScenarioSummary{}, fmt.Errorf("missing summary for scenario %s", name)
		}
		cross.Scenarios[name] = summary
		if summary.Failed {
			rates = append(rates, 0)
			continue
		}
		rates = append(rates, summary.SuccessRate)
	}
	cross.OverallSuccessRate, _ = stats.Mean(rates)
	return cross, nil
}
