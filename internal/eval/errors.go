package eval

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSeedSpec = errors.New("invalid seed specification")
	ErrEmptyResultSet  = errors.New("empty result set")
	ErrScenarioLookup  = errors.New("scenario lookup failed")
	ErrInvalidHorizon  = errors.New("max horizon must be >= 1")
	ErrMalformedAction = errors.New("malformed action")
	ErrAgentPanic      = errors.New("agent panicked")
)

// AgentExecutionError reports an agent failure with enough context to replay
// the episode: rerunning the scenario with Seed reaches the same Step.
type AgentExecutionError struct {
	Scenario string
	Seed     int64
	Step     int
	Err      error
}

func (e *AgentExecutionError) Error() string {
	return fmt.Sprintf("agent execution failed: scenario=%s seed=%d step=%d: %v", e.Scenario, e.Seed, e.Step, e.Err)
}

func (e *AgentExecutionError) Unwrap() error {
	return e.Err
}

// ScenarioError marks the scenario an aborted multi-scenario run stopped on.
type ScenarioError struct {
	Scenario string
	Err      error
}

func (e *ScenarioError) Error() string {
	return fmt.Sprintf("scenario %s: %v", e.Scenario, e.Err)
}

func (e *ScenarioError) Unwrap() error {
	return e.Err
}

// isPrecondition reports errors that must never be downgraded to a failed
// scenario summary.
func isPrecondition(err error) bool {
	return errors.Is(err, ErrInvalidSeedSpec) ||
		errors.Is(err, ErrEmptyResultSet) ||
		errors.Is(err, ErrScenarioLookup) ||
		errors.Is(err, ErrInvalidHorizon)
}
