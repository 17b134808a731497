package eval

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sailbench/internal/model"
	"sailbench/internal/scenario"
)

// scriptedSim ends with success after goalAt steps, with failure after
// failAt steps, or never when both are zero.
type scriptedSim struct {
	seed   int64
	step   int
	goalAt int
	failAt int
}

func (s *scriptedSim) Observe() model.Observation {
	return model.Observation{X: float64(s.step), Y: float64(s.seed), WindField: []float64{float64(s.seed), float64(s.step)}}
}

func (s *scriptedSim) Step(model.Action) (model.StepResult, error) {
	s.step++
	switch {
	case s.goalAt > 0 && s.step == s.goalAt:
		return model.StepResult{Reward: 100, Terminal: true, Success: true}, nil
	case s.failAt > 0 && s.step == s.failAt:
		return model.StepResult{Reward: -1, Terminal: true}, nil
	default:
		return model.StepResult{Reward: 0}, nil
	}
}

type countingFactory struct {
	calls atomic.Int64
}

func (f *countingFactory) build(desc scenario.Descriptor, seed int64) (Simulator, error) {
	f.calls.Add(1)
	switch desc.Name {
	case "goal":
		// seed n reaches the goal on step n
		return &scriptedSim{seed: seed, goalAt: int(seed)}, nil
	case "never":
		return &scriptedSim{seed: seed}, nil
	case "crash":
		return &scriptedSim{seed: seed, failAt: 3}, nil
	case "half":
		// odd seeds succeed on step 2, even seeds never finish
		if seed%2 == 1 {
			return &scriptedSim{seed: seed, goalAt: 2}, nil
		}
		return &scriptedSim{seed: seed}, nil
	default:
		return nil, fmt.Errorf("no simulator for %s", desc.Name)
	}
}

func testDescriptor(name string) scenario.Descriptor {
	return scenario.Descriptor{
		Name:  name,
		GridW: 8,
		GridH: 8,
		Wind: scenario.WindInit{
			BaseDirection: [2]float64{-1, 0},
			BaseSpeed:     3,
		},
	}
}

func newTestEngine(t *testing.T, workers int, timeout time.Duration) (*Engine, *countingFactory) {
	t.Helper()
	registry := scenario.NewRegistry()
	for _, name := range []string{"goal", "never", "crash", "half"} {
		require.NoError(t, registry.Register(testDescriptor(name)))
	}
	factory := &countingFactory{}
	engine, err := NewEngine(Config{
		Factory:       factory.build,
		Registry:      registry,
		Workers:       workers,
		ActionTimeout: timeout,
	})
	require.NoError(t, err)
	return engine, factory
}

type constAgent struct {
	action model.Action
	resets int
}

func (a *constAgent) SelectAction(context.Context, model.Observation) (model.Action, error) {
	return a.action, nil
}

func (a *constAgent) Reset() {
	a.resets++
}

type cloneAgent struct {
	action model.Action
	clones *atomic.Int64
}

func (a cloneAgent) SelectAction(context.Context, model.Observation) (model.Action, error) {
	return a.action, nil
}

func (a cloneAgent) Clone() Agent {
	a.clones.Add(1)
	return a
}

var errAgentBoom = errors.New("boom")

// failingAgent errors on call failOn of each episode.
type failingAgent struct {
	failOn int
	calls  int
}

func (a *failingAgent) SelectAction(context.Context, model.Observation) (model.Action, error) {
	a.calls++
	if a.calls == a.failOn {
		return 0, errAgentBoom
	}
	return model.ActionNorth, nil
}

func (a *failingAgent) Reset() {
	a.calls = 0
}

type slowAgent struct {
	delay time.Duration
}

func (a slowAgent) SelectAction(ctx context.Context, _ model.Observation) (model.Action, error) {
	select {
	case <-time.After(a.delay):
		return model.ActionNorth, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// panicAgent panics on call panicOn of each episode.
type panicAgent struct {
	panicOn int
	calls   int
}

func (a *panicAgent) SelectAction(context.Context, model.Observation) (model.Action, error) {
	a.calls++
	if a.calls == a.panicOn {
		panic("policy bug")
	}
	return model.ActionNorth, nil
}

func (a *panicAgent) Reset() {
	a.calls = 0
}

// stallingAgent blocks until release is closed. Its clones answer at once.
type stallingAgent struct {
	stall   bool
	release <-chan struct{}
	clones  *atomic.Int64
}

func (a *stallingAgent) SelectAction(context.Context, model.Observation) (model.Action, error) {
	if a.stall {
		<-a.release
	}
	return model.ActionNorth, nil
}

func (a *stallingAgent) Clone() Agent {
	a.clones.Add(1)
	return &stallingAgent{release: a.release, clones: a.clones}
}
