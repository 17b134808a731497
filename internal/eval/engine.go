package eval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"sailbench/internal/model"
	"sailbench/internal/scenario"
)

const instrumentationName = "sailbench/internal/eval"

// Agent is the decision-making policy under evaluation. Implementations are
// checked by the agent loader before they reach the engine.
type Agent interface {
	SelectAction(ctx context.Context, obs model.Observation) (model.Action, error)
}

// Resetter is implemented by agents that keep per-episode state.
type Resetter interface {
	Reset()
}

// Cloner is implemented by agents that can hand out independent copies.
// Only cloneable agents are evaluated with more than one worker.
type Cloner interface {
	Clone() Agent
}

// Simulator is one live episode of the environment.
type Simulator interface {
	Observe() model.Observation
	Step(action model.Action) (model.StepResult, error)
}

// SimulatorFactory builds a fresh simulator. Identical descriptor and seed
// must yield identical episodes.
type SimulatorFactory func(desc scenario.Descriptor, seed int64) (Simulator, error)

type Registry interface {
	Lookup(name string) (scenario.Descriptor, error)
	Names() []string
}

type Config struct {
	Factory  SimulatorFactory
	Registry Registry
	Logger   *slog.Logger
	// Workers > 1 runs episodes of one scenario concurrently when the agent
	// implements Cloner.
	Workers int
	// ActionTimeout bounds each SelectAction call; 0 disables the bound. A
	// timed-out call is abandoned, not stopped, and may still be running on
	// the agent. Once a scenario fails on a timeout, later scenarios of the
	// same EvaluateAll call use a fresh Clone when the agent is a Cloner;
	// other agents are reused and must tolerate the overlapping call.
	ActionTimeout time.Duration
	Meter         metric.Meter
	Tracer        trace.Tracer
}

// Engine drives agents through seeded episodes. It holds no evaluation state
// between calls.
type Engine struct {
	factory       SimulatorFactory
	registry      Registry
	logger        *slog.Logger
	workers       int
	actionTimeout time.Duration
	tracer        trace.Tracer
	metrics       *instruments
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Factory == nil {
		return nil, fmt.Errorf("simulator factory is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("scenario registry is required")
	}
	if cfg.ActionTimeout < 0 {
		return nil, fmt.Errorf("action timeout must be >= 0")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	meter := cfg.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(instrumentationName)
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	inst, err := newInstruments(meter)
	if err != nil {
		return nil, err
	}
	return &Engine{
		factory:       cfg.Factory,
		registry:      cfg.Registry,
		logger:        logger,
		workers:       workers,
		actionTimeout: cfg.ActionTimeout,
		tracer:        tracer,
		metrics:       inst,
	}, nil
}

func (e *Engine) Lookup(name string) (scenario.Descriptor, error) {
	desc, err := e.registry.Lookup(name)
	if err != nil {
		return scenario.Descriptor{}, fmt.Errorf("%w: %w", ErrScenarioLookup, err)
	}
	return desc, nil
}
