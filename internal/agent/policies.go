package agent

import (
	"context"
	"math"
	"math/rand"

	"sailbench/internal/eval"
	"sailbench/internal/model"
	"sailbench/internal/sailing"
)

const (
	TypeNaive  = "naive"
	TypeGreedy = "greedy"
	TypeRandom = "random"
)

// Named is implemented by agents that report a display name for run records.
type Named interface {
	Name() string
}

// Naive always sails north.
type Naive struct{}

func (Naive) Name() string { return TypeNaive }

func (Naive) SelectAction(context.Context, model.Observation) (model.Action, error) {
	return model.ActionNorth, nil
}

func (n Naive) Clone() eval.Agent { return n }

// Greedy picks the heading with the best wind-weighted progress toward the
// goal, judged from the local wind only. When no goal is set it targets the
// top center cell of the grid.
type Greedy struct {
	goalX, goalY float64
	hasGoal      bool
}

func NewGreedy() *Greedy {
	return &Greedy{}
}

func NewGreedyWithGoal(x, y float64) *Greedy {
	return &Greedy{goalX: x, goalY: y, hasGoal: true}
}

func (g *Greedy) Name() string { return TypeGreedy }

func (g *Greedy) SelectAction(_ context.Context, obs model.Observation) (model.Action, error) {
	gx, gy := g.goal(obs)
	dx, dy := gx-obs.X, gy-obs.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return model.ActionStay, nil
	}
	dx, dy = dx/dist, dy/dist

	wind := [2]float64{obs.WindX, obs.WindY}
	speed := math.Hypot(obs.WindX, obs.WindY)
	best := model.ActionNorth
	bestScore := math.Inf(-1)
	for a := model.ActionNorth; a < model.ActionStay; a++ {
		hx, hy := sailing.Heading(a)
		score := sailing.Efficiency([2]float64{hx, hy}, wind) * speed * (hx*dx + hy*dy)
		if score > bestScore {
			best, bestScore = a, score
		}
	}
	return best, nil
}

func (g *Greedy) goal(obs model.Observation) (float64, float64) {
	if g.hasGoal {
		return g.goalX, g.goalY
	}
	return float64(obs.GridW / 2), float64(obs.GridH - 1)
}

func (g *Greedy) Clone() eval.Agent {
	cp := *g
	return &cp
}

// Random draws uniformly over every action. Reset reseeds the generator so
// each episode replays the same action sequence.
type Random struct {
	seed int64
	rng  *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Name() string { return TypeRandom }

func (r *Random) SelectAction(context.Context, model.Observation) (model.Action, error) {
	return model.Action(r.rng.Intn(model.NumActions)), nil
}

func (r *Random) Reset() {
	r.rng = rand.New(rand.NewSource(r.seed))
}

func (r *Random) Clone() eval.Agent {
	return NewRandom(r.seed)
}

// NameOf returns the agent's display name, or fallback when it has none.
func NameOf(a eval.Agent, fallback string) string {
	if named, ok := a.(Named); ok && named.Name() != "" {
		return named.Name()
	}
	return fallback
}
