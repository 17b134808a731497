package sailing

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"sailbench/internal/model"
	"sailbench/internal/scenario"
)

const (
	GoalReward = 100.0

	inertia         = 0.3
	boatPerformance = 0.4
	maxSpeed        = 2.0
	goalRadius      = 1.5
)

var ErrEpisodeDone = errors.New("episode already terminated")

// Env is a grid sailing task: the boat starts at the bottom center and must
// reach the top center under a seeded, evolving wind field.
type Env struct {
	desc scenario.Descriptor
	rng  *rand.Rand

	x, y   float64
	vx, vy float64
	goalX  float64
	goalY  float64
	field  []float64
	steps  int
	done   bool
}

func NewEnv(desc scenario.Descriptor, seed int64) (*Env, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	env := &Env{
		desc:  desc,
		rng:   rand.New(rand.NewSource(seed)),
		x:     float64(desc.GridW / 2),
		y:     0,
		goalX: float64(desc.GridW / 2),
		goalY: float64(desc.GridH - 1),
	}
	env.field = initialWindField(desc, env.rng)
	return env, nil
}

func (e *Env) Goal() (float64, float64) {
	return e.goalX, e.goalY
}

func (e *Env) Observe() model.Observation {
	wx, wy := e.windAt(e.x, e.y)
	return model.Observation{
		X:         e.x,
		Y:         e.y,
		VX:        e.vx,
		VY:        e.vy,
		WindX:     wx,
		WindY:     wy,
		GridW:     e.desc.GridW,
		GridH:     e.desc.GridH,
		WindField: append([]float64(nil), e.field...),
	}
}

func (e *Env) Step(action model.Action) (model.StepResult, error) {
	if e.done {
		return model.StepResult{}, ErrEpisodeDone
	}
	if !action.Valid() {
		return model.StepResult{}, fmt.Errorf("invalid action %d", action)
	}

	hx, hy := Heading(action)
	wx, wy := e.windAt(e.x, e.y)
	thrust := 0.0
	if hx != 0 || hy != 0 {
		thrust = Efficiency([2]float64{hx, hy}, [2]float64{wx, wy}) * math.Hypot(wx, wy) * boatPerformance
	}

	e.vx = inertia*e.vx + thrust*hx
	e.vy = inertia*e.vy + thrust*hy
	if speed := math.Hypot(e.vx, e.vy); speed > maxSpeed {
		e.vx *= maxSpeed / speed
		e.vy *= maxSpeed / speed
	}

	e.x, e.vx = clampAxis(e.x+e.vx, e.vx, float64(e.desc.GridW-1))
	e.y, e.vy = clampAxis(e.y+e.vy, e.vy, float64(e.desc.GridH-1))
	e.steps++

	evolveWindField(e.desc, e.field, e.rng)

	if math.Hypot(e.x-e.goalX, e.y-e.goalY) < goalRadius {
		e.done = true
		return model.StepResult{Reward: GoalReward, Terminal: true, Success: true}, nil
	}
	return model.StepResult{}, nil
}

func (e *Env) windAt(x, y float64) (float64, float64) {
	cx := clampInt(int(math.Round(x)), 0, e.desc.GridW-1)
	cy := clampInt(int(math.Round(y)), 0, e.desc.GridH-1)
	idx := 2 * (cy*e.desc.GridW + cx)
	return e.field[idx], e.field[idx+1]
}

// Heading returns the unit vector for an action; ActionStay maps to zero.
// North is +y.
func Heading(action model.Action) (float64, float64) {
	if action == model.ActionStay || !action.Valid() {
		return 0, 0
	}
	theta := float64(action) * math.Pi / 4
	return cleanZero(math.Sin(theta)), cleanZero(math.Cos(theta))
}

// Efficiency scores how well a heading uses the wind, from 0.05 when
// pointing into the wind up to 1.0 on a beam reach.
func Efficiency(heading, wind [2]float64) float64 {
	hn := math.Hypot(heading[0], heading[1])
	wn := math.Hypot(wind[0], wind[1])
	if hn == 0 || wn == 0 {
		return 0
	}
	// angle between the heading and the direction the wind comes from
	cos := -(heading[0]*wind[0] + heading[1]*wind[1]) / (hn * wn)
	cos = math.Max(-1, math.Min(1, cos))
	angle := math.Acos(cos) * 180 / math.Pi

	switch {
	case angle < 45:
		return 0.05
	case angle < 90:
		return 0.5 + 0.5*(angle-45)/45
	case angle <= 135:
		return 1.0
	default:
		return 1.0 - 0.5*(angle-135)/45
	}
}

func clampAxis(pos, vel, upper float64) (float64, float64) {
	if pos < 0 {
		return 0, 0
	}
	if pos > upper {
		return upper, 0
	}
	return pos, vel
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func cleanZero(v float64) float64 {
	if math.Abs(v) < 1e-12 {
		return 0
	}
	return v
}

func (e *Env) Steps() int {
	return e.steps
}
