package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Action is a discrete sailing command. Values 0..7 are the eight compass
// headings clockwise from north; 8 keeps the current heading without thrust.
type Action int

const (
	ActionNorth Action = iota
	ActionNorthEast
	ActionEast
	ActionSouthEast
	ActionSouth
	ActionSouthWest
	ActionWest
	ActionNorthWest
	ActionStay

	NumActions = 9
)

func (a Action) Valid() bool {
	return a >= 0 && int(a) < NumActions
}

// Observation is what an agent sees before choosing an action.
type Observation struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	VX        float64   `json:"vx"`
	VY        float64   `json:"vy"`
	WindX     float64   `json:"wind_x"`
	WindY     float64   `json:"wind_y"`
	GridW     int       `json:"grid_w"`
	GridH     int       `json:"grid_h"`
	WindField []float64 `json:"wind_field,omitempty"`
}

// Clone returns a copy that does not share the wind field backing array.
func (o Observation) Clone() Observation {
	out := o
	if o.WindField != nil {
		out.WindField = append([]float64(nil), o.WindField...)
	}
	return out
}

// StepResult is the simulator's answer to one action. Success is only
// meaningful when Terminal is set.
type StepResult struct {
	Reward   float64 `json:"reward"`
	Terminal bool    `json:"terminal"`
	Success  bool    `json:"success"`
}

type StepRecord struct {
	Index    int         `json:"index"`
	Before   Observation `json:"before"`
	Action   Action      `json:"action"`
	Reward   float64     `json:"reward"`
	After    Observation `json:"after"`
	Terminal bool        `json:"terminal"`
}

type EpisodeOutcome struct {
	Seed        int64        `json:"seed"`
	TotalReward float64      `json:"total_reward"`
	StepCount   int          `json:"step_count"`
	Success     bool         `json:"success"`
	Truncated   bool         `json:"truncated"`
	Steps       []StepRecord `json:"steps,omitempty"`
}

// WithoutSteps returns the outcome stripped of its trajectory.
func (o EpisodeOutcome) WithoutSteps() EpisodeOutcome {
	o.Steps = nil
	return o
}

type ScenarioSummary struct {
	ScenarioName string           `json:"scenario_name"`
	Episodes     int              `json:"episodes"`
	SuccessRate  float64          `json:"success_rate"`
	MeanReward   float64          `json:"mean_reward"`
	StdReward    float64          `json:"std_reward"`
	MeanSteps    float64          `json:"mean_steps"`
	StdSteps     float64          `json:"std_steps"`
	Outcomes     []EpisodeOutcome `json:"outcomes,omitempty"`
	Failed       bool             `json:"failed,omitempty"`
	Error        string           `json:"error,omitempty"`
}

type CrossScenarioSummary struct {
	Order              []string                   `json:"order"`
	Scenarios          map[string]ScenarioSummary `json:"scenarios"`
	OverallSuccessRate float64                    `json:"overall_success_rate"`
}

// Trajectory is the retained step trace of one episode.
type Trajectory struct {
	Scenario string `json:"scenario"`
	// Index is the episode's position in the seed sequence; a seed listed
	// twice yields two trajectories with different indexes.
	Index int          `json:"index"`
	Seed  int64        `json:"seed"`
	Steps []StepRecord `json:"steps"`
}

// EvaluationRecord is the persisted form of one evaluation call.
type EvaluationRecord struct {
	VersionedRecord
	RunID        string               `json:"run_id"`
	AgentName    string               `json:"agent_name"`
	Seeds        []int64              `json:"seeds"`
	MaxHorizon   int                  `json:"max_horizon"`
	CreatedAtUTC string               `json:"created_at_utc"`
	Summary      CrossScenarioSummary `json:"summary"`
}
