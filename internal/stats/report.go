package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"sailbench/internal/model"
)

const overallKey = "overall_success_rate"

type ScenarioReport struct {
	SuccessRate float64 `json:"success_rate"`
	MeanReward  float64 `json:"mean_reward"`
	StdReward   float64 `json:"std_reward"`
	MeanSteps   float64 `json:"mean_steps"`
	StdSteps    float64 `json:"std_steps"`
	Episodes    int     `json:"episodes,omitempty"`
	Failed      bool    `json:"failed,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// Report is the persisted result of an evaluation. On disk it is a flat
// object keyed by scenario name with one extra overall_success_rate key.
type Report struct {
	Order              []string
	Scenarios          map[string]ScenarioReport
	OverallSuccessRate float64
}

func BuildReport(summary model.CrossScenarioSummary) (Report, error) {
	report := Report{
		Order:              append([]string(nil), summary.Order...),
		Scenarios:          make(map[string]ScenarioReport, len(summary.Order)),
		OverallSuccessRate: summary.OverallSuccessRate,
	}
	for _, name := range summary.Order {
		if name == overallKey {
			return Report{}, fmt.Errorf("scenario name %q collides with report key", name)
		}
		s, ok := summary.Scenarios[name]
		if !ok {
			return Report{}, fmt.Errorf("summary missing scenario %s", name)
		}
		report.Scenarios[name] = ScenarioReport{
			SuccessRate: s.SuccessRate,
			MeanReward:  s.MeanReward,
			StdReward:   s.StdReward,
			MeanSteps:   s.MeanSteps,
			StdSteps:    s.StdSteps,
			Episodes:    s.Episodes,
			Failed:      s.Failed,
			Error:       s.Error,
		}
	}
	return report, nil
}

func (r Report) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Scenarios)+1)
	for name, s := range r.Scenarios {
		flat[name] = s
	}
	flat[overallKey] = r.OverallSuccessRate
	return json.Marshal(flat)
}

func (r *Report) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	out := Report{Scenarios: make(map[string]ScenarioReport, len(flat))}
	for key, raw := range flat {
		if key == overallKey {
			if err := json.Unmarshal(raw, &out.OverallSuccessRate); err != nil {
				return fmt.Errorf("decode %s: %w", overallKey, err)
			}
			continue
		}
		var s ScenarioReport
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("decode scenario %s: %w", key, err)
		}
		out.Scenarios[key] = s
		out.Order = append(out.Order, key)
	}
	if _, ok := flat[overallKey]; !ok {
		return fmt.Errorf("report missing %s", overallKey)
	}
	sort.Strings(out.Order)
	*r = out
	return nil
}

func WriteReport(path string, report Report) error {
	return writeJSON(path, report)
}

func ReadReport(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, err
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return Report{}, fmt.Errorf("decode report %s: %w", path, err)
	}
	return report, nil
}

// ScenarioDelta is candidate minus baseline for one scenario. Only is set to
// "baseline" or "candidate" when the scenario appears in a single report.
type ScenarioDelta struct {
	Scenario    string  `json:"scenario"`
	SuccessRate float64 `json:"success_rate_delta"`
	MeanReward  float64 `json:"mean_reward_delta"`
	MeanSteps   float64 `json:"mean_steps_delta"`
	Only        string  `json:"only,omitempty"`
}

type Comparison struct {
	Scenarios          []ScenarioDelta `json:"scenarios"`
	OverallSuccessRate float64         `json:"overall_success_rate_delta"`
}

func CompareReports(baseline, candidate Report) Comparison {
	names := make(map[string]struct{}, len(baseline.Scenarios)+len(candidate.Scenarios))
	for name := range baseline.Scenarios {
		names[name] = struct{}{}
	}
	for name := range candidate.Scenarios {
		names[name] = struct{}{}
	}
	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	cmp := Comparison{
		Scenarios:          make([]ScenarioDelta, 0, len(ordered)),
		OverallSuccessRate: candidate.OverallSuccessRate - baseline.OverallSuccessRate,
	}
	for _, name := range ordered {
		a, inA := baseline.Scenarios[name]
		b, inB := candidate.Scenarios[name]
		delta := ScenarioDelta{Scenario: name}
		switch {
		case !inB:
			delta.Only = "baseline"
		case !inA:
			delta.Only = "candidate"
		default:
			delta.SuccessRate = b.SuccessRate - a.SuccessRate
			delta.MeanReward = b.MeanReward - a.MeanReward
			delta.MeanSteps = b.MeanSteps - a.MeanSteps
		}
		cmp.Scenarios = append(cmp.Scenarios, delta)
	}
	return cmp
}

// Improved reports whether the candidate did at least as well on every shared
// scenario and strictly better overall.
func (c Comparison) Improved() bool {
	for _, d := range c.Scenarios {
		if d.Only == "" && d.SuccessRate < -1e-12 {
			return false
		}
	}
	return c.OverallSuccessRate > 1e-12
}
