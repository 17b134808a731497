package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"sailbench/internal/model"
)

var trajectoryHeader = []string{
	"step", "action", "reward", "terminal",
	"x", "y", "vx", "vy", "wind_x", "wind_y",
	"next_x", "next_y", "next_vx", "next_vy", "next_wind_x", "next_wind_y",
}

// WriteTrajectoryCSV writes one row per step for playback. The full wind
// field is not included; consumers that need it read the JSON record.
func WriteTrajectoryCSV(w io.Writer, trajectory model.Trajectory) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(trajectoryHeader); err != nil {
		return err
	}
	for _, step := range trajectory.Steps {
		row := []string{
			strconv.Itoa(step.Index),
			strconv.Itoa(int(step.Action)),
			formatFloat(step.Reward),
			strconv.FormatBool(step.Terminal),
		}
		row = append(row, observationColumns(step.Before)...)
		row = append(row, observationColumns(step.After)...)
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteTrajectoryFile(path string, trajectory model.Trajectory) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTrajectoryCSV(file, trajectory); err != nil {
		file.Close()
		return fmt.Errorf("write trajectory %s: %w", path, err)
	}
	return file.Close()
}

// TrajectoryFileName names the playback file for one episode. The seed
// position keeps repeated seeds from sharing a file.
func TrajectoryFileName(t model.Trajectory) string {
	return fmt.Sprintf("%s_%03d_seed%d.csv", t.Scenario, t.Index, t.Seed)
}

func observationColumns(o model.Observation) []string {
	return []string{
		formatFloat(o.X), formatFloat(o.Y),
		formatFloat(o.VX), formatFloat(o.VY),
		formatFloat(o.WindX), formatFloat(o.WindY),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
