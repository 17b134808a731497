package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sailbench/internal/model"
)

const (
	runIndexFile     = "run_index.json"
	reportFile       = "report.json"
	configFile       = "config.json"
	trajectoryDir    = "trajectories"
	maxIndexedSeeds  = 8
	seedsEllipsisFmt = "%s,... (%d seeds)"
)

// RunConfig captures the inputs of one evaluation run.
type RunConfig struct {
	RunID         string   `json:"run_id"`
	Agent         string   `json:"agent"`
	Scenarios     []string `json:"scenarios"`
	Seeds         []int64  `json:"seeds"`
	MaxHorizon    int      `json:"max_horizon"`
	Workers       int      `json:"workers"`
	Retain        string   `json:"retain"`
	RetainIndex   int      `json:"retain_index,omitempty"`
	FailurePolicy string   `json:"failure_policy"`
	ActionTimeout string   `json:"action_timeout,omitempty"`
}

type RunArtifacts struct {
	Config       RunConfig
	Report       Report
	Trajectories []model.Trajectory
}

type RunIndexEntry struct {
	RunID              string   `json:"run_id"`
	Agent              string   `json:"agent"`
	Scenarios          []string `json:"scenarios"`
	Seeds              string   `json:"seeds"`
	Episodes           int      `json:"episodes"`
	MaxHorizon         int      `json:"max_horizon"`
	OverallSuccessRate float64  `json:"overall_success_rate"`
	Failed             []string `json:"failed,omitempty"`
	CreatedAtUTC       string   `json:"created_at_utc"`
}

// WriteRunArtifacts lays a run out as <baseDir>/<run_id>/{config.json,
// report.json, trajectories/*.csv} and returns the run directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := WriteReport(filepath.Join(runDir, reportFile), artifacts.Report); err != nil {
		return "", err
	}
	if len(artifacts.Trajectories) > 0 {
		dir := filepath.Join(runDir, trajectoryDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		for _, t := range artifacts.Trajectories {
			if err := WriteTrajectoryFile(filepath.Join(dir, TrajectoryFileName(t)), t); err != nil {
				return "", err
			}
		}
	}
	return runDir, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}
	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func ReadRunReport(baseDir, runID string) (Report, bool, error) {
	path := filepath.Join(baseDir, runID, reportFile)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Report{}, false, nil
		}
		return Report{}, false, err
	}
	report, err := ReadReport(path)
	if err != nil {
		return Report{}, false, err
	}
	return report, true, nil
}

// ExportRunArtifacts copies a run directory, trajectories included, under
// outDir.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if strings.TrimSpace(runID) == "" {
		return "", fmt.Errorf("run id is required")
	}
	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}
	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}
	for _, file := range []string{configFile, reportFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}

	entries, err := os.ReadDir(filepath.Join(src, trajectoryDir))
	if err != nil {
		if os.IsNotExist(err) {
			return dst, nil
		}
		return "", err
	}
	if err := os.MkdirAll(filepath.Join(dst, trajectoryDir), 0o755); err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(src, trajectoryDir, entry.Name()), filepath.Join(dst, trajectoryDir, entry.Name())); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}
	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns entries newest first. Entries sharing a timestamp keep
// the later-appended one first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// FormatSeeds renders a seed list compactly for the run index.
func FormatSeeds(seeds []int64) string {
	parts := make([]string, 0, min(len(seeds), maxIndexedSeeds))
	for i, seed := range seeds {
		if i == maxIndexedSeeds {
			return fmt.Sprintf(seedsEllipsisFmt, strings.Join(parts, ","), len(seeds))
		}
		parts = append(parts, fmt.Sprint(seed))
	}
	return strings.Join(parts, ",")
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
