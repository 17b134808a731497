package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"sailbench/internal/agent"
	"sailbench/internal/eval"
	"sailbench/internal/stats"
	"sailbench/internal/telemetry"
	api "sailbench/pkg/sailbench"
)

func runEvaluate(ctx context.Context, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	agentRef := fs.String("agent", "", "agent spec file (.json|.yaml) or built-in type: naive|greedy|random")
	scenarioSel := fs.String("scenario", "all", "scenario name, comma separated list, or all")
	seedStart := fs.Int64("seed", 0, "first seed")
	seedCount := fs.Int("seeds", 10, "number of consecutive seeds")
	seedList := fs.String("seed-list", "", "explicit comma separated seeds; overrides -seed/-seeds")
	horizon := fs.Int("horizon", cfg.MaxHorizon, "max steps per episode")
	workers := fs.Int("workers", cfg.Workers, "concurrent episodes per scenario for cloneable agents")
	actionTimeout := fs.Duration("action-timeout", cfg.ActionTimeout, "per-action timeout (0 disables)")
	verbose := fs.Bool("verbose", false, "print per-episode progress and debug logs")
	outPath := fs.String("out", "", "also write the flat JSON report to this path")
	trajectory := fs.String("trajectory", "none", "trajectory retention: none|one|all")
	trajectoryIndex := fs.Int("trajectory-index", 0, "seed position retained when -trajectory=one")
	trajectoryOut := fs.String("trajectory-out", "", "directory for trajectory CSV files")
	tolerate := fs.Bool("tolerate", false, "record failing scenarios and continue instead of aborting")
	storeKind := fs.String("store", cfg.Store, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", cfg.DBPath, "sqlite database path")
	reportsDir := fs.String("reports-dir", cfg.ReportsDir, "reports directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *agentRef == "" {
		return errors.New("evaluate requires -agent")
	}

	seeds, err := seedSpecFromFlags(*seedStart, *seedCount, *seedList)
	if err != nil {
		return err
	}
	retain, err := eval.ParseRetainScope(*trajectory)
	if err != nil {
		return err
	}
	if *trajectoryOut != "" && retain == eval.RetainNone {
		return errors.New("-trajectory-out requires -trajectory one or all")
	}

	a, err := agent.Resolve(*agentRef)
	if err != nil {
		return fmt.Errorf("load agent: %w", err)
	}

	logger := cfg.NewLogger(stderr, *verbose)
	shutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return err
	}
	defer func() {
		_ = shutdown(context.WithoutCancel(ctx))
	}()

	client, err := api.New(api.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		ReportsDir:    *reportsDir,
		Workers:       *workers,
		ActionTimeout: *actionTimeout,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	var progress eval.ScenarioProgressFunc
	if *verbose {
		progress = func(name string, done, total int) {
			fmt.Fprintf(stderr, "progress scenario=%s episode=%d/%d\n", name, done, total)
		}
	}

	summary, err := client.EvaluateAll(ctx, api.EvaluateAllRequest{
		Agent:       a,
		AgentName:   agentDisplayName(*agentRef, a),
		Scenarios:   *scenarioSel,
		Seeds:       seeds,
		Horizon:     *horizon,
		Retain:      retain,
		RetainIndex: *trajectoryIndex,
		Tolerate:    *tolerate,
		Progress:    progress,
		ReportPath:  *outPath,
	})
	if err != nil {
		return err
	}

	for _, name := range summary.Summary.Order {
		s := summary.Summary.Scenarios[name]
		if s.Failed {
			fmt.Fprintf(stdout, "scenario=%s failed=true error=%q\n", name, s.Error)
			continue
		}
		fmt.Fprintf(stdout, "scenario=%s episodes=%d success_rate=%.4f mean_reward=%.4f std_reward=%.4f mean_steps=%.2f std_steps=%.2f\n",
			name, s.Episodes, s.SuccessRate, s.MeanReward, s.StdReward, s.MeanSteps, s.StdSteps)
	}
	fmt.Fprintf(stdout, "overall_success_rate=%.4f\n", summary.Summary.OverallSuccessRate)

	if *trajectoryOut != "" {
		if err := os.MkdirAll(*trajectoryOut, 0o755); err != nil {
			return err
		}
		for _, t := range summary.Trajectories {
			path := filepath.Join(*trajectoryOut, stats.TrajectoryFileName(t))
			if err := stats.WriteTrajectoryFile(path, t); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "trajectory scenario=%s seed=%d steps=%d path=%s\n", t.Scenario, t.Seed, len(t.Steps), path)
		}
	}
	fmt.Fprintf(stdout, "run_id=%s artifacts=%s\n", summary.RunID, summary.ArtifactsDir)
	return nil
}

func seedSpecFromFlags(start int64, count int, list string) (eval.SeedSpec, error) {
	if strings.TrimSpace(list) == "" {
		return eval.SeedRange(start, count), nil
	}
	parts := strings.Split(list, ",")
	seeds := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		seed, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return eval.SeedSpec{}, fmt.Errorf("%w: %q is not an integer", eval.ErrInvalidSeedSpec, part)
		}
		seeds = append(seeds, seed)
	}
	return eval.SeedList(seeds...), nil
}

func agentDisplayName(ref string, a eval.Agent) string {
	name := agent.NameOf(a, "agent")
	if filepath.Ext(ref) == "" {
		return name
	}
	return fmt.Sprintf("%s(%s)", name, filepath.Base(ref))
}
