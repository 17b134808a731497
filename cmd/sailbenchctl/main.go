package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"sailbench/internal/config"
	"sailbench/internal/stats"
	"sailbench/internal/storage"
	api "sailbench/pkg/sailbench"
)

var version = "dev"

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}
	_ = godotenv.Load()

	switch args[0] {
	case "evaluate":
		return runEvaluate(ctx, args[1:])
	case "scenarios":
		return runScenarios(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "compare":
		return runCompare(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(storage.DefaultStoreKind())
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func runScenarios(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("scenarios", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit scenarios as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := api.New(api.Options{StoreKind: storage.KindMemory})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items := client.Scenarios()
	if *jsonOut {
		type scenarioItem struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			GridW       int    `json:"grid_w"`
			GridH       int    `json:"grid_h"`
		}
		out := make([]scenarioItem, 0, len(items))
		for _, item := range items {
			out = append(out, scenarioItem(item))
		}
		return encodeJSON(out)
	}
	for _, item := range items {
		fmt.Fprintf(stdout, "scenario=%s grid=%dx%d description=%q\n", item.Name, item.GridW, item.GridH, item.Description)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	storeKind := fs.String("store", cfg.Store, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", cfg.DBPath, "sqlite database path")
	reportsDir := fs.String("reports-dir", cfg.ReportsDir, "reports directory")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := api.New(api.Options{StoreKind: *storeKind, DBPath: *dbPath, ReportsDir: *reportsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, api.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		type runsItem struct {
			RunID              string   `json:"run_id"`
			CreatedAtUTC       string   `json:"created_at_utc"`
			Agent              string   `json:"agent"`
			Scenarios          []string `json:"scenarios"`
			Seeds              string   `json:"seeds"`
			Episodes           int      `json:"episodes"`
			OverallSuccessRate float64  `json:"overall_success_rate"`
			Failed             []string `json:"failed,omitempty"`
		}
		out := make([]runsItem, 0, len(items))
		for _, item := range items {
			out = append(out, runsItem(item))
		}
		return encodeJSON(out)
	}
	if len(items) == 0 {
		fmt.Fprintln(stdout, "no runs found")
		return nil
	}
	for _, item := range items {
		fmt.Fprintf(stdout, "run_id=%s created_at=%s agent=%s scenarios=%s seeds=%s episodes=%d overall_success_rate=%.4f failed=%d\n",
			item.RunID,
			item.CreatedAtUTC,
			item.Agent,
			strings.Join(item.Scenarios, ","),
			item.Seeds,
			item.Episodes,
			item.OverallSuccessRate,
			len(item.Failed),
		)
	}
	return nil
}

func runCompare(_ context.Context, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	baseline := fs.String("a", "", "baseline run id or report path")
	candidate := fs.String("b", "", "candidate run id or report path")
	reportsDir := fs.String("reports-dir", cfg.ReportsDir, "reports directory")
	jsonOut := fs.Bool("json", false, "emit comparison as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *baseline == "" || *candidate == "" {
		return errors.New("compare requires -a and -b")
	}

	a, err := readReportRef(*reportsDir, *baseline)
	if err != nil {
		return err
	}
	b, err := readReportRef(*reportsDir, *candidate)
	if err != nil {
		return err
	}
	cmp := stats.CompareReports(a, b)
	if *jsonOut {
		return encodeJSON(cmp)
	}
	for _, d := range cmp.Scenarios {
		if d.Only != "" {
			fmt.Fprintf(stdout, "scenario=%s only_in=%s\n", d.Scenario, d.Only)
			continue
		}
		fmt.Fprintf(stdout, "scenario=%s success_rate_delta=%+.4f mean_reward_delta=%+.4f mean_steps_delta=%+.4f\n",
			d.Scenario, d.SuccessRate, d.MeanReward, d.MeanSteps)
	}
	fmt.Fprintf(stdout, "overall_success_rate_delta=%+.4f improved=%t\n", cmp.OverallSuccessRate, cmp.Improved())
	return nil
}

// readReportRef accepts a report file path or a run id under reportsDir.
func readReportRef(reportsDir, ref string) (stats.Report, error) {
	if strings.HasSuffix(ref, ".json") {
		return stats.ReadReport(ref)
	}
	report, ok, err := stats.ReadRunReport(reportsDir, ref)
	if err != nil {
		return stats.Report{}, err
	}
	if !ok {
		return stats.Report{}, fmt.Errorf("no report for run %s under %s", ref, reportsDir)
	}
	return report, nil
}

func runExport(ctx context.Context, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	reportsDir := fs.String("reports-dir", cfg.ReportsDir, "reports directory")
	outDir := fs.String("out", "exports", "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := api.New(api.Options{StoreKind: storage.KindMemory, ReportsDir: *reportsDir, ExportsDir: *outDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, api.ExportRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported run_id=%s to=%s\n", summary.RunID, filepath.Clean(summary.Directory))
	return nil
}

func encodeJSON(value any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: sailbenchctl <evaluate|scenarios|runs|compare|export> [flags]", msg)
}
