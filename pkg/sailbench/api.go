package sailbench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sailbench/internal/agent"
	"sailbench/internal/eval"
	"sailbench/internal/model"
	"sailbench/internal/sailing"
	"sailbench/internal/scenario"
	"sailbench/internal/stats"
	"sailbench/internal/storage"
)

const (
	defaultReportsDir = "reports"
	defaultExportsDir = "exports"
	defaultDBPath     = "sailbench.db"
	defaultHorizon    = 200

	// Fixed width so run index timestamps sort as strings.
	createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

type Options struct {
	StoreKind     string
	DBPath        string
	ReportsDir    string
	ExportsDir    string
	Workers       int
	ActionTimeout time.Duration
	Logger        *slog.Logger
	// Registry defaults to the built-in presets.
	Registry *scenario.Registry
	// Factory defaults to the reference sailing simulator.
	Factory eval.SimulatorFactory
}

type Client struct {
	store    storage.Store
	engine   *eval.Engine
	registry *scenario.Registry
	logger   *slog.Logger

	reportsDir    string
	exportsDir    string
	workers       int
	actionTimeout time.Duration

	initMu      sync.Mutex
	initialized bool
}

type EvaluateRequest struct {
	Agent eval.Agent
	// AgentName is recorded with the run; defaults to the agent's own name.
	AgentName   string
	Scenario    string
	Seeds       eval.SeedSpec
	Horizon     int
	Retain      eval.RetainScope
	RetainIndex int
	Progress    eval.ProgressFunc
	// ReportPath receives an extra copy of the flat report when set.
	ReportPath string
}

type EvaluateAllRequest struct {
	Agent     eval.Agent
	AgentName string
	// Scenarios is a selector: "all", one name, or a comma separated list.
	Scenarios   string
	Seeds       eval.SeedSpec
	Horizon     int
	Retain      eval.RetainScope
	RetainIndex int
	Tolerate    bool
	Progress    eval.ScenarioProgressFunc
	ReportPath  string
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Seeds        []int64
	Summary      model.CrossScenarioSummary
	Report       stats.Report
	Trajectories []model.Trajectory
	Failed       []string
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID              string
	CreatedAtUTC       string
	Agent              string
	Scenarios          []string
	Seeds              string
	Episodes           int
	OverallSuccessRate float64
	Failed             []string
}

type RunRequest struct {
	RunID  string
	Latest bool
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type ScenarioItem struct {
	Name        string
	Description string
	GridW       int
	GridH       int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	reportsDir := opts.ReportsDir
	if reportsDir == "" {
		reportsDir = defaultReportsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	registry := opts.Registry
	if registry == nil {
		registry = scenario.Default()
	}
	factory := opts.Factory
	if factory == nil {
		factory = SailingFactory
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	engine, err := eval.NewEngine(eval.Config{
		Factory:       factory,
		Registry:      registry,
		Logger:        logger,
		Workers:       opts.Workers,
		ActionTimeout: opts.ActionTimeout,
	})
	if err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}

	return &Client{
		store:         store,
		engine:        engine,
		registry:      registry,
		logger:        logger,
		reportsDir:    reportsDir,
		exportsDir:    exportsDir,
		workers:       max(opts.Workers, 1),
		actionTimeout: opts.ActionTimeout,
	}, nil
}

// SailingFactory builds the reference sailing simulator.
func SailingFactory(desc scenario.Descriptor, seed int64) (eval.Simulator, error) {
	env, err := sailing.NewEnv(desc, seed)
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.initialized = true
	return nil
}

// Evaluate runs one scenario and persists the result as a single-scenario run.
func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) (RunSummary, error) {
	if req.Agent == nil {
		return RunSummary{}, errors.New("agent is required")
	}
	if req.Horizon == 0 {
		req.Horizon = defaultHorizon
	}
	desc, err := c.engine.Lookup(req.Scenario)
	if err != nil {
		return RunSummary{}, err
	}
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	res, err := c.engine.Evaluate(ctx, req.Agent, desc, eval.EvaluateOptions{
		Seeds:       req.Seeds,
		Horizon:     req.Horizon,
		Retain:      req.Retain,
		RetainIndex: req.RetainIndex,
		Progress:    req.Progress,
	})
	if err != nil {
		return RunSummary{}, err
	}
	cross, err := eval.Combine([]string{desc.Name}, map[string]model.ScenarioSummary{desc.Name: res.Summary})
	if err != nil {
		return RunSummary{}, err
	}

	return c.persist(ctx, runInput{
		agentName:    agentName(req.Agent, req.AgentName),
		seeds:        res.Seeds,
		horizon:      req.Horizon,
		retain:       req.Retain,
		retainIndex:  req.RetainIndex,
		policy:       "abort",
		summary:      cross,
		trajectories: res.Trajectories,
		reportPath:   req.ReportPath,
	})
}

// EvaluateAll runs every scenario the selector names, in selector order.
func (c *Client) EvaluateAll(ctx context.Context, req EvaluateAllRequest) (RunSummary, error) {
	if req.Agent == nil {
		return RunSummary{}, errors.New("agent is required")
	}
	if req.Horizon == 0 {
		req.Horizon = defaultHorizon
	}
	names, err := c.registry.Resolve(req.Scenarios)
	if err != nil {
		return RunSummary{}, fmt.Errorf("%w: %w", eval.ErrScenarioLookup, err)
	}
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	policy, policyName := eval.FailurePolicyAbort, "abort"
	if req.Tolerate {
		policy, policyName = eval.FailurePolicyTolerate, "tolerate"
	}
	res, err := c.engine.EvaluateAll(ctx, req.Agent, names, eval.EvaluateAllOptions{
		Seeds:       req.Seeds,
		Horizon:     req.Horizon,
		Retain:      req.Retain,
		RetainIndex: req.RetainIndex,
		Policy:      policy,
		Progress:    req.Progress,
	})
	if err != nil {
		return RunSummary{}, err
	}

	return c.persist(ctx, runInput{
		agentName:    agentName(req.Agent, req.AgentName),
		seeds:        res.Seeds,
		horizon:      req.Horizon,
		retain:       req.Retain,
		retainIndex:  req.RetainIndex,
		policy:       policyName,
		summary:      res.Summary,
		trajectories: res.Trajectories,
		failed:       res.Failed,
		reportPath:   req.ReportPath,
	})
}

type runInput struct {
	agentName    string
	seeds        []int64
	horizon      int
	retain       eval.RetainScope
	retainIndex  int
	policy       string
	summary      model.CrossScenarioSummary
	trajectories []model.Trajectory
	failed       []string
	reportPath   string
}

func (c *Client) persist(ctx context.Context, in runInput) (RunSummary, error) {
	runID := uuid.NewString()
	now := time.Now().UTC()

	report, err := stats.BuildReport(in.summary)
	if err != nil {
		return RunSummary{}, err
	}

	record := storage.Stamp(model.EvaluationRecord{
		RunID:        runID,
		AgentName:    in.agentName,
		Seeds:        in.seeds,
		MaxHorizon:   in.horizon,
		CreatedAtUTC: now.Format(createdAtLayout),
		Summary:      in.summary,
	})
	if err := c.store.SaveEvaluation(ctx, record); err != nil {
		return RunSummary{}, fmt.Errorf("save evaluation %s: %w", runID, err)
	}

	runDir, err := stats.WriteRunArtifacts(c.reportsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:         runID,
			Agent:         in.agentName,
			Scenarios:     in.summary.Order,
			Seeds:         in.seeds,
			MaxHorizon:    in.horizon,
			Workers:       c.workers,
			Retain:        in.retain.String(),
			RetainIndex:   in.retainIndex,
			FailurePolicy: in.policy,
			ActionTimeout: formatTimeout(c.actionTimeout),
		},
		Report:       report,
		Trajectories: in.trajectories,
	})
	if err != nil {
		return RunSummary{}, err
	}

	episodes := 0
	for _, name := range in.summary.Order {
		episodes += in.summary.Scenarios[name].Episodes
	}
	if err := stats.AppendRunIndex(c.reportsDir, stats.RunIndexEntry{
		RunID:              runID,
		Agent:              in.agentName,
		Scenarios:          in.summary.Order,
		Seeds:              stats.FormatSeeds(in.seeds),
		Episodes:           episodes,
		MaxHorizon:         in.horizon,
		OverallSuccessRate: in.summary.OverallSuccessRate,
		Failed:             in.failed,
		CreatedAtUTC:       record.CreatedAtUTC,
	}); err != nil {
		return RunSummary{}, err
	}

	if in.reportPath != "" {
		if err := stats.WriteReport(in.reportPath, report); err != nil {
			return RunSummary{}, fmt.Errorf("write report %s: %w", in.reportPath, err)
		}
	}

	c.logger.Info("evaluation persisted",
		"run_id", runID,
		"agent", in.agentName,
		"scenarios", len(in.summary.Order),
		"overall_success_rate", in.summary.OverallSuccessRate,
		"artifacts", runDir,
	)
	return RunSummary{
		RunID:        runID,
		ArtifactsDir: runDir,
		Seeds:        in.seeds,
		Summary:      in.summary,
		Report:       report,
		Trajectories: in.trajectories,
		Failed:       in.failed,
	}, nil
}

// Runs lists runs newest first. Records from the store come first; the run
// index under the reports directory fills in runs the store does not hold,
// such as those written by another process against a memory store.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	records, err := c.store.ListEvaluations(ctx, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	entries, err := stats.ListRunIndex(c.reportsDir)
	if err != nil {
		return nil, err
	}

	out := make([]RunItem, 0, len(records)+len(entries))
	seen := make(map[string]struct{}, len(records))
	for _, record := range records {
		seen[record.RunID] = struct{}{}
		out = append(out, runItemFromRecord(record))
	}
	for _, e := range entries {
		if _, ok := seen[e.RunID]; ok {
			continue
		}
		out = append(out, RunItem{
			RunID:              e.RunID,
			CreatedAtUTC:       e.CreatedAtUTC,
			Agent:              e.Agent,
			Scenarios:          e.Scenarios,
			Seeds:              e.Seeds,
			Episodes:           e.Episodes,
			OverallSuccessRate: e.OverallSuccessRate,
			Failed:             e.Failed,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAtUTC > out[j].CreatedAtUTC
	})
	if len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

func runItemFromRecord(record model.EvaluationRecord) RunItem {
	item := RunItem{
		RunID:              record.RunID,
		CreatedAtUTC:       record.CreatedAtUTC,
		Agent:              record.AgentName,
		Scenarios:          record.Summary.Order,
		Seeds:              stats.FormatSeeds(record.Seeds),
		OverallSuccessRate: record.Summary.OverallSuccessRate,
	}
	for _, name := range record.Summary.Order {
		summary := record.Summary.Scenarios[name]
		item.Episodes += summary.Episodes
		if summary.Failed {
			item.Failed = append(item.Failed, name)
		}
	}
	return item
}

// Run loads a persisted evaluation record from the store.
func (c *Client) Run(ctx context.Context, req RunRequest) (model.EvaluationRecord, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return model.EvaluationRecord{}, err
	}
	if err := c.Init(ctx); err != nil {
		return model.EvaluationRecord{}, err
	}
	record, ok, err := c.store.GetEvaluation(ctx, runID)
	if err != nil {
		return model.EvaluationRecord{}, err
	}
	if !ok {
		return model.EvaluationRecord{}, fmt.Errorf("run not found in store: %s", runID)
	}
	return record, nil
}

// Report reads the flat report written for a run.
func (c *Client) Report(_ context.Context, runID string) (stats.Report, error) {
	report, ok, err := stats.ReadRunReport(c.reportsDir, runID)
	if err != nil {
		return stats.Report{}, err
	}
	if !ok {
		return stats.Report{}, fmt.Errorf("report not found for run: %s", runID)
	}
	return report, nil
}

func (c *Client) Compare(ctx context.Context, baselineRunID, candidateRunID string) (stats.Comparison, error) {
	baseline, err := c.Report(ctx, baselineRunID)
	if err != nil {
		return stats.Comparison{}, err
	}
	candidate, err := c.Report(ctx, candidateRunID)
	if err != nil {
		return stats.Comparison{}, err
	}
	return stats.CompareReports(baseline, candidate), nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	exportedDir, err := stats.ExportRunArtifacts(c.reportsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) Scenarios() []ScenarioItem {
	names := c.registry.Names()
	out := make([]ScenarioItem, 0, len(names))
	for _, name := range names {
		desc, err := c.registry.Lookup(name)
		if err != nil {
			continue
		}
		out = append(out, ScenarioItem{
			Name:        desc.Name,
			Description: desc.Description,
			GridW:       desc.GridW,
			GridH:       desc.GridH,
		})
	}
	return out
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}
	entries, err := stats.ListRunIndex(c.reportsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func agentName(a eval.Agent, override string) string {
	if override != "" {
		return override
	}
	return agent.NameOf(a, "agent")
}

func formatTimeout(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return d.String()
}
