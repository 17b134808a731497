package sailbench

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sailbench/internal/agent"
	"sailbench/internal/eval"
	"sailbench/internal/model"
	"sailbench/internal/scenario"
)

func newTestClient(t *testing.T, opts Options) (*Client, string) {
	t.Helper()
	base := t.TempDir()
	opts.StoreKind = "memory"
	opts.ReportsDir = filepath.Join(base, "reports")
	opts.ExportsDir = filepath.Join(base, "exports")
	client, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, base
}

func TestClientEvaluatePersistsRun(t *testing.T) {
	client, base := newTestClient(t, Options{})
	ctx := context.Background()
	reportPath := filepath.Join(base, "out.json")

	var progress []int
	summary, err := client.Evaluate(ctx, EvaluateRequest{
		Agent:      agent.Naive{},
		Scenario:   "simple_static",
		Seeds:      eval.SeedRange(1, 3),
		Horizon:    100,
		Retain:     eval.RetainOne,
		Progress:   func(done, _ int) { progress = append(progress, done) },
		ReportPath: reportPath,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, []int64{1, 2, 3}, summary.Seeds)
	assert.Equal(t, []int{1, 2, 3}, progress)
	assert.Equal(t, 1.0, summary.Summary.OverallSuccessRate)
	assert.Equal(t, 1.0, summary.Report.Scenarios["simple_static"].SuccessRate)
	assert.Equal(t, 100.0, summary.Report.Scenarios["simple_static"].MeanReward)
	require.Len(t, summary.Trajectories, 1)
	assert.Equal(t, int64(1), summary.Trajectories[0].Seed)

	for _, file := range []string{"config.json", "report.json", filepath.Join("trajectories", "simple_static_000_seed1.csv")} {
		_, err := os.Stat(filepath.Join(summary.ArtifactsDir, file))
		require.NoError(t, err, file)
	}
	_, err = os.Stat(reportPath)
	require.NoError(t, err)

	runs, err := client.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].RunID)
	assert.Equal(t, agent.TypeNaive, runs[0].Agent)
	assert.Equal(t, 3, runs[0].Episodes)

	record, err := client.Run(ctx, RunRequest{Latest: true})
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, record.RunID)
	assert.Equal(t, 100, record.MaxHorizon)
	assert.Equal(t, summary.Summary.Scenarios["simple_static"].MeanSteps, record.Summary.Scenarios["simple_static"].MeanSteps)

	exported, err := client.Export(ctx, ExportRequest{Latest: true})
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, exported.RunID)
	_, err = os.Stat(filepath.Join(exported.Directory, "report.json"))
	require.NoError(t, err)
}

func TestClientRunsReadsStoreAndRunIndex(t *testing.T) {
	client, base := newTestClient(t, Options{})
	ctx := context.Background()
	req := EvaluateRequest{Agent: agent.Naive{}, Scenario: "simple_static", Seeds: eval.SeedRange(1, 2), Horizon: 100}
	first, err := client.Evaluate(ctx, req)
	require.NoError(t, err)
	second, err := client.Evaluate(ctx, req)
	require.NoError(t, err)

	// the store still answers once the run index is gone
	require.NoError(t, os.Remove(filepath.Join(base, "reports", "run_index.json")))
	runs, err := client.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.RunID, runs[0].RunID)
	assert.Equal(t, first.RunID, runs[1].RunID)
	assert.Equal(t, 2, runs[0].Episodes)
	assert.Equal(t, "1,2", runs[0].Seeds)
	assert.Equal(t, []string{"simple_static"}, runs[0].Scenarios)

	limited, err := client.Runs(ctx, RunsRequest{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second.RunID, limited[0].RunID)

	// a fresh memory store falls back to the run index
	third, err := client.Evaluate(ctx, req)
	require.NoError(t, err)
	other, err := New(Options{StoreKind: "memory", ReportsDir: filepath.Join(base, "reports")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = other.Close() })
	runs, err = other.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, third.RunID, runs[0].RunID)
}

func TestClientEvaluateIsReproducible(t *testing.T) {
	client, _ := newTestClient(t, Options{})
	ctx := context.Background()
	req := EvaluateRequest{
		Agent:    agent.NewRandom(3),
		Scenario: "training_1",
		Seeds:    eval.SeedList(5, 6, 7),
		Horizon:  40,
	}
	first, err := client.Evaluate(ctx, req)
	require.NoError(t, err)
	second, err := client.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Summary, second.Summary)

	cmp, err := client.Compare(ctx, first.RunID, second.RunID)
	require.NoError(t, err)
	require.Len(t, cmp.Scenarios, 1)
	assert.Zero(t, cmp.Scenarios[0].SuccessRate)
	assert.Zero(t, cmp.OverallSuccessRate)
}

func TestClientParallelMatchesSequential(t *testing.T) {
	sequential, _ := newTestClient(t, Options{Workers: 1})
	parallel, _ := newTestClient(t, Options{Workers: 4})
	ctx := context.Background()
	req := EvaluateAllRequest{
		Agent:     agent.NewGreedy(),
		Scenarios: "training_2,simple_static",
		Seeds:     eval.SeedRange(10, 6),
		Horizon:   60,
	}
	want, err := sequential.EvaluateAll(ctx, req)
	require.NoError(t, err)
	got, err := parallel.EvaluateAll(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, want.Summary, got.Summary)
	assert.Equal(t, []string{"training_2", "simple_static"}, got.Summary.Order)
}

func TestClientEvaluateAllSelectors(t *testing.T) {
	client, _ := newTestClient(t, Options{})
	ctx := context.Background()

	all, err := client.EvaluateAll(ctx, EvaluateAllRequest{
		Agent:     agent.Naive{},
		Scenarios: scenario.AllScenarios,
		Seeds:     eval.SingleSeed(1),
		Horizon:   30,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"simple_static", "training_1", "training_2", "training_3"}, all.Summary.Order)
	assert.GreaterOrEqual(t, all.Summary.OverallSuccessRate, 0.25)
	assert.LessOrEqual(t, all.Summary.OverallSuccessRate, 1.0)

	_, err = client.EvaluateAll(ctx, EvaluateAllRequest{
		Agent:     agent.Naive{},
		Scenarios: "simple_static,atlantis",
		Seeds:     eval.SingleSeed(1),
	})
	require.ErrorIs(t, err, eval.ErrScenarioLookup)

	runs, err := client.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	assert.Len(t, runs, 1, "failed lookups persist nothing")
}

type brokenAgent struct{}

func (brokenAgent) SelectAction(context.Context, model.Observation) (model.Action, error) {
	return 0, errors.New("sensor offline")
}

func TestClientEvaluateAllFailurePolicies(t *testing.T) {
	client, _ := newTestClient(t, Options{})
	ctx := context.Background()
	req := EvaluateAllRequest{
		Agent:     brokenAgent{},
		AgentName: "broken",
		Scenarios: "simple_static,training_1",
		Seeds:     eval.SingleSeed(1),
		Horizon:   10,
	}

	_, err := client.EvaluateAll(ctx, req)
	var scenarioErr *eval.ScenarioError
	require.ErrorAs(t, err, &scenarioErr)
	assert.Equal(t, "simple_static", scenarioErr.Scenario)

	req.Tolerate = true
	summary, err := client.EvaluateAll(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"simple_static", "training_1"}, summary.Failed)
	assert.Zero(t, summary.Summary.OverallSuccessRate)
	assert.True(t, summary.Report.Scenarios["training_1"].Failed)

	runs, err := client.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "broken", runs[0].Agent)
	assert.Equal(t, summary.Failed, runs[0].Failed)
}

func TestClientRejectsBadRequests(t *testing.T) {
	client, _ := newTestClient(t, Options{})
	ctx := context.Background()

	_, err := client.Evaluate(ctx, EvaluateRequest{Scenario: "simple_static", Seeds: eval.SingleSeed(1)})
	assert.Error(t, err)

	_, err = client.Evaluate(ctx, EvaluateRequest{Agent: agent.Naive{}, Scenario: "atlantis", Seeds: eval.SingleSeed(1)})
	assert.ErrorIs(t, err, eval.ErrScenarioLookup)

	_, err = client.Evaluate(ctx, EvaluateRequest{Agent: agent.Naive{}, Scenario: "simple_static", Seeds: eval.SeedRange(1, 0)})
	assert.ErrorIs(t, err, eval.ErrInvalidSeedSpec)

	_, err = client.Run(ctx, RunRequest{Latest: true})
	assert.Error(t, err)
	_, err = client.Run(ctx, RunRequest{RunID: "a", Latest: true})
	assert.Error(t, err)
	_, err = client.Run(ctx, RunRequest{RunID: "missing"})
	assert.Error(t, err)
}

func TestClientScenarios(t *testing.T) {
	client, _ := newTestClient(t, Options{})
	items := client.Scenarios()
	require.Len(t, items, 4)
	assert.Equal(t, "simple_static", items[0].Name)
	assert.Equal(t, 32, items[0].GridW)
	assert.NotEmpty(t, items[0].Description)
}
