//go:build sqlite

package sailbench

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sailbench/internal/agent"
	"sailbench/internal/eval"
)

func TestClientRunsListsSQLiteRecordsAcrossReportDirs(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	dbPath := filepath.Join(base, "sailbench.db")

	writer, err := New(Options{StoreKind: "sqlite", DBPath: dbPath, ReportsDir: filepath.Join(base, "a")})
	require.NoError(t, err)
	summary, err := writer.Evaluate(ctx, EvaluateRequest{
		Agent:    agent.Naive{},
		Scenario: "simple_static",
		Seeds:    eval.SeedRange(1, 2),
		Horizon:  100,
	})
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader, err := New(Options{StoreKind: "sqlite", DBPath: dbPath, ReportsDir: filepath.Join(base, "b")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reader.Close() })
	runs, err := reader.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].RunID)
	assert.Equal(t, agent.TypeNaive, runs[0].Agent)
	assert.Equal(t, 2, runs[0].Episodes)
}
