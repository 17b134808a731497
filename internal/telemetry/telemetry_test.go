package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), "", "sailbench", "test", false)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	require.NoError(t, shutdown(context.Background()))
	require.NotNil(t, Meter("sailbench/test"))
	require.NotNil(t, Tracer("sailbench/test"))
}

func TestInitWithEndpointBuildsProviders(t *testing.T) {
	// exporters connect lazily, so an unreachable endpoint still initializes
	shutdown, err := Init(context.Background(), "127.0.0.1:1", "sailbench", "test", true)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
