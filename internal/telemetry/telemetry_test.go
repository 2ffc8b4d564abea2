package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledIsNoop(t *testing.T) {
	s := Settings{ServiceName: "contentpipe"}
	assert.False(t, s.Enabled())

	shutdown, err := Init(context.Background(), s)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_Enabled(t *testing.T) {
	// Exporters connect lazily, so an unreachable collector is fine here.
	shutdown, err := Init(context.Background(), Settings{
		Endpoint:    "127.0.0.1:1",
		ServiceName: "contentpipe-test",
		Version:     "test",
		Insecure:    true,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Flushing to a dead endpoint with a canceled context may error; it
	// must not hang.
	_ = shutdown(ctx)
}
