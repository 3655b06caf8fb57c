package payload

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEchoAdapter_Invoke(t *testing.T) {
	var adapter EchoAdapter
	output, usage, err := adapter.Invoke(context.Background(), []byte("hello"), map[string]interface{}{"model": "test"})
	require.NoError(t, err)
	require.Equal(t, "echo: hello", string(output))
	require.Empty(t, usage.ProviderRequest)
}

func TestEchoAdapter_Deterministic(t *testing.T) {
	var adapter EchoAdapter
	first, _, err := adapter.Invoke(context.Background(), []byte("same input"), nil)
	require.NoError(t, err)
	second, _, err := adapter.Invoke(context.Background(), []byte("same input"), nil)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSandboxError_Error(t *testing.T) {
	err := &SandboxError{Code: ErrComputeTimeExhausted, Message: "exceeded"}
	require.Equal(t, "ERR_COMPUTE_TIME_EXHAUSTED: exceeded", err.Error())
}
