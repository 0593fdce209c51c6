package tracker_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"orchestrate/runtime/internal/infrastructure/logger"
	"orchestrate/runtime/internal/orchestrate/matcher"
	"orchestrate/runtime/internal/orchestrate/platform"
	"orchestrate/runtime/internal/orchestrate/tracker"
	"orchestrate/runtime/internal/orchestrate/wrapper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	puts map[string]tracker.Status
}

func newMemoryStore() *memoryStore { return &memoryStore{puts: map[string]tracker.Status{}} }

func (m *memoryStore) Put(ctx context.Context, key string, status tracker.Status) error {
	m.puts[key] = status
	return nil
}

func TestStage_PrefersAWSStageOverNodeEnv(t *testing.T) {
	t.Setenv("AWS_STAGE", "prod")
	t.Setenv("NODE_ENV", "development")

	stage, err := tracker.Stage()
	require.NoError(t, err)
	assert.Equal(t, "prod", stage)
}

func TestStage_FailsWhenNeitherSet(t *testing.T) {
	os.Unsetenv("AWS_STAGE")
	os.Unsetenv("NODE_ENV")

	_, err := tracker.Stage()
	assert.Error(t, err)
}

// TestHandler_WritesStatusAtStagePath drives tracker.Handler through
// wrapper.Wrap exactly as cmd/localgw would, so FetchSecret resolves
// through a real assembled HandlerContext rather than a bare one.
func TestHandler_WritesStatusAtStagePath(t *testing.T) {
	t.Setenv("AWS_STAGE", "staging")
	t.Setenv("FIREBASE_SERVICE_ACCOUNT", "fake-creds")

	store := newMemoryStore()
	handler := wrapper.Wrap(tracker.Handler(store), wrapper.Options{
		Logger:        logger.NewNoOpLogger(),
		SecretFetcher: platform.EnvSecretFetcher{},
		Invoker:       platform.NewLocalInvoker(),
		Matcher:       matcher.New("UNHANDLED_ERROR"),
		FunctionName:  "sequenceTracker",
	})

	event, err := json.Marshal(tracker.Input{
		Status: tracker.Status{CorrelationID: "corr-1", Status: tracker.StatusRunning, Total: 2, Current: 1},
	})
	require.NoError(t, err)

	result, err := handler(context.Background(), event)
	require.NoError(t, err)

	status, ok := result.(tracker.Status)
	require.True(t, ok)
	assert.Equal(t, tracker.StatusRunning, status.Status)

	stored, ok := store.puts["aws-orchestrate/staging/corr-1"]
	require.True(t, ok)
	assert.Equal(t, "corr-1", stored.CorrelationID)
}
