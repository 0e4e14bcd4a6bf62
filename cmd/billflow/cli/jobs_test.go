package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/jobs"
)

func TestBuildTask(t *testing.T) {
	task, err := BuildTask(jobs.TaskLedgerReconcile, 0)
	require.NoError(t, err)
	require.Equal(t, jobs.TaskLedgerReconcile, task.Type())

	task, err = BuildTask(jobs.TaskIdempotencyCleanup, 48*time.Hour)
	require.NoError(t, err)
	var payload jobs.CleanupPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, 48, payload.RetentionHours)

	task, err = BuildTask(jobs.TaskIdempotencyCleanup, time.Minute)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, 1, payload.RetentionHours)

	_, err = BuildTask("invoice:ingest", 0)
	require.Error(t, err)
}

func TestNewJobsCLIRequiresAddress(t *testing.T) {
	_, err := NewJobsCLI("", time.Hour)
	require.Error(t, err)
}
