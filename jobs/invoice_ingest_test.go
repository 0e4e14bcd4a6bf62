package jobs

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/invoicing"
	jobmetrics "github.com/ibrahim-bhat/Billflow-updated-sub002/internal/jobs"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

type recordingBatch struct {
	inputs []invoicing.CreateInvoiceInput
	result invoicing.BatchResult
}

func (r *recordingBatch) CreateInvoiceBatch(_ context.Context, inputs []invoicing.CreateInvoiceInput) invoicing.BatchResult {
	r.inputs = inputs
	return r.result
}

func ingestInput(customer int64) invoicing.CreateInvoiceInput {
	amount := decimal.NewFromInt(500)
	return invoicing.CreateInvoiceInput{
		CustomerID:  customer,
		DisplayDate: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		Source:      invoicing.SourceManual,
		Lines: []invoicing.LineInput{{
			ItemName: "Apple",
			VendorID: 3,
			Quantity: decimal.NewFromInt(5),
			Rate:     decimal.NewFromInt(100),
			Amount:   &amount,
		}},
	}
}

func TestInvoiceIngestKeysEachInvoice(t *testing.T) {
	task, batchID, err := NewInvoiceIngestTask([]invoicing.CreateInvoiceInput{ingestInput(1), ingestInput(2)})
	require.NoError(t, err)
	require.NotEmpty(t, batchID)

	var payload InvoiceIngestPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, batchID, payload.BatchID)

	batch := &recordingBatch{result: invoicing.BatchResult{
		Succeeded: 1,
		Failures:  []invoicing.BatchFailure{{Index: 1, Line: 1, Code: shared.CodeOf(shared.ErrOutOfStock), Reason: "out of stock"}},
	}}
	job := NewInvoiceIngestJob(batch, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, batch.inputs, 2)
	for i, in := range batch.inputs {
		assert.Equal(t, invoicing.SourceAI, in.Source)
		assert.Equal(t, IngestKey(batchID, i), in.IdempotencyKey)
		assert.True(t, strings.HasPrefix(in.IdempotencyKey, batchID+":"))
	}
}

func TestInvoiceIngestRejectsBadPayload(t *testing.T) {
	job := NewInvoiceIngestJob(&recordingBatch{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskInvoiceIngest, []byte(`{"invoices":[]}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	_, _, err = NewInvoiceIngestTask(nil)
	assert.Error(t, err)
}

type fakeCleaner struct {
	olderThan time.Duration
}

func (f *fakeCleaner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return 4, nil
}

func TestIdempotencyCleanupUsesRetention(t *testing.T) {
	cleaner := &fakeCleaner{}
	job := &IdempotencyCleanupJob{Store: cleaner, Metrics: jobmetrics.NewMetrics(prometheus.NewRegistry())}
	task, err := NewIdempotencyCleanupTask(72)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 72*time.Hour, cleaner.olderThan)

	_, err = NewIdempotencyCleanupTask(0)
	assert.Error(t, err)
}
