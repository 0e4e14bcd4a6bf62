package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/invoicing"
	jobmetrics "github.com/ibrahim-bhat/Billflow-updated-sub002/internal/jobs"
)

// BatchCreator creates invoices independently of each other.
type BatchCreator interface {
	CreateInvoiceBatch(ctx context.Context, inputs []invoicing.CreateInvoiceInput) invoicing.BatchResult
}

// InvoiceIngestJob turns an AI-extracted batch into invoices.
type InvoiceIngestJob struct {
	Invoices BatchCreator
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewInvoiceIngestJob constructs the job handler.
func NewInvoiceIngestJob(invoices BatchCreator, logger *slog.Logger, metrics *jobmetrics.Metrics) *InvoiceIngestJob {
	return &InvoiceIngestJob{Invoices: invoices, Logger: logger, Metrics: metrics}
}

// Handle creates every invoice of the batch. Each invoice is keyed by
// batch id and position, so a retried task skips invoices already created.
// Per-invoice failures are reported, not retried.
func (j *InvoiceIngestJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Invoices == nil {
		return errors.New("invoice ingest: handler not configured")
	}
	var payload InvoiceIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.BatchID == "" {
		return asynq.SkipRetry
	}
	tracker := j.metrics().Track(TaskInvoiceIngest)
	logger := j.logger().With(slog.String("batch_id", payload.BatchID))

	inputs := make([]invoicing.CreateInvoiceInput, len(payload.Invoices))
	for i, in := range payload.Invoices {
		in.Source = invoicing.SourceAI
		in.IdempotencyKey = IngestKey(payload.BatchID, i)
		inputs[i] = in
	}
	res := j.Invoices.CreateInvoiceBatch(ctx, inputs)

	m := j.metrics()
	m.AddProcessed(TaskInvoiceIngest, "created", res.Succeeded)
	m.AddProcessed(TaskInvoiceIngest, "duplicate", res.Duplicates)
	m.AddProcessed(TaskInvoiceIngest, "failed", len(res.Failures))
	for _, f := range res.Failures {
		logger.Warn("ingested invoice rejected",
			slog.Int("index", f.Index),
			slog.Int("line", f.Line),
			slog.String("code", string(f.Code)),
			slog.String("reason", f.Reason),
		)
	}
	logger.Info("invoice batch ingested",
		slog.Int("submitted", len(inputs)),
		slog.Int("created", res.Succeeded),
		slog.Int("duplicates", res.Duplicates),
		slog.Int("failed", len(res.Failures)),
	)
	if err := ctx.Err(); err != nil {
		return tracker.End(fmt.Errorf("invoice ingest interrupted: %w", err))
	}
	return tracker.End(nil)
}

func (j *InvoiceIngestJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInvoiceIngest))
	}
	return slog.Default().With(slog.String("job", TaskInvoiceIngest))
}

func (j *InvoiceIngestJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
