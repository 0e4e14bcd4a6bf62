package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/invoicing"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/ledger"
	jobmetrics "github.com/ibrahim-bhat/Billflow-updated-sub002/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueIngest carries AI invoice batches, which move stock and balances.
	QueueIngest = "ingest"

	// TaskLedgerReconcile walks every party and checks its ledger.
	TaskLedgerReconcile = "ledger:reconcile"
	// TaskLedgerReconcileParty checks a single party after its balance changed.
	TaskLedgerReconcileParty = "ledger:reconcile_party"
	// TaskInvoiceIngest creates invoices extracted by the AI collaborator.
	TaskInvoiceIngest = "invoice:ingest"
	// TaskIdempotencyCleanup drops expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReconcilePayload scopes a reconciliation run. An empty Party covers both
// customers and vendors; a PartyID narrows the run to one party.
type ReconcilePayload struct {
	Party   ledger.Party `json:"party,omitempty"`
	PartyID int64        `json:"party_id,omitempty"`
}

// NewLedgerReconcileTask builds the full reconciliation task.
func NewLedgerReconcileTask() (*asynq.Task, error) {
	body, err := json.Marshal(ReconcilePayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerReconcile, body, asynq.Queue(QueueDefault)), nil
}

// NewReconcilePartyTask builds a single-party reconciliation task.
func NewReconcilePartyTask(party ledger.Party, partyID int64) (*asynq.Task, error) {
	if partyID <= 0 {
		return nil, errors.New("jobs: party id required")
	}
	body, err := json.Marshal(ReconcilePayload{Party: party, PartyID: partyID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerReconcileParty, body, asynq.Queue(QueueDefault)), nil
}

// InvoiceIngestPayload carries one batch of extracted invoices.
type InvoiceIngestPayload struct {
	BatchID  string                         `json:"batch_id"`
	Invoices []invoicing.CreateInvoiceInput `json:"invoices"`
}

// NewInvoiceIngestTask assigns a batch id and builds the ingestion task.
// Retries reuse the batch id so already-created invoices are skipped.
func NewInvoiceIngestTask(invoices []invoicing.CreateInvoiceInput) (*asynq.Task, string, error) {
	if len(invoices) == 0 {
		return nil, "", errors.New("jobs: empty invoice batch")
	}
	batchID := uuid.NewString()
	body, err := json.Marshal(InvoiceIngestPayload{BatchID: batchID, Invoices: invoices})
	if err != nil {
		return nil, "", err
	}
	return asynq.NewTask(TaskInvoiceIngest, body, asynq.Queue(QueueIngest), asynq.TaskID("ingest:"+batchID)), batchID, nil
}

// IngestKey is the idempotency key of the index-th invoice of a batch.
func IngestKey(batchID string, index int) string {
	return batchID + ":" + strconv.Itoa(index)
}

// CleanupPayload sets the idempotency retention in hours.
type CleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask builds the cleanup task.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	if retentionHours <= 0 {
		return nil, fmt.Errorf("jobs: invalid retention %d", retentionHours)
	}
	body, err := json.Marshal(CleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
