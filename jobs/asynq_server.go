package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/invoicing"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/ledger"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/httpx"
)

// queueWeights favours ingest batches over housekeeping.
var queueWeights = map[string]int{
	QueueIngest:  3,
	QueueDefault: 1,
}

// TaskHandler binds a task type to its handler.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration schedules a prepared task on a cron expression.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects what the worker needs to start.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	// Location evaluates cron specs; defaults to UTC.
	Location        *time.Location
	ShutdownTimeout time.Duration
	Handlers        []TaskHandler
	Cron            []CronRegistration
}

// Worker runs task handlers and, when cron entries exist, the scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// NewWorker builds a Worker. Handlers or cron entries with missing fields are skipped.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type != "" && h.Handler != nil {
			mux.HandleFunc(h.Type, h.Handler)
		}
	}

	w := &Worker{mux: mux, logger: logger}
	w.server = asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency:     cfg.Concurrency,
		Queues:          queueWeights,
		ShutdownTimeout: cfg.ShutdownTimeout,
		ErrorHandler:    asynq.ErrorHandlerFunc(w.taskFailed),
	})

	if len(cfg.Cron) == 0 {
		return w, nil
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	w.scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: loc})
	for _, entry := range cfg.Cron {
		if entry.Spec == "" || entry.Task == nil {
			continue
		}
		id, err := w.scheduler.Register(entry.Spec, entry.Task, entry.Options...)
		if err != nil {
			return nil, err
		}
		logger.Info("cron registered", slog.String("task", entry.Task.Type()), slog.String("spec", entry.Spec), slog.String("id", id))
	}
	return w, nil
}

func (w *Worker) taskFailed(ctx context.Context, task *asynq.Task, err error) {
	level := slog.LevelWarn
	if errors.Is(err, asynq.SkipRetry) {
		level = slog.LevelError
	}
	w.logger.Log(ctx, level, "task failed",
		slog.String("task", task.Type()), slog.Bool("retry", !errors.Is(err, asynq.SkipRetry)), slog.Any("error", err))
}

// Run processes tasks until ctx is cancelled or the server stops.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
		defer w.scheduler.Shutdown()
	}
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	<-ctx.Done()
	w.server.Shutdown()
	return ctx.Err()
}

// Client enqueues billflow tasks.
type Client struct {
	client *asynq.Client
}

// NewClient constructs a Client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// EnqueueInvoiceIngest queues an AI-extracted batch and returns its id.
func (c *Client) EnqueueInvoiceIngest(ctx context.Context, invoices []invoicing.CreateInvoiceInput) (string, error) {
	task, batchID, err := NewInvoiceIngestTask(invoices)
	if err != nil {
		return "", err
	}
	if _, err := c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		return "", err
	}
	return batchID, nil
}

// EnqueueReconcileParty queues a single-party check. Bursts of changes to
// the same party collapse into one task while it is pending.
func (c *Client) EnqueueReconcileParty(ctx context.Context, party ledger.Party, partyID int64) error {
	task, err := NewReconcilePartyTask(party, partyID)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Unique(time.Minute), asynq.MaxRetry(2))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// Close releases the redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// IngestEnqueuer queues AI-extracted invoice batches.
type IngestEnqueuer interface {
	EnqueueInvoiceIngest(ctx context.Context, invoices []invoicing.CreateInvoiceInput) (string, error)
}

// QueueInspector reports queue depth. *asynq.Inspector satisfies it.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Handler serves /jobs: queue health and AI batch ingestion.
type Handler struct {
	inspector QueueInspector
	ingest    IngestEnqueuer
	logger    *slog.Logger
}

// NewHandler builds a Handler. A nil ingest enqueuer disables the ingestion route.
func NewHandler(inspector QueueInspector, ingest IngestEnqueuer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, ingest: ingest, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	if h.ingest != nil {
		r.Post("/ingest", h.enqueueIngest)
	}
}

const maxIngestBatch = 200

func (h *Handler) enqueueIngest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Invoices []invoicing.CreateInvoiceInput `json:"invoices"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if len(body.Invoices) == 0 || len(body.Invoices) > maxIngestBatch {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Batch", "batch must hold 1.."+strconv.Itoa(maxIngestBatch)+" invoices")
		return
	}
	batchID, err := h.ingest.EnqueueInvoiceIngest(r.Context(), body.Invoices)
	if err != nil {
		h.logger.Error("enqueue invoice ingest", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"batch_id": batchID, "invoices": len(body.Invoices)})
}

type queueHealth struct {
	Queue   string `json:"queue"`
	Pending int    `json:"pending"`
	Retry   int    `json:"retry"`
	Paused  bool   `json:"paused,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	queues := make([]queueHealth, 0, len(queueWeights))
	for _, name := range []string{QueueIngest, QueueDefault} {
		q := queueHealth{Queue: name}
		if h.inspector != nil {
			info, err := h.inspector.GetQueueInfo(name)
			switch {
			case errors.Is(err, asynq.ErrQueueNotFound):
			case err != nil:
				h.logger.Warn("jobs health", slog.String("queue", name), slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
				return
			case info != nil:
				q.Pending, q.Retry, q.Paused = info.Pending, info.Retry, info.Paused
			}
		}
		queues = append(queues, q)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"queues": queues})
}
