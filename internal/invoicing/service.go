package invoicing

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/catalog"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/inventory"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/observability"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/db"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/vendorcode"
)

const idempotencyModule = "invoicing"

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
}

// ItemResolver maps a free-text item name to a catalogue item.
type ItemResolver interface {
	ResolveItem(ctx context.Context, name string) (catalog.Item, error)
}

// VendorResolver resolves a line's vendor and target lot date.
type VendorResolver interface {
	ResolveLine(ctx context.Context, req vendorcode.Request) (vendorcode.Resolution, error)
}

// LedgerInvalidator drops cached statements after a balance change.
type LedgerInvalidator interface {
	InvalidateCustomer(ctx context.Context, customerID int64)
}

// IdempotencyStore guards batch retries.
type IdempotencyStore interface {
	Claim(ctx context.Context, module, key string) error
	Release(ctx context.Context, module, key string) error
}

// Deps groups the collaborators of Service. Only Repo, Items and Vendors are
// required.
type Deps struct {
	Repo        RepositoryPort
	Items       ItemResolver
	Vendors     VendorResolver
	Allocator   *inventory.Allocator
	Ledger      LedgerInvalidator
	Idempotency IdempotencyStore
	Metrics     *observability.BillingMetrics
	Clock       shared.Clock
	NumberWidth int
	Logger      *slog.Logger
}

// Service runs invoice transactions.
type Service struct {
	Deps
}

// NewService builds Service.
func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Allocator == nil {
		deps.Allocator = inventory.NewAllocator(deps.Metrics, deps.Logger)
	}
	if deps.Clock == nil {
		deps.Clock = shared.SystemClock{}
	}
	return &Service{Deps: deps}
}

// CreateInvoice bills a customer. Every line is resolved and allocated in
// one transaction; any failing line aborts the whole invoice and undoes the
// stock already taken for earlier lines.
func (s *Service) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (Created, error) {
	state := StateDraft
	created, err := s.createInvoice(ctx, in, &state)
	if err != nil {
		s.Metrics.ObserveInvoice(observability.OutcomeRejected)
		attrs := []any{
			slog.Int64("customer_id", in.CustomerID),
			slog.String("state", state.String()),
			slog.String("code", string(shared.CodeOf(err))),
			slog.Any("error", err),
		}
		var lineErr *LineError
		if errors.As(err, &lineErr) {
			attrs = append(attrs, slog.Int("line", lineErr.Line), slog.String("item", lineErr.ItemName))
		}
		s.Logger.Warn("invoice aborted", attrs...)
		return Created{}, err
	}
	s.Metrics.ObserveInvoice(observability.OutcomeSuccess)
	if s.Ledger != nil {
		s.Ledger.InvalidateCustomer(ctx, in.CustomerID)
	}
	s.Logger.Info("invoice committed",
		slog.Int64("invoice_id", created.ID),
		slog.String("invoice_number", created.Number),
		slog.Int64("customer_id", in.CustomerID),
		slog.String("total", created.Total.String()),
	)
	return created, nil
}

func (s *Service) createInvoice(ctx context.Context, in CreateInvoiceInput, state *State) (Created, error) {
	if in.Source == "" {
		in.Source = SourceManual
	}
	if err := shared.ValidateStruct(in); err != nil {
		*state = StateAborted
		return Created{}, err
	}
	for i, line := range in.Lines {
		if err := checkLine(in.Source, line); err != nil {
			*state = StateAborted
			return Created{}, &LineError{Line: i + 1, ItemName: line.ItemName, Err: err}
		}
	}

	*state = StateAllocating
	var created Created
	err := s.Repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lines := make([]Line, 0, len(in.Lines))
		total := decimal.Zero
		for i, input := range in.Lines {
			line, err := s.allocateLine(ctx, tx, in.Source, input)
			if err != nil {
				return &LineError{Line: i + 1, ItemName: input.ItemName, Err: err}
			}
			total = total.Add(line.Amount)
			lines = append(lines, line)
		}

		seq, err := tx.NextInvoiceNumber(ctx)
		if err != nil {
			return err
		}
		inv := Invoice{
			Number:      db.FormatNumber(seq, s.NumberWidth),
			CustomerID:  in.CustomerID,
			Source:      in.Source,
			SystemDate:  s.Clock.Now(),
			DisplayDate: shared.DateOf(in.DisplayDate),
			Total:       total,
		}
		id, err := tx.InsertInvoice(ctx, inv)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, id, lines); err != nil {
			return err
		}
		if err := tx.AdjustCustomerBalance(ctx, in.CustomerID, total); err != nil {
			return err
		}
		if err := tx.RecordAudit(ctx, shared.AuditLog{
			Action:   "invoice.create",
			Entity:   "customer_invoice",
			EntityID: id,
			Party:    "customer",
			PartyID:  in.CustomerID,
			Delta:    total,
			Meta:     map[string]any{"source": string(in.Source), "lines": len(lines)},
			At:       inv.SystemDate,
		}); err != nil {
			return err
		}
		created = Created{ID: id, Number: inv.Number, Total: total}
		return nil
	})
	if err != nil {
		*state = StateAborted
		return Created{}, err
	}
	*state = StateCommitted
	return created, nil
}

// allocateLine resolves the item, then the vendor and target date, then takes
// stock from one lot.
func (s *Service) allocateLine(ctx context.Context, tx TxRepository, src Source, in LineInput) (Line, error) {
	name, explicit := vendorcode.SplitExplicitDate(strings.TrimSpace(in.ItemName))
	item, err := s.Items.ResolveItem(ctx, name)
	if err != nil {
		return Line{}, err
	}
	res, err := s.Vendors.ResolveLine(ctx, vendorcode.Request{
		VendorID:     in.VendorID,
		CodeRaw:      in.VendorCode,
		BatchMarker:  in.BatchMarker,
		ExplicitDate: explicit,
	})
	if err != nil {
		return Line{}, err
	}
	alloc, err := s.Allocator.Allocate(ctx, tx, inventory.AllocateInput{
		VendorID:   res.VendorID,
		ItemID:     item.ID,
		TargetDate: res.TargetDate,
		Quantity:   in.Quantity,
		Weight:     in.Weight,
	})
	if err != nil {
		return Line{}, err
	}
	amount, overridden := LineAmount(src, in)
	return Line{
		ItemID:           item.ID,
		VendorID:         res.VendorID,
		LotID:            alloc.LotID,
		Quantity:         in.Quantity,
		Weight:           in.Weight,
		Rate:             in.Rate,
		Amount:           amount,
		AmountOverridden: overridden,
	}, nil
}

// CreateInvoiceBatch creates each invoice in its own transaction. One
// invoice failing never blocks the others. Invoices carrying an idempotency
// key that was already processed are counted as duplicates and skipped.
func (s *Service) CreateInvoiceBatch(ctx context.Context, inputs []CreateInvoiceInput) BatchResult {
	res := BatchResult{Created: []Created{}, Failures: []BatchFailure{}}
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			res.Failures = append(res.Failures, BatchFailure{Index: i, Reason: err.Error()})
			continue
		}
		key := in.IdempotencyKey
		if key != "" && s.Idempotency != nil {
			err := s.Idempotency.Claim(ctx, idempotencyModule, key)
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				res.Duplicates++
				continue
			}
			if err != nil {
				res.Failures = append(res.Failures, BatchFailure{Index: i, Reason: err.Error()})
				continue
			}
		}
		created, err := s.CreateInvoice(ctx, in)
		if err != nil {
			if key != "" && s.Idempotency != nil {
				if delErr := s.Idempotency.Release(ctx, idempotencyModule, key); delErr != nil {
					s.Logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", delErr))
				}
			}
			res.Failures = append(res.Failures, batchFailure(i, err))
			continue
		}
		res.Succeeded++
		res.Created = append(res.Created, created)
	}
	s.Logger.Info("invoice batch processed",
		slog.Int("submitted", len(inputs)),
		slog.Int("succeeded", res.Succeeded),
		slog.Int("failed", len(res.Failures)),
		slog.Int("duplicates", res.Duplicates),
	)
	return res
}

func batchFailure(index int, err error) BatchFailure {
	f := BatchFailure{Index: index, Code: shared.CodeOf(err), Reason: err.Error()}
	var lineErr *LineError
	if errors.As(err, &lineErr) {
		f.Line = lineErr.Line
	}
	return f
}

// DeleteInvoice returns every line's stock to its lot and reverses the
// customer balance by the stored total.
func (s *Service) DeleteInvoice(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidInput.With("invoice id required")
	}
	var customerID int64
	err := s.Repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		customerID = inv.CustomerID
		for _, line := range inv.Lines {
			if err := s.Allocator.Release(ctx, tx, line.LotID, inventory.Deduction(line.Quantity, line.Weight)); err != nil {
				return err
			}
		}
		if err := tx.DeleteInvoice(ctx, id); err != nil {
			return err
		}
		if err := tx.AdjustCustomerBalance(ctx, inv.CustomerID, inv.Total.Neg()); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			Action:   "invoice.delete",
			Entity:   "customer_invoice",
			EntityID: id,
			Party:    "customer",
			PartyID:  inv.CustomerID,
			Delta:    inv.Total.Neg(),
			Meta:     map[string]any{"number": inv.Number},
			At:       s.Clock.Now(),
		})
	})
	if err != nil {
		return err
	}
	if s.Ledger != nil {
		s.Ledger.InvalidateCustomer(ctx, customerID)
	}
	s.Logger.Info("invoice deleted", slog.Int64("invoice_id", id), slog.Int64("customer_id", customerID))
	return nil
}

// GetInvoice returns an invoice with its lines.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	if id <= 0 {
		return Invoice{}, shared.ErrInvalidInput.With("invoice id required")
	}
	return s.Repo.GetInvoice(ctx, id)
}
