package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/db"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// Repository persists master data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const vendorColumns = `id, name, COALESCE(shortcut, ''), vendor_type, category, balance, opening_balance`

func scanVendor(row pgx.Row) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.Name, &v.Shortcut, &v.Type, &v.Category, &v.Balance, &v.OpeningBalance)
	return v, err
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound.With(format, args...)
	}
	return fmt.Errorf("catalog: "+format+": %w", append(args, err)...)
}

func conflict(err error, format string, args ...any) error {
	if db.IsUniqueViolation(err) {
		return shared.ErrDuplicate.With(format, args...)
	}
	return fmt.Errorf("catalog: "+format+": %w", append(args, err)...)
}

func (r *Repository) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, default_rate FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list items: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		var it Item
		err := row.Scan(&it.ID, &it.Name, &it.DefaultRate)
		return it, err
	})
}

func (r *Repository) CreateItem(ctx context.Context, in CreateItemInput) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO items (name, default_rate) VALUES ($1, $2) RETURNING id`, in.Name, in.DefaultRate).Scan(&id)
	if err != nil {
		return 0, conflict(err, "item %q", in.Name)
	}
	return id, nil
}

func (r *Repository) RenameItem(ctx context.Context, id int64, name string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE items SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return conflict(err, "item %q", name)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound.With("item %d", id)
	}
	return nil
}

func (r *Repository) GetVendor(ctx context.Context, id int64) (Vendor, error) {
	v, err := scanVendor(r.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id))
	if err != nil {
		return Vendor{}, notFound(err, "vendor %d", id)
	}
	return v, nil
}

// VendorByShortcut matches the trimmed, lower-cased shortcut exactly.
func (r *Repository) VendorByShortcut(ctx context.Context, shortcut string) (Vendor, error) {
	v, err := scanVendor(r.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE LOWER(TRIM(shortcut)) = $1`, shortcut))
	if err != nil {
		return Vendor{}, notFound(err, "vendor shortcut %q", shortcut)
	}
	return v, nil
}

func (r *Repository) ListVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+vendorColumns+` FROM vendors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list vendors: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Vendor, error) {
		return scanVendor(row)
	})
}

func (r *Repository) CreateVendor(ctx context.Context, in CreateVendorInput) (int64, error) {
	var shortcut *string
	if in.Shortcut != "" {
		shortcut = &in.Shortcut
	}
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO vendors (name, shortcut, vendor_type, category, balance, opening_balance)
VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`, in.Name, shortcut, in.Type, in.Category, in.OpeningBalance).Scan(&id)
	if err != nil {
		return 0, conflict(err, "vendor shortcut %q", in.Shortcut)
	}
	return id, nil
}

func (r *Repository) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, `SELECT id, name, balance, opening_balance FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Balance, &c.OpeningBalance)
	if err != nil {
		return Customer{}, notFound(err, "customer %d", id)
	}
	return c, nil
}

func (r *Repository) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, balance, opening_balance FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list customers: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Customer, error) {
		var c Customer
		err := row.Scan(&c.ID, &c.Name, &c.Balance, &c.OpeningBalance)
		return c, err
	})
}

func (r *Repository) CreateCustomer(ctx context.Context, in CreateCustomerInput) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO customers (name, balance, opening_balance) VALUES ($1, $2, $2) RETURNING id`, in.Name, in.OpeningBalance).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("catalog: create customer: %w", err)
	}
	return id, nil
}
