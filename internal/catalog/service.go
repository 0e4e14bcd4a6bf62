package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// RepositoryPort describes persistence used by Service.
type RepositoryPort interface {
	ListItems(ctx context.Context) ([]Item, error)
	CreateItem(ctx context.Context, in CreateItemInput) (int64, error)
	RenameItem(ctx context.Context, id int64, name string) error
	GetVendor(ctx context.Context, id int64) (Vendor, error)
	VendorByShortcut(ctx context.Context, shortcut string) (Vendor, error)
	ListVendors(ctx context.Context) ([]Vendor, error)
	CreateVendor(ctx context.Context, in CreateVendorInput) (int64, error)
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	CreateCustomer(ctx context.Context, in CreateCustomerInput) (int64, error)
}

// Service manages master data and resolves item and vendor references.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger

	mu    sync.RWMutex
	index *Index
	group singleflight.Group
}

// NewService constructs the catalog service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ResolveItem maps a free-text name to an item: exact case and whitespace
// insensitive match first, then the normalized alphanumeric form. A miss
// reloads the index once so items created by other processes are found.
func (s *Service) ResolveItem(ctx context.Context, name string) (Item, error) {
	if strings.TrimSpace(name) == "" {
		return Item{}, shared.ErrItemNotFound.With("empty item name")
	}
	if idx := s.currentIndex(); idx != nil {
		if item, ok := idx.Lookup(name); ok {
			return item, nil
		}
	}
	// Concurrent misses share one reload through the singleflight group.
	idx, err := s.refreshIndex(ctx)
	if err != nil {
		return Item{}, err
	}
	if item, ok := idx.Lookup(name); ok {
		return item, nil
	}
	return Item{}, shared.ErrItemNotFound.With("%q", name)
}

func (s *Service) currentIndex() *Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

func (s *Service) refreshIndex(ctx context.Context) (*Index, error) {
	v, err, _ := s.group.Do("items", func() (interface{}, error) {
		items, err := s.repo.ListItems(ctx)
		if err != nil {
			return nil, err
		}
		idx := BuildIndex(items)
		s.mu.Lock()
		s.index = idx
		s.mu.Unlock()
		s.logger.Debug("item index rebuilt", slog.Int("items", idx.Len()))
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

func (s *Service) invalidateIndex() {
	s.mu.Lock()
	s.index = nil
	s.mu.Unlock()
}

// VendorIDByShortcut resolves a vendor shortcut code.
func (s *Service) VendorIDByShortcut(ctx context.Context, shortcut string) (int64, error) {
	code := strings.ToLower(strings.TrimSpace(shortcut))
	if code == "" {
		return 0, shared.ErrVendorUnresolved.With("empty shortcut")
	}
	v, err := s.repo.VendorByShortcut(ctx, code)
	if errors.Is(err, shared.ErrNotFound) {
		return 0, shared.ErrVendorUnresolved.With("shortcut %q", code)
	}
	if err != nil {
		return 0, err
	}
	return v.ID, nil
}

// GetVendor loads a vendor by id.
func (s *Service) GetVendor(ctx context.Context, id int64) (Vendor, error) {
	return s.repo.GetVendor(ctx, id)
}

// GetCustomer loads a customer by id.
func (s *Service) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// ListItems returns every item ordered by id.
func (s *Service) ListItems(ctx context.Context) ([]Item, error) {
	return s.repo.ListItems(ctx)
}

// ListVendors returns every vendor ordered by id.
func (s *Service) ListVendors(ctx context.Context) ([]Vendor, error) {
	return s.repo.ListVendors(ctx)
}

// ListCustomers returns every customer ordered by id.
func (s *Service) ListCustomers(ctx context.Context) ([]Customer, error) {
	return s.repo.ListCustomers(ctx)
}

// CreateItem adds an item and drops the cached index.
func (s *Service) CreateItem(ctx context.Context, in CreateItemInput) (Item, error) {
	in.Name = strings.Join(strings.Fields(in.Name), " ")
	if err := shared.ValidateStruct(in); err != nil {
		return Item{}, err
	}
	if in.DefaultRate.IsNegative() {
		return Item{}, shared.ErrInvalidInput.With("default rate must not be negative")
	}
	id, err := s.repo.CreateItem(ctx, in)
	if err != nil {
		return Item{}, err
	}
	s.invalidateIndex()
	return Item{ID: id, Name: in.Name, DefaultRate: in.DefaultRate}, nil
}

// RenameItem edits an item name and drops the cached index.
func (s *Service) RenameItem(ctx context.Context, id int64, name string) error {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return shared.ErrInvalidInput.With("item name required")
	}
	if err := s.repo.RenameItem(ctx, id, name); err != nil {
		return err
	}
	s.invalidateIndex()
	return nil
}

// CreateVendor adds a vendor. Shortcuts are stored lower-cased.
func (s *Service) CreateVendor(ctx context.Context, in CreateVendorInput) (Vendor, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Shortcut = strings.ToLower(strings.TrimSpace(in.Shortcut))
	if in.Type == "" {
		in.Type = VendorLocal
	}
	if in.Category == "" {
		in.Category = CategoryCommission
	}
	if err := shared.ValidateStruct(in); err != nil {
		return Vendor{}, err
	}
	id, err := s.repo.CreateVendor(ctx, in)
	if err != nil {
		return Vendor{}, err
	}
	s.logger.Info("vendor created", slog.Int64("vendor_id", id), slog.String("shortcut", in.Shortcut))
	return Vendor{
		ID:             id,
		Name:           in.Name,
		Shortcut:       in.Shortcut,
		Type:           in.Type,
		Category:       in.Category,
		Balance:        in.OpeningBalance,
		OpeningBalance: in.OpeningBalance,
	}, nil
}

// CreateCustomer adds a customer.
func (s *Service) CreateCustomer(ctx context.Context, in CreateCustomerInput) (Customer, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := shared.ValidateStruct(in); err != nil {
		return Customer{}, err
	}
	id, err := s.repo.CreateCustomer(ctx, in)
	if err != nil {
		return Customer{}, err
	}
	return Customer{ID: id, Name: in.Name, Balance: in.OpeningBalance, OpeningBalance: in.OpeningBalance}, nil
}
