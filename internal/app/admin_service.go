package app

import (
	"context"

	"github.com/seatsurge/boxoffice/internal/clock"
	"github.com/seatsurge/boxoffice/internal/domain"
)

// AdminRepository is the trusted configuration surface. It is written only
// through organizer workflows; the allocation core treats all of it as
// read-only input.
type AdminRepository interface {
	CreateEvent(ctx context.Context, event domain.Event) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
	CreateSubevent(ctx context.Context, sub domain.Subevent) error
	CreateTaxRule(ctx context.Context, rule domain.TaxRule) error
	CreateProduct(ctx context.Context, product domain.Product) error
	CreateVariation(ctx context.Context, v domain.Variation) error
	CreateDateOverride(ctx context.Context, o domain.DateOverride) error
	ListProducts(ctx context.Context, eventID string) ([]domain.Product, error)
	CreateQuota(ctx context.Context, quota domain.Quota) error
	ReopenQuota(ctx context.Context, quotaID string) error
	CreateVoucher(ctx context.Context, voucher domain.Voucher) error
	CreateDiscount(ctx context.Context, d domain.Discount) error
}

type AdminService struct {
	repo  AdminRepository
	clock clock.Clock
}

func NewAdminService(repo AdminRepository, clk clock.Clock) *AdminService {
	return &AdminService{repo: repo, clock: clk}
}

func (s *AdminService) CreateEvent(ctx context.Context, in domain.Event) (domain.Event, error) {
	if in.Name == "" {
		return domain.Event{}, domain.ErrEventNameRequired
	}
	if in.Currency == "" {
		in.Currency = "EUR"
	}
	if in.StartsAt.IsZero() {
		in.StartsAt = s.clock.Now()
	}
	in.ID = newID()
	if err := s.repo.CreateEvent(ctx, in); err != nil {
		return domain.Event{}, err
	}
	return in, nil
}

func (s *AdminService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx)
}

func (s *AdminService) CreateSubevent(ctx context.Context, in domain.Subevent) (domain.Subevent, error) {
	if in.EventID == "" {
		return domain.Subevent{}, domain.ErrInvalidID
	}
	if in.Name == "" {
		return domain.Subevent{}, domain.ErrEventNameRequired
	}
	if in.StartsAt.IsZero() {
		in.StartsAt = s.clock.Now()
	}
	in.ID = newID()
	if err := s.repo.CreateSubevent(ctx, in); err != nil {
		return domain.Subevent{}, err
	}
	return in, nil
}

func (s *AdminService) CreateTaxRule(ctx context.Context, in domain.TaxRule) (domain.TaxRule, error) {
	if in.EventID == "" {
		return domain.TaxRule{}, domain.ErrInvalidID
	}
	in.ID = newID()
	if err := s.repo.CreateTaxRule(ctx, in); err != nil {
		return domain.TaxRule{}, err
	}
	return in, nil
}

func (s *AdminService) CreateProduct(ctx context.Context, in domain.Product) (domain.Product, error) {
	if in.EventID == "" {
		return domain.Product{}, domain.ErrInvalidID
	}
	if in.Name == "" {
		return domain.Product{}, domain.ErrProductNameRequired
	}
	in.ID = newID()
	if err := s.repo.CreateProduct(ctx, in); err != nil {
		return domain.Product{}, err
	}
	return in, nil
}

func (s *AdminService) CreateVariation(ctx context.Context, in domain.Variation) (domain.Variation, error) {
	if in.ProductID == "" {
		return domain.Variation{}, domain.ErrInvalidID
	}
	if in.Name == "" {
		return domain.Variation{}, domain.ErrProductNameRequired
	}
	in.ID = newID()
	if err := s.repo.CreateVariation(ctx, in); err != nil {
		return domain.Variation{}, err
	}
	return in, nil
}

// CreateDateOverride attaches a per-occurrence price override. The row has
// no surrogate id; the (subevent, product, variation) triple identifies it.
func (s *AdminService) CreateDateOverride(ctx context.Context, in domain.DateOverride) (domain.DateOverride, error) {
	if in.SubeventID == "" || in.ProductID == "" {
		return domain.DateOverride{}, domain.ErrInvalidID
	}
	if err := s.repo.CreateDateOverride(ctx, in); err != nil {
		return domain.DateOverride{}, err
	}
	return in, nil
}

func (s *AdminService) ListProducts(ctx context.Context, eventID string) ([]domain.Product, error) {
	if eventID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListProducts(ctx, eventID)
}

func (s *AdminService) CreateQuota(ctx context.Context, in domain.Quota) (domain.Quota, error) {
	if in.EventID == "" {
		return domain.Quota{}, domain.ErrInvalidID
	}
	if in.Name == "" {
		return domain.Quota{}, domain.ErrQuotaNameRequired
	}
	if in.Size != nil && *in.Size < 0 {
		return domain.Quota{}, domain.ErrInvalidCapacity
	}
	in.ID = newID()
	if err := s.repo.CreateQuota(ctx, in); err != nil {
		return domain.Quota{}, err
	}
	return in, nil
}

// ReopenQuota clears a sticky closure so sales can resume.
func (s *AdminService) ReopenQuota(ctx context.Context, quotaID string) error {
	if quotaID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.ReopenQuota(ctx, quotaID)
}

func (s *AdminService) CreateVoucher(ctx context.Context, in domain.Voucher) (domain.Voucher, error) {
	if in.EventID == "" || in.Code == "" {
		return domain.Voucher{}, domain.ErrVoucherInvalid
	}
	if in.MaxUsages <= 0 {
		in.MaxUsages = 1
	}
	if in.PriceMode == "" {
		in.PriceMode = domain.VoucherPriceNone
	}
	in.ID = newID()
	if err := s.repo.CreateVoucher(ctx, in); err != nil {
		return domain.Voucher{}, err
	}
	return in, nil
}

func (s *AdminService) CreateDiscount(ctx context.Context, in domain.Discount) (domain.Discount, error) {
	if in.EventID == "" {
		return domain.Discount{}, domain.ErrInvalidID
	}
	if in.Condition.SubeventMode == "" {
		in.Condition.SubeventMode = domain.SubeventModeMixed
	}
	in.ID = newID()
	if err := s.repo.CreateDiscount(ctx, in); err != nil {
		return domain.Discount{}, err
	}
	return in, nil
}
