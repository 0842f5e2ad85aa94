package app

import (
	"context"
	"time"

	"github.com/seatsurge/boxoffice/internal/clock"
	"github.com/seatsurge/boxoffice/internal/domain"
	"github.com/seatsurge/boxoffice/internal/inventory"
)

// AvailabilityRepository backs the lock-free shop-front read path.
type AvailabilityRepository interface {
	ListProducts(ctx context.Context, eventID string) ([]domain.Product, error)
	ListQuotasFor(ctx context.Context, productID, variationID, subeventID string) ([]domain.Quota, error)
	QuotaCounts(ctx context.Context, quotaIDs []string, now time.Time) (map[string]inventory.Counts, error)
}

// AvailabilityService answers "n remaining / unlimited / closed" per
// product for shop-front display. Results may be stale by milliseconds;
// nothing here is authoritative for allocation.
type AvailabilityService struct {
	repo         AvailabilityRepository
	clock        clock.Clock
	fewThreshold int
}

type AvailabilityServiceOption func(*AvailabilityService)

// WithFewThreshold sets the boundary for the few-left display bucket.
func WithFewThreshold(n int) AvailabilityServiceOption {
	return func(s *AvailabilityService) {
		if n >= 0 {
			s.fewThreshold = n
		}
	}
}

const defaultFewThreshold = 10

func NewAvailabilityService(repo AvailabilityRepository, clk clock.Clock, opts ...AvailabilityServiceOption) *AvailabilityService {
	svc := &AvailabilityService{
		repo:         repo,
		clock:        clk,
		fewThreshold: defaultFewThreshold,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ProductAvailability is one shop-front availability row.
type ProductAvailability struct {
	ProductID string
	Level     inventory.Level
	Unlimited bool
	// Remaining is meaningful only when neither Unlimited nor closed.
	Remaining int
}

// ForEvent computes effective availability for every product of the event,
// optionally scoped to one subevent.
func (s *AvailabilityService) ForEvent(ctx context.Context, eventID, subeventID string) ([]ProductAvailability, error) {
	now := s.clock.Now()
	products, err := s.repo.ListProducts(ctx, eventID)
	if err != nil {
		return nil, err
	}

	results := make([]ProductAvailability, 0, len(products))
	for _, p := range products {
		if !p.OnSaleAt(now) {
			continue
		}
		quotas, err := s.repo.ListQuotasFor(ctx, p.ID, "", subeventID)
		if err != nil {
			return nil, err
		}
		if len(quotas) == 0 {
			// A product outside every quota is not sellable.
			continue
		}
		ids := make([]string, len(quotas))
		for i, q := range quotas {
			ids[i] = q.ID
		}
		counts, err := s.repo.QuotaCounts(ctx, ids, now)
		if err != nil {
			return nil, err
		}
		avails := make([]inventory.Availability, len(quotas))
		for i, q := range quotas {
			avails[i] = inventory.Compute(q, counts[q.ID])
		}
		effective := inventory.Min(avails)
		results = append(results, ProductAvailability{
			ProductID: p.ID,
			Level:     effective.Level(s.fewThreshold),
			Unlimited: effective.Unlimited,
			Remaining: effective.Remaining,
		})
	}
	return results, nil
}
