package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/seatsurge/boxoffice/internal/clock"
	"github.com/seatsurge/boxoffice/internal/domain"
	"github.com/seatsurge/boxoffice/internal/inventory"
)

type fakeAvailabilityRepo struct {
	products []domain.Product
	quotas   []domain.Quota
	counts   map[string]inventory.Counts
}

func (f *fakeAvailabilityRepo) ListProducts(_ context.Context, eventID string) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range f.products {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeAvailabilityRepo) ListQuotasFor(_ context.Context, productID, variationID, subeventID string) ([]domain.Quota, error) {
	var out []domain.Quota
	for _, q := range f.quotas {
		if !q.Covers(productID, variationID) {
			continue
		}
		if q.SubeventID != "" && q.SubeventID != subeventID {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeAvailabilityRepo) QuotaCounts(_ context.Context, quotaIDs []string, _ time.Time) (map[string]inventory.Counts, error) {
	counts := make(map[string]inventory.Counts, len(quotaIDs))
	for _, id := range quotaIDs {
		counts[id] = f.counts[id]
	}
	return counts, nil
}

func activeProduct(id string) domain.Product {
	return domain.Product{ID: id, EventID: "event-1", Name: id, Active: true}
}

func TestAvailabilityService_ForEvent(t *testing.T) {
	t.Parallel()

	t.Run("minimum across shared quotas", func(t *testing.T) {
		repo := &fakeAvailabilityRepo{
			products: []domain.Product{activeProduct("prod-1")},
			quotas: []domain.Quota{
				{ID: "q-big", EventID: "event-1", Size: intPtr(100), Members: []domain.QuotaMember{{ProductID: "prod-1"}}},
				{ID: "q-small", EventID: "event-1", Size: intPtr(20), Members: []domain.QuotaMember{{ProductID: "prod-1"}}},
			},
			counts: map[string]inventory.Counts{
				"q-big":   {Confirmed: 10},
				"q-small": {Confirmed: 15, Reserved: 2},
			},
		}
		svc := NewAvailabilityService(repo, clock.NewFixed(testNow))

		rows, err := svc.ForEvent(context.Background(), "event-1", "")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, 3, rows[0].Remaining)
		require.Equal(t, inventory.LevelFew, rows[0].Level)
	})

	t.Run("unlimited product", func(t *testing.T) {
		repo := &fakeAvailabilityRepo{
			products: []domain.Product{activeProduct("prod-1")},
			quotas: []domain.Quota{
				{ID: "q", EventID: "event-1", Members: []domain.QuotaMember{{ProductID: "prod-1"}}},
			},
			counts: map[string]inventory.Counts{},
		}
		svc := NewAvailabilityService(repo, clock.NewFixed(testNow))

		rows, err := svc.ForEvent(context.Background(), "event-1", "")
		require.NoError(t, err)
		require.True(t, rows[0].Unlimited)
		require.Equal(t, inventory.LevelOK, rows[0].Level)
	})

	t.Run("closed quota closes the product", func(t *testing.T) {
		repo := &fakeAvailabilityRepo{
			products: []domain.Product{activeProduct("prod-1")},
			quotas: []domain.Quota{
				{ID: "q", EventID: "event-1", Size: intPtr(100), Closed: true, Members: []domain.QuotaMember{{ProductID: "prod-1"}}},
			},
			counts: map[string]inventory.Counts{},
		}
		svc := NewAvailabilityService(repo, clock.NewFixed(testNow))

		rows, err := svc.ForEvent(context.Background(), "event-1", "")
		require.NoError(t, err)
		require.Equal(t, inventory.LevelClosed, rows[0].Level)
	})

	t.Run("off-sale and quota-less products are skipped", func(t *testing.T) {
		inactive := activeProduct("prod-off")
		inactive.Active = false
		repo := &fakeAvailabilityRepo{
			products: []domain.Product{inactive, activeProduct("prod-orphan")},
		}
		svc := NewAvailabilityService(repo, clock.NewFixed(testNow))

		rows, err := svc.ForEvent(context.Background(), "event-1", "")
		require.NoError(t, err)
		require.Empty(t, rows)
	})

	t.Run("subevent scoping picks the matching quota", func(t *testing.T) {
		repo := &fakeAvailabilityRepo{
			products: []domain.Product{activeProduct("prod-1")},
			quotas: []domain.Quota{
				{ID: "q-day1", EventID: "event-1", SubeventID: "sub-1", Size: intPtr(5), Members: []domain.QuotaMember{{ProductID: "prod-1"}}},
				{ID: "q-day2", EventID: "event-1", SubeventID: "sub-2", Size: intPtr(50), Members: []domain.QuotaMember{{ProductID: "prod-1"}}},
			},
			counts: map[string]inventory.Counts{"q-day1": {Confirmed: 5}},
		}
		svc := NewAvailabilityService(repo, clock.NewFixed(testNow))

		rows, err := svc.ForEvent(context.Background(), "event-1", "sub-1")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, inventory.LevelGone, rows[0].Level)
	})

	t.Run("custom few threshold", func(t *testing.T) {
		repo := &fakeAvailabilityRepo{
			products: []domain.Product{activeProduct("prod-1")},
			quotas: []domain.Quota{
				{ID: "q", EventID: "event-1", Size: intPtr(10), Members: []domain.QuotaMember{{ProductID: "prod-1"}}},
			},
			counts: map[string]inventory.Counts{"q": {Confirmed: 7}},
		}
		svc := NewAvailabilityService(repo, clock.NewFixed(testNow), WithFewThreshold(2))

		rows, err := svc.ForEvent(context.Background(), "event-1", "")
		require.NoError(t, err)
		require.Equal(t, inventory.LevelOK, rows[0].Level)
	})
}
