package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seatsurge/boxoffice/internal/clock"
	"github.com/seatsurge/boxoffice/internal/domain"
)

type fakeAdminRepo struct {
	events     []domain.Event
	subevents  []domain.Subevent
	taxRules   []domain.TaxRule
	products   []domain.Product
	variations []domain.Variation
	overrides  []domain.DateOverride
	quotas     []domain.Quota
	vouchers   []domain.Voucher
	discounts  []domain.Discount
	reopened   []string
}

func (f *fakeAdminRepo) CreateEvent(_ context.Context, e domain.Event) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeAdminRepo) ListEvents(_ context.Context) ([]domain.Event, error) {
	return f.events, nil
}

func (f *fakeAdminRepo) CreateSubevent(_ context.Context, s domain.Subevent) error {
	f.subevents = append(f.subevents, s)
	return nil
}

func (f *fakeAdminRepo) CreateVariation(_ context.Context, v domain.Variation) error {
	f.variations = append(f.variations, v)
	return nil
}

func (f *fakeAdminRepo) CreateDateOverride(_ context.Context, o domain.DateOverride) error {
	f.overrides = append(f.overrides, o)
	return nil
}

func (f *fakeAdminRepo) CreateTaxRule(_ context.Context, r domain.TaxRule) error {
	f.taxRules = append(f.taxRules, r)
	return nil
}

func (f *fakeAdminRepo) CreateProduct(_ context.Context, p domain.Product) error {
	f.products = append(f.products, p)
	return nil
}

func (f *fakeAdminRepo) ListProducts(_ context.Context, eventID string) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range f.products {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeAdminRepo) CreateQuota(_ context.Context, q domain.Quota) error {
	f.quotas = append(f.quotas, q)
	return nil
}

func (f *fakeAdminRepo) ReopenQuota(_ context.Context, quotaID string) error {
	f.reopened = append(f.reopened, quotaID)
	return nil
}

func (f *fakeAdminRepo) CreateVoucher(_ context.Context, v domain.Voucher) error {
	f.vouchers = append(f.vouchers, v)
	return nil
}

func (f *fakeAdminRepo) CreateDiscount(_ context.Context, d domain.Discount) error {
	f.discounts = append(f.discounts, d)
	return nil
}

func newAdminSvc() (*AdminService, *fakeAdminRepo) {
	repo := &fakeAdminRepo{}
	return NewAdminService(repo, clock.NewFixed(testNow)), repo
}

func TestAdminService_CreateEvent(t *testing.T) {
	t.Parallel()

	t.Run("defaults currency and start time", func(t *testing.T) {
		svc, repo := newAdminSvc()

		event, err := svc.CreateEvent(context.Background(), domain.Event{Name: "Conf"})
		require.NoError(t, err)
		require.NotEmpty(t, event.ID)
		require.Equal(t, "EUR", event.Currency)
		require.Equal(t, testNow, event.StartsAt)
		require.Len(t, repo.events, 1)
	})

	t.Run("keeps explicit currency", func(t *testing.T) {
		svc, _ := newAdminSvc()

		event, err := svc.CreateEvent(context.Background(), domain.Event{Name: "Tokyo", Currency: "JPY"})
		require.NoError(t, err)
		require.Equal(t, "JPY", event.Currency)
	})

	t.Run("name required", func(t *testing.T) {
		svc, repo := newAdminSvc()

		_, err := svc.CreateEvent(context.Background(), domain.Event{})
		require.ErrorIs(t, err, domain.ErrEventNameRequired)
		require.Empty(t, repo.events)
	})
}

func TestAdminService_CreateProduct(t *testing.T) {
	t.Parallel()

	t.Run("creates with id", func(t *testing.T) {
		svc, _ := newAdminSvc()

		product, err := svc.CreateProduct(context.Background(), domain.Product{
			EventID: "event-1", Name: "Ticket", DefaultPrice: dec("25.00"),
		})
		require.NoError(t, err)
		require.NotEmpty(t, product.ID)
	})

	t.Run("event id required", func(t *testing.T) {
		svc, _ := newAdminSvc()

		_, err := svc.CreateProduct(context.Background(), domain.Product{Name: "Ticket"})
		require.ErrorIs(t, err, domain.ErrInvalidID)
	})

	t.Run("name required", func(t *testing.T) {
		svc, _ := newAdminSvc()

		_, err := svc.CreateProduct(context.Background(), domain.Product{EventID: "event-1"})
		require.ErrorIs(t, err, domain.ErrProductNameRequired)
	})

	t.Run("list filters by event", func(t *testing.T) {
		svc, _ := newAdminSvc()
		_, err := svc.CreateProduct(context.Background(), domain.Product{EventID: "event-1", Name: "A"})
		require.NoError(t, err)
		_, err = svc.CreateProduct(context.Background(), domain.Product{EventID: "event-2", Name: "B"})
		require.NoError(t, err)

		products, err := svc.ListProducts(context.Background(), "event-1")
		require.NoError(t, err)
		require.Len(t, products, 1)
		require.Equal(t, "A", products[0].Name)

		_, err = svc.ListProducts(context.Background(), "")
		require.ErrorIs(t, err, domain.ErrInvalidID)
	})
}

func TestAdminService_CreateSubevent(t *testing.T) {
	t.Parallel()

	t.Run("defaults start time", func(t *testing.T) {
		svc, repo := newAdminSvc()

		sub, err := svc.CreateSubevent(context.Background(), domain.Subevent{
			EventID: "event-1", Name: "Day 1",
		})
		require.NoError(t, err)
		require.NotEmpty(t, sub.ID)
		require.Equal(t, testNow, sub.StartsAt)
		require.Len(t, repo.subevents, 1)
	})

	t.Run("event id and name required", func(t *testing.T) {
		svc, _ := newAdminSvc()

		_, err := svc.CreateSubevent(context.Background(), domain.Subevent{Name: "Day 1"})
		require.ErrorIs(t, err, domain.ErrInvalidID)

		_, err = svc.CreateSubevent(context.Background(), domain.Subevent{EventID: "event-1"})
		require.ErrorIs(t, err, domain.ErrEventNameRequired)
	})
}

func TestAdminService_CreateVariation(t *testing.T) {
	t.Parallel()

	t.Run("creates active with id", func(t *testing.T) {
		svc, repo := newAdminSvc()

		price := dec("120.00")
		v, err := svc.CreateVariation(context.Background(), domain.Variation{
			ProductID: "product-1", Name: "VIP", Price: &price, Active: true,
		})
		require.NoError(t, err)
		require.NotEmpty(t, v.ID)
		require.Len(t, repo.variations, 1)
	})

	t.Run("product id and name required", func(t *testing.T) {
		svc, _ := newAdminSvc()

		_, err := svc.CreateVariation(context.Background(), domain.Variation{Name: "VIP"})
		require.ErrorIs(t, err, domain.ErrInvalidID)

		_, err = svc.CreateVariation(context.Background(), domain.Variation{ProductID: "product-1"})
		require.ErrorIs(t, err, domain.ErrProductNameRequired)
	})
}

func TestAdminService_CreateDateOverride(t *testing.T) {
	t.Parallel()

	t.Run("forwards to storage", func(t *testing.T) {
		svc, repo := newAdminSvc()

		_, err := svc.CreateDateOverride(context.Background(), domain.DateOverride{
			SubeventID: "subevent-1", ProductID: "product-1",
		})
		require.NoError(t, err)
		require.Len(t, repo.overrides, 1)
	})

	t.Run("subevent and product ids required", func(t *testing.T) {
		svc, _ := newAdminSvc()

		_, err := svc.CreateDateOverride(context.Background(), domain.DateOverride{ProductID: "product-1"})
		require.ErrorIs(t, err, domain.ErrInvalidID)

		_, err = svc.CreateDateOverride(context.Background(), domain.DateOverride{SubeventID: "subevent-1"})
		require.ErrorIs(t, err, domain.ErrInvalidID)
	})
}

func TestAdminService_CreateQuota(t *testing.T) {
	t.Parallel()

	t.Run("rejects negative size", func(t *testing.T) {
		svc, _ := newAdminSvc()

		_, err := svc.CreateQuota(context.Background(), domain.Quota{
			EventID: "event-1", Name: "GA", Size: intPtr(-1),
		})
		require.ErrorIs(t, err, domain.ErrInvalidCapacity)
	})

	t.Run("zero size is valid", func(t *testing.T) {
		svc, _ := newAdminSvc()

		quota, err := svc.CreateQuota(context.Background(), domain.Quota{
			EventID: "event-1", Name: "Sold out from birth", Size: intPtr(0),
		})
		require.NoError(t, err)
		require.Equal(t, 0, *quota.Size)
	})

	t.Run("nil size means unlimited", func(t *testing.T) {
		svc, _ := newAdminSvc()

		quota, err := svc.CreateQuota(context.Background(), domain.Quota{EventID: "event-1", Name: "GA"})
		require.NoError(t, err)
		require.True(t, quota.Unlimited())
	})

	t.Run("name required", func(t *testing.T) {
		svc, _ := newAdminSvc()

		_, err := svc.CreateQuota(context.Background(), domain.Quota{EventID: "event-1"})
		require.ErrorIs(t, err, domain.ErrQuotaNameRequired)
	})

	t.Run("reopen forwards to storage", func(t *testing.T) {
		svc, repo := newAdminSvc()

		require.NoError(t, svc.ReopenQuota(context.Background(), "quota-1"))
		require.Equal(t, []string{"quota-1"}, repo.reopened)

		require.ErrorIs(t, svc.ReopenQuota(context.Background(), ""), domain.ErrInvalidID)
	})
}

func TestAdminService_CreateVoucher(t *testing.T) {
	t.Parallel()

	t.Run("defaults max usages and price mode", func(t *testing.T) {
		svc, _ := newAdminSvc()

		voucher, err := svc.CreateVoucher(context.Background(), domain.Voucher{
			EventID: "event-1", Code: "SAVE20",
		})
		require.NoError(t, err)
		require.Equal(t, 1, voucher.MaxUsages)
		require.Equal(t, domain.VoucherPriceNone, voucher.PriceMode)
	})

	t.Run("code required", func(t *testing.T) {
		svc, _ := newAdminSvc()

		_, err := svc.CreateVoucher(context.Background(), domain.Voucher{EventID: "event-1"})
		require.ErrorIs(t, err, domain.ErrVoucherInvalid)
	})
}

func TestAdminService_CreateDiscount(t *testing.T) {
	t.Parallel()

	t.Run("defaults subevent mode to mixed", func(t *testing.T) {
		svc, _ := newAdminSvc()

		d, err := svc.CreateDiscount(context.Background(), domain.Discount{
			EventID: "event-1",
			Condition: domain.DiscountCondition{
				Kind:     domain.ConditionMinCount,
				MinCount: 3,
			},
			Benefit: domain.DiscountBenefit{Percent: dec("20")},
		})
		require.NoError(t, err)
		require.Equal(t, domain.SubeventModeMixed, d.Condition.SubeventMode)
	})

	t.Run("event id required", func(t *testing.T) {
		svc, _ := newAdminSvc()

		_, err := svc.CreateDiscount(context.Background(), domain.Discount{})
		require.ErrorIs(t, err, domain.ErrInvalidID)
	})
}
