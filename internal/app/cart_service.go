package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seatsurge/boxoffice/internal/clock"
	"github.com/seatsurge/boxoffice/internal/domain"
	"github.com/seatsurge/boxoffice/internal/inventory"
	"github.com/seatsurge/boxoffice/internal/pricing"
)

// CartRepository is everything the cart service needs from storage. The
// availability reads here are optimistic: they run without advisory locks
// and may be stale by a few milliseconds, which is acceptable because the
// authoritative re-check happens at order creation.
type CartRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetCatalogSnapshot(ctx context.Context, productID, variationID, subeventID string) (CatalogSnapshot, error)
	GetVoucherByCode(ctx context.Context, eventID, code string) (*domain.Voucher, error)
	ListQuotasFor(ctx context.Context, productID, variationID, subeventID string) ([]domain.Quota, error)
	QuotaCounts(ctx context.Context, quotaIDs []string, now time.Time) (map[string]inventory.Counts, error)
	CreateCartPositions(ctx context.Context, positions []domain.CartPosition) error
	ListCartPositions(ctx context.Context, cartID string) ([]domain.CartPosition, error)
	UpdateCartPosition(ctx context.Context, pos domain.CartPosition) error
	DeleteCartPosition(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// CartService holds time-limited reservations of inventory units at
// locked-in prices.
type CartService struct {
	repo           CartRepository
	clock          clock.Clock
	reservationTTL time.Duration
}

const defaultReservationTTL = 30 * time.Minute

type CartServiceOption func(*CartService)

// WithReservationTTL overrides the default reservation window.
func WithReservationTTL(d time.Duration) CartServiceOption {
	return func(s *CartService) {
		if d > 0 {
			s.reservationTTL = d
		}
	}
}

func NewCartService(repo CartRepository, clk clock.Clock, opts ...CartServiceOption) *CartService {
	svc := &CartService{
		repo:           repo,
		clock:          clk,
		reservationTTL: defaultReservationTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type AddToCartInput struct {
	CartID      string
	ProductID   string
	VariationID string
	SubeventID  string
	Quantity    int
	VoucherCode string
	CustomPrice *decimal.Decimal
	// DisplayNetPrices mirrors the shop's display setting; it decides which
	// side of the price a custom input is compared against.
	DisplayNetPrices bool
}

// AddToCart prices the requested units, checks availability optimistically
// and creates one CartPosition per unit with a locked-in listed price and a
// fresh expiry. Bundled products are added and priced alongside the parent.
func (s *CartService) AddToCart(ctx context.Context, in AddToCartInput) ([]domain.CartPosition, error) {
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if in.CartID == "" {
		in.CartID = newID()
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.reservationTTL)
	var created []domain.CartPosition

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		snap, err := s.repo.GetCatalogSnapshot(txCtx, in.ProductID, in.VariationID, in.SubeventID)
		if err != nil {
			return err
		}
		if !snap.Product.OnSaleAt(now) || (snap.Override != nil && snap.Override.Disabled) {
			return domain.ErrProductNotOnSale
		}

		var voucher *domain.Voucher
		if in.VoucherCode != "" {
			voucher, err = s.repo.GetVoucherByCode(txCtx, snap.Event.ID, in.VoucherCode)
			if err != nil {
				return err
			}
			if voucher == nil || !voucher.AppliesTo(in.ProductID, in.VariationID) {
				return domain.ErrVoucherInvalid
			}
			if !voucher.ValidAt(now) {
				return domain.ErrVoucherInvalid
			}
			if voucher.BudgetLeft() < in.Quantity {
				return domain.ErrVoucherExhausted
			}
		}

		listed := pricing.ListedPrice(snap.Product, snap.Variation, snap.Override)

		// Bundled lines are priced at their designated gross price under
		// their own tax rule; the sum is deducted from the parent.
		bundledGross := decimal.Zero
		type bundledLine struct {
			bundle domain.Bundle
			snap   CatalogSnapshot
			price  pricing.TaxedPrice
		}
		var bundled []bundledLine
		for _, b := range snap.Bundles {
			bsnap, err := s.repo.GetCatalogSnapshot(txCtx, b.BundledProductID, b.BundledVariationID, in.SubeventID)
			if err != nil {
				return err
			}
			price := pricing.FromGross(b.DesignatedPrice, bsnap.TaxRule.Rate, pricing.Places(snap.Event.Currency))
			bundled = append(bundled, bundledLine{bundle: b, snap: bsnap, price: price})
			bundledGross = bundledGross.Add(price.Gross.Mul(decimal.NewFromInt(int64(b.Count))))
		}

		line, err := pricing.Line(pricing.LineInput{
			ListedPrice:      listed,
			TaxRule:          snap.TaxRule,
			Voucher:          voucher,
			CustomPrice:      in.CustomPrice,
			FreePrice:        snap.Product.FreePrice,
			DisplayNetPrices: in.DisplayNetPrices,
			BundledGross:     bundledGross,
			Currency:         snap.Event.Currency,
		})
		if err != nil {
			return err
		}

		if err := s.checkAvailability(txCtx, in, snap, bundledRefs(snap.Bundles), voucher, now); err != nil {
			return err
		}

		voucherID := ""
		if voucher != nil {
			voucherID = voucher.ID
		}
		for i := 0; i < in.Quantity; i++ {
			parent := domain.CartPosition{
				ID:                newID(),
				CartID:            in.CartID,
				EventID:           snap.Event.ID,
				ProductID:         in.ProductID,
				VariationID:       in.VariationID,
				SubeventID:        in.SubeventID,
				VoucherID:         voucherID,
				ListedPrice:       listed,
				PriceAfterVoucher: line.PriceAfterVoucher,
				CustomPriceInput:  in.CustomPrice,
				CustomPriceIsNet:  in.DisplayNetPrices,
				TaxRate:           snap.TaxRule.Rate,
				LinePriceGross:    line.Price.Gross,
				LinePriceNet:      line.Price.Net,
				Status:            domain.CartStatusActive,
				ExpiresAt:         expiresAt,
				CreatedAt:         now,
			}
			created = append(created, parent)
			for _, bl := range bundled {
				for n := 0; n < bl.bundle.Count; n++ {
					created = append(created, domain.CartPosition{
						ID:                newID(),
						CartID:            in.CartID,
						EventID:           snap.Event.ID,
						ProductID:         bl.bundle.BundledProductID,
						VariationID:       bl.bundle.BundledVariationID,
						SubeventID:        in.SubeventID,
						BundleParentID:    parent.ID,
						ListedPrice:       bl.bundle.DesignatedPrice,
						PriceAfterVoucher: bl.bundle.DesignatedPrice,
						TaxRate:           bl.snap.TaxRule.Rate,
						LinePriceGross:    bl.price.Gross,
						LinePriceNet:      bl.price.Net,
						Status:            domain.CartStatusActive,
						ExpiresAt:         expiresAt,
						CreatedAt:         now,
					})
				}
			}
		}
		return s.repo.CreateCartPositions(txCtx, created)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// checkAvailability runs the optimistic quota check for the parent and all
// bundled references: every covering quota must retain enough remaining
// capacity, taking the minimum across quotas per reference. When the add
// redeems a quota-blocking voucher, the units it is about to consume are
// already inside that voucher's blocked budget and must not count twice.
func (s *CartService) checkAvailability(ctx context.Context, in AddToCartInput, snap CatalogSnapshot, bundledQty map[bundleRef]int, voucher *domain.Voucher, now time.Time) error {
	required := map[string]int{}
	quotas := map[string]domain.Quota{}

	collect := func(productID, variationID string, units int) error {
		qs, err := s.repo.ListQuotasFor(ctx, productID, variationID, in.SubeventID)
		if err != nil {
			return err
		}
		if len(qs) == 0 {
			return domain.ErrQuotaNotFound
		}
		for _, q := range qs {
			quotas[q.ID] = q
			required[q.ID] += units
		}
		return nil
	}

	if err := collect(in.ProductID, in.VariationID, in.Quantity); err != nil {
		return err
	}
	for ref, perUnit := range bundledQty {
		if err := collect(ref.productID, ref.variationID, perUnit*in.Quantity); err != nil {
			return err
		}
	}

	ids := make([]string, 0, len(quotas))
	for id := range quotas {
		ids = append(ids, id)
	}
	counts, err := s.repo.QuotaCounts(ctx, ids, now)
	if err != nil {
		return err
	}
	for id, q := range quotas {
		c := counts[id]
		if voucher != nil && voucher.BlockQuota && voucher.QuotaID == id {
			c.Blocked -= in.Quantity
			if c.Blocked < 0 {
				c.Blocked = 0
			}
		}
		avail := inventory.Compute(q, c)
		if avail.Closed || (!avail.Unlimited && required[id] > avail.Remaining) {
			return domain.ErrQuotaUnavailable
		}
	}
	return nil
}

type bundleRef struct {
	productID   string
	variationID string
}

func bundledRefs(bundles []domain.Bundle) map[bundleRef]int {
	refs := map[bundleRef]int{}
	for _, b := range bundles {
		refs[bundleRef{b.BundledProductID, b.BundledVariationID}] += b.Count
	}
	return refs
}

// ApplyVoucher re-prices matching active positions with the voucher. The
// frozen listed price is never re-snapshotted here; only the fields derived
// from it change.
func (s *CartService) ApplyVoucher(ctx context.Context, cartID, code string) ([]domain.CartPosition, error) {
	return s.recomputeWithVoucher(ctx, cartID, code)
}

// RemoveVoucher re-prices the cart without any voucher.
func (s *CartService) RemoveVoucher(ctx context.Context, cartID string) ([]domain.CartPosition, error) {
	return s.recomputeWithVoucher(ctx, cartID, "")
}

func (s *CartService) recomputeWithVoucher(ctx context.Context, cartID, code string) ([]domain.CartPosition, error) {
	now := s.clock.Now()
	var updated []domain.CartPosition

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		positions, err := s.repo.ListCartPositions(txCtx, cartID)
		if err != nil {
			return err
		}
		active := activePositions(positions, now)
		if len(active) == 0 {
			if len(positions) == 0 {
				return domain.ErrCartNotFound
			}
			return domain.ErrCartExpired
		}

		for _, pos := range active {
			if pos.BundleParentID != "" {
				// Bundled lines keep their designated price.
				updated = append(updated, pos)
				continue
			}
			snap, err := s.repo.GetCatalogSnapshot(txCtx, pos.ProductID, pos.VariationID, pos.SubeventID)
			if err != nil {
				return err
			}

			var voucher *domain.Voucher
			if code != "" {
				voucher, err = s.repo.GetVoucherByCode(txCtx, pos.EventID, code)
				if err != nil {
					return err
				}
				if voucher == nil {
					return domain.ErrVoucherInvalid
				}
				if !voucher.ValidAt(now) {
					return domain.ErrVoucherInvalid
				}
				if voucher.BudgetLeft() == 0 {
					return domain.ErrVoucherExhausted
				}
				if !voucher.AppliesTo(pos.ProductID, pos.VariationID) {
					// Voucher does not cover this line; leave it as is.
					updated = append(updated, pos)
					continue
				}
			}

			line, err := pricing.Line(pricing.LineInput{
				ListedPrice:      pos.ListedPrice,
				TaxRule:          snap.TaxRule,
				Voucher:          voucher,
				CustomPrice:      pos.CustomPriceInput,
				FreePrice:        snap.Product.FreePrice,
				DisplayNetPrices: pos.CustomPriceIsNet,
				BundledGross:     bundledGrossFor(positions, pos.ID),
				Currency:         snap.Event.Currency,
			})
			if err != nil {
				return err
			}

			pos.VoucherID = ""
			if voucher != nil {
				pos.VoucherID = voucher.ID
			}
			pos.PriceAfterVoucher = line.PriceAfterVoucher
			pos.TaxRate = snap.TaxRule.Rate
			pos.LinePriceGross = line.Price.Gross
			pos.LinePriceNet = line.Price.Net
			if err := s.repo.UpdateCartPosition(txCtx, pos); err != nil {
				return err
			}
			updated = append(updated, pos)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ExtendCart pushes the cart's expiry forward. Unexpired positions keep
// their frozen listed price; positions that already lapsed are re-priced
// from the current catalog (the one case where the snapshot is retaken) and
// dropped if their quota is gone.
func (s *CartService) ExtendCart(ctx context.Context, cartID string) ([]domain.CartPosition, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.reservationTTL)
	var kept []domain.CartPosition

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		positions, err := s.repo.ListCartPositions(txCtx, cartID)
		if err != nil {
			return err
		}
		if len(positions) == 0 {
			return domain.ErrCartNotFound
		}

		for _, pos := range positions {
			if pos.Status != domain.CartStatusActive {
				continue
			}
			if !pos.ExpiredAt(now) {
				pos.ExpiresAt = expiresAt
				if err := s.repo.UpdateCartPosition(txCtx, pos); err != nil {
					return err
				}
				kept = append(kept, pos)
				continue
			}

			snap, err := s.repo.GetCatalogSnapshot(txCtx, pos.ProductID, pos.VariationID, pos.SubeventID)
			if err != nil {
				return err
			}
			if !snap.Product.OnSaleAt(now) {
				if err := s.repo.DeleteCartPosition(txCtx, pos.ID); err != nil {
					return err
				}
				continue
			}
			checkIn := AddToCartInput{
				ProductID:   pos.ProductID,
				VariationID: pos.VariationID,
				SubeventID:  pos.SubeventID,
				Quantity:    1,
			}
			if err := s.checkAvailability(txCtx, checkIn, snap, nil, nil, now); err != nil {
				if err == domain.ErrQuotaUnavailable {
					if err := s.repo.DeleteCartPosition(txCtx, pos.ID); err != nil {
						return err
					}
					continue
				}
				return err
			}

			listed := pricing.ListedPrice(snap.Product, snap.Variation, snap.Override)
			line, err := pricing.Line(pricing.LineInput{
				ListedPrice:      listed,
				TaxRule:          snap.TaxRule,
				CustomPrice:      pos.CustomPriceInput,
				FreePrice:        snap.Product.FreePrice,
				DisplayNetPrices: pos.CustomPriceIsNet,
				BundledGross:     bundledGrossFor(positions, pos.ID),
				Currency:         snap.Event.Currency,
			})
			if err != nil {
				return err
			}
			pos.ListedPrice = listed
			pos.VoucherID = ""
			pos.PriceAfterVoucher = line.PriceAfterVoucher
			pos.TaxRate = snap.TaxRule.Rate
			pos.LinePriceGross = line.Price.Gross
			pos.LinePriceNet = line.Price.Net
			pos.ExpiresAt = expiresAt
			if err := s.repo.UpdateCartPosition(txCtx, pos); err != nil {
				return err
			}
			kept = append(kept, pos)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return kept, nil
}

// ExpireSweep deletes provably-expired cart positions. It intentionally
// takes no allocation locks: once the expiry timestamp is in the past the
// ledger no longer counts the reservation, so deletion cannot race a
// capacity check.
func (s *CartService) ExpireSweep(ctx context.Context) (int, error) {
	return s.repo.DeleteExpired(ctx, s.clock.Now())
}

func activePositions(positions []domain.CartPosition, now time.Time) []domain.CartPosition {
	var active []domain.CartPosition
	for _, p := range positions {
		if p.Status == domain.CartStatusActive && !p.ExpiredAt(now) {
			active = append(active, p)
		}
	}
	return active
}

func bundledGrossFor(positions []domain.CartPosition, parentID string) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		if p.BundleParentID == parentID {
			total = total.Add(p.LinePriceGross)
		}
	}
	return total
}
