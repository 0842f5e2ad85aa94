package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/seatsurge/boxoffice/internal/clock"
	"github.com/seatsurge/boxoffice/internal/discount"
	"github.com/seatsurge/boxoffice/internal/domain"
	"github.com/seatsurge/boxoffice/internal/inventory"
	"github.com/seatsurge/boxoffice/internal/locking"
	"github.com/seatsurge/boxoffice/internal/pricing"
)

// OrderRepository is everything the allocator needs from storage. All of it
// runs inside the transaction opened by the lock coordinator.
type OrderRepository interface {
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	ListCartPositions(ctx context.Context, cartID string) ([]domain.CartPosition, error)
	ListQuotasFor(ctx context.Context, productID, variationID, subeventID string) ([]domain.Quota, error)
	// QuotaCountsExcludingCart counts confirmed allocations, blocked voucher
	// budget and other carts' live reservations; the caller's own cart is
	// excluded because it is about to convert.
	QuotaCountsExcludingCart(ctx context.Context, quotaIDs []string, cartID string, now time.Time) (map[string]inventory.Counts, error)
	GetVoucherForUpdate(ctx context.Context, voucherID string) (domain.Voucher, error)
	IncrementVoucherRedeemed(ctx context.Context, voucherID string, by int) error
	GetCatalogSnapshot(ctx context.Context, productID, variationID, subeventID string) (CatalogSnapshot, error)
	ListDiscounts(ctx context.Context, eventID string) ([]domain.Discount, error)
	CreateOrder(ctx context.Context, order domain.Order, positions []domain.OrderPosition) error
	MarkCartConverted(ctx context.Context, cartID string, now time.Time) error
	CloseQuota(ctx context.Context, quotaID string) error
}

// OrderService converts carts into durable orders: acquire locks in
// canonical order, re-check availability authoritatively, debit vouchers,
// catch price drift against the frozen inputs, reconcile rounding and write
// everything in one transaction.
type OrderService struct {
	repo         OrderRepository
	coord        locking.Coordinator
	clock        clock.Clock
	logger       *zap.Logger
	roundingMode domain.RoundingMode
	abortOnDrift bool
}

type OrderServiceOption func(*OrderService)

// WithRoundingMode selects the tax reconciliation algorithm (default line).
func WithRoundingMode(m domain.RoundingMode) OrderServiceOption {
	return func(s *OrderService) {
		if m != "" {
			s.roundingMode = m
		}
	}
}

// WithPriceDriftAbort rejects the conversion when the recomputed price no
// longer matches the frozen cart price, instead of charging the frozen
// price and flagging the order.
func WithPriceDriftAbort() OrderServiceOption {
	return func(s *OrderService) {
		s.abortOnDrift = true
	}
}

func NewOrderService(repo OrderRepository, coord locking.Coordinator, clk clock.Clock, logger *zap.Logger, opts ...OrderServiceOption) *OrderService {
	svc := &OrderService{
		repo:         repo,
		coord:        coord,
		clock:        clk,
		logger:       logger,
		roundingMode: domain.RoundingLine,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CreateOrderInput struct {
	CartID         string
	IdempotencyKey string
}

type CreateOrderResult struct {
	Order     domain.Order
	Positions []domain.OrderPosition
	Created   bool
}

func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (CreateOrderResult, error) {
	if in.IdempotencyKey == "" {
		return CreateOrderResult{}, domain.ErrIdempotencyKeyRequired
	}

	if existing, err := s.repo.GetOrderByIdempotencyKey(ctx, in.IdempotencyKey); err != nil {
		return CreateOrderResult{}, err
	} else if existing != nil {
		return CreateOrderResult{Order: *existing, Created: false}, nil
	}

	now := s.clock.Now()
	positions, err := s.repo.ListCartPositions(ctx, in.CartID)
	if err != nil {
		return CreateOrderResult{}, err
	}
	if len(positions) == 0 {
		return CreateOrderResult{}, domain.ErrCartNotFound
	}
	active := activePositions(positions, now)
	if len(active) == 0 {
		return CreateOrderResult{}, domain.ErrCartExpired
	}

	// Collect every resource the attempt touches, then lock the full set in
	// canonical order. Quota membership is configuration, so reading it
	// before lock acquisition is safe.
	quotas, required, err := s.collectQuotas(ctx, active)
	if err != nil {
		return CreateOrderResult{}, err
	}
	quotaIDs := make([]string, 0, len(quotas))
	for id := range quotas {
		quotaIDs = append(quotaIDs, id)
	}
	voucherUses := map[string]int{}
	for _, pos := range active {
		if pos.VoucherID != "" {
			voucherUses[pos.VoucherID]++
		}
	}
	voucherIDs := make([]string, 0, len(voucherUses))
	for id := range voucherUses {
		voucherIDs = append(voucherIDs, id)
	}

	keys := locking.CanonicalKeys(quotaIDs, voucherIDs)
	if !locking.InCanonicalOrder(keys) {
		s.logger.Error("lock key derivation produced unsorted keys", zap.String("cart_id", in.CartID))
		return CreateOrderResult{}, domain.ErrLockOrderViolation
	}

	var result CreateOrderResult
	err = s.coord.WithLock(ctx, keys, func(txCtx context.Context) error {
		// Everything before this point was optimistic; repeat the decisive
		// checks under lock.
		if existing, err := s.repo.GetOrderByIdempotencyKey(txCtx, in.IdempotencyKey); err != nil {
			return err
		} else if existing != nil {
			result = CreateOrderResult{Order: *existing, Created: false}
			return nil
		}

		positions, err := s.repo.ListCartPositions(txCtx, in.CartID)
		if err != nil {
			return err
		}
		active := activePositions(positions, now)
		if len(active) == 0 {
			return domain.ErrCartExpired
		}

		vouchers, err := s.lockVouchers(txCtx, voucherUses, now)
		if err != nil {
			return err
		}

		if err := s.checkQuotasAuthoritative(txCtx, in.CartID, quotas, required, blockedClaims(vouchers, voucherUses), now); err != nil {
			return err
		}

		if err := s.redeemVouchers(txCtx, voucherUses); err != nil {
			return err
		}

		orderPositions, currency, drift, err := s.priceAndReconcile(txCtx, active, vouchers)
		if err != nil {
			return err
		}
		if drift {
			if s.abortOnDrift {
				return domain.ErrPriceMismatch
			}
			s.logger.Warn("price drift at order commit, charging frozen price",
				zap.String("cart_id", in.CartID))
		}

		order := domain.Order{
			ID:             newID(),
			EventID:        active[0].EventID,
			CartID:         in.CartID,
			IdempotencyKey: in.IdempotencyKey,
			Currency:       currency,
			PriceDrift:     drift,
			CreatedAt:      now,
		}
		for i := range orderPositions {
			orderPositions[i].OrderID = order.ID
			order.TotalGross = order.TotalGross.Add(orderPositions[i].PriceGross)
		}

		if err := s.repo.CreateOrder(txCtx, order, orderPositions); err != nil {
			if err == domain.ErrIdempotencyConflict {
				// A concurrent attempt with the same key won the race.
				existing, err := s.repo.GetOrderByIdempotencyKey(txCtx, in.IdempotencyKey)
				if err != nil {
					return err
				}
				if existing != nil {
					result = CreateOrderResult{Order: *existing, Created: false}
					return nil
				}
			}
			return err
		}
		if err := s.repo.MarkCartConverted(txCtx, in.CartID, now); err != nil {
			return err
		}
		if err := s.closeSoldOutQuotas(txCtx, in.CartID, quotas, now); err != nil {
			return err
		}

		result = CreateOrderResult{Order: order, Positions: orderPositions, Created: true}
		return nil
	})
	if err != nil {
		return CreateOrderResult{}, err
	}
	return result, nil
}

func (s *OrderService) collectQuotas(ctx context.Context, positions []domain.CartPosition) (map[string]domain.Quota, map[string]int, error) {
	quotas := map[string]domain.Quota{}
	required := map[string]int{}
	for _, pos := range positions {
		qs, err := s.repo.ListQuotasFor(ctx, pos.ProductID, pos.VariationID, pos.SubeventID)
		if err != nil {
			return nil, nil, err
		}
		if len(qs) == 0 {
			return nil, nil, domain.ErrQuotaNotFound
		}
		for _, q := range qs {
			quotas[q.ID] = q
			required[q.ID]++
		}
	}
	return quotas, required, nil
}

// checkQuotasAuthoritative is the commit-time availability check, run under
// the advisory locks; skipping this re-check is the classic oversell bug.
// Only committed allocations and blocked voucher budget decide here. Other
// carts' reservations are advisory, and counting them would let competing
// converters starve each other out of a quota that can still seat one of
// them. The serial lock order guarantees the first committer wins and the
// rest see its confirmed rows.
func (s *OrderService) checkQuotasAuthoritative(ctx context.Context, cartID string, quotas map[string]domain.Quota, required map[string]int, ownBlocked map[string]int, now time.Time) error {
	ids := make([]string, 0, len(quotas))
	for id := range quotas {
		ids = append(ids, id)
	}
	counts, err := s.repo.QuotaCountsExcludingCart(ctx, ids, cartID, now)
	if err != nil {
		return err
	}
	for id, q := range quotas {
		if err := inventory.CheckInvariant(q, counts[id]); err != nil {
			s.logger.Error("capacity invariant violated", zap.String("quota_id", id), zap.Error(err))
			return err
		}
		c := counts[id]
		c.Reserved = 0
		// Units this conversion redeems from a quota-blocking voucher are
		// already inside that voucher's blocked budget; counting them again
		// would refuse the very holder the block reserves capacity for.
		c.Blocked -= ownBlocked[id]
		if c.Blocked < 0 {
			c.Blocked = 0
		}
		avail := inventory.Compute(q, c)
		if avail.Closed || (!avail.Unlimited && required[id] > avail.Remaining) {
			return domain.ErrQuotaExceeded
		}
	}
	return nil
}

// blockedClaims maps quota id to the number of units the conversion will
// redeem through quota-blocking vouchers on that quota.
func blockedClaims(vouchers map[string]domain.Voucher, uses map[string]int) map[string]int {
	claims := map[string]int{}
	for id, v := range vouchers {
		if v.BlockQuota && v.QuotaID != "" {
			claims[v.QuotaID] += uses[id]
		}
	}
	return claims
}

// lockVouchers row-locks every voucher the cart redeems and validates it;
// the redemption counter is only bumped after the quota check passes.
func (s *OrderService) lockVouchers(ctx context.Context, uses map[string]int, now time.Time) (map[string]domain.Voucher, error) {
	vouchers := map[string]domain.Voucher{}
	for id, n := range uses {
		v, err := s.repo.GetVoucherForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		if !v.ValidAt(now) {
			return nil, domain.ErrVoucherInvalid
		}
		if v.BudgetLeft() < n {
			return nil, domain.ErrVoucherExhausted
		}
		vouchers[id] = v
	}
	return vouchers, nil
}

func (s *OrderService) redeemVouchers(ctx context.Context, uses map[string]int) error {
	for id, n := range uses {
		if err := s.repo.IncrementVoucherRedeemed(ctx, id, n); err != nil {
			return err
		}
	}
	return nil
}

// priceAndReconcile re-runs the price engine against the frozen listed
// price, applies automatic discounts and reconciles rounding per tax rate.
// Drift between the recomputed and the frozen price never changes what is
// charged; the caller decides whether to flag the order or abort.
func (s *OrderService) priceAndReconcile(ctx context.Context, active []domain.CartPosition, vouchers map[string]domain.Voucher) ([]domain.OrderPosition, string, bool, error) {
	drift := false
	currency := ""

	for _, pos := range active {
		if pos.BundleParentID != "" {
			continue
		}
		snap, err := s.repo.GetCatalogSnapshot(ctx, pos.ProductID, pos.VariationID, pos.SubeventID)
		if err != nil {
			return nil, "", false, err
		}
		currency = snap.Event.Currency

		var voucher *domain.Voucher
		if pos.VoucherID != "" {
			if v, ok := vouchers[pos.VoucherID]; ok {
				voucher = &v
			}
		}
		line, err := pricing.Line(pricing.LineInput{
			ListedPrice:      pos.ListedPrice,
			TaxRule:          snap.TaxRule,
			Voucher:          voucher,
			CustomPrice:      pos.CustomPriceInput,
			FreePrice:        snap.Product.FreePrice,
			DisplayNetPrices: pos.CustomPriceIsNet,
			BundledGross:     bundledGrossFor(active, pos.ID),
			Currency:         snap.Event.Currency,
		})
		if err != nil {
			return nil, "", false, err
		}
		if !line.Price.Gross.Equal(pos.LinePriceGross) {
			drift = true
		}
	}

	// Automatic discounts run once, at initial cart-to-order creation.
	discounts, err := s.repo.ListDiscounts(ctx, active[0].EventID)
	if err != nil {
		return nil, "", false, err
	}
	finalGross := applyDiscounts(discounts, active, currency)

	orderPositions := make([]domain.OrderPosition, 0, len(active))
	places := pricing.Places(currency)
	for i, pos := range active {
		taxed := pricing.FromGross(finalGross[i], pos.TaxRate, places)
		orderPositions = append(orderPositions, domain.OrderPosition{
			ID:                newID(),
			ProductID:         pos.ProductID,
			VariationID:       pos.VariationID,
			SubeventID:        pos.SubeventID,
			VoucherID:         pos.VoucherID,
			ListedPrice:       pos.ListedPrice,
			PriceAfterVoucher: pos.PriceAfterVoucher,
			TaxRate:           pos.TaxRate,
			PriceGross:        taxed.Gross,
			PriceNet:          taxed.Net,
			TaxValue:          taxed.Tax,
		})
	}

	if err := s.reconcileRounding(orderPositions, currency); err != nil {
		return nil, "", false, err
	}
	return orderPositions, currency, drift, nil
}

// reconcileRounding groups positions by tax rate and applies the configured
// rounding algorithm so that sum(net) + sum(tax) == sum(gross) exactly.
func (s *OrderService) reconcileRounding(positions []domain.OrderPosition, currency string) error {
	if s.roundingMode == domain.RoundingLine {
		return nil
	}
	byRate := map[string][]int{}
	for i, p := range positions {
		key := p.TaxRate.String()
		byRate[key] = append(byRate[key], i)
	}
	for _, idxs := range byRate {
		lines := make([]pricing.TaxedPrice, len(idxs))
		for n, i := range idxs {
			lines[n] = pricing.TaxedPrice{
				Net:   positions[i].PriceNet,
				Tax:   positions[i].TaxValue,
				Gross: positions[i].PriceGross,
				Rate:  positions[i].TaxRate,
			}
		}
		rule := domain.TaxRule{Rate: lines[0].Rate, PriceIncludesTax: true}
		adjusted, err := pricing.Reconcile(s.roundingMode, rule, lines, currency)
		if err != nil {
			s.logger.Error("rounding reconciliation diverged", zap.Error(err))
			return err
		}
		for n, i := range idxs {
			positions[i].PriceNet = adjusted[n].Net
			positions[i].TaxValue = adjusted[n].Tax
			positions[i].PriceGross = adjusted[n].Gross
		}
	}
	return nil
}

// closeSoldOutQuotas makes close_when_sold_out quotas sticky once this
// order consumed the last unit. Runs after the order rows are written, so
// the fresh counts already include this order's debit.
func (s *OrderService) closeSoldOutQuotas(ctx context.Context, cartID string, quotas map[string]domain.Quota, now time.Time) error {
	ids := make([]string, 0, len(quotas))
	for id, q := range quotas {
		if q.CloseWhenSoldOut && !q.Closed {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	counts, err := s.repo.QuotaCountsExcludingCart(ctx, ids, cartID, now)
	if err != nil {
		return err
	}
	for _, id := range ids {
		avail := inventory.Compute(quotas[id], counts[id])
		if !avail.Unlimited && avail.Remaining <= 0 {
			if err := s.repo.CloseQuota(ctx, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyDiscounts(rules []domain.Discount, active []domain.CartPosition, currency string) []decimal.Decimal {
	lines := make([]discount.Line, len(active))
	for i, pos := range active {
		lines[i] = discount.Line{
			ProductID:  pos.ProductID,
			SubeventID: pos.SubeventID,
			Price:      pos.LinePriceGross,
		}
	}
	adjusted := discount.Apply(rules, lines, currency)
	out := make([]decimal.Decimal, len(adjusted))
	for i, l := range adjusted {
		out[i] = l.Price
	}
	return out
}
