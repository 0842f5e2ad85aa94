package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seatsurge/boxoffice/internal/app"
	"github.com/seatsurge/boxoffice/internal/domain"
	"github.com/seatsurge/boxoffice/internal/inventory"
)

type OrderRepository struct {
	db
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db{pool: pool}}
}

func (r *OrderRepository) GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	const query = `
SELECT id, event_id, cart_id, idempotency_key, currency, total_gross, price_drift, created_at
FROM orders
WHERE idempotency_key = $1`

	var o domain.Order
	err := r.queryRow(ctx, query, key).Scan(
		&o.ID, &o.EventID, &o.CartID, &o.IdempotencyKey, &o.Currency,
		&o.TotalGross, &o.PriceDrift, &o.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by idempotency key: %w", err)
	}
	return &o, nil
}

func (r *OrderRepository) ListCartPositions(ctx context.Context, cartID string) ([]domain.CartPosition, error) {
	return (&CartRepository{r.db}).ListCartPositions(ctx, cartID)
}

func (r *OrderRepository) ListQuotasFor(ctx context.Context, productID, variationID, subeventID string) ([]domain.Quota, error) {
	return r.listQuotasFor(ctx, productID, variationID, subeventID)
}

func (r *OrderRepository) QuotaCountsExcludingCart(ctx context.Context, quotaIDs []string, cartID string, now time.Time) (map[string]inventory.Counts, error) {
	return r.quotaCounts(ctx, quotaIDs, cartID, now)
}

func (r *OrderRepository) GetCatalogSnapshot(ctx context.Context, productID, variationID, subeventID string) (app.CatalogSnapshot, error) {
	return r.getCatalogSnapshot(ctx, productID, variationID, subeventID)
}

// GetVoucherForUpdate row-locks the voucher so the budget check and the
// increment form one atomic debit.
func (r *OrderRepository) GetVoucherForUpdate(ctx context.Context, voucherID string) (domain.Voucher, error) {
	const query = `
SELECT id, event_id, code, max_usages, redeemed, valid_from, valid_until,
       block_quota, COALESCE(quota_id::text, ''), COALESCE(product_id::text, ''), COALESCE(variation_id::text, ''),
       price_mode, value
FROM vouchers
WHERE id = $1
FOR UPDATE`

	var v domain.Voucher
	err := r.queryRow(ctx, query, voucherID).Scan(
		&v.ID, &v.EventID, &v.Code, &v.MaxUsages, &v.Redeemed, &v.ValidFrom, &v.ValidUntil,
		&v.BlockQuota, &v.QuotaID, &v.ProductID, &v.VariationID, &v.PriceMode, &v.Value,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Voucher{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Voucher{}, domain.ErrVoucherInvalid
		}
		return domain.Voucher{}, fmt.Errorf("get voucher for update: %w", err)
	}
	return v, nil
}

// IncrementVoucherRedeemed debits the redemption budget. The WHERE guard is
// a second line of defense behind the row lock.
func (r *OrderRepository) IncrementVoucherRedeemed(ctx context.Context, voucherID string, by int) error {
	const stmt = `
UPDATE vouchers
SET redeemed = redeemed + $2
WHERE id = $1 AND redeemed + $2 <= max_usages`

	tag, err := r.exec(ctx, stmt, voucherID, by)
	if err != nil {
		return fmt.Errorf("increment voucher redeemed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVoucherExhausted
	}
	return nil
}

func (r *OrderRepository) ListDiscounts(ctx context.Context, eventID string) ([]domain.Discount, error) {
	const query = `
SELECT id, event_id, position, active, limit_product_ids,
       condition_kind, min_count, min_value, subevent_mode,
       benefit_percent, only_cheapest_n
FROM discounts
WHERE event_id = $1 AND active
ORDER BY position, id`

	rows, err := r.query(ctx, query, eventID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	defer rows.Close()

	var discounts []domain.Discount
	for rows.Next() {
		var d domain.Discount
		if err := rows.Scan(
			&d.ID, &d.EventID, &d.Position, &d.Active, &d.LimitProductIDs,
			&d.Condition.Kind, &d.Condition.MinCount, &d.Condition.MinValue, &d.Condition.SubeventMode,
			&d.Benefit.Percent, &d.Benefit.OnlyCheapestN,
		); err != nil {
			return nil, fmt.Errorf("scan discount: %w", err)
		}
		discounts = append(discounts, d)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate discounts: %w", rows.Err())
	}
	return discounts, nil
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order, positions []domain.OrderPosition) error {
	const orderStmt = `
INSERT INTO orders (id, event_id, cart_id, idempotency_key, currency, total_gross, price_drift, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, orderStmt,
		order.ID, order.EventID, order.CartID, order.IdempotencyKey,
		order.Currency, order.TotalGross, order.PriceDrift, order.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict
		}
		return fmt.Errorf("create order: %w", err)
	}

	const positionStmt = `
INSERT INTO order_positions (
	id, order_id, product_id, variation_id, subevent_id, voucher_id,
	listed_price, price_after_voucher, tax_rate, price_gross, price_net, tax_value
) VALUES ($1, $2, $3, NULLIF($4, '')::uuid, NULLIF($5, '')::uuid, NULLIF($6, '')::uuid, $7, $8, $9, $10, $11, $12)`

	for _, p := range positions {
		_, err := r.exec(ctx, positionStmt,
			p.ID, p.OrderID, p.ProductID, p.VariationID, p.SubeventID, p.VoucherID,
			p.ListedPrice, p.PriceAfterVoucher, p.TaxRate, p.PriceGross, p.PriceNet, p.TaxValue,
		)
		if err != nil {
			return fmt.Errorf("create order position: %w", err)
		}
	}
	return nil
}

// MarkCartConverted flips only positions that were still live at commit
// time; already-expired rows stay behind for the sweeper.
func (r *OrderRepository) MarkCartConverted(ctx context.Context, cartID string, now time.Time) error {
	const stmt = `
UPDATE cart_positions
SET status = 'converted'
WHERE cart_id = $1 AND status = 'active' AND expires_at > $2`

	if _, err := r.exec(ctx, stmt, cartID, now); err != nil {
		return fmt.Errorf("mark cart converted: %w", err)
	}
	return nil
}

func (r *OrderRepository) CloseQuota(ctx context.Context, quotaID string) error {
	if _, err := r.exec(ctx, `UPDATE quotas SET closed = TRUE WHERE id = $1`, quotaID); err != nil {
		return fmt.Errorf("close quota: %w", err)
	}
	return nil
}
