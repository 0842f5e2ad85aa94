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

type CartRepository struct {
	db
}

func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{db{pool: pool}}
}

func (r *CartRepository) GetCatalogSnapshot(ctx context.Context, productID, variationID, subeventID string) (app.CatalogSnapshot, error) {
	return r.getCatalogSnapshot(ctx, productID, variationID, subeventID)
}

func (r *CartRepository) ListQuotasFor(ctx context.Context, productID, variationID, subeventID string) ([]domain.Quota, error) {
	return r.listQuotasFor(ctx, productID, variationID, subeventID)
}

func (r *CartRepository) QuotaCounts(ctx context.Context, quotaIDs []string, now time.Time) (map[string]inventory.Counts, error) {
	return r.quotaCounts(ctx, quotaIDs, "", now)
}

func (r *CartRepository) GetVoucherByCode(ctx context.Context, eventID, code string) (*domain.Voucher, error) {
	const query = `
SELECT id, event_id, code, max_usages, redeemed, valid_from, valid_until,
       block_quota, COALESCE(quota_id::text, ''), COALESCE(product_id::text, ''), COALESCE(variation_id::text, ''),
       price_mode, value
FROM vouchers
WHERE event_id = $1 AND code = $2`

	var v domain.Voucher
	err := r.queryRow(ctx, query, eventID, code).Scan(
		&v.ID, &v.EventID, &v.Code, &v.MaxUsages, &v.Redeemed, &v.ValidFrom, &v.ValidUntil,
		&v.BlockQuota, &v.QuotaID, &v.ProductID, &v.VariationID, &v.PriceMode, &v.Value,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher by code: %w", err)
	}
	return &v, nil
}

func (r *CartRepository) CreateCartPositions(ctx context.Context, positions []domain.CartPosition) error {
	const stmt = `
INSERT INTO cart_positions (
	id, cart_id, event_id, product_id, variation_id, subevent_id, voucher_id, bundle_parent_id,
	listed_price, price_after_voucher, custom_price_input, custom_price_net, tax_rate,
	line_price_gross, line_price_net, status, expires_at, created_at
) VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, NULLIF($6, '')::uuid, NULLIF($7, '')::uuid, NULLIF($8, '')::uuid,
	$9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	for _, p := range positions {
		_, err := r.exec(ctx, stmt,
			p.ID, p.CartID, p.EventID, p.ProductID, p.VariationID, p.SubeventID, p.VoucherID, p.BundleParentID,
			p.ListedPrice, p.PriceAfterVoucher, p.CustomPriceInput, p.CustomPriceIsNet, p.TaxRate,
			p.LinePriceGross, p.LinePriceNet, p.Status, p.ExpiresAt, p.CreatedAt,
		)
		if err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			return fmt.Errorf("create cart position: %w", err)
		}
	}
	return nil
}

const cartPositionColumns = `
id, cart_id, event_id, product_id, COALESCE(variation_id::text, ''), COALESCE(subevent_id::text, ''),
COALESCE(voucher_id::text, ''), COALESCE(bundle_parent_id::text, ''),
listed_price, price_after_voucher, custom_price_input, custom_price_net, tax_rate,
line_price_gross, line_price_net, status, expires_at, created_at`

func (r *CartRepository) ListCartPositions(ctx context.Context, cartID string) ([]domain.CartPosition, error) {
	query := `SELECT ` + cartPositionColumns + ` FROM cart_positions WHERE cart_id = $1 ORDER BY created_at, id`

	rows, err := r.query(ctx, query, cartID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list cart positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.CartPosition
	for rows.Next() {
		var p domain.CartPosition
		if err := rows.Scan(
			&p.ID, &p.CartID, &p.EventID, &p.ProductID, &p.VariationID, &p.SubeventID,
			&p.VoucherID, &p.BundleParentID,
			&p.ListedPrice, &p.PriceAfterVoucher, &p.CustomPriceInput, &p.CustomPriceIsNet, &p.TaxRate,
			&p.LinePriceGross, &p.LinePriceNet, &p.Status, &p.ExpiresAt, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cart position: %w", err)
		}
		positions = append(positions, p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate cart positions: %w", rows.Err())
	}
	return positions, nil
}

func (r *CartRepository) UpdateCartPosition(ctx context.Context, pos domain.CartPosition) error {
	const stmt = `
UPDATE cart_positions
SET voucher_id = NULLIF($2, '')::uuid,
    listed_price = $3,
    price_after_voucher = $4,
    tax_rate = $5,
    line_price_gross = $6,
    line_price_net = $7,
    expires_at = $8
WHERE id = $1`

	tag, err := r.exec(ctx, stmt,
		pos.ID, pos.VoucherID, pos.ListedPrice, pos.PriceAfterVoucher,
		pos.TaxRate, pos.LinePriceGross, pos.LinePriceNet, pos.ExpiresAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update cart position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}

func (r *CartRepository) DeleteCartPosition(ctx context.Context, id string) error {
	_, err := r.exec(ctx, `DELETE FROM cart_positions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cart position: %w", err)
	}
	return nil
}

// DeleteExpired removes provably-expired positions. Runs without advisory
// locks: past-expiry reservations are already excluded from every
// availability computation by their timestamp.
func (r *CartRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.exec(ctx, `DELETE FROM cart_positions WHERE status = 'active' AND expires_at <= $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired cart positions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
