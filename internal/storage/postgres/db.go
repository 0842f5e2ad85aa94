package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seatsurge/boxoffice/internal/app"
	"github.com/seatsurge/boxoffice/internal/domain"
	"github.com/seatsurge/boxoffice/internal/inventory"
)

// db routes statements through the context transaction when one is open.
// Every repository embeds it.
type db struct {
	pool *pgxpool.Pool
}

func (d db) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, d.pool, fn)
}

func (d db) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return d.pool.Exec(ctx, sql, args...)
}

func (d db) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return d.pool.QueryRow(ctx, sql, args...)
}

func (d db) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return d.pool.Query(ctx, sql, args...)
}

// getCatalogSnapshot reads product, variation, date override, tax rule and
// bundles in one go. Inside a transaction this is a consistent view of the
// catalog configuration.
func (d db) getCatalogSnapshot(ctx context.Context, productID, variationID, subeventID string) (app.CatalogSnapshot, error) {
	const productQuery = `
SELECT p.id, p.event_id, p.name, p.default_price, p.free_price, p.admission, p.active,
       p.available_from, p.available_until,
       t.id, t.event_id, COALESCE(t.name, ''), t.rate, t.price_includes_tax,
       e.id, e.name, e.currency, e.starts_at
FROM products p
JOIN events e ON e.id = p.event_id
JOIN tax_rules t ON t.id = p.tax_rule_id
WHERE p.id = $1`

	var snap app.CatalogSnapshot
	err := d.queryRow(ctx, productQuery, productID).Scan(
		&snap.Product.ID, &snap.Product.EventID, &snap.Product.Name, &snap.Product.DefaultPrice,
		&snap.Product.FreePrice, &snap.Product.Admission, &snap.Product.Active,
		&snap.Product.AvailableFrom, &snap.Product.AvailableUntil,
		&snap.TaxRule.ID, &snap.TaxRule.EventID, &snap.TaxRule.Name, &snap.TaxRule.Rate, &snap.TaxRule.PriceIncludesTax,
		&snap.Event.ID, &snap.Event.Name, &snap.Event.Currency, &snap.Event.StartsAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return app.CatalogSnapshot{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return app.CatalogSnapshot{}, domain.ErrProductNotFound
		}
		return app.CatalogSnapshot{}, fmt.Errorf("get product: %w", err)
	}
	snap.Product.TaxRuleID = snap.TaxRule.ID

	if variationID != "" {
		const variationQuery = `
SELECT id, product_id, name, price, active FROM variations WHERE id = $1 AND product_id = $2`
		var v domain.Variation
		err := d.queryRow(ctx, variationQuery, variationID, productID).
			Scan(&v.ID, &v.ProductID, &v.Name, &v.Price, &v.Active)
		if err != nil {
			if isInvalidUUID(err) {
				return app.CatalogSnapshot{}, domain.ErrInvalidID
			}
			if err == pgx.ErrNoRows {
				return app.CatalogSnapshot{}, domain.ErrVariationNotFound
			}
			return app.CatalogSnapshot{}, fmt.Errorf("get variation: %w", err)
		}
		snap.Variation = &v
	}

	if subeventID != "" {
		const overrideQuery = `
SELECT subevent_id, product_id, COALESCE(variation_id::text, ''), price, disabled
FROM date_overrides
WHERE subevent_id = $1 AND product_id = $2
  AND (variation_id IS NULL OR variation_id::text = $3)
ORDER BY variation_id NULLS LAST
LIMIT 1`
		var o domain.DateOverride
		err := d.queryRow(ctx, overrideQuery, subeventID, productID, variationID).
			Scan(&o.SubeventID, &o.ProductID, &o.VariationID, &o.Price, &o.Disabled)
		if err != nil && err != pgx.ErrNoRows {
			if isInvalidUUID(err) {
				return app.CatalogSnapshot{}, domain.ErrInvalidID
			}
			return app.CatalogSnapshot{}, fmt.Errorf("get date override: %w", err)
		}
		if err == nil {
			snap.Override = &o
		}
	}

	const bundleQuery = `
SELECT id, parent_product_id, bundled_product_id, COALESCE(bundled_variation_id::text, ''), count, designated_price
FROM bundles
WHERE parent_product_id = $1
ORDER BY id`
	rows, err := d.query(ctx, bundleQuery, productID)
	if err != nil {
		return app.CatalogSnapshot{}, fmt.Errorf("list bundles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b domain.Bundle
		if err := rows.Scan(&b.ID, &b.ParentProductID, &b.BundledProductID, &b.BundledVariationID, &b.Count, &b.DesignatedPrice); err != nil {
			return app.CatalogSnapshot{}, fmt.Errorf("scan bundle: %w", err)
		}
		snap.Bundles = append(snap.Bundles, b)
	}
	if rows.Err() != nil {
		return app.CatalogSnapshot{}, fmt.Errorf("iterate bundles: %w", rows.Err())
	}
	return snap, nil
}

// listQuotasFor returns every quota covering a product reference: quotas
// scoped to the given subevent plus event-wide ones.
func (d db) listQuotasFor(ctx context.Context, productID, variationID, subeventID string) ([]domain.Quota, error) {
	const query = `
SELECT DISTINCT q.id, q.event_id, COALESCE(q.subevent_id::text, ''), q.name, q.size, q.close_when_sold_out, q.closed
FROM quotas q
JOIN quota_members qm ON qm.quota_id = q.id
WHERE qm.product_id = $1
  AND ($2 = '' OR qm.variation_id IS NULL OR qm.variation_id::text = $2)
  AND (q.subevent_id IS NULL OR ($3 <> '' AND q.subevent_id::text = $3))
ORDER BY q.id`

	rows, err := d.query(ctx, query, productID, variationID, subeventID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list quotas: %w", err)
	}
	defer rows.Close()

	var quotas []domain.Quota
	for rows.Next() {
		var q domain.Quota
		if err := rows.Scan(&q.ID, &q.EventID, &q.SubeventID, &q.Name, &q.Size, &q.CloseWhenSoldOut, &q.Closed); err != nil {
			return nil, fmt.Errorf("scan quota: %w", err)
		}
		quotas = append(quotas, q)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate quotas: %w", rows.Err())
	}
	return quotas, nil
}

// quotaCounts aggregates the claims against each quota: confirmed order
// positions, live cart reservations (optionally excluding one cart) and
// remaining budget of quota-blocking vouchers.
func (d db) quotaCounts(ctx context.Context, quotaIDs []string, excludeCartID string, now time.Time) (map[string]inventory.Counts, error) {
	const confirmedQuery = `
SELECT COUNT(*)
FROM order_positions op
JOIN quotas q ON q.id = $1
JOIN quota_members qm ON qm.quota_id = q.id
  AND qm.product_id = op.product_id
  AND (qm.variation_id IS NULL OR qm.variation_id::text = COALESCE(op.variation_id::text, ''))
WHERE q.subevent_id IS NULL OR q.subevent_id::text = COALESCE(op.subevent_id::text, '')`

	const reservedQuery = `
SELECT COUNT(*)
FROM cart_positions cp
JOIN quotas q ON q.id = $1
JOIN quota_members qm ON qm.quota_id = q.id
  AND qm.product_id = cp.product_id
  AND (qm.variation_id IS NULL OR qm.variation_id::text = COALESCE(cp.variation_id::text, ''))
WHERE cp.status = 'active'
  AND cp.expires_at > $2
  AND ($3 = '' OR cp.cart_id::text <> $3)
  AND (q.subevent_id IS NULL OR q.subevent_id::text = COALESCE(cp.subevent_id::text, ''))`

	const blockedQuery = `
SELECT COALESCE(SUM(GREATEST(max_usages - redeemed, 0)), 0)
FROM vouchers
WHERE block_quota
  AND quota_id = $1
  AND (valid_until IS NULL OR valid_until > $2)`

	counts := make(map[string]inventory.Counts, len(quotaIDs))
	for _, id := range quotaIDs {
		var c inventory.Counts
		if err := d.queryRow(ctx, confirmedQuery, id).Scan(&c.Confirmed); err != nil {
			return nil, fmt.Errorf("count confirmed for quota %s: %w", id, err)
		}
		if err := d.queryRow(ctx, reservedQuery, id, now, excludeCartID).Scan(&c.Reserved); err != nil {
			return nil, fmt.Errorf("count reserved for quota %s: %w", id, err)
		}
		if err := d.queryRow(ctx, blockedQuery, id, now).Scan(&c.Blocked); err != nil {
			return nil, fmt.Errorf("count blocked for quota %s: %w", id, err)
		}
		counts[id] = c
	}
	return counts, nil
}
