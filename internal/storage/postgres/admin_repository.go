package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seatsurge/boxoffice/internal/domain"
	"github.com/seatsurge/boxoffice/internal/inventory"
)

// AdminRepository covers the organizer-facing writes plus the shop-front
// reads that only touch configuration.
type AdminRepository struct {
	db
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{db{pool: pool}}
}

func (r *AdminRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `INSERT INTO events (id, name, currency, starts_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.exec(ctx, stmt, event.ID, event.Name, event.Currency, event.StartsAt); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := r.query(ctx, `SELECT id, name, currency, starts_at FROM events ORDER BY starts_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Currency, &e.StartsAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate events: %w", rows.Err())
	}
	return events, nil
}

func (r *AdminRepository) CreateSubevent(ctx context.Context, sub domain.Subevent) error {
	const stmt = `INSERT INTO subevents (id, event_id, name, starts_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.exec(ctx, stmt, sub.ID, sub.EventID, sub.Name, sub.StartsAt); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create subevent: %w", err)
	}
	return nil
}

func (r *AdminRepository) CreateTaxRule(ctx context.Context, rule domain.TaxRule) error {
	const stmt = `
INSERT INTO tax_rules (id, event_id, name, rate, price_includes_tax)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.exec(ctx, stmt, rule.ID, rule.EventID, rule.Name, rule.Rate, rule.PriceIncludesTax); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create tax rule: %w", err)
	}
	return nil
}

func (r *AdminRepository) CreateProduct(ctx context.Context, product domain.Product) error {
	const stmt = `
INSERT INTO products (id, event_id, name, default_price, free_price, admission, active,
	available_from, available_until, tax_rule_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.exec(ctx, stmt,
		product.ID, product.EventID, product.Name, product.DefaultPrice,
		product.FreePrice, product.Admission, product.Active,
		product.AvailableFrom, product.AvailableUntil, product.TaxRuleID,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		switch c := foreignKeyConstraint(err); {
		case strings.Contains(c, "tax_rule"):
			return domain.ErrTaxRuleNotFound
		case strings.Contains(c, "event"):
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListProducts(ctx context.Context, eventID string) ([]domain.Product, error) {
	const query = `
SELECT id, event_id, name, default_price, free_price, admission, active,
       available_from, available_until, tax_rule_id
FROM products
WHERE event_id = $1
ORDER BY name, id`

	rows, err := r.query(ctx, query, eventID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID, &p.EventID, &p.Name, &p.DefaultPrice, &p.FreePrice, &p.Admission, &p.Active,
			&p.AvailableFrom, &p.AvailableUntil, &p.TaxRuleID,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate products: %w", rows.Err())
	}
	return products, nil
}

func (r *AdminRepository) CreateVariation(ctx context.Context, v domain.Variation) error {
	const stmt = `INSERT INTO variations (id, product_id, name, price, active) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.exec(ctx, stmt, v.ID, v.ProductID, v.Name, v.Price, v.Active); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create variation: %w", err)
	}
	return nil
}

func (r *AdminRepository) CreateDateOverride(ctx context.Context, o domain.DateOverride) error {
	const stmt = `
INSERT INTO date_overrides (subevent_id, product_id, variation_id, price, disabled)
VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5)`
	if _, err := r.exec(ctx, stmt, o.SubeventID, o.ProductID, o.VariationID, o.Price, o.Disabled); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create date override: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListQuotasFor(ctx context.Context, productID, variationID, subeventID string) ([]domain.Quota, error) {
	return r.listQuotasFor(ctx, productID, variationID, subeventID)
}

func (r *AdminRepository) QuotaCounts(ctx context.Context, quotaIDs []string, now time.Time) (map[string]inventory.Counts, error) {
	return r.quotaCounts(ctx, quotaIDs, "", now)
}

// CreateQuota writes the quota and its membership rows in one transaction.
func (r *AdminRepository) CreateQuota(ctx context.Context, quota domain.Quota) error {
	return r.WithTx(ctx, func(txCtx context.Context) error {
		const quotaStmt = `
INSERT INTO quotas (id, event_id, subevent_id, name, size, close_when_sold_out, closed)
VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7)`
		_, err := r.exec(txCtx, quotaStmt,
			quota.ID, quota.EventID, quota.SubeventID, quota.Name,
			quota.Size, quota.CloseWhenSoldOut, quota.Closed,
		)
		if err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			return fmt.Errorf("create quota: %w", err)
		}

		const memberStmt = `
INSERT INTO quota_members (quota_id, product_id, variation_id)
VALUES ($1, $2, NULLIF($3, '')::uuid)`
		for _, m := range quota.Members {
			if _, err := r.exec(txCtx, memberStmt, quota.ID, m.ProductID, m.VariationID); err != nil {
				if isInvalidUUID(err) {
					return domain.ErrInvalidID
				}
				return fmt.Errorf("create quota member: %w", err)
			}
		}
		return nil
	})
}

func (r *AdminRepository) ReopenQuota(ctx context.Context, quotaID string) error {
	tag, err := r.exec(ctx, `UPDATE quotas SET closed = FALSE WHERE id = $1`, quotaID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("reopen quota: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuotaNotFound
	}
	return nil
}

func (r *AdminRepository) CreateVoucher(ctx context.Context, voucher domain.Voucher) error {
	const stmt = `
INSERT INTO vouchers (id, event_id, code, max_usages, redeemed, valid_from, valid_until,
	block_quota, quota_id, product_id, variation_id, price_mode, value)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
	NULLIF($9, '')::uuid, NULLIF($10, '')::uuid, NULLIF($11, '')::uuid, $12, $13)`
	_, err := r.exec(ctx, stmt,
		voucher.ID, voucher.EventID, voucher.Code, voucher.MaxUsages, voucher.Redeemed,
		voucher.ValidFrom, voucher.ValidUntil, voucher.BlockQuota,
		voucher.QuotaID, voucher.ProductID, voucher.VariationID,
		voucher.PriceMode, voucher.Value,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVoucherInvalid
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create voucher: %w", err)
	}
	return nil
}

func (r *AdminRepository) CreateDiscount(ctx context.Context, d domain.Discount) error {
	const stmt = `
INSERT INTO discounts (id, event_id, position, active, limit_product_ids,
	condition_kind, min_count, min_value, subevent_mode, benefit_percent, only_cheapest_n)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.exec(ctx, stmt,
		d.ID, d.EventID, d.Position, d.Active, d.LimitProductIDs,
		d.Condition.Kind, d.Condition.MinCount, d.Condition.MinValue, d.Condition.SubeventMode,
		d.Benefit.Percent, d.Benefit.OnlyCheapestN,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create discount: %w", err)
	}
	return nil
}
