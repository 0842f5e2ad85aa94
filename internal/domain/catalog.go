package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is the sales container for products, quotas and vouchers.
type Event struct {
	ID       string
	Name     string
	Currency string
	StartsAt time.Time
}

// Subevent is one dated occurrence within a recurring event series.
type Subevent struct {
	ID       string
	EventID  string
	Name     string
	StartsAt time.Time
}

// Product is a sellable entity. Never hard-deleted once referenced by an
// order; Active plus the availability window control visibility.
type Product struct {
	ID             string
	EventID        string
	Name           string
	DefaultPrice   decimal.Decimal
	FreePrice      bool
	Admission      bool
	Active         bool
	AvailableFrom  *time.Time
	AvailableUntil *time.Time
	TaxRuleID      string
}

// OnSaleAt reports whether the product can be added to a cart at t.
func (p Product) OnSaleAt(t time.Time) bool {
	if !p.Active {
		return false
	}
	if p.AvailableFrom != nil && t.Before(*p.AvailableFrom) {
		return false
	}
	if p.AvailableUntil != nil && t.After(*p.AvailableUntil) {
		return false
	}
	return true
}

// Variation is an optional per-product price override.
type Variation struct {
	ID        string
	ProductID string
	Name      string
	Price     *decimal.Decimal
	Active    bool
}

// DateOverride is a subevent-level price override. Precedence:
// DateOverride > Variation > Product.
type DateOverride struct {
	SubeventID  string
	ProductID   string
	VariationID string
	Price       *decimal.Decimal
	Disabled    bool
}

// Bundle attaches a bundled product to a parent product. The designated
// price is what the bundled line is worth inside the bundle; it is
// subtracted from the parent before the parent's own taxed share is
// computed.
type Bundle struct {
	ID                 string
	ParentProductID    string
	BundledProductID   string
	BundledVariationID string
	Count              int
	DesignatedPrice    decimal.Decimal
}

// TaxRule defines how a stored price maps to a (net, rate, gross) triple.
// Rule objects can change going forward but must never retroactively alter
// already-priced lines, so priced lines carry their resolved rate.
type TaxRule struct {
	ID               string
	EventID          string
	Name             string
	Rate             decimal.Decimal
	PriceIncludesTax bool
}
