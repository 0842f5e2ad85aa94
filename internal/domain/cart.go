package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartPositionStatus is the cart position state machine:
// active -> expired -> (deleted | converted). Conversion is the only way
// out of active besides expiry.
type CartPositionStatus string

const (
	CartStatusActive    CartPositionStatus = "active"
	CartStatusConverted CartPositionStatus = "converted"
)

// CartPosition is one reserved unit at a locked-in price. ListedPrice is
// snapshotted at add time (or at explicit re-extension after expiry) and
// frozen thereafter; recomputes touch the other price fields only.
type CartPosition struct {
	ID          string
	CartID      string
	EventID     string
	ProductID   string
	VariationID string
	SubeventID  string
	VoucherID   string
	// BundleParentID links a bundled unit to the position it was sold with.
	BundleParentID string

	ListedPrice       decimal.Decimal
	PriceAfterVoucher decimal.Decimal
	CustomPriceInput  *decimal.Decimal
	// CustomPriceIsNet records which side of the price the custom input was
	// compared against at add time; every later recompute must reuse the
	// same basis or the charged price changes with identical inputs.
	CustomPriceIsNet bool
	TaxRate          decimal.Decimal
	LinePriceGross   decimal.Decimal
	LinePriceNet     decimal.Decimal

	Status    CartPositionStatus
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ExpiredAt reports whether the reservation has lapsed at t.
func (p CartPosition) ExpiredAt(t time.Time) bool {
	return !p.ExpiresAt.After(t)
}
