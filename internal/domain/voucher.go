package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// VoucherPriceMode controls how a voucher changes the listed price.
type VoucherPriceMode string

const (
	VoucherPriceNone     VoucherPriceMode = "none"
	VoucherPriceSet      VoucherPriceMode = "set"
	VoucherPriceSubtract VoucherPriceMode = "subtract"
	VoucherPricePercent  VoucherPriceMode = "percent"
)

// Voucher grants a discount, reserved capacity, or both. Consumed
// atomically on order creation; never used beyond MaxUsages.
type Voucher struct {
	ID         string
	EventID    string
	Code       string
	MaxUsages  int
	Redeemed   int
	ValidFrom  *time.Time
	ValidUntil *time.Time
	// BlockQuota vouchers reserve capacity in the bound quota while valid
	// and unredeemed.
	BlockQuota  bool
	QuotaID     string
	ProductID   string
	VariationID string
	PriceMode   VoucherPriceMode
	Value       decimal.Decimal
}

// BudgetLeft returns the remaining number of redemptions.
func (v Voucher) BudgetLeft() int {
	left := v.MaxUsages - v.Redeemed
	if left < 0 {
		return 0
	}
	return left
}

// ValidAt reports whether the voucher's validity window covers t.
func (v Voucher) ValidAt(t time.Time) bool {
	if v.ValidFrom != nil && t.Before(*v.ValidFrom) {
		return false
	}
	if v.ValidUntil != nil && t.After(*v.ValidUntil) {
		return false
	}
	return true
}

// AppliesTo reports whether the voucher may be used for the given
// product/variation pair. An unrestricted voucher applies to everything in
// its event.
func (v Voucher) AppliesTo(productID, variationID string) bool {
	if v.ProductID != "" && v.ProductID != productID {
		return false
	}
	if v.VariationID != "" && v.VariationID != variationID {
		return false
	}
	return true
}

// ApplyTo returns the voucher-adjusted price for a listed price. The
// adjustment happens on the naive listed price, before tax resolution.
func (v Voucher) ApplyTo(listed decimal.Decimal, places int32) decimal.Decimal {
	var adjusted decimal.Decimal
	switch v.PriceMode {
	case VoucherPriceSet:
		adjusted = v.Value
	case VoucherPriceSubtract:
		adjusted = listed.Sub(v.Value)
	case VoucherPricePercent:
		factor := decimal.NewFromInt(100).Sub(v.Value).Div(decimal.NewFromInt(100))
		adjusted = listed.Mul(factor).Round(places)
	default:
		return listed
	}
	if adjusted.IsNegative() {
		return decimal.Zero
	}
	return adjusted
}
