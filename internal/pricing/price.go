// Package pricing computes taxed line prices. Every function is pure: the
// same inputs always produce the same TaxedPrice, and the listed price fed
// in here is a snapshot taken at cart-add time, so a shown price survives
// catalog changes for the reservation's lifetime.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/seatsurge/boxoffice/internal/domain"
)

// ListedPrice resolves the naive price shown to the customer. Precedence is
// DateOverride > Variation > Product default.
func ListedPrice(p domain.Product, v *domain.Variation, o *domain.DateOverride) decimal.Decimal {
	if o != nil && o.Price != nil {
		return *o.Price
	}
	if v != nil && v.Price != nil {
		return *v.Price
	}
	return p.DefaultPrice
}

// LineInput carries everything Line needs. ListedPrice must be the frozen
// add-time snapshot, never a fresh catalog read.
type LineInput struct {
	ListedPrice decimal.Decimal
	TaxRule     domain.TaxRule
	Voucher     *domain.Voucher
	// CustomPrice is the buyer-entered price, honored only with FreePrice.
	CustomPrice *decimal.Decimal
	FreePrice   bool
	// DisplayNetPrices selects whether CustomPrice is compared against the
	// net or the gross of the voucher-adjusted price.
	DisplayNetPrices bool
	// BundledGross is the sum of the designated gross prices of bundled
	// lines sold with this one; it is subtracted from the parent's gross
	// before the parent's own taxed share is computed.
	BundledGross decimal.Decimal
	Currency     string
}

// LineResult is the priced line plus the intermediate voucher-adjusted
// price, which the cart stores for commit-time drift detection.
type LineResult struct {
	Price             TaxedPrice
	PriceAfterVoucher decimal.Decimal
}

// Line prices a single cart line.
func Line(in LineInput) (LineResult, error) {
	places := Places(in.Currency)

	afterVoucher := in.ListedPrice
	if in.Voucher != nil {
		afterVoucher = in.Voucher.ApplyTo(in.ListedPrice, places)
	}

	taxed := Resolve(in.TaxRule, afterVoucher, places)

	// A custom price may only raise the price above the voucher-adjusted
	// value; lower inputs fall back to that floor.
	if in.FreePrice && in.CustomPrice != nil {
		custom := in.CustomPrice.Round(places)
		if custom.IsNegative() {
			return LineResult{}, domain.ErrFreePriceTooLow
		}
		shown := taxed.Gross
		if in.DisplayNetPrices {
			shown = taxed.Net
		}
		if custom.GreaterThan(shown) {
			if in.DisplayNetPrices {
				taxed = FromNet(custom, in.TaxRule.Rate, places)
			} else {
				taxed = FromGross(custom, in.TaxRule.Rate, places)
			}
		}
	}

	if in.BundledGross.IsPositive() {
		parentGross := taxed.Gross.Sub(in.BundledGross)
		if parentGross.IsNegative() {
			parentGross = decimal.Zero
		}
		taxed = FromGross(parentGross, in.TaxRule.Rate, places)
	}

	return LineResult{Price: taxed, PriceAfterVoucher: afterVoucher}, nil
}
