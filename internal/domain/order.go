package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundingMode selects how per-line taxes are reconciled against totals
// before an order is persisted.
type RoundingMode string

const (
	// RoundingLine rounds every line independently (default).
	RoundingLine RoundingMode = "line"
	// RoundingSumByNet anchors tax on the net total and adjusts the gross
	// of some lines by the minimum currency unit.
	RoundingSumByNet RoundingMode = "sum_by_net"
	// RoundingSumByNetKeepGross anchors tax on the net total but adjusts
	// line nets instead, keeping per-line gross stable.
	RoundingSumByNetKeepGross RoundingMode = "sum_by_net_keep_gross"
)

// Order is a durable purchase created from a cart under lock.
type Order struct {
	ID             string
	EventID        string
	CartID         string
	IdempotencyKey string
	Currency       string
	TotalGross     decimal.Decimal
	// PriceDrift is set when the commit-time price recompute disagreed with
	// the frozen cart price. The frozen price is charged; the flag surfaces
	// the drift for operator review.
	PriceDrift bool
	CreatedAt  time.Time
}

// OrderPosition mirrors CartPosition's price fields, frozen after order
// creation. Further changes go through explicit audited change operations.
type OrderPosition struct {
	ID          string
	OrderID     string
	ProductID   string
	VariationID string
	SubeventID  string
	VoucherID   string

	ListedPrice       decimal.Decimal
	PriceAfterVoucher decimal.Decimal
	TaxRate           decimal.Decimal
	PriceGross        decimal.Decimal
	PriceNet          decimal.Decimal
	TaxValue          decimal.Decimal
}
