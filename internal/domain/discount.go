package domain

import "github.com/shopspring/decimal"

// DiscountConditionKind selects which threshold a discount rule checks.
// Modeled as a tagged variant instead of boolean flags so every rule is one
// explicit case.
type DiscountConditionKind string

const (
	ConditionMinCount DiscountConditionKind = "min_count"
	ConditionMinValue DiscountConditionKind = "min_value"
)

// SubeventMode controls how lines are grouped before condition matching.
type SubeventMode string

const (
	// SubeventModeMixed evaluates the condition over all matching lines.
	SubeventModeMixed SubeventMode = "mixed"
	// SubeventModeSame partitions lines by subevent and evaluates each
	// partition independently.
	SubeventModeSame SubeventMode = "same"
	// SubeventModeDistinct greedily builds groups of exactly MinCount lines
	// with pairwise distinct subevents.
	SubeventModeDistinct SubeventMode = "distinct"
)

// DiscountCondition is the trigger side of a rule.
type DiscountCondition struct {
	Kind         DiscountConditionKind
	MinCount     int
	MinValue     decimal.Decimal
	SubeventMode SubeventMode
}

// DiscountBenefit is the effect side of a rule. OnlyCheapestN of zero
// discounts every matched line; a positive value discounts only the N
// cheapest per full group of MinCount matches.
type DiscountBenefit struct {
	Percent       decimal.Decimal
	OnlyCheapestN int
}

// Discount is an ordered automatic rule applied at most once per cart
// position during cart-to-order creation.
type Discount struct {
	ID       string
	EventID  string
	Position int
	Active   bool
	// LimitProductIDs restricts the rule's scope; empty means all products.
	LimitProductIDs []string
	Condition       DiscountCondition
	Benefit         DiscountBenefit
}

// InScope reports whether a product is matched by the rule's product filter.
func (d Discount) InScope(productID string) bool {
	if len(d.LimitProductIDs) == 0 {
		return true
	}
	for _, id := range d.LimitProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}
