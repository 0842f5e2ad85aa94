package domain

// Quota is a named capacity pool. A product may belong to several quotas;
// its effective availability is the minimum remaining across all of them.
type Quota struct {
	ID      string
	EventID string
	// SubeventID scopes the quota to one occurrence; empty means the whole
	// event.
	SubeventID string
	Name       string
	// Size is nil for unlimited quotas.
	Size *int
	// CloseWhenSoldOut makes the quota close permanently the first time it
	// sells out. A closed quota reports zero availability regardless of
	// later releases until explicitly reopened.
	CloseWhenSoldOut bool
	Closed           bool
	Members          []QuotaMember
}

// QuotaMember ties a product (or one specific variation of it) to a quota.
type QuotaMember struct {
	ProductID   string
	VariationID string
}

// Unlimited reports whether the quota has no size cap.
func (q Quota) Unlimited() bool {
	return q.Size == nil
}

// Covers reports whether a product/variation pair counts against this quota.
func (q Quota) Covers(productID, variationID string) bool {
	for _, m := range q.Members {
		if m.ProductID != productID {
			continue
		}
		if m.VariationID == "" || m.VariationID == variationID {
			return true
		}
	}
	return false
}
