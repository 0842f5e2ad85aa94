package app

import "github.com/seatsurge/boxoffice/internal/domain"

// CatalogSnapshot is an immutable read of everything needed to price one
// product reference. Repositories take it inside a transaction boundary so
// concurrent config changes never produce a torn read.
type CatalogSnapshot struct {
	Event     domain.Event
	Product   domain.Product
	Variation *domain.Variation
	Override  *domain.DateOverride
	TaxRule   domain.TaxRule
	Bundles   []domain.Bundle
}
