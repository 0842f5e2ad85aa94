package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/seatsurge/boxoffice/internal/domain"
)

// TaxedPrice is a fully resolved line price. Gross = Net + Tax always holds
// to the minor unit.
type TaxedPrice struct {
	Net   decimal.Decimal
	Tax   decimal.Decimal
	Gross decimal.Decimal
	Rate  decimal.Decimal
}

// FromGross derives net and tax from a gross anchor.
func FromGross(gross, rate decimal.Decimal, places int32) TaxedPrice {
	gross = gross.Round(places)
	hundred := decimal.NewFromInt(100)
	tax := gross.Mul(rate).Div(hundred.Add(rate)).Round(places)
	return TaxedPrice{
		Net:   gross.Sub(tax),
		Tax:   tax,
		Gross: gross,
		Rate:  rate,
	}
}

// FromNet derives gross and tax from a net anchor.
func FromNet(net, rate decimal.Decimal, places int32) TaxedPrice {
	net = net.Round(places)
	hundred := decimal.NewFromInt(100)
	gross := net.Mul(hundred.Add(rate)).Div(hundred).Round(places)
	return TaxedPrice{
		Net:   net,
		Tax:   gross.Sub(net),
		Gross: gross,
		Rate:  rate,
	}
}

// Resolve anchors base on gross or net depending on the tax rule.
func Resolve(rule domain.TaxRule, base decimal.Decimal, places int32) TaxedPrice {
	if rule.PriceIncludesTax {
		return FromGross(base, rule.Rate, places)
	}
	return FromNet(base, rule.Rate, places)
}
