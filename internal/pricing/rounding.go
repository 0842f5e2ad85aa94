package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/seatsurge/boxoffice/internal/domain"
)

// Reconcile applies one of the three rounding algorithms to a set of lines
// sharing a tax rule, guaranteeing sum(net) + sum(tax) == sum(gross)
// exactly and that no line moves by more than one minor unit from its
// per-line rounded value.
func Reconcile(mode domain.RoundingMode, rule domain.TaxRule, lines []TaxedPrice, currency string) ([]TaxedPrice, error) {
	out := make([]TaxedPrice, len(lines))
	copy(out, lines)
	if len(out) == 0 || mode == domain.RoundingLine || mode == "" {
		// Per-line rounding is the identity: each line already satisfies
		// gross = net + tax on its own.
		return out, nil
	}

	places := Places(currency)
	unit := MinorUnit(currency)
	hundred := decimal.NewFromInt(100)

	netTotal := decimal.Zero
	grossTotal := decimal.Zero
	for _, l := range out {
		netTotal = netTotal.Add(l.Net)
		grossTotal = grossTotal.Add(l.Gross)
	}
	taxTotal := netTotal.Mul(rule.Rate).Div(hundred).Round(places)

	switch mode {
	case domain.RoundingSumByNet:
		// Net stays; distribute the gross delta one minor unit per line.
		diff := netTotal.Add(taxTotal).Sub(grossTotal)
		steps, err := unitSteps(diff, unit, len(out))
		if err != nil {
			return nil, err
		}
		for i := len(out) - 1; steps != 0; i-- {
			adj := unit
			if steps < 0 {
				adj = unit.Neg()
				steps++
			} else {
				steps--
			}
			out[i].Gross = out[i].Gross.Add(adj)
			out[i].Tax = out[i].Gross.Sub(out[i].Net)
		}
	case domain.RoundingSumByNetKeepGross:
		// Gross stays; distribute the net delta instead.
		diff := grossTotal.Sub(taxTotal).Sub(netTotal)
		steps, err := unitSteps(diff, unit, len(out))
		if err != nil {
			return nil, err
		}
		for i := len(out) - 1; steps != 0; i-- {
			adj := unit
			if steps < 0 {
				adj = unit.Neg()
				steps++
			} else {
				steps--
			}
			out[i].Net = out[i].Net.Add(adj)
			out[i].Tax = out[i].Gross.Sub(out[i].Net)
		}
	default:
		return out, nil
	}
	return out, nil
}

func unitSteps(diff, unit decimal.Decimal, lines int) (int64, error) {
	steps := diff.Div(unit).IntPart()
	if steps > int64(lines) || steps < -int64(lines) {
		return 0, domain.ErrRoundingDiverged
	}
	return steps, nil
}
