package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/seatsurge/boxoffice/internal/domain"
)

func fiveGrossLines(t *testing.T) []TaxedPrice {
	t.Helper()
	lines := make([]TaxedPrice, 5)
	for i := range lines {
		lines[i] = FromGross(dec("100.00"), dec("19"), 2)
	}
	return lines
}

func sums(lines []TaxedPrice) (net, tax, gross decimal.Decimal) {
	net, tax, gross = decimal.Zero, decimal.Zero, decimal.Zero
	for _, l := range lines {
		net = net.Add(l.Net)
		tax = tax.Add(l.Tax)
		gross = gross.Add(l.Gross)
	}
	return
}

func TestReconcile_LineModeIsIdentity(t *testing.T) {
	t.Parallel()

	rule := domain.TaxRule{Rate: dec("19"), PriceIncludesTax: true}
	lines := fiveGrossLines(t)
	out, err := Reconcile(domain.RoundingLine, rule, lines, "EUR")
	require.NoError(t, err)
	require.Equal(t, lines, out)
}

func TestReconcile_SumByNet(t *testing.T) {
	t.Parallel()

	// Five 100.00-gross lines at 19%: per-line nets sum to 420.15, the
	// net-anchored tax is 79.83, so two line grosses drop by one cent each.
	rule := domain.TaxRule{Rate: dec("19"), PriceIncludesTax: true}
	out, err := Reconcile(domain.RoundingSumByNet, rule, fiveGrossLines(t), "EUR")
	require.NoError(t, err)

	net, tax, gross := sums(out)
	require.True(t, dec("420.15").Equal(net), "net %s", net)
	require.True(t, dec("79.83").Equal(tax), "tax %s", tax)
	require.True(t, dec("499.98").Equal(gross), "gross %s", gross)
	require.True(t, gross.Equal(net.Add(tax)))

	adjusted := 0
	for _, l := range out {
		require.True(t, l.Gross.Equal(l.Net.Add(l.Tax)))
		if !l.Gross.Equal(dec("100.00")) {
			require.True(t, dec("99.99").Equal(l.Gross), "line moved more than a cent: %s", l.Gross)
			adjusted++
		}
	}
	require.Equal(t, 2, adjusted)
}

func TestReconcile_SumByNetKeepGross(t *testing.T) {
	t.Parallel()

	rule := domain.TaxRule{Rate: dec("19"), PriceIncludesTax: true}
	out, err := Reconcile(domain.RoundingSumByNetKeepGross, rule, fiveGrossLines(t), "EUR")
	require.NoError(t, err)

	net, tax, gross := sums(out)
	require.True(t, dec("500.00").Equal(gross), "gross %s", gross)
	require.True(t, dec("79.83").Equal(tax), "tax %s", tax)
	require.True(t, dec("420.17").Equal(net), "net %s", net)
	require.True(t, gross.Equal(net.Add(tax)))

	for _, l := range out {
		require.True(t, dec("100.00").Equal(l.Gross), "gross must not move, got %s", l.Gross)
		require.True(t, l.Gross.Equal(l.Net.Add(l.Tax)))
	}
}

func TestReconcile_SumIdentityAcrossModes(t *testing.T) {
	t.Parallel()

	rule := domain.TaxRule{Rate: dec("7"), PriceIncludesTax: true}
	var lines []TaxedPrice
	for _, p := range []string{"13.37", "0.99", "21.50", "7.77", "100.01", "3.33"} {
		lines = append(lines, FromGross(dec(p), dec("7"), 2))
	}

	for _, mode := range []domain.RoundingMode{
		domain.RoundingLine,
		domain.RoundingSumByNet,
		domain.RoundingSumByNetKeepGross,
	} {
		out, err := Reconcile(mode, rule, lines, "EUR")
		require.NoError(t, err, "mode %s", mode)
		net, tax, gross := sums(out)
		require.True(t, gross.Equal(net.Add(tax)), "mode %s: %s != %s + %s", mode, gross, net, tax)
	}
}

func TestReconcile_EmptyAndSingle(t *testing.T) {
	t.Parallel()

	rule := domain.TaxRule{Rate: dec("19"), PriceIncludesTax: true}

	out, err := Reconcile(domain.RoundingSumByNet, rule, nil, "EUR")
	require.NoError(t, err)
	require.Empty(t, out)

	single := []TaxedPrice{FromGross(dec("100.00"), dec("19"), 2)}
	out, err = Reconcile(domain.RoundingSumByNet, rule, single, "EUR")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.True(t, out[0].Gross.Equal(out[0].Net.Add(out[0].Tax)))
}
