// Package discount applies ordered automatic-discount rules to a basket of
// lines. Rules run strictly in configured order and each line is consumed
// by at most one rule. Discounts only apply during initial cart-to-order
// creation, never during order modification.
package discount

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/seatsurge/boxoffice/internal/domain"
	"github.com/seatsurge/boxoffice/internal/pricing"
)

// Line is one basket position as seen by the engine. Price is gross. A
// line with Used set is no longer eligible for any rule.
type Line struct {
	ProductID  string
	SubeventID string
	Price      decimal.Decimal
	Used       bool
}

// Apply runs the rules in Position order and returns the adjusted lines.
// The input slice is not modified.
func Apply(discounts []domain.Discount, lines []Line, currency string) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)

	ordered := make([]domain.Discount, len(discounts))
	copy(ordered, discounts)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	for _, d := range ordered {
		if !d.Active {
			continue
		}
		var eligible []int
		for i := range out {
			if !out[i].Used && d.InScope(out[i].ProductID) {
				eligible = append(eligible, i)
			}
		}
		if len(eligible) == 0 {
			continue
		}
		for _, group := range groupLines(d, out, eligible) {
			applyToGroup(d, out, group, currency)
		}
	}
	return out
}

// groupLines partitions eligible line indices according to the rule's
// subevent mode.
func groupLines(d domain.Discount, lines []Line, eligible []int) [][]int {
	switch d.Condition.SubeventMode {
	case domain.SubeventModeSame:
		bySub := map[string][]int{}
		var order []string
		for _, i := range eligible {
			sub := lines[i].SubeventID
			if _, ok := bySub[sub]; !ok {
				order = append(order, sub)
			}
			bySub[sub] = append(bySub[sub], i)
		}
		groups := make([][]int, 0, len(order))
		for _, sub := range order {
			groups = append(groups, bySub[sub])
		}
		return groups
	case domain.SubeventModeDistinct:
		return distinctGroups(d, lines, eligible)
	default:
		return [][]int{eligible}
	}
}

// distinctGroups greedily builds groups of MinCount lines with pairwise
// distinct subevents: always draw from the largest remaining subevent
// bucket (ties broken by lowest subevent id), cheapest line first while the
// benefit slice is unfilled, most expensive first afterwards. Leftovers try
// to join an already-open group that lacks their subevent.
func distinctGroups(d domain.Discount, lines []Line, eligible []int) [][]int {
	minCount := d.Condition.MinCount
	if minCount <= 0 {
		return [][]int{eligible}
	}

	buckets := map[string][]int{}
	for _, i := range eligible {
		buckets[lines[i].SubeventID] = append(buckets[lines[i].SubeventID], i)
	}
	for sub := range buckets {
		b := buckets[sub]
		sort.SliceStable(b, func(x, y int) bool { return lines[b[x]].Price.LessThan(lines[b[y]].Price) })
	}

	var groups [][]int
	for {
		group, inGroup := []int{}, map[string]bool{}
		for len(group) < minCount {
			sub := pickBucket(buckets, inGroup)
			if sub == "" {
				break
			}
			b := buckets[sub]
			var idx int
			if d.Benefit.OnlyCheapestN > 0 && len(group) >= d.Benefit.OnlyCheapestN {
				idx = b[len(b)-1]
				buckets[sub] = b[:len(b)-1]
			} else {
				idx = b[0]
				buckets[sub] = b[1:]
			}
			if len(buckets[sub]) == 0 {
				delete(buckets, sub)
			}
			group = append(group, idx)
			inGroup[lines[idx].SubeventID] = true
		}
		if len(group) < minCount {
			// Incomplete group: return its lines to the leftovers.
			for _, idx := range group {
				buckets[lines[idx].SubeventID] = append(buckets[lines[idx].SubeventID], idx)
			}
			break
		}
		groups = append(groups, group)
	}

	// Leftovers join open groups when the distinct constraint allows it.
	subs := sortedKeys(buckets)
	for _, sub := range subs {
		for _, idx := range buckets[sub] {
			for g := range groups {
				if !groupHasSubevent(lines, groups[g], sub) {
					groups[g] = append(groups[g], idx)
					break
				}
			}
		}
	}
	return groups
}

// pickBucket returns the largest bucket whose subevent is not yet in the
// group; equal sizes resolve to the lowest subevent id.
func pickBucket(buckets map[string][]int, exclude map[string]bool) string {
	best := ""
	for _, sub := range sortedKeys(buckets) {
		if exclude[sub] {
			continue
		}
		if best == "" || len(buckets[sub]) > len(buckets[best]) {
			best = sub
		}
	}
	return best
}

func sortedKeys(buckets map[string][]int) []string {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func groupHasSubevent(lines []Line, group []int, sub string) bool {
	for _, idx := range group {
		if lines[idx].SubeventID == sub {
			return true
		}
	}
	return false
}

// applyToGroup runs the rule's condition over one group and mutates the
// matched lines.
func applyToGroup(d domain.Discount, lines []Line, group []int, currency string) {
	switch d.Condition.Kind {
	case domain.ConditionMinValue:
		total := decimal.Zero
		for _, i := range group {
			total = total.Add(lines[i].Price)
		}
		if total.LessThan(d.Condition.MinValue) {
			return
		}
		for _, i := range group {
			lines[i].Price = reduce(lines[i].Price, d.Benefit.Percent, currency)
			lines[i].Used = true
		}
	case domain.ConditionMinCount:
		minCount := d.Condition.MinCount
		if minCount <= 0 || len(group) < minCount {
			return
		}
		sorted := append([]int(nil), group...)
		sort.SliceStable(sorted, func(x, y int) bool {
			return lines[sorted[x]].Price.LessThan(lines[sorted[y]].Price)
		})
		fullGroups := len(sorted) / minCount
		discounted := len(sorted)
		used := len(sorted)
		if d.Benefit.OnlyCheapestN > 0 {
			discounted = fullGroups * d.Benefit.OnlyCheapestN
			used = fullGroups * minCount
		}
		for n, i := range sorted {
			if n < discounted {
				lines[i].Price = reduce(lines[i].Price, d.Benefit.Percent, currency)
			}
			if n < used {
				lines[i].Used = true
			}
		}
	}
}

func reduce(price, percent decimal.Decimal, currency string) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	return price.Mul(hundred.Sub(percent)).Div(hundred).Round(pricing.Places(currency))
}
