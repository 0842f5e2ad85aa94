// Package inventory computes quota availability. The arithmetic is pure;
// reading the counts is the storage layer's job, and the read path is
// deliberately lock-free (stale-by-milliseconds is fine for display and
// optimistic cart adds). Authoritative checks re-run this computation under
// the lock coordinator at commit time.
package inventory

import (
	"fmt"

	"github.com/seatsurge/boxoffice/internal/domain"
)

// Counts are the units currently claimed against one quota.
type Counts struct {
	// Confirmed is the number of order positions covering quota members.
	Confirmed int
	// Reserved is the number of active, unexpired cart positions.
	Reserved int
	// Blocked is the remaining budget of valid quota-blocking vouchers.
	Blocked int
}

// Availability is the remaining capacity of one quota.
type Availability struct {
	Unlimited bool
	Remaining int
	Closed    bool
}

// Level buckets availability for shop-front display.
type Level string

const (
	LevelOK     Level = "ok"
	LevelFew    Level = "few_left"
	LevelGone   Level = "gone"
	LevelClosed Level = "closed"
)

// Level returns the display bucket; fewThreshold of zero disables the
// few-left bucket.
func (a Availability) Level(fewThreshold int) Level {
	switch {
	case a.Closed:
		return LevelClosed
	case a.Unlimited:
		return LevelOK
	case a.Remaining <= 0:
		return LevelGone
	case fewThreshold > 0 && a.Remaining <= fewThreshold:
		return LevelFew
	default:
		return LevelOK
	}
}

// Compute derives remaining availability for one quota. A closed quota is
// sticky at zero regardless of the counts until explicitly reopened.
func Compute(q domain.Quota, c Counts) Availability {
	if q.Closed {
		return Availability{Closed: true}
	}
	if q.Unlimited() {
		return Availability{Unlimited: true}
	}
	remaining := *q.Size - c.Confirmed - c.Reserved - c.Blocked
	if remaining < 0 {
		remaining = 0
	}
	return Availability{Remaining: remaining}
}

// Min folds per-quota availabilities into a product's effective
// availability: the minimum remaining across every quota covering it.
func Min(avails []Availability) Availability {
	result := Availability{Unlimited: true}
	for _, a := range avails {
		if a.Closed {
			return Availability{Closed: true}
		}
		if a.Unlimited {
			continue
		}
		if result.Unlimited || a.Remaining < result.Remaining {
			result = Availability{Remaining: a.Remaining}
		}
	}
	return result
}

// CheckInvariant verifies the global capacity invariant for one quota:
// confirmed allocations may never exceed size. A violation is a programming
// error, not a recoverable condition.
func CheckInvariant(q domain.Quota, c Counts) error {
	if q.Unlimited() {
		return nil
	}
	if c.Confirmed > *q.Size {
		return fmt.Errorf("quota %s: confirmed %d > size %d: %w", q.ID, c.Confirmed, *q.Size, domain.ErrCapacityCorrupt)
	}
	return nil
}
