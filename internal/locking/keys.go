// Package locking defines the lock coordination contract for capacity-
// affecting writes. All writers touching overlapping resource sets must
// acquire their advisory locks in the single canonical order produced by
// CanonicalKeys; that ordering is what makes concurrent overlapping
// allocations deadlock-free.
package locking

import (
	"context"
	"hash/fnv"
	"sort"
)

// Coordinator serializes one logical unit of work against a set of
// resource keys. Locks are held for the duration of fn and released on
// every exit path. Implementations must surface domain.ErrLockTimeout when
// the bounded wait elapses.
type Coordinator interface {
	WithLock(ctx context.Context, keys []int64, fn func(ctx context.Context) error) error
}

// CanonicalKeys maps opaque resource identifiers (quota ids, voucher ids,
// seat ids) to the sorted, deduplicated advisory-lock key set for one
// allocation attempt. The sort order is the deadlock-freedom invariant; a
// hash collision between two ids only over-serializes, never corrupts.
func CanonicalKeys(idSets ...[]string) []int64 {
	seen := make(map[int64]struct{})
	var keys []int64
	for _, ids := range idSets {
		for _, id := range ids {
			if id == "" {
				continue
			}
			k := hashKey(id)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// InCanonicalOrder reports whether keys are strictly ascending.
func InCanonicalOrder(keys []int64) bool {
	for i := 1; i < len(keys); i++ {
		if keys[i] <= keys[i-1] {
			return false
		}
	}
	return true
}

func hashKey(id string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return int64(h.Sum64())
}
