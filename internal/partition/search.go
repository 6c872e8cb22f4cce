package partition

import "github.com/tesseradb/tessera/pkg/types"

// Binary search over a bound table: both the DDL-time overlap check and
// per-row routing sit on this, so it stays O(log n) no matter how many
// partitions a table has.

// SearchBound returns the greatest index whose bound is less than or
// equal to the probe bound, or -1 if every bound is greater. The
// probe's lower/upper side participates in comparison so that a lower
// bound probe never reports equality against an upper bound entry at
// the same value. The second result reports exact equality.
func (t *BoundTable) SearchBound(key *Key, probe []BoundDatum, probeIsLower bool) (int, bool) {
	return t.search(func(offset int) int {
		return t.compareEntryToBound(key, offset, probe, probeIsLower)
	})
}

// SearchRow returns the greatest index whose bound is less than or
// equal to the row's key tuple, or -1 if every bound is greater. The
// second result reports exact equality. The key tuple must have no
// NULL components.
func (t *BoundTable) SearchRow(key *Key, keyTuple []types.Datum) (int, bool) {
	return t.search(func(offset int) int {
		return key.CompareBoundToRow(t.bounds[offset], keyTuple)
	})
}

// search runs the shared binary search; cmp compares the table entry at
// an offset against the probe.
func (t *BoundTable) search(cmp func(offset int) int) (int, bool) {
	lo, hi := -1, len(t.bounds)-1
	equal := false
	for lo < hi {
		mid := (lo + hi + 1) / 2
		c := cmp(mid)
		if c <= 0 {
			lo = mid
			equal = c == 0
			if equal {
				break
			}
		} else {
			hi = mid - 1
		}
	}
	return lo, equal
}

// compareEntryToBound compares the table entry at offset to a probe
// bound. For range tables the entry's own side is derived from the
// owner array when applying the tie-break.
func (t *BoundTable) compareEntryToBound(key *Key, offset int, probe []BoundDatum, probeIsLower bool) int {
	entryIsLower := false
	if t.strategy == StrategyRange {
		entryIsLower = t.boundIsLower(offset)
	} else {
		// List entries have no side; neutralize the tie-break.
		probeIsLower = false
	}
	return key.CompareBoundTuples(t.bounds[offset], entryIsLower, probe, probeIsLower)
}
