package partition

import "github.com/tesseradb/tessera/pkg/types"

// Comparison semantics for bound tuples and row key tuples. Key columns
// are compared left to right with the column's comparison function;
// infinities order without consulting it. Only bound-to-bound range
// comparison applies the lower/upper tie-break: at equal values an
// upper (exclusive) bound is the smaller of the two, which is what lets
// the upper bound of one partition and the equal lower bound of the
// next collapse into a single table entry.

// CompareBoundTuples compares two bound tuples under the key. aLower
// and bLower tag each tuple's side for the range tie-break; list
// callers pass false for both.
func (k *Key) CompareBoundTuples(a []BoundDatum, aLower bool, b []BoundDatum, bLower bool) int {
	cmpval := 0
	for i := range k.columns {
		ak, bk := a[i].Kind, b[i].Kind
		if ak != Finite && bk != Finite {
			// Both infinite: equal unless the signs differ.
			if ak == bk {
				return 0
			}
			if ak == NegativeInfinity {
				return -1
			}
			return 1
		}
		if ak != Finite {
			if ak == NegativeInfinity {
				return -1
			}
			return 1
		}
		if bk != Finite {
			if bk == NegativeInfinity {
				return 1
			}
			return -1
		}
		cmpval = k.columns[i].compare(a[i].Value, b[i].Value)
		if cmpval != 0 {
			break
		}
	}

	// Equal values: the exclusive (upper) boundary is the smaller one.
	if cmpval == 0 && aLower != bLower {
		if aLower {
			cmpval = 1
		} else {
			cmpval = -1
		}
	}
	return cmpval
}

// CompareBoundToRow compares a bound tuple to a row's key tuple. Rows
// have no bound side, so no tie-break applies. The key tuple must have
// no NULL components; routing rejects those before comparing.
func (k *Key) CompareBoundToRow(bound []BoundDatum, keyTuple []types.Datum) int {
	cmpval := -1
	for i := range k.columns {
		if bound[i].Kind != Finite {
			if bound[i].Kind == NegativeInfinity {
				return -1
			}
			return 1
		}
		cmpval = k.columns[i].compare(bound[i].Value, keyTuple[i])
		if cmpval != 0 {
			break
		}
	}
	return cmpval
}
