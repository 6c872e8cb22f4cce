package partition

import (
	goerrors "errors"

	"github.com/tesseradb/tessera/internal/errors"
	"github.com/tesseradb/tessera/pkg/types"
)

// CheckOverlap decides whether a candidate partition's declared bounds
// intersect any existing partition of the descriptor. It returns nil
// when the candidate fits, an OVERLAP error naming the conflicting
// partition, or a DEFINITION error for a malformed candidate.
//
// The range branch keeps the exact off1/off2 gap reasoning of the
// original algorithm: its correctness depends on the interplay between
// distinct-bound collapsing and the lower/upper tie-break, and the edge
// cases (adjacent ranges, exact gap fits) are easy to get subtly wrong
// when rederived.
func CheckOverlap(key *Key, desc *Descriptor, candidate Declaration) error {
	if err := candidate.Validate(key); err != nil {
		return err
	}

	table := desc.Table
	overlap := false
	with := -1

	switch key.strategy {
	case StrategyList:
		for _, v := range candidate.List.Values {
			offset, equal := table.SearchBound(key, []BoundDatum{FiniteDatum(v)}, false)
			if offset >= 0 && equal {
				overlap = true
				with = table.owners[offset]
				break
			}
		}
		if !overlap && candidate.List.AcceptsNull {
			if owner, ok := table.NullOwner(); ok {
				overlap = true
				with = owner
			}
		}

	case StrategyRange:
		lower := candidate.Range.Lower
		upper := candidate.Range.Upper

		// Reject an empty candidate range before looking at the table.
		if key.CompareBoundTuples(lower, true, upper, false) >= 0 {
			return errors.NewDefinitionError(errors.CodeEmptyRange,
				"cannot create range partition with empty range")
		}

		if table.NumBounds() > 0 {
			// Find the greatest existing bound less than or equal to the
			// candidate's lower bound.
			off1, equal := table.SearchBound(key, lower, true)

			// off1 == -1 means every existing bound is greater than the
			// candidate's lower bound. In that case, and when no
			// partition owns the segment between the bounds at off1 and
			// off1+1, the candidate might fit in the gap; confirm by
			// checking that its upper bound stays confined to it.
			if !equal && table.owners[off1+1] < 0 {
				off2, upperEqual := table.SearchBound(key, upper, false)

				// If the upper bound lands exactly on a bound, that bound
				// must be some partition's upper bound, so they overlap.
				// And if the two searches land on different bounds the
				// candidate spans owned territory.
				if upperEqual || off1 != off2 {
					overlap = true

					// The bound at off2 may be the lower bound of the
					// partition overlapped with; in that case its upper
					// bound at off2+1 carries the owner.
					if table.owners[off2] < 0 {
						with = table.owners[off2+1]
					} else {
						with = table.owners[off2]
					}
				}
			} else {
				// Either the candidate's lower bound equals an existing
				// bound, which can only be some partition's lower bound,
				// or the segment after off1 is already owned. Both mean
				// immediate overlap with the partition whose upper bound
				// sits at off1+1.
				overlap = true
				with = table.owners[off1+1]
			}
		}
	}

	if overlap {
		if with < 0 || with >= len(desc.Partitions) {
			return errors.NewInternalError("overlap attributed to invalid partition index %d", with)
		}
		return errors.NewOverlapError("candidate bound overlaps partition %q", desc.Partitions[with]).
			WithDetails(map[string]interface{}{"conflicts_with": desc.Partitions[with]})
	}
	return nil
}

// ConflictingPartition extracts the conflicting partition's identity
// from an overlap error, if present.
func ConflictingPartition(err error) (types.TableID, bool) {
	var se *errors.Error
	if !goerrors.As(err, &se) || se.Category != errors.ErrCategoryOverlap || se.Details == nil {
		return "", false
	}
	id, ok := se.Details["conflicts_with"].(types.TableID)
	return id, ok
}
