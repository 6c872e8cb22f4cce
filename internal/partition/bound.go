package partition

import (
	"github.com/tesseradb/tessera/internal/errors"
	"github.com/tesseradb/tessera/pkg/types"
)

// BoundKind tags one component of a bound tuple.
type BoundKind int8

const (
	// Finite marks a component holding an actual key value.
	Finite BoundKind = iota

	// NegativeInfinity sorts below every finite value. Range only.
	NegativeInfinity

	// PositiveInfinity sorts above every finite value. Range only.
	PositiveInfinity
)

// BoundDatum is one component of a bound tuple: a finite key value or a
// signed infinity. Components after a non-finite one carry no meaning.
type BoundDatum struct {
	Kind  BoundKind   `json:"kind"`
	Value types.Datum `json:"value,omitempty"`
}

// FiniteDatum returns a finite bound component.
func FiniteDatum(v types.Datum) BoundDatum {
	return BoundDatum{Kind: Finite, Value: v}
}

// NegInf returns a negative-infinity bound component.
func NegInf() BoundDatum {
	return BoundDatum{Kind: NegativeInfinity}
}

// PosInf returns a positive-infinity bound component.
func PosInf() BoundDatum {
	return BoundDatum{Kind: PositiveInfinity}
}

// ListDeclaration is the raw bound declaration of one list partition: a
// set of non-NULL key values, plus optionally NULL acceptance.
type ListDeclaration struct {
	Values      []types.Datum `json:"values"`
	AcceptsNull bool          `json:"accepts_null,omitempty"`
}

// RangeDeclaration is the raw bound declaration of one range partition:
// a lower and an upper bound tuple, each with one component per key
// column. The interval is lower-inclusive, upper-exclusive.
type RangeDeclaration struct {
	Lower []BoundDatum `json:"lower"`
	Upper []BoundDatum `json:"upper"`
}

// Declaration is the raw bound declaration of one partition, as read
// from the catalog. Exactly one of List and Range is set, matching
// Strategy.
type Declaration struct {
	Strategy Strategy          `json:"strategy"`
	List     *ListDeclaration  `json:"list,omitempty"`
	Range    *RangeDeclaration `json:"range,omitempty"`
}

// Validate checks the declaration's internal shape against a key.
// Value-level problems (duplicate NULL, empty range) surface during
// canonicalization or overlap checking, not here.
func (d Declaration) Validate(key *Key) error {
	if err := key.checkStrategy(d.Strategy); err != nil {
		return err
	}
	switch d.Strategy {
	case StrategyList:
		if d.List == nil || d.Range != nil {
			return errors.NewDefinitionError(errors.CodeBadDeclaration,
				"list declaration must carry list values only")
		}
		for _, v := range d.List.Values {
			if v == nil {
				return errors.NewDefinitionError(errors.CodeBadDeclaration,
					"NULL must be declared via accepts_null, not as a list value")
			}
		}
	case StrategyRange:
		if d.Range == nil || d.List != nil {
			return errors.NewDefinitionError(errors.CodeBadDeclaration,
				"range declaration must carry lower and upper bounds only")
		}
		if len(d.Range.Lower) != key.NumColumns() || len(d.Range.Upper) != key.NumColumns() {
			return errors.NewDefinitionError(errors.CodeWrongComponentCount,
				"range bound has %d/%d components, key has %d",
				len(d.Range.Lower), len(d.Range.Upper), key.NumColumns())
		}
		for _, side := range [][]BoundDatum{d.Range.Lower, d.Range.Upper} {
			for _, bd := range side {
				if bd.Kind == Finite && bd.Value == nil {
					return errors.NewDefinitionError(errors.CodeBadDeclaration,
						"finite range bound component must not be NULL")
				}
			}
		}
	}
	return nil
}

// PartitionDecl pairs a partition's identity with its raw declaration.
// The order of a []PartitionDecl is the catalog scan order; canonical
// order is assigned during bound table construction.
type PartitionDecl struct {
	ID    types.TableID
	Bound Declaration
}

// rangeBound is one assembled lower or upper bound during range
// canonicalization, tagged with the declaring partition's position in
// the input slice. Transient; bound tables copy what they keep.
type rangeBound struct {
	index  int
	datums []BoundDatum
	lower  bool
}

// listValue is one (value, declaring partition) pair during list
// canonicalization.
type listValue struct {
	index int
	value types.Datum
}
