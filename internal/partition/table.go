package partition

import (
	"fmt"
	"sort"

	"github.com/spaolacci/murmur3"
	"github.com/tesseradb/tessera/internal/errors"
	"github.com/tesseradb/tessera/pkg/types"
)

// BoundTable is the canonical, immutable description of how a
// partitioned table's key space is divided: the sorted distinct bound
// tuples plus a parallel owner array mapping each bound to the
// canonical partition index owning the key space that follows it.
//
// For list tables owners has one entry per bound. For range tables it
// has one entry per bound plus a trailing sentinel; owners[i] names the
// partition owning the key-space segment that ends at bound i, or -1
// when that segment belongs to no partition (a gap), so routing a tuple
// that lands after bound i reads owners[i+1]. Canonical indexes are a
// stable first-seen-in-sorted-order renumbering, so two tables built
// from the same partitions in any catalog scan order compare equal.
type BoundTable struct {
	strategy Strategy
	natts    int
	nparts   int
	bounds   [][]BoundDatum
	owners   []int

	// nullOwner is the canonical index of the NULL-accepting partition,
	// if any. List strategy only; range rejects NULL keys outright.
	nullOwner *int
}

// Descriptor pairs a bound table with the partition identities in
// canonical order: Partitions[i] is the partition with canonical
// index i.
type Descriptor struct {
	Table      *BoundTable
	Partitions []types.TableID
}

// Strategy returns the table's partitioning strategy.
func (t *BoundTable) Strategy() Strategy { return t.strategy }

// NumBounds returns the number of distinct bound tuples.
func (t *BoundTable) NumBounds() int { return len(t.bounds) }

// NumPartitions returns the number of partitions the table describes.
func (t *BoundTable) NumPartitions() int { return t.nparts }

// Bound returns the i-th bound tuple. Callers must not mutate it.
func (t *BoundTable) Bound(i int) []BoundDatum { return t.bounds[i] }

// Owner returns the i-th owner entry. For range tables i may be
// NumBounds(), the trailing sentinel.
func (t *BoundTable) Owner(i int) int { return t.owners[i] }

// NullOwner returns the canonical index of the NULL-accepting
// partition and whether one exists.
func (t *BoundTable) NullOwner() (int, bool) {
	if t.nullOwner == nil {
		return 0, false
	}
	return *t.nullOwner, true
}

// AcceptsNull reports whether some partition accepts a NULL key.
func (t *BoundTable) AcceptsNull() bool { return t.nullOwner != nil }

// boundIsLower reports whether the range table entry at offset acts as
// a lower bound. A range entry is a lower bound exactly when no
// partition's range starts at it, so the owner array is the single
// source of truth.
func (t *BoundTable) boundIsLower(offset int) bool {
	return t.owners[offset] < 0
}

// BuildBoundTable canonicalizes the raw declarations of a partitioned
// table into a Descriptor. Declarations arrive in catalog scan order;
// the result is independent of that order. The build is all-or-nothing:
// any malformed declaration fails the whole build.
func BuildBoundTable(key *Key, decls []PartitionDecl) (*Descriptor, error) {
	for _, d := range decls {
		if err := d.Bound.Validate(key); err != nil {
			return nil, err
		}
	}

	nparts := len(decls)
	table := &BoundTable{
		strategy: key.strategy,
		natts:    key.NumColumns(),
		nparts:   nparts,
	}
	desc := &Descriptor{Table: table, Partitions: make([]types.TableID, nparts)}
	if nparts == 0 {
		if key.strategy == StrategyRange {
			table.owners = []int{-1}
		}
		return desc, nil
	}

	// mapping translates a declaration's input position to its canonical
	// index, assigned first-seen while walking the sorted bounds.
	mapping := make([]int, nparts)
	for i := range mapping {
		mapping[i] = -1
	}
	nextIndex := 0

	var err error
	switch key.strategy {
	case StrategyList:
		nextIndex, err = buildListBounds(key, decls, table, mapping)
	case StrategyRange:
		nextIndex, err = buildRangeBounds(key, decls, table, mapping)
	}
	if err != nil {
		return nil, err
	}
	if nextIndex != nparts {
		return nil, errors.NewInternalError(
			"canonical index assignment covered %d of %d partitions", nextIndex, nparts)
	}

	for i, d := range decls {
		desc.Partitions[mapping[i]] = d.ID
	}
	return desc, nil
}

// buildListBounds flattens, sorts, and deduplicates list values into
// the table, assigning canonical indexes as a side effect.
func buildListBounds(key *Key, decls []PartitionDecl, table *BoundTable, mapping []int) (int, error) {
	var allValues []listValue
	nullIndex := -1
	for i, d := range decls {
		spec := d.Bound.List
		if spec.AcceptsNull {
			// NULL is never stored as a table entry; it is tracked as an
			// explicit owner so search never sees it.
			if nullIndex != -1 {
				return 0, errors.NewDefinitionError(errors.CodeDuplicateNull,
					"NULL accepted by more than one partition (%q and %q)",
					decls[nullIndex].ID, d.ID)
			}
			nullIndex = i
		}
		for _, v := range spec.Values {
			allValues = append(allValues, listValue{index: i, value: v})
		}
	}

	cmp := key.columns[0].compare
	sort.Slice(allValues, func(a, b int) bool {
		return cmp(allValues[a].value, allValues[b].value) < 0
	})

	nextIndex := 0
	for i, lv := range allValues {
		if i > 0 && cmp(allValues[i-1].value, lv.value) == 0 {
			// Equal values from one partition collapse; from two
			// partitions they mean the existing set already overlaps,
			// which a consistent catalog cannot produce.
			if allValues[i-1].index == lv.index {
				continue
			}
			return 0, errors.NewDefinitionError(errors.CodeBadDeclaration,
				"list value claimed by both %q and %q",
				decls[allValues[i-1].index].ID, decls[lv.index].ID)
		}
		table.bounds = append(table.bounds, []BoundDatum{FiniteDatum(lv.value)})
		if mapping[lv.index] == -1 {
			mapping[lv.index] = nextIndex
			nextIndex++
		}
		table.owners = append(table.owners, mapping[lv.index])
	}

	// A partition accepting only NULL contributes no values above and
	// gets its canonical index here.
	if nullIndex != -1 {
		if mapping[nullIndex] == -1 {
			mapping[nullIndex] = nextIndex
			nextIndex++
		}
		owner := mapping[nullIndex]
		table.nullOwner = &owner
	}
	return nextIndex, nil
}

// buildRangeBounds flattens the 2×P lower/upper bounds, sorts them with
// the lower/upper tie-break, keeps the distinct ones, and assigns
// owners: -1 at lower bounds (the segment before them is a gap unless
// some partition's range covers it), the owning partition at upper
// bounds, and a trailing -1 sentinel.
func buildRangeBounds(key *Key, decls []PartitionDecl, table *BoundTable, mapping []int) (int, error) {
	allBounds := make([]*rangeBound, 0, 2*len(decls))
	for i, d := range decls {
		spec := d.Bound.Range
		lower := &rangeBound{index: i, datums: spec.Lower, lower: true}
		upper := &rangeBound{index: i, datums: spec.Upper, lower: false}
		if key.CompareBoundTuples(lower.datums, true, upper.datums, false) >= 0 {
			return 0, errors.NewDefinitionError(errors.CodeEmptyRange,
				"partition %q has empty range: lower bound is not less than upper bound", d.ID)
		}
		allBounds = append(allBounds, lower, upper)
	}

	sort.Slice(allBounds, func(a, b int) bool {
		cmp := key.CompareBoundTuples(
			allBounds[a].datums, allBounds[a].lower,
			allBounds[b].datums, allBounds[b].lower)
		if cmp != 0 {
			return cmp < 0
		}
		// Bounds meeting at an infinite component compare equal with no
		// side tie-break. Both entries are kept below; the owner array
		// is only correct when the upper one comes first.
		return !allBounds[a].lower && allBounds[b].lower
	})

	// Keep a bound only if it differs from its predecessor. Two bounds
	// equate only when every component is finite and compares equal; the
	// lower/upper tag alone never makes them distinct, which is exactly
	// the collapse of one partition's upper bound with the next
	// partition's equal lower bound into a single entry.
	nextIndex := 0
	var prev *rangeBound
	for _, cur := range allBounds {
		distinct := prev == nil
		if !distinct {
			for j := 0; j < key.NumColumns(); j++ {
				if cur.datums[j].Kind != Finite || prev.datums[j].Kind != Finite {
					// An infinite component never equates, even with the
					// same infinity: both entries stay, enclosing an
					// empty segment owned by no partition.
					distinct = true
					break
				}
				if key.columns[j].compare(cur.datums[j].Value, prev.datums[j].Value) != 0 {
					distinct = true
					break
				}
			}
		}
		if distinct {
			copied := make([]BoundDatum, key.NumColumns())
			copy(copied, cur.datums)
			table.bounds = append(table.bounds, copied)
			if cur.lower {
				table.owners = append(table.owners, -1)
			} else {
				if mapping[cur.index] == -1 {
					mapping[cur.index] = nextIndex
					nextIndex++
				}
				table.owners = append(table.owners, mapping[cur.index])
			}
		}
		prev = cur
	}
	table.owners = append(table.owners, -1)
	return nextIndex, nil
}

// Equal reports structural equality of two bound tables. It compares
// raw datum bytes, not the key's comparison functions: the cache must
// notice every physical change to a bound, including ones a collation
// would call insignificant.
func (t *BoundTable) Equal(o *BoundTable) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.strategy != o.strategy || t.natts != o.natts || len(t.bounds) != len(o.bounds) {
		return false
	}
	tn, tok := t.NullOwner()
	on, ook := o.NullOwner()
	if tok != ook || (tok && tn != on) {
		return false
	}
	for i := range t.bounds {
		for j := 0; j < t.natts; j++ {
			a, b := t.bounds[i][j], o.bounds[i][j]
			if a.Kind != b.Kind {
				return false
			}
			if a.Kind == Finite && !types.DatumsEqual(a.Value, b.Value) {
				return false
			}
		}
		if t.owners[i] != o.owners[i] {
			return false
		}
	}
	// Range tables carry the trailing sentinel entry.
	if t.strategy == StrategyRange && t.owners[len(t.bounds)] != o.owners[len(o.bounds)] {
		return false
	}
	return true
}

// DescriptorsEqual reports whether two descriptors describe the same
// split with the same partitions in the same canonical order.
func DescriptorsEqual(a, b *Descriptor) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !a.Table.Equal(b.Table) {
		return false
	}
	if len(a.Partitions) != len(b.Partitions) {
		return false
	}
	for i := range a.Partitions {
		if a.Partitions[i] != b.Partitions[i] {
			return false
		}
	}
	return true
}

// Fingerprint returns a 64-bit murmur3 hash of the table's canonical
// form. Unequal fingerprints mean unequal tables; the converse is
// settled by Equal.
func (t *BoundTable) Fingerprint() uint64 {
	h := murmur3.New64()
	fmt.Fprintf(h, "%s|%d|%d|", t.strategy, t.natts, len(t.bounds))
	for i := range t.bounds {
		for j := 0; j < t.natts; j++ {
			bd := t.bounds[i][j]
			if bd.Kind == Finite {
				fmt.Fprintf(h, "f:%T:%v;", bd.Value, bd.Value)
			} else {
				fmt.Fprintf(h, "i:%d;", bd.Kind)
			}
		}
	}
	for _, idx := range t.owners {
		fmt.Fprintf(h, "o:%d;", idx)
	}
	if owner, ok := t.NullOwner(); ok {
		fmt.Fprintf(h, "n:%d;", owner)
	}
	return h.Sum64()
}
