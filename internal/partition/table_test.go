package partition

import (
	"testing"

	"github.com/tesseradb/tessera/internal/errors"
	"github.com/tesseradb/tessera/pkg/types"
)

func rangeDecl(id string, lower, upper []BoundDatum) PartitionDecl {
	return PartitionDecl{
		ID: types.TableID(id),
		Bound: Declaration{
			Strategy: StrategyRange,
			Range:    &RangeDeclaration{Lower: lower, Upper: upper},
		},
	}
}

func listDecl(id string, acceptsNull bool, values ...types.Datum) PartitionDecl {
	return PartitionDecl{
		ID: types.TableID(id),
		Bound: Declaration{
			Strategy: StrategyList,
			List:     &ListDeclaration{Values: values, AcceptsNull: acceptsNull},
		},
	}
}

func textListKey(t *testing.T) *Key {
	t.Helper()
	return mustKey(t, StrategyList, KeyColumn{Column: "code", Type: types.TypeText})
}

// Partitions [MIN,10), [10,20), [30,40) must canonicalize to bounds
// [MIN,10,20,30,40] with owners [-1, p0, p1, -1, p2, -1]: the shared
// boundary at 10 is stored once, and the uncovered (20,30) segment is a
// gap.
func TestBuildBoundTable_RangeCanonicalization(t *testing.T) {
	key := intRangeKey(t, 1)
	decls := []PartitionDecl{
		rangeDecl("p0", []BoundDatum{NegInf()}, finites(10)),
		rangeDecl("p1", finites(10), finites(20)),
		rangeDecl("p2", finites(30), finites(40)),
	}

	desc, err := BuildBoundTable(key, decls)
	if err != nil {
		t.Fatalf("BuildBoundTable failed: %v", err)
	}
	table := desc.Table

	if table.NumBounds() != 5 {
		t.Fatalf("expected 5 distinct bounds, got %d", table.NumBounds())
	}
	if table.Bound(0)[0].Kind != NegativeInfinity {
		t.Errorf("bound 0 should be -inf")
	}
	for i, want := range []int64{10, 20, 30, 40} {
		got := table.Bound(i + 1)[0]
		if got.Kind != Finite || got.Value.(int64) != want {
			t.Errorf("bound %d: got %+v, want finite %d", i+1, got, want)
		}
	}

	wantOwners := []int{-1, 0, 1, -1, 2, -1}
	for i, want := range wantOwners {
		if got := table.Owner(i); got != want {
			t.Errorf("owner[%d]: got %d, want %d", i, got, want)
		}
	}

	wantParts := []types.TableID{"p0", "p1", "p2"}
	for i, want := range wantParts {
		if desc.Partitions[i] != want {
			t.Errorf("canonical partition %d: got %q, want %q", i, desc.Partitions[i], want)
		}
	}
	if table.AcceptsNull() {
		t.Error("range table must not accept NULL")
	}
}

// Canonical indexes depend only on the sorted bound positions, never on
// the catalog scan order that produced the declarations.
func TestBuildBoundTable_OrderIndependence(t *testing.T) {
	key := intRangeKey(t, 1)
	decls := []PartitionDecl{
		rangeDecl("p0", []BoundDatum{NegInf()}, finites(10)),
		rangeDecl("p1", finites(10), finites(20)),
		rangeDecl("p2", finites(30), finites(40)),
	}
	permuted := []PartitionDecl{decls[2], decls[0], decls[1]}

	a, err := BuildBoundTable(key, decls)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	b, err := BuildBoundTable(key, permuted)
	if err != nil {
		t.Fatalf("permuted build failed: %v", err)
	}

	if !a.Table.Equal(b.Table) {
		t.Error("tables built from permuted declarations must be equal")
	}
	if !DescriptorsEqual(a, b) {
		t.Error("descriptors built from permuted declarations must be equal")
	}
	if a.Table.Fingerprint() != b.Table.Fingerprint() {
		t.Error("fingerprints must match for equal tables")
	}
}

// Two-column partitions can meet at a bound with an infinite component,
// such as (10, MIN). That shared boundary must not collapse the way an
// equal finite boundary does: both entries stay, the earlier
// partition's upper bound first, so the table is the same for either
// declaration order and rows on each side route to their own partition.
func TestBuildBoundTable_InfiniteComponentBoundary(t *testing.T) {
	key := intRangeKey(t, 2)
	below := rangeDecl("below",
		[]BoundDatum{NegInf(), NegInf()},
		[]BoundDatum{FiniteDatum(int64(10)), NegInf()})
	above := rangeDecl("above",
		[]BoundDatum{FiniteDatum(int64(10)), NegInf()},
		[]BoundDatum{PosInf(), PosInf()})

	a, err := BuildBoundTable(key, []PartitionDecl{below, above})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	b, err := BuildBoundTable(key, []PartitionDecl{above, below})
	if err != nil {
		t.Fatalf("reversed build failed: %v", err)
	}

	table := a.Table
	if table.NumBounds() != 4 {
		t.Fatalf("expected 4 bounds, got %d", table.NumBounds())
	}
	wantOwners := []int{-1, 0, -1, 1, -1}
	for i, want := range wantOwners {
		if got := table.Owner(i); got != want {
			t.Errorf("owner[%d]: got %d, want %d", i, got, want)
		}
	}
	if a.Partitions[0] != "below" || a.Partitions[1] != "above" {
		t.Errorf("canonical order: got %v", a.Partitions)
	}

	if !a.Table.Equal(b.Table) {
		t.Error("tables built from reversed declarations must be equal")
	}
	if !DescriptorsEqual(a, b) {
		t.Error("descriptors built from reversed declarations must be equal")
	}

	for _, tc := range []struct {
		tuple []types.Datum
		owner int
	}{
		{[]types.Datum{int64(5), int64(99)}, 0},
		{[]types.Datum{int64(10), int64(0)}, 1},
	} {
		offset, _ := table.SearchRow(key, tc.tuple)
		if got := table.Owner(offset + 1); got != tc.owner {
			t.Errorf("tuple %v: owner %d, want %d", tc.tuple, got, tc.owner)
		}
	}
}

func TestBuildBoundTable_List(t *testing.T) {
	key := textListKey(t)
	decls := []PartitionDecl{
		listDecl("pab", false, "a", "b"),
		listDecl("pc", false, "c"),
		listDecl("pnull", true),
	}

	desc, err := BuildBoundTable(key, decls)
	if err != nil {
		t.Fatalf("BuildBoundTable failed: %v", err)
	}
	table := desc.Table

	if table.NumBounds() != 3 {
		t.Fatalf("expected 3 bounds, got %d", table.NumBounds())
	}
	wantOwners := []int{0, 0, 1}
	for i, want := range wantOwners {
		if table.Owner(i) != want {
			t.Errorf("owner[%d]: got %d, want %d", i, table.Owner(i), want)
		}
	}
	owner, ok := table.NullOwner()
	if !ok || owner != 2 {
		t.Fatalf("null owner: got (%d,%v), want (2,true)", owner, ok)
	}
	if desc.Partitions[2] != "pnull" {
		t.Errorf("NULL-only partition must still get a canonical index, got %q", desc.Partitions[2])
	}
}

func TestBuildBoundTable_ListDedupWithinPartition(t *testing.T) {
	key := textListKey(t)
	desc, err := BuildBoundTable(key, []PartitionDecl{listDecl("p", false, "x", "x", "y")})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if desc.Table.NumBounds() != 2 {
		t.Errorf("duplicate value within one partition must collapse, got %d bounds", desc.Table.NumBounds())
	}
}

func TestBuildBoundTable_Errors(t *testing.T) {
	listKey := textListKey(t)
	rangeKey := intRangeKey(t, 2)

	_, err := BuildBoundTable(listKey, []PartitionDecl{
		listDecl("p1", true, "a"),
		listDecl("p2", true),
	})
	if errors.GetCode(err) != errors.CodeDuplicateNull {
		t.Errorf("duplicate NULL: got %v, want %s", err, errors.CodeDuplicateNull)
	}

	_, err = BuildBoundTable(rangeKey, []PartitionDecl{
		rangeDecl("p", finites(5, 5), finites(5, 5)),
	})
	if errors.GetCode(err) != errors.CodeEmptyRange {
		t.Errorf("empty range: got %v, want %s", err, errors.CodeEmptyRange)
	}

	_, err = BuildBoundTable(rangeKey, []PartitionDecl{
		rangeDecl("p", finites(1), finites(2)),
	})
	if errors.GetCode(err) != errors.CodeWrongComponentCount {
		t.Errorf("wrong component count: got %v, want %s", err, errors.CodeWrongComponentCount)
	}

	_, err = BuildBoundTable(listKey, []PartitionDecl{
		listDecl("p1", false, "a"),
		listDecl("p2", false, "a"),
	})
	if errors.GetCategory(err) != errors.ErrCategoryDefinition {
		t.Errorf("cross-partition duplicate value: got %v, want definition error", err)
	}

	_, err = BuildBoundTable(rangeKey, []PartitionDecl{
		{ID: "p", Bound: Declaration{Strategy: StrategyList, List: &ListDeclaration{}}},
	})
	if errors.GetCode(err) != errors.CodeStrategyMismatch {
		t.Errorf("strategy mismatch: got %v, want %s", err, errors.CodeStrategyMismatch)
	}
}

func TestBoundTable_EqualDetectsChanges(t *testing.T) {
	key := intRangeKey(t, 1)
	base := []PartitionDecl{
		rangeDecl("p0", finites(0), finites(10)),
		rangeDecl("p1", finites(10), finites(20)),
	}
	moved := []PartitionDecl{
		rangeDecl("p0", finites(0), finites(10)),
		rangeDecl("p1", finites(10), finites(21)),
	}

	a, err := BuildBoundTable(key, base)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	b, err := BuildBoundTable(key, moved)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if a.Table.Equal(b.Table) {
		t.Error("moving a bound must break equality")
	}
}

func TestBuildBoundTable_Empty(t *testing.T) {
	key := intRangeKey(t, 1)
	desc, err := BuildBoundTable(key, nil)
	if err != nil {
		t.Fatalf("empty build failed: %v", err)
	}
	if desc.Table.NumBounds() != 0 || desc.Table.NumPartitions() != 0 {
		t.Errorf("empty table: got %d bounds, %d partitions", desc.Table.NumBounds(), desc.Table.NumPartitions())
	}
}
