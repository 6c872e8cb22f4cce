package partition

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/tesseradb/tessera/pkg/types"
)

// declsFromBoundaries turns a set of raw int64 values into a valid set
// of non-overlapping range declarations: sorted distinct values become
// consecutive [v[i], v[i+1]) intervals, with every third interval left
// as a gap so the tables exercise unowned segments too.
func declsFromBoundaries(raw []int64) []PartitionDecl {
	seen := make(map[int64]bool, len(raw))
	var vals []int64
	for _, v := range raw {
		if !seen[v] {
			seen[v] = true
			vals = append(vals, v)
		}
	}
	sort.Slice(vals, func(a, b int) bool { return vals[a] < vals[b] })

	var decls []PartitionDecl
	for i := 0; i+1 < len(vals); i++ {
		if i%3 == 2 {
			continue // leave a gap
		}
		decls = append(decls, rangeDecl(
			fmt.Sprintf("p%d", len(decls)),
			finites(vals[i]), finites(vals[i+1]),
		))
	}
	return decls
}

// Bound tables are canonical: any permutation of the same declarations
// builds a structurally equal table.
func TestProperty_BoundTablePermutationInvariance(t *testing.T) {
	key := intRangeKey(t, 1)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("permuting declarations preserves table equality", prop.ForAll(
		func(raw []int64, seed int64) bool {
			decls := declsFromBoundaries(raw)
			if len(decls) == 0 {
				return true
			}
			permuted := make([]PartitionDecl, len(decls))
			copy(permuted, decls)
			rng := rand.New(rand.NewSource(seed))
			rng.Shuffle(len(permuted), func(i, j int) {
				permuted[i], permuted[j] = permuted[j], permuted[i]
			})

			a, err := BuildBoundTable(key, decls)
			if err != nil {
				return false
			}
			b, err := BuildBoundTable(key, permuted)
			if err != nil {
				return false
			}
			return a.Table.Equal(b.Table) &&
				DescriptorsEqual(a, b) &&
				a.Table.Fingerprint() == b.Table.Fingerprint()
		},
		gen.SliceOf(gen.Int64Range(-1000, 1000)),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

// referenceSearchRow is the linear-scan oracle for SearchRow.
func referenceSearchRow(key *Key, table *BoundTable, tuple []types.Datum) (int, bool) {
	offset, equal := -1, false
	for i := 0; i < table.NumBounds(); i++ {
		c := key.CompareBoundToRow(table.Bound(i), tuple)
		if c > 0 {
			break
		}
		offset = i
		equal = c == 0
	}
	return offset, equal
}

// Binary search must agree with a reference linear scan on every probe:
// bounds[offset] <= probe < bounds[offset+1], with -1 at the low end.
func TestProperty_SearchMatchesLinearScan(t *testing.T) {
	key := intRangeKey(t, 1)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("binary search equals linear scan", prop.ForAll(
		func(raw []int64, probe int64) bool {
			desc, err := BuildBoundTable(key, declsFromBoundaries(raw))
			if err != nil {
				return false
			}
			table := desc.Table

			gotOff, gotEq := table.SearchRow(key, []types.Datum{probe})
			wantOff, wantEq := referenceSearchRow(key, table, []types.Datum{probe})
			if gotOff != wantOff || gotEq != wantEq {
				return false
			}

			// Cross-check the bracketing invariant directly.
			if gotOff >= 0 && key.CompareBoundToRow(table.Bound(gotOff), []types.Datum{probe}) > 0 {
				return false
			}
			if gotOff+1 < table.NumBounds() &&
				key.CompareBoundToRow(table.Bound(gotOff+1), []types.Datum{probe}) <= 0 {
				return false
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(-500, 500)),
		gen.Int64Range(-600, 600),
	))

	properties.TestingRun(t)
}

// Any candidate drawn from an owned segment must conflict; any
// candidate fitting exactly inside a gap must pass.
func TestProperty_OverlapSegments(t *testing.T) {
	key := intRangeKey(t, 1)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("owned segments conflict, gaps fit", prop.ForAll(
		func(raw []int64) bool {
			decls := declsFromBoundaries(raw)
			if len(decls) == 0 {
				return true
			}
			desc, err := BuildBoundTable(key, decls)
			if err != nil {
				return false
			}

			// Every original declaration re-proposed must conflict with
			// the partition that already owns it.
			for _, d := range decls {
				err := CheckOverlap(key, desc, d.Bound)
				with, ok := ConflictingPartition(err)
				if !ok || with != d.ID {
					return false
				}
			}

			// Every unowned inter-bound segment re-proposed as a
			// partition must pass.
			table := desc.Table
			for i := 0; i+1 < table.NumBounds(); i++ {
				if table.Owner(i+1) >= 0 {
					continue
				}
				gap := rangeCandidate(table.Bound(i), table.Bound(i+1))
				if err := CheckOverlap(key, desc, gap); err != nil {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(-1000, 1000)),
	))

	properties.TestingRun(t)
}
