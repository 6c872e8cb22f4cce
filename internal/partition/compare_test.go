package partition

import (
	"testing"

	"github.com/tesseradb/tessera/pkg/types"
)

func mustKey(t *testing.T, strategy Strategy, cols ...KeyColumn) *Key {
	t.Helper()
	key, err := NewKey(strategy, cols)
	if err != nil {
		t.Fatalf("NewKey failed: %v", err)
	}
	return key
}

func intRangeKey(t *testing.T, natts int) *Key {
	t.Helper()
	cols := make([]KeyColumn, natts)
	for i := range cols {
		cols[i] = KeyColumn{Column: "c" + string(rune('0'+i)), Type: types.TypeInt64}
	}
	return mustKey(t, StrategyRange, cols...)
}

func finites(vals ...int64) []BoundDatum {
	out := make([]BoundDatum, len(vals))
	for i, v := range vals {
		out[i] = FiniteDatum(v)
	}
	return out
}

func TestCompareBoundTuples_Finite(t *testing.T) {
	key := intRangeKey(t, 2)

	tests := []struct {
		name   string
		a, b   []BoundDatum
		aLower bool
		bLower bool
		want   int
	}{
		{"first column decides", finites(1, 9), finites(2, 0), true, true, -1},
		{"second column breaks tie", finites(5, 1), finites(5, 2), true, true, -1},
		{"equal same side", finites(5, 5), finites(5, 5), true, true, 0},
		{"greater", finites(7, 0), finites(5, 9), false, false, 1},
	}
	for _, tc := range tests {
		if got := key.CompareBoundTuples(tc.a, tc.aLower, tc.b, tc.bLower); sign(got) != tc.want {
			t.Errorf("%s: got %d, want sign %d", tc.name, got, tc.want)
		}
	}
}

func TestCompareBoundTuples_Infinities(t *testing.T) {
	key := intRangeKey(t, 1)

	if got := key.CompareBoundTuples([]BoundDatum{NegInf()}, true, finites(0), false); got >= 0 {
		t.Errorf("-inf vs finite: got %d, want < 0", got)
	}
	if got := key.CompareBoundTuples([]BoundDatum{PosInf()}, false, finites(1 << 60), true); got <= 0 {
		t.Errorf("+inf vs finite: got %d, want > 0", got)
	}
	if got := key.CompareBoundTuples([]BoundDatum{NegInf()}, true, []BoundDatum{PosInf()}, false); got >= 0 {
		t.Errorf("-inf vs +inf: got %d, want < 0", got)
	}
	if got := key.CompareBoundTuples([]BoundDatum{NegInf()}, true, []BoundDatum{NegInf()}, true); got != 0 {
		t.Errorf("-inf vs -inf: got %d, want 0", got)
	}
}

// Equal-valued bounds on opposite sides: the upper (exclusive) bound
// sorts before the lower one, so upper-of-A and lower-of-B at the same
// value collapse into one table entry in the right order.
func TestCompareBoundTuples_LowerUpperTieBreak(t *testing.T) {
	key := intRangeKey(t, 1)

	if got := key.CompareBoundTuples(finites(10), true, finites(10), false); got <= 0 {
		t.Errorf("lower vs upper at same value: got %d, want > 0", got)
	}
	if got := key.CompareBoundTuples(finites(10), false, finites(10), true); got >= 0 {
		t.Errorf("upper vs lower at same value: got %d, want < 0", got)
	}
}

func TestCompareBoundToRow(t *testing.T) {
	key := intRangeKey(t, 2)

	if got := key.CompareBoundToRow(finites(10, 10), []types.Datum{int64(10), int64(10)}); got != 0 {
		t.Errorf("equal tuple: got %d, want 0 (no tie-break against rows)", got)
	}
	if got := key.CompareBoundToRow(finites(10, 10), []types.Datum{int64(10), int64(11)}); got >= 0 {
		t.Errorf("bound below row: got %d, want < 0", got)
	}
	if got := key.CompareBoundToRow([]BoundDatum{NegInf(), FiniteDatum(int64(0))}, []types.Datum{int64(-1 << 60), int64(0)}); got >= 0 {
		t.Errorf("-inf bound vs row: got %d, want < 0", got)
	}
	if got := key.CompareBoundToRow([]BoundDatum{FiniteDatum(int64(5)), PosInf()}, []types.Datum{int64(5), int64(1 << 60)}); got <= 0 {
		t.Errorf("+inf component dominates: got %d, want > 0", got)
	}
}

func TestCompareText_Collations(t *testing.T) {
	key := mustKey(t, StrategyList, KeyColumn{Column: "name", Type: types.TypeText, Collation: types.CollationNoCase})

	a := []BoundDatum{FiniteDatum("Alpha")}
	b := []BoundDatum{FiniteDatum("alpha")}
	if got := key.CompareBoundTuples(a, false, b, false); got != 0 {
		t.Errorf("nocase collation: got %d, want 0", got)
	}
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
