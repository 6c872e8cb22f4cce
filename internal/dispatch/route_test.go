package dispatch

import (
	goerrors "errors"
	"testing"

	"github.com/tesseradb/tessera/internal/catalog"
	"github.com/tesseradb/tessera/internal/errors"
	"github.com/tesseradb/tessera/internal/partition"
	"github.com/tesseradb/tessera/pkg/types"
)

func TestRoute_TwoLevelDescent(t *testing.T) {
	tree := buildEventsTree(t)

	// Rows are in the root layout (id, region, ts).
	tests := []struct {
		name string
		row  types.Row
		want types.TableID
	}{
		{"first level leaf", types.Row{int64(1), "us", int64(50)}, "p2024"},
		{"descend then list hit", types.Row{int64(2), "uk", int64(150)}, "eu"},
		{"descend to us", types.Row{int64(3), "us", int64(199)}, "us"},
		{"NULL list key to null partition", types.Row{int64(4), nil, int64(150)}, "other"},
	}
	for _, tc := range tests {
		got, err := tree.RouteToTable(tc.row)
		if err != nil {
			t.Errorf("%s: Route failed: %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestRoute_Failures(t *testing.T) {
	tree := buildEventsTree(t)

	tests := []struct {
		name string
		row  types.Row
	}{
		{"range gap above all bounds", types.Row{int64(1), "us", int64(250)}},
		{"range below all bounds", types.Row{int64(1), "us", int64(-5)}},
		{"NULL range key", types.Row{int64(1), "us", nil}},
		{"unlisted value", types.Row{int64(1), "jp", int64(150)}},
	}
	for _, tc := range tests {
		_, err := tree.Route(tc.row)
		if !errors.IsRoutingFailure(err) {
			t.Errorf("%s: got %v, want routing failure", tc.name, err)
		}
	}

	// The unlisted value fails at the list node, not the root, and the
	// error reports the row in that node's (translated) layout.
	_, err := tree.Route(types.Row{int64(1), "jp", int64(150)})
	var se *errors.Error
	if !goerrors.As(err, &se) {
		t.Fatalf("expected structured error, got %v", err)
	}
	if se.Details["table"] != types.TableID("p2025") {
		t.Errorf("failure must name the node where descent stopped, got %v", se.Details["table"])
	}
}

func TestRoute_WrongArity(t *testing.T) {
	tree := buildEventsTree(t)
	if _, err := tree.Route(types.Row{int64(1)}); !errors.IsRoutingFailure(err) {
		t.Errorf("short row: got %v, want routing failure", err)
	}
}

func TestRoute_EmptyPartitionedTable(t *testing.T) {
	snap := buildSnapshot(t, &catalog.TableMeta{
		ID: "root", Name: "events", Partitioned: true,
		Strategy:   partition.StrategyRange,
		Layout:     parentLayout,
		KeyColumns: []partition.KeyColumn{{Column: "ts", Type: types.TypeInt64}},
	})
	tree, err := BuildTree(snap, "root", nil)
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}
	if _, err := tree.Route(types.Row{int64(1), "us", int64(50)}); !errors.IsRoutingFailure(err) {
		t.Errorf("partitioned table without partitions: got %v, want routing failure", err)
	}
}

func TestRoute_ExpressionKey(t *testing.T) {
	snap := buildSnapshot(t,
		&catalog.TableMeta{
			ID: "root", Name: "events", Partitioned: true,
			Strategy:   partition.StrategyRange,
			Layout:     parentLayout,
			KeyColumns: []partition.KeyColumn{{Expression: "ts / 100", Type: types.TypeInt64}},
		},
		&catalog.TableMeta{
			ID: "b0", Name: "events_b0", Parent: "root",
			Layout: parentLayout, Bound: rangeBound(0, 1),
		},
		&catalog.TableMeta{
			ID: "b1", Name: "events_b1", Parent: "root",
			Layout: parentLayout, Bound: rangeBound(1, 2),
		},
	)

	eval := EvalFunc(func(expr string, layout types.Layout, row types.Row) (types.Datum, error) {
		ts := row[layout.Position("ts")].(int64)
		return ts / 100, nil
	})
	tree, err := BuildTree(snap, "root", eval)
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}

	got, err := tree.RouteToTable(types.Row{int64(1), "us", int64(150)})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if got != "b1" {
		t.Errorf("expression key routing: got %s, want b1", got)
	}
}
