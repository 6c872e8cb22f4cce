package grpc

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/tesseradb/tessera/api/proto"
	"github.com/tesseradb/tessera/internal/cache"
	"github.com/tesseradb/tessera/internal/catalog"
	"github.com/tesseradb/tessera/internal/notify"
	"github.com/tesseradb/tessera/internal/observability"
	"github.com/tesseradb/tessera/internal/partition"
	"github.com/tesseradb/tessera/pkg/types"
)

func ordersLayout() types.Layout {
	return types.Layout{Columns: []types.Column{
		{Name: "id", Type: types.TypeInt64},
		{Name: "amount", Type: types.TypeInt64},
	}}
}

func rangeDecl(lower, upper int64) *partition.Declaration {
	return &partition.Declaration{
		Strategy: partition.StrategyRange,
		Range: &partition.RangeDeclaration{
			Lower: []partition.BoundDatum{partition.FiniteDatum(lower)},
			Upper: []partition.BoundDatum{partition.FiniteDatum(upper)},
		},
	}
}

// newTestServer builds a server over a catalog holding one range table
// "orders" partitioned on amount, with o1 = [0,100) and o2 = [100,200).
func newTestServer(t *testing.T) (*RouteServer, *notify.Notifier) {
	t.Helper()
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { cat.Close() })

	ctx := context.Background()
	metas := []*catalog.TableMeta{
		{
			ID: "orders", Name: "orders", Partitioned: true,
			Strategy:   partition.StrategyRange,
			Layout:     ordersLayout(),
			KeyColumns: []partition.KeyColumn{{Column: "amount", Type: types.TypeInt64}},
		},
		{ID: "o1", Name: "orders_low", Parent: "orders", Layout: ordersLayout(), Bound: rangeDecl(0, 100)},
		{ID: "o2", Name: "orders_high", Parent: "orders", Layout: ordersLayout(), Bound: rangeDecl(100, 200)},
		{ID: "plain", Name: "plain", Layout: ordersLayout()},
	}
	for _, m := range metas {
		if err := cat.PutTable(ctx, m); err != nil {
			t.Fatalf("PutTable(%s) failed: %v", m.ID, err)
		}
	}

	notifier := notify.NewNotifier(8)
	srv := NewRouteServer(cat, cache.New(zerolog.Nop()), notifier,
		observability.NewRouteStats(time.Hour), nil, zerolog.Nop())
	return srv, notifier
}

func encodeRow(t *testing.T, datums ...types.Datum) *proto.Row {
	t.Helper()
	pr := &proto.Row{Datums: make([][]byte, len(datums))}
	for i, d := range datums {
		if d == nil {
			continue
		}
		raw, err := types.EncodeDatum(d)
		if err != nil {
			t.Fatalf("EncodeDatum failed: %v", err)
		}
		pr.Datums[i] = raw
	}
	return pr
}

func TestRouteRow_RoutesToLeaf(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := metadata.NewIncomingContext(context.Background(),
		metadata.Pairs("x-request-id", "req-123"))

	resp, err := srv.RouteRow(ctx, &proto.RouteRowRequest{
		TableId: "orders",
		Row:     encodeRow(t, int64(7), int64(150)),
	})
	if err != nil {
		t.Fatalf("RouteRow failed: %v", err)
	}
	if resp.LeafTableId != "o2" {
		t.Errorf("leaf: got %s, want o2", resp.LeafTableId)
	}
	if resp.RequestId != "req-123" {
		t.Errorf("request id not propagated: got %s", resp.RequestId)
	}

	stats, ok := srv.stats.Get("orders")
	if !ok || stats.Routes != 1 {
		t.Errorf("route not recorded: %+v ok=%v", stats, ok)
	}
}

func TestRouteRow_NoPartitionForRow(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := srv.RouteRow(context.Background(), &proto.RouteRowRequest{
		TableId: "orders",
		Row:     encodeRow(t, int64(7), int64(500)),
	})
	if status.Code(err) != codes.FailedPrecondition {
		t.Errorf("unroutable row: got %v, want FailedPrecondition", err)
	}

	stats, ok := srv.stats.Get("orders")
	if !ok || stats.Failures != 1 {
		t.Errorf("failure not recorded: %+v ok=%v", stats, ok)
	}
}

func TestRouteRow_Validation(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	_, err := srv.RouteRow(ctx, &proto.RouteRowRequest{Row: encodeRow(t, int64(1), int64(2))})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("missing table_id: got %v, want InvalidArgument", err)
	}

	_, err = srv.RouteRow(ctx, &proto.RouteRowRequest{TableId: "orders"})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("missing row: got %v, want InvalidArgument", err)
	}

	_, err = srv.RouteRow(ctx, &proto.RouteRowRequest{
		TableId: "ghost",
		Row:     encodeRow(t, int64(1), int64(2)),
	})
	if status.Code(err) != codes.NotFound {
		t.Errorf("unknown table: got %v, want NotFound", err)
	}
}

func TestCheckBound_OkAndConflict(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	free, err := catalog.EncodeDeclaration(rangeDecl(200, 300))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.CheckBound(ctx, &proto.CheckBoundRequest{
		ParentId: "orders", Declaration: free,
	})
	if err != nil {
		t.Fatalf("CheckBound failed: %v", err)
	}
	if !resp.Ok || resp.ConflictsWith != "" {
		t.Errorf("free range: got ok=%v conflicts_with=%q", resp.Ok, resp.ConflictsWith)
	}

	overlapping, err := catalog.EncodeDeclaration(rangeDecl(50, 150))
	if err != nil {
		t.Fatal(err)
	}
	resp, err = srv.CheckBound(ctx, &proto.CheckBoundRequest{
		ParentId: "orders", Declaration: overlapping,
	})
	if err != nil {
		t.Fatalf("CheckBound failed: %v", err)
	}
	if resp.Ok || resp.ConflictsWith != "o1" {
		t.Errorf("overlapping range: got ok=%v conflicts_with=%q, want conflict with o1",
			resp.Ok, resp.ConflictsWith)
	}
}

func TestCheckBound_Validation(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	_, err := srv.CheckBound(ctx, &proto.CheckBoundRequest{ParentId: "orders"})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("missing declaration: got %v, want InvalidArgument", err)
	}

	decl, err := catalog.EncodeDeclaration(rangeDecl(0, 1))
	if err != nil {
		t.Fatal(err)
	}
	_, err = srv.CheckBound(ctx, &proto.CheckBoundRequest{ParentId: "plain", Declaration: decl})
	if status.Code(err) != codes.FailedPrecondition {
		t.Errorf("non-partitioned parent: got %v, want FailedPrecondition", err)
	}
}

func TestInvalidate_DropsCacheAndNotifies(t *testing.T) {
	srv, notifier := newTestServer(t)
	ctx := context.Background()

	sub := notifier.Subscribe("test-sub")
	defer notifier.Unsubscribe("test-sub")

	// Prime the cache through a bound check.
	decl, err := catalog.EncodeDeclaration(rangeDecl(200, 300))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := srv.CheckBound(ctx, &proto.CheckBoundRequest{
		ParentId: "orders", Declaration: decl,
	}); err != nil {
		t.Fatalf("CheckBound failed: %v", err)
	}

	resp, err := srv.Invalidate(ctx, &proto.InvalidateRequest{TableId: "orders"})
	if err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if !resp.Dropped {
		t.Error("cached entry must report dropped")
	}

	select {
	case ev := <-sub.Ch:
		if ev.Type != notify.BoundChanged || ev.Table != "orders" {
			t.Errorf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification received")
	}

	resp, err = srv.Invalidate(ctx, &proto.InvalidateRequest{TableId: "orders"})
	if err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if resp.Dropped {
		t.Error("second invalidate must report nothing dropped")
	}
}
