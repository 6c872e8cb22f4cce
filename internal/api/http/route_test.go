package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tesseradb/tessera/internal/cache"
	"github.com/tesseradb/tessera/internal/catalog"
	"github.com/tesseradb/tessera/internal/notify"
	"github.com/tesseradb/tessera/internal/observability"
	"github.com/tesseradb/tessera/internal/partition"
	"github.com/tesseradb/tessera/internal/storage"
	"github.com/tesseradb/tessera/pkg/types"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { cat.Close() })

	layout := types.Layout{Columns: []types.Column{
		{Name: "id", Type: types.TypeInt64},
		{Name: "amount", Type: types.TypeInt64},
	}}
	bound := func(lower, upper int64) *partition.Declaration {
		return &partition.Declaration{
			Strategy: partition.StrategyRange,
			Range: &partition.RangeDeclaration{
				Lower: []partition.BoundDatum{partition.FiniteDatum(lower)},
				Upper: []partition.BoundDatum{partition.FiniteDatum(upper)},
			},
		}
	}

	ctx := context.Background()
	metas := []*catalog.TableMeta{
		{
			ID: "orders", Name: "orders", Partitioned: true,
			Strategy:   partition.StrategyRange,
			Layout:     layout,
			KeyColumns: []partition.KeyColumn{{Column: "amount", Type: types.TypeInt64}},
		},
		{ID: "o1", Name: "orders_low", Parent: "orders", Layout: layout, Bound: bound(0, 100)},
		{ID: "o2", Name: "orders_high", Parent: "orders", Layout: layout, Bound: bound(100, 200)},
	}
	for _, m := range metas {
		if err := cat.PutTable(ctx, m); err != nil {
			t.Fatalf("PutTable(%s) failed: %v", m.ID, err)
		}
	}
	return cat
}

func routeBody(t *testing.T, tableID string, datums ...types.Datum) *bytes.Buffer {
	t.Helper()
	row := make([]json.RawMessage, len(datums))
	for i, d := range datums {
		if d == nil {
			row[i] = json.RawMessage("null")
			continue
		}
		raw, err := types.EncodeDatum(d)
		if err != nil {
			t.Fatalf("EncodeDatum failed: %v", err)
		}
		row[i] = raw
	}
	body, err := json.Marshal(RouteRequest{TableID: tableID, Row: row})
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewBuffer(body)
}

func TestRouteHandler_RoutesRow(t *testing.T) {
	handler := DefaultMiddleware()(NewRouteHandler(testCatalog(t), nil))

	req := httptest.NewRequest(http.MethodPost, "/v1/route", routeBody(t, "orders", int64(7), int64(42)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}
	var resp RouteResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.LeafTableID != "o1" {
		t.Errorf("leaf: got %s, want o1", resp.LeafTableID)
	}
	if resp.RequestID == "" {
		t.Error("request id missing")
	}
}

func TestRouteHandler_Errors(t *testing.T) {
	handler := DefaultMiddleware()(NewRouteHandler(testCatalog(t), nil))

	cases := []struct {
		name string
		body *bytes.Buffer
		want int
	}{
		{"unroutable row", routeBody(t, "orders", int64(7), int64(900)), http.StatusUnprocessableEntity},
		{"null range key", routeBody(t, "orders", int64(7), nil), http.StatusUnprocessableEntity},
		{"unknown table", routeBody(t, "ghost", int64(7), int64(42)), http.StatusNotFound},
		{"missing table_id", bytes.NewBufferString(`{"row":[]}`), http.StatusBadRequest},
		{"malformed body", bytes.NewBufferString("{"), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/route", tc.body)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status: got %d, want %d (body %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestRouteHandler_MethodNotAllowed(t *testing.T) {
	handler := DefaultMiddleware()(NewRouteHandler(testCatalog(t), nil))
	req := httptest.NewRequest(http.MethodGet, "/v1/route", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rec.Code)
	}
}

func TestStatsHandler(t *testing.T) {
	stats := observability.NewRouteStats(time.Hour)
	stats.RecordRoute("orders", "o1", time.Millisecond)
	handler := DefaultMiddleware()(NewStatsHandler(stats))

	req := httptest.NewRequest(http.MethodGet, "/v1/stats?n=5", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "orders") {
		t.Errorf("stats body missing table: %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/stats?n=bogus", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad n: got %d, want 400", rec.Code)
	}
}

func TestInvalidateHandler(t *testing.T) {
	c := cache.New(zerolog.Nop())
	notifier := notify.NewNotifier(4)
	sub := notifier.Subscribe("test-sub")
	defer notifier.Unsubscribe("test-sub")

	handler := DefaultMiddleware()(NewInvalidateHandler(c, notifier))

	req := httptest.NewRequest(http.MethodPost, "/v1/invalidate",
		bytes.NewBufferString(`{"table_id":"orders"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}
	select {
	case ev := <-sub.Ch:
		if ev.Table != "orders" {
			t.Errorf("event table: got %s", ev.Table)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification received")
	}
}

func TestSnapshotHandler_CreateAndList(t *testing.T) {
	cat := testCatalog(t)
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	handler := DefaultMiddleware()(NewSnapshotHandler(cat, store))

	req := httptest.NewRequest(http.MethodPost, "/v1/snapshots", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d body %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/snapshots", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: got %d", rec.Code)
	}
	var resp struct {
		Archives []string `json:"archives"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Archives) != 1 {
		t.Errorf("archives: got %v, want one entry", resp.Archives)
	}
}
