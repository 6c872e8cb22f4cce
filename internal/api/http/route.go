package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tesseradb/tessera/internal/catalog"
	"github.com/tesseradb/tessera/internal/dispatch"
	"github.com/tesseradb/tessera/pkg/types"
)

// RouteRequest represents a row routing request. Each row element is a
// tagged datum object; JSON null is SQL NULL.
type RouteRequest struct {
	TableID string            `json:"table_id"`
	Row     []json.RawMessage `json:"row"`
}

// RouteResponse represents the routing response.
type RouteResponse struct {
	LeafTableID string `json:"leaf_table_id"`
	LeafSlot    int    `json:"leaf_slot"`
	RequestID   string `json:"request_id"`
}

// RouteHandler handles POST /v1/route requests.
type RouteHandler struct {
	catalog *catalog.Catalog
	eval    dispatch.ExprEvaluator
}

// NewRouteHandler creates a new route handler. eval may be nil when no
// table uses expression key columns.
func NewRouteHandler(cat *catalog.Catalog, eval dispatch.ExprEvaluator) *RouteHandler {
	return &RouteHandler{catalog: cat, eval: eval}
}

// ServeHTTP handles the route HTTP request.
func (h *RouteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), requestID)
		return
	}
	if req.TableID == "" {
		writeError(w, http.StatusBadRequest, "table_id is required", requestID)
		return
	}

	row, err := decodeJSONRow(req.Row)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid row data: %v", err), requestID)
		return
	}

	snap, err := h.catalog.Snapshot(r.Context())
	if err != nil {
		writeStructuredError(w, err, requestID)
		return
	}
	tree, err := dispatch.BuildTree(snap, types.TableID(req.TableID), h.eval)
	if err != nil {
		writeStructuredError(w, err, requestID)
		return
	}
	slot, err := tree.Route(row)
	if err != nil {
		writeStructuredError(w, err, requestID)
		return
	}
	leaf, err := tree.LeafTable(slot)
	if err != nil {
		writeStructuredError(w, err, requestID)
		return
	}

	writeJSON(w, http.StatusOK, RouteResponse{
		LeafTableID: string(leaf),
		LeafSlot:    slot,
		RequestID:   requestID,
	})
}

// decodeJSONRow converts raw JSON row elements to a typed row.
func decodeJSONRow(raw []json.RawMessage) (types.Row, error) {
	row := make(types.Row, len(raw))
	for i, elem := range raw {
		if len(elem) == 0 || bytes.Equal(bytes.TrimSpace(elem), []byte("null")) {
			continue
		}
		d, err := types.DecodeDatum(elem)
		if err != nil {
			return nil, fmt.Errorf("row element %d: %w", i, err)
		}
		row[i] = d
	}
	return row, nil
}
