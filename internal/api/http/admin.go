package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tesseradb/tessera/internal/cache"
	"github.com/tesseradb/tessera/internal/catalog"
	"github.com/tesseradb/tessera/internal/notify"
	"github.com/tesseradb/tessera/internal/observability"
	"github.com/tesseradb/tessera/internal/storage"
	"github.com/tesseradb/tessera/pkg/types"
)

// StatsHandler handles GET /v1/stats requests.
type StatsHandler struct {
	stats *observability.RouteStats
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(stats *observability.RouteStats) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// ServeHTTP returns the busiest routing roots. The optional n query
// parameter limits the result, default 10.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "n must be a positive integer", requestID)
			return
		}
		n = parsed
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tables":     h.stats.Top(n),
		"request_id": requestID,
	})
}

// InvalidateRequest represents a cache invalidation request.
type InvalidateRequest struct {
	TableID string `json:"table_id"`
}

// InvalidateHandler handles POST /v1/invalidate requests.
type InvalidateHandler struct {
	cache    *cache.BoundTableCache
	notifier *notify.Notifier
}

// NewInvalidateHandler creates a new invalidation handler.
func NewInvalidateHandler(c *cache.BoundTableCache, n *notify.Notifier) *InvalidateHandler {
	return &InvalidateHandler{cache: c, notifier: n}
}

// ServeHTTP drops a table's cached bound table and broadcasts the
// change.
func (h *InvalidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	var req InvalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), requestID)
		return
	}
	if req.TableID == "" {
		writeError(w, http.StatusBadRequest, "table_id is required", requestID)
		return
	}
	id := types.TableID(req.TableID)

	_, _, cached := h.cache.Get(id)
	h.cache.Invalidate(id)
	h.notifier.Publish(notify.Event{Type: notify.BoundChanged, Table: id})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dropped":    cached,
		"request_id": requestID,
	})
}

// SnapshotHandler handles /v1/snapshots requests: POST archives the
// current catalog to the archive store, GET lists stored archives.
type SnapshotHandler struct {
	catalog *catalog.Catalog
	store   storage.ArchiveStore
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(cat *catalog.Catalog, store storage.ArchiveStore) *SnapshotHandler {
	return &SnapshotHandler{catalog: cat, store: store}
}

// ServeHTTP dispatches on method.
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	switch r.Method {
	case http.MethodPost:
		h.create(w, r, requestID)
	case http.MethodGet:
		h.list(w, r, requestID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
	}
}

func (h *SnapshotHandler) create(w http.ResponseWriter, r *http.Request, requestID string) {
	snap, err := h.catalog.Snapshot(r.Context())
	if err != nil {
		writeStructuredError(w, err, requestID)
		return
	}

	var buf bytes.Buffer
	if err := snap.WriteArchive(&buf); err != nil {
		writeStructuredError(w, err, requestID)
		return
	}

	name := fmt.Sprintf("catalog-%s-%s.tsnap",
		time.Now().UTC().Format("20060102T150405"), uuid.NewString()[:8])
	if err := h.store.Put(r.Context(), name, &buf); err != nil {
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to store archive: %v", err), requestID)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"archive":    name,
		"tables":     snap.NumTables(),
		"request_id": requestID,
	})
}

func (h *SnapshotHandler) list(w http.ResponseWriter, r *http.Request, requestID string) {
	names, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to list archives: %v", err), requestID)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"archives":   names,
		"request_id": requestID,
	})
}

// HealthHandler handles GET /healthz requests.
type HealthHandler struct{}

// ServeHTTP reports liveness.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
