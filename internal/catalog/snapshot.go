package catalog

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/golang/snappy"
	"github.com/tesseradb/tessera/internal/errors"
	"github.com/tesseradb/tessera/internal/partition"
	"github.com/tesseradb/tessera/pkg/types"
)

// Snapshot is an immutable in-memory copy of the whole catalog, read
// inside a single transaction. Bound table and dispatch tree builds
// take a Snapshot so that a concurrent DDL writer can never hand them
// half of an old hierarchy and half of a new one.
type Snapshot struct {
	tables   map[types.TableID]*TableMeta
	children map[types.TableID][]types.TableID
}

// Snapshot reads the full catalog within one read transaction.
func (c *Catalog) Snapshot(ctx context.Context) (*Snapshot, error) {
	tx, err := c.reader().BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewCatalogError(errors.CodeCatalogIO, "beginning snapshot transaction", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT table_id, name, parent_id, partitioned, strategy, layout, key_spec, bound
		FROM tables ORDER BY name`)
	if err != nil {
		return nil, errors.NewCatalogError(errors.CodeCatalogIO, "reading snapshot", err)
	}
	defer rows.Close()

	metas, err := collectTables(rows)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		tables:   make(map[types.TableID]*TableMeta, len(metas)),
		children: make(map[types.TableID][]types.TableID),
	}
	for _, m := range metas {
		snap.tables[m.ID] = m
		if m.Parent != "" {
			snap.children[m.Parent] = append(snap.children[m.Parent], m.ID)
		}
	}
	c.log.Debug().Int("tables", len(metas)).Msg("catalog snapshot taken")
	return snap, nil
}

// Table returns one entry of the snapshot.
func (s *Snapshot) Table(id types.TableID) (*TableMeta, error) {
	meta, ok := s.tables[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCategoryCatalog, errors.CodeTableNotFound,
			"table %s not in snapshot", id)
	}
	return meta, nil
}

// Children returns the partitions of a table in name order.
func (s *Snapshot) Children(id types.TableID) []*TableMeta {
	ids := s.children[id]
	out := make([]*TableMeta, 0, len(ids))
	for _, cid := range ids {
		out = append(out, s.tables[cid])
	}
	return out
}

// Parent returns a table's parent id, if it has one.
func (s *Snapshot) Parent(id types.TableID) (types.TableID, bool) {
	meta, ok := s.tables[id]
	if !ok || meta.Parent == "" {
		return "", false
	}
	return meta.Parent, true
}

// NumTables returns the number of entries in the snapshot.
func (s *Snapshot) NumTables() int {
	return len(s.tables)
}

// archiveVersion guards archive format evolution.
const archiveVersion = 1

type archiveRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Parent      string          `json:"parent,omitempty"`
	Partitioned bool            `json:"partitioned,omitempty"`
	Strategy    string          `json:"strategy,omitempty"`
	Layout      json.RawMessage `json:"layout"`
	KeySpec     json.RawMessage `json:"key_spec,omitempty"`
	Bound       json.RawMessage `json:"bound,omitempty"`
}

type archiveHeader struct {
	Version   int             `json:"version"`
	CreatedAt int64           `json:"created_at"`
	Tables    []archiveRecord `json:"tables"`
}

// WriteArchive serializes the snapshot as a snappy-compressed archive.
func (s *Snapshot) WriteArchive(w io.Writer) error {
	hdr := archiveHeader{Version: archiveVersion, CreatedAt: time.Now().Unix()}

	ids := make([]types.TableID, 0, len(s.tables))
	for id := range s.tables {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	for _, id := range ids {
		m := s.tables[id]
		rec := archiveRecord{
			ID:          string(m.ID),
			Name:        m.Name,
			Parent:      string(m.Parent),
			Partitioned: m.Partitioned,
			Strategy:    string(m.Strategy),
		}
		var err error
		if rec.Layout, err = json.Marshal(m.Layout); err != nil {
			return errors.NewCatalogError(errors.CodeCatalogIO, "archiving layout", err)
		}
		if m.Partitioned {
			if rec.KeySpec, err = json.Marshal(m.KeyColumns); err != nil {
				return errors.NewCatalogError(errors.CodeCatalogIO, "archiving key spec", err)
			}
		}
		if m.Bound != nil {
			wire, err := declarationToWire(m.Bound)
			if err != nil {
				return err
			}
			if rec.Bound, err = json.Marshal(wire); err != nil {
				return errors.NewCatalogError(errors.CodeCatalogIO, "archiving bound declaration", err)
			}
		}
		hdr.Tables = append(hdr.Tables, rec)
	}

	raw, err := json.Marshal(hdr)
	if err != nil {
		return errors.NewCatalogError(errors.CodeCatalogIO, "encoding archive", err)
	}
	if _, err := w.Write(snappy.Encode(nil, raw)); err != nil {
		return errors.NewCatalogError(errors.CodeCatalogIO, "writing archive", err)
	}
	return nil
}

// ReadArchive parses an archive back into table entries.
func ReadArchive(r io.Reader) ([]*TableMeta, error) {
	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewCatalogError(errors.CodeCatalogIO, "reading archive", err)
	}
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, errors.NewCatalogError(errors.CodeCatalogIO, "decompressing archive", err)
	}
	var hdr archiveHeader
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return nil, errors.NewCatalogError(errors.CodeCatalogIO, "decoding archive", err)
	}
	if hdr.Version != archiveVersion {
		return nil, errors.Newf(errors.ErrCategoryCatalog, errors.CodeCatalogIO,
			"unsupported archive version %d", hdr.Version)
	}

	out := make([]*TableMeta, 0, len(hdr.Tables))
	for _, rec := range hdr.Tables {
		m := &TableMeta{
			ID:          types.TableID(rec.ID),
			Name:        rec.Name,
			Parent:      types.TableID(rec.Parent),
			Partitioned: rec.Partitioned,
			Strategy:    partition.Strategy(rec.Strategy),
		}
		if err := json.Unmarshal(rec.Layout, &m.Layout); err != nil {
			return nil, errors.NewCatalogError(errors.CodeCatalogIO, "decoding archived layout", err)
		}
		if len(rec.KeySpec) > 0 {
			if err := json.Unmarshal(rec.KeySpec, &m.KeyColumns); err != nil {
				return nil, errors.NewCatalogError(errors.CodeCatalogIO, "decoding archived key spec", err)
			}
		}
		if len(rec.Bound) > 0 {
			var wire wireDeclaration
			if err := json.Unmarshal(rec.Bound, &wire); err != nil {
				return nil, errors.NewCatalogError(errors.CodeCatalogIO, "decoding archived bound", err)
			}
			if m.Bound, err = declarationFromWire(&wire); err != nil {
				return nil, err
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// Restore writes archived entries into the catalog, parents before
// children so bound validation always finds the parent key.
func (c *Catalog) Restore(ctx context.Context, metas []*TableMeta) error {
	byID := make(map[types.TableID]*TableMeta, len(metas))
	for _, m := range metas {
		byID[m.ID] = m
	}

	written := make(map[types.TableID]bool, len(metas))
	pending := append([]*TableMeta(nil), metas...)
	for len(pending) > 0 {
		progressed := false
		var next []*TableMeta
		for _, m := range pending {
			if m.Parent != "" && byID[m.Parent] != nil && !written[m.Parent] {
				next = append(next, m)
				continue
			}
			if err := c.PutTable(ctx, m); err != nil {
				return err
			}
			written[m.ID] = true
			progressed = true
		}
		if !progressed {
			return errors.New(errors.ErrCategoryCatalog, errors.CodeCatalogIO,
				"archive contains a parent cycle")
		}
		pending = next
	}
	c.log.Info().Int("tables", len(metas)).Msg("catalog restored from archive")
	return nil
}
