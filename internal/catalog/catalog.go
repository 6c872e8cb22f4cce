package catalog

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/tesseradb/tessera/internal/errors"
	"github.com/tesseradb/tessera/internal/partition"
	"github.com/tesseradb/tessera/pkg/types"
)

// Catalog is the SQLite-backed table catalog. Writes go through a
// single-connection writer; reads run on a separate read-only pool so
// snapshot builds never queue behind DDL.
type Catalog struct {
	db     *sql.DB // Write connection (single writer)
	readDB *sql.DB // Read connection pool (concurrent readers)
	dbPath string
	mu     sync.Mutex // Write-only lock (reads don't need this)
	log    zerolog.Logger
}

// Open opens (creating if necessary) the catalog database at dbPath.
func Open(dbPath string, log zerolog.Logger) (*Catalog, error) {
	// Write connection: single writer with WAL mode
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, errors.NewCatalogError(errors.CodeCatalogIO, "opening catalog database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	c := &Catalog{db: db, dbPath: dbPath, log: log}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	// Read connection pool: concurrent readers via read-only mode.
	// Opened after initSchema so a fresh database file exists.
	readDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&mode=ro")
	if err != nil {
		db.Close()
		return nil, errors.NewCatalogError(errors.CodeCatalogIO, "opening catalog read pool", err)
	}
	readDB.SetMaxOpenConns(4)
	readDB.SetMaxIdleConns(4)
	readDB.SetConnMaxLifetime(5 * time.Minute)
	c.readDB = readDB

	log.Info().Str("path", dbPath).Msg("catalog opened")
	return c, nil
}

// initSchema creates all required tables and indexes.
func (c *Catalog) initSchema() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, stmt := range AllSchemaSQL() {
		if _, err := c.db.Exec(stmt); err != nil {
			return errors.NewCatalogError(errors.CodeCatalogIO, "initializing catalog schema", err)
		}
	}
	return nil
}

// PutTable inserts or replaces a table entry. Bound declarations are
// validated against the parent's partition key, so a malformed
// declaration is rejected at write time instead of poisoning every
// later bound table build.
func (c *Catalog) PutTable(ctx context.Context, meta *TableMeta) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	if meta.Parent != "" {
		parent, err := c.GetTable(ctx, meta.Parent)
		if err != nil {
			return err
		}
		if !parent.Partitioned {
			return errors.Newf(errors.ErrCategoryCatalog, errors.CodeCatalogIO,
				"parent table %s is not partitioned", meta.Parent)
		}
		key, err := parent.BuildKey()
		if err != nil {
			return err
		}
		if err := meta.Bound.Validate(key); err != nil {
			return err
		}
	}

	layout, err := encodeBlob(meta.Layout)
	if err != nil {
		return err
	}
	var keySpec, bound []byte
	if meta.Partitioned {
		if keySpec, err = encodeBlob(meta.KeyColumns); err != nil {
			return err
		}
	}
	if meta.Bound != nil {
		if bound, err = EncodeDeclaration(meta.Bound); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO tables (
			table_id, name, parent_id, partitioned, strategy,
			layout, key_spec, bound, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(meta.ID), meta.Name, nullableID(meta.Parent), meta.Partitioned,
		nullableString(string(meta.Strategy)), layout, keySpec, bound,
		time.Now().Unix(),
	)
	if err != nil {
		return errors.NewCatalogError(errors.CodeCatalogIO, "inserting table entry", err)
	}

	c.log.Debug().
		Str("table", string(meta.ID)).
		Str("name", meta.Name).
		Bool("partitioned", meta.Partitioned).
		Msg("catalog entry written")
	return nil
}

// GetTable retrieves one table entry by id.
func (c *Catalog) GetTable(ctx context.Context, id types.TableID) (*TableMeta, error) {
	row := c.reader().QueryRowContext(ctx, `
		SELECT table_id, name, parent_id, partitioned, strategy, layout, key_spec, bound
		FROM tables WHERE table_id = ?`, string(id))
	meta, err := scanTable(row)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCategoryCatalog, errors.CodeTableNotFound,
			"table %s not found", id)
	}
	return meta, err
}

// ListChildren returns the partitions of a table, ordered by name. The
// order is the catalog scan order; it carries no semantic weight, since
// bound table construction assigns canonical order itself.
func (c *Catalog) ListChildren(ctx context.Context, parent types.TableID) ([]*TableMeta, error) {
	rows, err := c.reader().QueryContext(ctx, `
		SELECT table_id, name, parent_id, partitioned, strategy, layout, key_spec, bound
		FROM tables WHERE parent_id = ? ORDER BY name`, string(parent))
	if err != nil {
		return nil, errors.NewCatalogError(errors.CodeCatalogIO, "listing children", err)
	}
	defer rows.Close()
	return collectTables(rows)
}

// GetParent returns the parent of a partition. A table without a parent
// yields TABLE_NOT_FOUND, matching the lookup of a missing table.
func (c *Catalog) GetParent(ctx context.Context, child types.TableID) (types.TableID, error) {
	meta, err := c.GetTable(ctx, child)
	if err != nil {
		return "", err
	}
	if meta.Parent == "" {
		return "", errors.Newf(errors.ErrCategoryCatalog, errors.CodeTableNotFound,
			"table %s has no parent", child)
	}
	return meta.Parent, nil
}

// DeleteTable removes a table entry. Tables with children cannot be
// deleted; drop the leaves first.
func (c *Catalog) DeleteTable(ctx context.Context, id types.TableID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tables WHERE parent_id = ?`, string(id)).Scan(&n)
	if err != nil {
		return errors.NewCatalogError(errors.CodeCatalogIO, "counting children", err)
	}
	if n > 0 {
		return errors.Newf(errors.ErrCategoryCatalog, errors.CodeCatalogIO,
			"table %s still has %d partitions", id, n)
	}

	res, err := c.db.ExecContext(ctx, `DELETE FROM tables WHERE table_id = ?`, string(id))
	if err != nil {
		return errors.NewCatalogError(errors.CodeCatalogIO, "deleting table entry", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errors.Newf(errors.ErrCategoryCatalog, errors.CodeTableNotFound,
			"table %s not found", id)
	}
	c.log.Debug().Str("table", string(id)).Msg("catalog entry deleted")
	return nil
}

// Close closes both database handles.
func (c *Catalog) Close() error {
	var firstErr error
	if c.readDB != nil {
		if err := c.readDB.Close(); err != nil {
			firstErr = err
		}
	}
	if err := c.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return errors.NewCatalogError(errors.CodeCatalogIO, "closing catalog", firstErr)
	}
	return nil
}

// reader returns the read pool, falling back to the write connection
// before the pool exists (schema init time).
func (c *Catalog) reader() *sql.DB {
	if c.readDB != nil {
		return c.readDB
	}
	return c.db
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTable(row rowScanner) (*TableMeta, error) {
	var (
		id, name            string
		parent, strategy    sql.NullString
		partitioned         bool
		layout              []byte
		keySpec, boundBlobs []byte
	)
	err := row.Scan(&id, &name, &parent, &partitioned, &strategy, &layout, &keySpec, &boundBlobs)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.NewCatalogError(errors.CodeCatalogIO, "scanning table entry", err)
	}

	meta := &TableMeta{
		ID:          types.TableID(id),
		Name:        name,
		Partitioned: partitioned,
	}
	if parent.Valid {
		meta.Parent = types.TableID(parent.String)
	}
	if strategy.Valid {
		meta.Strategy = partition.Strategy(strategy.String)
	}
	if err := decodeBlob(layout, &meta.Layout); err != nil {
		return nil, err
	}
	if len(keySpec) > 0 {
		if err := decodeBlob(keySpec, &meta.KeyColumns); err != nil {
			return nil, err
		}
	}
	if len(boundBlobs) > 0 {
		decl, err := DecodeDeclaration(boundBlobs)
		if err != nil {
			return nil, err
		}
		meta.Bound = decl
	}
	return meta, nil
}

func collectTables(rows *sql.Rows) ([]*TableMeta, error) {
	var out []*TableMeta
	for rows.Next() {
		meta, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewCatalogError(errors.CodeCatalogIO, "iterating table entries", err)
	}
	return out, nil
}

func nullableID(id types.TableID) interface{} {
	if id == "" {
		return nil
	}
	return string(id)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
