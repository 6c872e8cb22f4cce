package catalog

// The catalog database (catalog.db) is the source of truth for the
// partition hierarchy. One row per table; layout, key spec, and bound
// declaration are snappy-compressed JSON blobs.

// CreateTablesTableSQL creates the core tables table.
const CreateTablesTableSQL = `
CREATE TABLE IF NOT EXISTS tables (
    table_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    parent_id TEXT,
    partitioned INTEGER NOT NULL DEFAULT 0,
    strategy TEXT,
    layout BLOB NOT NULL,
    key_spec BLOB,
    bound BLOB,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (parent_id) REFERENCES tables(table_id)
)`

// CreateTablesIndexesSQL creates indexes for hierarchy walks.
var CreateTablesIndexesSQL = []string{
	// Index for child enumeration during dispatch tree builds
	`CREATE INDEX IF NOT EXISTS idx_tables_parent ON tables(parent_id)`,

	// Index for name lookups
	`CREATE INDEX IF NOT EXISTS idx_tables_name ON tables(name)`,
}

// AllSchemaSQL returns all SQL statements needed to initialize the
// catalog database.
func AllSchemaSQL() []string {
	statements := []string{CreateTablesTableSQL}
	statements = append(statements, CreateTablesIndexesSQL...)
	return statements
}
