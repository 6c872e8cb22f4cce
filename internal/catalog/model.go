// Package catalog stores the partition hierarchy: every table's
// identity, layout, partition key, and bound declaration live in a
// SQLite database. Bound tables and dispatch trees are always built
// from a Snapshot so one routing session sees one consistent catalog
// state.
package catalog

import (
	"github.com/tesseradb/tessera/internal/errors"
	"github.com/tesseradb/tessera/internal/partition"
	"github.com/tesseradb/tessera/pkg/types"
)

// TableMeta is one catalog entry. A table is partitioned (it has a key
// and children), a partition (it has a parent and a bound declaration),
// both, or neither.
type TableMeta struct {
	// ID is the table's stable identity.
	ID types.TableID

	// Name is the human-readable table name, unique among siblings.
	Name string

	// Parent is the owning partitioned table, empty for root tables.
	Parent types.TableID

	// Partitioned marks a table that is itself subdivided. A
	// partitioned table stores no rows of its own.
	Partitioned bool

	// Strategy is the partitioning strategy; set only when Partitioned.
	Strategy partition.Strategy

	// Layout is the table's physical column order.
	Layout types.Layout

	// KeyColumns define the partition key; set only when Partitioned.
	KeyColumns []partition.KeyColumn

	// Bound is the table's bound declaration within its parent; nil for
	// root tables.
	Bound *partition.Declaration
}

// Validate checks the entry's internal consistency. Bound declarations
// are additionally validated against the parent's key when written to
// the catalog.
func (m *TableMeta) Validate() error {
	if !m.ID.Valid() {
		return errors.NewCatalogError(errors.CodeCatalogIO, "table entry has invalid id", nil)
	}
	if m.Name == "" {
		return errors.NewCatalogError(errors.CodeCatalogIO, "table entry has empty name", nil)
	}
	if err := m.Layout.Validate(); err != nil {
		return errors.NewCatalogError(errors.CodeCatalogIO, "invalid table layout", err)
	}
	if m.Partitioned {
		if !m.Strategy.Valid() {
			return errors.Newf(errors.ErrCategoryCatalog, errors.CodeCatalogIO,
				"partitioned table %s has unknown strategy %q", m.ID, m.Strategy)
		}
		if len(m.KeyColumns) == 0 {
			return errors.Newf(errors.ErrCategoryCatalog, errors.CodeCatalogIO,
				"partitioned table %s has no key columns", m.ID)
		}
	} else if len(m.KeyColumns) > 0 || m.Strategy != "" {
		return errors.Newf(errors.ErrCategoryCatalog, errors.CodeCatalogIO,
			"non-partitioned table %s carries a partition key", m.ID)
	}
	if m.Bound != nil && m.Parent == "" {
		return errors.Newf(errors.ErrCategoryCatalog, errors.CodeCatalogIO,
			"table %s declares a bound but has no parent", m.ID)
	}
	if m.Bound == nil && m.Parent != "" {
		return errors.Newf(errors.ErrCategoryCatalog, errors.CodeCatalogIO,
			"partition %s of %s has no bound declaration", m.ID, m.Parent)
	}
	return nil
}

// BuildKey resolves the partition key of a partitioned table.
func (m *TableMeta) BuildKey() (*partition.Key, error) {
	if !m.Partitioned {
		return nil, errors.NewInternalError("table %s is not partitioned", m.ID)
	}
	return partition.NewKey(m.Strategy, m.KeyColumns)
}
