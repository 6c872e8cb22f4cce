package types

import "github.com/google/uuid"

// TableID uniquely identifies a table (partitioned or leaf) in the
// catalog. IDs are stable across catalog snapshots.
type TableID string

// NewTableID generates a fresh table identity.
func NewTableID() TableID {
	return TableID(uuid.New().String())
}

// Valid reports whether the ID can identify a table. IDs are opaque:
// the catalog generates UUIDs, but any non-empty string is accepted.
func (id TableID) Valid() bool {
	return id != ""
}

func (id TableID) String() string {
	return string(id)
}
