package dispatch

import (
	"github.com/tesseradb/tessera/internal/errors"
	"github.com/tesseradb/tessera/pkg/types"
)

// Translator maps rows from a parent layout into a child layout by
// column name. Parent and child may order columns differently or carry
// different dropped-column padding; names are the identity.
type Translator struct {
	// mapping[i] is the parent position feeding child position i, or -1
	// for a dropped child column (always NULL).
	mapping []int
}

// NewTranslator builds a parent-to-child translator. It returns nil
// when the layouts are physically identical, so callers can skip the
// copy on the common fast path.
func NewTranslator(parent, child types.Layout) (*Translator, error) {
	identical := len(parent.Columns) == len(child.Columns)
	mapping := make([]int, len(child.Columns))
	for i, col := range child.Columns {
		if col.Dropped {
			mapping[i] = -1
			if identical && !parent.Columns[i].Dropped {
				identical = false
			}
			continue
		}
		pos := parent.Position(col.Name)
		if pos < 0 {
			return nil, errors.NewInternalError(
				"child column %q has no counterpart in the parent layout", col.Name)
		}
		mapping[i] = pos
		if identical && pos != i {
			identical = false
		}
	}
	if identical {
		return nil, nil
	}
	return &Translator{mapping: mapping}, nil
}

// Translate produces the child-layout image of a parent-layout row.
func (t *Translator) Translate(row types.Row) types.Row {
	out := make(types.Row, len(t.mapping))
	for i, pos := range t.mapping {
		if pos >= 0 {
			out[i] = row[pos]
		}
	}
	return out
}
