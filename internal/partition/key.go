// Package partition implements the partitioning core: canonical bound
// tables built from per-partition declarations, strategy-aware bound
// comparison, binary search over bound tables, and overlap checking for
// candidate partitions.
package partition

import (
	"github.com/tesseradb/tessera/internal/errors"
	"github.com/tesseradb/tessera/pkg/types"
)

// Strategy selects how a table's key space is divided.
type Strategy string

const (
	// StrategyList assigns each partition an explicit set of key values.
	StrategyList Strategy = "list"

	// StrategyRange assigns each partition a half-open [lower, upper)
	// interval of the key space.
	StrategyRange Strategy = "range"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyList || s == StrategyRange
}

// KeyColumn is one column of a partition key. Either Column names a
// plain table column, or Expression holds an opaque expression source
// evaluated by the caller-supplied evaluator during routing.
type KeyColumn struct {
	// Column is the table column name; empty for expression columns.
	Column string `json:"column,omitempty"`

	// Expression is the expression source; empty for plain columns.
	Expression string `json:"expression,omitempty"`

	// Type is the value type of the key component.
	Type types.ColumnType `json:"type"`

	// Collation names the comparison collation. Only meaningful for
	// TEXT components.
	Collation string `json:"collation,omitempty"`

	// compare is the resolved three-way comparison for this component.
	compare types.CompareFunc
}

// Key is a partitioned table's partition key: the strategy plus 1..N
// ordered key columns with resolved comparison functions. A Key is
// immutable once constructed.
type Key struct {
	strategy Strategy
	columns  []KeyColumn
}

// NewKey constructs a Key, resolving each column's comparison function.
// List keys must have exactly one column.
func NewKey(strategy Strategy, columns []KeyColumn) (*Key, error) {
	if !strategy.Valid() {
		return nil, errors.Newf(errors.ErrCategoryInternal, errors.CodeStrategyMismatch,
			"unknown partition strategy %q", strategy)
	}
	if len(columns) == 0 {
		return nil, errors.NewInternalError("partition key must have at least one column")
	}
	if strategy == StrategyList && len(columns) != 1 {
		return nil, errors.NewInternalError(
			"list partition key must have exactly one column, got %d", len(columns))
	}
	cols := make([]KeyColumn, len(columns))
	copy(cols, columns)
	for i := range cols {
		if cols[i].Column == "" && cols[i].Expression == "" {
			return nil, errors.NewInternalError("partition key column %d names neither a column nor an expression", i)
		}
		cmp, err := types.CompareFuncFor(cols[i].Type, cols[i].Collation)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCategoryInternal, errors.CodeUnexpected,
				"resolving partition key comparison", err)
		}
		cols[i].compare = cmp
	}
	return &Key{strategy: strategy, columns: cols}, nil
}

// Strategy returns the key's partitioning strategy.
func (k *Key) Strategy() Strategy {
	return k.strategy
}

// NumColumns returns the number of key columns.
func (k *Key) NumColumns() int {
	return len(k.columns)
}

// Columns returns the key columns. Callers must not mutate the result.
func (k *Key) Columns() []KeyColumn {
	return k.columns
}

// checkStrategy verifies that a declaration's strategy matches the key.
// A mismatch is a caller contract breach, not a definition error.
func (k *Key) checkStrategy(s Strategy) error {
	if s != k.strategy {
		return errors.Newf(errors.ErrCategoryInternal, errors.CodeStrategyMismatch,
			"declaration strategy %q does not match key strategy %q", s, k.strategy)
	}
	return nil
}
