// Package constraint derives the implicit check predicate of a
// partition from its bound declaration. The predicate answers "does
// this key tuple belong to the partition" without consulting the bound
// table, so planners and integrity checks can reason about a single
// partition in isolation.
package constraint

import (
	"fmt"
	"strings"

	"github.com/tesseradb/tessera/internal/errors"
	"github.com/tesseradb/tessera/internal/partition"
	"github.com/tesseradb/tessera/pkg/types"
)

// Predicate is an immutable membership test for one partition's bounds.
type Predicate struct {
	key  *partition.Key
	decl partition.Declaration
}

// ForDeclaration builds the membership predicate for a declaration.
// The declaration is validated against the key before use.
func ForDeclaration(key *partition.Key, decl partition.Declaration) (*Predicate, error) {
	if err := decl.Validate(key); err != nil {
		return nil, err
	}
	return &Predicate{key: key, decl: decl}, nil
}

// Matches reports whether the key tuple falls within the partition's
// declared bounds. The tuple must have one component per key column;
// NULL components are permitted and handled per strategy: a NULL list
// key matches only a NULL-accepting partition, and a range key with any
// NULL component matches no range partition.
func (p *Predicate) Matches(keyTuple []types.Datum) (bool, error) {
	if len(keyTuple) != p.key.NumColumns() {
		return false, errors.NewDefinitionError(errors.CodeWrongComponentCount,
			"key tuple has %d components, partition key has %d columns",
			len(keyTuple), p.key.NumColumns())
	}

	switch p.decl.Strategy {
	case partition.StrategyList:
		if keyTuple[0] == nil {
			return p.decl.List.AcceptsNull, nil
		}
		for _, v := range p.decl.List.Values {
			if p.key.CompareBoundToRow([]partition.BoundDatum{partition.FiniteDatum(v)}, keyTuple) == 0 {
				return true, nil
			}
		}
		return false, nil

	case partition.StrategyRange:
		for _, d := range keyTuple {
			if d == nil {
				return false, nil
			}
		}
		if p.key.CompareBoundToRow(p.decl.Range.Lower, keyTuple) > 0 {
			return false, nil
		}
		return p.key.CompareBoundToRow(p.decl.Range.Upper, keyTuple) > 0, nil
	}
	return false, errors.NewInternalError("unknown partition strategy %q", p.decl.Strategy)
}

// String renders the predicate in a SQL-like form for logs and
// explain output. Infinite range bounds are elided: a partition
// bounded below by negative infinity has no lower clause at all.
func (p *Predicate) String() string {
	cols := p.key.Columns()

	switch p.decl.Strategy {
	case partition.StrategyList:
		var b strings.Builder
		col := cols[0].Column
		if len(p.decl.List.Values) > 0 {
			fmt.Fprintf(&b, "%s IN (", col)
			for i, v := range p.decl.List.Values {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%v", v)
			}
			b.WriteString(")")
		}
		if p.decl.List.AcceptsNull {
			if b.Len() > 0 {
				b.WriteString(" OR ")
			}
			fmt.Fprintf(&b, "%s IS NULL", col)
		}
		if b.Len() == 0 {
			return "false"
		}
		return b.String()

	case partition.StrategyRange:
		var clauses []string
		if clause := rangeClause(cols, p.decl.Range.Lower, ">="); clause != "" {
			clauses = append(clauses, clause)
		}
		if clause := rangeClause(cols, p.decl.Range.Upper, "<"); clause != "" {
			clauses = append(clauses, clause)
		}
		if len(clauses) == 0 {
			return "true"
		}
		return strings.Join(clauses, " AND ")
	}
	return "false"
}

// rangeClause renders one side of a range bound as a row comparison,
// truncating at the first infinite component. A bound that is infinite
// in its first component constrains nothing and yields "". A trailing
// positive infinity is absorbed into the operator: (a, b) < (5, +inf)
// holds exactly when a <= 5.
func rangeClause(cols []partition.KeyColumn, bound []partition.BoundDatum, op string) string {
	var names, vals []string
	for i, d := range bound {
		if d.Kind != partition.Finite {
			if d.Kind == partition.PositiveInfinity {
				switch op {
				case "<":
					op = "<="
				case ">=":
					op = ">"
				}
			}
			break
		}
		names = append(names, cols[i].Column)
		vals = append(vals, fmt.Sprintf("%v", d.Value))
	}
	if len(names) == 0 {
		return ""
	}
	if len(names) == 1 {
		return fmt.Sprintf("%s %s %s", names[0], op, vals[0])
	}
	return fmt.Sprintf("(%s) %s (%s)",
		strings.Join(names, ", "), op, strings.Join(vals, ", "))
}
