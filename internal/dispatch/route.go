package dispatch

import (
	"fmt"

	"github.com/tesseradb/tessera/internal/errors"
	"github.com/tesseradb/tessera/internal/partition"
	"github.com/tesseradb/tessera/pkg/types"
)

// Route finds the leaf slot for a row given in the root table's layout.
// It descends from the root, translating the row at each layout
// boundary, until an owning leaf partition is found. A row no partition
// accepts yields a ROUTING error naming the node where the descent
// stopped and the row as that node saw it.
func (t *Tree) Route(row types.Row) (int, error) {
	node := &t.Nodes[0]
	if len(row) != len(node.Layout.Columns) {
		return -1, errors.NewRoutingError(
			"row has %d columns, table %s has %d",
			len(row), node.Table, len(node.Layout.Columns))
	}

	cur := row
	for {
		if node.Translator != nil {
			cur = node.Translator.Translate(cur)
		}

		tuple, err := node.extractKey(cur)
		if err != nil {
			return -1, err
		}

		owner := node.ownerFor(tuple)
		if owner < 0 {
			return -1, errors.NewRoutingError(
				"no partition of %s accepts the row", node.Table).
				WithDetails(map[string]interface{}{
					"table": node.Table,
					"row":   fmt.Sprintf("%v", cur),
					"key":   fmt.Sprintf("%v", tuple),
				})
		}

		slot := node.Slots[owner]
		if slot.Leaf {
			return slot.Index, nil
		}
		node = &t.Nodes[slot.Index]
	}
}

// RouteToTable routes a row and resolves the leaf slot to its table.
func (t *Tree) RouteToTable(row types.Row) (types.TableID, error) {
	slot, err := t.Route(row)
	if err != nil {
		return "", err
	}
	return t.LeafTable(slot)
}

// extractKey evaluates the node's key columns against a row in the
// node's own layout.
func (n *Node) extractKey(row types.Row) ([]types.Datum, error) {
	tuple := make([]types.Datum, len(n.extractors))
	for i, ex := range n.extractors {
		if ex.position >= 0 {
			tuple[i] = row[ex.position]
			continue
		}
		v, err := n.eval.Eval(ex.expression, n.Layout, row)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCategoryRouting, errors.CodeNoPartition,
				fmt.Sprintf("evaluating key expression of %s", n.Table), err)
		}
		tuple[i] = v
	}
	return tuple, nil
}

// ownerFor selects the canonical partition index owning a key tuple,
// or -1 when no partition accepts it.
func (n *Node) ownerFor(tuple []types.Datum) int {
	table := n.Desc.Table

	switch n.Key.Strategy() {
	case partition.StrategyList:
		if tuple[0] == nil {
			if owner, ok := table.NullOwner(); ok {
				return owner
			}
			return -1
		}
		offset, equal := table.SearchRow(n.Key, tuple)
		if offset >= 0 && equal {
			return table.Owner(offset)
		}
		return -1

	default: // range
		for _, d := range tuple {
			if d == nil {
				return -1
			}
		}
		offset, _ := table.SearchRow(n.Key, tuple)
		return table.Owner(offset + 1)
	}
}
