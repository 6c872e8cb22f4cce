// Package dispatch builds routing trees over partition hierarchies and
// routes rows through them to leaf partitions. A tree is built from one
// catalog snapshot, is immutable afterwards, and lives for one routing
// session; concurrent sessions each build their own.
package dispatch

import (
	"github.com/tesseradb/tessera/internal/catalog"
	"github.com/tesseradb/tessera/internal/errors"
	"github.com/tesseradb/tessera/internal/partition"
	"github.com/tesseradb/tessera/pkg/types"
)

// ExprEvaluator evaluates a partition key expression against a row in
// a given layout. The expression source is opaque to the routing core.
type ExprEvaluator interface {
	Eval(expression string, layout types.Layout, row types.Row) (types.Datum, error)
}

// EvalFunc adapts a function to ExprEvaluator.
type EvalFunc func(expression string, layout types.Layout, row types.Row) (types.Datum, error)

// Eval implements ExprEvaluator.
func (f EvalFunc) Eval(expression string, layout types.Layout, row types.Row) (types.Datum, error) {
	return f(expression, layout, row)
}

// ChildSlot is one child reference of a dispatch node: either a leaf
// slot (an index into the tree's leaf list) or an internal node (an
// index into the tree's node list).
type ChildSlot struct {
	Leaf  bool
	Index int
}

// keyExtractor locates one key component within a node's layout: a
// resolved column position, or an expression to evaluate.
type keyExtractor struct {
	position   int
	expression string
}

// Node is one partitioned table in a dispatch tree.
type Node struct {
	// Table identifies the partitioned table.
	Table types.TableID

	// Key is the node's partition key.
	Key *partition.Key

	// Desc is the node's canonical bound table and partition list.
	Desc *partition.Descriptor

	// Layout is the node's own column layout.
	Layout types.Layout

	// Translator converts rows arriving in the parent's layout; nil for
	// the root and for children laid out identically to their parent.
	Translator *Translator

	// Slots holds one child reference per canonical partition,
	// parallel to Desc.Partitions.
	Slots []ChildSlot

	extractors []keyExtractor
	eval       ExprEvaluator
}

// Tree is an immutable dispatch tree: nodes in breadth-first order with
// the root at index 0, and the leaf partitions in slot order.
type Tree struct {
	Nodes  []Node
	leaves []types.TableID
}

// NumLeaves returns the number of leaf partitions reachable from the
// root.
func (t *Tree) NumLeaves() int {
	return len(t.leaves)
}

// LeafTable returns the table occupying a leaf slot.
func (t *Tree) LeafTable(slot int) (types.TableID, error) {
	if slot < 0 || slot >= len(t.leaves) {
		return "", errors.NewInternalError("leaf slot %d out of range [0,%d)", slot, len(t.leaves))
	}
	return t.leaves[slot], nil
}

// Leaves returns all leaf tables in slot order. Callers must not
// mutate the result.
func (t *Tree) Leaves() []types.TableID {
	return t.leaves
}

// BuildTree walks the hierarchy under rootID breadth-first and builds a
// dispatch tree from the snapshot. eval may be nil when no key in the
// hierarchy uses expression columns.
func BuildTree(snap *catalog.Snapshot, rootID types.TableID, eval ExprEvaluator) (*Tree, error) {
	rootMeta, err := snap.Table(rootID)
	if err != nil {
		return nil, err
	}
	if !rootMeta.Partitioned {
		return nil, errors.NewInternalError("table %s is not partitioned", rootID)
	}

	tree := &Tree{}
	queue := []*catalog.TableMeta{rootMeta}

	// Node indexes are assigned at enqueue time so a parent can point
	// at children that have not been built yet.
	nextNode := 1

	for len(queue) > 0 {
		meta := queue[0]
		queue = queue[1:]

		node, children, err := buildNode(snap, meta, eval)
		if err != nil {
			return nil, err
		}

		node.Slots = make([]ChildSlot, len(children))
		for i, child := range children {
			if child.Partitioned {
				node.Slots[i] = ChildSlot{Index: nextNode}
				nextNode++
				queue = append(queue, child)
			} else {
				node.Slots[i] = ChildSlot{Leaf: true, Index: len(tree.leaves)}
				tree.leaves = append(tree.leaves, child.ID)
			}
		}
		tree.Nodes = append(tree.Nodes, *node)
	}
	return tree, nil
}

// buildNode assembles one dispatch node plus its children in canonical
// partition order.
func buildNode(snap *catalog.Snapshot, meta *catalog.TableMeta, eval ExprEvaluator) (*Node, []*catalog.TableMeta, error) {
	key, err := meta.BuildKey()
	if err != nil {
		return nil, nil, err
	}

	childMetas := snap.Children(meta.ID)
	decls := make([]partition.PartitionDecl, len(childMetas))
	byID := make(map[types.TableID]*catalog.TableMeta, len(childMetas))
	for i, cm := range childMetas {
		if cm.Bound == nil {
			return nil, nil, errors.Newf(errors.ErrCategoryCatalog, errors.CodeCatalogIO,
				"partition %s of %s has no bound declaration", cm.ID, meta.ID)
		}
		decls[i] = partition.PartitionDecl{ID: cm.ID, Bound: *cm.Bound}
		byID[cm.ID] = cm
	}

	desc, err := partition.BuildBoundTable(key, decls)
	if err != nil {
		return nil, nil, err
	}

	node := &Node{
		Table:  meta.ID,
		Key:    key,
		Desc:   desc,
		Layout: meta.Layout,
		eval:   eval,
	}

	if meta.Parent != "" {
		parentMeta, err := snap.Table(meta.Parent)
		if err != nil {
			return nil, nil, err
		}
		if node.Translator, err = NewTranslator(parentMeta.Layout, meta.Layout); err != nil {
			return nil, nil, err
		}
	}

	node.extractors = make([]keyExtractor, key.NumColumns())
	for i, col := range key.Columns() {
		if col.Expression != "" {
			if eval == nil {
				return nil, nil, errors.NewInternalError(
					"key of %s uses an expression but no evaluator was supplied", meta.ID)
			}
			node.extractors[i] = keyExtractor{position: -1, expression: col.Expression}
			continue
		}
		pos := meta.Layout.Position(col.Column)
		if pos < 0 {
			return nil, nil, errors.NewInternalError(
				"key column %q not present in layout of %s", col.Column, meta.ID)
		}
		node.extractors[i] = keyExtractor{position: pos}
	}

	ordered := make([]*catalog.TableMeta, len(desc.Partitions))
	for i, id := range desc.Partitions {
		ordered[i] = byID[id]
	}
	return node, ordered, nil
}
