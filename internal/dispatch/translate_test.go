package dispatch

import (
	"testing"

	"github.com/tesseradb/tessera/pkg/types"
)

func TestNewTranslator_IdenticalLayouts(t *testing.T) {
	layout := types.Layout{Columns: []types.Column{
		{Name: "a", Type: types.TypeInt64},
		{Name: "b", Type: types.TypeText},
	}}
	tr, err := NewTranslator(layout, layout)
	if err != nil {
		t.Fatalf("NewTranslator failed: %v", err)
	}
	if tr != nil {
		t.Error("identical layouts must yield a nil translator")
	}
}

func TestTranslator_ReordersByName(t *testing.T) {
	parent := types.Layout{Columns: []types.Column{
		{Name: "a", Type: types.TypeInt64},
		{Name: "b", Type: types.TypeText},
		{Name: "c", Type: types.TypeInt64},
	}}
	child := types.Layout{Columns: []types.Column{
		{Name: "c", Type: types.TypeInt64},
		{Name: "a", Type: types.TypeInt64},
		{Name: "b", Type: types.TypeText},
	}}
	tr, err := NewTranslator(parent, child)
	if err != nil {
		t.Fatalf("NewTranslator failed: %v", err)
	}
	got := tr.Translate(types.Row{int64(1), "x", int64(3)})
	want := types.Row{int64(3), int64(1), "x"}
	for i := range want {
		if !types.DatumsEqual(got[i], want[i]) {
			t.Errorf("position %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTranslator_DroppedChildColumnIsNull(t *testing.T) {
	parent := types.Layout{Columns: []types.Column{
		{Name: "a", Type: types.TypeInt64},
	}}
	child := types.Layout{Columns: []types.Column{
		{Name: "gone", Type: types.TypeText, Dropped: true},
		{Name: "a", Type: types.TypeInt64},
	}}
	tr, err := NewTranslator(parent, child)
	if err != nil {
		t.Fatalf("NewTranslator failed: %v", err)
	}
	got := tr.Translate(types.Row{int64(9)})
	if got[0] != nil || got[1].(int64) != 9 {
		t.Errorf("dropped column must be NULL, got %v", got)
	}
}

func TestNewTranslator_MissingColumn(t *testing.T) {
	parent := types.Layout{Columns: []types.Column{{Name: "a", Type: types.TypeInt64}}}
	child := types.Layout{Columns: []types.Column{{Name: "b", Type: types.TypeInt64}}}
	if _, err := NewTranslator(parent, child); err == nil {
		t.Error("a child column absent from the parent must fail")
	}
}
