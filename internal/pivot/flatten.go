package pivot

import (
	"go-retail-pivot/internal/model"
)

// RowKind tells group rows from detail rows.
type RowKind string

const (
	RowGroup  RowKind = "group"
	RowDetail RowKind = "detail"
)

// DisplayRow is one renderable line of a flattened pivot.
type DisplayRow struct {
	Kind         RowKind            `json:"kind"`
	NodeID       string             `json:"nodeId"`
	Level        int                `json:"level"`
	DimensionKey string             `json:"dimension,omitempty"`
	Value        string             `json:"value,omitempty"`
	Aggregates   map[string]float64 `json:"aggregates,omitempty"`
	HasChildren  bool               `json:"hasChildren"`
	IsExpanded   bool               `json:"isExpanded"`
	Record       model.Record       `json:"record,omitempty"` // detail only
}

// TreeView owns the expansion state of a pivot forest.
type TreeView struct {
	expanded map[string]struct{}
}

// NewTreeView returns a view with everything collapsed.
func NewTreeView() *TreeView {
	return &TreeView{expanded: make(map[string]struct{})}
}

// Expand marks a node as expanded.
func (t *TreeView) Expand(id string) { t.expanded[id] = struct{}{} }

// Collapse marks a node as collapsed.
func (t *TreeView) Collapse(id string) { delete(t.expanded, id) }

// Toggle flips a node and returns its new state.
func (t *TreeView) Toggle(id string) bool {
	if t.IsExpanded(id) {
		t.Collapse(id)
		return false
	}
	t.Expand(id)
	return true
}

// IsExpanded reports whether a node is expanded.
func (t *TreeView) IsExpanded(id string) bool {
	_, ok := t.expanded[id]
	return ok
}

// ExpandAll replaces the expansion state with every node in the forest.
func (t *TreeView) ExpandAll(roots []*PivotNode) {
	t.expanded = make(map[string]struct{})
	Walk(roots, func(n *PivotNode) bool {
		t.expanded[n.ID] = struct{}{}
		return true
	})
}

// CollapseAll empties the expansion state.
func (t *TreeView) CollapseAll() { t.expanded = make(map[string]struct{}) }

// Retain drops expanded IDs that no longer exist in the forest.
func (t *TreeView) Retain(roots []*PivotNode) {
	live := make(map[string]struct{}, len(t.expanded))
	Walk(roots, func(n *PivotNode) bool {
		if _, ok := t.expanded[n.ID]; ok {
			live[n.ID] = struct{}{}
		}
		return true
	})
	t.expanded = live
}

// ExpandedIDs lists the expanded node IDs in no particular order.
func (t *TreeView) ExpandedIDs() []string {
	ids := make([]string, 0, len(t.expanded))
	for id := range t.expanded {
		ids = append(ids, id)
	}
	return ids
}

// Flatten projects the forest into rows. Children follow their group row
// only when it is expanded; leaf members become detail rows one level
// deeper.
func (t *TreeView) Flatten(roots []*PivotNode) []DisplayRow {
	type item struct {
		node   *PivotNode
		record model.Record
		level  int
		detail bool
	}

	var rows []DisplayRow
	stack := make([]item, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, item{node: roots[i]})
	}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if it.detail {
			rows = append(rows, DisplayRow{
				Kind:   RowDetail,
				NodeID: it.node.ID,
				Level:  it.level,
				Record: it.record,
			})
			continue
		}

		n := it.node
		open := t.IsExpanded(n.ID)
		rows = append(rows, DisplayRow{
			Kind:         RowGroup,
			NodeID:       n.ID,
			Level:        n.Level,
			DimensionKey: n.DimensionKey,
			Value:        n.Value,
			Aggregates:   n.Aggregates,
			HasChildren:  n.HasChildren(),
			IsExpanded:   open,
		})
		if !open {
			continue
		}
		if n.IsLeaf {
			for i := len(n.Members) - 1; i >= 0; i-- {
				stack = append(stack, item{node: n, record: n.Members[i], level: n.Level + 1, detail: true})
			}
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{node: n.Children[i]})
		}
	}
	return rows
}

// Flatten projects a forest against an explicit expanded-ID set.
func Flatten(roots []*PivotNode, expandedIDs []string) []DisplayRow {
	t := NewTreeView()
	for _, id := range expandedIDs {
		t.Expand(id)
	}
	return t.Flatten(roots)
}
