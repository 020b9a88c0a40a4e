package pivot

import (
	"context"
	"fmt"
	"math"

	"go-retail-pivot/internal/model"
	"go-retail-pivot/pkg/utils"

	"github.com/google/uuid"
)

const (
	// UnknownValue groups records with a missing dimension value.
	UnknownValue = "Unknown"
	// AllValue labels the single root built when no dimension is active.
	AllValue = "All"

	// cancelEvery is how many records are folded between context checks.
	cancelEvery = 256
)

// nodeNamespace scopes the name-based node IDs.
var nodeNamespace = uuid.MustParse("8f0c2f4e-5a3d-4c1b-9d7e-2b6a1f3c9e10")

// PivotNode is one group in the pivot tree.
type PivotNode struct {
	ID           string             `json:"id"`
	Level        int                `json:"level"`
	DimensionKey string             `json:"dimension"`
	Value        string             `json:"value"`
	Children     []*PivotNode       `json:"children,omitempty"`
	Members      []model.Record     `json:"members,omitempty"` // leaf only
	Aggregates   map[string]float64 `json:"aggregates"`
	IsLeaf       bool               `json:"isLeaf"`
	Count        int                `json:"count"`

	path  string
	index map[string]*PivotNode
	accs  []accumulator
}

// HasChildren reports whether flattening can show anything beneath the node.
func (n *PivotNode) HasChildren() bool {
	if n.IsLeaf {
		return len(n.Members) > 0
	}
	return len(n.Children) > 0
}

type accumulator struct {
	spec  model.AggregationSpec
	sum   float64
	count int
	min   float64
	max   float64
}

func newAccumulators(aggs []model.AggregationSpec) []accumulator {
	accs := make([]accumulator, len(aggs))
	for i, spec := range aggs {
		accs[i] = accumulator{spec: spec, min: math.Inf(1), max: math.Inf(-1)}
	}
	return accs
}

func (a *accumulator) fold(v float64) float64 {
	a.count++
	a.sum += v
	if v < a.min {
		a.min = v
	}
	if v > a.max {
		a.max = v
	}
	switch a.spec.Reducer {
	case model.ReducerCount:
		return float64(a.count)
	case model.ReducerAverage:
		return a.sum / float64(a.count)
	case model.ReducerMin:
		return a.min
	case model.ReducerMax:
		return a.max
	default:
		return a.sum
	}
}

// BuildOptions tunes a build.
type BuildOptions struct {
	// MaxNodes caps the number of group nodes. Zero means no cap.
	MaxNodes int
	// Strict turns a coerced aggregation input into an error.
	Strict bool
}

// BuildResult is a built forest and its counters.
type BuildResult struct {
	Roots     []*PivotNode
	Nodes     int
	Leaves    int
	Coercions int
}

type builder struct {
	dims  []model.Dimension
	aggs  []model.AggregationSpec
	opts  BuildOptions
	res   *BuildResult
	roots map[string]*PivotNode
}

// Build folds records into a tree, one level per dimension. Siblings keep
// the order in which their value was first seen. Every record lands on
// exactly one root-to-leaf path.
func Build(ctx context.Context, records []model.Record, dims []model.Dimension, aggs []model.AggregationSpec, opts BuildOptions) (*BuildResult, error) {
	b := &builder{
		dims:  dims,
		aggs:  aggs,
		opts:  opts,
		res:   &BuildResult{},
		roots: make(map[string]*PivotNode),
	}
	values := make([]float64, len(aggs))

	for i, rec := range records {
		if i%cancelEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if err := b.measure(rec, values); err != nil {
			return nil, err
		}
		if err := b.place(rec, values); err != nil {
			return nil, err
		}
	}
	return b.res, nil
}

// measure reads every aggregation input once per record.
func (b *builder) measure(rec model.Record, values []float64) error {
	for i, spec := range b.aggs {
		if spec.Reducer == model.ReducerCount {
			values[i] = 1
			continue
		}
		raw, _ := spec.Value(rec)
		v, ok := utils.Numeric(raw)
		if !ok {
			b.res.Coercions++
			if b.opts.Strict {
				return newError(KindCoercionFallback, spec.Field, "value %v is not numeric", raw)
			}
			v = 0
		}
		values[i] = v
	}
	return nil
}

func (b *builder) place(rec model.Record, values []float64) error {
	if len(b.dims) == 0 {
		node, err := b.child(nil, "", AllValue, 0, true)
		if err != nil {
			return err
		}
		b.fold(node, rec, values)
		return nil
	}

	var parent *PivotNode
	for level, dim := range b.dims {
		leaf := level == len(b.dims)-1
		node, err := b.child(parent, dim.Key, groupValue(dim, rec), level, leaf)
		if err != nil {
			return err
		}
		b.fold(node, rec, values)
		parent = node
	}
	return nil
}

// child finds or creates the node for value under parent (nil for roots).
func (b *builder) child(parent *PivotNode, key, value string, level int, leaf bool) (*PivotNode, error) {
	siblings := b.roots
	parentPath := ""
	if parent != nil {
		siblings = parent.index
		parentPath = parent.path
	}
	if node, ok := siblings[value]; ok {
		return node, nil
	}
	if b.opts.MaxNodes > 0 && b.res.Nodes >= b.opts.MaxNodes {
		return nil, newError(KindNodeLimit, key, "more than %d groups", b.opts.MaxNodes)
	}

	path := parentPath + pathSegment(key, value)
	node := &PivotNode{
		ID:           uuid.NewSHA1(nodeNamespace, []byte(path)).String(),
		Level:        level,
		DimensionKey: key,
		Value:        value,
		Aggregates:   make(map[string]float64, len(b.aggs)),
		IsLeaf:       leaf,
		path:         path,
		accs:         newAccumulators(b.aggs),
	}
	if !leaf {
		node.index = make(map[string]*PivotNode)
	}
	siblings[value] = node
	if parent != nil {
		parent.Children = append(parent.Children, node)
	} else {
		b.res.Roots = append(b.res.Roots, node)
	}
	b.res.Nodes++
	if leaf {
		b.res.Leaves++
	}
	return node, nil
}

func (b *builder) fold(node *PivotNode, rec model.Record, values []float64) {
	node.Count++
	if node.IsLeaf {
		node.Members = append(node.Members, rec)
	}
	for i := range node.accs {
		acc := &node.accs[i]
		node.Aggregates[acc.spec.Label] = acc.fold(values[i])
	}
}

// groupValue renders the grouping key of a record for one dimension.
// pathSegment length-prefixes key and value so no pair of segments can
// spell the same path.
func pathSegment(key, value string) string {
	return fmt.Sprintf("%d:%s%d:%s", len(key), key, len(value), value)
}

func groupValue(dim model.Dimension, rec model.Record) string {
	raw, ok := dim.Value(rec)
	if !ok || utils.IsEmpty(raw) {
		return UnknownValue
	}
	if dim.Type == model.TypeDate {
		if t, ok := utils.Date(raw); ok {
			switch dim.Bucket {
			case model.BucketYear:
				return t.Format("2006")
			case model.BucketMonth:
				return t.Format("2006-01")
			default:
				return t.Format("2006-01-02")
			}
		}
	}
	if s := utils.Text(raw); s != "" {
		return s
	}
	return UnknownValue
}

// Walk visits nodes depth first in display order until fn returns false.
func Walk(roots []*PivotNode, fn func(*PivotNode) bool) {
	stack := make([]*PivotNode, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			return
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// Leaves returns the leaf nodes in display order.
func Leaves(roots []*PivotNode) []*PivotNode {
	var out []*PivotNode
	Walk(roots, func(n *PivotNode) bool {
		if n.IsLeaf {
			out = append(out, n)
		}
		return true
	})
	return out
}
