package planner

import (
	"fmt"
	"slices"

	"github.com/corvusdb/corvus/internal/sql/wire"
)

// NodeKind tags the closed set of operator variants. The serialization and
// explain engines switch on it instead of type-asserting concrete nodes.
type NodeKind int

const (
	KindScan NodeKind = iota
	KindSelect
	KindHashJoin
	KindAggregation
	KindSort
	KindExchange
	KindEmptySet
)

func (k NodeKind) String() string {
	switch k {
	case KindScan:
		return "SCAN"
	case KindSelect:
		return "SELECT"
	case KindHashJoin:
		return "HASH JOIN"
	case KindAggregation:
		return "AGGREGATE"
	case KindSort:
		return "SORT"
	case KindExchange:
		return "EXCHANGE"
	case KindEmptySet:
		return "EMPTYSET"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(k))
	}
}

func (k NodeKind) wireKind() wire.NodeKind {
	switch k {
	case KindScan:
		return wire.NodeScan
	case KindSelect:
		return wire.NodeSelect
	case KindHashJoin:
		return wire.NodeHashJoin
	case KindAggregation:
		return wire.NodeAggregation
	case KindSort:
		return wire.NodeSort
	case KindExchange:
		return wire.NodeExchange
	case KindEmptySet:
		return wire.NodeEmptySet
	default:
		return wire.NodeInvalid
	}
}

// PlanNode is one relational operator in the plan tree. Each node owns its
// ordered children exclusively; operators that need input from elsewhere
// (exchange) reference fragments, never shared nodes.
//
// Lifecycle: construct children-first, Init each node once as it is created,
// optionally recompute stats as the tree is edited, Finalize once at the
// root, then serialize. The tree is read-only after serialization.
type PlanNode interface {
	ID() PlanNodeID
	SetID(id PlanNodeID)
	Name() string
	Kind() NodeKind
	Children() []PlanNode
	Child(i int) PlanNode

	Limit() int64
	SetLimit(limit int64)
	HasLimit() bool
	UnsetLimit()

	TupleIDs() []TupleID
	TblRefIDs() []TupleID
	SetTblRefIDs(ids []TupleID)
	NullableTupleIDs() []TupleID
	MarkTupleNullable(id TupleID)

	Conjuncts() []Expression
	AddConjunct(conjunct Expression)
	AddConjuncts(conjuncts []Expression)
	PreFilterConjuncts() []Expression
	AddPreFilterConjuncts(conjuncts []Expression)
	TransferConjuncts(recipient PlanNode)

	CompactData() bool
	SetCompactData(on bool)

	Cardinality() int64
	NumNodes() int
	AvgRowSize() float64
	NumInstances() int
	SetNumInstances(n int)

	OutputSmap() *ExprSubstitutionMap
	SetOutputSmap(smap *ExprSubstitutionMap)
	WithoutTupleIsNullOutputSmap() *ExprSubstitutionMap
	SetWithoutTupleIsNullOutputSmap(smap *ExprSubstitutionMap)

	Fragment() *PlanFragment
	SetFragment(fragment *PlanFragment)
	FragmentID() FragmentID

	RuntimeFilters() []*RuntimeFilter
	AddRuntimeFilter(filter *RuntimeFilter)
	ClearRuntimeFilters()

	// Operator hooks. The base node supplies defaults; variants extend them
	// (calling the base implementation first for ComputeStats).
	ComputeTupleIDs()
	ClearTupleIDs()
	Init(analyzer Analyzer) error
	ComputeStats(analyzer Analyzer)
	ComputeNumNodes()
	ComputeOldCardinality()
	Finalize(analyzer Analyzer) error
	MaterializedSlotIDs(ids []SlotID) []SlotID

	toWirePayload(msg *wire.PlanNode)
	explainDetail(detailPrefix string, level ExplainLevel) string
	baseNode() *basePlanNode
}

// basePlanNode carries the state and default behavior every operator
// shares. Concrete variants embed it and keep a back-pointer in self so the
// defaults can dispatch to overridden hooks.
type basePlanNode struct {
	self PlanNode

	name string
	kind NodeKind
	id   PlanNodeID

	fragment *PlanFragment

	// limit caps the row count; -1 means unset.
	limit int64

	// tupleIDs are the tuples materialized by the tree rooted here.
	// tblRefIDs starts identical and diverges only for nodes that group
	// several base table refs under fewer materialized tuples.
	tupleIDs         []TupleID
	tblRefIDs        []TupleID
	nullableTupleIDs map[TupleID]struct{}

	conjuncts []Expression
	// preFilterConjuncts run against raw source rows, before column
	// conversion and before conjuncts.
	preFilterConjuncts []Expression

	cardinality  int64
	numNodes     int
	avgRowSize   float64
	compactData  bool
	numInstances int

	outputSmap             *ExprSubstitutionMap
	withoutTupleIsNullSmap *ExprSubstitutionMap

	runtimeFilters []*RuntimeFilter

	children []PlanNode
}

func newBasePlanNode(id PlanNodeID, kind NodeKind, name string, tupleIDs []TupleID) basePlanNode {
	return basePlanNode{
		name:             name,
		kind:             kind,
		id:               id,
		limit:            -1,
		tupleIDs:         append([]TupleID{}, tupleIDs...),
		tblRefIDs:        append([]TupleID{}, tupleIDs...),
		nullableTupleIDs: make(map[TupleID]struct{}),
		cardinality:      -1,
		numNodes:         -1,
		numInstances:     1,
	}
}

// copyBasePlanNode clones node's shared state under a new id, resetting its
// cardinality. Used when the planner duplicates an operator.
func copyBasePlanNode(id PlanNodeID, node PlanNode, kind NodeKind, name string) basePlanNode {
	src := node.baseNode()
	b := basePlanNode{
		name:             name,
		kind:             kind,
		id:               id,
		limit:            src.limit,
		tupleIDs:         slices.Clone(src.tupleIDs),
		tblRefIDs:        slices.Clone(src.tblRefIDs),
		nullableTupleIDs: make(map[TupleID]struct{}, len(src.nullableTupleIDs)),
		conjuncts:        CloneExprList(src.conjuncts),
		cardinality:      -1,
		numNodes:         -1,
		compactData:      src.compactData,
		numInstances:     1,
	}
	for tid := range src.nullableTupleIDs {
		b.nullableTupleIDs[tid] = struct{}{}
	}
	return b
}

func (b *basePlanNode) baseNode() *basePlanNode { return b }

func (b *basePlanNode) ID() PlanNodeID { return b.id }

// SetID assigns the node id; ids are assigned exactly once.
func (b *basePlanNode) SetID(id PlanNodeID) {
	checkState(b.id == InvalidPlanNodeID, "node id assigned twice (%d then %d)", b.id, id)
	b.id = id
}

func (b *basePlanNode) Name() string { return b.name }

func (b *basePlanNode) Kind() NodeKind { return b.kind }

func (b *basePlanNode) Children() []PlanNode { return b.children }

func (b *basePlanNode) Child(i int) PlanNode { return b.children[i] }

func (b *basePlanNode) addChild(child PlanNode) {
	b.children = append(b.children, child)
}

func (b *basePlanNode) Limit() int64 { return b.limit }

// SetLimit tightens the limit: it takes effect only when no limit is set or
// the new one is lower. Passing -1 never changes a set limit.
func (b *basePlanNode) SetLimit(limit int64) {
	if b.limit == -1 || (limit != -1 && b.limit > limit) {
		b.limit = limit
	}
}

func (b *basePlanNode) HasLimit() bool { return b.limit > -1 }

func (b *basePlanNode) UnsetLimit() { b.limit = -1 }

func (b *basePlanNode) TupleIDs() []TupleID {
	checkState(b.tupleIDs != nil, "tuple ids not initialized on node %d", b.id)
	return b.tupleIDs
}

func (b *basePlanNode) TblRefIDs() []TupleID { return b.tblRefIDs }

func (b *basePlanNode) SetTblRefIDs(ids []TupleID) { b.tblRefIDs = ids }

// NullableTupleIDs returns the nullable subset in tupleIDs order.
func (b *basePlanNode) NullableTupleIDs() []TupleID {
	var ids []TupleID
	for _, tid := range b.tupleIDs {
		if b.isNullableTuple(tid) {
			ids = append(ids, tid)
		}
	}
	return ids
}

// MarkTupleNullable records that tid sits on the nullable side of an outer
// join in this tree. tid must already be materialized here.
func (b *basePlanNode) MarkTupleNullable(id TupleID) {
	checkState(slices.Contains(b.tupleIDs, id),
		"tuple %d marked nullable but not materialized by node %d", id, b.id)
	b.nullableTupleIDs[id] = struct{}{}
}

func (b *basePlanNode) isNullableTuple(id TupleID) bool {
	_, ok := b.nullableTupleIDs[id]
	return ok
}

func (b *basePlanNode) Conjuncts() []Expression { return b.conjuncts }

func (b *basePlanNode) AddConjunct(conjunct Expression) {
	b.conjuncts = append(b.conjuncts, conjunct)
}

func (b *basePlanNode) AddConjuncts(conjuncts []Expression) {
	b.conjuncts = append(b.conjuncts, conjuncts...)
}

func (b *basePlanNode) PreFilterConjuncts() []Expression { return b.preFilterConjuncts }

func (b *basePlanNode) AddPreFilterConjuncts(conjuncts []Expression) {
	b.preFilterConjuncts = append(b.preFilterConjuncts, conjuncts...)
}

func (b *basePlanNode) CompactData() bool { return b.compactData }

// SetCompactData sets the flag on this node and every descendant.
func (b *basePlanNode) SetCompactData(on bool) {
	b.compactData = on
	for _, child := range b.children {
		child.SetCompactData(on)
	}
}

func (b *basePlanNode) Cardinality() int64 { return b.cardinality }

func (b *basePlanNode) NumNodes() int { return b.numNodes }

func (b *basePlanNode) AvgRowSize() float64 { return b.avgRowSize }

func (b *basePlanNode) NumInstances() int { return b.numInstances }

func (b *basePlanNode) SetNumInstances(n int) { b.numInstances = n }

func (b *basePlanNode) OutputSmap() *ExprSubstitutionMap { return b.outputSmap }

func (b *basePlanNode) SetOutputSmap(smap *ExprSubstitutionMap) { b.outputSmap = smap }

// WithoutTupleIsNullOutputSmap defaults to the output smap when no separate
// map has been set.
func (b *basePlanNode) WithoutTupleIsNullOutputSmap() *ExprSubstitutionMap {
	if b.withoutTupleIsNullSmap == nil {
		return b.outputSmap
	}
	return b.withoutTupleIsNullSmap
}

func (b *basePlanNode) SetWithoutTupleIsNullOutputSmap(smap *ExprSubstitutionMap) {
	b.withoutTupleIsNullSmap = smap
}

func (b *basePlanNode) Fragment() *PlanFragment { return b.fragment }

func (b *basePlanNode) SetFragment(fragment *PlanFragment) { b.fragment = fragment }

// FragmentID reads the fragment id through the owning fragment; valid only
// after the fragmentation step has claimed this node.
func (b *basePlanNode) FragmentID() FragmentID {
	checkState(b.fragment != nil, "node %d not assigned to a fragment", b.id)
	return b.fragment.ID()
}

func (b *basePlanNode) RuntimeFilters() []*RuntimeFilter { return b.runtimeFilters }

func (b *basePlanNode) AddRuntimeFilter(filter *RuntimeFilter) {
	b.runtimeFilters = append(b.runtimeFilters, filter)
}

func (b *basePlanNode) ClearRuntimeFilters() { b.runtimeFilters = nil }

// ComputeTupleIDs is a no-op by default; variants that materialize tuples
// override it. A node with children must materialize at least one tuple.
func (b *basePlanNode) ComputeTupleIDs() {
	checkState(len(b.children) == 0 || len(b.tupleIDs) > 0,
		"node %d has children but materializes no tuples", b.id)
}

// ClearTupleIDs resets all three tuple-id containers for a recompute.
func (b *basePlanNode) ClearTupleIDs() {
	b.tupleIDs = b.tupleIDs[:0]
	b.tblRefIDs = b.tblRefIDs[:0]
	clear(b.nullableTupleIDs)
}

func (b *basePlanNode) debugString() string {
	return fmt.Sprintf("preds=%s limit=%d", explainExprList(b.conjuncts), b.limit)
}

// hasValidStats reports whether cardinality and numNodes are each either
// unknown or non-negative.
func (b *basePlanNode) hasValidStats() bool {
	return (b.numNodes == -1 || b.numNodes >= 0) && (b.cardinality == -1 || b.cardinality >= 0)
}

// PlanTrace renders the operator tree as Name(child,child) on one line.
func PlanTrace(node PlanNode) string {
	out := node.Name()
	if len(node.Children()) > 0 {
		out += "("
		for i, child := range node.Children() {
			if i > 0 {
				out += ","
			}
			out += PlanTrace(child)
		}
		out += ")"
	}
	return out
}

// ScanNodeForTuple finds the scan node materializing tid within the same
// fragment as node: the search does not descend through exchange
// boundaries. Returns nil when the tuple is scanned in another fragment.
func ScanNodeForTuple(node PlanNode, tid TupleID) PlanNode {
	if node.Kind() == KindScan && slices.Contains(node.TupleIDs(), tid) {
		return node
	}
	if node.Kind() == KindExchange {
		return nil
	}
	for _, child := range node.Children() {
		if scan := ScanNodeForTuple(child, tid); scan != nil {
			return scan
		}
	}
	return nil
}

// checkState panics on planner-invariant violations. These indicate a bug
// in an operator implementation, never a user-input problem, and abort the
// planning pass.
func checkState(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("planner invariant violated: "+format, args...))
	}
}
