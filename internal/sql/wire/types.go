package wire

import "fmt"

// NodeKind identifies the operator variant carried by a PlanNode message.
type NodeKind int8

const (
	NodeInvalid NodeKind = iota
	NodeScan
	NodeSelect
	NodeHashJoin
	NodeAggregation
	NodeSort
	NodeExchange
	NodeEmptySet
)

func (k NodeKind) String() string {
	switch k {
	case NodeScan:
		return "SCAN"
	case NodeSelect:
		return "SELECT"
	case NodeHashJoin:
		return "HASH JOIN"
	case NodeAggregation:
		return "AGGREGATE"
	case NodeSort:
		return "SORT"
	case NodeExchange:
		return "EXCHANGE"
	case NodeEmptySet:
		return "EMPTYSET"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int8(k))
	}
}

// FilterKind identifies the runtime filter implementation.
type FilterKind int8

const (
	FilterIn FilterKind = iota
	FilterBloom
	FilterMinMax
)

func (k FilterKind) String() string {
	switch k {
	case FilterIn:
		return "in"
	case FilterBloom:
		return "bloom"
	case FilterMinMax:
		return "min_max"
	default:
		return fmt.Sprintf("unknown(%d)", int8(k))
	}
}

// Expr is the wire form of a planner expression. The planning core treats
// expression serialization as opaque; the SQL text is authoritative here and
// the executor re-parses it against the fragment's tuple layout.
type Expr struct {
	SQL string
}

// RuntimeFilter describes a cross-node filter. TargetExprs is keyed by the
// consuming plan node id because the same filter may bind to a different
// target expression at each consumer.
type RuntimeFilter struct {
	FilterID    int32
	Kind        FilterKind
	SrcExpr     *Expr
	TargetExprs map[int32]*Expr
}

// Operator payloads. Exactly one is non-nil on a PlanNode, matching its Kind.

type ScanPayload struct {
	Table   string
	TupleID int32
}

type HashJoinPayload struct {
	JoinOp          string
	EqJoinConjuncts []*Expr
}

type AggregationPayload struct {
	GroupingExprs []*Expr
	NeedsFinalize bool
}

type SortPayload struct {
	OrderingExprs []*Expr
	IsTopN        bool
}

type ExchangePayload struct {
	PartitionType string
}

// PlanNode is one element of a flattened plan. RowTuples and NullableTuples
// are parallel: NullableTuples[i] says whether RowTuples[i] is produced by
// the nullable side of an outer join in this tree.
type PlanNode struct {
	NodeID         int32
	Kind           NodeKind
	NumChildren    int32
	Limit          int64
	RowTuples      []int32
	NullableTuples []bool
	CompactData    bool
	Conjuncts      []*Expr
	RuntimeFilters []*RuntimeFilter

	Scan        *ScanPayload
	HashJoin    *HashJoinPayload
	Aggregation *AggregationPayload
	Sort        *SortPayload
	Exchange    *ExchangePayload
}

// Plan is a pre-order flattening of one fragment's operator tree. Structure
// is recovered from NumChildren alone; see Reconstruct.
type Plan struct {
	Nodes []*PlanNode
}

// PlanTree is the structural form recovered from a flat Plan.
type PlanTree struct {
	Node     *PlanNode
	Children []*PlanTree
}
