package planner

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/corvusdb/corvus/internal/sql/wire"
)

// JoinOperator is the join flavor of a HashJoinNode.
type JoinOperator int

const (
	InnerJoin JoinOperator = iota
	LeftOuterJoin
	RightOuterJoin
	FullOuterJoin
	LeftSemiJoin
	LeftAntiJoin
	CrossJoin
)

func (j JoinOperator) String() string {
	switch j {
	case InnerJoin:
		return "INNER JOIN"
	case LeftOuterJoin:
		return "LEFT OUTER JOIN"
	case RightOuterJoin:
		return "RIGHT OUTER JOIN"
	case FullOuterJoin:
		return "FULL OUTER JOIN"
	case LeftSemiJoin:
		return "LEFT SEMI JOIN"
	case LeftAntiJoin:
		return "LEFT ANTI JOIN"
	case CrossJoin:
		return "CROSS JOIN"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(j))
	}
}

// inheritTupleInfo copies the child's materialized-tuple bookkeeping into a
// pass-through node.
func (b *basePlanNode) inheritTupleInfo(child PlanNode) {
	src := child.baseNode()
	b.tupleIDs = append(b.tupleIDs[:0], src.tupleIDs...)
	b.tblRefIDs = append(b.tblRefIDs[:0], src.tblRefIDs...)
	clear(b.nullableTupleIDs)
	for tid := range src.nullableTupleIDs {
		b.nullableTupleIDs[tid] = struct{}{}
	}
}

// ScanNode reads one base table. Predicate evaluation details (scan-key
// extraction, pushdown) live with the storage layer; the planner core sees
// only the materialized tuple and the table's row-count statistic.
type ScanNode struct {
	basePlanNode
	table        string
	tupleID      TupleID
	tableRows    int64
	numScanHosts int
}

func NewScanNode(id PlanNodeID, tupleID TupleID, table string) *ScanNode {
	n := &ScanNode{
		basePlanNode: newBasePlanNode(id, KindScan, "SCAN", []TupleID{tupleID}),
		table:        table,
		tupleID:      tupleID,
		tableRows:    -1,
		numScanHosts: 1,
	}
	n.self = n
	return n
}

// CloneWithID duplicates the scan under a new node id, preserving limit,
// tuple bookkeeping, conjuncts, and compaction; cardinality is reset and
// recomputed by the next stats pass.
func (n *ScanNode) CloneWithID(id PlanNodeID) *ScanNode {
	c := &ScanNode{
		basePlanNode: copyBasePlanNode(id, n, KindScan, "SCAN"),
		table:        n.table,
		tupleID:      n.tupleID,
		tableRows:    n.tableRows,
		numScanHosts: n.numScanHosts,
	}
	c.self = c
	return c
}

func (n *ScanNode) Table() string { return n.table }

// SetTableRows seeds the pre-filter cardinality from catalog statistics.
func (n *ScanNode) SetTableRows(rows int64) { n.tableRows = rows }

// SetNumScanHosts records how many executors the scan ranges span.
func (n *ScanNode) SetNumScanHosts(hosts int) { n.numScanHosts = hosts }

func (n *ScanNode) ComputeStats(analyzer Analyzer) {
	n.basePlanNode.ComputeStats(analyzer)
	n.cardinality = n.tableRows
	n.applyConjunctsSelectivity()
	n.capCardinalityAtLimit()
}

func (n *ScanNode) ComputeNumNodes() {
	n.numNodes = n.numScanHosts
}

func (n *ScanNode) ComputeOldCardinality() {
	if n.tableRows < 0 {
		return
	}
	selectivity := n.computeOldSelectivity()
	if selectivity < 0 {
		n.cardinality = n.tableRows
	} else {
		n.cardinality = roundCardinality(float64(n.tableRows) * selectivity)
	}
	n.capCardinalityAtLimit()
}

func (n *ScanNode) toWirePayload(msg *wire.PlanNode) {
	msg.Scan = &wire.ScanPayload{Table: n.table, TupleID: int32(n.tupleID)}
}

func (n *ScanNode) explainDetail(prefix string, level ExplainLevel) string {
	out := fmt.Sprintf("%sTABLE: %s\n", prefix, n.table)
	if len(n.preFilterConjuncts) > 0 {
		out += fmt.Sprintf("%spre-filter predicates: %s\n", prefix, explainExprList(n.preFilterConjuncts))
	}
	if len(n.conjuncts) > 0 {
		out += fmt.Sprintf("%spredicates: %s\n", prefix, explainExprList(n.conjuncts))
	}
	if rf := n.runtimeFilterExplainString(false); rf != "" {
		out += prefix + "runtime filters: " + rf
	}
	if level == ExplainVerbose && n.cardinality != -1 {
		out += fmt.Sprintf("%scardinality: %s\n", prefix, humanize.Comma(n.cardinality))
	}
	return out
}

// SelectNode evaluates conjuncts that could not be pushed into its child,
// e.g. predicates on the output of a subquery.
type SelectNode struct {
	basePlanNode
}

func NewSelectNode(id PlanNodeID, child PlanNode) *SelectNode {
	n := &SelectNode{basePlanNode: newBasePlanNode(id, KindSelect, "SELECT", nil)}
	n.self = n
	n.addChild(child)
	n.inheritTupleInfo(child)
	return n
}

func (n *SelectNode) ComputeStats(analyzer Analyzer) {
	n.basePlanNode.ComputeStats(analyzer)
	n.cardinality = n.Child(0).Cardinality()
	n.applyConjunctsSelectivity()
	n.capCardinalityAtLimit()
}

func (n *SelectNode) ComputeOldCardinality() {
	childCardinality := n.Child(0).Cardinality()
	selectivity := n.computeOldSelectivity()
	if childCardinality < 0 || selectivity < 0 {
		n.cardinality = -1
	} else {
		n.cardinality = roundCardinality(float64(childCardinality) * selectivity)
	}
	n.capCardinalityAtLimit()
}

func (n *SelectNode) toWirePayload(msg *wire.PlanNode) {}

func (n *SelectNode) explainDetail(prefix string, level ExplainLevel) string {
	if len(n.conjuncts) == 0 {
		return ""
	}
	return fmt.Sprintf("%spredicates: %s\n", prefix, explainExprList(n.conjuncts))
}

// HashJoinNode joins two children on equality conjuncts. It is the build
// site for runtime filters pushed down to probe-side scans.
type HashJoinNode struct {
	basePlanNode
	joinOp          JoinOperator
	eqJoinConjuncts []Expression
}

func NewHashJoinNode(id PlanNodeID, left, right PlanNode, joinOp JoinOperator, eqJoinConjuncts []Expression) *HashJoinNode {
	n := &HashJoinNode{
		basePlanNode:    newBasePlanNode(id, KindHashJoin, "HASH JOIN", nil),
		joinOp:          joinOp,
		eqJoinConjuncts: eqJoinConjuncts,
	}
	n.self = n
	n.addChild(left)
	n.addChild(right)
	n.ComputeTupleIDs()
	return n
}

func (n *HashJoinNode) JoinOp() JoinOperator { return n.joinOp }

func (n *HashJoinNode) EqJoinConjuncts() []Expression { return n.eqJoinConjuncts }

func (n *HashJoinNode) ComputeTupleIDs() {
	n.ClearTupleIDs()
	left, right := n.Child(0).baseNode(), n.Child(1).baseNode()
	n.tupleIDs = append(append(n.tupleIDs, left.tupleIDs...), right.tupleIDs...)
	n.tblRefIDs = append(append(n.tblRefIDs, left.tblRefIDs...), right.tblRefIDs...)
	for tid := range left.nullableTupleIDs {
		n.nullableTupleIDs[tid] = struct{}{}
	}
	for tid := range right.nullableTupleIDs {
		n.nullableTupleIDs[tid] = struct{}{}
	}
	// Outer joins null-extend the non-preserved side.
	if n.joinOp == LeftOuterJoin || n.joinOp == FullOuterJoin {
		for _, tid := range right.tupleIDs {
			n.nullableTupleIDs[tid] = struct{}{}
		}
	}
	if n.joinOp == RightOuterJoin || n.joinOp == FullOuterJoin {
		for _, tid := range left.tupleIDs {
			n.nullableTupleIDs[tid] = struct{}{}
		}
	}
	n.basePlanNode.ComputeTupleIDs()
}

func (n *HashJoinNode) ComputeStats(analyzer Analyzer) {
	n.basePlanNode.ComputeStats(analyzer)
	leftCardinality := n.Child(0).Cardinality()
	rightCardinality := n.Child(1).Cardinality()
	if leftCardinality == -1 || rightCardinality == -1 {
		n.cardinality = -1
	} else {
		// The eq conjuncts keep the output near the larger input; the
		// remaining conjuncts are applied below.
		n.cardinality = max(leftCardinality, rightCardinality)
	}
	n.applyConjunctsSelectivity()
	n.capCardinalityAtLimit()
}

func (n *HashJoinNode) toWirePayload(msg *wire.PlanNode) {
	payload := &wire.HashJoinPayload{JoinOp: n.joinOp.String()}
	for _, e := range n.eqJoinConjuncts {
		payload.EqJoinConjuncts = append(payload.EqJoinConjuncts, e.ToWire())
	}
	msg.HashJoin = payload
}

func (n *HashJoinNode) explainDetail(prefix string, level ExplainLevel) string {
	out := fmt.Sprintf("%sjoin op: %s\n", prefix, n.joinOp)
	if len(n.eqJoinConjuncts) > 0 {
		out += fmt.Sprintf("%sequal join conjuncts: %s\n", prefix, explainExprList(n.eqJoinConjuncts))
	}
	if len(n.conjuncts) > 0 {
		out += fmt.Sprintf("%sother predicates: %s\n", prefix, explainExprList(n.conjuncts))
	}
	if rf := n.runtimeFilterExplainString(true); rf != "" {
		out += prefix + "runtime filters: " + rf
	}
	return out
}

// AggregationNode groups its input and produces one output tuple.
type AggregationNode struct {
	basePlanNode
	groupingExprs []Expression
	needsFinalize bool
}

func NewAggregationNode(id PlanNodeID, child PlanNode, outputTupleID TupleID, groupingExprs []Expression) *AggregationNode {
	n := &AggregationNode{
		basePlanNode:  newBasePlanNode(id, KindAggregation, "AGGREGATE", []TupleID{outputTupleID}),
		groupingExprs: groupingExprs,
		needsFinalize: true,
	}
	n.self = n
	n.addChild(child)
	return n
}

// SetNeedsFinalize marks whether this is the merge phase of a distributed
// aggregation.
func (n *AggregationNode) SetNeedsFinalize(v bool) { n.needsFinalize = v }

func (n *AggregationNode) ComputeStats(analyzer Analyzer) {
	n.basePlanNode.ComputeStats(analyzer)
	if len(n.groupingExprs) == 0 {
		// Ungrouped aggregation emits exactly one row.
		n.cardinality = 1
	} else {
		n.cardinality = n.Child(0).Cardinality()
	}
	n.capCardinalityAtLimit()
}

func (n *AggregationNode) toWirePayload(msg *wire.PlanNode) {
	payload := &wire.AggregationPayload{NeedsFinalize: n.needsFinalize}
	for _, e := range n.groupingExprs {
		payload.GroupingExprs = append(payload.GroupingExprs, e.ToWire())
	}
	msg.Aggregation = payload
}

func (n *AggregationNode) explainDetail(prefix string, level ExplainLevel) string {
	out := ""
	if len(n.groupingExprs) > 0 {
		out += fmt.Sprintf("%sgroup by: %s\n", prefix, explainExprList(n.groupingExprs))
	}
	if len(n.conjuncts) > 0 {
		out += fmt.Sprintf("%shaving: %s\n", prefix, explainExprList(n.conjuncts))
	}
	return out
}

// SortNode orders its input; with a limit set it plans as top-n.
type SortNode struct {
	basePlanNode
	orderingExprs []Expression
	isTopN        bool
}

func NewSortNode(id PlanNodeID, child PlanNode, orderingExprs []Expression) *SortNode {
	n := &SortNode{
		basePlanNode:  newBasePlanNode(id, KindSort, "SORT", nil),
		orderingExprs: orderingExprs,
	}
	n.self = n
	n.addChild(child)
	n.inheritTupleInfo(child)
	return n
}

// SetIsTopN marks this sort as limit-bounded.
func (n *SortNode) SetIsTopN(v bool) { n.isTopN = v }

func (n *SortNode) ComputeStats(analyzer Analyzer) {
	n.basePlanNode.ComputeStats(analyzer)
	n.cardinality = n.Child(0).Cardinality()
	n.capCardinalityAtLimit()
}

func (n *SortNode) toWirePayload(msg *wire.PlanNode) {
	payload := &wire.SortPayload{IsTopN: n.isTopN}
	for _, e := range n.orderingExprs {
		payload.OrderingExprs = append(payload.OrderingExprs, e.ToWire())
	}
	msg.Sort = payload
}

func (n *SortNode) explainDetail(prefix string, level ExplainLevel) string {
	if len(n.orderingExprs) == 0 {
		return ""
	}
	return fmt.Sprintf("%sorder by: %s\n", prefix, explainExprList(n.orderingExprs))
}

// ExchangeNode marks a data-redistribution boundary between fragments. Its
// child executes in the sending fragment, so serialization and explain
// treat it as a leaf.
type ExchangeNode struct {
	basePlanNode
	partitionType string
}

func NewExchangeNode(id PlanNodeID, child PlanNode, partitionType string) *ExchangeNode {
	n := &ExchangeNode{
		basePlanNode:  newBasePlanNode(id, KindExchange, "EXCHANGE", nil),
		partitionType: partitionType,
	}
	n.self = n
	n.addChild(child)
	n.inheritTupleInfo(child)
	return n
}

func (n *ExchangeNode) PartitionType() string { return n.partitionType }

func (n *ExchangeNode) ComputeStats(analyzer Analyzer) {
	n.basePlanNode.ComputeStats(analyzer)
	n.cardinality = n.Child(0).Cardinality()
	n.capCardinalityAtLimit()
}

func (n *ExchangeNode) toWirePayload(msg *wire.PlanNode) {
	msg.Exchange = &wire.ExchangePayload{PartitionType: n.partitionType}
}

func (n *ExchangeNode) explainDetail(prefix string, level ExplainLevel) string {
	return fmt.Sprintf("%spartition: %s\n", prefix, n.partitionType)
}

// EmptySetNode produces zero rows; planned when analysis proves a subtree
// empty (e.g. LIMIT 0).
type EmptySetNode struct {
	basePlanNode
}

func NewEmptySetNode(id PlanNodeID, tupleIDs []TupleID) *EmptySetNode {
	n := &EmptySetNode{basePlanNode: newBasePlanNode(id, KindEmptySet, "EMPTYSET", tupleIDs)}
	n.self = n
	return n
}

func (n *EmptySetNode) ComputeStats(analyzer Analyzer) {
	n.basePlanNode.ComputeStats(analyzer)
	n.cardinality = 0
}

func (n *EmptySetNode) ComputeNumNodes() {
	n.numNodes = 1
}

func (n *EmptySetNode) toWirePayload(msg *wire.PlanNode) {}

func (n *EmptySetNode) explainDetail(prefix string, level ExplainLevel) string {
	return ""
}

func roundCardinality(v float64) int64 {
	rounded := int64(v + 0.5)
	if rounded < 0 {
		return 0
	}
	return rounded
}
