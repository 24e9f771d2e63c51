package planner

import (
	"testing"

	"github.com/corvusdb/corvus/internal/sql/wire"
	"github.com/corvusdb/corvus/internal/testutil"
)

func TestTreeToWirePreOrder(t *testing.T) {
	left := buildScan(1, 0, "l", 10)
	right := buildScan(2, 1, "r", 10)
	join := NewHashJoinNode(0, left, right, InnerJoin, nil)

	plan := TreeToWire(join)

	testutil.AssertEqual(t, 3, len(plan.Nodes))
	testutil.AssertEqual(t, int32(0), plan.Nodes[0].NodeID)
	testutil.AssertEqual(t, wire.NodeHashJoin, plan.Nodes[0].Kind)
	testutil.AssertEqual(t, int32(2), plan.Nodes[0].NumChildren)
	testutil.AssertEqual(t, int32(1), plan.Nodes[1].NodeID)
	testutil.AssertEqual(t, int32(2), plan.Nodes[2].NodeID)
}

func TestTreeToWireStopsAtExchange(t *testing.T) {
	scan := buildScan(3, 0, "t", 10)
	selectNode := NewSelectNode(2, scan)
	exchange := NewExchangeNode(1, selectNode, "HASH")
	sort := NewSortNode(0, exchange, nil)

	// The receiving fragment's stream carries the exchange as a leaf; the
	// select and scan below the boundary never appear in it.
	receiving := TreeToWire(sort)
	testutil.AssertEqual(t, 2, len(receiving.Nodes))
	testutil.AssertEqual(t, int32(1), receiving.Nodes[0].NumChildren)
	testutil.AssertEqual(t, wire.NodeExchange, receiving.Nodes[1].Kind)
	testutil.AssertEqual(t, int32(0), receiving.Nodes[1].NumChildren)

	// The subtree below the exchange is serialized with its own fragment.
	sending := TreeToWire(selectNode)
	testutil.AssertEqual(t, 2, len(sending.Nodes))
	testutil.AssertEqual(t, wire.NodeSelect, sending.Nodes[0].Kind)
	testutil.AssertEqual(t, int32(1), sending.Nodes[0].NumChildren)
	testutil.AssertEqual(t, wire.NodeScan, sending.Nodes[1].Kind)
	testutil.AssertEqual(t, int32(0), sending.Nodes[1].NumChildren)
}

func TestTreeToWireCarriesNodeState(t *testing.T) {
	scan := buildScan(3, 7, "orders", 100)
	scan.SetLimit(25)
	scan.SetCompactData(true)
	scan.MarkTupleNullable(7)
	scan.AddConjunct(newExpr(1, "o_id > 5"))
	scan.AddConjunct(newExpr(2, "o_date IS NOT NULL"))

	filter := NewRuntimeFilter(0, RuntimeFilterBloom, newExpr(3, "c.id"))
	filter.SetTargetExpr(3, newExpr(4, "o.cust_id"))
	scan.AddRuntimeFilter(filter)

	plan := TreeToWire(scan)
	testutil.AssertEqual(t, 1, len(plan.Nodes))
	msg := plan.Nodes[0]

	testutil.AssertEqual(t, int32(3), msg.NodeID)
	testutil.AssertEqual(t, int64(25), msg.Limit)
	testutil.AssertTrue(t, msg.CompactData, "compactData flag lost")
	testutil.AssertEqual(t, []int32{7}, msg.RowTuples)
	testutil.AssertEqual(t, []bool{true}, msg.NullableTuples)
	testutil.AssertEqual(t, 2, len(msg.Conjuncts))
	testutil.AssertEqual(t, "o_id > 5", msg.Conjuncts[0].SQL)
	testutil.AssertEqual(t, 1, len(msg.RuntimeFilters))
	testutil.AssertEqual(t, wire.FilterBloom, msg.RuntimeFilters[0].Kind)
	testutil.AssertEqual(t, "o.cust_id", msg.RuntimeFilters[0].TargetExprs[3].SQL)

	if msg.Scan == nil {
		t.Fatal("scan payload missing")
	}
	testutil.AssertEqual(t, "orders", msg.Scan.Table)
	testutil.AssertEqual(t, int32(7), msg.Scan.TupleID)
}

func TestTreeToWireNullableFlagsParallelTuples(t *testing.T) {
	left := buildScan(1, 0, "l", 10)
	right := buildScan(2, 1, "r", 10)
	join := NewHashJoinNode(0, left, right, LeftOuterJoin, nil)

	plan := TreeToWire(join)
	msg := plan.Nodes[0]

	// The right side is null-extended by the left outer join.
	testutil.AssertEqual(t, []int32{0, 1}, msg.RowTuples)
	testutil.AssertEqual(t, []bool{false, true}, msg.NullableTuples)
}

func TestTreeToWirePayloads(t *testing.T) {
	scan := buildScan(4, 0, "t", 10)
	join := NewHashJoinNode(3, scan, buildScan(5, 1, "u", 10), LeftSemiJoin,
		[]Expression{newExpr(1, "t.a = u.b")})
	agg := NewAggregationNode(2, join, 2, []Expression{newExpr(2, "t.a")})
	agg.SetNeedsFinalize(false)
	sort := NewSortNode(1, agg, []Expression{newExpr(3, "t.a ASC")})
	sort.SetIsTopN(true)
	exchange := NewExchangeNode(0, sort, "UNPARTITIONED")

	plan := TreeToWire(exchange)
	testutil.AssertEqual(t, 1, len(plan.Nodes))
	testutil.AssertEqual(t, "UNPARTITIONED", plan.Nodes[0].Exchange.PartitionType)

	plan = TreeToWire(sort)
	testutil.AssertEqual(t, 5, len(plan.Nodes))

	sortMsg, aggMsg, joinMsg := plan.Nodes[0], plan.Nodes[1], plan.Nodes[2]
	testutil.AssertTrue(t, sortMsg.Sort.IsTopN, "top-n flag lost")
	testutil.AssertEqual(t, "t.a ASC", sortMsg.Sort.OrderingExprs[0].SQL)
	testutil.AssertFalse(t, aggMsg.Aggregation.NeedsFinalize, "needsFinalize flag lost")
	testutil.AssertEqual(t, "t.a", aggMsg.Aggregation.GroupingExprs[0].SQL)
	testutil.AssertEqual(t, "LEFT SEMI JOIN", joinMsg.HashJoin.JoinOp)
	testutil.AssertEqual(t, "t.a = u.b", joinMsg.HashJoin.EqJoinConjuncts[0].SQL)
}
