package planner

import (
	"testing"

	"github.com/corvusdb/corvus/internal/testutil"
)

func TestSetLimitOnlyTightens(t *testing.T) {
	tests := []struct {
		name   string
		limits []int64
		want   int64
	}{
		{"first limit sticks", []int64{5}, 5},
		{"higher limit ignored", []int64{5, 10}, 5},
		{"lower limit tightens", []int64{10, 5}, 5},
		{"unset never loosens", []int64{5, -1}, 5},
		{"never set", nil, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := buildScan(0, 0, "t", 100)
			for _, l := range tt.limits {
				node.SetLimit(l)
			}
			if node.Limit() != tt.want {
				t.Errorf("limit = %d, want %d", node.Limit(), tt.want)
			}
		})
	}
}

func TestHasLimitAndUnsetLimit(t *testing.T) {
	node := buildScan(0, 0, "t", 100)
	testutil.AssertFalse(t, node.HasLimit(), "fresh node should have no limit")

	node.SetLimit(0)
	testutil.AssertTrue(t, node.HasLimit(), "limit 0 is a set limit")

	node.UnsetLimit()
	testutil.AssertFalse(t, node.HasLimit(), "UnsetLimit should clear the limit")
	testutil.AssertEqual(t, int64(-1), node.Limit())
}

func TestSetCompactDataPropagates(t *testing.T) {
	left := buildScan(0, 0, "l", 10)
	right := buildScan(1, 1, "r", 10)
	join := NewHashJoinNode(2, left, right, InnerJoin, nil)
	sort := NewSortNode(3, join, nil)

	sort.SetCompactData(true)

	for _, node := range []PlanNode{sort, join, left, right} {
		if !node.CompactData() {
			t.Errorf("node %d: compactData not propagated", node.ID())
		}
	}
}

func TestSetIDAssignedOnce(t *testing.T) {
	node := NewScanNode(InvalidPlanNodeID, 0, "t")
	node.SetID(4)
	testutil.AssertEqual(t, PlanNodeID(4), node.ID())
	testutil.AssertPanics(t, func() { node.SetID(5) }, "second SetID must panic")
}

func TestComputeTupleIDsRequiresTuplesWithChildren(t *testing.T) {
	child := buildScan(0, 0, "t", 10)
	node := newTestNode(1, "BAD", nil, child)
	testutil.AssertPanics(t, func() { node.ComputeTupleIDs() },
		"a node with children but no tuples must fail the invariant check")
}

func TestMarkTupleNullable(t *testing.T) {
	node := newTestNode(0, "N", []TupleID{1, 2, 3})
	node.MarkTupleNullable(3)
	node.MarkTupleNullable(1)

	// Reported in tupleIDs order, not insertion order.
	testutil.AssertEqual(t, []TupleID{1, 3}, node.NullableTupleIDs())

	testutil.AssertPanics(t, func() { node.MarkTupleNullable(9) },
		"marking a tuple the node does not materialize must panic")
}

func TestClearTupleIDs(t *testing.T) {
	node := newTestNode(0, "N", []TupleID{1, 2})
	node.MarkTupleNullable(2)
	node.ClearTupleIDs()

	testutil.AssertEqual(t, 0, len(node.TupleIDs()))
	testutil.AssertEqual(t, 0, len(node.TblRefIDs()))
	testutil.AssertEqual(t, 0, len(node.NullableTupleIDs()))
}

func TestTransferConjuncts(t *testing.T) {
	giver := buildScan(0, 0, "a", 10)
	taker := buildScan(1, 1, "b", 10)
	giver.AddConjunct(newExpr(1, "a.x = 1"))
	giver.AddConjunct(newExpr(2, "a.y = 2"))
	taker.AddConjunct(newExpr(3, "b.z = 3"))

	giver.TransferConjuncts(taker)

	testutil.AssertEqual(t, 0, len(giver.Conjuncts()))
	if got := explainExprList(taker.Conjuncts()); got != "b.z = 3, a.x = 1, a.y = 2" {
		t.Errorf("recipient conjuncts = %q", got)
	}
}

func TestDebugString(t *testing.T) {
	node := buildScan(0, 0, "t", 10)
	node.AddConjunct(newExpr(1, "a = 1"))
	node.SetLimit(9)
	testutil.AssertEqual(t, "preds=a = 1 limit=9", node.debugString())
}

func TestPlanTrace(t *testing.T) {
	left := buildScan(0, 0, "l", 10)
	right := buildScan(1, 1, "r", 10)
	join := NewHashJoinNode(2, left, right, InnerJoin, nil)
	agg := NewAggregationNode(3, join, 2, nil)

	testutil.AssertEqual(t, "AGGREGATE(HASH JOIN(SCAN,SCAN))", PlanTrace(agg))
	testutil.AssertEqual(t, "SCAN", PlanTrace(left))
}

func TestScanNodeForTuple(t *testing.T) {
	left := buildScan(0, 0, "l", 10)
	right := buildScan(1, 1, "r", 10)
	join := NewHashJoinNode(2, left, right, InnerJoin, nil)

	if got := ScanNodeForTuple(join, 1); got != PlanNode(right) {
		t.Errorf("ScanNodeForTuple(join, 1) = %v, want right scan", got)
	}
	if got := ScanNodeForTuple(join, 0); got != PlanNode(left) {
		t.Errorf("ScanNodeForTuple(join, 0) = %v, want left scan", got)
	}
	if got := ScanNodeForTuple(join, 9); got != nil {
		t.Errorf("ScanNodeForTuple(join, 9) = %v, want nil", got)
	}
}

func TestScanNodeForTupleStopsAtExchange(t *testing.T) {
	scan := buildScan(0, 0, "t", 10)
	exchange := NewExchangeNode(1, scan, "HASH")
	sort := NewSortNode(2, exchange, nil)

	// The scan sits below an exchange, so it belongs to another fragment.
	if got := ScanNodeForTuple(sort, 0); got != nil {
		t.Errorf("search crossed an exchange boundary, got %v", got)
	}
}

func TestScanCloneWithID(t *testing.T) {
	analyzer := newFakeAnalyzer()
	analyzer.addTuple(0, 8)

	orig := buildScan(3, 0, "orders", 1000)
	orig.SetLimit(50)
	orig.SetNumScanHosts(4)
	orig.SetCompactData(true)
	orig.AddConjunct(newExprWithSelectivity(1, "o_id > 5", 0.5))
	orig.MarkTupleNullable(0)
	orig.ComputeStats(analyzer)

	clone := orig.CloneWithID(7)

	testutil.AssertEqual(t, PlanNodeID(7), clone.ID())
	testutil.AssertEqual(t, "orders", clone.Table())
	testutil.AssertEqual(t, int64(50), clone.Limit())
	testutil.AssertEqual(t, orig.TupleIDs(), clone.TupleIDs())
	testutil.AssertEqual(t, orig.NullableTupleIDs(), clone.NullableTupleIDs())
	testutil.AssertTrue(t, clone.CompactData(), "compactData should carry over")
	testutil.AssertEqual(t, 1, len(clone.Conjuncts()))

	// Cardinality resets; the conjunct list is a deep copy.
	testutil.AssertEqual(t, int64(-1), clone.Cardinality())
	if orig.Conjuncts()[0] == clone.Conjuncts()[0] {
		t.Error("clone shares conjunct instances with the original")
	}

	clone.ComputeStats(analyzer)
	testutil.AssertEqual(t, orig.Cardinality(), clone.Cardinality())
}

func TestFragmentClaimStopsBelowExchange(t *testing.T) {
	scan := buildScan(0, 0, "t", 10)
	exchange := NewExchangeNode(1, scan, "HASH")
	sort := NewSortNode(2, exchange, nil)

	fragment := NewPlanFragment(5, sort)

	testutil.AssertEqual(t, FragmentID(5), sort.FragmentID())
	testutil.AssertEqual(t, FragmentID(5), exchange.FragmentID())
	testutil.AssertTrue(t, scan.Fragment() == nil, "exchange child belongs to another fragment")
	testutil.AssertPanics(t, func() { scan.FragmentID() },
		"FragmentID on an unclaimed node must panic")
	testutil.AssertEqual(t, PlanNode(sort), fragment.Root())
}
