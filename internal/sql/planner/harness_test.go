package planner

import (
	"github.com/corvusdb/corvus/internal/sql/wire"
)

// fakeExpr is a minimal Expression for exercising the tree machinery.
type fakeExpr struct {
	id     ExprID
	sql    string
	sel    float64
	hasSel bool
	slots  []SlotID
	subErr error
}

func newExpr(id int, sql string) *fakeExpr {
	return &fakeExpr{id: ExprID(id), sql: sql, sel: -1}
}

func newExprWithSelectivity(id int, sql string, sel float64) *fakeExpr {
	return &fakeExpr{id: ExprID(id), sql: sql, sel: sel, hasSel: true}
}

func (e *fakeExpr) ID() ExprID           { return e.id }
func (e *fakeExpr) HasSelectivity() bool { return e.hasSel }
func (e *fakeExpr) Selectivity() float64 { return e.sel }
func (e *fakeExpr) SetSelectivity()      {}
func (e *fakeExpr) SlotIDs() []SlotID    { return e.slots }
func (e *fakeExpr) ToSQL() string        { return e.sql }
func (e *fakeExpr) ToWire() *wire.Expr   { return &wire.Expr{SQL: e.sql} }

func (e *fakeExpr) Clone() Expression {
	clone := *e
	return &clone
}

func (e *fakeExpr) Substitute(smap *ExprSubstitutionMap, analyzer Analyzer) (Expression, error) {
	if e.subErr != nil {
		return nil, e.subErr
	}
	if mapped, ok := smap.Mapping(e); ok {
		return mapped, nil
	}
	return e, nil
}

// pendingConjunct is a registered conjunct plus the tuples that bind it.
type pendingConjunct struct {
	expr    Expression
	boundBy []TupleID
}

// fakeAnalyzer implements the Analyzer contract over in-memory state.
type fakeAnalyzer struct {
	registry *ConjunctRegistry
	pending  []pendingConjunct
	tuples   map[TupleID]*TupleDescriptor
	strategy JoinReorderStrategy
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{
		registry: NewConjunctRegistry(),
		tuples:   make(map[TupleID]*TupleDescriptor),
	}
}

func (a *fakeAnalyzer) addConjunct(e Expression, boundBy ...TupleID) {
	a.pending = append(a.pending, pendingConjunct{expr: e, boundBy: boundBy})
}

func (a *fakeAnalyzer) addTuple(id TupleID, avgSize float64) {
	a.tuples[id] = &TupleDescriptor{ID: id, AvgSerializedSize: avgSize}
}

func (a *fakeAnalyzer) UnassignedConjuncts(node PlanNode) []Expression {
	var out []Expression
	for _, pc := range a.pending {
		if a.registry.IsAssigned(pc.expr.ID()) {
			continue
		}
		if tuplesContainAll(node.TupleIDs(), pc.boundBy) {
			out = append(out, pc.expr)
		}
	}
	return out
}

func (a *fakeAnalyzer) MarkConjunctsAssigned(conjuncts []Expression) {
	a.registry.MarkAssigned(conjuncts)
}

func (a *fakeAnalyzer) TupleDescriptor(id TupleID) *TupleDescriptor {
	if desc, ok := a.tuples[id]; ok {
		return desc
	}
	return &TupleDescriptor{ID: id}
}

func (a *fakeAnalyzer) JoinReorderStrategy() JoinReorderStrategy {
	return a.strategy
}

func tuplesContainAll(have []TupleID, want []TupleID) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// testNode is a bare operator variant with a configurable shape, for tests
// that need fan-out or hooks the concrete variants don't expose.
type testNode struct {
	basePlanNode
	onComputeNumNodes func()
}

func newTestNode(id PlanNodeID, name string, tupleIDs []TupleID, children ...PlanNode) *testNode {
	n := &testNode{basePlanNode: newBasePlanNode(id, KindSelect, name, tupleIDs)}
	n.self = n
	for _, child := range children {
		n.addChild(child)
	}
	return n
}

func (n *testNode) ComputeNumNodes() {
	n.basePlanNode.ComputeNumNodes()
	if n.onComputeNumNodes != nil {
		n.onComputeNumNodes()
	}
}

func (n *testNode) toWirePayload(msg *wire.PlanNode) {}

func (n *testNode) explainDetail(prefix string, level ExplainLevel) string { return "" }

// buildScan makes an initialized scan with table statistics.
func buildScan(id PlanNodeID, tid TupleID, table string, rows int64) *ScanNode {
	scan := NewScanNode(id, tid, table)
	scan.SetTableRows(rows)
	return scan
}
