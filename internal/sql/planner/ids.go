package planner

// PlanNodeID identifies a plan node within one query.
type PlanNodeID int

// InvalidPlanNodeID marks a node whose id has not been assigned yet.
const InvalidPlanNodeID PlanNodeID = -1

// FragmentID identifies a plan fragment within one query.
type FragmentID int

// TupleID identifies a tuple descriptor within one planning session.
type TupleID int

// ExprID identifies an analyzed expression within one planning session.
type ExprID int

// SlotID identifies a column slot within a tuple descriptor.
type SlotID int

// PlanNodeIDGenerator hands out sequential node ids. The zero value is ready
// to use.
type PlanNodeIDGenerator struct {
	next PlanNodeID
}

func (g *PlanNodeIDGenerator) Next() PlanNodeID {
	id := g.next
	g.next++
	return id
}

// FragmentIDGenerator hands out sequential fragment ids. The zero value is
// ready to use.
type FragmentIDGenerator struct {
	next FragmentID
}

func (g *FragmentIDGenerator) Next() FragmentID {
	id := g.next
	g.next++
	return id
}
