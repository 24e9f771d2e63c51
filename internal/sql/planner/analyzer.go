package planner

// JoinReorderStrategy selects the cardinality model driving join ordering.
type JoinReorderStrategy int

const (
	// JoinReorderCostBased is the current cost-based model.
	JoinReorderCostBased JoinReorderStrategy = iota
	// JoinReorderLegacy is the older model; it relies on the legacy
	// cardinality hooks computed during Finalize.
	JoinReorderLegacy
)

// ParseJoinReorderStrategy maps a configuration string to a strategy.
// Unknown values fall back to the cost-based model.
func ParseJoinReorderStrategy(s string) JoinReorderStrategy {
	if s == "legacy" {
		return JoinReorderLegacy
	}
	return JoinReorderCostBased
}

// TupleDescriptor carries the per-tuple statistics the core consumes.
type TupleDescriptor struct {
	ID TupleID
	// AvgSerializedSize is the average serialized byte size of one row of
	// this tuple.
	AvgSerializedSize float64
}

// Analyzer is the planner core's view of the analyzer/binder. It resolves
// expressions, tracks which conjuncts remain unassigned, and serves tuple
// metadata. Implementations live with the SQL front end.
type Analyzer interface {
	// UnassignedConjuncts returns the conjuncts that are bound entirely by
	// the tuples node materializes and are not yet marked assigned.
	UnassignedConjuncts(node PlanNode) []Expression
	// MarkConjunctsAssigned records the conjuncts in the session's shared
	// assignment registry.
	MarkConjunctsAssigned(conjuncts []Expression)
	// TupleDescriptor returns metadata for a materialized tuple, or nil for
	// an unknown id.
	TupleDescriptor(id TupleID) *TupleDescriptor
	JoinReorderStrategy() JoinReorderStrategy
}

// ConjunctRegistry is the session-wide record of which conjuncts have been
// assigned to some plan node. It is shared across the whole candidate tree,
// not owned by any node. During a search over alternative join orders the
// planner snapshots it before trying a candidate and restores it before
// trying the next, so it must support restore, not just monotone growth.
type ConjunctRegistry struct {
	assigned map[ExprID]struct{}
}

func NewConjunctRegistry() *ConjunctRegistry {
	return &ConjunctRegistry{assigned: make(map[ExprID]struct{})}
}

// MarkAssigned records every given conjunct as assigned.
func (r *ConjunctRegistry) MarkAssigned(conjuncts []Expression) {
	for _, e := range conjuncts {
		r.assigned[e.ID()] = struct{}{}
	}
}

func (r *ConjunctRegistry) IsAssigned(id ExprID) bool {
	_, ok := r.assigned[id]
	return ok
}

func (r *ConjunctRegistry) Len() int {
	return len(r.assigned)
}

// RegistrySnapshot is an immutable copy of the registry's state.
type RegistrySnapshot struct {
	assigned map[ExprID]struct{}
}

// Snapshot copies the current assignment state.
func (r *ConjunctRegistry) Snapshot() RegistrySnapshot {
	copied := make(map[ExprID]struct{}, len(r.assigned))
	for id := range r.assigned {
		copied[id] = struct{}{}
	}
	return RegistrySnapshot{assigned: copied}
}

// Restore resets the registry to a previously taken snapshot. The snapshot
// remains valid for further restores.
func (r *ConjunctRegistry) Restore(snap RegistrySnapshot) {
	copied := make(map[ExprID]struct{}, len(snap.assigned))
	for id := range snap.assigned {
		copied[id] = struct{}{}
	}
	r.assigned = copied
}
