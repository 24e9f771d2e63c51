package planner

import (
	"github.com/corvusdb/corvus/internal/log"
	"github.com/corvusdb/corvus/internal/sql/wire"
)

// TreeToWire flattens the tree rooted at root into its wire form: a
// pre-order node list the executor reconstructs from child counts alone.
// The tree must not be mutated after this call.
func TreeToWire(root PlanNode) *wire.Plan {
	plan := &wire.Plan{}
	treeToWireHelper(root, plan)
	planNodesSerialized.Observe(float64(len(plan.Nodes)))
	log.Debug("plan serialized", "root", root.Name(), "nodes", len(plan.Nodes))
	return plan
}

func treeToWireHelper(node PlanNode, container *wire.Plan) {
	b := node.baseNode()
	msg := &wire.PlanNode{
		NodeID:      int32(b.id),
		Kind:        b.kind.wireKind(),
		Limit:       b.limit,
		CompactData: b.compactData,
	}
	for _, tid := range b.tupleIDs {
		msg.RowTuples = append(msg.RowTuples, int32(tid))
		msg.NullableTuples = append(msg.NullableTuples, b.isNullableTuple(tid))
	}
	for _, e := range b.conjuncts {
		msg.Conjuncts = append(msg.Conjuncts, e.ToWire())
	}
	for _, filter := range b.runtimeFilters {
		msg.RuntimeFilters = append(msg.RuntimeFilters, filter.ToWire())
	}
	node.toWirePayload(msg)
	container.Nodes = append(container.Nodes, msg)

	// An exchange node is a fragment boundary: its subtree is serialized
	// with the sending fragment, so this stream records it as a leaf.
	if b.kind == KindExchange {
		msg.NumChildren = 0
		return
	}
	msg.NumChildren = int32(len(b.children))
	for _, child := range b.children {
		treeToWireHelper(child, container)
	}
}
