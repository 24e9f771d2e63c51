package planner

// PlanFragment is a distribution unit of the physical plan. Fragment
// boundaries align with exchange nodes: an exchange node's children execute
// in other fragments and are serialized/explained with those fragments.
type PlanFragment struct {
	id   FragmentID
	root PlanNode
}

// NewPlanFragment wraps the subtree rooted at root and claims every node of
// it down to (and including) exchange boundaries.
func NewPlanFragment(id FragmentID, root PlanNode) *PlanFragment {
	f := &PlanFragment{id: id, root: root}
	f.setFragmentInPlanTree(root)
	return f
}

func (f *PlanFragment) ID() FragmentID {
	return f.id
}

func (f *PlanFragment) Root() PlanNode {
	return f.root
}

// setFragmentInPlanTree assigns this fragment to every node of the subtree,
// stopping below exchange nodes: their children belong to other fragments.
func (f *PlanFragment) setFragmentInPlanTree(node PlanNode) {
	if node == nil {
		return
	}
	node.SetFragment(f)
	if node.Kind() == KindExchange {
		return
	}
	for _, child := range node.Children() {
		f.setFragmentInPlanTree(child)
	}
}
