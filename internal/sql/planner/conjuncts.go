package planner

// Init assigns this node's conjuncts and builds its default output
// substitution map. Call exactly once per node, after the children have been
// initialized and before this node's stats are computed.
func (b *basePlanNode) Init(analyzer Analyzer) error {
	b.assignConjuncts(analyzer)
	return b.createDefaultSmap(analyzer)
}

// assignConjuncts pulls every conjunct that is bound by this node's
// materialized tuples and not yet assigned elsewhere, so each eligible
// conjunct is evaluated at exactly one node: the lowest one that can see all
// of its columns.
func (b *basePlanNode) assignConjuncts(analyzer Analyzer) {
	unassigned := analyzer.UnassignedConjuncts(b.self)
	b.conjuncts = append(b.conjuncts, unassigned...)
	analyzer.MarkConjunctsAssigned(unassigned)
}

// TransferConjuncts moves every conjunct to recipient, clearing this node.
// Used when a restructure makes a different node the natural evaluation
// point.
func (b *basePlanNode) TransferConjuncts(recipient PlanNode) {
	r := recipient.baseNode()
	r.conjuncts = append(r.conjuncts, b.conjuncts...)
	b.conjuncts = b.conjuncts[:0]
}

// combinedChildSmap left-folds the children's output smaps in child order.
func (b *basePlanNode) combinedChildSmap() *ExprSubstitutionMap {
	if len(b.children) == 0 {
		return NewExprSubstitutionMap()
	}
	if len(b.children) == 1 {
		return b.children[0].OutputSmap()
	}
	result := CombineSmaps(b.children[0].OutputSmap(), b.children[1].OutputSmap())
	for i := 2; i < len(b.children); i++ {
		result = CombineSmaps(result, b.children[i].OutputSmap())
	}
	return result
}

func (b *basePlanNode) combinedChildWithoutTupleIsNullSmap() *ExprSubstitutionMap {
	if len(b.children) == 0 {
		return NewExprSubstitutionMap()
	}
	if len(b.children) == 1 {
		return b.children[0].WithoutTupleIsNullOutputSmap()
	}
	result := CombineSmaps(
		b.children[0].WithoutTupleIsNullOutputSmap(),
		b.children[1].WithoutTupleIsNullOutputSmap())
	for i := 2; i < len(b.children); i++ {
		result = CombineSmaps(result, b.children[i].WithoutTupleIsNullOutputSmap())
	}
	return result
}

// createDefaultSmap composes any pre-seeded output smap with the combined
// child smap and rewrites the conjuncts through the result, so a predicate
// written against a child's columns is re-expressed against this node's
// renamed output columns.
func (b *basePlanNode) createDefaultSmap(analyzer Analyzer) error {
	combinedChildSmap := b.combinedChildSmap()
	smap, err := ComposeSmaps(b.outputSmap, combinedChildSmap, analyzer)
	if err != nil {
		return err
	}
	b.outputSmap = smap

	conjuncts, err := SubstituteList(b.conjuncts, b.outputSmap, analyzer)
	if err != nil {
		return err
	}
	b.conjuncts = conjuncts
	return nil
}

// MaterializedSlotIDs appends the slots this subtree must materialize. Only
// slots referenced by conjuncts count by default: conjuncts are evaluated
// explicitly, while exprs turned into scan predicates are evaluated
// implicitly.
func (b *basePlanNode) MaterializedSlotIDs(ids []SlotID) []SlotID {
	for _, child := range b.children {
		ids = child.MaterializedSlotIDs(ids)
	}
	for _, e := range b.conjuncts {
		ids = append(ids, e.SlotIDs()...)
	}
	return ids
}
