package planner

import (
	"math"
	"sort"

	"github.com/corvusdb/corvus/internal/log"
)

// ComputeStats derives avgRowSize from the materialized tuples. Variants
// extend it with their cardinality logic and must call this implementation
// first. Assumes the children's stats are already computed.
func (b *basePlanNode) ComputeStats(analyzer Analyzer) {
	b.avgRowSize = 0
	for _, tid := range b.tupleIDs {
		desc := analyzer.TupleDescriptor(tid)
		checkState(desc != nil, "no descriptor for tuple %d on node %d", tid, b.id)
		b.avgRowSize += desc.AvgSerializedSize
	}
}

// ComputeNumNodes propagates the first child's parallelism. Leaf and
// fan-out variants override.
func (b *basePlanNode) ComputeNumNodes() {
	if len(b.children) > 0 {
		b.numNodes = b.children[0].NumNodes()
	}
}

// ComputeOldCardinality is the legacy cost model's cardinality hook. It
// runs from Finalize only when the legacy join-reorder strategy is active;
// the default is a no-op for variants whose cardinality math is shared
// between the models.
func (b *basePlanNode) ComputeOldCardinality() {}

// Finalize computes the remaining internal state bottom-up. Call exactly
// once, on the root, before serialization.
func (b *basePlanNode) Finalize(analyzer Analyzer) error {
	for _, child := range b.children {
		if err := child.Finalize(analyzer); err != nil {
			return err
		}
	}
	b.self.ComputeNumNodes()
	if analyzer.JoinReorderStrategy() == JoinReorderLegacy {
		b.self.ComputeOldCardinality()
	}
	return nil
}

// FinalizePlan finalizes the tree rooted at root and records the outcome.
func FinalizePlan(root PlanNode, analyzer Analyzer) error {
	if err := root.Finalize(analyzer); err != nil {
		planningFailures.Inc()
		return err
	}
	plansFinalized.Inc()
	log.Debug("plan finalized",
		"root", root.Name(),
		"nodes", countNodes(root),
		"cardinality", root.Cardinality(),
	)
	return nil
}

func countNodes(node PlanNode) int {
	n := 1
	for _, child := range node.Children() {
		n += countNodes(child)
	}
	return n
}

// computeCombinedSelectivity estimates the combined selectivity of a
// conjunct list. Two estimation hazards are handled: conjuncts with unknown
// selectivity are represented collectively by a single default value, and
// correlation between conjuncts is discounted by an exponential backoff
// instead of assuming independence (plain multiplication systematically
// underestimates cardinality when predicates correlate).
func computeCombinedSelectivity(conjuncts []Expression) float64 {
	selectivities := make([]float64, 0, len(conjuncts)+1)
	for _, e := range conjuncts {
		if e.HasSelectivity() {
			selectivities = append(selectivities, e.Selectivity())
		}
	}
	if len(selectivities) != len(conjuncts) {
		selectivities = append(selectivities, DefaultSelectivity)
	}
	// Sort ascending so the most selective conjunct is applied at full
	// strength and the estimate is independent of conjunct order.
	sort.Float64s(selectivities)
	result := 1.0
	// selectivity = (s1)^(1/1) * (s2)^(1/2) * ... * (sn)^(1/n)
	for i, s := range selectivities {
		result *= math.Pow(s, 1.0/float64(i+1))
	}
	return math.Max(0.0, math.Min(1.0, result))
}

func (b *basePlanNode) computeSelectivity() float64 {
	for _, e := range b.conjuncts {
		e.SetSelectivity()
	}
	return computeCombinedSelectivity(b.conjuncts)
}

// computeOldSelectivity is the legacy model's plain product. It fails
// closed: one unknown selectivity makes the whole product unknown.
func (b *basePlanNode) computeOldSelectivity() float64 {
	prod := 1.0
	for _, e := range b.conjuncts {
		if e.Selectivity() < 0 {
			return -1.0
		}
		prod *= e.Selectivity()
	}
	return prod
}

// applyConjunctsSelectivity scales an already-estimated cardinality by the
// combined selectivity of the conjuncts. Unknown cardinality stays unknown.
func (b *basePlanNode) applyConjunctsSelectivity() {
	if b.cardinality == -1 {
		return
	}
	b.applySelectivity()
}

func (b *basePlanNode) applySelectivity() {
	selectivity := b.computeSelectivity()
	checkState(b.cardinality >= 0, "applying selectivity to unknown cardinality on node %d", b.id)
	preConjunctCardinality := b.cardinality
	b.cardinality = int64(math.Round(float64(b.cardinality) * selectivity))
	// Never let an estimate round a provably-populated operator down to
	// zero rows.
	if b.cardinality == 0 && preConjunctCardinality > 0 {
		b.cardinality = 1
	}
}

// capCardinalityAtLimit clamps the estimate to the limit when one is set;
// an unknown estimate becomes the limit itself.
func (b *basePlanNode) capCardinalityAtLimit() {
	if b.HasLimit() {
		if b.cardinality == -1 {
			b.cardinality = b.limit
		} else {
			b.cardinality = min(b.cardinality, b.limit)
		}
	}
}
