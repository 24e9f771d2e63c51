package planner

import (
	"strings"

	"github.com/corvusdb/corvus/internal/sql/wire"
)

// DefaultSelectivity stands in for every conjunct whose selectivity the
// analyzer could not estimate.
const DefaultSelectivity = 0.1

// Expression is the contract the planner core requires from analyzed
// predicate expressions. The analyzer/binder owns the implementations; the
// core never inspects expression structure beyond this surface.
type Expression interface {
	// ID is stable for the lifetime of the planning session.
	ID() ExprID
	// HasSelectivity reports whether Selectivity returns a usable estimate.
	HasSelectivity() bool
	// Selectivity is in [0, 1] when known, negative when unknown.
	Selectivity() float64
	// SetSelectivity asks the expression to (re)derive its estimate from
	// current statistics.
	SetSelectivity()
	// SlotIDs returns the column slots the expression references.
	SlotIDs() []SlotID
	ToSQL() string
	ToWire() *wire.Expr
	Clone() Expression
	// Substitute rewrites the expression through smap. Expressions without a
	// mapping return themselves; failures to resolve against the map are
	// user-tier planning errors.
	Substitute(smap *ExprSubstitutionMap, analyzer Analyzer) (Expression, error)
}

// CloneExprList deep-copies a conjunct list.
func CloneExprList(exprs []Expression) []Expression {
	if exprs == nil {
		return nil
	}
	cloned := make([]Expression, len(exprs))
	for i, e := range exprs {
		cloned[i] = e.Clone()
	}
	return cloned
}

// SubstituteList rewrites every expression through smap, failing on the
// first expression that cannot be resolved.
func SubstituteList(exprs []Expression, smap *ExprSubstitutionMap, analyzer Analyzer) ([]Expression, error) {
	if len(exprs) == 0 {
		return exprs, nil
	}
	result := make([]Expression, len(exprs))
	for i, e := range exprs {
		substituted, err := e.Substitute(smap, analyzer)
		if err != nil {
			return nil, err
		}
		result[i] = substituted
	}
	return result, nil
}

// explainExprList renders expressions as "a, b, c" for explain output.
func explainExprList(exprs []Expression) string {
	if len(exprs) == 0 {
		return ""
	}
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.ToSQL()
	}
	return strings.Join(parts, ", ")
}

// ExprSubstitutionMap maps input-column expressions to output-column
// expressions across an operator boundary. Entries are ordered; lookup is
// keyed by expression id.
type ExprSubstitutionMap struct {
	lhs []Expression
	rhs []Expression
}

func NewExprSubstitutionMap() *ExprSubstitutionMap {
	return &ExprSubstitutionMap{}
}

// Put appends a mapping from lhs to rhs.
func (m *ExprSubstitutionMap) Put(lhs, rhs Expression) {
	m.lhs = append(m.lhs, lhs)
	m.rhs = append(m.rhs, rhs)
}

func (m *ExprSubstitutionMap) Size() int {
	if m == nil {
		return 0
	}
	return len(m.lhs)
}

// Mapping returns the output expression for e, if e has an entry.
func (m *ExprSubstitutionMap) Mapping(e Expression) (Expression, bool) {
	if m == nil {
		return nil, false
	}
	for i, l := range m.lhs {
		if l.ID() == e.ID() {
			return m.rhs[i], true
		}
	}
	return nil, false
}

func (m *ExprSubstitutionMap) containsLhs(id ExprID) bool {
	if m == nil {
		return false
	}
	for _, l := range m.lhs {
		if l.ID() == id {
			return true
		}
	}
	return false
}

// CombineSmaps concatenates two maps over disjoint input sets, e.g. the
// output maps of sibling children. Either argument may be nil.
func CombineSmaps(a, b *ExprSubstitutionMap) *ExprSubstitutionMap {
	result := NewExprSubstitutionMap()
	if a != nil {
		result.lhs = append(result.lhs, a.lhs...)
		result.rhs = append(result.rhs, a.rhs...)
	}
	if b != nil {
		result.lhs = append(result.lhs, b.lhs...)
		result.rhs = append(result.rhs, b.rhs...)
	}
	return result
}

// ComposeSmaps returns a map equivalent to applying existing and then
// incoming: existing's outputs are rewritten through incoming, and incoming
// entries not shadowed by existing are carried over. A rewrite that cannot
// be resolved surfaces as a planning error.
func ComposeSmaps(existing, incoming *ExprSubstitutionMap, analyzer Analyzer) (*ExprSubstitutionMap, error) {
	if existing.Size() == 0 {
		return CombineSmaps(incoming, nil), nil
	}
	result := NewExprSubstitutionMap()
	for i, l := range existing.lhs {
		rewritten, err := existing.rhs[i].Substitute(incoming, analyzer)
		if err != nil {
			return nil, err
		}
		result.Put(l, rewritten)
	}
	if incoming != nil {
		for i, l := range incoming.lhs {
			if !result.containsLhs(l.ID()) {
				result.Put(l, incoming.rhs[i])
			}
		}
	}
	return result, nil
}
