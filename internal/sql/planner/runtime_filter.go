package planner

import (
	"fmt"
	"strings"

	"github.com/corvusdb/corvus/internal/sql/wire"
)

// RuntimeFilterID identifies a runtime filter within one query.
type RuntimeFilterID int

func (id RuntimeFilterID) String() string {
	return fmt.Sprintf("RF%03d", int(id))
}

// RuntimeFilterKind selects the filter implementation pushed to consumers.
type RuntimeFilterKind int

const (
	RuntimeFilterIn RuntimeFilterKind = iota
	RuntimeFilterBloom
	RuntimeFilterMinMax
)

func (k RuntimeFilterKind) String() string {
	switch k {
	case RuntimeFilterIn:
		return "in"
	case RuntimeFilterBloom:
		return "bloom"
	case RuntimeFilterMinMax:
		return "min_max"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

func (k RuntimeFilterKind) wireKind() wire.FilterKind {
	switch k {
	case RuntimeFilterIn:
		return wire.FilterIn
	case RuntimeFilterBloom:
		return wire.FilterBloom
	case RuntimeFilterMinMax:
		return wire.FilterMinMax
	default:
		return wire.FilterIn
	}
}

// RuntimeFilter describes a filter built at one node (typically the build
// side of a join) and consumed at others. The target expression is kept per
// consuming node because the same filter binds to different expressions at
// different consumers.
type RuntimeFilter struct {
	id          RuntimeFilterID
	kind        RuntimeFilterKind
	srcExpr     Expression
	targetExprs map[PlanNodeID]Expression
}

func NewRuntimeFilter(id RuntimeFilterID, kind RuntimeFilterKind, srcExpr Expression) *RuntimeFilter {
	return &RuntimeFilter{
		id:          id,
		kind:        kind,
		srcExpr:     srcExpr,
		targetExprs: make(map[PlanNodeID]Expression),
	}
}

func (f *RuntimeFilter) ID() RuntimeFilterID { return f.id }

func (f *RuntimeFilter) Kind() RuntimeFilterKind { return f.kind }

func (f *RuntimeFilter) SrcExpr() Expression { return f.srcExpr }

// SetTargetExpr binds the filter's target expression at one consuming node.
func (f *RuntimeFilter) SetTargetExpr(nodeID PlanNodeID, expr Expression) {
	f.targetExprs[nodeID] = expr
}

// TargetExpr returns the target expression bound at nodeID.
func (f *RuntimeFilter) TargetExpr(nodeID PlanNodeID) Expression {
	expr, ok := f.targetExprs[nodeID]
	checkState(ok, "runtime filter %s has no target at node %d", f.id, nodeID)
	return expr
}

func (f *RuntimeFilter) ToWire() *wire.RuntimeFilter {
	msg := &wire.RuntimeFilter{
		FilterID: int32(f.id),
		Kind:     f.kind.wireKind(),
		SrcExpr:  f.srcExpr.ToWire(),
	}
	if len(f.targetExprs) > 0 {
		msg.TargetExprs = make(map[int32]*wire.Expr, len(f.targetExprs))
		for nodeID, expr := range f.targetExprs {
			msg.TargetExprs[int32(nodeID)] = expr.ToWire()
		}
	}
	return msg
}

// runtimeFilterExplainString renders this node's filters, one direction per
// role: a build node shows what feeds each filter, a consumer shows what
// each filter probes at this node.
func (b *basePlanNode) runtimeFilterExplainString(isBuildNode bool) string {
	if len(b.runtimeFilters) == 0 {
		return ""
	}
	parts := make([]string, 0, len(b.runtimeFilters))
	for _, filter := range b.runtimeFilters {
		var sb strings.Builder
		sb.WriteString(filter.ID().String())
		sb.WriteString("[")
		sb.WriteString(filter.Kind().String())
		sb.WriteString("]")
		if isBuildNode {
			sb.WriteString(" <- ")
			sb.WriteString(filter.SrcExpr().ToSQL())
		} else {
			sb.WriteString(" -> ")
			sb.WriteString(filter.TargetExpr(b.id).ToSQL())
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, ", ") + "\n"
}
