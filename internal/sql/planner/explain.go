package planner

import (
	"fmt"
	"strings"
)

// ExplainLevel controls how much detail explain output carries.
type ExplainLevel int

const (
	ExplainBrief ExplainLevel = iota
	ExplainVerbose
)

// ParseExplainLevel maps a configuration string to a level. Unknown values
// fall back to brief.
func ParseExplainLevel(s string) ExplainLevel {
	if s == "verbose" {
		return ExplainVerbose
	}
	return ExplainBrief
}

// ExplainString renders the tree rooted at node at verbose detail.
func ExplainString(node PlanNode) string {
	return Explain(node, "", "", ExplainVerbose)
}

// Explain renders the plan tree in the form:
//
//	root
//	|
//	|----child 2
//	|      limit: 1
//	|
//	|----child 3
//	|      limit: 2
//	|
//	child 1
//
// The node's headline is prefixed by rootPrefix and its detail lines by a
// prefix derived from prefix. Children after the first are indented under a
// "|----" branch; the first child is rendered last with the unchanged
// prefix, so the leftmost spine of a deep left-deep plan stays flush.
// Exchange nodes render as leaves: their children belong to another
// fragment's output.
func Explain(node PlanNode, rootPrefix, prefix string, level ExplainLevel) string {
	b := node.baseNode()
	var sb strings.Builder
	detailPrefix := prefix
	traverseChildren := len(b.children) > 0 && b.kind != KindExchange
	if traverseChildren {
		detailPrefix += "|  "
	} else {
		detailPrefix += "   "
	}

	fmt.Fprintf(&sb, "%s%d:%s\n", rootPrefix, b.id, b.name)
	sb.WriteString(node.explainDetail(detailPrefix, level))
	if b.limit != -1 {
		fmt.Fprintf(&sb, "%slimit: %d\n", detailPrefix, b.limit)
	}
	if level == ExplainVerbose {
		sb.WriteString(detailPrefix + "tuple ids: ")
		for _, tid := range b.tupleIDs {
			nullIndicator := ""
			if b.isNullableTuple(tid) {
				nullIndicator = "N"
			}
			fmt.Fprintf(&sb, "%d%s ", tid, nullIndicator)
		}
		sb.WriteString("\n")
	}

	if traverseChildren {
		sb.WriteString(detailPrefix + "\n")
		childHeadlinePrefix := prefix + "|----"
		childDetailPrefix := prefix + "|    "
		for i := 1; i < len(b.children); i++ {
			sb.WriteString(Explain(b.children[i], childHeadlinePrefix, childDetailPrefix, level))
			sb.WriteString(childDetailPrefix + "\n")
		}
		sb.WriteString(Explain(b.children[0], prefix, prefix, level))
	}
	return sb.String()
}

// PlanTreeBanner is the one-node summary used in profile and trace output.
func PlanTreeBanner(node PlanNode) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d: %s]", node.ID(), node.Name())
	fmt.Fprintf(&sb, "\n[Fragment: %d]", node.FragmentID())
	sb.WriteString("\n" + node.explainDetail("", ExplainBrief))
	return sb.String()
}
