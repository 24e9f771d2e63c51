package wire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Codec version, bumped on any incompatible layout change.
const codecVersion = 1

// Encode serializes the plan into a self-describing byte stream:
// a version byte, a node count, then each node in flattening order.
func (p *Plan) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte(codecVersion)
	binary.Write(buf, binary.BigEndian, int32(len(p.Nodes)))
	for _, node := range p.Nodes {
		if err := node.encode(buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Decode parses a byte stream produced by Encode.
func Decode(data []byte) (*Plan, error) {
	r := bytes.NewReader(data)
	version, err := r.ReadByte()
	if err != nil {
		return nil, errors.Wrap(err, "decode plan header")
	}
	if version != codecVersion {
		return nil, errors.Errorf("unsupported plan codec version %d", version)
	}
	var count int32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, errors.Wrap(err, "decode plan node count")
	}
	if count < 0 {
		return nil, errors.Errorf("negative plan node count %d", count)
	}
	plan := &Plan{Nodes: make([]*PlanNode, 0, count)}
	for i := int32(0); i < count; i++ {
		node := &PlanNode{}
		if err := node.parse(r); err != nil {
			return nil, errors.Wrapf(err, "decode plan node %d", i)
		}
		plan.Nodes = append(plan.Nodes, node)
	}
	if r.Len() != 0 {
		return nil, errors.Errorf("%d trailing bytes after plan", r.Len())
	}
	return plan, nil
}

// Reconstruct rebuilds the operator tree from the flat node list. Each
// message's NumChildren is trusted; the walk is a single forward pass with
// no backtracking. Streams that run short or leave trailing nodes are
// rejected.
func (p *Plan) Reconstruct() (*PlanTree, error) {
	if len(p.Nodes) == 0 {
		return nil, errors.New("empty plan")
	}
	root, next, err := buildSubtree(p.Nodes, 0)
	if err != nil {
		return nil, err
	}
	if next != len(p.Nodes) {
		return nil, errors.Errorf("%d unreachable trailing nodes in plan", len(p.Nodes)-next)
	}
	return root, nil
}

func buildSubtree(nodes []*PlanNode, pos int) (*PlanTree, int, error) {
	if pos >= len(nodes) {
		return nil, 0, errors.Errorf("plan truncated at node %d", pos)
	}
	msg := nodes[pos]
	if msg.NumChildren < 0 {
		return nil, 0, errors.Errorf("node %d has negative child count", msg.NodeID)
	}
	tree := &PlanTree{Node: msg}
	next := pos + 1
	for i := int32(0); i < msg.NumChildren; i++ {
		child, n, err := buildSubtree(nodes, next)
		if err != nil {
			return nil, 0, err
		}
		tree.Children = append(tree.Children, child)
		next = n
	}
	return tree, next, nil
}

func (n *PlanNode) encode(buf *bytes.Buffer) error {
	binary.Write(buf, binary.BigEndian, n.NodeID)
	buf.WriteByte(byte(n.Kind))
	binary.Write(buf, binary.BigEndian, n.NumChildren)
	binary.Write(buf, binary.BigEndian, n.Limit)
	writeBool(buf, n.CompactData)

	if len(n.RowTuples) != len(n.NullableTuples) {
		return errors.Errorf("node %d: %d row tuples but %d nullable flags",
			n.NodeID, len(n.RowTuples), len(n.NullableTuples))
	}
	binary.Write(buf, binary.BigEndian, int32(len(n.RowTuples)))
	for i, tid := range n.RowTuples {
		binary.Write(buf, binary.BigEndian, tid)
		writeBool(buf, n.NullableTuples[i])
	}

	writeExprs(buf, n.Conjuncts)

	binary.Write(buf, binary.BigEndian, int32(len(n.RuntimeFilters)))
	for _, rf := range n.RuntimeFilters {
		rf.encode(buf)
	}

	return n.encodePayload(buf)
}

func (n *PlanNode) parse(r *bytes.Reader) error {
	if err := binary.Read(r, binary.BigEndian, &n.NodeID); err != nil {
		return errors.Wrap(err, "node id")
	}
	kind, err := r.ReadByte()
	if err != nil {
		return errors.Wrap(err, "node kind")
	}
	n.Kind = NodeKind(kind)
	if err := binary.Read(r, binary.BigEndian, &n.NumChildren); err != nil {
		return errors.Wrap(err, "child count")
	}
	if err := binary.Read(r, binary.BigEndian, &n.Limit); err != nil {
		return errors.Wrap(err, "limit")
	}
	if n.CompactData, err = readBool(r); err != nil {
		return errors.Wrap(err, "compact data flag")
	}

	var tupleCount int32
	if err := binary.Read(r, binary.BigEndian, &tupleCount); err != nil {
		return errors.Wrap(err, "tuple count")
	}
	for i := int32(0); i < tupleCount; i++ {
		var tid int32
		if err := binary.Read(r, binary.BigEndian, &tid); err != nil {
			return errors.Wrap(err, "row tuple")
		}
		nullable, err := readBool(r)
		if err != nil {
			return errors.Wrap(err, "nullable flag")
		}
		n.RowTuples = append(n.RowTuples, tid)
		n.NullableTuples = append(n.NullableTuples, nullable)
	}

	if n.Conjuncts, err = readExprs(r); err != nil {
		return errors.Wrap(err, "conjuncts")
	}

	var filterCount int32
	if err := binary.Read(r, binary.BigEndian, &filterCount); err != nil {
		return errors.Wrap(err, "runtime filter count")
	}
	for i := int32(0); i < filterCount; i++ {
		rf := &RuntimeFilter{}
		if err := rf.parse(r); err != nil {
			return errors.Wrap(err, "runtime filter")
		}
		n.RuntimeFilters = append(n.RuntimeFilters, rf)
	}

	return n.parsePayload(r)
}

func (n *PlanNode) encodePayload(buf *bytes.Buffer) error {
	switch n.Kind {
	case NodeScan:
		if n.Scan == nil {
			return errors.Errorf("scan node %d missing payload", n.NodeID)
		}
		writeString(buf, n.Scan.Table)
		binary.Write(buf, binary.BigEndian, n.Scan.TupleID)
	case NodeHashJoin:
		if n.HashJoin == nil {
			return errors.Errorf("hash join node %d missing payload", n.NodeID)
		}
		writeString(buf, n.HashJoin.JoinOp)
		writeExprs(buf, n.HashJoin.EqJoinConjuncts)
	case NodeAggregation:
		if n.Aggregation == nil {
			return errors.Errorf("aggregation node %d missing payload", n.NodeID)
		}
		writeExprs(buf, n.Aggregation.GroupingExprs)
		writeBool(buf, n.Aggregation.NeedsFinalize)
	case NodeSort:
		if n.Sort == nil {
			return errors.Errorf("sort node %d missing payload", n.NodeID)
		}
		writeExprs(buf, n.Sort.OrderingExprs)
		writeBool(buf, n.Sort.IsTopN)
	case NodeExchange:
		if n.Exchange == nil {
			return errors.Errorf("exchange node %d missing payload", n.NodeID)
		}
		writeString(buf, n.Exchange.PartitionType)
	case NodeSelect, NodeEmptySet:
		// No payload.
	default:
		return errors.Errorf("node %d has unknown kind %d", n.NodeID, n.Kind)
	}
	return nil
}

func (n *PlanNode) parsePayload(r *bytes.Reader) error {
	var err error
	switch n.Kind {
	case NodeScan:
		p := &ScanPayload{}
		if p.Table, err = readString(r); err != nil {
			return errors.Wrap(err, "scan table")
		}
		if err = binary.Read(r, binary.BigEndian, &p.TupleID); err != nil {
			return errors.Wrap(err, "scan tuple id")
		}
		n.Scan = p
	case NodeHashJoin:
		p := &HashJoinPayload{}
		if p.JoinOp, err = readString(r); err != nil {
			return errors.Wrap(err, "join op")
		}
		if p.EqJoinConjuncts, err = readExprs(r); err != nil {
			return errors.Wrap(err, "eq join conjuncts")
		}
		n.HashJoin = p
	case NodeAggregation:
		p := &AggregationPayload{}
		if p.GroupingExprs, err = readExprs(r); err != nil {
			return errors.Wrap(err, "grouping exprs")
		}
		if p.NeedsFinalize, err = readBool(r); err != nil {
			return errors.Wrap(err, "needs finalize")
		}
		n.Aggregation = p
	case NodeSort:
		p := &SortPayload{}
		if p.OrderingExprs, err = readExprs(r); err != nil {
			return errors.Wrap(err, "ordering exprs")
		}
		if p.IsTopN, err = readBool(r); err != nil {
			return errors.Wrap(err, "is top-n")
		}
		n.Sort = p
	case NodeExchange:
		p := &ExchangePayload{}
		if p.PartitionType, err = readString(r); err != nil {
			return errors.Wrap(err, "partition type")
		}
		n.Exchange = p
	case NodeSelect, NodeEmptySet:
		// No payload.
	default:
		return errors.Errorf("node %d has unknown kind %d", n.NodeID, n.Kind)
	}
	return nil
}

func (f *RuntimeFilter) encode(buf *bytes.Buffer) {
	binary.Write(buf, binary.BigEndian, f.FilterID)
	buf.WriteByte(byte(f.Kind))
	writeExpr(buf, f.SrcExpr)
	binary.Write(buf, binary.BigEndian, int32(len(f.TargetExprs)))
	// Deterministic order keeps encodings byte-comparable.
	for _, id := range sortedTargetIDs(f.TargetExprs) {
		binary.Write(buf, binary.BigEndian, id)
		writeExpr(buf, f.TargetExprs[id])
	}
}

func (f *RuntimeFilter) parse(r *bytes.Reader) error {
	if err := binary.Read(r, binary.BigEndian, &f.FilterID); err != nil {
		return errors.Wrap(err, "filter id")
	}
	kind, err := r.ReadByte()
	if err != nil {
		return errors.Wrap(err, "filter kind")
	}
	f.Kind = FilterKind(kind)
	if f.SrcExpr, err = readExpr(r); err != nil {
		return errors.Wrap(err, "source expr")
	}
	var targetCount int32
	if err := binary.Read(r, binary.BigEndian, &targetCount); err != nil {
		return errors.Wrap(err, "target count")
	}
	if targetCount > 0 {
		f.TargetExprs = make(map[int32]*Expr, targetCount)
	}
	for i := int32(0); i < targetCount; i++ {
		var nodeID int32
		if err := binary.Read(r, binary.BigEndian, &nodeID); err != nil {
			return errors.Wrap(err, "target node id")
		}
		expr, err := readExpr(r)
		if err != nil {
			return errors.Wrap(err, "target expr")
		}
		f.TargetExprs[nodeID] = expr
	}
	return nil
}

func sortedTargetIDs(targets map[int32]*Expr) []int32 {
	ids := make([]int32, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

func writeExprs(buf *bytes.Buffer, exprs []*Expr) {
	binary.Write(buf, binary.BigEndian, int32(len(exprs)))
	for _, e := range exprs {
		writeExpr(buf, e)
	}
}

func readExprs(r *bytes.Reader) ([]*Expr, error) {
	var count int32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	var exprs []*Expr
	for i := int32(0); i < count; i++ {
		e, err := readExpr(r)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

func writeExpr(buf *bytes.Buffer, e *Expr) {
	if e == nil {
		writeString(buf, "")
		return
	}
	writeString(buf, e.SQL)
}

func readExpr(r *bytes.Reader) (*Expr, error) {
	sql, err := readString(r)
	if err != nil {
		return nil, err
	}
	return &Expr{SQL: sql}, nil
}

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.BigEndian, int32(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	var length int32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", err
	}
	if length < 0 {
		return "", errors.Errorf("negative string length %d", length)
	}
	b := make([]byte, length)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func readBool(r *bytes.Reader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}
