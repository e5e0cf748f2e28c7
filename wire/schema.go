package wire

import (
	"github.com/wippyai/selfwire/errors"
	"github.com/wippyai/selfwire/shape"
)

// Limits applied while decoding an untrusted schema section.
const (
	// MaxSchemaNodes bounds the node count of a decoded pool
	MaxSchemaNodes = 1 << 20
	// MaxTraceEntries bounds the length of a decoded ambiguity trace
	MaxTraceEntries = 1 << 24
)

// The schema section is self-hosting: the node model is closed and finite,
// so each node encodes as [kind tag][kind-specific fields] through the
// codec's own primitive writers, with no schema of its own. Nodes are
// written in id order; a node may only reference ids smaller than its own,
// which the decoder enforces (forward references are forbidden).

// EncodePool writes the pool's nodes in id order followed by the root id
func EncodePool(w Writer, p *shape.Pool, root shape.ID) error {
	if err := w.Len(p.Len()); err != nil {
		return err
	}
	for id := shape.ID(0); int(id) < p.Len(); id++ {
		if err := encodeNode(w, p.At(id)); err != nil {
			return err
		}
	}
	return w.U32(uint32(root))
}

func encodeNode(w Writer, n *shape.Node) error {
	if err := w.Variant(uint32(n.Kind)); err != nil {
		return err
	}
	switch n.Kind {
	case shape.KindInt:
		if err := w.Bool(n.Signed); err != nil {
			return err
		}
		return w.U8(uint8(n.Width))
	case shape.KindFloat:
		return w.U8(uint8(n.Width))
	case shape.KindOption:
		return w.U32(uint32(n.Inner))
	case shape.KindSeq:
		return w.U32(uint32(n.Elem))
	case shape.KindMap:
		if err := w.U32(uint32(n.Key)); err != nil {
			return err
		}
		return w.U32(uint32(n.Value))
	case shape.KindTuple:
		if err := w.Len(len(n.Elems)); err != nil {
			return err
		}
		for _, e := range n.Elems {
			if err := w.U32(uint32(e)); err != nil {
				return err
			}
		}
		return nil
	case shape.KindStruct:
		if err := w.String(n.Name); err != nil {
			return err
		}
		if err := w.Len(len(n.Fields)); err != nil {
			return err
		}
		for _, f := range n.Fields {
			if err := w.String(f.Name); err != nil {
				return err
			}
			if err := w.U32(uint32(f.Shape)); err != nil {
				return err
			}
			if err := w.Bool(f.Optional); err != nil {
				return err
			}
		}
		return nil
	case shape.KindEnum:
		if err := w.U8(uint8(n.Tagging)); err != nil {
			return err
		}
		if err := w.String(n.Name); err != nil {
			return err
		}
		if err := w.Len(len(n.Variants)); err != nil {
			return err
		}
		for _, v := range n.Variants {
			if err := w.String(v.Name); err != nil {
				return err
			}
			if err := w.U32(v.Index); err != nil {
				return err
			}
			if err := w.U32(uint32(v.Payload)); err != nil {
				return err
			}
		}
		return nil
	}
	// leaves carry no fields
	return nil
}

// DecodePool reads a pool and root id, validating every structural
// constraint; any violation yields a malformed schema error.
func DecodePool(r Reader) (*shape.Pool, shape.ID, error) {
	count, err := r.Len()
	if err != nil {
		return nil, 0, malformed(err, "reading node count")
	}
	if count == 0 {
		return nil, 0, errors.Malformed("empty shape pool")
	}
	if count > MaxSchemaNodes {
		return nil, 0, errors.Malformed("node count %d exceeds limit %d", count, MaxSchemaNodes)
	}
	nodes := make([]shape.Node, count)
	for i := 0; i < count; i++ {
		if err := decodeNode(r, &nodes[i], i); err != nil {
			return nil, 0, err
		}
	}
	root, err := r.U32()
	if err != nil {
		return nil, 0, malformed(err, "reading root id")
	}
	if int(root) >= count {
		return nil, 0, errors.Malformed("root id %d out of range (pool size %d)", root, count)
	}
	return shape.FromNodes(nodes), shape.ID(root), nil
}

func decodeNode(r Reader, n *shape.Node, i int) error {
	tag, err := r.Variant()
	if err != nil {
		return malformed(err, "reading node %d tag", i)
	}
	kind := shape.Kind(tag)
	if !kind.Valid() {
		return errors.Malformed("node %d has invalid kind tag %d", i, tag)
	}
	n.Kind = kind

	ref := func(what string) (shape.ID, error) {
		id, err := r.U32()
		if err != nil {
			return 0, malformed(err, "reading node %d %s", i, what)
		}
		if int(id) >= i {
			return 0, errors.Malformed("node %d references %s id %d (forward references forbidden)", i, what, id)
		}
		return shape.ID(id), nil
	}

	switch kind {
	case shape.KindInt:
		if n.Signed, err = r.Bool(); err != nil {
			return malformed(err, "reading node %d signedness", i)
		}
		w, err := r.U8()
		if err != nil {
			return malformed(err, "reading node %d width", i)
		}
		if !validIntWidth(w) {
			return errors.Malformed("node %d has invalid int width %d", i, w)
		}
		n.Width = shape.Width(w)
	case shape.KindFloat:
		w, err := r.U8()
		if err != nil {
			return malformed(err, "reading node %d width", i)
		}
		if w != uint8(shape.W32) && w != uint8(shape.W64) {
			return errors.Malformed("node %d has invalid float width %d", i, w)
		}
		n.Width = shape.Width(w)
	case shape.KindOption:
		if n.Inner, err = ref("inner"); err != nil {
			return err
		}
	case shape.KindSeq:
		if n.Elem, err = ref("element"); err != nil {
			return err
		}
	case shape.KindMap:
		if n.Key, err = ref("key"); err != nil {
			return err
		}
		if n.Value, err = ref("value"); err != nil {
			return err
		}
	case shape.KindTuple:
		count, err := r.Len()
		if err != nil {
			return malformed(err, "reading node %d arity", i)
		}
		n.Elems = make([]shape.ID, count)
		for j := range n.Elems {
			if n.Elems[j], err = ref("element"); err != nil {
				return err
			}
		}
	case shape.KindStruct:
		if n.Name, err = r.String(); err != nil {
			return malformed(err, "reading node %d name", i)
		}
		count, err := r.Len()
		if err != nil {
			return malformed(err, "reading node %d field count", i)
		}
		n.Fields = make([]shape.Field, count)
		for j := range n.Fields {
			f := &n.Fields[j]
			if f.Name, err = r.String(); err != nil {
				return malformed(err, "reading node %d field name", i)
			}
			if f.Shape, err = ref("field"); err != nil {
				return err
			}
			if f.Optional, err = r.Bool(); err != nil {
				return malformed(err, "reading node %d field flag", i)
			}
		}
	case shape.KindEnum:
		tagging, err := r.U8()
		if err != nil {
			return malformed(err, "reading node %d tagging", i)
		}
		if tagging > uint8(shape.TagUntagged) {
			return errors.Malformed("node %d has invalid tagging mode %d", i, tagging)
		}
		n.Tagging = shape.Tagging(tagging)
		if n.Name, err = r.String(); err != nil {
			return malformed(err, "reading node %d name", i)
		}
		count, err := r.Len()
		if err != nil {
			return malformed(err, "reading node %d variant count", i)
		}
		n.Variants = make([]shape.Variant, count)
		for j := range n.Variants {
			v := &n.Variants[j]
			if v.Name, err = r.String(); err != nil {
				return malformed(err, "reading node %d variant name", i)
			}
			if v.Index, err = r.U32(); err != nil {
				return malformed(err, "reading node %d variant index", i)
			}
			if v.Payload, err = ref("payload"); err != nil {
				return err
			}
		}
	}
	return nil
}

// EncodeTrace writes the ambiguity trace as a count-prefixed int
// sequence. The count travels as a U32 rather than a Len: a trace holds
// one entry per ambiguity in the whole value, so it may legitimately
// outgrow a single list and gets its own limit, MaxTraceEntries.
func EncodeTrace(w Writer, trace []uint32) error {
	if len(trace) > MaxTraceEntries {
		return errors.Malformed("trace length %d exceeds limit %d", len(trace), MaxTraceEntries)
	}
	if err := w.U32(uint32(len(trace))); err != nil {
		return err
	}
	for _, v := range trace {
		if err := w.U32(v); err != nil {
			return err
		}
	}
	return nil
}

// DecodeTrace reads a count-prefixed trace section
func DecodeTrace(r Reader) ([]uint32, error) {
	count, err := r.U32()
	if err != nil {
		return nil, malformed(err, "reading trace count")
	}
	if count > MaxTraceEntries {
		return nil, errors.Malformed("trace length %d exceeds limit %d", count, MaxTraceEntries)
	}
	trace := make([]uint32, count)
	for i := range trace {
		if trace[i], err = r.U32(); err != nil {
			return nil, malformed(err, "reading trace entry %d", i)
		}
	}
	return trace, nil
}

// EncodeSchema writes the combined schema section: pool, root id, trace
func EncodeSchema(w Writer, p *shape.Pool, root shape.ID, trace []uint32) error {
	if err := EncodePool(w, p, root); err != nil {
		return err
	}
	return EncodeTrace(w, trace)
}

// DecodeSchema reads the combined schema section
func DecodeSchema(r Reader) (*shape.Pool, shape.ID, []uint32, error) {
	pool, root, err := DecodePool(r)
	if err != nil {
		return nil, 0, nil, err
	}
	trace, err := DecodeTrace(r)
	if err != nil {
		return nil, 0, nil, err
	}
	return pool, root, trace, nil
}

func validIntWidth(w uint8) bool {
	switch shape.Width(w) {
	case shape.W8, shape.W16, shape.W32, shape.W64:
		return true
	}
	return false
}

func malformed(cause error, detail string, args ...any) error {
	return errors.New(errors.PhaseSchema, errors.KindMalformed).
		Detail(detail, args...).
		Cause(cause).
		Build()
}
