package selfwire

import (
	"fmt"
	"sort"

	"github.com/wippyai/selfwire/errors"
	"github.com/wippyai/selfwire/shape"
)

// DefaultMaxDepth bounds value nesting during schema inference, encoding
// and decoding
const DefaultMaxDepth = 512

// kindUnknown marks a builder node whose shape has not been observed yet:
// the inner of an option only seen as None, the element slot of an empty
// sequence. Unknown unifies with anything and finalizes as Unit.
const kindUnknown = shape.Kind(0xff)

// bnode is a mutable shape node used while inference is in flight. Unlike
// shape.Node it references children by pointer so that later occurrences
// can refine earlier ones in place.
type bnode struct {
	kind   shape.Kind
	signed bool
	width  shape.Width

	inner      *bnode
	elem       *bnode
	key, value *bnode
	elems      []*bnode

	name     string
	fields   []bfield
	tagging  shape.Tagging
	variants []bvariant

	// untagged enums share one accumulator per enum name
	union *unionAcc
}

type bfield struct {
	name     string
	optional bool
	shape    *bnode
}

type bvariant struct {
	name    string
	index   uint32
	payload *bnode
}

// unionAcc collects the distinct payload shapes observed for one untagged
// enum across the whole inference pass. Member order is observation order;
// the schema-facing order (ascending payload id) is only fixed at
// finalization, which is when rank is filled in.
type unionAcc struct {
	name    string
	members []*bnode

	rank      []uint32 // member slot -> index in the final sorted list
	sortedIDs []shape.ID
	ranked    bool
	building  bool // interning in flight; re-entry means a member cycle
}

// rawEntry is an unresolved ambiguity trace entry. Presence bits are
// literal; union entries hold the accumulator slot chosen during the
// occurrence, translated to a final member index at finalization.
type rawEntry struct {
	lit  uint32
	acc  *unionAcc
	slot int
}

// SchemaBuilder infers a schema by acting as the Encoder a Described
// value decomposes into. Multiple values may be described into one
// builder; their shapes are unified and their trace entries concatenated.
// Finalize is terminal: the builder must not be reused after it.
type SchemaBuilder struct {
	root     *bnode
	unions   map[string]*unionAcc
	raw      []rawEntry
	maxDepth int
	path     []string
}

// NewSchemaBuilder creates a builder. maxDepth bounds value nesting;
// values at or below zero select DefaultMaxDepth.
func NewSchemaBuilder(maxDepth int) *SchemaBuilder {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &SchemaBuilder{
		root:     &bnode{kind: kindUnknown},
		unions:   make(map[string]*unionAcc),
		maxDepth: maxDepth,
	}
}

// Infer builds the schema and trace of a single value with default limits
func Infer(v Described) (*Schema, Trace, error) {
	b := NewSchemaBuilder(0)
	if err := b.Describe(v); err != nil {
		return nil, nil, err
	}
	return b.Finalize()
}

// Describe runs one value's decomposition through the builder, unifying
// its shape with everything described before it
func (b *SchemaBuilder) Describe(v Described) error {
	scratch := &bnode{kind: kindUnknown}
	if err := v.DescribeValue(builderEnc{b: b, dst: scratch}); err != nil {
		return err
	}
	return b.unify(b.root, scratch)
}

// Finalize interns the accumulated shapes into a fresh pool in depth-first
// post-order and resolves union trace entries against the sorted member
// lists
func (b *SchemaBuilder) Finalize() (*Schema, Trace, error) {
	pool := shape.NewPool()
	memo := make(map[*bnode]shape.ID)
	root, err := intern(pool, b.root, memo)
	if err != nil {
		return nil, nil, err
	}

	trace := make(Trace, len(b.raw))
	for i, re := range b.raw {
		if re.acc == nil {
			trace[i] = re.lit
		} else {
			trace[i] = re.acc.rank[re.slot]
		}
	}
	return &Schema{pool: pool, root: root}, trace, nil
}

func (b *SchemaBuilder) push(s string) { b.path = append(b.path, s) }
func (b *SchemaBuilder) pop()          { b.path = b.path[:len(b.path)-1] }

func (b *SchemaBuilder) at() []string {
	return append([]string(nil), b.path...)
}

// unify refines dst with src, failing on a structural conflict. The check
// runs before any mutation so a failed unification leaves dst untouched.
func (b *SchemaBuilder) unify(dst, src *bnode) error {
	if !canUnify(dst, src) {
		return errors.New(errors.PhaseBuild, errors.KindShapeConflict).
			Path(b.at()...).
			Detail("conflicting shapes %s vs %s", describe(dst), describe(src)).
			Build()
	}
	merge(dst, src)
	return nil
}

// admit finds the union member slot the payload belongs to, unifying into
// an existing member when one matches and appending a new member otherwise
func (b *SchemaBuilder) admit(acc *unionAcc, p *bnode) (int, error) {
	for i, m := range acc.members {
		if canUnify(m, p) {
			if err := b.unify(m, p); err != nil {
				return 0, err
			}
			return i, nil
		}
	}
	acc.members = append(acc.members, p)
	return len(acc.members) - 1, nil
}

func canUnify(a, o *bnode) bool {
	if a.kind == kindUnknown || o.kind == kindUnknown {
		return true
	}
	if a.kind != o.kind {
		return false
	}
	switch a.kind {
	case shape.KindInt:
		return a.signed == o.signed && a.width == o.width
	case shape.KindFloat:
		return a.width == o.width
	case shape.KindOption:
		return canUnify(a.inner, o.inner)
	case shape.KindSeq:
		return canUnify(a.elem, o.elem)
	case shape.KindMap:
		return canUnify(a.key, o.key) && canUnify(a.value, o.value)
	case shape.KindTuple:
		if len(a.elems) != len(o.elems) {
			return false
		}
		for i := range a.elems {
			if !canUnify(a.elems[i], o.elems[i]) {
				return false
			}
		}
		return true
	case shape.KindStruct:
		if a.name != o.name || len(a.fields) != len(o.fields) {
			return false
		}
		for i := range a.fields {
			af, of := &a.fields[i], &o.fields[i]
			if af.name != of.name || af.optional != of.optional {
				return false
			}
			if !canUnify(af.shape, of.shape) {
				return false
			}
		}
		return true
	case shape.KindEnum:
		if a.name != o.name || a.tagging != o.tagging {
			return false
		}
		if a.tagging == shape.TagUntagged {
			return a.union == o.union
		}
		// tagged enums agree when their shared variant indices agree;
		// indices only one side observed are merged, not conflicts
		for i := range o.variants {
			ov := &o.variants[i]
			if av := findVariant(a.variants, ov.index); av != nil {
				if av.name != ov.name || !canUnify(av.payload, ov.payload) {
					return false
				}
			}
		}
		return true
	}
	return true
}

// merge folds src into dst; callers must have checked canUnify
func merge(dst, src *bnode) {
	if src.kind == kindUnknown {
		return
	}
	if dst.kind == kindUnknown {
		*dst = *src
		return
	}
	switch dst.kind {
	case shape.KindOption:
		merge(dst.inner, src.inner)
	case shape.KindSeq:
		merge(dst.elem, src.elem)
	case shape.KindMap:
		merge(dst.key, src.key)
		merge(dst.value, src.value)
	case shape.KindTuple:
		for i := range dst.elems {
			merge(dst.elems[i], src.elems[i])
		}
	case shape.KindStruct:
		for i := range dst.fields {
			merge(dst.fields[i].shape, src.fields[i].shape)
		}
	case shape.KindEnum:
		if dst.tagging == shape.TagUntagged {
			return
		}
		for i := range src.variants {
			sv := &src.variants[i]
			if dv := findVariant(dst.variants, sv.index); dv != nil {
				merge(dv.payload, sv.payload)
			} else {
				dst.variants = append(dst.variants, *sv)
			}
		}
	}
}

func findVariant(vs []bvariant, index uint32) *bvariant {
	for i := range vs {
		if vs[i].index == index {
			return &vs[i]
		}
	}
	return nil
}

// intern converts the builder tree to pool nodes bottom-up. Children are
// interned before parents, so ids come out in depth-first post-order of
// first structural completion; memoization keeps shared subtrees (union
// members referenced from several occurrences) on one id.
func intern(pool *shape.Pool, n *bnode, memo map[*bnode]shape.ID) (shape.ID, error) {
	if id, ok := memo[n]; ok {
		return id, nil
	}
	var node shape.Node
	var err error
	switch n.kind {
	case kindUnknown:
		memo[n] = 0
		return 0, nil
	case shape.KindInt:
		node = shape.Node{Kind: shape.KindInt, Signed: n.signed, Width: n.width}
	case shape.KindFloat:
		node = shape.Node{Kind: shape.KindFloat, Width: n.width}
	case shape.KindOption:
		inner, err := intern(pool, n.inner, memo)
		if err != nil {
			return 0, err
		}
		node = shape.Node{Kind: shape.KindOption, Inner: inner}
	case shape.KindSeq:
		elem, err := intern(pool, n.elem, memo)
		if err != nil {
			return 0, err
		}
		node = shape.Node{Kind: shape.KindSeq, Elem: elem}
	case shape.KindMap:
		key, err := intern(pool, n.key, memo)
		if err != nil {
			return 0, err
		}
		value, err := intern(pool, n.value, memo)
		if err != nil {
			return 0, err
		}
		node = shape.Node{Kind: shape.KindMap, Key: key, Value: value}
	case shape.KindTuple:
		elems := make([]shape.ID, len(n.elems))
		for i, e := range n.elems {
			if elems[i], err = intern(pool, e, memo); err != nil {
				return 0, err
			}
		}
		node = shape.Node{Kind: shape.KindTuple, Elems: elems}
	case shape.KindStruct:
		fields := make([]shape.Field, len(n.fields))
		for i, f := range n.fields {
			id, err := intern(pool, f.shape, memo)
			if err != nil {
				return 0, err
			}
			fields[i] = shape.Field{Name: f.name, Shape: id, Optional: f.optional}
		}
		node = shape.Node{Kind: shape.KindStruct, Name: n.name, Fields: fields}
	case shape.KindEnum:
		if n.tagging == shape.TagUntagged {
			if node, err = internUnion(pool, n, memo); err != nil {
				return 0, err
			}
		} else {
			vs := make([]bvariant, len(n.variants))
			copy(vs, n.variants)
			sort.Slice(vs, func(i, j int) bool { return vs[i].index < vs[j].index })
			variants := make([]shape.Variant, len(vs))
			for i, v := range vs {
				id, err := intern(pool, v.payload, memo)
				if err != nil {
					return 0, err
				}
				variants[i] = shape.Variant{Name: v.name, Index: v.index, Payload: id}
			}
			node = shape.Node{Kind: shape.KindEnum, Name: n.name, Tagging: n.tagging, Variants: variants}
		}
	default:
		node = shape.Node{Kind: n.kind}
	}
	id := pool.Intern(node)
	memo[n] = id
	return id, nil
}

// internUnion interns the accumulator's members, fixes the final member
// order (ascending payload id, duplicates collapsed), and records the
// slot-to-index ranking the trace resolution needs. A member that reaches
// its own accumulator again is a recursive union; the wire schema has no
// back references, so that shape cannot be represented.
func internUnion(pool *shape.Pool, n *bnode, memo map[*bnode]shape.ID) (shape.Node, error) {
	acc := n.union
	if acc.building {
		return shape.Node{}, errors.New(errors.PhaseBuild, errors.KindUnsupported).
			Detail("recursive union %s cannot be represented in a schema", acc.name).
			Build()
	}
	if !acc.ranked {
		acc.building = true
		ids := make([]shape.ID, len(acc.members))
		for i, m := range acc.members {
			id, err := intern(pool, m, memo)
			if err != nil {
				acc.building = false
				return shape.Node{}, err
			}
			ids[i] = id
		}
		acc.building = false
		sorted := append([]shape.ID(nil), ids...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		uniq := sorted[:0]
		for _, id := range sorted {
			if len(uniq) == 0 || uniq[len(uniq)-1] != id {
				uniq = append(uniq, id)
			}
		}
		acc.rank = make([]uint32, len(ids))
		for i, id := range ids {
			acc.rank[i] = uint32(sort.Search(len(uniq), func(j int) bool { return uniq[j] >= id }))
		}
		acc.ranked = true
		acc.sortedIDs = uniq
	}
	variants := make([]shape.Variant, len(acc.sortedIDs))
	for i, id := range acc.sortedIDs {
		variants[i] = shape.Variant{Index: uint32(i), Payload: id}
	}
	return shape.Node{Kind: shape.KindEnum, Name: acc.name, Tagging: shape.TagUntagged, Variants: variants}, nil
}

func describe(n *bnode) string {
	switch n.kind {
	case kindUnknown:
		return "unknown"
	case shape.KindInt:
		if n.signed {
			return fmt.Sprintf("s%d", n.width)
		}
		return fmt.Sprintf("u%d", n.width)
	case shape.KindFloat:
		return fmt.Sprintf("f%d", n.width)
	case shape.KindStruct:
		return "struct " + n.name
	case shape.KindEnum:
		if n.tagging == shape.TagUntagged {
			return "union " + n.name
		}
		return "enum " + n.name
	}
	return n.kind.String()
}

// builderEnc is the Encoder face of the builder. Each instance owns one
// destination slot; pushing a second value through it is a contract
// violation of the Described implementation.
type builderEnc struct {
	b     *SchemaBuilder
	dst   *bnode
	depth int
}

func (e builderEnc) set(n bnode) error {
	if e.dst.kind != kindUnknown {
		return errors.New(errors.PhaseBuild, errors.KindUnsupported).
			Path(e.b.at()...).
			Detail("multiple values pushed for one slot").
			Build()
	}
	*e.dst = n
	return nil
}

func (e builderEnc) child(dst *bnode) (builderEnc, error) {
	if e.depth+1 > e.b.maxDepth {
		return builderEnc{}, errors.RecursionLimit(errors.PhaseBuild, e.b.maxDepth)
	}
	return builderEnc{b: e.b, dst: dst, depth: e.depth + 1}, nil
}

func (e builderEnc) Unit() error         { return e.set(bnode{kind: shape.KindUnit}) }
func (e builderEnc) Bool(bool) error     { return e.set(bnode{kind: shape.KindBool}) }
func (e builderEnc) Char(rune) error     { return e.set(bnode{kind: shape.KindChar}) }
func (e builderEnc) String(string) error { return e.set(bnode{kind: shape.KindString}) }
func (e builderEnc) Bytes([]byte) error  { return e.set(bnode{kind: shape.KindBytes}) }

func (e builderEnc) Int8(int8) error   { return e.intNode(true, shape.W8) }
func (e builderEnc) Int16(int16) error { return e.intNode(true, shape.W16) }
func (e builderEnc) Int32(int32) error { return e.intNode(true, shape.W32) }
func (e builderEnc) Int64(int64) error { return e.intNode(true, shape.W64) }

func (e builderEnc) Uint8(uint8) error   { return e.intNode(false, shape.W8) }
func (e builderEnc) Uint16(uint16) error { return e.intNode(false, shape.W16) }
func (e builderEnc) Uint32(uint32) error { return e.intNode(false, shape.W32) }
func (e builderEnc) Uint64(uint64) error { return e.intNode(false, shape.W64) }

func (e builderEnc) Float32(float32) error {
	return e.set(bnode{kind: shape.KindFloat, width: shape.W32})
}
func (e builderEnc) Float64(float64) error {
	return e.set(bnode{kind: shape.KindFloat, width: shape.W64})
}

func (e builderEnc) intNode(signed bool, w shape.Width) error {
	return e.set(bnode{kind: shape.KindInt, signed: signed, width: w})
}

func (e builderEnc) None() error {
	return e.set(bnode{kind: shape.KindOption, inner: &bnode{kind: kindUnknown}})
}

func (e builderEnc) Some(fn func(Encoder) error) error {
	inner := &bnode{kind: kindUnknown}
	ce, err := e.child(inner)
	if err != nil {
		return err
	}
	e.b.push("some")
	err = fn(ce)
	e.b.pop()
	if err != nil {
		return err
	}
	return e.set(bnode{kind: shape.KindOption, inner: inner})
}

func (e builderEnc) Seq(n int, fn func(int, Encoder) error) error {
	elem := &bnode{kind: kindUnknown}
	for i := 0; i < n; i++ {
		if err := e.element(fmt.Sprintf("[%d]", i), elem, func(ce Encoder) error { return fn(i, ce) }); err != nil {
			return err
		}
	}
	return e.set(bnode{kind: shape.KindSeq, elem: elem})
}

func (e builderEnc) Map(n int, key, value func(int, Encoder) error) error {
	k := &bnode{kind: kindUnknown}
	v := &bnode{kind: kindUnknown}
	for i := 0; i < n; i++ {
		if err := e.element(fmt.Sprintf("[%d].key", i), k, func(ce Encoder) error { return key(i, ce) }); err != nil {
			return err
		}
		if err := e.element(fmt.Sprintf("[%d].value", i), v, func(ce Encoder) error { return value(i, ce) }); err != nil {
			return err
		}
	}
	return e.set(bnode{kind: shape.KindMap, key: k, value: v})
}

// element builds one occurrence into a scratch node and unifies it into
// the persistent slot, so a failed unification cannot leave a half-merged
// slot behind
func (e builderEnc) element(label string, slot *bnode, fn func(Encoder) error) error {
	scratch := &bnode{kind: kindUnknown}
	ce, err := e.child(scratch)
	if err != nil {
		return err
	}
	e.b.push(label)
	err = fn(ce)
	if err == nil {
		err = e.b.unify(slot, scratch)
	}
	e.b.pop()
	return err
}

func (e builderEnc) Tuple(n int, fn func(int, Encoder) error) error {
	elems := make([]*bnode, n)
	for i := range elems {
		elems[i] = &bnode{kind: kindUnknown}
		ce, err := e.child(elems[i])
		if err != nil {
			return err
		}
		e.b.push(fmt.Sprintf("[%d]", i))
		err = fn(i, ce)
		e.b.pop()
		if err != nil {
			return err
		}
	}
	return e.set(bnode{kind: shape.KindTuple, elems: elems})
}

func (e builderEnc) Struct(name string, fn func(StructEncoder) error) error {
	n := &bnode{kind: shape.KindStruct, name: name}
	e.b.push(name)
	err := fn(&builderStruct{e: e, node: n})
	e.b.pop()
	if err != nil {
		return err
	}
	return e.set(*n)
}

func (e builderEnc) Enum(name string, tagging Tagging, index uint32, variant string, payload func(Encoder) error) error {
	if tagging == shape.TagUntagged {
		return e.union(name, payload)
	}
	p := &bnode{kind: shape.KindUnit}
	if payload != nil {
		p = &bnode{kind: kindUnknown}
		ce, err := e.child(p)
		if err != nil {
			return err
		}
		e.b.push(name + "." + variant)
		err = payload(ce)
		e.b.pop()
		if err != nil {
			return err
		}
	}
	return e.set(bnode{
		kind:     shape.KindEnum,
		name:     name,
		tagging:  tagging,
		variants: []bvariant{{name: variant, index: index, payload: p}},
	})
}

// union handles an untagged enum occurrence. The trace position is
// reserved before the payload is built so nested occurrences land after
// it, and filled in once the payload's member slot is known.
func (e builderEnc) union(name string, payload func(Encoder) error) error {
	acc := e.b.unions[name]
	if acc == nil {
		acc = &unionAcc{name: name}
		e.b.unions[name] = acc
	}
	pos := len(e.b.raw)
	e.b.raw = append(e.b.raw, rawEntry{})

	p := &bnode{kind: shape.KindUnit}
	if payload != nil {
		p = &bnode{kind: kindUnknown}
		ce, err := e.child(p)
		if err != nil {
			return err
		}
		e.b.push(name)
		err = payload(ce)
		e.b.pop()
		if err != nil {
			return err
		}
	}
	slot, err := e.b.admit(acc, p)
	if err != nil {
		return err
	}
	e.b.raw[pos] = rawEntry{acc: acc, slot: slot}
	return e.set(bnode{kind: shape.KindEnum, name: name, tagging: shape.TagUntagged, union: acc})
}

type builderStruct struct {
	e    builderEnc
	node *bnode
}

func (s *builderStruct) Field(name string, fn func(Encoder) error) error {
	f := &bnode{kind: kindUnknown}
	ce, err := s.e.child(f)
	if err != nil {
		return err
	}
	s.e.b.push(name)
	err = fn(ce)
	s.e.b.pop()
	if err != nil {
		return err
	}
	s.node.fields = append(s.node.fields, bfield{name: name, shape: f})
	return nil
}

func (s *builderStruct) OptionalField(name string, present bool, fn func(Encoder) error) error {
	var bit uint32
	if present {
		bit = 1
	}
	s.e.b.raw = append(s.e.b.raw, rawEntry{lit: bit})

	f := &bnode{kind: kindUnknown}
	if present {
		ce, err := s.e.child(f)
		if err != nil {
			return err
		}
		s.e.b.push(name)
		err = fn(ce)
		s.e.b.pop()
		if err != nil {
			return err
		}
	}
	s.node.fields = append(s.node.fields, bfield{name: name, optional: true, shape: f})
	return nil
}
