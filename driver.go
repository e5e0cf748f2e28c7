package selfwire

import (
	"fmt"

	"github.com/wippyai/selfwire/errors"
	"github.com/wippyai/selfwire/shape"
	"github.com/wippyai/selfwire/wire"
)

// driverState is the per-decode state shared by every decoder handle:
// codec reader, trace cursor and the current path for error reporting
type driverState struct {
	pool     *shape.Pool
	r        wire.Reader
	trace    Trace
	ti       int
	maxDepth int
	path     []string
}

func (s *driverState) push(p string) { s.path = append(s.path, p) }
func (s *driverState) pop()          { s.path = s.path[:len(s.path)-1] }

func (s *driverState) at() []string {
	return append([]string(nil), s.path...)
}

// next consumes one ambiguity trace entry
func (s *driverState) next() (uint32, error) {
	if s.ti >= len(s.trace) {
		return 0, errors.New(errors.PhaseDecode, errors.KindTraceUnderflow).
			Path(s.at()...).
			Detail("trace exhausted after %d entries", len(s.trace)).
			Build()
	}
	v := s.trace[s.ti]
	s.ti++
	return v, nil
}

// decodeValue drives one value's reconstruction and verifies the trace
// was consumed exactly
func decodeValue(pool *shape.Pool, root shape.ID, r wire.Reader, trace Trace, maxDepth int, v Described) error {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	s := &driverState{pool: pool, r: r, trace: trace, maxDepth: maxDepth}
	if err := v.BuildValue(decodeDriver{s: s, id: root}); err != nil {
		return err
	}
	if s.ti != len(trace) {
		return errors.New(errors.PhaseDecode, errors.KindTraceOverflow).
			Detail("%d unconsumed trace entries", len(trace)-s.ti).
			Build()
	}
	return nil
}

// decodeDriver is a Decoder positioned on one shape node. Every pull
// checks the node first, so a target compiled against a different version
// of the type fails with a type mismatch instead of misreading bytes.
type decodeDriver struct {
	s     *driverState
	id    shape.ID
	depth int
}

func (d decodeDriver) node() (*shape.Node, error) {
	return d.s.pool.Resolve(d.id)
}

func (d decodeDriver) child(id shape.ID) (decodeDriver, error) {
	if d.depth+1 > d.s.maxDepth {
		return decodeDriver{}, errors.RecursionLimit(errors.PhaseDecode, d.s.maxDepth)
	}
	return decodeDriver{s: d.s, id: id, depth: d.depth + 1}, nil
}

func (d decodeDriver) wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.Codec(errors.PhaseDecode, err)
}

func (d decodeDriver) mismatch(n *shape.Node, asked string) error {
	return errors.TypeMismatch(d.s.at(), nodeDesc(n), asked)
}

// want resolves the current node and checks its kind
func (d decodeDriver) want(kind shape.Kind, asked string) (*shape.Node, error) {
	n, err := d.node()
	if err != nil {
		return nil, err
	}
	if n.Kind != kind {
		return nil, d.mismatch(n, asked)
	}
	return n, nil
}

func (d decodeDriver) Unit() error {
	_, err := d.want(shape.KindUnit, "unit")
	return err
}

func (d decodeDriver) Bool() (bool, error) {
	if _, err := d.want(shape.KindBool, "bool"); err != nil {
		return false, err
	}
	v, err := d.s.r.Bool()
	return v, d.wrap(err)
}

func (d decodeDriver) wantInt(signed bool, w shape.Width, asked string) error {
	n, err := d.node()
	if err != nil {
		return err
	}
	if n.Kind != shape.KindInt || n.Signed != signed || n.Width != w {
		return d.mismatch(n, asked)
	}
	return nil
}

func (d decodeDriver) Int8() (int8, error) {
	if err := d.wantInt(true, shape.W8, "s8"); err != nil {
		return 0, err
	}
	v, err := d.s.r.S8()
	return v, d.wrap(err)
}

func (d decodeDriver) Int16() (int16, error) {
	if err := d.wantInt(true, shape.W16, "s16"); err != nil {
		return 0, err
	}
	v, err := d.s.r.S16()
	return v, d.wrap(err)
}

func (d decodeDriver) Int32() (int32, error) {
	if err := d.wantInt(true, shape.W32, "s32"); err != nil {
		return 0, err
	}
	v, err := d.s.r.S32()
	return v, d.wrap(err)
}

func (d decodeDriver) Int64() (int64, error) {
	if err := d.wantInt(true, shape.W64, "s64"); err != nil {
		return 0, err
	}
	v, err := d.s.r.S64()
	return v, d.wrap(err)
}

func (d decodeDriver) Uint8() (uint8, error) {
	if err := d.wantInt(false, shape.W8, "u8"); err != nil {
		return 0, err
	}
	v, err := d.s.r.U8()
	return v, d.wrap(err)
}

func (d decodeDriver) Uint16() (uint16, error) {
	if err := d.wantInt(false, shape.W16, "u16"); err != nil {
		return 0, err
	}
	v, err := d.s.r.U16()
	return v, d.wrap(err)
}

func (d decodeDriver) Uint32() (uint32, error) {
	if err := d.wantInt(false, shape.W32, "u32"); err != nil {
		return 0, err
	}
	v, err := d.s.r.U32()
	return v, d.wrap(err)
}

func (d decodeDriver) Uint64() (uint64, error) {
	if err := d.wantInt(false, shape.W64, "u64"); err != nil {
		return 0, err
	}
	v, err := d.s.r.U64()
	return v, d.wrap(err)
}

func (d decodeDriver) Float32() (float32, error) {
	n, err := d.node()
	if err != nil {
		return 0, err
	}
	if n.Kind != shape.KindFloat || n.Width != shape.W32 {
		return 0, d.mismatch(n, "f32")
	}
	v, err := d.s.r.F32()
	return v, d.wrap(err)
}

func (d decodeDriver) Float64() (float64, error) {
	n, err := d.node()
	if err != nil {
		return 0, err
	}
	if n.Kind != shape.KindFloat || n.Width != shape.W64 {
		return 0, d.mismatch(n, "f64")
	}
	v, err := d.s.r.F64()
	return v, d.wrap(err)
}

func (d decodeDriver) Char() (rune, error) {
	if _, err := d.want(shape.KindChar, "char"); err != nil {
		return 0, err
	}
	v, err := d.s.r.Char()
	return v, d.wrap(err)
}

func (d decodeDriver) String() (string, error) {
	if _, err := d.want(shape.KindString, "str"); err != nil {
		return "", err
	}
	v, err := d.s.r.String()
	return v, d.wrap(err)
}

func (d decodeDriver) Bytes() ([]byte, error) {
	if _, err := d.want(shape.KindBytes, "bytes"); err != nil {
		return nil, err
	}
	v, err := d.s.r.Bytes()
	return v, d.wrap(err)
}

func (d decodeDriver) Option(some func(Decoder) error) (bool, error) {
	n, err := d.want(shape.KindOption, "option")
	if err != nil {
		return false, err
	}
	tag, err := d.s.r.Variant()
	if err != nil {
		return false, d.wrap(err)
	}
	switch tag {
	case 0:
		return false, nil
	case 1:
		cd, err := d.child(n.Inner)
		if err != nil {
			return false, err
		}
		d.s.push("some")
		err = some(cd)
		d.s.pop()
		return true, err
	}
	return false, errors.New(errors.PhaseDecode, errors.KindCodec).
		Path(d.s.at()...).
		Detail("invalid option tag %d", tag).
		Build()
}

func (d decodeDriver) Seq(size func(int), elem func(int, Decoder) error) error {
	n, err := d.want(shape.KindSeq, "seq")
	if err != nil {
		return err
	}
	count, err := d.s.r.Len()
	if err != nil {
		return d.wrap(err)
	}
	size(count)
	cd, err := d.child(n.Elem)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		d.s.push(fmt.Sprintf("[%d]", i))
		err := elem(i, cd)
		d.s.pop()
		if err != nil {
			return err
		}
	}
	return nil
}

func (d decodeDriver) Map(size func(int), key, value func(int, Decoder) error) error {
	n, err := d.want(shape.KindMap, "map")
	if err != nil {
		return err
	}
	count, err := d.s.r.Len()
	if err != nil {
		return d.wrap(err)
	}
	size(count)
	kd, err := d.child(n.Key)
	if err != nil {
		return err
	}
	vd, err := d.child(n.Value)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		d.s.push(fmt.Sprintf("[%d].key", i))
		err := key(i, kd)
		d.s.pop()
		if err != nil {
			return err
		}
		d.s.push(fmt.Sprintf("[%d].value", i))
		err = value(i, vd)
		d.s.pop()
		if err != nil {
			return err
		}
	}
	return nil
}

func (d decodeDriver) Tuple(arity int, elem func(int, Decoder) error) error {
	n, err := d.want(shape.KindTuple, fmt.Sprintf("tuple of %d", arity))
	if err != nil {
		return err
	}
	if len(n.Elems) != arity {
		return d.mismatch(n, fmt.Sprintf("tuple of %d", arity))
	}
	for i := 0; i < arity; i++ {
		cd, err := d.child(n.Elems[i])
		if err != nil {
			return err
		}
		d.s.push(fmt.Sprintf("[%d]", i))
		err = elem(i, cd)
		d.s.pop()
		if err != nil {
			return err
		}
	}
	return nil
}

func (d decodeDriver) Struct(name string, fn func(StructDecoder) error) error {
	n, err := d.want(shape.KindStruct, "struct "+name)
	if err != nil {
		return err
	}
	if n.Name != name {
		return d.mismatch(n, "struct "+name)
	}
	d.s.push(name)
	sd := &driverStruct{d: d, node: n}
	err = fn(sd)
	d.s.pop()
	if err != nil {
		return err
	}
	if sd.idx != len(n.Fields) {
		return errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			Path(d.s.at()...).
			Detail("struct %s has %d fields, target consumed %d", name, len(n.Fields), sd.idx).
			Build()
	}
	return nil
}

func (d decodeDriver) Enum(name string, variant func(uint32, string, Decoder) error) error {
	n, err := d.want(shape.KindEnum, "enum "+name)
	if err != nil {
		return err
	}
	if n.Tagging == shape.TagUntagged || n.Name != name {
		return d.mismatch(n, "enum "+name)
	}
	idx, err := d.s.r.Variant()
	if err != nil {
		return d.wrap(err)
	}
	var sel *shape.Variant
	for i := range n.Variants {
		if n.Variants[i].Index == idx {
			sel = &n.Variants[i]
			break
		}
	}
	if sel == nil {
		return errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			Path(d.s.at()...).
			Detail("enum %s has no variant with index %d", name, idx).
			Build()
	}
	cd, err := d.child(sel.Payload)
	if err != nil {
		return err
	}
	d.s.push(name + "." + sel.Name)
	err = variant(idx, sel.Name, cd)
	d.s.pop()
	return err
}

func (d decodeDriver) Union(name string, member func(Member, Decoder) error) error {
	n, err := d.want(shape.KindEnum, "union "+name)
	if err != nil {
		return err
	}
	if n.Tagging != shape.TagUntagged || n.Name != name {
		return d.mismatch(n, "union "+name)
	}
	entry, err := d.s.next()
	if err != nil {
		return err
	}
	if int(entry) >= len(n.Variants) {
		return errors.New(errors.PhaseDecode, errors.KindIDOutOfRange).
			Path(d.s.at()...).
			Detail("union member index %d out of range (%d members)", entry, len(n.Variants)).
			Build()
	}
	payload := n.Variants[entry].Payload
	pn, err := d.s.pool.Resolve(payload)
	if err != nil {
		return err
	}
	cd, err := d.child(payload)
	if err != nil {
		return err
	}
	d.s.push(name)
	err = member(Member{Index: int(entry), Kind: pn.Kind, Name: pn.Name}, cd)
	d.s.pop()
	return err
}

type driverStruct struct {
	d    decodeDriver
	node *shape.Node
	idx  int
}

// field advances the cursor, enforcing schema field order
func (s *driverStruct) field(name string, optional bool) (*shape.Field, error) {
	if s.idx >= len(s.node.Fields) {
		return nil, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			Path(s.d.s.at()...).
			Detail("struct %s has no field %q past position %d", s.node.Name, name, s.idx).
			Build()
	}
	f := &s.node.Fields[s.idx]
	if f.Name != name || f.Optional != optional {
		want := f.Name
		if f.Optional {
			want += "?"
		}
		asked := name
		if optional {
			asked += "?"
		}
		return nil, errors.TypeMismatch(s.d.s.at(), "field "+want, "field "+asked)
	}
	s.idx++
	return f, nil
}

func (s *driverStruct) Field(name string, fn func(Decoder) error) error {
	f, err := s.field(name, false)
	if err != nil {
		return err
	}
	cd, err := s.d.child(f.Shape)
	if err != nil {
		return err
	}
	s.d.s.push(name)
	err = fn(cd)
	s.d.s.pop()
	return err
}

func (s *driverStruct) OptionalField(name string, fn func(Decoder) error) (bool, error) {
	f, err := s.field(name, true)
	if err != nil {
		return false, err
	}
	bit, err := s.d.s.next()
	if err != nil {
		return false, err
	}
	switch bit {
	case 0:
		return false, nil
	case 1:
		cd, err := s.d.child(f.Shape)
		if err != nil {
			return false, err
		}
		s.d.s.push(name)
		err = fn(cd)
		s.d.s.pop()
		return true, err
	}
	return false, errors.New(errors.PhaseDecode, errors.KindMalformed).
		Path(s.d.s.at()...).
		Detail("invalid presence bit %d in trace", bit).
		Build()
}

// nodeDesc renders a node for mismatch messages
func nodeDesc(n *shape.Node) string {
	switch n.Kind {
	case shape.KindInt:
		if n.Signed {
			return fmt.Sprintf("s%d", n.Width)
		}
		return fmt.Sprintf("u%d", n.Width)
	case shape.KindFloat:
		return fmt.Sprintf("f%d", n.Width)
	case shape.KindTuple:
		return fmt.Sprintf("tuple of %d", len(n.Elems))
	case shape.KindStruct:
		return "struct " + n.Name
	case shape.KindEnum:
		if n.Tagging == shape.TagUntagged {
			return "union " + n.Name
		}
		return "enum " + n.Name
	}
	return n.Kind.String()
}
