package shape

import (
	"encoding/binary"
	"strconv"
)

// ID is a handle into a Pool. Two structurally identical nodes interned
// into the same pool always share one ID.
type ID uint32

// Kind identifies the structural kind of a shape node
type Kind uint8

const (
	KindUnit Kind = iota
	KindBool
	KindInt
	KindFloat
	KindChar
	KindString
	KindBytes
	KindOption
	KindSeq
	KindMap
	KindTuple
	KindStruct
	KindEnum

	numKinds
)

// Valid reports whether k is one of the defined kinds
func (k Kind) Valid() bool {
	return k < numKinds
}

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindChar:
		return "char"
	case KindString:
		return "str"
	case KindBytes:
		return "bytes"
	case KindOption:
		return "option"
	case KindSeq:
		return "seq"
	case KindMap:
		return "map"
	case KindTuple:
		return "tuple"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Width is the bit width of an Int or Float node
type Width uint8

const (
	W8  Width = 8
	W16 Width = 16
	W32 Width = 32
	W64 Width = 64
)

// Tagging is the representation mode of an Enum node. All modes except
// TagUntagged are self-describing at the byte level: the codec writes a
// variant index. Untagged enums rely on the ambiguity trace instead.
type Tagging uint8

const (
	TagExternal Tagging = iota
	TagInternal
	TagAdjacent
	TagUntagged
)

// Field is a named struct member. Optional fields may be omitted per
// occurrence; presence is recorded in the ambiguity trace, not in the
// payload bytes.
type Field struct {
	Name     string
	Shape    ID
	Optional bool
}

// Variant is an enum member. For tagged enums Index is the static variant
// index the codec writes. Untagged members carry no name; their Index is
// the position in the member list. A payload of id 0 (Unit) means the
// variant has no payload bytes.
type Variant struct {
	Name    string
	Index   uint32
	Payload ID
}

// Node is a shape graph node, discriminated by Kind. Only the fields
// relevant to the Kind are meaningful; the rest stay zero.
type Node struct {
	Kind Kind

	// Int, Float
	Signed bool
	Width  Width

	// Option
	Inner ID

	// Seq
	Elem ID

	// Map
	Key   ID
	Value ID

	// Tuple
	Elems []ID

	// Struct, Enum
	Name     string
	Fields   []Field
	Tagging  Tagging
	Variants []Variant
}

// appendKey appends a canonical byte encoding of the node to b. Two nodes
// produce the same key iff they are structurally identical (children are
// compared by interned id).
func (n *Node) appendKey(b []byte) []byte {
	b = append(b, byte(n.Kind))
	switch n.Kind {
	case KindInt:
		s := byte(0)
		if n.Signed {
			s = 1
		}
		b = append(b, s, byte(n.Width))
	case KindFloat:
		b = append(b, byte(n.Width))
	case KindOption:
		b = appendID(b, n.Inner)
	case KindSeq:
		b = appendID(b, n.Elem)
	case KindMap:
		b = appendID(b, n.Key)
		b = appendID(b, n.Value)
	case KindTuple:
		b = appendLen(b, len(n.Elems))
		for _, e := range n.Elems {
			b = appendID(b, e)
		}
	case KindStruct:
		b = appendStr(b, n.Name)
		b = appendLen(b, len(n.Fields))
		for _, f := range n.Fields {
			b = appendStr(b, f.Name)
			b = appendID(b, f.Shape)
			opt := byte(0)
			if f.Optional {
				opt = 1
			}
			b = append(b, opt)
		}
	case KindEnum:
		b = append(b, byte(n.Tagging))
		b = appendStr(b, n.Name)
		b = appendLen(b, len(n.Variants))
		for _, v := range n.Variants {
			b = appendStr(b, v.Name)
			b = appendID(b, v.Index)
			b = appendID(b, v.Payload)
		}
	}
	return b
}

// Equal reports structural identity with o
func (n *Node) Equal(o *Node) bool {
	return string(n.appendKey(nil)) == string(o.appendKey(nil))
}

func appendID[T ~uint32](b []byte, id T) []byte {
	return binary.LittleEndian.AppendUint32(b, uint32(id))
}

func appendLen(b []byte, n int) []byte {
	return binary.LittleEndian.AppendUint32(b, uint32(n))
}

func appendStr(b []byte, s string) []byte {
	b = appendLen(b, len(s))
	return append(b, s...)
}
