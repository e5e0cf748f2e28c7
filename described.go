package selfwire

import (
	"github.com/wippyai/selfwire/shape"
)

// Tagging selects the byte-level representation of an enum. All modes
// except Untagged write a variant index through the codec; untagged enums
// write the payload bare and record the chosen member in the ambiguity
// trace instead.
type Tagging = shape.Tagging

const (
	External = shape.TagExternal
	Internal = shape.TagInternal
	Adjacent = shape.TagAdjacent
	Untagged = shape.TagUntagged
)

// Described is the capability a value needs to flow through the envelope.
// DescribeValue decomposes the value by pushing it through an Encoder;
// BuildValue reconstructs it by pulling from a Decoder. The same
// decomposition drives both schema inference and data encoding, so the two
// methods must mirror each other exactly.
type Described interface {
	DescribeValue(e Encoder) error
	BuildValue(d Decoder) error
}

// Encoder receives the decomposition of a value. It is implemented by the
// schema builder (which records shapes and the ambiguity trace) and by the
// data writer (which streams bytes through a codec); a DescribeValue
// implementation must not care which one it is talking to.
//
// Each call encodes exactly one value. Containers take the element count
// up front and call back once per element.
type Encoder interface {
	Unit() error
	Bool(v bool) error
	Int8(v int8) error
	Int16(v int16) error
	Int32(v int32) error
	Int64(v int64) error
	Uint8(v uint8) error
	Uint16(v uint16) error
	Uint32(v uint32) error
	Uint64(v uint64) error
	Float32(v float32) error
	Float64(v float64) error
	Char(v rune) error
	String(v string) error
	Bytes(v []byte) error

	// None encodes an absent optional value; Some encodes a present one.
	None() error
	Some(fn func(e Encoder) error) error

	// Seq encodes n homogeneous elements. All elements must share one
	// shape; the schema builder unifies them and reports a conflict
	// otherwise.
	Seq(n int, fn func(i int, e Encoder) error) error

	// Map encodes n key/value entries. key and value are called once per
	// entry, in that order.
	Map(n int, key, value func(i int, e Encoder) error) error

	// Tuple encodes a fixed-arity heterogeneous product.
	Tuple(n int, fn func(i int, e Encoder) error) error

	// Struct encodes a named product. fn pushes each field through the
	// StructEncoder in declaration order.
	Struct(name string, fn func(s StructEncoder) error) error

	// Enum encodes one variant of a named sum. index is the variant's
	// static index and variant its name; payload is nil for a payload-less
	// variant. With Tagging Untagged the index and name are ignored at the
	// byte level: membership is structural and the chosen member is
	// recorded in the ambiguity trace.
	Enum(name string, tagging Tagging, index uint32, variant string, payload func(e Encoder) error) error
}

// StructEncoder pushes the fields of one struct occurrence
type StructEncoder interface {
	Field(name string, fn func(e Encoder) error) error

	// OptionalField encodes a field that may be omitted per occurrence.
	// Presence is recorded in the ambiguity trace; an absent field writes
	// no payload bytes at all. fn is only called when present is true.
	OptionalField(name string, present bool, fn func(e Encoder) error) error
}

// Decoder hands a value back during schema-directed decoding. Every pull
// is validated against the schema node being walked; asking for something
// the schema does not hold fails with a type mismatch, which is how a
// schema built for a different version of the target type is detected.
type Decoder interface {
	Unit() error
	Bool() (bool, error)
	Int8() (int8, error)
	Int16() (int16, error)
	Int32() (int32, error)
	Int64() (int64, error)
	Uint8() (uint8, error)
	Uint16() (uint16, error)
	Uint32() (uint32, error)
	Uint64() (uint64, error)
	Float32() (float32, error)
	Float64() (float64, error)
	Char() (rune, error)
	String() (string, error)
	Bytes() ([]byte, error)

	// Option reports presence and, when present, decodes the inner value
	// through some.
	Option(some func(d Decoder) error) (bool, error)

	// Seq decodes a sequence. size is called once with the element count
	// before any elements, so the target can preallocate.
	Seq(size func(n int), elem func(i int, d Decoder) error) error

	// Map decodes n entries; key and value are called once per entry, in
	// that order.
	Map(size func(n int), key, value func(i int, d Decoder) error) error

	// Tuple decodes a product of exactly n elements; a different schema
	// arity is a type mismatch.
	Tuple(n int, elem func(i int, d Decoder) error) error

	// Struct decodes a named product. The target pulls fields through the
	// StructDecoder in schema order and must consume all of them.
	Struct(name string, fn func(s StructDecoder) error) error

	// Enum decodes one variant of a tagged sum. variant receives the
	// decoded static index, the variant name recorded in the schema, and a
	// Decoder for the payload (positioned on Unit for payload-less
	// variants).
	Enum(name string, variant func(index uint32, name string, d Decoder) error) error

	// Union decodes one member of an untagged sum. The member choice comes
	// from the ambiguity trace, not from the bytes; member receives a
	// description of the selected member and a Decoder for its payload.
	Union(name string, member func(m Member, d Decoder) error) error
}

// StructDecoder pulls the fields of one struct occurrence in schema order
type StructDecoder interface {
	Field(name string, fn func(d Decoder) error) error

	// OptionalField reports whether the field was present in this
	// occurrence (from the ambiguity trace) and decodes it through fn when
	// it was.
	OptionalField(name string, fn func(d Decoder) error) (bool, error)
}

// Member describes the selected member of an untagged sum during decoding
type Member struct {
	// Index is the member's position in the union's member list
	Index int
	// Kind is the structural kind of the member's payload shape
	Kind shape.Kind
	// Name is the payload's type name when the payload is a struct or
	// enum, empty otherwise
	Name string
}
