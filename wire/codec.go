package wire

import "io"

// Codec is the underlying non-self-describing encoding. It only has to
// write and read primitives, length prefixes, and variant indices for
// statically tagged sums; everything above that is the schema layer's job.
type Codec interface {
	NewWriter(w io.Writer) Writer
	NewReader(r io.Reader) Reader
}

// Writer writes primitive values in the codec's native encoding. Errors
// are the codec's own; callers wrap them.
type Writer interface {
	Bool(v bool) error
	U8(v uint8) error
	U16(v uint16) error
	U32(v uint32) error
	U64(v uint64) error
	S8(v int8) error
	S16(v int16) error
	S32(v int32) error
	S64(v int64) error
	F32(v float32) error
	F64(v float64) error
	Char(v rune) error
	String(v string) error
	Bytes(v []byte) error

	// Len writes a sequence length prefix
	Len(n int) error
	// Variant writes the index of a statically tagged sum
	Variant(idx uint32) error
}

// Reader mirrors Writer
type Reader interface {
	Bool() (bool, error)
	U8() (uint8, error)
	U16() (uint16, error)
	U32() (uint32, error)
	U64() (uint64, error)
	S8() (int8, error)
	S16() (int16, error)
	S32() (int32, error)
	S64() (int64, error)
	F32() (float32, error)
	F64() (float64, error)
	Char() (rune, error)
	String() (string, error)
	Bytes() ([]byte, error)

	Len() (int, error)
	Variant() (uint32, error)
}
