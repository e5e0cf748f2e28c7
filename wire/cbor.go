package wire

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"
)

// CBOR encodes every primitive as a standalone CBOR data item. CBOR is
// self-describing, which this layer does not need, but it satisfies the
// codec contract and makes envelopes readable by standard CBOR tooling.
// Mostly useful for debugging and for exercising codec pluggability.
type CBOR struct{}

func (CBOR) NewWriter(w io.Writer) Writer { return &cborWriter{enc: cbor.NewEncoder(w)} }
func (CBOR) NewReader(r io.Reader) Reader { return &cborReader{dec: cbor.NewDecoder(r)} }

type cborWriter struct {
	enc *cbor.Encoder
}

func (cw *cborWriter) Bool(v bool) error     { return cw.enc.Encode(v) }
func (cw *cborWriter) U8(v uint8) error      { return cw.enc.Encode(v) }
func (cw *cborWriter) U16(v uint16) error    { return cw.enc.Encode(v) }
func (cw *cborWriter) U32(v uint32) error    { return cw.enc.Encode(v) }
func (cw *cborWriter) U64(v uint64) error    { return cw.enc.Encode(v) }
func (cw *cborWriter) S8(v int8) error       { return cw.enc.Encode(v) }
func (cw *cborWriter) S16(v int16) error     { return cw.enc.Encode(v) }
func (cw *cborWriter) S32(v int32) error     { return cw.enc.Encode(v) }
func (cw *cborWriter) S64(v int64) error     { return cw.enc.Encode(v) }
func (cw *cborWriter) F32(v float32) error   { return cw.enc.Encode(v) }
func (cw *cborWriter) F64(v float64) error   { return cw.enc.Encode(v) }
func (cw *cborWriter) String(v string) error { return cw.enc.Encode(v) }
func (cw *cborWriter) Bytes(v []byte) error  { return cw.enc.Encode(v) }

func (cw *cborWriter) Char(v rune) error {
	if !utf8.ValidRune(v) {
		return fmt.Errorf("invalid rune %#x", v)
	}
	return cw.enc.Encode(uint32(v))
}

func (cw *cborWriter) Len(n int) error {
	if n < 0 {
		return fmt.Errorf("negative length %d", n)
	}
	return cw.enc.Encode(uint32(n))
}

func (cw *cborWriter) Variant(idx uint32) error { return cw.enc.Encode(idx) }

type cborReader struct {
	dec *cbor.Decoder
}

func decodeItem[T any](cr *cborReader) (T, error) {
	var v T
	err := cr.dec.Decode(&v)
	return v, err
}

func (cr *cborReader) Bool() (bool, error)     { return decodeItem[bool](cr) }
func (cr *cborReader) U8() (uint8, error)      { return decodeItem[uint8](cr) }
func (cr *cborReader) U16() (uint16, error)    { return decodeItem[uint16](cr) }
func (cr *cborReader) U32() (uint32, error)    { return decodeItem[uint32](cr) }
func (cr *cborReader) U64() (uint64, error)    { return decodeItem[uint64](cr) }
func (cr *cborReader) S8() (int8, error)       { return decodeItem[int8](cr) }
func (cr *cborReader) S16() (int16, error)     { return decodeItem[int16](cr) }
func (cr *cborReader) S32() (int32, error)     { return decodeItem[int32](cr) }
func (cr *cborReader) S64() (int64, error)     { return decodeItem[int64](cr) }
func (cr *cborReader) F32() (float32, error)   { return decodeItem[float32](cr) }
func (cr *cborReader) F64() (float64, error)   { return decodeItem[float64](cr) }
func (cr *cborReader) String() (string, error) { return decodeItem[string](cr) }
func (cr *cborReader) Bytes() ([]byte, error)  { return decodeItem[[]byte](cr) }

func (cr *cborReader) Char() (rune, error) {
	v, err := decodeItem[uint32](cr)
	if err != nil {
		return 0, err
	}
	r := rune(v)
	if !utf8.ValidRune(r) {
		return 0, fmt.Errorf("invalid rune %#x", v)
	}
	return r, nil
}

func (cr *cborReader) Len() (int, error) {
	v, err := decodeItem[uint32](cr)
	if err != nil {
		return 0, err
	}
	if v > MaxListLength {
		return 0, fmt.Errorf("length %d exceeds limit %d", v, MaxListLength)
	}
	return int(v), nil
}

func (cr *cborReader) Variant() (uint32, error) { return decodeItem[uint32](cr) }
