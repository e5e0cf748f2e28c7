package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// Safety limits applied while reading untrusted input.
const (
	// MaxStringSize bounds a single string or byte blob (16 MB)
	MaxStringSize = 16 << 20
	// MaxListLength bounds a single length prefix (1M elements)
	MaxListLength = 1 << 20
)

// ErrOverflow is returned when a LEB128 value exceeds the maximum size.
var ErrOverflow = errors.New("leb128: overflow")

// Binary is the default codec: unsigned LEB128 integers, zigzag LEB128
// signed integers, fixed little-endian floats, length-prefixed UTF-8
// strings. Lengths and variant indices are LEB128 u32.
type Binary struct{}

func (Binary) NewWriter(w io.Writer) Writer { return &binaryWriter{w: w} }
func (Binary) NewReader(r io.Reader) Reader { return newBinaryReader(r) }

type binaryWriter struct {
	w       io.Writer
	scratch [10]byte
}

func (bw *binaryWriter) write(p []byte) error {
	_, err := bw.w.Write(p)
	return err
}

func (bw *binaryWriter) writeUvarint(v uint64) error {
	n := 0
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		bw.scratch[n] = b
		n++
		if v == 0 {
			break
		}
	}
	return bw.write(bw.scratch[:n])
}

func (bw *binaryWriter) Bool(v bool) error {
	b := byte(0)
	if v {
		b = 1
	}
	bw.scratch[0] = b
	return bw.write(bw.scratch[:1])
}

func (bw *binaryWriter) U8(v uint8) error   { return bw.writeUvarint(uint64(v)) }
func (bw *binaryWriter) U16(v uint16) error { return bw.writeUvarint(uint64(v)) }
func (bw *binaryWriter) U32(v uint32) error { return bw.writeUvarint(uint64(v)) }
func (bw *binaryWriter) U64(v uint64) error { return bw.writeUvarint(v) }

func (bw *binaryWriter) S8(v int8) error   { return bw.writeUvarint(zigzag(int64(v))) }
func (bw *binaryWriter) S16(v int16) error { return bw.writeUvarint(zigzag(int64(v))) }
func (bw *binaryWriter) S32(v int32) error { return bw.writeUvarint(zigzag(int64(v))) }
func (bw *binaryWriter) S64(v int64) error { return bw.writeUvarint(zigzag(v)) }

func (bw *binaryWriter) F32(v float32) error {
	binary.LittleEndian.PutUint32(bw.scratch[:4], math.Float32bits(v))
	return bw.write(bw.scratch[:4])
}

func (bw *binaryWriter) F64(v float64) error {
	binary.LittleEndian.PutUint64(bw.scratch[:8], math.Float64bits(v))
	return bw.write(bw.scratch[:8])
}

func (bw *binaryWriter) Char(v rune) error {
	if !utf8.ValidRune(v) {
		return fmt.Errorf("invalid rune %#x", v)
	}
	return bw.writeUvarint(uint64(uint32(v)))
}

func (bw *binaryWriter) String(v string) error {
	if err := bw.writeUvarint(uint64(len(v))); err != nil {
		return err
	}
	return bw.write([]byte(v))
}

func (bw *binaryWriter) Bytes(v []byte) error {
	if err := bw.writeUvarint(uint64(len(v))); err != nil {
		return err
	}
	return bw.write(v)
}

func (bw *binaryWriter) Len(n int) error {
	if n < 0 {
		return fmt.Errorf("negative length %d", n)
	}
	return bw.writeUvarint(uint64(n))
}

func (bw *binaryWriter) Variant(idx uint32) error { return bw.writeUvarint(uint64(idx)) }

type binaryReader struct {
	r   io.ByteReader
	pos int
}

func newBinaryReader(r io.Reader) *binaryReader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &binaryReader{r: br}
}

func (br *binaryReader) readByte() (byte, error) {
	b, err := br.r.ReadByte()
	if err != nil {
		return 0, err
	}
	br.pos++
	return b, nil
}

func (br *binaryReader) readBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		b, err := br.readByte()
		if err != nil {
			return nil, err
		}
		buf[i] = b
	}
	return buf, nil
}

func (br *binaryReader) readUvarint(maxShift uint) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := br.readByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= maxShift {
			return 0, br.wrapError(ErrOverflow)
		}
	}
}

func (br *binaryReader) Bool() (bool, error) {
	b, err := br.readByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, br.wrapError(fmt.Errorf("invalid bool byte %#x", b))
}

func (br *binaryReader) U8() (uint8, error) {
	v, err := br.readUvarint(14)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint8 {
		return 0, br.wrapError(ErrOverflow)
	}
	return uint8(v), nil
}

func (br *binaryReader) U16() (uint16, error) {
	v, err := br.readUvarint(21)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint16 {
		return 0, br.wrapError(ErrOverflow)
	}
	return uint16(v), nil
}

func (br *binaryReader) U32() (uint32, error) {
	v, err := br.readUvarint(35)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, br.wrapError(ErrOverflow)
	}
	return uint32(v), nil
}

func (br *binaryReader) U64() (uint64, error) {
	return br.readUvarint(70)
}

func (br *binaryReader) S8() (int8, error) {
	v, err := br.S64()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt8 || v > math.MaxInt8 {
		return 0, br.wrapError(ErrOverflow)
	}
	return int8(v), nil
}

func (br *binaryReader) S16() (int16, error) {
	v, err := br.S64()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt16 || v > math.MaxInt16 {
		return 0, br.wrapError(ErrOverflow)
	}
	return int16(v), nil
}

func (br *binaryReader) S32() (int32, error) {
	v, err := br.S64()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, br.wrapError(ErrOverflow)
	}
	return int32(v), nil
}

func (br *binaryReader) S64() (int64, error) {
	v, err := br.readUvarint(70)
	if err != nil {
		return 0, err
	}
	return unzigzag(v), nil
}

func (br *binaryReader) F32() (float32, error) {
	buf, err := br.readBytes(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf)), nil
}

func (br *binaryReader) F64() (float64, error) {
	buf, err := br.readBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf)), nil
}

func (br *binaryReader) Char() (rune, error) {
	v, err := br.U32()
	if err != nil {
		return 0, err
	}
	r := rune(v)
	if !utf8.ValidRune(r) {
		return 0, br.wrapError(fmt.Errorf("invalid rune %#x", v))
	}
	return r, nil
}

func (br *binaryReader) String() (string, error) {
	data, err := br.blob()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", br.wrapError(errors.New("invalid UTF-8 in string"))
	}
	return string(data), nil
}

func (br *binaryReader) Bytes() ([]byte, error) {
	return br.blob()
}

func (br *binaryReader) blob() ([]byte, error) {
	length, err := br.U32()
	if err != nil {
		return nil, err
	}
	if length > MaxStringSize {
		return nil, br.wrapError(fmt.Errorf("blob length %d exceeds limit %d", length, MaxStringSize))
	}
	return br.readBytes(int(length))
}

func (br *binaryReader) Len() (int, error) {
	v, err := br.U32()
	if err != nil {
		return 0, err
	}
	if v > MaxListLength {
		return 0, br.wrapError(fmt.Errorf("length %d exceeds limit %d", v, MaxListLength))
	}
	return int(v), nil
}

func (br *binaryReader) Variant() (uint32, error) { return br.U32() }

func (br *binaryReader) wrapError(err error) error {
	return fmt.Errorf("at position %d: %w", br.pos, err)
}

func zigzag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func unzigzag(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}
