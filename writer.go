package selfwire

import (
	"github.com/wippyai/selfwire/errors"
	"github.com/wippyai/selfwire/shape"
	"github.com/wippyai/selfwire/wire"
)

// dataWriter is the byte-producing Encoder. It carries no schema state:
// the decomposition order fully determines the byte stream, and everything
// the bytes cannot express (union membership, optional field presence) was
// already captured in the trace by the schema builder.
type dataWriter struct {
	w        wire.Writer
	depth    int
	maxDepth int
}

func newDataWriter(w wire.Writer, maxDepth int) dataWriter {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return dataWriter{w: w, maxDepth: maxDepth}
}

func (dw dataWriter) child() (dataWriter, error) {
	if dw.depth+1 > dw.maxDepth {
		return dataWriter{}, errors.RecursionLimit(errors.PhaseEncode, dw.maxDepth)
	}
	return dataWriter{w: dw.w, depth: dw.depth + 1, maxDepth: dw.maxDepth}, nil
}

func (dw dataWriter) wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.Codec(errors.PhaseEncode, err)
}

// Unit occupies no bytes
func (dw dataWriter) Unit() error { return nil }

func (dw dataWriter) Bool(v bool) error       { return dw.wrap(dw.w.Bool(v)) }
func (dw dataWriter) Int8(v int8) error       { return dw.wrap(dw.w.S8(v)) }
func (dw dataWriter) Int16(v int16) error     { return dw.wrap(dw.w.S16(v)) }
func (dw dataWriter) Int32(v int32) error     { return dw.wrap(dw.w.S32(v)) }
func (dw dataWriter) Int64(v int64) error     { return dw.wrap(dw.w.S64(v)) }
func (dw dataWriter) Uint8(v uint8) error     { return dw.wrap(dw.w.U8(v)) }
func (dw dataWriter) Uint16(v uint16) error   { return dw.wrap(dw.w.U16(v)) }
func (dw dataWriter) Uint32(v uint32) error   { return dw.wrap(dw.w.U32(v)) }
func (dw dataWriter) Uint64(v uint64) error   { return dw.wrap(dw.w.U64(v)) }
func (dw dataWriter) Float32(v float32) error { return dw.wrap(dw.w.F32(v)) }
func (dw dataWriter) Float64(v float64) error { return dw.wrap(dw.w.F64(v)) }
func (dw dataWriter) Char(v rune) error       { return dw.wrap(dw.w.Char(v)) }
func (dw dataWriter) String(v string) error   { return dw.wrap(dw.w.String(v)) }
func (dw dataWriter) Bytes(v []byte) error    { return dw.wrap(dw.w.Bytes(v)) }

// Option is a statically tagged sum at the byte level
func (dw dataWriter) None() error { return dw.wrap(dw.w.Variant(0)) }

func (dw dataWriter) Some(fn func(Encoder) error) error {
	if err := dw.wrap(dw.w.Variant(1)); err != nil {
		return err
	}
	cw, err := dw.child()
	if err != nil {
		return err
	}
	return fn(cw)
}

func (dw dataWriter) Seq(n int, fn func(int, Encoder) error) error {
	if err := dw.wrap(dw.w.Len(n)); err != nil {
		return err
	}
	cw, err := dw.child()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := fn(i, cw); err != nil {
			return err
		}
	}
	return nil
}

func (dw dataWriter) Map(n int, key, value func(int, Encoder) error) error {
	if err := dw.wrap(dw.w.Len(n)); err != nil {
		return err
	}
	cw, err := dw.child()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := key(i, cw); err != nil {
			return err
		}
		if err := value(i, cw); err != nil {
			return err
		}
	}
	return nil
}

// Tuple arity is static, so no length prefix is written
func (dw dataWriter) Tuple(n int, fn func(int, Encoder) error) error {
	cw, err := dw.child()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := fn(i, cw); err != nil {
			return err
		}
	}
	return nil
}

func (dw dataWriter) Struct(name string, fn func(StructEncoder) error) error {
	cw, err := dw.child()
	if err != nil {
		return err
	}
	return fn(writerStruct{dw: cw})
}

func (dw dataWriter) Enum(name string, tagging Tagging, index uint32, variant string, payload func(Encoder) error) error {
	// untagged payloads are written bare: membership lives in the trace
	if tagging != shape.TagUntagged {
		if err := dw.wrap(dw.w.Variant(index)); err != nil {
			return err
		}
	}
	if payload == nil {
		return nil
	}
	cw, err := dw.child()
	if err != nil {
		return err
	}
	return payload(cw)
}

type writerStruct struct {
	dw dataWriter
}

func (ws writerStruct) Field(name string, fn func(Encoder) error) error {
	return fn(ws.dw)
}

// OptionalField writes nothing for an absent field; presence already
// lives in the trace
func (ws writerStruct) OptionalField(name string, present bool, fn func(Encoder) error) error {
	if !present {
		return nil
	}
	return fn(ws.dw)
}
