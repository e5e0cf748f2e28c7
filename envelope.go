package selfwire

import (
	"bytes"
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/selfwire/errors"
	"github.com/wippyai/selfwire/wire"
)

// Envelope pairs a codec with encode/decode limits. The zero configuration
// (New with no options) uses the default binary codec and limits.
//
// An Envelope is stateless and safe for concurrent use.
type Envelope struct {
	codec    wire.Codec
	maxDepth int
	log      *zap.Logger
}

// Option configures an Envelope
type Option func(*Envelope)

// WithCodec selects the underlying byte codec
func WithCodec(c wire.Codec) Option {
	return func(e *Envelope) { e.codec = c }
}

// WithMaxDepth bounds value nesting during inference, encoding and
// decoding
func WithMaxDepth(n int) Option {
	return func(e *Envelope) { e.maxDepth = n }
}

// WithLogger overrides the package logger for this envelope
func WithLogger(l *zap.Logger) Option {
	return func(e *Envelope) { e.log = l }
}

// New creates an Envelope
func New(opts ...Option) *Envelope {
	e := &Envelope{
		codec:    wire.Binary{},
		maxDepth: DefaultMaxDepth,
		log:      Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Envelope) infer(v Described) (*Schema, Trace, error) {
	b := NewSchemaBuilder(e.maxDepth)
	if err := b.Describe(v); err != nil {
		return nil, nil, err
	}
	return b.Finalize()
}

// Encode writes a self-describing envelope: schema section (pool, root,
// trace) followed by the value's data bytes, all through the envelope's
// codec
func (e *Envelope) Encode(w io.Writer, v Described) error {
	schema, trace, err := e.infer(v)
	if err != nil {
		return err
	}
	ww := e.codec.NewWriter(w)
	if err := wire.EncodeSchema(ww, schema.pool, schema.root, trace); err != nil {
		return err
	}
	e.log.Debug("wrote schema section",
		zap.Int("nodes", schema.pool.Len()),
		zap.Int("trace_entries", len(trace)))
	return v.DescribeValue(newDataWriter(ww, e.maxDepth))
}

// Decode reads an envelope written by Encode and reconstructs the value
func (e *Envelope) Decode(r io.Reader, v Described) error {
	rr := e.codec.NewReader(r)
	pool, root, trace, err := wire.DecodeSchema(rr)
	if err != nil {
		return err
	}
	e.log.Debug("read schema section",
		zap.Int("nodes", pool.Len()),
		zap.Int("trace_entries", len(trace)))
	return decodeValue(pool, root, rr, trace, e.maxDepth, v)
}

// SchemaFor infers the value's schema without encoding anything. In split
// mode the schema is stored or transmitted once and the per-value streams
// carry only trace and data.
func (e *Envelope) SchemaFor(v Described) (*Schema, error) {
	schema, _, err := e.infer(v)
	return schema, err
}

// EncodeData writes the split-mode per-value stream: trace section then
// data bytes, no schema. The value's shape is re-derived and checked
// against the supplied schema first, so a drifted value cannot silently
// produce bytes the schema misdescribes.
func (e *Envelope) EncodeData(w io.Writer, schema *Schema, v Described) error {
	derived, trace, err := e.infer(v)
	if err != nil {
		return err
	}
	if !derived.Equal(schema) {
		return errors.New(errors.PhaseEncode, errors.KindSchemaMismatch).
			Detail("value shape does not match the supplied schema").
			Build()
	}
	ww := e.codec.NewWriter(w)
	if err := wire.EncodeTrace(ww, trace); err != nil {
		return err
	}
	return v.DescribeValue(newDataWriter(ww, e.maxDepth))
}

// DecodeData reads a split-mode stream written by EncodeData against the
// same schema
func (e *Envelope) DecodeData(r io.Reader, schema *Schema, v Described) error {
	rr := e.codec.NewReader(r)
	trace, err := wire.DecodeTrace(rr)
	if err != nil {
		return err
	}
	return decodeValue(schema.pool, schema.root, rr, trace, e.maxDepth, v)
}

// Marshal encodes v into a self-describing envelope with the default
// configuration
func Marshal(v Described) ([]byte, error) {
	var buf bytes.Buffer
	if err := New().Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal reconstructs v from an envelope produced by Marshal
func Unmarshal(data []byte, v Described) error {
	return New().Decode(bytes.NewReader(data), v)
}
