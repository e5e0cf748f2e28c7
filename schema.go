package selfwire

import (
	"bytes"

	"github.com/zeebo/blake3"

	"github.com/wippyai/selfwire/shape"
	"github.com/wippyai/selfwire/wire"
)

// Schema is a finalized shape pool with a designated root. It is
// immutable once built; in split mode it is stored or transmitted once
// and addressed by fingerprint.
type Schema struct {
	pool *shape.Pool
	root shape.ID
}

// NewSchema wraps an already-validated pool and root, typically one
// produced by decoding a schema section
func NewSchema(pool *shape.Pool, root shape.ID) *Schema {
	return &Schema{pool: pool, root: root}
}

// Pool returns the schema's shape pool
func (s *Schema) Pool() *shape.Pool { return s.pool }

// Root returns the root shape id
func (s *Schema) Root() shape.ID { return s.root }

// Display renders the schema in the compact display grammar, expanding
// each shape at its first mention and referring back by id afterwards
func (s *Schema) Display() (string, error) {
	return shape.Display(s.pool, s.root)
}

// Equal reports whether two schemas hold identical pools and roots
func (s *Schema) Equal(o *Schema) bool {
	return s.root == o.root && s.pool.Equal(o.pool)
}

// MarshalBinary encodes the schema (pool and root, no trace) with the
// default binary codec
func (s *Schema) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.EncodePool(wire.Binary{}.NewWriter(&buf), s.pool, s.root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes and validates a schema encoded by MarshalBinary
func (s *Schema) UnmarshalBinary(data []byte) error {
	pool, root, err := wire.DecodePool(wire.Binary{}.NewReader(bytes.NewReader(data)))
	if err != nil {
		return err
	}
	s.pool, s.root = pool, root
	return nil
}

// Fingerprint returns the blake3 hash of the encoded schema. Structurally
// identical schemas always fingerprint identically, so the fingerprint
// works as a storage key in split mode.
func (s *Schema) Fingerprint() ([32]byte, error) {
	data, err := s.MarshalBinary()
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(data), nil
}

// Trace is the ambiguity trace of one encoded value: one entry per
// untagged enum occurrence (the member index in the union's final member
// list) and per optional struct field occurrence (1 present, 0 absent),
// in traversal order. Everything else the schema resolves statically.
type Trace []uint32
