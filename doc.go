// Package selfwire layers a self-describing envelope over non-self-describing
// binary codecs.
//
// Compact binary codecs keep no type information in the byte stream: the
// bytes of a struct are just its field payloads concatenated, and decoding
// requires the exact type the bytes were produced from. selfwire recovers
// self-description without giving up the compact encoding by deriving a
// schema from the value itself and shipping it alongside the payload.
//
// # Architecture Overview
//
// The library is organized into focused packages:
//
//	selfwire/            Root package: Described capability, schema builder,
//	                     data writer, decode driver, envelope API
//	├── shape/           Shape node model, interning pool and display grammar
//	├── wire/            Codec contract, default LEB128 binary codec, CBOR
//	                     codec, and the self-hosting schema section codec
//	├── errors/          Structured error types for debugging
//	└── cmd/inspect/     Envelope inspection tool
//
// # Quick Start
//
// A type opts in by implementing Described: DescribeValue decomposes the
// value through an Encoder, BuildValue reconstructs it from a Decoder.
//
//	type Point struct{ X, Y int32 }
//
//	func (p *Point) DescribeValue(e selfwire.Encoder) error {
//	    return e.Struct("Point", func(s selfwire.StructEncoder) error {
//	        if err := s.Field("x", func(e selfwire.Encoder) error { return e.Int32(p.X) }); err != nil {
//	            return err
//	        }
//	        return s.Field("y", func(e selfwire.Encoder) error { return e.Int32(p.Y) })
//	    })
//	}
//
//	func (p *Point) BuildValue(d selfwire.Decoder) error {
//	    return d.Struct("Point", func(s selfwire.StructDecoder) error {
//	        if err := s.Field("x", func(d selfwire.Decoder) error { var err error; p.X, err = d.Int32(); return err }); err != nil {
//	            return err
//	        }
//	        return s.Field("y", func(d selfwire.Decoder) error { var err error; p.Y, err = d.Int32(); return err })
//	    })
//	}
//
// Encode and decode a self-describing envelope:
//
//	data, err := selfwire.Marshal(&pt)
//	err = selfwire.Unmarshal(data, &out)
//
// # Combined and Split Modes
//
// Marshal writes schema, ambiguity trace and data in one stream. When many
// values share one shape, the schema can be stored once (keyed by its
// fingerprint) and the per-value streams carry only trace and data:
//
//	env := selfwire.New()
//	schema, err := env.SchemaFor(&v)
//	err = env.EncodeData(&buf, schema, &v)
//	err = env.DecodeData(&buf, schema, &out)
//
// # Ambiguity Trace
//
// Two constructs are invisible to a non-self-describing codec: which member
// of an untagged union a value took, and whether an optional struct field
// was present. The envelope records exactly those decisions in a side
// channel, one integer per occurrence in traversal order; everything else
// is resolved statically by the schema.
//
// # Thread Safety
//
// Envelope and Schema are immutable after construction and safe for
// concurrent use. SchemaBuilder is not thread-safe; use one per goroutine.
package selfwire
