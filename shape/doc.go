// Package shape defines the structural shape model: the closed set of node
// kinds describing a value's layout, and the Pool interning table that
// deduplicates structurally identical sub-shapes into small integer ids.
//
// A shape describes structure only, never content. The model is closed and
// finite, which is what lets the schema section encode itself through the
// underlying codec without needing a schema of its own.
//
// # Node kinds
//
//	Unit Bool Int Float Char String Bytes     leaves
//	Option Seq Map Tuple                      containers
//	Struct                                    named fields, some optional
//	Enum                                      tagged or untagged sum
//
// # Interning
//
// Pool assigns ids in intern order. A builder interning bottom-up
// (children before parents) therefore produces a pool where every node
// references only smaller ids; the schema codec rejects anything else.
package shape
