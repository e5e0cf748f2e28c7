package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseBuild  Phase = "build"  // schema inference from a value
	PhaseSchema Phase = "schema" // schema section encode/decode
	PhaseEncode Phase = "encode" // value data encoding
	PhaseDecode Phase = "decode" // schema-directed decoding
)

// Kind categorizes the error
type Kind string

const (
	KindUnsupported    Kind = "unsupported"
	KindShapeConflict  Kind = "shape_conflict"
	KindRecursionLimit Kind = "recursion_limit"
	KindMalformed      Kind = "malformed_schema"
	KindIDOutOfRange   Kind = "id_out_of_range"
	KindTraceUnderflow Kind = "trace_underflow"
	KindTraceOverflow  Kind = "trace_overflow"
	KindTypeMismatch   Kind = "type_mismatch"
	KindSchemaMismatch Kind = "schema_mismatch"
	KindOverflow       Kind = "overflow"
	KindCodec          Kind = "codec"
)

// Error is the structured error type used throughout the library
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error for a pull that does not
// match the schema node being walked
func TypeMismatch(path []string, want, got string) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindTypeMismatch,
		Path:   path,
		Detail: fmt.Sprintf("schema has %s, target asked for %s", want, got),
	}
}

// Malformed creates a malformed schema section error
func Malformed(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseSchema,
		Kind:   KindMalformed,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// IDOutOfRange creates an out of range shape id error
func IDOutOfRange(phase Phase, id, limit uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIDOutOfRange,
		Detail: fmt.Sprintf("shape id %d out of range (pool size %d)", id, limit),
	}
}

// RecursionLimit creates a depth limit error
func RecursionLimit(phase Phase, limit int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRecursionLimit,
		Detail: fmt.Sprintf("nesting exceeds depth limit %d", limit),
	}
}

// Codec wraps an error from the underlying codec
func Codec(phase Phase, cause error) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindCodec,
		Cause: cause,
	}
}

// HasKind reports whether err is (or wraps) a structured error of the
// given kind
func HasKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
