package selfwire

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/wippyai/selfwire/errors"
	"github.com/wippyai/selfwire/wire"
)

func TestMarshalRoundTrip(t *testing.T) {
	vals := sampleRecords()
	data, err := Marshal(&vals)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var out recordList
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(vals, out) {
		t.Errorf("round trip mismatch:\n in:  %+v\n out: %+v", vals, out)
	}
}

func TestAllKindsRoundTrip(t *testing.T) {
	in := sampleAllKinds()
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	out := &allKinds{}
	if err := Unmarshal(data, out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch:\n in:  %+v\n out: %+v", in, out)
	}
}

func TestEmptyAndDegenerateValues(t *testing.T) {
	t.Run("empty sequence", func(t *testing.T) {
		vals := recordList{}
		data, err := Marshal(&vals)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		var out recordList
		if err := Unmarshal(data, &out); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if len(out) != 0 {
			t.Errorf("expected empty list, got %d elements", len(out))
		}
	})

	t.Run("unobserved inners", func(t *testing.T) {
		data, err := Marshal(unobservedInners{})
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if err := Unmarshal(data, unobservedInners{}); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
	})

	t.Run("zero-field struct", func(t *testing.T) {
		data, err := Marshal(emptyStruct{})
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if err := Unmarshal(data, emptyStruct{}); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
	})
}

func TestVersionSkew(t *testing.T) {
	t.Run("target gained a field", func(t *testing.T) {
		data, err := Marshal(&point{x: 1, y: 2})
		if err != nil {
			t.Fatal(err)
		}
		var out point3
		err = Unmarshal(data, &out)
		if !errors.HasKind(err, errors.KindTypeMismatch) {
			t.Errorf("expected type mismatch, got %v", err)
		}
	})

	t.Run("target lost a field", func(t *testing.T) {
		data, err := Marshal(&point3{x: 1, y: 2, z: 3})
		if err != nil {
			t.Fatal(err)
		}
		var out point
		err = Unmarshal(data, &out)
		if !errors.HasKind(err, errors.KindTypeMismatch) {
			t.Errorf("expected type mismatch, got %v", err)
		}
	})

	t.Run("target changed the element type", func(t *testing.T) {
		vals := modeList{{kind: 2, retries: 1}}
		data, err := Marshal(&vals)
		if err != nil {
			t.Fatal(err)
		}
		// recordList pulls a struct where the schema has a sequence of
		// enums
		var out recordList
		err = Unmarshal(data, &out)
		if !errors.HasKind(err, errors.KindTypeMismatch) {
			t.Errorf("expected type mismatch, got %v", err)
		}
	})
}

func TestSplitMode(t *testing.T) {
	env := New()
	vals := sampleRecords()

	schema, err := env.SchemaFor(&vals)
	if err != nil {
		t.Fatalf("SchemaFor failed: %v", err)
	}

	var buf bytes.Buffer
	if err := env.EncodeData(&buf, schema, &vals); err != nil {
		t.Fatalf("EncodeData failed: %v", err)
	}

	var out recordList
	if err := env.DecodeData(bytes.NewReader(buf.Bytes()), schema, &out); err != nil {
		t.Fatalf("DecodeData failed: %v", err)
	}
	if !reflect.DeepEqual(vals, out) {
		t.Errorf("split round trip mismatch:\n in:  %+v\n out: %+v", vals, out)
	}

	// the split stream must be the combined stream minus the schema bytes
	combined, err := Marshal(&vals)
	if err != nil {
		t.Fatal(err)
	}
	schemaBytes, err := schema.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(combined[len(schemaBytes):], buf.Bytes()) {
		t.Error("split stream diverges from the combined stream's tail")
	}
}

func TestEncodeDataRejectsForeignValue(t *testing.T) {
	env := New()
	schema, err := env.SchemaFor(&point{x: 1, y: 2})
	if err != nil {
		t.Fatal(err)
	}
	vals := sampleRecords()
	err = env.EncodeData(&bytes.Buffer{}, schema, &vals)
	if !errors.HasKind(err, errors.KindSchemaMismatch) {
		t.Errorf("expected schema mismatch, got %v", err)
	}
}

func TestSchemaBinaryRoundTrip(t *testing.T) {
	env := New()
	vals := sampleRecords()
	schema, err := env.SchemaFor(&vals)
	if err != nil {
		t.Fatal(err)
	}
	data, err := schema.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	var back Schema
	if err := back.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if !schema.Equal(&back) {
		t.Error("schema changed across binary round trip")
	}
}

func TestCBORCodecRoundTrip(t *testing.T) {
	env := New(WithCodec(wire.CBOR{}))
	vals := sampleRecords()

	var buf bytes.Buffer
	if err := env.Encode(&buf, &vals); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var out recordList
	if err := env.Decode(bytes.NewReader(buf.Bytes()), &out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(vals, out) {
		t.Errorf("CBOR round trip mismatch:\n in:  %+v\n out: %+v", vals, out)
	}
}

func TestTraceUnderflow(t *testing.T) {
	env := New()
	rec := record{id: 7, hasTags: true, tags: []scalarOrText{{num: 1}}}
	schema, err := env.SchemaFor(&rec)
	if err != nil {
		t.Fatal(err)
	}

	// split stream with an empty trace: the optional field has no
	// presence entry to consume
	var buf bytes.Buffer
	ww := wire.Binary{}.NewWriter(&buf)
	if err := wire.EncodeTrace(ww, nil); err != nil {
		t.Fatal(err)
	}
	if err := ww.U32(7); err != nil {
		t.Fatal(err)
	}

	var out record
	err = env.DecodeData(bytes.NewReader(buf.Bytes()), schema, &out)
	if !errors.HasKind(err, errors.KindTraceUnderflow) {
		t.Errorf("expected trace underflow, got %v", err)
	}
}

func TestTraceOverflow(t *testing.T) {
	env := New()
	schema, err := env.SchemaFor(&point{x: 1, y: 2})
	if err != nil {
		t.Fatal(err)
	}

	// a point needs no trace entries; a stream carrying one must be
	// rejected, not silently ignored
	var buf bytes.Buffer
	ww := wire.Binary{}.NewWriter(&buf)
	if err := wire.EncodeTrace(ww, []uint32{1}); err != nil {
		t.Fatal(err)
	}
	if err := ww.S32(1); err != nil {
		t.Fatal(err)
	}
	if err := ww.S32(2); err != nil {
		t.Fatal(err)
	}

	var out point
	err = env.DecodeData(bytes.NewReader(buf.Bytes()), schema, &out)
	if !errors.HasKind(err, errors.KindTraceOverflow) {
		t.Errorf("expected trace overflow, got %v", err)
	}
}

func TestTruncatedEnvelope(t *testing.T) {
	vals := sampleRecords()
	data, err := Marshal(&vals)
	if err != nil {
		t.Fatal(err)
	}
	for n := 0; n < len(data); n++ {
		var out recordList
		if err := Unmarshal(data[:n], &out); err == nil {
			t.Errorf("decoding a %d-byte prefix of a %d-byte envelope succeeded", n, len(data))
		}
	}
}

func FuzzUnmarshal(f *testing.F) {
	vals := sampleRecords()
	if data, err := Marshal(&vals); err == nil {
		f.Add(data)
	}
	if data, err := Marshal(&point{x: -3, y: 9}); err == nil {
		f.Add(data)
	}
	ak := sampleAllKinds()
	if data, err := Marshal(ak); err == nil {
		f.Add(data)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		var out recordList
		// errors are expected on corrupt input; panics are not
		_ = Unmarshal(data, &out)
	})
}

func BenchmarkMarshal(b *testing.B) {
	vals := sampleRecords()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Marshal(&vals); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUnmarshal(b *testing.B) {
	vals := sampleRecords()
	data, err := Marshal(&vals)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var out recordList
		if err := Unmarshal(data, &out); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkInfer(b *testing.B) {
	vals := sampleRecords()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, _, err := Infer(&vals); err != nil {
			b.Fatal(err)
		}
	}
}
