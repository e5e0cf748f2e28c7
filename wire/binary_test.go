package wire

import (
	"bytes"
	"math"
	"testing"
)

func TestBinaryUnsignedRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 20, math.MaxUint32, math.MaxUint64}
	for _, v := range values {
		var buf bytes.Buffer
		w := Binary{}.NewWriter(&buf)
		if err := w.U64(v); err != nil {
			t.Fatalf("U64(%d): %v", v, err)
		}
		r := Binary{}.NewReader(&buf)
		got, err := r.U64()
		if err != nil {
			t.Fatalf("read U64(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d = %d", v, got)
		}
	}
}

func TestBinarySignedRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 63, -64, 64, -65, math.MaxInt64, math.MinInt64}
	for _, v := range values {
		var buf bytes.Buffer
		w := Binary{}.NewWriter(&buf)
		if err := w.S64(v); err != nil {
			t.Fatalf("S64(%d): %v", v, err)
		}
		r := Binary{}.NewReader(&buf)
		got, err := r.S64()
		if err != nil {
			t.Fatalf("read S64(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d = %d", v, got)
		}
	}
}

func TestZigzag(t *testing.T) {
	tests := []struct {
		in   int64
		want uint64
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{-2, 3},
		{2, 4},
		{math.MinInt64, math.MaxUint64},
	}
	for _, tt := range tests {
		if got := zigzag(tt.in); got != tt.want {
			t.Errorf("zigzag(%d) = %d, want %d", tt.in, got, tt.want)
		}
		if back := unzigzag(tt.want); back != tt.in {
			t.Errorf("unzigzag(%d) = %d, want %d", tt.want, back, tt.in)
		}
	}
}

func TestBinaryPrimitiveRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := Binary{}.NewWriter(&buf)

	if err := w.Bool(true); err != nil {
		t.Fatal(err)
	}
	if err := w.U8(200); err != nil {
		t.Fatal(err)
	}
	if err := w.S16(-1234); err != nil {
		t.Fatal(err)
	}
	if err := w.F32(1.5); err != nil {
		t.Fatal(err)
	}
	if err := w.F64(-2.25); err != nil {
		t.Fatal(err)
	}
	if err := w.Char('é'); err != nil {
		t.Fatal(err)
	}
	if err := w.String("hello, 世界"); err != nil {
		t.Fatal(err)
	}
	if err := w.Bytes([]byte{0, 255, 7}); err != nil {
		t.Fatal(err)
	}
	if err := w.Len(42); err != nil {
		t.Fatal(err)
	}
	if err := w.Variant(3); err != nil {
		t.Fatal(err)
	}

	r := Binary{}.NewReader(&buf)
	if v, err := r.Bool(); err != nil || v != true {
		t.Errorf("Bool = %v, %v", v, err)
	}
	if v, err := r.U8(); err != nil || v != 200 {
		t.Errorf("U8 = %v, %v", v, err)
	}
	if v, err := r.S16(); err != nil || v != -1234 {
		t.Errorf("S16 = %v, %v", v, err)
	}
	if v, err := r.F32(); err != nil || v != 1.5 {
		t.Errorf("F32 = %v, %v", v, err)
	}
	if v, err := r.F64(); err != nil || v != -2.25 {
		t.Errorf("F64 = %v, %v", v, err)
	}
	if v, err := r.Char(); err != nil || v != 'é' {
		t.Errorf("Char = %q, %v", v, err)
	}
	if v, err := r.String(); err != nil || v != "hello, 世界" {
		t.Errorf("String = %q, %v", v, err)
	}
	if v, err := r.Bytes(); err != nil || !bytes.Equal(v, []byte{0, 255, 7}) {
		t.Errorf("Bytes = %v, %v", v, err)
	}
	if v, err := r.Len(); err != nil || v != 42 {
		t.Errorf("Len = %v, %v", v, err)
	}
	if v, err := r.Variant(); err != nil || v != 3 {
		t.Errorf("Variant = %v, %v", v, err)
	}
}

func TestBinaryRejectsBadInput(t *testing.T) {
	t.Run("invalid bool byte", func(t *testing.T) {
		r := Binary{}.NewReader(bytes.NewReader([]byte{7}))
		if _, err := r.Bool(); err == nil {
			t.Error("expected error for bool byte 7")
		}
	})

	t.Run("leb128 overflow", func(t *testing.T) {
		r := Binary{}.NewReader(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}))
		if _, err := r.U32(); err == nil {
			t.Error("expected overflow error")
		}
	})

	t.Run("u8 range", func(t *testing.T) {
		var buf bytes.Buffer
		w := Binary{}.NewWriter(&buf)
		if err := w.U16(300); err != nil {
			t.Fatal(err)
		}
		r := Binary{}.NewReader(&buf)
		if _, err := r.U8(); err == nil {
			t.Error("expected overflow reading 300 as u8")
		}
	})

	t.Run("truncated string", func(t *testing.T) {
		r := Binary{}.NewReader(bytes.NewReader([]byte{10, 'a', 'b'}))
		if _, err := r.String(); err == nil {
			t.Error("expected error for truncated string")
		}
	})

	t.Run("oversized blob length", func(t *testing.T) {
		var buf bytes.Buffer
		w := Binary{}.NewWriter(&buf)
		if err := w.U32(MaxStringSize + 1); err != nil {
			t.Fatal(err)
		}
		r := Binary{}.NewReader(&buf)
		if _, err := r.Bytes(); err == nil {
			t.Error("expected error for oversized blob length")
		}
	})

	t.Run("invalid utf8 string", func(t *testing.T) {
		r := Binary{}.NewReader(bytes.NewReader([]byte{2, 0xff, 0xfe}))
		if _, err := r.String(); err == nil {
			t.Error("expected error for invalid UTF-8")
		}
	})
}

func TestCBORCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := CBOR{}.NewWriter(&buf)

	if err := w.S32(-7); err != nil {
		t.Fatal(err)
	}
	if err := w.String("cbor"); err != nil {
		t.Fatal(err)
	}
	if err := w.Len(2); err != nil {
		t.Fatal(err)
	}
	if err := w.Variant(1); err != nil {
		t.Fatal(err)
	}
	if err := w.F64(3.5); err != nil {
		t.Fatal(err)
	}

	r := CBOR{}.NewReader(&buf)
	if v, err := r.S32(); err != nil || v != -7 {
		t.Errorf("S32 = %v, %v", v, err)
	}
	if v, err := r.String(); err != nil || v != "cbor" {
		t.Errorf("String = %q, %v", v, err)
	}
	if v, err := r.Len(); err != nil || v != 2 {
		t.Errorf("Len = %v, %v", v, err)
	}
	if v, err := r.Variant(); err != nil || v != 1 {
		t.Errorf("Variant = %v, %v", v, err)
	}
	if v, err := r.F64(); err != nil || v != 3.5 {
		t.Errorf("F64 = %v, %v", v, err)
	}
}
