package transcoder

import (
	"math"
	"testing"

	"github.com/wippyai/wasm-component/component"
	"github.com/wippyai/wasm-component/errors"
	"github.com/wippyai/wasm-component/transcoder/internal/abi"
)

func TestReadString(t *testing.T) {
	mem := newMockMemory(128)
	copy(mem.data[0:], "héllo")
	copy(mem.data[8:], []byte{'a', 0, 0x00, 0xD8, 'b', 0})
	copy(mem.data[16:], []byte{'c', 'a', 'f', 0xE9})
	copy(mem.data[24:], []byte{0x2D, 0x4E, 'x', 0})
	copy(mem.data[32:], []byte{'a', 0xFF})

	tests := []struct {
		name   string
		enc    component.StringEncoding
		ptr    uint32
		length uint32
		want   string
	}{
		{"utf8", component.EncodingUTF8, 0, 6, "héllo"},
		{"utf16 lone surrogate", component.EncodingUTF16, 8, 6, "a�b"},
		{"latin1", component.EncodingLatin1UTF16, 16, 4, "café"},
		{"latin1 tagged utf16", component.EncodingLatin1UTF16, 24, 4 | abi.UTF16Tag, "中x"},
		{"empty", component.EncodingUTF8, 0, 0, ""},
		{"empty ignores alignment", component.EncodingUTF16, 3, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadString(mem, tt.enc, tt.ptr, tt.length)
			if err != nil {
				t.Fatalf("ReadString: %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadString = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadString_Errors(t *testing.T) {
	mem := newMockMemory(64)
	copy(mem.data[32:], []byte{'a', 0xFF})

	tests := []struct {
		name   string
		enc    component.StringEncoding
		ptr    uint32
		length uint32
		want   errors.Kind
	}{
		{"invalid utf8", component.EncodingUTF8, 32, 2, errors.KindInvalidUTF8},
		{"misaligned utf16", component.EncodingUTF16, 1, 2, errors.KindInvalidData},
		{"misaligned latin1", component.EncodingLatin1UTF16, 1, 2, errors.KindInvalidData},
		{"past memory", component.EncodingUTF8, 60, 10, errors.KindOutOfBounds},
		{"past address space", component.EncodingUTF8, 0xFFFFFFF0, 0x20, errors.KindOutOfBounds},
		{"utf16 past memory", component.EncodingUTF16, 60, 8, errors.KindOutOfBounds},
		{"utf16 odd byte length", component.EncodingUTF16, 0, 3, errors.KindInvalidData},
		{"tagged odd byte length", component.EncodingLatin1UTF16, 0, 3 | abi.UTF16Tag, errors.KindInvalidData},
		{"unknown encoding", component.StringEncoding(7), 0, 1, errors.KindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadString(mem, tt.enc, tt.ptr, tt.length)
			if !errors.Is(err, &errors.Error{Kind: tt.want}) {
				t.Errorf("ReadString: got %v, want %s", err, tt.want)
			}
		})
	}
}

func TestLiftChar(t *testing.T) {
	if r, err := liftChar('A'); err != nil || r != 'A' {
		t.Errorf("liftChar('A') = %U, %v", r, err)
	}
	if r, err := liftChar(0x10FFFF); err != nil || r != 0x10FFFF {
		t.Errorf("liftChar(max) = %U, %v", r, err)
	}
	for _, v := range []uint32{0xD800, 0xDFFF, 0x110000, 0xFFFFFFFF} {
		_, err := liftChar(v)
		if !errors.Is(err, &errors.Error{Phase: errors.PhaseLift, Kind: errors.KindInvalidData}) {
			t.Errorf("liftChar(%#x): got %v", v, err)
		}
	}
}

func TestStackLifter(t *testing.T) {
	tests := []struct {
		kind component.ValueKind
		flat []uint64
		want any
	}{
		{component.KindUnit, nil, nil},
		{component.KindBool, []uint64{2}, true},
		{component.KindBool, []uint64{1 << 32}, false},
		{component.KindS8, []uint64{0xFF}, int8(-1)},
		{component.KindU8, []uint64{0x1FF}, uint8(0xFF)},
		{component.KindS16, []uint64{0x8000}, int16(math.MinInt16)},
		{component.KindU16, []uint64{0xFFFF}, uint16(0xFFFF)},
		{component.KindS32, []uint64{0xFFFFFFFF}, int32(-1)},
		{component.KindU32, []uint64{0xFFFFFFFF}, uint32(math.MaxUint32)},
		{component.KindS64, []uint64{math.MaxUint64}, int64(-1)},
		{component.KindU64, []uint64{42}, uint64(42)},
		{component.KindF32, []uint64{uint64(math.Float32bits(2.5))}, float32(2.5)},
		{component.KindF64, []uint64{math.Float64bits(-0.25)}, -0.25},
		{component.KindChar, []uint64{0x1F600}, rune(0x1F600)},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			lift, err := NewStackLifter(tt.kind, nil)
			if err != nil {
				t.Fatalf("NewStackLifter: %v", err)
			}
			got, err := lift(tt.flat)
			if err != nil {
				t.Fatalf("lift: %v", err)
			}
			if got != tt.want {
				t.Errorf("lift(%x) = %#v, want %#v", tt.flat, got, tt.want)
			}
		})
	}

	t.Run("canonical NaN", func(t *testing.T) {
		lift, _ := NewStackLifter(component.KindF64, nil)
		got, _ := lift([]uint64{0x7ff0000000000001})
		if bits := math.Float64bits(got.(float64)); bits != abi.CanonicalNaN64 {
			t.Errorf("bits = %#x", bits)
		}
		lift32, _ := NewStackLifter(component.KindF32, nil)
		got, _ = lift32([]uint64{0xFFC00001})
		if bits := math.Float32bits(got.(float32)); bits != abi.CanonicalNaN32 {
			t.Errorf("bits = %#x", bits)
		}
	})

	t.Run("string requires memory", func(t *testing.T) {
		if _, err := NewStackLifter(component.KindString, nil); !errors.Is(err, &errors.Error{Kind: errors.KindConfig}) {
			t.Errorf("expected config error, got %v", err)
		}
	})

	t.Run("string", func(t *testing.T) {
		mem := newMockMemory(64)
		copy(mem.data[16:], "wasm")
		lift, err := NewStackLifter(component.KindString, &Options{Memory: mem})
		if err != nil {
			t.Fatal(err)
		}
		got, err := lift([]uint64{16, 4})
		if err != nil || got != "wasm" {
			t.Errorf("lift = %v, %v", got, err)
		}
	})
}

func TestMemLifter(t *testing.T) {
	if _, err := NewMemLifter(component.KindU32, nil); !errors.Is(err, &errors.Error{Kind: errors.KindConfig}) {
		t.Errorf("expected config error, got %v", err)
	}
	if _, err := NewMemLifter(component.KindUnit, nil); err != nil {
		t.Errorf("unit needs no memory: %v", err)
	}

	opts, mem, _ := newTestOptions(1024)
	opts.Encoding = component.EncodingUTF16

	kinds := []component.ValueKind{
		component.KindBool, component.KindS8, component.KindU16, component.KindChar,
		component.KindS64, component.KindF32, component.KindString,
	}
	values := []any{true, -2, 0xBEEF, "Z", -3, 0.5, "round trip"}
	want := []any{true, int8(-2), uint16(0xBEEF), 'Z', int64(-3), float32(0.5), "round trip"}
	offsets, _ := component.TupleLayout(kinds)

	for i, k := range kinds {
		lower, err := NewMemLowerer(k, opts)
		if err != nil {
			t.Fatalf("NewMemLowerer(%v): %v", k, err)
		}
		if err := lower(offsets[i], values[i]); err != nil {
			t.Fatalf("lower %v: %v", k, err)
		}
	}
	for i, k := range kinds {
		lift, err := NewMemLifter(k, opts)
		if err != nil {
			t.Fatalf("NewMemLifter(%v): %v", k, err)
		}
		got, err := lift(offsets[i])
		if err != nil {
			t.Fatalf("lift %v: %v", k, err)
		}
		if got != want[i] {
			t.Errorf("%v: got %#v, want %#v", k, got, want[i])
		}
	}

	t.Run("invalid char in memory", func(t *testing.T) {
		if err := mem.WriteU32(200, 0xD800); err != nil {
			t.Fatal(err)
		}
		lift, _ := NewMemLifter(component.KindChar, opts)
		if _, err := lift(200); !errors.Is(err, &errors.Error{Kind: errors.KindInvalidData}) {
			t.Errorf("expected invalid data, got %v", err)
		}
	})
}

func TestFieldAddr(t *testing.T) {
	if addr, err := FieldAddr(errors.PhaseLift, 16, 4); err != nil || addr != 20 {
		t.Errorf("FieldAddr(16, 4) = %d, %v", addr, err)
	}
	if addr, err := FieldAddr(errors.PhaseLift, math.MaxUint32-4, 4); err != nil || addr != math.MaxUint32 {
		t.Errorf("FieldAddr at the top of memory = %d, %v", addr, err)
	}
	_, err := FieldAddr(errors.PhaseLower, math.MaxUint32-3, 4)
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseLower, Kind: errors.KindOutOfBounds}) {
		t.Errorf("wrapped address: got %v", err)
	}
}
