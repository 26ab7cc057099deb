package transcoder

import (
	"math"
	"math/big"
	"testing"

	"github.com/wippyai/wasm-component/errors"
)

type stringer struct{ s string }

func (s stringer) String() string { return s.s }

func TestToInt8(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int8
	}{
		{"129", 129, -127},
		{"255", 255, -1},
		{"256", 256, 0},
		{"-129", -129, 127},
		{"int64 -1", int64(-1), -1},
		{"uint64 max", uint64(math.MaxUint64), -1},
		{"positive float", 3.9, 3},
		{"negative float", -3.9, -3},
		{"NaN", math.NaN(), 0},
		{"infinity", math.Inf(1), 0},
		{"huge float", 1e20, 0},
		{"numeric string", "129", -127},
		{"float string", "1e3", -24},
		{"hex string", "0x81", -127},
		{"empty string", "", 0},
		{"garbage string", "abc", 0},
		{"true", true, 1},
		{"nil", nil, 0},
		{"big", new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 70), big.NewInt(129)), -127},
		{"negative big", big.NewInt(-1), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToInt8(tt.in)
			if err != nil {
				t.Fatalf("ToInt8(%v): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ToInt8(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestSmallIntegerCongruence(t *testing.T) {
	for n := -70000; n <= 70000; n += 7 {
		i8, _ := ToInt8(n)
		if (int(i8)-n)%256 != 0 || i8 < -128 || i8 > 127 {
			t.Fatalf("ToInt8(%d) = %d", n, i8)
		}
		u8, _ := ToUint8(n)
		if (int(u8)-n)%256 != 0 {
			t.Fatalf("ToUint8(%d) = %d", n, u8)
		}
		i16, _ := ToInt16(n)
		if (int(i16)-n)%65536 != 0 || i16 < -32768 || i16 > 32767 {
			t.Fatalf("ToInt16(%d) = %d", n, i16)
		}
		u16, _ := ToUint16(n)
		if (int(u16)-n)%65536 != 0 {
			t.Fatalf("ToUint16(%d) = %d", n, u16)
		}
	}
}

func TestToInt32(t *testing.T) {
	tests := []struct {
		in     any
		signed int32
		uns    uint32
	}{
		{int64(1) << 31, math.MinInt32, 1 << 31},
		{-1, -1, math.MaxUint32},
		{4294967296.5, 0, 0},
		{-2147483649.0, math.MaxInt32, math.MaxInt32},
		{"4294967297", 1, 1},
		{uint16(40000), 40000, 40000},
		{"010", 10, 10},
		{"0b101", 5, 5},
		{"0o17", 15, 15},
		{" 12.9 ", 12, 12},
		{"1_000", 0, 0},
		{"-0x10", 0, 0},
		{"0x", 0, 0},
	}
	for _, tt := range tests {
		s, err := ToInt32(tt.in)
		if err != nil || s != tt.signed {
			t.Errorf("ToInt32(%v) = %d, %v; want %d", tt.in, s, err, tt.signed)
		}
		u, err := ToUint32(tt.in)
		if err != nil || u != tt.uns {
			t.Errorf("ToUint32(%v) = %d, %v; want %d", tt.in, u, err, tt.uns)
		}
	}
}

func TestToInt64(t *testing.T) {
	huge := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(5))

	tests := []struct {
		name    string
		in      any
		signed  int64
		uns     uint64
		wantErr bool
	}{
		{name: "big above 2^64", in: huge, signed: 5, uns: 5},
		{name: "minus one", in: -1, signed: -1, uns: math.MaxUint64},
		{name: "uint64 max", in: uint64(math.MaxUint64), signed: -1, uns: math.MaxUint64},
		{name: "integral float", in: float64(1 << 53), signed: 1 << 53, uns: 1 << 53},
		{name: "decimal string", in: "-2", signed: -2, uns: math.MaxUint64 - 1},
		{name: "string above 2^64", in: "18446744073709551621", signed: 5, uns: 5},
		{name: "hex string", in: "0x10", signed: 16, uns: 16},
		{name: "leading zero is decimal", in: "010", signed: 10, uns: 10},
		{name: "underscore separator", in: "1_000", wantErr: true},
		{name: "signed hex", in: "-0x10", wantErr: true},
		{name: "bool", in: true, signed: 1, uns: 1},
		{name: "fractional float", in: 1.5, wantErr: true},
		{name: "NaN", in: math.NaN(), wantErr: true},
		{name: "non-numeric string", in: "abc", wantErr: true},
		{name: "nil", in: nil, wantErr: true},
		{name: "struct", in: struct{}{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ToInt64(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ToInt64(%v) = %d, want error", tt.in, s)
				}
				if !errors.Is(err, &errors.Error{Kind: errors.KindTypeMismatch}) {
					t.Errorf("expected type mismatch, got %v", err)
				}
				return
			}
			if err != nil || s != tt.signed {
				t.Errorf("ToInt64(%v) = %d, %v; want %d", tt.in, s, err, tt.signed)
			}
			u, err := ToUint64(tt.in)
			if err != nil || u != tt.uns {
				t.Errorf("ToUint64(%v) = %d, %v; want %d", tt.in, u, err, tt.uns)
			}
		})
	}
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{1.5, 1.5},
		{"2.25", 2.25},
		{" 8 ", 8},
		{"", 0},
		{true, 1},
		{nil, 0},
		{int64(-3), -3},
		{uint64(1) << 60, 1 << 60},
		{big.NewInt(12), 12},
		{"Infinity", math.Inf(1)},
		{"1e400", math.Inf(1)},
		{"010", 10},
		{"0x10", 16},
		{"-.5e1", -5},
	}
	for _, tt := range tests {
		got, err := ToFloat64(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ToFloat64(%v) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}

	for _, in := range []string{"abc", "1_000", "-0x10", "inf", "nan", "0x1p-2", "1e"} {
		if f, _ := ToFloat64(in); !math.IsNaN(f) {
			t.Errorf("ToFloat64(%q) = %v, want NaN", in, f)
		}
	}
	if f, _ := ToFloat32(0.1); f != float32(0.1) {
		t.Errorf("ToFloat32(0.1) = %v", f)
	}
	if _, err := ToFloat64(map[string]int{}); err == nil {
		t.Error("map should not coerce to a number")
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{0, false},
		{int8(-1), true},
		{uint64(0), false},
		{0.0, false},
		{math.NaN(), false},
		{float32(0.5), true},
		{"", false},
		{"false", true},
		{[]byte{}, false},
		{UTF16{}, false},
		{big.NewInt(0), false},
		{big.NewInt(3), true},
		{struct{}{}, true},
		{map[string]int{}, true},
	}
	for _, tt := range tests {
		if got := Truthy(tt.in); got != tt.want {
			t.Errorf("Truthy(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestToCodeUnits(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"ascii", "hello", "hello"},
		{"bytes", []byte("hi"), "hi"},
		{"invalid utf-8", []byte{'a', 0xff}, "a�"},
		{"bool", false, "false"},
		{"int", 42, "42"},
		{"negative int", int64(-7), "-7"},
		{"float", 1.5, "1.5"},
		{"integral float", 123456789.0, "123456789"},
		{"small float", 1e-6, "0.000001"},
		{"tiny float", 1e-7, "1e-7"},
		{"large float", 1e21, "1e+21"},
		{"below exponent form", 1e20, "100000000000000000000"},
		{"NaN", math.NaN(), "NaN"},
		{"infinity", math.Inf(-1), "-Infinity"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"float32", float32(1.1), "1.1"},
		{"big", big.NewInt(-99), "-99"},
		{"stringer", stringer{"custom"}, "custom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units, err := ToCodeUnits(tt.in)
			if err != nil {
				t.Fatalf("ToCodeUnits: %v", err)
			}
			if got := UTF16(units).String(); got != tt.want {
				t.Errorf("ToCodeUnits(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	t.Run("utf16 passthrough", func(t *testing.T) {
		in := UTF16{'a', 0xD800}
		units, err := ToCodeUnits(in)
		if err != nil {
			t.Fatalf("ToCodeUnits: %v", err)
		}
		if len(units) != 2 || units[1] != 0xD800 {
			t.Errorf("lone surrogate must pass through, got %x", units)
		}
	})

	t.Run("surrogate pair", func(t *testing.T) {
		units, _ := ToCodeUnits("😀")
		if len(units) != 2 || units[0] != 0xD83D || units[1] != 0xDE00 {
			t.Errorf("got %x", units)
		}
	})

	rejected := []any{nil, struct{}{}, map[string]int{}, func() {}, make(chan int), new(int), []int{1}}
	for _, in := range rejected {
		_, err := ToCodeUnits(in)
		if !errors.Is(err, &errors.Error{Phase: errors.PhaseLower, Kind: errors.KindTypeMismatch}) {
			t.Errorf("ToCodeUnits(%T) = %v, want type mismatch", in, err)
		}
	}
}

func TestToChar(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    rune
		wantErr bool
	}{
		{name: "rune", in: 'A', want: 'A'},
		{name: "single char string", in: "A", want: 'A'},
		{name: "latin-1", in: "é", want: 'é'},
		{name: "astral", in: "😀", want: 0x1F600},
		{name: "digit from int", in: 7, want: '7'},
		{name: "lone surrogate units", in: UTF16{0xD800}, want: 0xFFFD},
		{name: "surrogate rune", in: rune(0xDC00), want: 0xFFFD},
		{name: "empty", in: "", wantErr: true},
		{name: "two chars", in: "ab", wantErr: true},
		{name: "char and surrogate", in: UTF16{'a', 0xDC00}, wantErr: true},
		{name: "negative rune", in: rune(-1), wantErr: true},
		{name: "rune above range", in: rune(0x110000), wantErr: true},
		{name: "nil", in: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToChar(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ToChar(%v) = %U, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ToChar(%v): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ToChar(%v) = %U, want %U", tt.in, got, tt.want)
			}
		})
	}
}
