package transcoder

import (
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/wippyai/wasm-component/errors"
	"github.com/wippyai/wasm-component/transcoder/internal/abi"
)

// UTF16 is a string given as raw UTF-16 code units. Unlike a Go string it
// can carry unpaired surrogates, which string lowering repairs.
type UTF16 []uint16

// String decodes u, replacing unpaired surrogates with U+FFFD.
func (u UTF16) String() string {
	return string(utf16.Decode(u))
}

var mask64 = new(big.Int).SetUint64(math.MaxUint64)

// ToInt8 reduces v modulo 2^8 and reinterprets it as signed: 129 becomes -127.
func ToInt8(v any) (int8, error) {
	bits, err := wrapBits(v, "s8")
	return int8(uint8(bits)), err
}

// ToUint8 reduces v modulo 2^8.
func ToUint8(v any) (uint8, error) {
	bits, err := wrapBits(v, "u8")
	return uint8(bits), err
}

// ToInt16 reduces v modulo 2^16 and reinterprets it as signed.
func ToInt16(v any) (int16, error) {
	bits, err := wrapBits(v, "s16")
	return int16(uint16(bits)), err
}

// ToUint16 reduces v modulo 2^16.
func ToUint16(v any) (uint16, error) {
	bits, err := wrapBits(v, "u16")
	return uint16(bits), err
}

// ToInt32 wraps v around 32 bits as a signed value.
func ToInt32(v any) (int32, error) {
	bits, err := wrapBits(v, "s32")
	return int32(uint32(bits)), err
}

// ToUint32 wraps v around 32 bits.
func ToUint32(v any) (uint32, error) {
	bits, err := wrapBits(v, "u32")
	return uint32(bits), err
}

// ToInt64 wraps an arbitrary-precision integer around 64 bits as a signed value.
// Floats must be integral and strings must hold an integer literal.
func ToInt64(v any) (int64, error) {
	bits, err := bigIntBits(v, "s64")
	return int64(bits), err
}

// ToUint64 wraps an arbitrary-precision integer around 64 bits.
func ToUint64(v any) (uint64, error) {
	return bigIntBits(v, "u64")
}

// ToFloat64 applies generic numeric coercion without range clamping.
func ToFloat64(v any) (float64, error) {
	return number(v, "f64")
}

// ToFloat32 applies generic numeric coercion and rounds to single precision.
func ToFloat32(v any) (float32, error) {
	f, err := number(v, "f32")
	return float32(f), err
}

// Truthy reports the boolean value of v: false, zero, NaN, the empty
// string and nil are false, everything else is true.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []byte:
		return len(x) != 0
	case UTF16:
		return len(x) != 0
	case float32:
		return x != 0 && x == x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case *big.Int:
		return x != nil && x.Sign() != 0
	case big.Int:
		return x.Sign() != 0
	}
	if bits, ok := intBits(v); ok {
		return bits != 0
	}
	return true
}

// ToCodeUnits converts v to the UTF-16 code units of its string form.
// Strings and byte slices are decoded as UTF-8 with invalid sequences
// replaced by U+FFFD. UTF16 values pass through unchanged. Numbers and
// booleans are formatted. Values with no string form are rejected.
func ToCodeUnits(v any) ([]uint16, error) {
	switch x := v.(type) {
	case string:
		return utf16.Encode([]rune(x)), nil
	case []byte:
		return utf16.Encode([]rune(string(x))), nil
	case UTF16:
		return x, nil
	case []uint16:
		return x, nil
	case bool:
		return utf16.Encode([]rune(strconv.FormatBool(x))), nil
	case float32:
		return utf16.Encode([]rune(formatFloat(float64(x), 32))), nil
	case float64:
		return utf16.Encode([]rune(formatFloat(x, 64))), nil
	case *big.Int:
		if x == nil {
			break
		}
		return utf16.Encode([]rune(x.String())), nil
	case big.Int:
		return utf16.Encode([]rune(x.String())), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, uintptr:
		return utf16.Encode([]rune(fmt.Sprint(x))), nil
	case fmt.Stringer:
		return utf16.Encode([]rune(x.String())), nil
	}
	return nil, errors.New(errors.PhaseLower, errors.KindTypeMismatch).
		GoType(abi.TypeName(v)).
		WitType("string").
		Detail("%s values have no string form", abi.TypeName(v)).
		Build()
}

// ToChar coerces v to a single Unicode code point. A rune is taken as is;
// any other value must have a string form of exactly one code point.
// Surrogate code points become U+FFFD.
func ToChar(v any) (rune, error) {
	if r, ok := v.(rune); ok {
		if r < 0 || r > 0x10FFFF {
			err := errors.InvalidData(errors.PhaseLower, nil, fmt.Sprintf("0x%X is not a Unicode code point", r))
			err.WitType = "char"
			err.Value = r
			return 0, err
		}
		if abi.IsSurrogate(r) {
			return 0xFFFD, nil
		}
		return r, nil
	}

	units, err := ToCodeUnits(v)
	if err != nil {
		return 0, err
	}

	var r rune
	n := 0
	switch {
	case len(units) == 0:
	case len(units) >= 2 && utf16.IsSurrogate(rune(units[0])) && units[0] < 0xDC00 &&
		units[1] >= 0xDC00 && units[1] < 0xE000:
		r, n = utf16.DecodeRune(rune(units[0]), rune(units[1])), 2
	default:
		r, n = rune(units[0]), 1
	}
	if n == 0 || n != len(units) {
		return 0, errors.New(errors.PhaseLower, errors.KindTypeMismatch).
			GoType(abi.TypeName(v)).
			WitType("char").
			Detail("expected a single character, found %q", UTF16(units).String()).
			Build()
	}
	if abi.IsSurrogate(r) {
		r = 0xFFFD
	}
	return r, nil
}

// intBits returns Go integers as their two's complement bit pattern.
func intBits(v any) (uint64, bool) {
	switch x := v.(type) {
	case int:
		return uint64(x), true
	case int8:
		return uint64(x), true
	case int16:
		return uint64(x), true
	case int32:
		return uint64(x), true
	case int64:
		return uint64(x), true
	case uint:
		return uint64(x), true
	case uint8:
		return uint64(x), true
	case uint16:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case uint64:
		return x, true
	case uintptr:
		return uint64(x), true
	}
	return 0, false
}

// wrapBits reduces v modulo 2^64. Floats follow ToInt semantics: NaN and
// infinities are zero, everything else is truncated toward zero.
func wrapBits(v any, wit string) (uint64, error) {
	if bits, ok := intBits(v); ok {
		return bits, nil
	}
	switch x := v.(type) {
	case nil:
		return 0, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case float32:
		return floatBits(float64(x)), nil
	case float64:
		return floatBits(x), nil
	case *big.Int:
		if x == nil {
			return 0, nil
		}
		return bigBits(x), nil
	case big.Int:
		return bigBits(&x), nil
	case string:
		return stringBits(x), nil
	case []byte:
		return stringBits(string(x)), nil
	case UTF16:
		return stringBits(x.String()), nil
	}
	return 0, errors.TypeMismatch(errors.PhaseLower, nil, abi.TypeName(v), wit)
}

// bigIntBits is the 64-bit counterpart of wrapBits. It refuses values that
// do not denote an integer instead of truncating them.
func bigIntBits(v any, wit string) (uint64, error) {
	switch x := v.(type) {
	case nil:
		return 0, errors.TypeMismatch(errors.PhaseLower, nil, "nil", wit)
	case float32:
		return integralBits(float64(x), wit)
	case float64:
		return integralBits(x, wit)
	case string:
		return integerStringBits(x, wit)
	case []byte:
		return integerStringBits(string(x), wit)
	case UTF16:
		return integerStringBits(x.String(), wit)
	}
	return wrapBits(v, wit)
}

func integralBits(f float64, wit string) (uint64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
		return 0, errors.New(errors.PhaseLower, errors.KindTypeMismatch).
			GoType("float64").
			WitType(wit).
			Value(f).
			Detail("%v is not an integer", f).
			Build()
	}
	return floatBits(f), nil
}

func integerStringBits(s, wit string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	i, ok := parseIntLiteral(s)
	if !ok {
		return 0, errors.New(errors.PhaseLower, errors.KindTypeMismatch).
			GoType("string").
			WitType(wit).
			Detail("%q is not an integer", s).
			Build()
	}
	return bigBits(i), nil
}

func floatBits(f float64) uint64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Trunc(f)
	if f >= -(1<<63) && f < 1<<63 {
		return uint64(int64(f))
	}
	i, _ := new(big.Float).SetFloat64(f).Int(nil)
	return bigBits(i)
}

func bigBits(i *big.Int) uint64 {
	return new(big.Int).And(i, mask64).Uint64()
}

// stringBits parses s as a number. Integer literals are reduced exactly;
// anything else goes through the float path.
func stringBits(s string) uint64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if i, ok := parseIntLiteral(s); ok {
		return bigBits(i)
	}
	return floatBits(parseNumber(s))
}

var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// parseIntLiteral parses a signed decimal integer or an unsigned 0x, 0o or
// 0b literal. Underscores and signed prefixed literals are rejected.
func parseIntLiteral(s string) (*big.Int, bool) {
	base := 10
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 10 {
			s = s[2:]
			if s[0] == '+' || s[0] == '-' {
				return nil, false
			}
		}
	}
	if strings.ContainsRune(s, '_') {
		return nil, false
	}
	return new(big.Int).SetString(s, base)
}

// parseNumber parses s as a number, yielding NaN when it is not one.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if i, ok := parseIntLiteral(s); ok {
		f, _ := new(big.Float).SetInt(i).Float64()
		return f
	}
	if !decimalLiteral.MatchString(s) {
		return math.NaN()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil || errors.Is(err, strconv.ErrRange) {
		return f
	}
	return math.NaN()
}

func number(v any, wit string) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case uintptr:
		return float64(x), nil
	case *big.Int:
		if x == nil {
			return 0, nil
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, nil
	case big.Int:
		f, _ := new(big.Float).SetInt(&x).Float64()
		return f, nil
	case string:
		return parseNumber(x), nil
	case []byte:
		return parseNumber(string(x)), nil
	case UTF16:
		return parseNumber(x.String()), nil
	}
	return 0, errors.TypeMismatch(errors.PhaseLower, nil, abi.TypeName(v), wit)
}

// formatFloat renders f the way ECMAScript Number::toString does.
func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, bitSize)
	}
	mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, bitSize), "e")
	return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}
