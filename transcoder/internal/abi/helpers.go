package abi

import (
	"math"
	"reflect"
)

// MaxStringByteLength is the largest byte length a lowered string may occupy
const MaxStringByteLength = 1<<31 - 1

// UTF16Tag marks a latin1+utf16 byte length as UTF-16 data when lifting
const UTF16Tag = 1 << 31

const (
	CanonicalNaN32 = 0x7fc00000
	CanonicalNaN64 = 0x7ff8000000000000
)

// SafeMulU32 multiplies a and b, reporting overflow.
func SafeMulU32(a, b uint32) (uint32, bool) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, false
	}
	return a * b, true
}

// SafeAddU32 adds a and b, reporting overflow.
func SafeAddU32(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}

// TypeName returns "nil" for nil values, avoiding reflect.TypeOf(nil) panic.
func TypeName(value any) string {
	if value == nil {
		return "nil"
	}
	return reflect.TypeOf(value).String()
}

// Aligned reports whether ptr is a multiple of align.
func Aligned(ptr, align uint32) bool {
	return align <= 1 || ptr&(align-1) == 0
}

// CanonicalizeF32 returns canonical NaN for any NaN input.
func CanonicalizeF32(bits uint32) uint32 {
	f := math.Float32frombits(bits)
	if f != f {
		return CanonicalNaN32
	}
	return bits
}

// CanonicalizeF64 returns canonical NaN for any NaN input.
func CanonicalizeF64(bits uint64) uint64 {
	f := math.Float64frombits(bits)
	if f != f {
		return CanonicalNaN64
	}
	return bits
}

// IsSurrogate reports whether r lies in 0xD800-0xDFFF.
func IsSurrogate(r rune) bool {
	return r >= 0xD800 && r <= 0xDFFF
}

// ValidateChar rejects surrogates and values >= 0x110000.
func ValidateChar(r rune) bool {
	if IsSurrogate(r) {
		return false
	}
	return r >= 0 && r < 0x110000
}

// RepairSurrogates returns units with every unpaired surrogate replaced by
// U+FFFD. Well-formed input is returned as is.
func RepairSurrogates(units []uint16) []uint16 {
	var out []uint16
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u >= 0xD800 && u < 0xDC00:
			if i+1 < len(units) && units[i+1] >= 0xDC00 && units[i+1] < 0xE000 {
				i++
				continue
			}
		case u >= 0xDC00 && u < 0xE000:
		default:
			continue
		}
		if out == nil {
			out = make([]uint16, len(units))
			copy(out, units)
		}
		out[i] = 0xFFFD
	}
	if out == nil {
		return units
	}
	return out
}
