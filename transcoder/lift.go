package transcoder

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/tetratelabs/wazero/api"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/wippyai/wasm-component/component"
	"github.com/wippyai/wasm-component/errors"
	"github.com/wippyai/wasm-component/transcoder/internal/abi"
)

// StackLifter converts the flat core values of one value into a Go value.
// flat holds exactly component.FlatCount(kind) values.
type StackLifter func(flat []uint64) (any, error)

// MemLifter reads one value stored at ptr.
type MemLifter func(ptr uint32) (any, error)

// NewStackLifter returns the lifter for kind. Strings need a memory option.
//
// Lifted Go types: bool, int8, uint8, int16, uint16, int32, uint32, int64,
// uint64, float32, float64, rune for char, string, and nil for unit.
func NewStackLifter(kind component.ValueKind, opts *Options) (StackLifter, error) {
	switch kind {
	case component.KindUnit:
		return func([]uint64) (any, error) { return nil, nil }, nil
	case component.KindBool:
		return func(flat []uint64) (any, error) { return uint32(flat[0]) != 0, nil }, nil
	case component.KindS8:
		return func(flat []uint64) (any, error) { return int8(flat[0]), nil }, nil
	case component.KindU8:
		return func(flat []uint64) (any, error) { return uint8(flat[0]), nil }, nil
	case component.KindS16:
		return func(flat []uint64) (any, error) { return int16(flat[0]), nil }, nil
	case component.KindU16:
		return func(flat []uint64) (any, error) { return uint16(flat[0]), nil }, nil
	case component.KindS32:
		return func(flat []uint64) (any, error) { return api.DecodeI32(flat[0]), nil }, nil
	case component.KindU32:
		return func(flat []uint64) (any, error) { return api.DecodeU32(flat[0]), nil }, nil
	case component.KindS64:
		return func(flat []uint64) (any, error) { return int64(flat[0]), nil }, nil
	case component.KindU64:
		return func(flat []uint64) (any, error) { return flat[0], nil }, nil
	case component.KindF32:
		return func(flat []uint64) (any, error) {
			return math.Float32frombits(abi.CanonicalizeF32(uint32(flat[0]))), nil
		}, nil
	case component.KindF64:
		return func(flat []uint64) (any, error) {
			return math.Float64frombits(abi.CanonicalizeF64(flat[0])), nil
		}, nil
	case component.KindChar:
		return func(flat []uint64) (any, error) { return liftChar(uint32(flat[0])) }, nil
	case component.KindString:
		if err := opts.requireMemory("lifting a string"); err != nil {
			return nil, err
		}
		mem, enc := opts.Memory, opts.Encoding
		return func(flat []uint64) (any, error) {
			return ReadString(mem, enc, uint32(flat[0]), uint32(flat[1]))
		}, nil
	default:
		return nil, errors.Unsupported(errors.PhaseLift, "value kind "+kind.String())
	}
}

// NewMemLifter returns the lifter reading kind from linear memory.
func NewMemLifter(kind component.ValueKind, opts *Options) (MemLifter, error) {
	if kind == component.KindUnit {
		return func(uint32) (any, error) { return nil, nil }, nil
	}
	if err := opts.requireMemory("lifting from memory"); err != nil {
		return nil, err
	}
	mem := opts.Memory

	switch kind {
	case component.KindBool:
		return func(ptr uint32) (any, error) {
			v, err := mem.ReadU8(ptr)
			return v != 0, err
		}, nil
	case component.KindS8:
		return func(ptr uint32) (any, error) {
			v, err := mem.ReadU8(ptr)
			return int8(v), err
		}, nil
	case component.KindU8:
		return func(ptr uint32) (any, error) { return mem.ReadU8(ptr) }, nil
	case component.KindS16:
		return func(ptr uint32) (any, error) {
			v, err := mem.ReadU16(ptr)
			return int16(v), err
		}, nil
	case component.KindU16:
		return func(ptr uint32) (any, error) { return mem.ReadU16(ptr) }, nil
	case component.KindS32:
		return func(ptr uint32) (any, error) {
			v, err := mem.ReadU32(ptr)
			return int32(v), err
		}, nil
	case component.KindU32:
		return func(ptr uint32) (any, error) { return mem.ReadU32(ptr) }, nil
	case component.KindS64:
		return func(ptr uint32) (any, error) {
			v, err := mem.ReadU64(ptr)
			return int64(v), err
		}, nil
	case component.KindU64:
		return func(ptr uint32) (any, error) { return mem.ReadU64(ptr) }, nil
	case component.KindF32:
		return func(ptr uint32) (any, error) {
			v, err := mem.ReadU32(ptr)
			return math.Float32frombits(abi.CanonicalizeF32(v)), err
		}, nil
	case component.KindF64:
		return func(ptr uint32) (any, error) {
			v, err := mem.ReadU64(ptr)
			return math.Float64frombits(abi.CanonicalizeF64(v)), err
		}, nil
	case component.KindChar:
		return func(ptr uint32) (any, error) {
			v, err := mem.ReadU32(ptr)
			if err != nil {
				return nil, err
			}
			return liftChar(v)
		}, nil
	case component.KindString:
		enc := opts.Encoding
		return func(ptr uint32) (any, error) {
			sptr, err := mem.ReadU32(ptr)
			if err != nil {
				return nil, err
			}
			lenPtr, err := FieldAddr(errors.PhaseLift, ptr, 4)
			if err != nil {
				return nil, err
			}
			n, err := mem.ReadU32(lenPtr)
			if err != nil {
				return nil, err
			}
			return ReadString(mem, enc, sptr, n)
		}, nil
	default:
		return nil, errors.Unsupported(errors.PhaseLift, "value kind "+kind.String())
	}
}

func liftChar(v uint32) (rune, error) {
	if v > 0x10FFFF || !abi.ValidateChar(rune(v)) {
		err := errors.InvalidData(errors.PhaseLift, nil, fmt.Sprintf("invalid Unicode scalar value: 0x%X", v))
		err.WitType = "char"
		err.Value = v
		return 0, err
	}
	return rune(v), nil
}

// ReadString lifts the string of length bytes at ptr. For latin1+utf16 the
// data is Latin-1 unless the UTF-16 tag bit is set, in which case the low
// bits are the byte length of UTF-16 data.
func ReadString(mem Memory, enc component.StringEncoding, ptr, length uint32) (string, error) {
	switch enc {
	case component.EncodingUTF8:
		data, err := readBytes(mem, ptr, length, 1)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(data) {
			return "", errors.InvalidUTF8(errors.PhaseLift, nil, data)
		}
		return string(data), nil

	case component.EncodingUTF16:
		return readUTF16(mem, ptr, length)

	case component.EncodingLatin1UTF16:
		if length&abi.UTF16Tag != 0 {
			return readUTF16(mem, ptr, length&^abi.UTF16Tag)
		}
		data, err := readBytes(mem, ptr, length, 2)
		if err != nil {
			return "", err
		}
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return "", errors.Wrap(errors.PhaseLift, errors.KindInvalidData, err, "decode latin-1 string")
		}
		return string(out), nil

	default:
		return "", errors.Unsupported(errors.PhaseLift, "string encoding "+enc.String())
	}
}

func readUTF16(mem Memory, ptr, size uint32) (string, error) {
	if size%2 != 0 {
		return "", errors.InvalidData(errors.PhaseLift, nil, fmt.Sprintf("utf-16 string has odd byte length %d", size))
	}
	data, err := readBytes(mem, ptr, size, 2)
	if err != nil {
		return "", err
	}
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data)
	if err != nil {
		return "", errors.Wrap(errors.PhaseLift, errors.KindInvalidData, err, "decode utf-16 string")
	}
	return string(out), nil
}

func readBytes(mem Memory, ptr, size, align uint32) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	if !abi.Aligned(ptr, align) {
		return nil, errors.New(errors.PhaseLift, errors.KindInvalidData).
			WitType("string").
			Value(ptr).
			Detail("string pointer 0x%x not aligned to %d", ptr, align).
			Build()
	}
	if _, ok := abi.SafeAddU32(ptr, size-1); !ok {
		return nil, errors.OutOfBounds(errors.PhaseLift, nil, ptr, size)
	}
	return mem.Read(ptr, size)
}

// FieldAddr returns base+offset, failing when the address wraps past the
// 32-bit address space.
func FieldAddr(phase errors.Phase, base, offset uint32) (uint32, error) {
	addr, ok := abi.SafeAddU32(base, offset)
	if !ok {
		return 0, errors.OutOfBounds(phase, nil, base, offset)
	}
	return addr, nil
}
