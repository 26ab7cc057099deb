package transcoder

import (
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-component/component"
	"github.com/wippyai/wasm-component/errors"
	"github.com/wippyai/wasm-component/transcoder/internal/abi"
)

// StackLowerer coerces v and appends its flat core values to stack.
type StackLowerer func(stack *[]uint64, v any) error

// MemLowerer coerces v and stores it little-endian at ptr.
type MemLowerer func(ptr uint32, v any) error

// NewStackLowerer returns the lowerer for kind. Strings need both a memory
// and a realloc option; a missing one is reported here, not per call.
func NewStackLowerer(kind component.ValueKind, opts *Options) (StackLowerer, error) {
	switch kind {
	case component.KindUnit:
		return func(*[]uint64, any) error { return nil }, nil
	case component.KindBool:
		return func(stack *[]uint64, v any) error {
			if Truthy(v) {
				*stack = append(*stack, 1)
			} else {
				*stack = append(*stack, 0)
			}
			return nil
		}, nil
	case component.KindS8:
		return func(stack *[]uint64, v any) error {
			x, err := ToInt8(v)
			return push(stack, api.EncodeI32(int32(x)), err)
		}, nil
	case component.KindU8:
		return func(stack *[]uint64, v any) error {
			x, err := ToUint8(v)
			return push(stack, uint64(x), err)
		}, nil
	case component.KindS16:
		return func(stack *[]uint64, v any) error {
			x, err := ToInt16(v)
			return push(stack, api.EncodeI32(int32(x)), err)
		}, nil
	case component.KindU16:
		return func(stack *[]uint64, v any) error {
			x, err := ToUint16(v)
			return push(stack, uint64(x), err)
		}, nil
	case component.KindS32:
		return func(stack *[]uint64, v any) error {
			x, err := ToInt32(v)
			return push(stack, api.EncodeI32(x), err)
		}, nil
	case component.KindU32:
		return func(stack *[]uint64, v any) error {
			x, err := ToUint32(v)
			return push(stack, api.EncodeU32(x), err)
		}, nil
	case component.KindS64:
		return func(stack *[]uint64, v any) error {
			x, err := ToInt64(v)
			return push(stack, uint64(x), err)
		}, nil
	case component.KindU64:
		return func(stack *[]uint64, v any) error {
			x, err := ToUint64(v)
			return push(stack, x, err)
		}, nil
	case component.KindF32:
		return func(stack *[]uint64, v any) error {
			x, err := ToFloat32(v)
			return push(stack, uint64(abi.CanonicalizeF32(math.Float32bits(x))), err)
		}, nil
	case component.KindF64:
		return func(stack *[]uint64, v any) error {
			x, err := ToFloat64(v)
			return push(stack, abi.CanonicalizeF64(math.Float64bits(x)), err)
		}, nil
	case component.KindChar:
		return func(stack *[]uint64, v any) error {
			r, err := ToChar(v)
			return push(stack, uint64(uint32(r)), err)
		}, nil
	case component.KindString:
		if err := opts.requireRealloc("lowering a string"); err != nil {
			return nil, err
		}
		w, enc := opts.stringWriter(), opts.Encoding
		return func(stack *[]uint64, v any) error {
			ptr, length, err := lowerString(w, enc, v)
			if err != nil {
				return err
			}
			*stack = append(*stack, uint64(ptr), uint64(length))
			return nil
		}, nil
	default:
		return nil, errors.Unsupported(errors.PhaseLower, "value kind "+kind.String())
	}
}

// NewMemLowerer returns the lowerer storing kind into linear memory.
func NewMemLowerer(kind component.ValueKind, opts *Options) (MemLowerer, error) {
	if kind == component.KindUnit {
		return func(uint32, any) error { return nil }, nil
	}
	if kind == component.KindString {
		if err := opts.requireRealloc("lowering a string"); err != nil {
			return nil, err
		}
	} else if err := opts.requireMemory("lowering into memory"); err != nil {
		return nil, err
	}

	// a stored value has the same bits as its single flat slot
	stackLower, err := NewStackLowerer(kind, opts)
	if err != nil {
		return nil, err
	}
	mem := opts.Memory
	size := component.LayoutOf(kind).Size
	return func(ptr uint32, v any) error {
		var buf [2]uint64
		stack := buf[:0]
		if err := stackLower(&stack, v); err != nil {
			return err
		}
		switch size {
		case 1:
			return mem.WriteU8(ptr, uint8(stack[0]))
		case 2:
			return mem.WriteU16(ptr, uint16(stack[0]))
		case 4:
			return mem.WriteU32(ptr, uint32(stack[0]))
		default:
			if kind == component.KindString {
				if err := mem.WriteU32(ptr, uint32(stack[0])); err != nil {
					return err
				}
				lenPtr, err := FieldAddr(errors.PhaseLower, ptr, 4)
				if err != nil {
					return err
				}
				return mem.WriteU32(lenPtr, uint32(stack[1]))
			}
			return mem.WriteU64(ptr, stack[0])
		}
	}, nil
}

// lowerString writes v and returns the pointer and byte length reported by
// the writer for enc.
func lowerString(w *StringWriter, enc component.StringEncoding, v any) (uint32, uint32, error) {
	units, err := ToCodeUnits(v)
	if err != nil {
		return 0, 0, err
	}
	return w.Write(enc, units)
}

func push(stack *[]uint64, v uint64, err error) error {
	if err != nil {
		return err
	}
	*stack = append(*stack, v)
	return nil
}
