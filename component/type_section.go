package component

import (
	"github.com/wippyai/wasm-component/errors"
)

// primitive value type bytes of the component binary format
var primBytes = map[byte]ValueKind{
	0x7f: KindBool,
	0x7e: KindS8,
	0x7d: KindU8,
	0x7c: KindS16,
	0x7b: KindU16,
	0x7a: KindS32,
	0x79: KindU32,
	0x78: KindS64,
	0x77: KindU64,
	0x76: KindF32,
	0x75: KindF64,
	0x74: KindChar,
	0x73: KindString,
}

// PrimByte returns the binary encoding of a primitive kind
func PrimByte(k ValueKind) (byte, bool) {
	for b, kind := range primBytes {
		if kind == k {
			return b, true
		}
	}
	return 0, false
}

// types parses a Type section (section 7)
func (d *decoder) types(r *reader) error {
	count, err := r.count("type")
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		start := r.offset()
		b, err := r.peek()
		if err != nil {
			return err
		}

		kind, isPrim := primBytes[b]
		switch {
		case b == 0x40:
			r.pos++
			ft, err := r.funcTypeDef()
			if err != nil {
				return err
			}
			d.desc.Types = append(d.desc.Types, TypeDef{Kind: TypeDefFunc, Func: ft})
		case isPrim:
			r.pos++
			d.desc.Types = append(d.desc.Types, TypeDef{Kind: TypeDefValue, Value: Prim(kind)})
		case b == 0x41:
			return errors.Decode(start, "component types are not supported")
		case b == 0x42:
			return errors.Decode(start, "instance types are not supported")
		case b == 0x3f:
			return errors.Decode(start, "resource types are not supported")
		case b >= 0x64 && b <= 0x72:
			return errors.Decode(start, "compound value type 0x%02x is not supported", b)
		default:
			return errors.Decode(start, "unknown type definition 0x%02x", b)
		}
	}
	return nil
}

// funcTypeDef parses the body of a function type after its 0x40 prefix.
// Offsets are left zero; they are assigned when a lift or lower uses the type.
func (r *reader) funcTypeDef() (*FuncType, error) {
	paramCount, err := r.count("param")
	if err != nil {
		return nil, err
	}
	ft := &FuncType{Params: make([]Param, paramCount)}
	for i := range ft.Params {
		name, err := r.name()
		if err != nil {
			return nil, err
		}
		vt, err := r.valueType()
		if err != nil {
			return nil, err
		}
		ft.Params[i] = Param{Name: name, AnnotatedValueType: AnnotatedValueType{Type: vt}}
	}

	// resultlist: 0x00 valtype | 0x01 0x00
	start := r.offset()
	disc, err := r.byte()
	if err != nil {
		return nil, err
	}
	switch disc {
	case 0x00:
		vt, err := r.valueType()
		if err != nil {
			return nil, err
		}
		ft.Result = AnnotatedValueType{Type: vt}
	case 0x01:
		if err := r.expect(0x00, "empty result list"); err != nil {
			return nil, err
		}
		ft.Result = AnnotatedValueType{Type: Prim(KindUnit)}
	default:
		return nil, errors.Decode(start, "unknown resultlist discriminant 0x%02x", disc)
	}
	return ft, nil
}

// valueType parses a valtype: a primitive byte or a non-negative s33 type index
func (r *reader) valueType() (ValueType, error) {
	start := r.offset()
	b, err := r.peek()
	if err != nil {
		return ValueType{}, err
	}
	if kind, ok := primBytes[b]; ok {
		r.pos++
		return Prim(kind), nil
	}
	v, err := r.s33()
	if err != nil {
		return ValueType{}, err
	}
	if v < 0 {
		return ValueType{}, errors.Decode(start, "value type 0x%02x is not supported", b)
	}
	if v > int64(^uint32(0)) {
		return ValueType{}, errors.Decode(start, "type index %d out of range", v)
	}
	return Ref(uint32(v)), nil
}
