package component

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"
)

// ToWIT returns the WIT type of a primitive kind. Unit has no WIT type and yields nil.
func ToWIT(k ValueKind) wit.Type {
	switch k {
	case KindBool:
		return wit.Bool{}
	case KindS8:
		return wit.S8{}
	case KindU8:
		return wit.U8{}
	case KindS16:
		return wit.S16{}
	case KindU16:
		return wit.U16{}
	case KindS32:
		return wit.S32{}
	case KindU32:
		return wit.U32{}
	case KindS64:
		return wit.S64{}
	case KindU64:
		return wit.U64{}
	case KindF32:
		return wit.F32{}
	case KindF64:
		return wit.F64{}
	case KindChar:
		return wit.Char{}
	case KindString:
		return wit.String{}
	default:
		return nil
	}
}

// FromWIT maps a WIT primitive back to its kind. A nil type is unit.
func FromWIT(t wit.Type) (ValueKind, error) {
	switch v := t.(type) {
	case nil:
		return KindUnit, nil
	case wit.Bool:
		return KindBool, nil
	case wit.S8:
		return KindS8, nil
	case wit.U8:
		return KindU8, nil
	case wit.S16:
		return KindS16, nil
	case wit.U16:
		return KindU16, nil
	case wit.S32:
		return KindS32, nil
	case wit.U32:
		return KindU32, nil
	case wit.S64:
		return KindS64, nil
	case wit.U64:
		return KindU64, nil
	case wit.F32:
		return KindF32, nil
	case wit.F64:
		return KindF64, nil
	case wit.Char:
		return KindChar, nil
	case wit.String:
		return KindString, nil
	default:
		return 0, fmt.Errorf("WIT type %T is not a primitive value type", v)
	}
}

// ParseValueType parses a WIT primitive type name such as "u32" or "string".
// An empty name or "unit" yields KindUnit.
func ParseValueType(s string) (ValueKind, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "unit" || s == "_" {
		return KindUnit, nil
	}
	t, err := wit.ParseType(s)
	if err != nil {
		return 0, fmt.Errorf("parse type %q: %w", s, err)
	}
	return FromWIT(t)
}

// FormatFuncType renders ft in WIT syntax, e.g. "func(name: string) -> u32"
func FormatFuncType(ft ResolvedFuncType) string {
	var b strings.Builder
	b.WriteString("func(")
	for i, p := range ft.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("p%d", i)
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(p.Kind.String())
	}
	b.WriteByte(')')
	if ft.Result.Kind != KindUnit {
		b.WriteString(" -> ")
		b.WriteString(ft.Result.Kind.String())
	}
	return b.String()
}
