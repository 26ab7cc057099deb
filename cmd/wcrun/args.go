package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-component/component"
)

// parseArg converts a command-line argument to the Go value lowered for kind.
func parseArg(s string, kind component.ValueKind) (any, error) {
	switch kind {
	case component.KindUnit:
		return nil, nil
	case component.KindBool:
		return strconv.ParseBool(s)
	case component.KindS8, component.KindS16, component.KindS32, component.KindS64:
		v, err := strconv.ParseInt(s, 0, intBits(kind))
		if err != nil {
			return nil, err
		}
		switch kind {
		case component.KindS8:
			return int8(v), nil
		case component.KindS16:
			return int16(v), nil
		case component.KindS32:
			return int32(v), nil
		}
		return v, nil
	case component.KindU8, component.KindU16, component.KindU32, component.KindU64:
		v, err := strconv.ParseUint(s, 0, intBits(kind))
		if err != nil {
			return nil, err
		}
		switch kind {
		case component.KindU8:
			return uint8(v), nil
		case component.KindU16:
			return uint16(v), nil
		case component.KindU32:
			return uint32(v), nil
		}
		return v, nil
	case component.KindF32:
		v, err := strconv.ParseFloat(s, 32)
		return float32(v), err
	case component.KindF64:
		return strconv.ParseFloat(s, 64)
	case component.KindChar:
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError || size != len(s) {
			return nil, fmt.Errorf("%q is not a single character", s)
		}
		return r, nil
	case component.KindString:
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported parameter type %s", kind)
	}
}

func intBits(kind component.ValueKind) int {
	switch kind {
	case component.KindS8, component.KindU8:
		return 8
	case component.KindS16, component.KindU16:
		return 16
	case component.KindS32, component.KindU32:
		return 32
	default:
		return 64
	}
}

// parseArgs converts args to the parameter kinds of ft.
func parseArgs(ft *component.ResolvedFuncType, args []string) ([]any, error) {
	if len(args) != len(ft.Params) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(ft.Params), len(args))
	}
	out := make([]any, len(args))
	for i, p := range ft.Params {
		v, err := parseArg(args[i], p.Kind)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", p.Name, err)
		}
		out[i] = v
	}
	return out, nil
}

// formatValue renders a lifted result of the given kind. Strings and chars
// are quoted.
func formatValue(v any, kind component.ValueKind) string {
	if v == nil {
		return "()"
	}
	switch kind {
	case component.KindString:
		if s, ok := v.(string); ok {
			return strconv.Quote(s)
		}
	case component.KindChar:
		if r, ok := v.(rune); ok {
			return strconv.QuoteRune(r)
		}
	}
	return fmt.Sprintf("%v", v)
}

// parseCoreArg encodes a command-line argument as a core value of type t.
func parseCoreArg(s string, t api.ValueType) (uint64, error) {
	switch t {
	case api.ValueTypeI32:
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return 0, err
		}
		if v < math.MinInt32 || v > math.MaxUint32 {
			return 0, fmt.Errorf("%s does not fit in i32", s)
		}
		return uint64(uint32(v)), nil
	case api.ValueTypeI64:
		if strings.HasPrefix(s, "-") {
			v, err := strconv.ParseInt(s, 0, 64)
			return api.EncodeI64(v), err
		}
		return strconv.ParseUint(s, 0, 64)
	case api.ValueTypeF32:
		v, err := strconv.ParseFloat(s, 32)
		return api.EncodeF32(float32(v)), err
	case api.ValueTypeF64:
		v, err := strconv.ParseFloat(s, 64)
		return api.EncodeF64(v), err
	default:
		return 0, fmt.Errorf("unsupported core value type %s", api.ValueTypeName(t))
	}
}

// formatCoreResult renders a raw core result of type t.
func formatCoreResult(v uint64, t api.ValueType) string {
	switch t {
	case api.ValueTypeI32:
		return strconv.FormatInt(int64(api.DecodeI32(v)), 10)
	case api.ValueTypeI64:
		return strconv.FormatInt(int64(v), 10)
	case api.ValueTypeF32:
		return strconv.FormatFloat(float64(api.DecodeF32(v)), 'g', -1, 32)
	case api.ValueTypeF64:
		return strconv.FormatFloat(api.DecodeF64(v), 'g', -1, 64)
	default:
		return fmt.Sprintf("%#x", v)
	}
}
