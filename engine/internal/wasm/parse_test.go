package wasm

import (
	"bytes"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-component/internal/wasmtest"
)

func TestLEB128(t *testing.T) {
	tests := []struct {
		v    uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
		{0xffffffff, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
	}
	for _, tt := range tests {
		got := EncodeULEB128(tt.v)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeULEB128(%d) = %x, want %x", tt.v, got, tt.want)
		}
		v, n, err := DecodeULEB128(append(got, 0xaa))
		if err != nil || v != tt.v || n != len(tt.want) {
			t.Errorf("DecodeULEB128(%x) = %d, %d, %v", got, v, n, err)
		}
	}

	if _, _, err := DecodeULEB128([]byte{0x80, 0x80}); err != errTruncated {
		t.Errorf("truncated input: got %v", err)
	}
	if _, _, err := DecodeULEB128([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}); err != errLEB {
		t.Errorf("overlong input: got %v", err)
	}
}

func TestEncodeSLEB128(t *testing.T) {
	if got := EncodeSLEB128(int32(-1)); !bytes.Equal(got, []byte{0x7f}) {
		t.Errorf("-1 = %x", got)
	}
	if got := EncodeSLEB128(int64(64)); !bytes.Equal(got, []byte{0xc0, 0x00}) {
		t.Errorf("64 = %x", got)
	}
	if got := EncodeSLEB128(int32(-128)); !bytes.Equal(got, []byte{0x80, 0x7f}) {
		t.Errorf("-128 = %x", got)
	}
}

func TestValTypes(t *testing.T) {
	for _, vt := range []api.ValueType{api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64} {
		if got := ParseValType(ValTypeToWasm(vt)); got != vt {
			t.Errorf("round trip of %v = %v", vt, got)
		}
	}
}

func TestParse(t *testing.T) {
	m := wasmtest.NewModule()
	m.ImportFunc("env", "log", []wasmtest.ValType{wasmtest.I32}, nil)
	m.ImportMemory("env", "memory", 1)
	m.ImportGlobal("env", "base", wasmtest.I32, false)
	fn := m.Func(nil, []wasmtest.ValType{wasmtest.I32}, nil, wasmtest.I32Const(7))
	m.Export("seven", wasmtest.KindFunc, fn)
	m.Export("mem", wasmtest.KindMemory, 0)

	info, err := Parse(m.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(info.Imports) != 3 {
		t.Fatalf("expected 3 imports, got %d", len(info.Imports))
	}
	want := []struct {
		mod, name string
		kind      ExternKind
	}{
		{"env", "log", ExternFunc},
		{"env", "memory", ExternMemory},
		{"env", "base", ExternGlobal},
	}
	for i, w := range want {
		imp := info.Imports[i]
		if imp.Module != w.mod || imp.Name != w.name || imp.Kind != w.kind {
			t.Errorf("import %d = %s.%s (%s), want %s.%s (%s)", i, imp.Module, imp.Name, imp.Kind, w.mod, w.name, w.kind)
		}
	}
	if !bytes.Equal(info.Imports[1].Desc, []byte{0x00, 0x01}) {
		t.Errorf("memory descriptor = %x", info.Imports[1].Desc)
	}

	if len(info.Exports) != 2 {
		t.Fatalf("expected 2 exports, got %d", len(info.Exports))
	}
	if info.Exports[0] != (Export{Name: "seven", Kind: ExternFunc, Index: 1}) {
		t.Errorf("unexpected export: %+v", info.Exports[0])
	}
	if info.Exports[1].Kind != ExternMemory {
		t.Errorf("unexpected export: %+v", info.Exports[1])
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"component header", []byte{0x00, 0x61, 0x73, 0x6d, 0x0d, 0x00, 0x01, 0x00}},
		{"truncated section", append(wasmtest.NewModule().Bytes(), 0x02, 0x05, 0x01)},
		{"bad import kind", append(wasmtest.NewModule().Bytes(), 0x02, 0x04, 0x01, 0x00, 0x00, 0x09)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestExternKindString(t *testing.T) {
	if ExternMemory.String() != "memory" || ExternKind(9).String() != "extern(0x09)" {
		t.Error("unexpected kind names")
	}
}
