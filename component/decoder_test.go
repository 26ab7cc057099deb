package component

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/wasm-component/errors"
	"github.com/wippyai/wasm-component/internal/wasmtest"
)

func decodeErr(t *testing.T, err error) *errors.DecodeError {
	t.Helper()
	var de *errors.DecodeError
	if !stderrors.As(err, &de) {
		t.Fatalf("expected *errors.DecodeError, got %T: %v", err, err)
	}
	return de
}

func TestIsComponent(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"component", wasmtest.NewComponent().Bytes(), true},
		{"core module", wasmtest.NewModule().Bytes(), false},
		{"short", []byte{0x00, 0x61}, false},
		{"bad magic", []byte{0x01, 0x61, 0x73, 0x6d, 0x0d, 0x00, 0x01, 0x00}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsComponent(tt.data); got != tt.want {
				t.Errorf("IsComponent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecode_CoreModule(t *testing.T) {
	desc, err := Decode(wasmtest.NewModule().Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if desc != nil {
		t.Errorf("expected nil description for a core module, got %+v", desc)
	}
}

func TestDecode_Header(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		offset uint32
	}{
		{"too short", []byte{0x00, 0x61, 0x73}, 3},
		{"bad magic", []byte{0x00, 0x62, 0x73, 0x6d, 0x0d, 0x00, 0x01, 0x00}, 0},
		{"bad layer", []byte{0x00, 0x61, 0x73, 0x6d, 0x0d, 0x00, 0x02, 0x00}, 6},
		{"bad version", []byte{0x00, 0x61, 0x73, 0x6d, 0x0c, 0x00, 0x01, 0x00}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			de := decodeErr(t, err)
			if de.Offset != tt.offset {
				t.Errorf("Offset = %d, want %d", de.Offset, tt.offset)
			}
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	desc, err := Decode(wasmtest.NewComponent().Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if desc == nil {
		t.Fatal("expected empty description")
	}
	if len(desc.Modules) != 0 || len(desc.Exports) != 0 {
		t.Errorf("expected empty index spaces, got %+v", desc)
	}
}

func TestDecode_LiftAndExport(t *testing.T) {
	core := wasmtest.NewModule()
	core.Memory(1)
	core.Export("memory", wasmtest.KindMemory, 0)
	fn := core.Func([]wasmtest.ValType{wasmtest.I32, wasmtest.I32}, []wasmtest.ValType{wasmtest.I32}, nil, wasmtest.LocalGet(1))
	core.Export("len", wasmtest.KindFunc, fn)
	wasmtest.AddRealloc(core, 1024)

	data := wasmtest.NewComponent().
		CoreModule(core.Bytes()).
		Instantiate(0).
		AliasCoreExport(wasmtest.CoreFunc, 0, "len").
		AliasCoreExport(wasmtest.CoreMemory, 0, "memory").
		AliasCoreExport(wasmtest.CoreFunc, 0, "realloc").
		PrimType(wasmtest.U32).
		FuncType([]wasmtest.Param{{Name: "s", Type: wasmtest.Prim(wasmtest.String)}}, wasmtest.TypeIdx(0)).
		Lift(0, 1, wasmtest.OptUTF16(), wasmtest.OptMemory(0), wasmtest.OptRealloc(1)).
		ExportFunc("len", 0).
		Bytes()

	desc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(desc.Modules) != 1 || desc.Modules[0].Kind != ModuleInline || len(desc.Modules[0].Bytes) == 0 {
		t.Fatalf("unexpected modules: %+v", desc.Modules)
	}
	if len(desc.CoreInstances) != 1 || desc.CoreInstances[0].Kind != CoreInstanceModule {
		t.Fatalf("unexpected core instances: %+v", desc.CoreInstances)
	}
	if len(desc.CoreFuncs) != 2 || desc.CoreFuncs[0].Alias.Name != "len" || desc.CoreFuncs[1].Alias.Name != "realloc" {
		t.Fatalf("unexpected core funcs: %+v", desc.CoreFuncs)
	}
	if len(desc.Memories) != 1 || desc.Memories[0] != (CoreExport{Instance: 0, Name: "memory"}) {
		t.Fatalf("unexpected memories: %+v", desc.Memories)
	}

	// the export appends a second entry to the func index space
	if len(desc.Funcs) != 2 {
		t.Fatalf("expected 2 funcs, got %d", len(desc.Funcs))
	}
	lifted := desc.Funcs[0]
	if lifted.Kind != FuncLifted || lifted.CoreFunc != 0 {
		t.Errorf("unexpected lifted func: %+v", lifted)
	}
	if lifted.Options.StringEncoding != EncodingUTF16 {
		t.Errorf("encoding = %v, want utf16", lifted.Options.StringEncoding)
	}
	if lifted.Options.MemoryIndex() != 0 || lifted.Options.ReallocIndex() != 1 || lifted.Options.PostReturnIndex() != -1 {
		t.Errorf("unexpected options: mem=%d realloc=%d post=%d",
			lifted.Options.MemoryIndex(), lifted.Options.ReallocIndex(), lifted.Options.PostReturnIndex())
	}
	if !lifted.Type.FlatParams || !lifted.Type.FlatResult {
		t.Errorf("expected flat params and result: %+v", lifted.Type)
	}
	if lifted.Type.Params[0].Type != Prim(KindString) || lifted.Type.Result.Type != Ref(0) {
		t.Errorf("unexpected types: %+v", lifted.Type)
	}

	if len(desc.Exports) != 1 || desc.Exports[0] != (Export{Name: "len", Sort: ExportFunc, Index: 0}) {
		t.Errorf("unexpected exports: %+v", desc.Exports)
	}
}

func TestDecode_MemoryConvention(t *testing.T) {
	params := make([]wasmtest.Param, 9)
	for i := range params {
		params[i] = wasmtest.Param{Name: string(rune('a' + i)), Type: wasmtest.Prim(wasmtest.String)}
	}

	data := wasmtest.NewComponent().
		FuncType(params, wasmtest.Prim(wasmtest.String)).
		ImportFunc("many", 0).
		Bytes()

	desc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ft := desc.Funcs[0].Type
	if ft.FlatParams {
		t.Error("18 flat values must use the memory convention")
	}
	for i, p := range ft.Params {
		if p.Offset != uint32(i*8) {
			t.Errorf("param %d offset = %d, want %d", i, p.Offset, i*8)
		}
	}
	if ft.FlatResult {
		t.Error("string result must be returned through memory")
	}
}

func TestDecode_FlatOffsets(t *testing.T) {
	data := wasmtest.NewComponent().
		FuncType([]wasmtest.Param{
			{Name: "a", Type: wasmtest.Prim(wasmtest.U8)},
			{Name: "b", Type: wasmtest.Prim(wasmtest.String)},
			{Name: "c", Type: wasmtest.Prim(wasmtest.U64)},
		}, nil).
		ImportFunc("f", 0).
		Bytes()

	desc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ft := desc.Funcs[0].Type
	want := []uint32{0, 1, 3}
	for i, p := range ft.Params {
		if p.Offset != want[i] {
			t.Errorf("param %d offset = %d, want %d", i, p.Offset, want[i])
		}
	}
	if ft.Result.Type.Kind != KindUnit || !ft.FlatResult {
		t.Errorf("unexpected result: %+v", ft.Result)
	}
}

func TestDecode_ImportsAndLower(t *testing.T) {
	data := wasmtest.NewComponent().
		ImportModule("env", 0).
		FuncType([]wasmtest.Param{{Name: "msg", Type: wasmtest.Prim(wasmtest.String)}}, nil).
		ImportFunc("log", 0).
		Lower(0, wasmtest.OptLatin1UTF16()).
		FromExports(wasmtest.SortExport{Name: "log", Sort: wasmtest.CoreFunc, Index: 0}).
		Instantiate(0, wasmtest.Arg{Name: "host", Instance: 0}).
		ExportModule("env-module", 0).
		Bytes()

	desc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if m := desc.Modules[0]; m.Kind != ModuleImported || m.Name != "env" || m.Bytes != nil {
		t.Errorf("unexpected module: %+v", desc.Modules[0])
	}
	if desc.Funcs[0].Kind != FuncImported || desc.Funcs[0].Name != "log" {
		t.Errorf("unexpected func: %+v", desc.Funcs[0])
	}
	lowered := desc.CoreFuncs[0]
	if lowered.Kind != CoreFuncLowered || lowered.Func != 0 || lowered.Options.StringEncoding != EncodingLatin1UTF16 {
		t.Errorf("unexpected lowered func: %+v", lowered)
	}
	if len(lowered.Type.Params) != 1 || lowered.Type.Params[0].Name != "msg" {
		t.Errorf("lowered func should carry the imported type: %+v", lowered.Type)
	}

	reexp := desc.CoreInstances[0]
	if reexp.Kind != CoreInstanceReexporter || len(reexp.Exports) != 1 || reexp.Exports[0].Sort != CoreSortFunc {
		t.Errorf("unexpected reexporter: %+v", reexp)
	}
	inst := desc.CoreInstances[1]
	if inst.Kind != CoreInstanceModule || len(inst.Args) != 1 || inst.Args[0] != (InstantiateArg{Name: "host", Instance: 0}) {
		t.Errorf("unexpected module instance: %+v", inst)
	}

	if desc.Exports[0].Sort != ExportModule || len(desc.Modules) != 2 {
		t.Errorf("module export should extend the module space: %+v", desc)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func() []byte
	}{
		{
			name: "nested component",
			build: func() []byte {
				return wasmtest.NewComponent().Raw(4, []byte{0x00}).Bytes()
			},
		},
		{
			name: "forward instance reference",
			build: func() []byte {
				return wasmtest.NewComponent().
					CoreModule(wasmtest.NewModule().Bytes()).
					Instantiate(0, wasmtest.Arg{Name: "env", Instance: 0}).
					Bytes()
			},
		},
		{
			name: "undefined module",
			build: func() []byte {
				return wasmtest.NewComponent().Instantiate(3).Bytes()
			},
		},
		{
			name: "alias of undefined instance",
			build: func() []byte {
				return wasmtest.NewComponent().AliasCoreExport(wasmtest.CoreMemory, 0, "memory").Bytes()
			},
		},
		{
			name: "compound type",
			build: func() []byte {
				return wasmtest.NewComponent().Raw(7, []byte{0x01, 0x70, 0x73}).Bytes()
			},
		},
		{
			name: "lift of missing core func",
			build: func() []byte {
				return wasmtest.NewComponent().
					FuncType(nil, nil).
					Lift(0, 0).
					Bytes()
			},
		},
		{
			name: "lift with non-func type",
			build: func() []byte {
				core := wasmtest.NewModule()
				core.Export("f", wasmtest.KindFunc, core.Func(nil, nil, nil))
				return wasmtest.NewComponent().
					CoreModule(core.Bytes()).
					Instantiate(0).
					AliasCoreExport(wasmtest.CoreFunc, 0, "f").
					PrimType(wasmtest.U32).
					Lift(0, 0).
					Bytes()
			},
		},
		{
			name: "section overruns input",
			build: func() []byte {
				data := wasmtest.NewComponent().Bytes()
				return append(data, 0x07, 0x10, 0x01)
			},
		},
		{
			name: "trailing bytes",
			build: func() []byte {
				return wasmtest.NewComponent().Raw(7, []byte{0x01, 0x79, 0x00}).Bytes()
			},
		},
		{
			name: "unknown section",
			build: func() []byte {
				return wasmtest.NewComponent().Raw(42, nil).Bytes()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.build()
			_, err := Decode(data)
			de := decodeErr(t, err)
			if de.Offset < 8 || de.Offset > uint32(len(data)) {
				t.Errorf("offset %d outside section payloads of %d-byte input", de.Offset, len(data))
			}
		})
	}
}

func TestDecode_ErrorOffset(t *testing.T) {
	data := wasmtest.NewComponent().Raw(4, []byte{0x00}).Bytes()
	_, err := Decode(data)
	de := decodeErr(t, err)
	if de.Offset != 8 {
		t.Errorf("Offset = %d, want 8 (start of the section)", de.Offset)
	}
}
