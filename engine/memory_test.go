package engine

import (
	"context"
	"testing"

	wasmcomponent "github.com/wippyai/wasm-component"
	"github.com/wippyai/wasm-component/errors"
	"github.com/wippyai/wasm-component/internal/wasmtest"
)

func instantiateAllocator(t *testing.T) *CoreInstance {
	t.Helper()
	e := newTestEngine(t)
	m := wasmtest.NewModule()
	mem := m.Memory(1)
	m.Export("memory", wasmtest.KindMemory, mem)
	wasmtest.AddRealloc(m, 1024)
	inst, err := e.Instantiate(context.Background(), compile(t, e, m), nil)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	return inst
}

func TestMemoryView(t *testing.T) {
	if MemoryView(nil) != nil {
		t.Error("MemoryView(nil) should be nil")
	}

	inst := instantiateAllocator(t)
	ext, _ := inst.Export("memory")
	mem := MemoryView(ext.Memory())

	if sizer, ok := mem.(wasmcomponent.MemorySizer); !ok || sizer.Size() != 65536 {
		t.Errorf("memory should report one page")
	}

	if err := mem.WriteU8(0, 0xAB); err != nil {
		t.Fatal(err)
	}
	if err := mem.WriteU16(2, 0xBEEF); err != nil {
		t.Fatal(err)
	}
	if err := mem.WriteU32(4, 0xDEADBEEF); err != nil {
		t.Fatal(err)
	}
	if err := mem.WriteU64(8, 0x0102030405060708); err != nil {
		t.Fatal(err)
	}
	if err := mem.Write(16, []byte("wasm")); err != nil {
		t.Fatal(err)
	}

	if v, err := mem.ReadU8(0); err != nil || v != 0xAB {
		t.Errorf("ReadU8 = %#x, %v", v, err)
	}
	if v, err := mem.ReadU16(2); err != nil || v != 0xBEEF {
		t.Errorf("ReadU16 = %#x, %v", v, err)
	}
	if v, err := mem.ReadU32(4); err != nil || v != 0xDEADBEEF {
		t.Errorf("ReadU32 = %#x, %v", v, err)
	}
	if v, err := mem.ReadU64(8); err != nil || v != 0x0102030405060708 {
		t.Errorf("ReadU64 = %#x, %v", v, err)
	}
	if b, err := mem.Read(4, 4); err != nil || b[0] != 0xEF || b[3] != 0xDE {
		t.Errorf("Read = % x, %v", b, err)
	}
	if b, err := mem.Read(16, 4); err != nil || string(b) != "wasm" {
		t.Errorf("Read = %q, %v", b, err)
	}

	oob := &errors.Error{Phase: errors.PhaseRuntime, Kind: errors.KindOutOfBounds}
	checks := map[string]error{
		"Read":     func() error { _, err := mem.Read(65535, 2); return err }(),
		"Write":    mem.Write(65535, []byte{1, 2}),
		"ReadU8":   func() error { _, err := mem.ReadU8(65536); return err }(),
		"ReadU16":  func() error { _, err := mem.ReadU16(65535); return err }(),
		"ReadU32":  func() error { _, err := mem.ReadU32(65533); return err }(),
		"ReadU64":  func() error { _, err := mem.ReadU64(65529); return err }(),
		"WriteU8":  mem.WriteU8(65536, 1),
		"WriteU16": mem.WriteU16(65535, 1),
		"WriteU32": mem.WriteU32(65533, 1),
		"WriteU64": mem.WriteU64(65529, 1),
	}
	for name, err := range checks {
		if !errors.Is(err, oob) {
			t.Errorf("%s past the end: got %v", name, err)
		}
	}
}

func TestFuncReallocator(t *testing.T) {
	ctx := context.Background()
	if FuncReallocator(ctx, nil) != nil {
		t.Error("FuncReallocator(nil) should be nil")
	}

	inst := instantiateAllocator(t)
	ext, _ := inst.Export("realloc")
	realloc := FuncReallocator(ctx, ext.Function())

	first, err := realloc.Realloc(0, 0, 8, 16)
	if err != nil {
		t.Fatalf("Realloc: %v", err)
	}
	if first != 1024 {
		t.Errorf("first block at %d, want 1024", first)
	}
	second, err := realloc.Realloc(0, 0, 8, 4)
	if err != nil {
		t.Fatalf("Realloc: %v", err)
	}
	if second != 1040 {
		t.Errorf("second block at %d, want 1040", second)
	}
	same, err := realloc.Realloc(first, 16, 8, 8)
	if err != nil || same != first {
		t.Errorf("shrink moved the block: %d, %v", same, err)
	}
}

func TestFuncPostReturn(t *testing.T) {
	ctx := context.Background()
	if FuncPostReturn(ctx, nil) != nil {
		t.Error("FuncPostReturn(nil) should be nil")
	}

	e := newTestEngine(t)
	m := wasmtest.NewModule()
	g := m.Global(wasmtest.I32, true, 0)
	i32 := []wasmtest.ValType{wasmtest.I32}
	post := m.Func(i32, nil, nil, wasmtest.LocalGet(0), wasmtest.GlobalSet(g))
	fail := m.Func(i32, nil, nil, []byte{0x00})
	m.Export("post", wasmtest.KindFunc, post)
	m.Export("fail", wasmtest.KindFunc, fail)
	m.Export("g", wasmtest.KindGlobal, g)

	inst, err := e.Instantiate(ctx, compile(t, e, m), nil)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	postExt, _ := inst.Export("post")
	if err := FuncPostReturn(ctx, postExt.Function()).PostReturn([]uint64{9}); err != nil {
		t.Fatalf("PostReturn: %v", err)
	}
	gExt, _ := inst.Export("g")
	if gExt.Global().Get() != 9 {
		t.Errorf("post-return did not receive the results")
	}

	failExt, _ := inst.Export("fail")
	if err := FuncPostReturn(ctx, failExt.Function()).PostReturn([]uint64{1}); err == nil {
		t.Error("trapping post-return should fail")
	}
}
