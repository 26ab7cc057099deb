package wasmtest

// Instruction encoders for function bodies

func LocalGet(i uint32) []byte  { return append([]byte{0x20}, uleb(i)...) }
func LocalSet(i uint32) []byte  { return append([]byte{0x21}, uleb(i)...) }
func GlobalGet(i uint32) []byte { return append([]byte{0x23}, uleb(i)...) }
func GlobalSet(i uint32) []byte { return append([]byte{0x24}, uleb(i)...) }
func I32Const(v int32) []byte   { return append([]byte{0x41}, sleb(int64(v))...) }
func I64Const(v int64) []byte   { return append([]byte{0x42}, sleb(v)...) }
func Call(fn uint32) []byte     { return append([]byte{0x10}, uleb(fn)...) }

// memarg-carrying instructions use natural alignment and the given offset
func I32Load(offset uint32) []byte   { return append([]byte{0x28, 0x02}, uleb(offset)...) }
func I32Load8U(offset uint32) []byte { return append([]byte{0x2d, 0x00}, uleb(offset)...) }
func I64Load(offset uint32) []byte   { return append([]byte{0x29, 0x03}, uleb(offset)...) }
func I32Store(offset uint32) []byte  { return append([]byte{0x36, 0x02}, uleb(offset)...) }
func I32Store8(offset uint32) []byte { return append([]byte{0x3a, 0x00}, uleb(offset)...) }
func I64Store(offset uint32) []byte  { return append([]byte{0x37, 0x03}, uleb(offset)...) }

var (
	I32Add     = []byte{0x6a}
	I32Sub     = []byte{0x6b}
	I32Mul     = []byte{0x6c}
	I32And     = []byte{0x71}
	I32Ne      = []byte{0x47}
	I32LeU     = []byte{0x4d}
	I64Add     = []byte{0x7c}
	F64Add     = []byte{0xa0}
	If         = []byte{0x04, 0x40}
	End        = []byte{0x0b}
	Return     = []byte{0x0f}
	Drop       = []byte{0x1a}
	MemoryCopy = []byte{0xfc, 0x0a, 0x00, 0x00}
)

// AddRealloc defines a bump allocator with the canonical realloc signature
// (origPtr, origSize, align, newSize) -> ptr and exports it as "realloc".
// Shrinking returns the original pointer; growing copies into a fresh block.
// The heap starts at heap and the allocator needs memory 0.
func AddRealloc(m *Module, heap uint32) uint32 {
	next := m.Global(I32, true, int64(heap))
	fn := m.Func(
		[]ValType{I32, I32, I32, I32}, []ValType{I32}, []ValType{I32},
		// shrink in place
		LocalGet(0), I32Const(0), I32Ne, LocalGet(3), LocalGet(1), I32LeU, I32And,
		If, LocalGet(0), Return, End,
		// p = (next + align - 1) & -align
		GlobalGet(next), LocalGet(2), I32Add, I32Const(1), I32Sub,
		I32Const(0), LocalGet(2), I32Sub, I32And, LocalSet(4),
		// next = p + newSize
		LocalGet(4), LocalGet(3), I32Add, GlobalSet(next),
		// copy the old contents
		LocalGet(4), LocalGet(0), LocalGet(1), MemoryCopy,
		LocalGet(4),
	)
	m.Export("realloc", KindFunc, fn)
	return fn
}
