package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmcomponent "github.com/wippyai/wasm-component"
	"github.com/wippyai/wasm-component/errors"
)

// MemoryView adapts a wazero memory to wasmcomponent.Memory.
// It returns nil for a nil memory.
func MemoryView(mem api.Memory) wasmcomponent.Memory {
	if mem == nil {
		return nil
	}
	return &memoryView{mem: mem}
}

type memoryView struct {
	mem api.Memory
}

var _ wasmcomponent.MemorySizer = (*memoryView)(nil)

func outOfBounds(offset, length uint32) error {
	return errors.OutOfBounds(errors.PhaseRuntime, nil, offset, length)
}

func (m *memoryView) Size() uint32 {
	return m.mem.Size()
}

func (m *memoryView) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, outOfBounds(offset, length)
	}
	return data, nil
}

func (m *memoryView) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return outOfBounds(offset, uint32(len(data)))
	}
	return nil
}

func (m *memoryView) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.mem.ReadByte(offset)
	if !ok {
		return 0, outOfBounds(offset, 1)
	}
	return v, nil
}

func (m *memoryView) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.mem.ReadUint16Le(offset)
	if !ok {
		return 0, outOfBounds(offset, 2)
	}
	return v, nil
}

func (m *memoryView) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, outOfBounds(offset, 4)
	}
	return v, nil
}

func (m *memoryView) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, outOfBounds(offset, 8)
	}
	return v, nil
}

func (m *memoryView) WriteU8(offset uint32, value uint8) error {
	if !m.mem.WriteByte(offset, value) {
		return outOfBounds(offset, 1)
	}
	return nil
}

func (m *memoryView) WriteU16(offset uint32, value uint16) error {
	if !m.mem.WriteUint16Le(offset, value) {
		return outOfBounds(offset, 2)
	}
	return nil
}

func (m *memoryView) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return outOfBounds(offset, 4)
	}
	return nil
}

func (m *memoryView) WriteU64(offset uint32, value uint64) error {
	if !m.mem.WriteUint64Le(offset, value) {
		return outOfBounds(offset, 8)
	}
	return nil
}

// FuncReallocator adapts a guest realloc export with the signature
// (origPtr, origSize, align, newSize) -> ptr. Calls run under ctx.
// It returns nil for a nil function.
func FuncReallocator(ctx context.Context, fn api.Function) wasmcomponent.Reallocator {
	if fn == nil {
		return nil
	}
	return &funcReallocator{ctx: ctx, fn: fn}
}

type funcReallocator struct {
	ctx   context.Context
	fn    api.Function
	stack [4]uint64
}

func (r *funcReallocator) Realloc(origPtr, origSize, align, newSize uint32) (uint32, error) {
	r.stack = [4]uint64{uint64(origPtr), uint64(origSize), uint64(align), uint64(newSize)}
	if err := r.fn.CallWithStack(r.ctx, r.stack[:]); err != nil {
		return 0, err
	}
	return api.DecodeU32(r.stack[0]), nil
}

// FuncPostReturn adapts a guest post-return export. It returns nil for a
// nil function.
func FuncPostReturn(ctx context.Context, fn api.Function) wasmcomponent.PostReturn {
	if fn == nil {
		return nil
	}
	return &funcPostReturn{ctx: ctx, fn: fn}
}

type funcPostReturn struct {
	ctx context.Context
	fn  api.Function
}

func (p *funcPostReturn) PostReturn(results []uint64) error {
	if _, err := p.fn.Call(p.ctx, results...); err != nil {
		Logger().Warn("post-return failed", zap.String("func", p.fn.Definition().Name()), zap.Error(err))
		return errors.Wrap(errors.PhaseRuntime, errors.KindInternal, err, "post-return")
	}
	return nil
}
