package transcoder

import (
	"encoding/binary"
	"fmt"

	"github.com/wippyai/wasm-component/errors"
)

// mockMemory implements Memory for testing
type mockMemory struct {
	data []byte
}

func newMockMemory(size int) *mockMemory {
	return &mockMemory{data: make([]byte, size)}
}

func (m *mockMemory) check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(m.data)) {
		return errors.OutOfBounds(errors.PhaseRuntime, nil, offset, length)
	}
	return nil
}

func (m *mockMemory) Read(offset uint32, length uint32) ([]byte, error) {
	if err := m.check(offset, length); err != nil {
		return nil, err
	}
	return m.data[offset : offset+length], nil
}

func (m *mockMemory) Write(offset uint32, data []byte) error {
	if err := m.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

func (m *mockMemory) ReadU8(offset uint32) (uint8, error) {
	if err := m.check(offset, 1); err != nil {
		return 0, err
	}
	return m.data[offset], nil
}

func (m *mockMemory) ReadU16(offset uint32) (uint16, error) {
	if err := m.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.data[offset:]), nil
}

func (m *mockMemory) ReadU32(offset uint32) (uint32, error) {
	if err := m.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[offset:]), nil
}

func (m *mockMemory) ReadU64(offset uint32) (uint64, error) {
	if err := m.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.data[offset:]), nil
}

func (m *mockMemory) WriteU8(offset uint32, value uint8) error {
	if err := m.check(offset, 1); err != nil {
		return err
	}
	m.data[offset] = value
	return nil
}

func (m *mockMemory) WriteU16(offset uint32, value uint16) error {
	if err := m.check(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.data[offset:], value)
	return nil
}

func (m *mockMemory) WriteU32(offset uint32, value uint32) error {
	if err := m.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[offset:], value)
	return nil
}

func (m *mockMemory) WriteU64(offset uint32, value uint64) error {
	if err := m.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[offset:], value)
	return nil
}

type reallocCall struct {
	origPtr, origSize, align, newSize uint32
}

// mockRealloc is a bump allocator that records every call.
// Shrinking keeps the block; growing moves it and copies the old bytes.
type mockRealloc struct {
	mem   *mockMemory
	calls []reallocCall
	next  uint32
	skew  uint32 // added to every fresh pointer to produce misalignment
	fail  bool
}

func newMockRealloc(mem *mockMemory) *mockRealloc {
	return &mockRealloc{mem: mem, next: 64}
}

func (r *mockRealloc) Realloc(origPtr, origSize, align, newSize uint32) (uint32, error) {
	r.calls = append(r.calls, reallocCall{origPtr, origSize, align, newSize})
	if r.fail {
		return 0, fmt.Errorf("out of memory")
	}
	if origPtr != 0 && newSize <= origSize {
		return origPtr, nil
	}
	ptr := (r.next+align-1)&^(align-1) + r.skew
	if uint64(ptr)+uint64(newSize) > uint64(len(r.mem.data)) {
		return 0, fmt.Errorf("heap exhausted")
	}
	r.next = ptr + newSize
	if origPtr != 0 {
		copy(r.mem.data[ptr:], r.mem.data[origPtr:origPtr+min(origSize, newSize)])
	}
	return ptr, nil
}

// grows counts calls that enlarge an existing block
func (r *mockRealloc) grows() int {
	n := 0
	for _, c := range r.calls {
		if c.origPtr != 0 && c.newSize > c.origSize {
			n++
		}
	}
	return n
}

func newTestOptions(size int) (*Options, *mockMemory, *mockRealloc) {
	mem := newMockMemory(size)
	realloc := newMockRealloc(mem)
	return &Options{Memory: mem, Realloc: realloc}, mem, realloc
}
