package wasmcomponent

// Memory represents WASM linear memory
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of WASM linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Reallocator is the guest allocator entry point used for variable-length data.
// It returns a pointer valid for newSize bytes at the given alignment and may
// move up to min(origSize, newSize) bytes from origPtr.
type Reallocator interface {
	Realloc(origPtr, origSize, align, newSize uint32) (uint32, error)
}

// PostReturn releases guest buffers once a lifted call's results have been consumed.
type PostReturn interface {
	PostReturn(results []uint64) error
}
