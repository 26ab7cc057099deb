package transcoder

import (
	"encoding/binary"
	"math"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/wippyai/wasm-component/component"
	"github.com/wippyai/wasm-component/errors"
	"github.com/wippyai/wasm-component/transcoder/internal/abi"
)

// StringWriter copies strings into guest memory through the guest's realloc.
// Every Write method takes the string as UTF-16 code units, counts
// characters in code units, and returns the pointer and byte length of
// the encoded data.
type StringWriter struct {
	Memory  Memory
	Realloc Reallocator

	// MaxLength caps the byte length of any size class. Zero means 2^31-1.
	MaxLength uint32
}

func (w *StringWriter) limit() uint32 {
	if w.MaxLength == 0 {
		return abi.MaxStringByteLength
	}
	return w.MaxLength
}

// classSize returns the byte size of n code units at perUnit bytes each,
// rejecting sizes above the limit.
func (w *StringWriter) classSize(n int, perUnit uint32) (uint32, error) {
	limit := w.limit()
	if uint64(n) > math.MaxUint32 {
		return 0, errors.TooLong(errors.PhaseLower, nil, uint64(n)*uint64(perUnit), limit)
	}
	size, ok := abi.SafeMulU32(uint32(n), perUnit)
	if !ok || size > limit {
		return 0, errors.TooLong(errors.PhaseLower, nil, uint64(n)*uint64(perUnit), limit)
	}
	return size, nil
}

func (w *StringWriter) realloc(origPtr, origSize, align, newSize uint32) (uint32, error) {
	ptr, err := w.Realloc.Realloc(origPtr, origSize, align, newSize)
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseLower, newSize, align, err)
	}
	if !abi.Aligned(ptr, align) {
		return 0, errors.New(errors.PhaseLower, errors.KindAllocation).
			Value(ptr).
			Detail("realloc returned pointer 0x%x not aligned to %d", ptr, align).
			Build()
	}
	return ptr, nil
}

// Write encodes units with enc.
func (w *StringWriter) Write(enc component.StringEncoding, units []uint16) (uint32, uint32, error) {
	switch enc {
	case component.EncodingUTF8:
		return w.WriteUTF8(units)
	case component.EncodingUTF16:
		return w.WriteUTF16(units)
	case component.EncodingLatin1UTF16:
		return w.WriteLatin1OrUTF16(units)
	default:
		return 0, 0, errors.Unsupported(errors.PhaseLower, "string encoding "+enc.String())
	}
}

// WriteUTF8 allocates one byte per character and writes while the input is
// ASCII. The first wider character grows the block in place to three bytes
// per character; the block is then shrunk to the exact encoded size.
func (w *StringWriter) WriteUTF8(units []uint16) (uint32, uint32, error) {
	best, err := w.classSize(len(units), 1)
	if err != nil {
		return 0, 0, err
	}
	if best == 0 {
		return 0, 0, nil
	}

	ptr, err := w.realloc(0, 0, 1, best)
	if err != nil {
		return 0, 0, err
	}

	ascii := 0
	for ascii < len(units) && units[ascii] < 0x80 {
		ascii++
	}
	buf := make([]byte, ascii, best)
	for i := 0; i < ascii; i++ {
		buf[i] = byte(units[i])
	}
	if err := w.Memory.Write(ptr, buf); err != nil {
		return 0, 0, err
	}
	if ascii == len(units) {
		return ptr, best, nil
	}

	worst, err := w.classSize(len(units), 3)
	if err != nil {
		return 0, 0, err
	}
	if ptr, err = w.realloc(ptr, best, 1, worst); err != nil {
		return 0, 0, err
	}

	tail := make([]byte, 0, int(worst)-ascii)
	for _, r := range utf16.Decode(units[ascii:]) {
		tail = utf8.AppendRune(tail, r)
	}
	tailPtr, ok := abi.SafeAddU32(ptr, uint32(ascii))
	if !ok {
		return 0, 0, errors.OutOfBounds(errors.PhaseLower, nil, ptr, worst)
	}
	if err := w.Memory.Write(tailPtr, tail); err != nil {
		return 0, 0, err
	}

	size := uint32(ascii + len(tail))
	if size < worst {
		if ptr, err = w.realloc(ptr, worst, 1, size); err != nil {
			return 0, 0, err
		}
	}
	return ptr, size, nil
}

// WriteUTF16 allocates two bytes per character and writes little-endian
// code units, replacing unpaired surrogates with U+FFFD.
func (w *StringWriter) WriteUTF16(units []uint16) (uint32, uint32, error) {
	size, err := w.classSize(len(units), 2)
	if err != nil {
		return 0, 0, err
	}
	if size == 0 {
		return 0, 0, nil
	}

	ptr, err := w.realloc(0, 0, 2, size)
	if err != nil {
		return 0, 0, err
	}
	if err := w.Memory.Write(ptr, encodeUTF16(nil, units)); err != nil {
		return 0, 0, err
	}
	return ptr, size, nil
}

// WriteLatin1OrUTF16 writes one byte per character while every code unit
// fits Latin-1. The first unit above 0xFF grows the block to two bytes per
// character, inflates the bytes already written to UTF-16 and encodes the
// rest as UTF-16. The result is always exactly the best or the worst case.
func (w *StringWriter) WriteLatin1OrUTF16(units []uint16) (uint32, uint32, error) {
	best, err := w.classSize(len(units), 1)
	if err != nil {
		return 0, 0, err
	}
	if best == 0 {
		return 0, 0, nil
	}

	ptr, err := w.realloc(0, 0, 2, best)
	if err != nil {
		return 0, 0, err
	}

	i := 0
	for i < len(units) && units[i] < 0x100 {
		i++
	}
	latin1 := make([]byte, i)
	for j := range latin1 {
		latin1[j] = byte(units[j])
	}
	if err := w.Memory.Write(ptr, latin1); err != nil {
		return 0, 0, err
	}
	if i == len(units) {
		return ptr, best, nil
	}

	worst, err := w.classSize(len(units), 2)
	if err != nil {
		return 0, 0, err
	}
	if ptr, err = w.realloc(ptr, best, 2, worst); err != nil {
		return 0, 0, err
	}

	written, err := w.Memory.Read(ptr, uint32(i))
	if err != nil {
		return 0, 0, err
	}
	buf := make([]byte, worst)
	copy(buf, written)
	for j := i - 1; j >= 0; j-- {
		buf[2*j] = buf[j]
		buf[2*j+1] = 0
	}
	encodeUTF16(buf[2*i:2*i], units[i:])

	if err := w.Memory.Write(ptr, buf); err != nil {
		return 0, 0, err
	}
	return ptr, worst, nil
}

// encodeUTF16 appends units to dst as little-endian code units with
// unpaired surrogates repaired.
func encodeUTF16(dst []byte, units []uint16) []byte {
	for _, u := range abi.RepairSurrogates(units) {
		dst = binary.LittleEndian.AppendUint16(dst, u)
	}
	return dst
}
