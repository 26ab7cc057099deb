package component

import (
	"sync"
	"unicode/utf8"

	"github.com/wippyai/wasm-component/errors"
)

// maxNameLength bounds allocations to prevent OOM from malformed binaries
const maxNameLength = 100000

// maxVecCount bounds vector lengths read from section payloads
const maxVecCount = 100000

// reader walks a byte slice and reports errors at absolute offsets.
type reader struct {
	data []byte
	pos  int
	base uint32
}

// readerPool pools reader instances to reduce allocations
var readerPool = sync.Pool{
	New: func() any {
		return &reader{}
	},
}

// getReader gets a pooled reader over data that starts at base in the binary
func getReader(data []byte, base uint32) *reader {
	r := readerPool.Get().(*reader)
	r.data = data
	r.pos = 0
	r.base = base
	return r
}

// putReader returns a reader to the pool
func putReader(r *reader) {
	r.data = nil
	readerPool.Put(r)
}

func (r *reader) offset() uint32 {
	return r.base + uint32(r.pos)
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) eof() bool {
	return r.pos >= len(r.data)
}

func (r *reader) fail(format string, args ...any) error {
	return errors.Decode(r.offset(), format, args...)
}

func (r *reader) byte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, r.fail("unexpected end of input")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) peek() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, r.fail("unexpected end of input")
	}
	return r.data[r.pos], nil
}

func (r *reader) expect(want byte, what string) error {
	start := r.offset()
	b, err := r.byte()
	if err != nil {
		return err
	}
	if b != want {
		return errors.Decode(start, "%s: expected 0x%02x, got 0x%02x", what, want, b)
	}
	return nil
}

func (r *reader) bytes(n uint32) ([]byte, error) {
	if uint64(n) > uint64(r.remaining()) {
		return nil, r.fail("length %d exceeds remaining %d bytes", n, r.remaining())
	}
	out := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return out, nil
}

// u32 reads an unsigned LEB128 value
func (r *reader) u32() (uint32, error) {
	start := r.offset()
	var result uint32
	var shift uint
	for i := 0; i < 5; i++ { // Max 5 bytes for uint32
		b, err := r.byte()
		if err != nil {
			return 0, err
		}
		if i == 4 && b&0x70 != 0 {
			return 0, errors.Decode(start, "LEB128 value too large")
		}
		result |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, errors.Decode(start, "LEB128 encoding exceeded maximum length")
}

// s33 reads a signed LEB128 value of up to 33 bits
func (r *reader) s33() (int64, error) {
	start := r.offset()
	var result int64
	var shift uint
	for i := 0; i < 5; i++ {
		b, err := r.byte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, nil
		}
	}
	return 0, errors.Decode(start, "SLEB128 encoding exceeded maximum length")
}

func (r *reader) count(what string) (uint32, error) {
	start := r.offset()
	n, err := r.u32()
	if err != nil {
		return 0, err
	}
	if n > maxVecCount {
		return 0, errors.Decode(start, "%s count %d exceeds maximum", what, n)
	}
	return n, nil
}

// name reads a LEB128 length-prefixed UTF-8 string
func (r *reader) name() (string, error) {
	start := r.offset()
	length, err := r.u32()
	if err != nil {
		return "", err
	}
	if length > maxNameLength {
		return "", errors.Decode(start, "name too long: %d (max %d)", length, maxNameLength)
	}
	buf, err := r.bytes(length)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", errors.Decode(start, "name is not valid UTF-8")
	}
	return string(buf), nil
}

// externName reads an import or export name with its kind prefix.
// Kind 0x01 carries a trailing version suffix that is skipped.
func (r *reader) externName() (string, error) {
	start := r.offset()
	kind, err := r.byte()
	if err != nil {
		return "", err
	}
	name, err := r.name()
	if err != nil {
		return "", err
	}
	switch kind {
	case 0x00:
	case 0x01:
		if _, err := r.name(); err != nil {
			return "", err
		}
	default:
		return "", errors.Decode(start, "unknown name kind 0x%02x", kind)
	}
	return name, nil
}
