package wasm

import (
	"bytes"
	"fmt"
)

// ExternKind is the kind byte of a core import or export.
type ExternKind byte

const (
	ExternFunc   ExternKind = 0x00
	ExternTable  ExternKind = 0x01
	ExternMemory ExternKind = 0x02
	ExternGlobal ExternKind = 0x03
	ExternTag    ExternKind = 0x04
)

func (k ExternKind) String() string {
	switch k {
	case ExternFunc:
		return "func"
	case ExternTable:
		return "table"
	case ExternMemory:
		return "memory"
	case ExternGlobal:
		return "global"
	case ExternTag:
		return "tag"
	default:
		return fmt.Sprintf("extern(0x%02x)", byte(k))
	}
}

const (
	sectionImport = 0x02
	sectionExport = 0x07
)

var header = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// Import is a core module import. Desc holds the raw type descriptor
// following the kind byte.
type Import struct {
	Module string
	Name   string
	Desc   []byte
	Kind   ExternKind
}

// Export is a core module export.
type Export struct {
	Name  string
	Index uint32
	Kind  ExternKind
}

// Info lists the imports and exports of a core module.
type Info struct {
	Imports []Import
	Exports []Export
}

// Parse extracts the import and export sections of a core module.
func Parse(data []byte) (*Info, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], header) {
		return nil, fmt.Errorf("not a core module: bad header")
	}

	info := &Info{}
	err := walkSections(data, func(id byte, body []byte) error {
		switch id {
		case sectionImport:
			imports, err := parseImports(body)
			if err != nil {
				return fmt.Errorf("import section: %w", err)
			}
			info.Imports = imports
		case sectionExport:
			exports, err := parseExports(body)
			if err != nil {
				return fmt.Errorf("export section: %w", err)
			}
			info.Exports = exports
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// walkSections calls fn for every section after the header.
func walkSections(data []byte, fn func(id byte, body []byte) error) error {
	c := &cursor{data: data, pos: 8}
	for c.pos < len(c.data) {
		id, err := c.byte()
		if err != nil {
			return err
		}
		size, err := c.u32()
		if err != nil {
			return err
		}
		body, err := c.take(int(size))
		if err != nil {
			return fmt.Errorf("section %d: %w", id, err)
		}
		if err := fn(id, body); err != nil {
			return err
		}
	}
	return nil
}

func parseImports(body []byte) ([]Import, error) {
	c := &cursor{data: body}
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	imports := make([]Import, 0, count)
	for i := uint32(0); i < count; i++ {
		mod, err := c.name()
		if err != nil {
			return nil, fmt.Errorf("import %d: %w", i, err)
		}
		name, err := c.name()
		if err != nil {
			return nil, fmt.Errorf("import %d: %w", i, err)
		}
		kind, err := c.byte()
		if err != nil {
			return nil, fmt.Errorf("import %d: %w", i, err)
		}
		start := c.pos
		if err := c.skipDesc(ExternKind(kind)); err != nil {
			return nil, fmt.Errorf("import %d (%s.%s): %w", i, mod, name, err)
		}
		imports = append(imports, Import{
			Module: mod,
			Name:   name,
			Kind:   ExternKind(kind),
			Desc:   body[start:c.pos],
		})
	}
	return imports, nil
}

func parseExports(body []byte) ([]Export, error) {
	c := &cursor{data: body}
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	exports := make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := c.name()
		if err != nil {
			return nil, fmt.Errorf("export %d: %w", i, err)
		}
		kind, err := c.byte()
		if err != nil {
			return nil, fmt.Errorf("export %d: %w", i, err)
		}
		idx, err := c.u32()
		if err != nil {
			return nil, fmt.Errorf("export %d: %w", i, err)
		}
		exports = append(exports, Export{Name: name, Kind: ExternKind(kind), Index: idx})
	}
	return exports, nil
}

type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) byte() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, errTruncated
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) u32() (uint32, error) {
	v, n, err := DecodeULEB128(c.data[c.pos:])
	if err != nil {
		return 0, err
	}
	c.pos += n
	return v, nil
}

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.data) {
		return nil, errTruncated
	}
	out := c.data[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

func (c *cursor) name() (string, error) {
	n, err := c.u32()
	if err != nil {
		return "", err
	}
	b, err := c.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *cursor) limits() error {
	flags, err := c.byte()
	if err != nil {
		return err
	}
	if _, err := c.u32(); err != nil {
		return err
	}
	if flags&0x01 != 0 {
		if _, err := c.u32(); err != nil {
			return err
		}
	}
	return nil
}

// skipDesc advances past an import descriptor of the given kind
func (c *cursor) skipDesc(kind ExternKind) error {
	switch kind {
	case ExternFunc:
		_, err := c.u32()
		return err
	case ExternTable:
		if _, err := c.byte(); err != nil {
			return err
		}
		return c.limits()
	case ExternMemory:
		return c.limits()
	case ExternGlobal:
		_, err := c.take(2)
		return err
	case ExternTag:
		if _, err := c.byte(); err != nil {
			return err
		}
		_, err := c.u32()
		return err
	default:
		return fmt.Errorf("unknown import kind 0x%02x", byte(kind))
	}
}
