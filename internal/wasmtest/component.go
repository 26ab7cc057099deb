package wasmtest

import "bytes"

// Primitive value type bytes
const (
	Bool    byte = 0x7f
	S8      byte = 0x7e
	U8      byte = 0x7d
	S16     byte = 0x7c
	U16     byte = 0x7b
	S32     byte = 0x7a
	U32     byte = 0x79
	S64     byte = 0x78
	U64     byte = 0x77
	Float32 byte = 0x76
	Float64 byte = 0x75
	Char    byte = 0x74
	String  byte = 0x73
)

// Core sorts
const (
	CoreFunc   byte = 0x00
	CoreTable  byte = 0x01
	CoreMemory byte = 0x02
	CoreGlobal byte = 0x03
	CoreModule byte = 0x11
)

// Prim encodes a primitive valtype
func Prim(b byte) []byte { return []byte{b} }

// TypeIdx encodes a valtype referencing the type table
func TypeIdx(i uint32) []byte { return sleb(int64(i)) }

// Canon options
func OptUTF8() []byte               { return []byte{0x00} }
func OptUTF16() []byte              { return []byte{0x01} }
func OptLatin1UTF16() []byte        { return []byte{0x02} }
func OptMemory(i uint32) []byte     { return append([]byte{0x03}, uleb(i)...) }
func OptRealloc(i uint32) []byte    { return append([]byte{0x04}, uleb(i)...) }
func OptPostReturn(i uint32) []byte { return append([]byte{0x05}, uleb(i)...) }

// Param is a labeled function parameter
type Param struct {
	Name string
	Type []byte
}

// Arg is a core instantiation argument
type Arg struct {
	Name     string
	Instance uint32
}

// SortExport is an export of a from-exports core instance
type SortExport struct {
	Name  string
	Sort  byte
	Index uint32
}

// Component assembles a component binary, one section per call
type Component struct {
	buf bytes.Buffer
}

// NewComponent creates a component builder with the component header
func NewComponent() *Component {
	c := &Component{}
	c.buf.Write([]byte{0x00, 0x61, 0x73, 0x6d, 0x0d, 0x00, 0x01, 0x00})
	return c
}

// Raw appends a section with an arbitrary payload
func (c *Component) Raw(id byte, payload []byte) *Component {
	c.buf.WriteByte(id)
	c.buf.Write(uleb(uint32(len(payload))))
	c.buf.Write(payload)
	return c
}

func (c *Component) vec1(id byte, item []byte) *Component {
	return c.Raw(id, append([]byte{0x01}, item...))
}

// CoreModule embeds a core module
func (c *Component) CoreModule(module []byte) *Component {
	return c.Raw(1, module)
}

// Instantiate adds a core instance of module with named instance args
func (c *Component) Instantiate(module uint32, args ...Arg) *Component {
	item := []byte{0x00}
	item = append(item, uleb(module)...)
	item = append(item, uleb(uint32(len(args)))...)
	for _, a := range args {
		item = appendName(item, a.Name)
		item = append(item, 0x12)
		item = append(item, uleb(a.Instance)...)
	}
	return c.vec1(2, item)
}

// FromExports adds a reexporter core instance
func (c *Component) FromExports(exports ...SortExport) *Component {
	item := []byte{0x01}
	item = append(item, uleb(uint32(len(exports)))...)
	for _, e := range exports {
		item = appendName(item, e.Name)
		item = append(item, e.Sort)
		item = append(item, uleb(e.Index)...)
	}
	return c.vec1(2, item)
}

// AliasCoreExport aliases an export of a core instance into the sort's index space
func (c *Component) AliasCoreExport(sort byte, instance uint32, name string) *Component {
	item := []byte{0x00, sort, 0x01}
	item = append(item, uleb(instance)...)
	item = appendName(item, name)
	return c.vec1(6, item)
}

// PrimType defines a value type equal to a primitive
func (c *Component) PrimType(b byte) *Component {
	return c.vec1(7, []byte{b})
}

// FuncType defines a function type. A nil result means no result.
func (c *Component) FuncType(params []Param, result []byte) *Component {
	item := []byte{0x40}
	item = append(item, uleb(uint32(len(params)))...)
	for _, p := range params {
		item = appendName(item, p.Name)
		item = append(item, p.Type...)
	}
	if result == nil {
		item = append(item, 0x01, 0x00)
	} else {
		item = append(item, 0x00)
		item = append(item, result...)
	}
	return c.vec1(7, item)
}

// ImportModule imports a core module by name
func (c *Component) ImportModule(name string, coreType uint32) *Component {
	item := appendName([]byte{0x00}, name)
	item = append(item, 0x00, 0x11)
	item = append(item, uleb(coreType)...)
	return c.vec1(10, item)
}

// ImportFunc imports a component function of the given type
func (c *Component) ImportFunc(name string, typeIdx uint32) *Component {
	item := appendName([]byte{0x00}, name)
	item = append(item, 0x01)
	item = append(item, uleb(typeIdx)...)
	return c.vec1(10, item)
}

// Lift lifts a core function into a component function
func (c *Component) Lift(coreFunc, typeIdx uint32, opts ...[]byte) *Component {
	item := []byte{0x00, 0x00}
	item = append(item, uleb(coreFunc)...)
	item = appendOpts(item, opts)
	item = append(item, uleb(typeIdx)...)
	return c.vec1(8, item)
}

// Lower lowers a component function into a core function
func (c *Component) Lower(fn uint32, opts ...[]byte) *Component {
	item := []byte{0x01, 0x00}
	item = append(item, uleb(fn)...)
	item = appendOpts(item, opts)
	return c.vec1(8, item)
}

// ExportFunc exports a component function
func (c *Component) ExportFunc(name string, fn uint32) *Component {
	item := appendName([]byte{0x00}, name)
	item = append(item, 0x01)
	item = append(item, uleb(fn)...)
	item = append(item, 0x00)
	return c.vec1(11, item)
}

// ExportModule exports a core module
func (c *Component) ExportModule(name string, module uint32) *Component {
	item := appendName([]byte{0x00}, name)
	item = append(item, 0x00, 0x11)
	item = append(item, uleb(module)...)
	item = append(item, 0x00)
	return c.vec1(11, item)
}

// Bytes returns the encoded component
func (c *Component) Bytes() []byte {
	return bytes.Clone(c.buf.Bytes())
}

func appendOpts(item []byte, opts [][]byte) []byte {
	item = append(item, uleb(uint32(len(opts)))...)
	for _, o := range opts {
		item = append(item, o...)
	}
	return item
}
