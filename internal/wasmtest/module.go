// Package wasmtest builds core module and component binaries for tests.
package wasmtest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// ValType is a core value type byte
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

// Export kinds
const (
	KindFunc   byte = 0x00
	KindTable  byte = 0x01
	KindMemory byte = 0x02
	KindGlobal byte = 0x03
)

type funcType struct {
	params  []ValType
	results []ValType
}

type function struct {
	locals []ValType
	body   []byte
	typ    uint32
}

type global struct {
	init    []byte
	typ     ValType
	mutable bool
}

type export struct {
	name  string
	kind  byte
	index uint32
}

type dataSegment struct {
	bytes  []byte
	offset uint32
}

// Module assembles a core module binary
type Module struct {
	start       *uint32
	types       []funcType
	imports     [][]byte
	funcs       []function
	memories    []uint32
	globals     []global
	exports     []export
	data        []dataSegment
	importFuncs uint32
	importMems  uint32
	importGlobs uint32
}

// NewModule creates an empty module builder
func NewModule() *Module {
	return &Module{}
}

// Type returns the index of the function type, adding it if needed
func (m *Module) Type(params, results []ValType) uint32 {
	for i, t := range m.types {
		if bytes.Equal(vt(t.params), vt(params)) && bytes.Equal(vt(t.results), vt(results)) {
			return uint32(i)
		}
	}
	m.types = append(m.types, funcType{params: params, results: results})
	return uint32(len(m.types) - 1)
}

// ImportFunc adds a function import. Imports must precede defined functions.
func (m *Module) ImportFunc(mod, name string, params, results []ValType) uint32 {
	typ := m.Type(params, results)
	imp := appendName(appendName(nil, mod), name)
	imp = append(imp, KindFunc)
	imp = append(imp, uleb(typ)...)
	m.imports = append(m.imports, imp)
	m.importFuncs++
	return m.importFuncs - 1
}

// ImportMemory adds a memory import with the given minimum pages
func (m *Module) ImportMemory(mod, name string, minPages uint32) uint32 {
	imp := appendName(appendName(nil, mod), name)
	imp = append(imp, KindMemory, 0x00)
	imp = append(imp, uleb(minPages)...)
	m.imports = append(m.imports, imp)
	m.importMems++
	return m.importMems - 1
}

// ImportGlobal adds a global import
func (m *Module) ImportGlobal(mod, name string, t ValType, mutable bool) uint32 {
	imp := appendName(appendName(nil, mod), name)
	imp = append(imp, KindGlobal, byte(t), boolByte(mutable))
	m.imports = append(m.imports, imp)
	m.importGlobs++
	return m.importGlobs - 1
}

// Func defines a function and returns its index in the function space.
// The trailing end opcode is appended automatically.
func (m *Module) Func(params, results, locals []ValType, body ...[]byte) uint32 {
	m.funcs = append(m.funcs, function{
		typ:    m.Type(params, results),
		locals: locals,
		body:   bytes.Join(body, nil),
	})
	return m.importFuncs + uint32(len(m.funcs)-1)
}

// Memory defines a memory with the given minimum pages
func (m *Module) Memory(minPages uint32) uint32 {
	m.memories = append(m.memories, minPages)
	return m.importMems + uint32(len(m.memories)-1)
}

// Global defines a global initialized with an i32 or i64 constant
func (m *Module) Global(t ValType, mutable bool, init int64) uint32 {
	var expr []byte
	switch t {
	case I64:
		expr = append([]byte{0x42}, sleb(init)...)
	case F32:
		expr = binary.LittleEndian.AppendUint32([]byte{0x43}, math.Float32bits(float32(init)))
	case F64:
		expr = binary.LittleEndian.AppendUint64([]byte{0x44}, math.Float64bits(float64(init)))
	default:
		expr = append([]byte{0x41}, sleb(init)...)
	}
	m.globals = append(m.globals, global{typ: t, mutable: mutable, init: expr})
	return m.importGlobs + uint32(len(m.globals)-1)
}

// Export exports the item of the given kind and index
func (m *Module) Export(name string, kind byte, index uint32) {
	m.exports = append(m.exports, export{name: name, kind: kind, index: index})
}

// Data adds an active data segment for memory 0
func (m *Module) Data(offset uint32, b []byte) {
	m.data = append(m.data, dataSegment{offset: offset, bytes: b})
}

// Start sets the start function
func (m *Module) Start(fn uint32) {
	m.start = &fn
}

// Bytes encodes the module
func (m *Module) Bytes() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	if len(m.types) > 0 {
		sec := uleb(uint32(len(m.types)))
		for _, t := range m.types {
			sec = append(sec, 0x60)
			sec = append(sec, uleb(uint32(len(t.params)))...)
			sec = append(sec, vt(t.params)...)
			sec = append(sec, uleb(uint32(len(t.results)))...)
			sec = append(sec, vt(t.results)...)
		}
		out = appendSection(out, 1, sec)
	}

	if len(m.imports) > 0 {
		sec := uleb(uint32(len(m.imports)))
		for _, imp := range m.imports {
			sec = append(sec, imp...)
		}
		out = appendSection(out, 2, sec)
	}

	if len(m.funcs) > 0 {
		sec := uleb(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			sec = append(sec, uleb(f.typ)...)
		}
		out = appendSection(out, 3, sec)
	}

	if len(m.memories) > 0 {
		sec := uleb(uint32(len(m.memories)))
		for _, min := range m.memories {
			sec = append(sec, 0x00)
			sec = append(sec, uleb(min)...)
		}
		out = appendSection(out, 5, sec)
	}

	if len(m.globals) > 0 {
		sec := uleb(uint32(len(m.globals)))
		for _, g := range m.globals {
			sec = append(sec, byte(g.typ), boolByte(g.mutable))
			sec = append(sec, g.init...)
			sec = append(sec, 0x0b)
		}
		out = appendSection(out, 6, sec)
	}

	if len(m.exports) > 0 {
		sec := uleb(uint32(len(m.exports)))
		for _, e := range m.exports {
			sec = appendName(sec, e.name)
			sec = append(sec, e.kind)
			sec = append(sec, uleb(e.index)...)
		}
		out = appendSection(out, 7, sec)
	}

	if m.start != nil {
		out = appendSection(out, 8, uleb(*m.start))
	}

	if len(m.funcs) > 0 {
		sec := uleb(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			var body []byte
			body = append(body, uleb(uint32(len(f.locals)))...)
			for _, l := range f.locals {
				body = append(body, 0x01, byte(l))
			}
			body = append(body, f.body...)
			body = append(body, 0x0b)
			sec = append(sec, uleb(uint32(len(body)))...)
			sec = append(sec, body...)
		}
		out = appendSection(out, 10, sec)
	}

	if len(m.data) > 0 {
		sec := uleb(uint32(len(m.data)))
		for _, d := range m.data {
			sec = append(sec, 0x00, 0x41)
			sec = append(sec, sleb(int64(int32(d.offset)))...)
			sec = append(sec, 0x0b)
			sec = append(sec, uleb(uint32(len(d.bytes)))...)
			sec = append(sec, d.bytes...)
		}
		out = appendSection(out, 11, sec)
	}

	return out
}

func vt(ts []ValType) []byte {
	out := make([]byte, len(ts))
	for i, t := range ts {
		out[i] = byte(t)
	}
	return out
}

func boolByte(b bool) byte {
	if b {
		return 0x01
	}
	return 0x00
}

func appendSection(out []byte, id byte, body []byte) []byte {
	out = append(out, id)
	out = append(out, uleb(uint32(len(body)))...)
	return append(out, body...)
}

func appendName(buf []byte, s string) []byte {
	buf = append(buf, uleb(uint32(len(s)))...)
	return append(buf, s...)
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
