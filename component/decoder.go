package component

import (
	"bytes"
	"encoding/binary"

	"github.com/wippyai/wasm-component/errors"
)

// Section ids of the component binary format
const (
	SectionCustom       byte = 0
	SectionCoreModule   byte = 1
	SectionCoreInstance byte = 2
	SectionCoreType     byte = 3
	SectionComponent    byte = 4
	SectionInstance     byte = 5
	SectionAlias        byte = 6
	SectionType         byte = 7
	SectionCanon        byte = 8
	SectionStart        byte = 9
	SectionImport       byte = 10
	SectionExport       byte = 11
)

// externDesc kinds
const (
	ExternCoreModule byte = 0x00
	ExternFunc       byte = 0x01
	ExternValue      byte = 0x02
	ExternType       byte = 0x03
	ExternComponent  byte = 0x04
	ExternInstance   byte = 0x05
)

// Sort kinds
const (
	SortCore      byte = 0x00
	SortFunc      byte = 0x01
	SortValue     byte = 0x02
	SortType      byte = 0x03
	SortComponent byte = 0x04
	SortInstance  byte = 0x05
)

const (
	componentVersion = 0x0d
	componentLayer   = 1
	maxSections      = 100000
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6D}

// IsComponent reports whether data starts with a component header
func IsComponent(data []byte) bool {
	if len(data) < 8 || !bytes.Equal(data[:4], wasmMagic) {
		return false
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	return version > 1
}

// Decode parses a component binary into a Description.
// A core module yields (nil, nil); malformed input yields *errors.DecodeError.
func Decode(data []byte) (*Description, error) {
	if len(data) < 8 {
		return nil, errors.Decode(uint32(len(data)), "input too short for header")
	}
	if !bytes.Equal(data[:4], wasmMagic) {
		return nil, errors.Decode(0, "bad magic number")
	}
	version := binary.LittleEndian.Uint16(data[4:6])
	layer := binary.LittleEndian.Uint16(data[6:8])
	if layer == 0 && version == 1 {
		return nil, nil
	}
	if layer != componentLayer {
		return nil, errors.Decode(6, "unknown layer %d", layer)
	}
	if version != componentVersion {
		return nil, errors.Decode(4, "unsupported component version 0x%x", version)
	}

	d := &decoder{desc: &Description{}}
	r := getReader(data[8:], 8)
	defer putReader(r)

	for sections := 0; !r.eof(); sections++ {
		if sections >= maxSections {
			return nil, r.fail("exceeded maximum section count %d", maxSections)
		}

		idOffset := r.offset()
		id, err := r.byte()
		if err != nil {
			return nil, err
		}
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		payloadOffset := r.offset()
		payload, err := r.bytes(size)
		if err != nil {
			return nil, errors.Decode(payloadOffset, "section %d size %d exceeds component size", id, size)
		}

		if err := d.section(id, idOffset, payload, payloadOffset); err != nil {
			return nil, err
		}
	}

	return d.desc, nil
}

// decoder accumulates index spaces while walking sections
type decoder struct {
	desc *Description
}

func (d *decoder) section(id byte, idOffset uint32, payload []byte, base uint32) error {
	switch id {
	case SectionCustom, SectionCoreType:
		return nil
	case SectionCoreModule:
		d.desc.Modules = append(d.desc.Modules, Module{Kind: ModuleInline, Bytes: bytes.Clone(payload)})
		return nil
	case SectionComponent:
		return errors.Decode(idOffset, "nested components are not supported")
	case SectionInstance:
		return errors.Decode(idOffset, "component instances are not supported")
	case SectionStart:
		return errors.Decode(idOffset, "component start functions are not supported")
	}

	r := getReader(payload, base)
	defer putReader(r)

	var err error
	switch id {
	case SectionCoreInstance:
		err = d.coreInstances(r)
	case SectionAlias:
		err = d.aliases(r)
	case SectionType:
		err = d.types(r)
	case SectionCanon:
		err = d.canons(r)
	case SectionImport:
		err = d.imports(r)
	case SectionExport:
		err = d.exports(r)
	default:
		return errors.Decode(idOffset, "unknown section id %d", id)
	}
	if err != nil {
		return err
	}
	if !r.eof() {
		return r.fail("section %d has %d trailing bytes", id, r.remaining())
	}
	return nil
}

func (d *decoder) aliases(r *reader) error {
	count, err := r.count("alias")
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		start := r.offset()
		sort, err := r.byte()
		if err != nil {
			return err
		}
		var coreSort byte
		if sort == SortCore {
			if coreSort, err = r.byte(); err != nil {
				return err
			}
		}
		target, err := r.byte()
		if err != nil {
			return err
		}

		switch target {
		case 0x01: // core instance export
		case 0x00:
			return errors.Decode(start, "alias %d: component instance export aliases are not supported", i)
		case 0x02:
			return errors.Decode(start, "alias %d: outer aliases are not supported", i)
		default:
			return errors.Decode(start, "alias %d: unknown target kind 0x%02x", i, target)
		}
		if sort != SortCore {
			return errors.Decode(start, "alias %d: core export alias with non-core sort 0x%02x", i, sort)
		}

		inst, err := r.u32()
		if err != nil {
			return err
		}
		if int(inst) >= len(d.desc.CoreInstances) {
			return errors.Decode(start, "alias %d: core instance %d not defined", i, inst)
		}
		name, err := r.name()
		if err != nil {
			return err
		}
		ref := CoreExport{Instance: inst, Name: name}

		switch CoreSort(coreSort) {
		case CoreSortFunc:
			d.desc.CoreFuncs = append(d.desc.CoreFuncs, CoreFunc{Kind: CoreFuncAliased, Alias: ref})
		case CoreSortTable:
			d.desc.Tables = append(d.desc.Tables, ref)
		case CoreSortMemory:
			d.desc.Memories = append(d.desc.Memories, ref)
		case CoreSortGlobal:
			d.desc.Globals = append(d.desc.Globals, ref)
		default:
			return errors.Decode(start, "alias %d: core sort %s is not supported", i, CoreSort(coreSort))
		}
	}
	return nil
}

func (d *decoder) imports(r *reader) error {
	count, err := r.count("import")
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		name, err := r.externName()
		if err != nil {
			return err
		}
		start := r.offset()
		kind, idx, err := r.externDesc()
		if err != nil {
			return err
		}

		switch kind {
		case ExternCoreModule:
			d.desc.Modules = append(d.desc.Modules, Module{Kind: ModuleImported, Name: name})
		case ExternFunc:
			ft, err := d.funcType(idx, start)
			if err != nil {
				return err
			}
			d.desc.Funcs = append(d.desc.Funcs, Func{Kind: FuncImported, Name: name, TypeIndex: idx, Type: ft})
		default:
			return errors.Decode(start, "import %q: extern kind 0x%02x is not supported", name, kind)
		}
	}
	return nil
}

func (d *decoder) exports(r *reader) error {
	count, err := r.count("export")
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		name, err := r.externName()
		if err != nil {
			return err
		}
		start := r.offset()
		sort, err := r.byte()
		if err != nil {
			return err
		}
		var coreSort byte
		if sort == SortCore {
			if coreSort, err = r.byte(); err != nil {
				return err
			}
		}
		idx, err := r.u32()
		if err != nil {
			return err
		}

		hasType, err := r.byte()
		if err != nil {
			return err
		}
		switch hasType {
		case 0x00:
		case 0x01:
			if _, _, err := r.externDesc(); err != nil {
				return err
			}
		default:
			return errors.Decode(start, "export %q: bad type ascription flag 0x%02x", name, hasType)
		}

		// exports introduce a new index in their sort's space
		switch {
		case sort == SortCore && CoreSort(coreSort) == CoreSortModule:
			if int(idx) >= len(d.desc.Modules) {
				return errors.Decode(start, "export %q: module %d not defined", name, idx)
			}
			d.desc.Exports = append(d.desc.Exports, Export{Name: name, Sort: ExportModule, Index: idx})
			d.desc.Modules = append(d.desc.Modules, d.desc.Modules[idx])
		case sort == SortFunc:
			if int(idx) >= len(d.desc.Funcs) {
				return errors.Decode(start, "export %q: func %d not defined", name, idx)
			}
			d.desc.Exports = append(d.desc.Exports, Export{Name: name, Sort: ExportFunc, Index: idx})
			d.desc.Funcs = append(d.desc.Funcs, d.desc.Funcs[idx])
		default:
			return errors.Decode(start, "export %q: sort 0x%02x is not supported", name, sort)
		}
	}
	return nil
}

// externDesc reads an extern descriptor and returns its kind and index
func (r *reader) externDesc() (byte, uint32, error) {
	start := r.offset()
	kind, err := r.byte()
	if err != nil {
		return 0, 0, err
	}
	switch kind {
	case ExternCoreModule:
		if err := r.expect(byte(CoreSortModule), "core module extern"); err != nil {
			return 0, 0, err
		}
	case ExternFunc, ExternComponent, ExternInstance:
	case ExternType:
		bound, err := r.byte()
		if err != nil {
			return 0, 0, err
		}
		switch bound {
		case 0x00:
		case 0x01:
			return kind, 0, nil
		default:
			return 0, 0, errors.Decode(start, "unknown type bound 0x%02x", bound)
		}
	default:
		return 0, 0, errors.Decode(start, "extern kind 0x%02x is not supported", kind)
	}
	idx, err := r.u32()
	if err != nil {
		return 0, 0, err
	}
	return kind, idx, nil
}

// funcType returns an annotated copy of the function type at idx
func (d *decoder) funcType(idx uint32, at uint32) (FuncType, error) {
	res := NewTypeResolver(d.desc.Types)
	def, err := res.FuncType(idx)
	if err != nil {
		return FuncType{}, errors.Decode(at, "%v", err)
	}

	ft := FuncType{
		Params: make([]Param, len(def.Params)),
		Result: def.Result,
	}
	copy(ft.Params, def.Params)

	kinds := make([]ValueKind, len(ft.Params))
	for i, p := range ft.Params {
		if kinds[i], err = res.Resolve(p.Type); err != nil {
			return FuncType{}, errors.Decode(at, "%v", err)
		}
	}
	result, err := res.Resolve(ft.Result.Type)
	if err != nil {
		return FuncType{}, errors.Decode(at, "%v", err)
	}
	annotate(&ft, kinds, result)
	return ft, nil
}
