package component

import (
	"github.com/wippyai/wasm-component/errors"
)

// Core instance kinds in section 2
const (
	coreInstanceInstantiate byte = 0x00
	coreInstanceFromExports byte = 0x01
)

// coreInstances parses section 2 containing vec(core:instance)
func (d *decoder) coreInstances(r *reader) error {
	count, err := r.count("core instance")
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		inst, err := d.coreInstance(r)
		if err != nil {
			return err
		}
		d.desc.CoreInstances = append(d.desc.CoreInstances, inst)
	}
	return nil
}

func (d *decoder) coreInstance(r *reader) (CoreInstance, error) {
	start := r.offset()
	kind, err := r.byte()
	if err != nil {
		return CoreInstance{}, err
	}
	self := uint32(len(d.desc.CoreInstances))

	switch kind {
	case coreInstanceInstantiate:
		// instantiate: module-index:u32 args:vec<(name, 0x12, instanceidx)>
		modIdx, err := r.u32()
		if err != nil {
			return CoreInstance{}, err
		}
		if int(modIdx) >= len(d.desc.Modules) {
			return CoreInstance{}, errors.Decode(start, "core instance %d: module %d not defined", self, modIdx)
		}
		argCount, err := r.count("instantiate arg")
		if err != nil {
			return CoreInstance{}, err
		}
		inst := CoreInstance{Kind: CoreInstanceModule, Module: modIdx, Args: make([]InstantiateArg, argCount)}
		for i := range inst.Args {
			name, err := r.name()
			if err != nil {
				return CoreInstance{}, err
			}
			if err := r.expect(byte(CoreSortInst), "instantiate arg kind"); err != nil {
				return CoreInstance{}, err
			}
			argOffset := r.offset()
			idx, err := r.u32()
			if err != nil {
				return CoreInstance{}, err
			}
			if idx >= self {
				return CoreInstance{}, errors.Decode(argOffset, "core instance %d: arg %q references instance %d which is not yet defined", self, name, idx)
			}
			inst.Args[i] = InstantiateArg{Name: name, Instance: idx}
		}
		return inst, nil

	case coreInstanceFromExports:
		// from-exports: vec<(name, sortidx)>
		exportCount, err := r.count("core instance export")
		if err != nil {
			return CoreInstance{}, err
		}
		inst := CoreInstance{Kind: CoreInstanceReexporter, Exports: make([]CoreSortExport, exportCount)}
		for i := range inst.Exports {
			name, err := r.name()
			if err != nil {
				return CoreInstance{}, err
			}
			sortOffset := r.offset()
			sort, err := r.byte()
			if err != nil {
				return CoreInstance{}, err
			}
			switch CoreSort(sort) {
			case CoreSortFunc, CoreSortTable, CoreSortMemory, CoreSortGlobal:
			default:
				return CoreInstance{}, errors.Decode(sortOffset, "core instance %d: export %q has unsupported sort %s", self, name, CoreSort(sort))
			}
			idx, err := r.u32()
			if err != nil {
				return CoreInstance{}, err
			}
			inst.Exports[i] = CoreSortExport{Name: name, Sort: CoreSort(sort), Index: idx}
		}
		return inst, nil

	default:
		return CoreInstance{}, errors.Decode(start, "unknown core instance kind 0x%02x", kind)
	}
}
