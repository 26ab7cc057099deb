// Package graph checks the core instance ordering of a component.
//
// Core instances are created strictly in definition order, so every
// instantiation argument and every reexported alias has to name an
// instance defined earlier. Build verifies that once per component and
// records what each instance depends on, together with the imports the
// host has to provide.
package graph

import (
	"github.com/wippyai/wasm-component/component"
	"github.com/wippyai/wasm-component/errors"
)

// Import is a top-level import the host must supply.
type Import struct {
	Name string
	Sort component.ExportSort
}

// Graph is the validated dependency graph of one component.
// It is immutable after Build and safe for concurrent reads.
type Graph struct {
	imports []Import
	deps    [][]uint32
}

// Build validates d and returns its dependency graph.
// A reference to an instance that is not strictly earlier is an
// internal-consistency error.
func Build(d *component.Description) (*Graph, error) {
	g := &Graph{deps: make([][]uint32, len(d.CoreInstances))}

	// exports re-append their item, so an import can appear twice
	seen := make(map[Import]bool)
	add := func(imp Import) {
		if !seen[imp] {
			seen[imp] = true
			g.imports = append(g.imports, imp)
		}
	}
	for _, m := range d.Modules {
		if m.Kind == component.ModuleImported {
			add(Import{Name: m.Name, Sort: component.ExportModule})
		}
	}
	for _, f := range d.Funcs {
		if f.Kind == component.FuncImported {
			add(Import{Name: f.Name, Sort: component.ExportFunc})
		}
	}

	// aliases are resolved lazily by lifted functions and canon options,
	// so they only have to name an existing instance
	total := uint32(len(d.CoreInstances))
	for _, table := range [][]component.CoreExport{d.Tables, d.Memories, d.Globals} {
		for _, alias := range table {
			if alias.Instance >= total {
				return nil, errors.Internal(errors.PhaseLinking, "alias %q references core instance %d, only %d defined", alias.Name, alias.Instance, total)
			}
		}
	}
	for i, cf := range d.CoreFuncs {
		if cf.Kind == component.CoreFuncAliased && cf.Alias.Instance >= total {
			return nil, errors.Internal(errors.PhaseLinking, "core func %d references core instance %d, only %d defined", i, cf.Alias.Instance, total)
		}
	}

	for i, ci := range d.CoreInstances {
		deps, err := instanceDeps(d, uint32(i), ci)
		if err != nil {
			return nil, err
		}
		g.deps[i] = deps
	}
	return g, nil
}

func instanceDeps(d *component.Description, idx uint32, ci component.CoreInstance) ([]uint32, error) {
	var deps []uint32
	earlier := func(dep uint32, what string) error {
		if dep >= idx {
			return errors.Internal(errors.PhaseLinking, "core instance %d: %s references core instance %d, which is not defined before it", idx, what, dep)
		}
		deps = appendUnique(deps, dep)
		return nil
	}

	switch ci.Kind {
	case component.CoreInstanceModule:
		if int(ci.Module) >= len(d.Modules) {
			return nil, errors.Internal(errors.PhaseLinking, "core instance %d instantiates module %d, only %d defined", idx, ci.Module, len(d.Modules))
		}
		for _, arg := range ci.Args {
			if err := earlier(arg.Instance, "argument "+arg.Name); err != nil {
				return nil, err
			}
		}
	case component.CoreInstanceReexporter:
		for _, exp := range ci.Exports {
			alias, ok, err := sortAlias(d, exp)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if err := earlier(alias.Instance, "export "+exp.Name); err != nil {
				return nil, err
			}
		}
	}
	return deps, nil
}

// sortAlias returns the aliased export behind a reexported item. Lowered
// core functions have none.
func sortAlias(d *component.Description, exp component.CoreSortExport) (component.CoreExport, bool, error) {
	var table []component.CoreExport
	switch exp.Sort {
	case component.CoreSortFunc:
		if int(exp.Index) >= len(d.CoreFuncs) {
			return component.CoreExport{}, false, errors.Internal(errors.PhaseLinking, "export %q: core func %d out of range", exp.Name, exp.Index)
		}
		cf := d.CoreFuncs[exp.Index]
		if cf.Kind == component.CoreFuncLowered {
			return component.CoreExport{}, false, nil
		}
		return cf.Alias, true, nil
	case component.CoreSortTable:
		table = d.Tables
	case component.CoreSortMemory:
		table = d.Memories
	case component.CoreSortGlobal:
		table = d.Globals
	default:
		return component.CoreExport{}, false, errors.Unsupported(errors.PhaseLinking, "reexport of core sort "+exp.Sort.String())
	}
	if int(exp.Index) >= len(table) {
		return component.CoreExport{}, false, errors.Internal(errors.PhaseLinking, "export %q: core %s %d out of range", exp.Name, exp.Sort, exp.Index)
	}
	return table[exp.Index], true, nil
}

func appendUnique(deps []uint32, dep uint32) []uint32 {
	for _, d := range deps {
		if d == dep {
			return deps
		}
	}
	return append(deps, dep)
}

// Imports returns the imports the host must provide, modules first.
func (g *Graph) Imports() []Import {
	out := make([]Import, len(g.imports))
	copy(out, g.imports)
	return out
}

// Deps returns the core instances that instance idx depends on.
func (g *Graph) Deps(idx int) []uint32 {
	if idx < 0 || idx >= len(g.deps) {
		return nil
	}
	return g.deps[idx]
}

// Len returns the number of core instances.
func (g *Graph) Len() int {
	return len(g.deps)
}
