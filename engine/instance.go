package engine

import (
	"context"
	"sort"

	"github.com/tetratelabs/wazero/api"
)

// Extern is one export of a core instance: the kind, the wazero module
// that owns the definition and the name it is exported under there.
type Extern struct {
	Module api.Module
	Name   string
	Kind   ExternKind
}

// Function returns the exported function, or nil if the extern is not one.
func (x Extern) Function() api.Function {
	if x.Kind != ExternFunc || x.Module == nil {
		return nil
	}
	return x.Module.ExportedFunction(x.Name)
}

// Memory returns the exported memory, or nil if the extern is not one.
func (x Extern) Memory() api.Memory {
	if x.Kind != ExternMemory || x.Module == nil {
		return nil
	}
	return x.Module.ExportedMemory(x.Name)
}

// Global returns the exported global, or nil if the extern is not one.
func (x Extern) Global() api.Global {
	if x.Kind != ExternGlobal || x.Module == nil {
		return nil
	}
	return x.Module.ExportedGlobal(x.Name)
}

// CoreInstance is a named set of externs. Instantiated modules and host
// modules own a wazero module; a reexporter only forwards externs owned
// by other instances.
type CoreInstance struct {
	module  api.Module
	exports map[string]Extern
}

// NewReexporter builds an instance that exposes exports under new names
// without instantiating anything.
func NewReexporter(exports map[string]Extern) *CoreInstance {
	inst := &CoreInstance{exports: make(map[string]Extern, len(exports))}
	for name, ext := range exports {
		inst.exports[name] = ext
	}
	return inst
}

// Export looks up an export by name.
func (c *CoreInstance) Export(name string) (Extern, bool) {
	ext, ok := c.exports[name]
	return ext, ok
}

// ExportNames returns the export names in sorted order.
func (c *CoreInstance) ExportNames() []string {
	names := make([]string, 0, len(c.exports))
	for name := range c.exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Module returns the owned wazero module, or nil for a reexporter.
func (c *CoreInstance) Module() api.Module {
	return c.module
}

// Close closes the owned wazero module. Reexporters own nothing.
func (c *CoreInstance) Close(ctx context.Context) error {
	if c.module == nil {
		return nil
	}
	return c.module.Close(ctx)
}
