package engine

import (
	"context"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/wasm-component/engine/internal/wasm"
)

// ExternKind is the kind of a core import or export.
type ExternKind = wasm.ExternKind

const (
	ExternFunc   = wasm.ExternFunc
	ExternTable  = wasm.ExternTable
	ExternMemory = wasm.ExternMemory
	ExternGlobal = wasm.ExternGlobal
)

// Import is a core module import.
type Import = wasm.Import

// Export is a core module export.
type Export = wasm.Export

// Module is a compiled core module. It can be instantiated any number of
// times, each time against a different set of imports.
type Module struct {
	compiled wazero.CompiledModule
	info     *wasm.Info
	data     []byte
}

// Imports lists the module's imports in declaration order.
func (m *Module) Imports() []Import {
	return m.info.Imports
}

// Exports lists the module's exports in declaration order.
func (m *Module) Exports() []Export {
	return m.info.Exports
}

// Bytes returns the module binary.
func (m *Module) Bytes() []byte {
	return m.data
}

// Close releases the compiled code.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}
