package runtime

import (
	"context"

	"github.com/wippyai/wasm-component/engine"
	"github.com/wippyai/wasm-component/errors"
	"github.com/wippyai/wasm-component/linker"
)

// Instance is an instantiated component or core module.
// It is NOT safe for concurrent use.
type Instance struct {
	component *linker.Instance
	core      *engine.CoreInstance
}

// Exports returns a copy of the export table. Component exports are
// *engine.Module or linker.Callable values; core module exports are
// engine.Extern values.
func (i *Instance) Exports() map[string]any {
	if i.component != nil {
		return i.component.Exports()
	}
	out := make(map[string]any)
	for _, name := range i.core.ExportNames() {
		out[name], _ = i.core.Export(name)
	}
	return out
}

// Export looks up one export by name.
func (i *Instance) Export(name string) (any, bool) {
	if i.component != nil {
		return i.component.Export(name)
	}
	ext, ok := i.core.Export(name)
	if !ok {
		return nil, false
	}
	return ext, true
}

// Func returns the component function exported as name.
func (i *Instance) Func(name string) (linker.Callable, bool) {
	if i.component == nil {
		return nil, false
	}
	v, ok := i.component.Export(name)
	if !ok {
		return nil, false
	}
	fn, ok := v.(linker.Callable)
	return fn, ok
}

// Call calls the component function exported as name.
func (i *Instance) Call(ctx context.Context, name string, args ...any) (any, error) {
	fn, ok := i.Func(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseRuntime, "function export", name)
	}
	return fn.Call(ctx, args...)
}

// Module returns the core module exported as name.
func (i *Instance) Module(name string) (*engine.Module, bool) {
	if i.component == nil {
		return nil, false
	}
	v, ok := i.component.Export(name)
	if !ok {
		return nil, false
	}
	m, ok := v.(*engine.Module)
	return m, ok
}

// Core returns the core instance of a core module instance, or nil for a
// component.
func (i *Instance) Core() *engine.CoreInstance {
	return i.core
}

// Component returns the linked component instance, or nil for a core
// module.
func (i *Instance) Component() *linker.Instance {
	return i.component
}

// Close releases the instance.
func (i *Instance) Close(ctx context.Context) error {
	if i.component != nil {
		return i.component.Close(ctx)
	}
	return i.core.Close(ctx)
}
