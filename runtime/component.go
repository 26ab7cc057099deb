package runtime

import (
	"context"

	"github.com/wippyai/wasm-component/component"
	"github.com/wippyai/wasm-component/linker"
)

// Component is a compiled component. It is safe for concurrent use and
// can be instantiated any number of times.
type Component struct {
	runtime *Runtime
	plan    *linker.Plan
}

// Resolved returns the component's resolved description.
func (c *Component) Resolved() *component.Resolved {
	return c.plan.Resolved()
}

// Imports lists the imports an instance needs, modules first.
func (c *Component) Imports() []linker.Requirement {
	return c.plan.Requirements()
}

// Exports lists the top-level exports in declaration order.
func (c *Component) Exports() []component.Export {
	exports := c.plan.Resolved().Exports
	out := make([]component.Export, len(exports))
	copy(out, exports)
	return out
}

// FuncType returns the resolved type of the function exported as name.
func (c *Component) FuncType(name string) (*component.ResolvedFuncType, bool) {
	r := c.plan.Resolved()
	for _, e := range r.Exports {
		if e.Name == name && e.Sort == component.ExportFunc && int(e.Index) < len(r.FuncTypes) {
			return &r.FuncTypes[e.Index], true
		}
	}
	return nil, false
}

// Instantiate links the component. Host functions registered with the
// runtime fill imports that imports does not name.
func (c *Component) Instantiate(ctx context.Context, imports Imports) (*Instance, error) {
	merged := c.runtime.hosts.Imports()
	for name, v := range imports {
		merged[name] = v
	}
	inst, err := c.plan.Instantiate(ctx, merged)
	if err != nil {
		return nil, err
	}
	return &Instance{component: inst}, nil
}

// Close releases the compiled inline modules.
func (c *Component) Close(ctx context.Context) error {
	return c.plan.Close(ctx)
}
