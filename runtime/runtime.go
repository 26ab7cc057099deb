package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-component/component"
	"github.com/wippyai/wasm-component/engine"
	"github.com/wippyai/wasm-component/errors"
	"github.com/wippyai/wasm-component/linker"
)

// Imports maps import names to host values. Components take
// *engine.Module values for imported modules and Go functions for
// imported functions; core modules take *engine.CoreInstance values.
type Imports = linker.Imports

// Config configures a Runtime. The zero value uses wazero defaults.
type Config struct {
	Engine engine.Config
	Linker linker.Options
}

// Runtime compiles and instantiates components and core modules.
type Runtime struct {
	engine *engine.Engine
	linker *linker.Linker
	hosts  *HostRegistry
}

// New creates a runtime. A nil cfg uses defaults.
func New(ctx context.Context, cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	eng, err := engine.New(ctx, &cfg.Engine)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		engine: eng,
		linker: linker.New(eng, &cfg.Linker),
		hosts:  NewHostRegistry(),
	}, nil
}

// Close releases all runtime resources, including every instance.
func (r *Runtime) Close(ctx context.Context) error {
	return r.engine.Close(ctx)
}

// Engine returns the module loader.
func (r *Runtime) Engine() *engine.Engine {
	return r.engine
}

// Hosts returns the registry of host functions offered to every component.
func (r *Runtime) Hosts() *HostRegistry {
	return r.hosts
}

// RegisterFunc registers a host function for component imports named name.
func (r *Runtime) RegisterFunc(name string, fn any) error {
	return r.hosts.RegisterFunc(name, fn)
}

// RegisterHost registers every exported method of h.
// Method names are converted from PascalCase to kebab-case (GetValue -> get-value).
func (r *Runtime) RegisterHost(h any) error {
	return r.hosts.RegisterHost(h)
}

// CompileComponent decodes, resolves and prepares a component.
// A core module yields errors.ErrNotComponent; a malformed binary yields
// the decoder's *errors.DecodeError unchanged.
func (r *Runtime) CompileComponent(ctx context.Context, data []byte) (*Component, error) {
	desc, err := component.Decode(data)
	if err != nil {
		return nil, err
	}
	if desc == nil {
		return nil, errors.ErrNotComponent
	}

	resolved, err := component.ResolveDescription(desc)
	if err != nil {
		return nil, err
	}
	plan, err := r.linker.Prepare(ctx, resolved)
	if err != nil {
		return nil, err
	}
	Logger().Debug("compiled component",
		zap.Int("size", len(data)),
		zap.Int("exports", len(desc.Exports)))
	return &Component{runtime: r, plan: plan}, nil
}

// CompileModule compiles a core module.
func (r *Runtime) CompileModule(ctx context.Context, data []byte) (*engine.Module, error) {
	return r.engine.Compile(ctx, data)
}

// Load compiles data as a component, or as a core module when it is one.
// The result is a *Component or an *engine.Module.
func (r *Runtime) Load(ctx context.Context, data []byte) (any, error) {
	c, err := r.CompileComponent(ctx, data)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, errors.ErrNotComponent) {
		return nil, err
	}
	Logger().Debug("loading core module")
	return r.CompileModule(ctx, data)
}

// NewInstance instantiates target, a *Component or an *engine.Module.
// Functions registered with the runtime fill component imports that
// imports does not name.
func (r *Runtime) NewInstance(ctx context.Context, target any, imports Imports) (*Instance, error) {
	switch t := target.(type) {
	case *Component:
		return t.Instantiate(ctx, imports)
	case *engine.Module:
		return r.instantiateModule(ctx, t, imports)
	default:
		return nil, errors.New(errors.PhaseLinking, errors.KindInvalidInput).
			GoType(typeName(target)).
			Detail("target must be a *Component or an *engine.Module").
			Build()
	}
}

func (r *Runtime) instantiateModule(ctx context.Context, m *engine.Module, imports Imports) (*Instance, error) {
	cores := make(map[string]*engine.CoreInstance, len(imports))
	for name, v := range imports {
		ci, ok := v.(*engine.CoreInstance)
		if !ok || ci == nil {
			return nil, errors.WrongImport(name, "instance", typeName(v))
		}
		cores[name] = ci
	}
	ci, err := r.engine.Instantiate(ctx, m, cores)
	if err != nil {
		return nil, err
	}
	return &Instance{core: ci}, nil
}
