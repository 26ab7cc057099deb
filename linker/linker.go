package linker

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-component/component"
	"github.com/wippyai/wasm-component/engine"
	"github.com/wippyai/wasm-component/errors"
	"github.com/wippyai/wasm-component/linker/internal/graph"
)

// Options configures a Linker.
type Options struct {
	// MaxStringLength caps the byte length of strings lowered into guest
	// memory. Zero means 2^31-1.
	MaxStringLength uint32
}

// Callable is a component-level function over Go values.
type Callable interface {
	Call(ctx context.Context, args ...any) (any, error)
}

// HostFunc adapts a Go function to Callable.
type HostFunc func(ctx context.Context, args ...any) (any, error)

// Call invokes f.
func (f HostFunc) Call(ctx context.Context, args ...any) (any, error) {
	return f(ctx, args...)
}

// Imports maps import names to host values. Imported modules take an
// *engine.Module, imported functions a Callable or a HostFunc-shaped func.
type Imports map[string]any

// Requirement names an import the host must supply.
type Requirement = graph.Import

// Linker instantiates resolved components on an engine.
// It is safe for concurrent use.
type Linker struct {
	engine *engine.Engine
	opts   Options
}

// New creates a linker. A nil opts uses defaults.
func New(e *engine.Engine, opts *Options) *Linker {
	l := &Linker{engine: e}
	if opts != nil {
		l.opts = *opts
	}
	return l
}

// Engine returns the engine the linker instantiates on.
func (l *Linker) Engine() *engine.Engine {
	return l.engine
}

// Plan is a component prepared for instantiation: the dependency graph is
// validated and every inline module is compiled. A Plan can be
// instantiated any number of times.
type Plan struct {
	linker   *Linker
	resolved *component.Resolved
	graph    *graph.Graph
	modules  []*engine.Module
}

// Prepare validates r and compiles its inline modules.
func (l *Linker) Prepare(ctx context.Context, r *component.Resolved) (*Plan, error) {
	if r == nil || r.Description == nil {
		return nil, errors.InvalidInput(errors.PhaseLinking, "nil component")
	}

	g, err := graph.Build(r.Description)
	if err != nil {
		return nil, err
	}

	p := &Plan{
		linker:   l,
		resolved: r,
		graph:    g,
		modules:  make([]*engine.Module, len(r.Modules)),
	}
	for i, m := range r.Modules {
		if m.Kind != component.ModuleInline {
			continue
		}
		mod, err := l.engine.Compile(ctx, m.Bytes)
		if err != nil {
			if cerr := p.Close(ctx); cerr != nil {
				Logger().Warn("release compiled modules", zap.Error(cerr))
			}
			return nil, instError("compile", -1, fmt.Sprintf("module %d", i), "", err)
		}
		p.modules[i] = mod
	}

	Logger().Debug("component prepared",
		zap.Int("modules", len(r.Modules)),
		zap.Int("core_instances", g.Len()),
		zap.Int("imports", len(g.Imports())))
	return p, nil
}

// Resolved returns the component the plan was prepared from.
func (p *Plan) Resolved() *component.Resolved {
	return p.resolved
}

// Requirements returns the imports Instantiate expects, modules first.
func (p *Plan) Requirements() []Requirement {
	return p.graph.Imports()
}

// Close releases the compiled inline modules. Instances created from the
// plan keep running.
func (p *Plan) Close(ctx context.Context) error {
	var err error
	for _, m := range p.modules {
		if m != nil {
			err = multierr.Append(err, m.Close(ctx))
		}
	}
	return err
}
