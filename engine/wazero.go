package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-component/engine/internal/wasm"
	"github.com/wippyai/wasm-component/errors"
)

// Engine loads and instantiates core modules on one wazero runtime.
// Every instance it creates gets a unique module name, so imports can be
// rewritten to point at the instance that owns each resolved extern.
type Engine struct {
	runtime wazero.Runtime
	cache   wazero.CompilationCache
	seq     atomic.Uint64
}

// Config holds configuration for engine creation
type Config struct {
	// CompilationCacheDir enables a persistent compilation cache in the
	// given directory. Empty disables it.
	CompilationCacheDir string

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// CloseOnContextDone aborts running guest code when the call context
	// is canceled or times out.
	CloseOnContextDone bool
}

// New creates an engine. A nil config uses wazero defaults.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	e := &Engine{}

	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.CloseOnContextDone {
			runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)
		}
		if cfg.CompilationCacheDir != "" {
			cache, err := wazero.NewCompilationCacheWithDir(cfg.CompilationCacheDir)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseCompile, errors.KindConfig, err, "open compilation cache")
			}
			runtimeCfg = runtimeCfg.WithCompilationCache(cache)
			e.cache = cache
		}
	}

	e.runtime = wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	return e, nil
}

// Runtime exposes the underlying wazero runtime.
func (e *Engine) Runtime() wazero.Runtime {
	return e.runtime
}

// Close closes every module instantiated by the engine and the runtime.
func (e *Engine) Close(ctx context.Context) error {
	err := e.runtime.Close(ctx)
	if e.cache != nil {
		if cerr := e.cache.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (e *Engine) name(prefix string) string {
	return fmt.Sprintf("%s$%d", prefix, e.seq.Add(1))
}

// Compile validates and compiles a core module.
func (e *Engine) Compile(ctx context.Context, data []byte) (*Module, error) {
	info, err := wasm.Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCompile, errors.KindInvalidInput, err, "parse core module")
	}
	compiled, err := e.runtime.CompileModule(ctx, data)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCompile, errors.KindInvalidInput, err, "compile core module")
	}
	return &Module{compiled: compiled, data: data, info: info}, nil
}

// Instantiate instantiates m with imports resolved against the given
// core instances, keyed by import module name. Every import must name an
// existing export of the same kind. wazero start functions are disabled;
// a start section in the module still runs.
func (e *Engine) Instantiate(ctx context.Context, m *Module, imports map[string]*CoreInstance) (*CoreInstance, error) {
	resolved := make([]Extern, len(m.info.Imports))
	rewrite := false
	for i, imp := range m.info.Imports {
		inst, ok := imports[imp.Module]
		if !ok || inst == nil {
			return nil, errors.MissingImport(imp.Module, "instance")
		}
		path := imp.Module + "." + imp.Name
		ext, ok := inst.Export(imp.Name)
		if !ok {
			return nil, errors.MissingImport(path, imp.Kind.String())
		}
		if ext.Kind != imp.Kind {
			return nil, errors.WrongImport(path, imp.Kind.String(), ext.Kind.String())
		}
		if ext.Module == nil {
			return nil, errors.Internal(errors.PhaseLinking, "import %s resolves to an extern without an owning module", path)
		}
		resolved[i] = ext
		if ext.Module.Name() != imp.Module || ext.Name != imp.Name {
			rewrite = true
		}
	}

	compiled := m.compiled
	if rewrite {
		rewritten, err := wasm.RewriteImports(m.data, m.info, func(i int, _ wasm.Import) (string, string) {
			return resolved[i].Module.Name(), resolved[i].Name
		})
		if err != nil {
			return nil, errors.Wrap(errors.PhaseLinking, errors.KindInternal, err, "rewrite imports")
		}
		Logger().Debug("rewrote imports", zap.Int("imports", len(m.info.Imports)))
		compiled, err = e.runtime.CompileModule(ctx, rewritten)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseCompile, errors.KindInternal, err, "compile rewritten module")
		}
		defer compiled.Close(ctx)
	}

	name := e.name("core")
	modCfg := wazero.NewModuleConfig().WithName(name).WithStartFunctions()
	mod, err := e.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	Logger().Debug("instantiated core module", zap.String("name", name))

	inst := &CoreInstance{module: mod, exports: make(map[string]Extern, len(m.info.Exports))}
	for _, exp := range m.info.Exports {
		inst.exports[exp.Name] = Extern{Kind: exp.Kind, Module: mod, Name: exp.Name}
	}
	return inst, nil
}

// HostFunction is a Go function exported by a host instance.
type HostFunction struct {
	Func    api.GoModuleFunc
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// NewHostInstance instantiates a host module exporting funcs.
func (e *Engine) NewHostInstance(ctx context.Context, funcs []HostFunction) (*CoreInstance, error) {
	name := e.name("host")
	builder := e.runtime.NewHostModuleBuilder(name)
	for _, f := range funcs {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(f.Func, f.Params, f.Results).
			Export(f.Name)
	}
	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	Logger().Debug("instantiated host module", zap.String("name", name), zap.Int("funcs", len(funcs)))

	inst := &CoreInstance{module: mod, exports: make(map[string]Extern, len(funcs))}
	for _, f := range funcs {
		inst.exports[f.Name] = Extern{Kind: ExternFunc, Module: mod, Name: f.Name}
	}
	return inst, nil
}
