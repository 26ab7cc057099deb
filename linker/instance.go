package linker

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-component/component"
	"github.com/wippyai/wasm-component/engine"
	"github.com/wippyai/wasm-component/errors"
)

// Instance is an instantiated component. Exports are fixed once
// Instantiate returns. Like the wazero modules it owns, an Instance runs
// one call at a time.
type Instance struct {
	plan    *Plan
	host    *engine.CoreInstance
	core    []*engine.CoreInstance
	modules []*engine.Module
	funcs   []Callable
	names   []string
	exports map[string]any
}

// Instantiate links the plan against imports and runs every core
// instance in definition order.
func (p *Plan) Instantiate(ctx context.Context, imports Imports) (*Instance, error) {
	r := p.resolved
	inst := &Instance{
		plan:    p,
		core:    make([]*engine.CoreInstance, 0, len(r.CoreInstances)),
		modules: make([]*engine.Module, len(r.Modules)),
		funcs:   make([]Callable, len(r.Funcs)),
		names:   make([]string, len(r.Funcs)),
		exports: make(map[string]any, len(r.Exports)),
	}
	for _, e := range r.Exports {
		if e.Sort == component.ExportFunc && int(e.Index) < len(inst.names) && inst.names[e.Index] == "" {
			inst.names[e.Index] = e.Name
		}
	}

	if err := inst.resolveImports(imports); err != nil {
		return nil, err
	}
	if err := inst.synthesize(ctx); err != nil {
		return nil, err
	}
	for i := range r.CoreInstances {
		ci, err := inst.instantiate(ctx, i)
		if err != nil {
			inst.release(ctx)
			return nil, err
		}
		inst.core = append(inst.core, ci)
	}
	if err := inst.resolveExports(); err != nil {
		inst.release(ctx)
		return nil, err
	}

	Logger().Debug("component instantiated",
		zap.Int("core_instances", len(inst.core)),
		zap.Int("exports", len(inst.exports)))
	return inst, nil
}

func (inst *Instance) resolveImports(imports Imports) error {
	r := inst.plan.resolved
	for i, m := range r.Modules {
		if m.Kind == component.ModuleInline {
			inst.modules[i] = inst.plan.modules[i]
			continue
		}
		v, ok := imports[m.Name]
		if !ok {
			return errors.MissingImport(m.Name, "module")
		}
		mod, ok := v.(*engine.Module)
		if !ok || mod == nil {
			return errors.WrongImport(m.Name, "module", fmt.Sprintf("%T", v))
		}
		inst.modules[i] = mod
	}

	for i, f := range r.Funcs {
		if f.Kind != component.FuncImported {
			continue
		}
		v, ok := imports[f.Name]
		if !ok {
			return errors.MissingImport(f.Name, "func")
		}
		switch fn := v.(type) {
		case Callable:
			inst.funcs[i] = fn
		case func(context.Context, ...any) (any, error):
			inst.funcs[i] = HostFunc(fn)
		default:
			return errors.WrongImport(f.Name, "func", fmt.Sprintf("%T", v))
		}
	}
	return nil
}

func loweredName(idx int) string {
	return fmt.Sprintf("lower%d", idx)
}

// synthesize exports every lowered core function from one host instance.
func (inst *Instance) synthesize(ctx context.Context) error {
	r := inst.plan.resolved
	var funcs []engine.HostFunction
	for i, cf := range r.CoreFuncs {
		if cf.Kind != component.CoreFuncLowered {
			continue
		}
		lw := &lowered{
			inst:  inst,
			typ:   &r.CoreFuncTypes[i],
			name:  inst.funcName(cf.Func),
			opts:  cf.Options,
			index: uint32(i),
			fn:    cf.Func,
		}
		params, results := loweredSignature(lw.typ)
		funcs = append(funcs, engine.HostFunction{
			Func:    lw.call,
			Name:    loweredName(i),
			Params:  params,
			Results: results,
		})
	}
	if len(funcs) == 0 {
		return nil
	}

	host, err := inst.plan.linker.engine.NewHostInstance(ctx, funcs)
	if err != nil {
		return instError("lower", -1, "", "synthesize lowered functions", err)
	}
	inst.host = host
	return nil
}

func (inst *Instance) instantiate(ctx context.Context, idx int) (*engine.CoreInstance, error) {
	ci := inst.plan.resolved.CoreInstances[idx]

	switch ci.Kind {
	case component.CoreInstanceModule:
		if int(ci.Module) >= len(inst.modules) {
			return nil, instError("instantiate", idx, "", "", errors.Internal(errors.PhaseLinking, "module %d out of range", ci.Module))
		}
		args := make(map[string]*engine.CoreInstance, len(ci.Args))
		for _, arg := range ci.Args {
			dep, err := inst.coreInstance(arg.Instance)
			if err != nil {
				return nil, instError("instantiate", idx, arg.Name, "", err)
			}
			args[arg.Name] = dep
		}
		core, err := inst.plan.linker.engine.Instantiate(ctx, inst.modules[ci.Module], args)
		if err != nil {
			return nil, instError("instantiate", idx, "", fmt.Sprintf("module %d", ci.Module), err)
		}
		Logger().Debug("instantiated core instance",
			zap.Int("index", idx),
			zap.Uint32("module", ci.Module),
			zap.Any("depends_on", inst.plan.graph.Deps(idx)))
		return core, nil

	case component.CoreInstanceReexporter:
		externs := make(map[string]engine.Extern, len(ci.Exports))
		for _, exp := range ci.Exports {
			ext, err := inst.extern(exp.Sort, exp.Index)
			if err != nil {
				return nil, instError("reexport", idx, exp.Name, "", err)
			}
			externs[exp.Name] = ext
		}
		return engine.NewReexporter(externs), nil

	default:
		return nil, instError("instantiate", idx, "", "", errors.Unsupported(errors.PhaseLinking, "core instance kind"))
	}
}

func (inst *Instance) resolveExports() error {
	r := inst.plan.resolved
	for _, e := range r.Exports {
		switch e.Sort {
		case component.ExportModule:
			if int(e.Index) >= len(inst.modules) {
				return instError("export", -1, e.Name, "", errors.Internal(errors.PhaseLinking, "module %d out of range", e.Index))
			}
			inst.exports[e.Name] = inst.modules[e.Index]
		case component.ExportFunc:
			fn, err := inst.callable(e.Index)
			if err != nil {
				return instError("export", -1, e.Name, "", err)
			}
			inst.exports[e.Name] = fn
		}
	}
	return nil
}

func (inst *Instance) coreInstance(idx uint32) (*engine.CoreInstance, error) {
	if int(idx) >= len(inst.core) {
		return nil, errors.Internal(errors.PhaseLinking, "core instance %d is not instantiated yet", idx)
	}
	return inst.core[idx], nil
}

// extern resolves a core sort and index through the alias tables.
func (inst *Instance) extern(s component.CoreSort, idx uint32) (engine.Extern, error) {
	r := inst.plan.resolved
	switch s {
	case component.CoreSortFunc:
		return inst.coreFunc(idx)
	case component.CoreSortTable:
		return inst.alias(r.Tables, idx, engine.ExternTable)
	case component.CoreSortMemory:
		return inst.alias(r.Memories, idx, engine.ExternMemory)
	case component.CoreSortGlobal:
		return inst.alias(r.Globals, idx, engine.ExternGlobal)
	default:
		return engine.Extern{}, errors.Unsupported(errors.PhaseLinking, "core sort "+s.String())
	}
}

func (inst *Instance) alias(table []component.CoreExport, idx uint32, kind engine.ExternKind) (engine.Extern, error) {
	if int(idx) >= len(table) {
		return engine.Extern{}, errors.Internal(errors.PhaseLinking, "core %s %d out of range", kind, idx)
	}
	return inst.aliasExport(table[idx], kind)
}

func (inst *Instance) aliasExport(alias component.CoreExport, kind engine.ExternKind) (engine.Extern, error) {
	src, err := inst.coreInstance(alias.Instance)
	if err != nil {
		return engine.Extern{}, err
	}
	ext, ok := src.Export(alias.Name)
	if !ok {
		return engine.Extern{}, errors.MissingImport(alias.Name, kind.String())
	}
	if ext.Kind != kind {
		return engine.Extern{}, errors.WrongImport(alias.Name, kind.String(), ext.Kind.String())
	}
	return ext, nil
}

// coreFunc resolves a core function: an alias of a core instance export
// or a lowered function of the host instance.
func (inst *Instance) coreFunc(idx uint32) (engine.Extern, error) {
	r := inst.plan.resolved
	if int(idx) >= len(r.CoreFuncs) {
		return engine.Extern{}, errors.Internal(errors.PhaseLinking, "core func %d out of range", idx)
	}
	cf := r.CoreFuncs[idx]
	if cf.Kind == component.CoreFuncAliased {
		return inst.aliasExport(cf.Alias, engine.ExternFunc)
	}
	if inst.host == nil {
		return engine.Extern{}, errors.Internal(errors.PhaseLinking, "lowered core func %d has no host instance", idx)
	}
	ext, ok := inst.host.Export(loweredName(int(idx)))
	if !ok {
		return engine.Extern{}, errors.Internal(errors.PhaseLinking, "lowered core func %d not synthesized", idx)
	}
	return ext, nil
}

// callable returns the Callable behind component function idx, lifting
// it on first use.
func (inst *Instance) callable(idx uint32) (Callable, error) {
	if int(idx) >= len(inst.funcs) {
		return nil, errors.Internal(errors.PhaseLinking, "func %d out of range", idx)
	}
	if fn := inst.funcs[idx]; fn != nil {
		return fn, nil
	}

	r := inst.plan.resolved
	f := r.Funcs[idx]
	if f.Kind != component.FuncLifted {
		return nil, errors.Internal(errors.PhaseLinking, "imported func %d was not resolved", idx)
	}
	ext, err := inst.coreFunc(f.CoreFunc)
	if err != nil {
		return nil, err
	}
	core := ext.Function()
	if core == nil {
		return nil, errors.Internal(errors.PhaseLinking, "core func %d is not a function", f.CoreFunc)
	}
	c, err := inst.canon(f.Options)
	if err != nil {
		return nil, err
	}

	def := core.Definition()
	fn := &Func{
		core:    core,
		canon:   c,
		typ:     &r.FuncTypes[idx],
		name:    inst.funcName(idx),
		params:  len(def.ParamTypes()),
		results: len(def.ResultTypes()),
	}
	inst.funcs[idx] = fn
	return fn, nil
}

func (inst *Instance) funcName(idx uint32) string {
	if int(idx) < len(inst.names) && inst.names[idx] != "" {
		return inst.names[idx]
	}
	return fmt.Sprintf("func%d", idx)
}

// Exports returns a copy of the export table. Values are *engine.Module
// for module exports and Callable for function exports; lifted functions
// are *Func.
func (inst *Instance) Exports() map[string]any {
	out := make(map[string]any, len(inst.exports))
	for name, v := range inst.exports {
		out[name] = v
	}
	return out
}

// Export looks up one export by name.
func (inst *Instance) Export(name string) (any, bool) {
	v, ok := inst.exports[name]
	return v, ok
}

// ExportNames returns the export names in sorted order.
func (inst *Instance) ExportNames() []string {
	names := make([]string, 0, len(inst.exports))
	for name := range inst.exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CoreInstance returns the core instance at idx.
func (inst *Instance) CoreInstance(idx int) (*engine.CoreInstance, bool) {
	if idx < 0 || idx >= len(inst.core) {
		return nil, false
	}
	return inst.core[idx], true
}

// NumCoreInstances returns the number of core instances.
func (inst *Instance) NumCoreInstances() int {
	return len(inst.core)
}

// Close closes every core instance and the host instance, most recent
// first.
func (inst *Instance) Close(ctx context.Context) error {
	var err error
	for i := len(inst.core) - 1; i >= 0; i-- {
		err = multierr.Append(err, inst.core[i].Close(ctx))
	}
	if inst.host != nil {
		err = multierr.Append(err, inst.host.Close(ctx))
	}
	inst.core = nil
	inst.host = nil
	return err
}

// release closes a partially built instance after a failure.
func (inst *Instance) release(ctx context.Context) {
	if err := inst.Close(ctx); err != nil {
		Logger().Warn("release partial instance", zap.Error(err))
	}
}
