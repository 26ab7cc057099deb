package linker

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmcomponent "github.com/wippyai/wasm-component"
	"github.com/wippyai/wasm-component/component"
	"github.com/wippyai/wasm-component/engine"
	"github.com/wippyai/wasm-component/errors"
	"github.com/wippyai/wasm-component/transcoder"
)

// canon holds the canonical options of one lift or lower, resolved
// against the instantiated core instances.
type canon struct {
	memory    wasmcomponent.Memory
	realloc   api.Function
	post      api.Function
	encoding  component.StringEncoding
	maxLength uint32
}

// options binds the guest functions to ctx for one call.
func (c *canon) options(ctx context.Context) *transcoder.Options {
	return &transcoder.Options{
		Memory:          c.memory,
		Realloc:         engine.FuncReallocator(ctx, c.realloc),
		PostReturn:      engine.FuncPostReturn(ctx, c.post),
		Encoding:        c.encoding,
		MaxStringLength: c.maxLength,
	}
}

func (inst *Instance) canon(o component.CanonOptions) (*canon, error) {
	r := inst.plan.resolved
	c := &canon{encoding: o.StringEncoding, maxLength: inst.plan.linker.opts.MaxStringLength}

	if o.Memory != nil {
		ext, err := inst.alias(r.Memories, *o.Memory, engine.ExternMemory)
		if err != nil {
			return nil, err
		}
		c.memory = engine.MemoryView(ext.Memory())
	}
	if o.Realloc != nil {
		ext, err := inst.coreFunc(*o.Realloc)
		if err != nil {
			return nil, err
		}
		c.realloc = ext.Function()
	}
	if o.PostReturn != nil {
		ext, err := inst.coreFunc(*o.PostReturn)
		if err != nil {
			return nil, err
		}
		c.post = ext.Function()
	}
	return c, nil
}

// flatTypes returns the core value types a value of kind flattens to.
func flatTypes(kind component.ValueKind) []api.ValueType {
	switch kind {
	case component.KindUnit:
		return nil
	case component.KindS64, component.KindU64:
		return []api.ValueType{api.ValueTypeI64}
	case component.KindF32:
		return []api.ValueType{api.ValueTypeF32}
	case component.KindF64:
		return []api.ValueType{api.ValueTypeF64}
	case component.KindString:
		return []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
	default:
		return []api.ValueType{api.ValueTypeI32}
	}
}

// loweredSignature is the core signature of a lowered function. Params
// that do not fit the flat limit are passed as a pointer to a record in
// the caller's memory; a result that does not fit is written to a return
// pointer passed as the last param.
func loweredSignature(ft *component.ResolvedFuncType) (params, results []api.ValueType) {
	if ft.FlatParams {
		for _, p := range ft.Params {
			params = append(params, flatTypes(p.Kind)...)
		}
	} else {
		params = []api.ValueType{api.ValueTypeI32}
	}
	if ft.FlatResult {
		results = flatTypes(ft.Result.Kind)
	} else {
		params = append(params, api.ValueTypeI32)
	}
	return params, results
}

// withPath attaches a value path to a transcoder error that has none.
func withPath(err error, path ...string) error {
	var e *errors.Error
	if errors.As(err, &e) && len(e.Path) == 0 {
		e.Path = path
	}
	return err
}

// lowered is a component function exposed to core code.
type lowered struct {
	inst   *Instance
	typ    *component.ResolvedFuncType
	canon  *canon
	target Callable
	name   string
	opts   component.CanonOptions
	index  uint32
	fn     uint32
}

// call is the host function body. Errors are raised as panics, which
// wazero returns to the caller of the guest function.
func (lw *lowered) call(ctx context.Context, _ api.Module, stack []uint64) {
	if err := lw.invoke(ctx, stack); err != nil {
		panic(err)
	}
}

func (lw *lowered) resolve() error {
	if lw.target != nil {
		return nil
	}
	c, err := lw.inst.canon(lw.opts)
	if err != nil {
		return err
	}
	target, err := lw.inst.callable(lw.fn)
	if err != nil {
		return err
	}
	lw.canon, lw.target = c, target
	Logger().Debug("resolved lowered function",
		zap.String("name", lw.name),
		zap.Uint32("core_func", lw.index),
		zap.Uint32("func", lw.fn))
	return nil
}

func (lw *lowered) invoke(ctx context.Context, stack []uint64) error {
	if err := lw.resolve(); err != nil {
		return err
	}
	opts := lw.canon.options(ctx)
	ft := lw.typ

	args := make([]any, len(ft.Params))
	if ft.FlatParams {
		for i, p := range ft.Params {
			lift, err := transcoder.NewStackLifter(p.Kind, opts)
			if err != nil {
				return withPath(err, lw.name, p.Name)
			}
			n := uint32(component.FlatCount(p.Kind))
			if args[i], err = lift(stack[p.Offset : p.Offset+n]); err != nil {
				return withPath(err, lw.name, p.Name)
			}
		}
	} else {
		base := api.DecodeU32(stack[0])
		for i, p := range ft.Params {
			lift, err := transcoder.NewMemLifter(p.Kind, opts)
			if err != nil {
				return withPath(err, lw.name, p.Name)
			}
			addr, err := transcoder.FieldAddr(errors.PhaseLift, base, p.Offset)
			if err != nil {
				return withPath(err, lw.name, p.Name)
			}
			if args[i], err = lift(addr); err != nil {
				return withPath(err, lw.name, p.Name)
			}
		}
	}

	result, err := lw.target.Call(ctx, args...)
	if err != nil {
		return err
	}

	var results []uint64
	if ft.FlatResult {
		lower, err := transcoder.NewStackLowerer(ft.Result.Kind, opts)
		if err != nil {
			return withPath(err, lw.name)
		}
		buf := transcoder.GetStack()
		defer transcoder.PutStack(buf)
		if err := lower(buf, result); err != nil {
			return withPath(err, lw.name)
		}
		results = stack[:copy(stack, *buf)]
	} else {
		params, _ := loweredSignature(ft)
		retptr := api.DecodeU32(stack[len(params)-1])
		lower, err := transcoder.NewMemLowerer(ft.Result.Kind, opts)
		if err != nil {
			return withPath(err, lw.name)
		}
		if err := lower(retptr, result); err != nil {
			return withPath(err, lw.name)
		}
	}

	if opts.PostReturn != nil {
		return opts.PostReturn.PostReturn(results)
	}
	return nil
}

// Func is a lifted component function: core code called with Go values.
// It follows wazero: one call at a time per instance.
type Func struct {
	core    api.Function
	canon   *canon
	typ     *component.ResolvedFuncType
	name    string
	params  int
	results int
}

// Name returns the name the function was exported under.
func (f *Func) Name() string {
	return f.name
}

// Type returns the resolved component function type.
func (f *Func) Type() *component.ResolvedFuncType {
	return f.typ
}

// Call lowers args, calls the core function and lifts its result.
// Unit results are returned as nil.
func (f *Func) Call(ctx context.Context, args ...any) (any, error) {
	ft := f.typ
	if len(args) != len(ft.Params) {
		return nil, errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Path(f.name).
			Detail("expected %d arguments, got %d", len(ft.Params), len(args)).
			Build()
	}
	opts := f.canon.options(ctx)

	stack := transcoder.GetStack()
	defer transcoder.PutStack(stack)

	if ft.FlatParams {
		for i, p := range ft.Params {
			lower, err := transcoder.NewStackLowerer(p.Kind, opts)
			if err != nil {
				return nil, withPath(err, f.name, p.Name)
			}
			if err := lower(stack, args[i]); err != nil {
				return nil, withPath(err, f.name, p.Name)
			}
		}
	} else {
		ptr, err := f.lowerRecord(opts, args)
		if err != nil {
			return nil, err
		}
		*stack = append(*stack, api.EncodeU32(ptr))
	}

	if len(*stack) != f.params {
		return nil, errors.Internal(errors.PhaseLower, "%s: core function takes %d values, lowered %d", f.name, f.params, len(*stack))
	}
	for len(*stack) < f.results {
		*stack = append(*stack, 0)
	}
	if err := f.core.CallWithStack(ctx, *stack); err != nil {
		return nil, errors.Trap(err, f.name)
	}
	raw := make([]uint64, f.results)
	copy(raw, *stack)

	value, err := f.lift(opts, raw)
	if opts.PostReturn != nil {
		if perr := opts.PostReturn.PostReturn(raw); perr != nil && err == nil {
			err = perr
		}
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// lowerRecord stores args as a params record in memory allocated with the
// guest's realloc.
func (f *Func) lowerRecord(opts *transcoder.Options, args []any) (uint32, error) {
	if opts.Memory == nil || opts.Realloc == nil {
		return 0, errors.Config(errors.PhaseLower, "lowering a params record requires memory and realloc options")
	}
	_, info := component.TupleLayout(f.typ.ParamKinds())
	ptr, err := opts.Realloc.Realloc(0, 0, info.Align, info.Size)
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseLower, info.Size, info.Align, err)
	}
	for i, p := range f.typ.Params {
		lower, err := transcoder.NewMemLowerer(p.Kind, opts)
		if err != nil {
			return 0, withPath(err, f.name, p.Name)
		}
		addr, err := transcoder.FieldAddr(errors.PhaseLower, ptr, p.Offset)
		if err != nil {
			return 0, withPath(err, f.name, p.Name)
		}
		if err := lower(addr, args[i]); err != nil {
			return 0, withPath(err, f.name, p.Name)
		}
	}
	return ptr, nil
}

func (f *Func) lift(opts *transcoder.Options, raw []uint64) (any, error) {
	kind := f.typ.Result.Kind
	if f.typ.FlatResult {
		if len(raw) != component.FlatCount(kind) {
			return nil, errors.Internal(errors.PhaseLift, "%s: core function returns %d values, want %d", f.name, len(raw), component.FlatCount(kind))
		}
		lift, err := transcoder.NewStackLifter(kind, opts)
		if err != nil {
			return nil, withPath(err, f.name)
		}
		v, err := lift(raw)
		return v, withPath(err, f.name)
	}

	if len(raw) != 1 {
		return nil, errors.Internal(errors.PhaseLift, "%s: core function returns %d values, want a result pointer", f.name, len(raw))
	}
	lift, err := transcoder.NewMemLifter(kind, opts)
	if err != nil {
		return nil, withPath(err, f.name)
	}
	v, err := lift(api.DecodeU32(raw[0]))
	return v, withPath(err, f.name)
}
