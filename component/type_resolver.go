package component

import (
	"github.com/wippyai/wasm-component/errors"
)

// TypeResolver strips indexed indirection from value types
type TypeResolver struct {
	types []TypeDef
	cache []ValueKind
	state []uint8 // 0 unvisited, 1 in progress, 2 done
}

// NewTypeResolver creates a resolver over a type table
func NewTypeResolver(types []TypeDef) *TypeResolver {
	return &TypeResolver{
		types: types,
		cache: make([]ValueKind, len(types)),
		state: make([]uint8, len(types)),
	}
}

// Resolve dereferences t until a primitive kind is reached.
// Out-of-range indices, cycles and references to non-value types are
// internal consistency errors.
func (r *TypeResolver) Resolve(t ValueType) (ValueKind, error) {
	if t.Kind.IsPrimitive() {
		return t.Kind, nil
	}
	if t.Kind != KindIndex {
		return 0, errors.Internal(errors.PhaseResolve, "unknown value kind %d", byte(t.Kind))
	}
	return r.resolveIndex(t.Index)
}

func (r *TypeResolver) resolveIndex(idx uint32) (ValueKind, error) {
	if int(idx) >= len(r.types) {
		return 0, errors.Internal(errors.PhaseResolve, "type index out of range: %d >= %d", idx, len(r.types))
	}
	switch r.state[idx] {
	case 2:
		return r.cache[idx], nil
	case 1:
		return 0, errors.Internal(errors.PhaseResolve, "type index %d refers to itself", idx)
	}

	def := r.types[idx]
	if def.Kind != TypeDefValue {
		return 0, errors.Internal(errors.PhaseResolve, "type index %d is a function type, not a value type", idx)
	}

	r.state[idx] = 1
	kind, err := r.Resolve(def.Value)
	if err != nil {
		r.state[idx] = 0
		return 0, err
	}
	r.cache[idx] = kind
	r.state[idx] = 2
	return kind, nil
}

// FuncType returns the function type defined at idx
func (r *TypeResolver) FuncType(idx uint32) (*FuncType, error) {
	if int(idx) >= len(r.types) {
		return nil, errors.Internal(errors.PhaseResolve, "type index out of range: %d >= %d", idx, len(r.types))
	}
	def := r.types[idx]
	if def.Kind != TypeDefFunc || def.Func == nil {
		return nil, errors.Internal(errors.PhaseResolve, "type index %d is not a function type", idx)
	}
	return def.Func, nil
}

// ResolvedParam is a parameter or result with its type fully resolved
type ResolvedParam struct {
	Name   string
	Kind   ValueKind
	Offset uint32
}

// ResolvedFuncType is a FuncType without indexed references
type ResolvedFuncType struct {
	Params     []ResolvedParam
	Result     ResolvedParam
	FlatParams bool
	FlatResult bool
}

// ParamKinds returns the resolved kind of every parameter
func (ft *ResolvedFuncType) ParamKinds() []ValueKind {
	kinds := make([]ValueKind, len(ft.Params))
	for i, p := range ft.Params {
		kinds[i] = p.Kind
	}
	return kinds
}

// ResolveFuncType resolves every parameter and the result of ft
func (r *TypeResolver) ResolveFuncType(ft FuncType) (ResolvedFuncType, error) {
	out := ResolvedFuncType{
		Params:     make([]ResolvedParam, len(ft.Params)),
		FlatParams: ft.FlatParams,
		FlatResult: ft.FlatResult,
	}
	for i, p := range ft.Params {
		kind, err := r.Resolve(p.Type)
		if err != nil {
			return ResolvedFuncType{}, err
		}
		out.Params[i] = ResolvedParam{Name: p.Name, Kind: kind, Offset: p.Offset}
	}
	kind, err := r.Resolve(ft.Result.Type)
	if err != nil {
		return ResolvedFuncType{}, err
	}
	out.Result = ResolvedParam{Kind: kind, Offset: ft.Result.Offset}
	return out, nil
}

// Resolved is a description together with resolved types for every lifted
// and lowered function. CoreFuncTypes parallels CoreFuncs and FuncTypes
// parallels Funcs; aliased core functions keep a zero entry.
type Resolved struct {
	*Description
	CoreFuncTypes []ResolvedFuncType
	FuncTypes     []ResolvedFuncType
}

// ResolveDescription resolves d once. Any failure aborts construction.
func ResolveDescription(d *Description) (*Resolved, error) {
	r := NewTypeResolver(d.Types)
	out := &Resolved{
		Description:   d,
		CoreFuncTypes: make([]ResolvedFuncType, len(d.CoreFuncs)),
		FuncTypes:     make([]ResolvedFuncType, len(d.Funcs)),
	}

	for i, cf := range d.CoreFuncs {
		if cf.Kind != CoreFuncLowered {
			continue
		}
		if int(cf.Func) >= len(d.Funcs) {
			return nil, errors.Internal(errors.PhaseResolve, "core func %d lowers func %d, only %d defined", i, cf.Func, len(d.Funcs))
		}
		ft, err := r.ResolveFuncType(cf.Type)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseResolve, errors.KindInternal, err, "resolve lowered core func")
		}
		out.CoreFuncTypes[i] = ft
	}

	for i, f := range d.Funcs {
		if f.Kind == FuncLifted && int(f.CoreFunc) >= len(d.CoreFuncs) {
			return nil, errors.Internal(errors.PhaseResolve, "func %d lifts core func %d, only %d defined", i, f.CoreFunc, len(d.CoreFuncs))
		}
		ft, err := r.ResolveFuncType(f.Type)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseResolve, errors.KindInternal, err, "resolve func")
		}
		out.FuncTypes[i] = ft
	}

	return out, nil
}
