package runtime

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/wippyai/wasm-component/errors"
	"github.com/wippyai/wasm-component/linker"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// HostRegistry holds Go functions that satisfy component function
// imports by name. It is safe for concurrent use.
type HostRegistry struct {
	funcs map[string]linker.Callable
	mu    sync.RWMutex
}

// ExplicitRegistrar lets a host give exact import names when the
// PascalCase-to-kebab-case conversion does not apply.
type ExplicitRegistrar interface {
	Register() map[string]any
}

func NewHostRegistry() *HostRegistry {
	return &HostRegistry{
		funcs: make(map[string]linker.Callable),
	}
}

// RegisterFunc registers fn under name. fn is a linker.Callable or a Go
// function with an optional leading context.Context, at most one result
// and an optional trailing error. Arguments are converted to the declared
// parameter types; numeric conversions must not overflow.
func (r *HostRegistry) RegisterFunc(name string, fn any) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseLinking, "function name cannot be empty")
	}
	c, err := adapt(name, fn)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = c
	return nil
}

// RegisterHost registers every exported method of h under its kebab-case
// name, or the names returned by Register when h is an ExplicitRegistrar.
func (r *HostRegistry) RegisterHost(h any) error {
	if er, ok := h.(ExplicitRegistrar); ok {
		for name, fn := range er.Register() {
			if err := r.RegisterFunc(name, fn); err != nil {
				return err
			}
		}
		return nil
	}

	rv := reflect.ValueOf(h)
	if !rv.IsValid() || rv.NumMethod() == 0 {
		return errors.New(errors.PhaseLinking, errors.KindInvalidInput).
			GoType(typeName(h)).
			Detail("host has no exported methods").
			Build()
	}
	rt := rv.Type()
	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if err := r.RegisterFunc(toKebabCase(method.Name), rv.Method(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the function registered under name.
func (r *HostRegistry) Lookup(name string) (linker.Callable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.funcs[name]
	return c, ok
}

// Names returns the registered names in sorted order.
func (r *HostRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Imports returns the registered functions as a fresh import table.
func (r *HostRegistry) Imports() linker.Imports {
	r.mu.RLock()
	defer r.mu.RUnlock()
	imports := make(linker.Imports, len(r.funcs))
	for name, c := range r.funcs {
		imports[name] = c
	}
	return imports
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}

// adapt wraps a typed Go function as a linker.Callable.
func adapt(name string, fn any) (linker.Callable, error) {
	switch f := fn.(type) {
	case linker.Callable:
		return f, nil
	case func(context.Context, ...any) (any, error):
		return linker.HostFunc(f), nil
	}

	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, errors.New(errors.PhaseLinking, errors.KindTypeMismatch).
			Path(name).
			GoType(typeName(fn)).
			Detail("handler must be a function").
			Build()
	}
	ft := rv.Type()
	if ft.IsVariadic() {
		return nil, errors.Unsupported(errors.PhaseLinking, "variadic host function "+name)
	}

	first := 0
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		first = 1
	}
	nout := ft.NumOut()
	withErr := nout > 0 && ft.Out(nout-1) == errorType
	values := nout
	if withErr {
		values--
	}
	if values > 1 {
		return nil, errors.Unsupported(errors.PhaseLinking, fmt.Sprintf("host function %s returns %d values", name, values))
	}

	arity := ft.NumIn() - first
	return linker.HostFunc(func(ctx context.Context, args ...any) (any, error) {
		if len(args) != arity {
			return nil, errors.New(errors.PhaseValidate, errors.KindInvalidInput).
				Path(name).
				Detail("expected %d arguments, got %d", arity, len(args)).
				Build()
		}
		in := make([]reflect.Value, 0, ft.NumIn())
		if first == 1 {
			in = append(in, reflect.ValueOf(&ctx).Elem())
		}
		for i, a := range args {
			v, err := convertArg(a, ft.In(first+i))
			if err != nil {
				return nil, withArgPath(err, name, i)
			}
			in = append(in, v)
		}

		out := rv.Call(in)
		if withErr {
			if e := out[nout-1]; !e.IsNil() {
				return nil, e.Interface().(error)
			}
		}
		if values == 0 {
			return nil, nil
		}
		return out[0].Interface(), nil
	}), nil
}

func withArgPath(err error, name string, i int) error {
	var e *errors.Error
	if errors.As(err, &e) {
		e.Path = []string{name, fmt.Sprintf("arg%d", i)}
	}
	return err
}

// convertArg converts a lifted value to the parameter type want.
func convertArg(a any, want reflect.Type) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(want), nil
	}
	v := reflect.ValueOf(a)
	if v.Type().AssignableTo(want) {
		return v, nil
	}

	mismatch := errors.New(errors.PhaseLift, errors.KindTypeMismatch).
		GoType(want.String()).
		Value(a).
		Detail("cannot pass %T", a).
		Build()

	switch {
	case isInt(v.Kind()):
		x := v.Int()
		switch {
		case isInt(want.Kind()) && !reflect.Zero(want).OverflowInt(x):
			return v.Convert(want), nil
		case isUint(want.Kind()) && x >= 0 && !reflect.Zero(want).OverflowUint(uint64(x)):
			return v.Convert(want), nil
		case isFloat(want.Kind()):
			return v.Convert(want), nil
		}
	case isUint(v.Kind()):
		x := v.Uint()
		switch {
		case isUint(want.Kind()) && !reflect.Zero(want).OverflowUint(x):
			return v.Convert(want), nil
		case isInt(want.Kind()) && x <= 1<<63-1 && !reflect.Zero(want).OverflowInt(int64(x)):
			return v.Convert(want), nil
		case isFloat(want.Kind()):
			return v.Convert(want), nil
		}
	case isFloat(v.Kind()) && isFloat(want.Kind()),
		v.Kind() == reflect.String && want.Kind() == reflect.String,
		v.Kind() == reflect.Bool && want.Kind() == reflect.Bool:
		return v.Convert(want), nil
	}
	return reflect.Value{}, mismatch
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

// toKebabCase converts PascalCase to kebab-case.
// Handles acronyms: GetHTTPServer -> get-http-server
func toKebabCase(s string) string {
	if len(s) == 0 {
		return ""
	}

	runes := []rune(s)
	var result strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if unicode.IsUpper(r) {
			acronymEnd := i + 1
			for acronymEnd < len(runes) && unicode.IsUpper(runes[acronymEnd]) {
				acronymEnd++
			}

			if acronymEnd > i+1 {
				// the last capital starts the next word
				if acronymEnd < len(runes) && unicode.IsLower(runes[acronymEnd]) {
					acronymEnd--
				}
			}

			if i > 0 {
				result.WriteByte('-')
			}

			for j := i; j < acronymEnd; j++ {
				result.WriteRune(unicode.ToLower(runes[j]))
			}
			i = acronymEnd - 1
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
