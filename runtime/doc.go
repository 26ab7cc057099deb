// Package runtime provides the high-level API for the WebAssembly Component Model.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	comp, err := rt.CompileComponent(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := rt.NewInstance(ctx, comp, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	result, err := inst.Call(ctx, "greet", "World")
//	fmt.Println(result) // "Hello, World!"
//
// # Loading
//
//	CompileComponent(bytes)  - decode, resolve and prepare a component
//	CompileModule(bytes)     - compile a core module
//	Load(bytes)              - either, by inspecting the binary
//
// CompileComponent returns errors.ErrNotComponent for a core module and
// the decoder's *errors.DecodeError, unmodified, for a malformed binary.
//
// # Instantiation
//
// NewInstance takes a *Component or an *engine.Module. A component is
// linked by the linker package; its imports are *engine.Module values for
// imported modules and functions for imported functions. A core module
// is passed straight to the engine; its imports are *engine.CoreInstance
// values keyed by import module name.
//
// # Host Functions
//
// Functions registered with the runtime fill any component function
// import that the explicit import table does not name:
//
//	rt.RegisterFunc("log", func(ctx context.Context, msg string) {
//	    fmt.Println(msg)
//	})
//
// Typed functions take an optional leading context.Context and return at
// most one value plus an optional error. Lifted arguments are converted to
// the declared parameter types; an integer that does not fit is a type
// mismatch.
//
// RegisterHost registers every exported method of a value, converting
// PascalCase method names to kebab-case (GetValue -> get-value). A host
// implementing ExplicitRegistrar supplies its names directly.
//
// # Thread Safety
//
// Runtime, Component and HostRegistry are safe for concurrent use.
// Instance is NOT; use one instance per goroutine.
package runtime
