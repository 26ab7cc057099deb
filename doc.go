// Package wasmcomponent links WebAssembly components and moves values across
// their canonical ABI boundary.
//
// # Architecture Overview
//
//	wasmcomponent/       Root package with Memory, Reallocator and PostReturn
//	├── runtime/         Component and Instance facade
//	├── linker/          Instantiation graph resolver, lifted and lowered functions
//	├── engine/          Core module loader on wazero
//	├── component/       Component description, binary decoder, type resolver
//	├── transcoder/      Canonical ABI lowering and lifting
//	├── errors/          Structured error types
//	└── cmd/wcrun/       Command line inspector and caller
//
// # Quick Start
//
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
//	inst, err := rt.NewInstance(ctx, comp, runtime.Imports{
//	    "log": linker.HostFunc(func(ctx context.Context, args ...any) (any, error) {
//	        fmt.Println(args[0])
//	        return nil, nil
//	    }),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	greet, _ := inst.Func("greet")
//	out, err := greet.Call(ctx, "World")
//
// # Value Types
//
// Functions use the primitive component value types: bool, s8 through u64,
// f32, f64, char and string. Strings are encoded as utf8, utf16 or
// latin1+utf16 according to the function's canonical options.
//
// # Errors
//
// Decode failures carry the byte offset of the malformed input. A core module
// passed where a component is expected yields errors.ErrNotComponent so the
// caller can instantiate it directly. Missing or mismatched imports yield
// *errors.LinkError.
package wasmcomponent
