// Package linker instantiates resolved components.
//
// # Main Types
//
//   - Linker: binds an engine and options
//   - Plan: a validated component with its inline modules compiled
//   - Instance: the export table of one instantiation
//   - Func: a lifted export, called with Go values
//
// # Instantiation
//
// Plan.Instantiate walks the component in a fixed order:
//
//  1. Imported modules must be *engine.Module values
//  2. Imported functions must be Callable values
//  3. Lowered core functions are exported from one host instance
//  4. Core instances are created in definition order; arguments and
//     reexported aliases may only name earlier instances
//  5. Top-level exports are resolved against the finished tables
//
// A missing or mistyped import stops instantiation with *errors.LinkError.
// Core instances created before the failure are closed.
//
// # Calling Conventions
//
// Params that flatten to at most 16 core values are passed flat, larger
// param lists through a record in linear memory. A result that flattens to
// one core value is returned flat, anything larger through memory: a
// lifted function returns a pointer to it, a lowered function receives a
// return pointer as its last param. Canonical options of lowered
// functions are resolved on their first call, after the memory they name
// exists.
//
// # Thread Safety
//
// Linker and Plan are safe for concurrent use.
// Instance is NOT safe for concurrent use.
//
// # Example
//
//	l := linker.New(eng, nil)
//	plan, _ := l.Prepare(ctx, resolved)
//	inst, _ := plan.Instantiate(ctx, linker.Imports{"log": linker.HostFunc(logFn)})
//	defer inst.Close(ctx)
//	greet, _ := inst.Export("greet")
//	out, _ := greet.(linker.Callable).Call(ctx, "world")
package linker
