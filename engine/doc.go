// Package engine loads and instantiates core WebAssembly modules on wazero.
//
// The component linker drives it through four operations:
//
//	Compile           parse the import/export sections and compile
//	Instantiate       link imports by name against existing core instances
//	NewHostInstance   export Go functions as a host module
//	NewReexporter     rename externs without instantiating anything
//
// # Import Resolution
//
// Every instance gets a unique wazero module name. Instantiate resolves
// each import (module, field) to an Extern of the same kind and rewrites
// the import section so the import names the wazero module that owns the
// extern. This lets a reexporter forward a memory or function from one
// instance to another without a trampoline module:
//
//	import ("env", "memory")  ──resolve──>  Extern{core$1, "memory"}
//	                          ──rewrite──>  import ("core$1", "memory")
//
// A missing instance, a missing export or an export of the wrong kind is
// reported as *errors.LinkError before anything is compiled.
//
// wazero start functions such as _start are never called. A start section
// declared by the module still runs during instantiation.
//
// # Memory Access
//
// MemoryView, FuncReallocator and FuncPostReturn adapt wazero exports to the
// capability interfaces of the root package, which is what the transcoder
// lowers into and lifts from.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Instances and the adapters bound to
// them follow wazero: one call at a time per module instance.
package engine
