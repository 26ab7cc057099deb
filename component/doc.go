// Package component decodes WebAssembly Component Model binaries into a
// Description and resolves the types it references.
//
// A Description is a set of append-only index spaces: modules, core
// instances, core functions, the table/memory/global alias tables, types,
// component functions and exports. Decode returns (nil, nil) for a core
// module so callers can fall back to plain module instantiation.
//
// Function types attached to lifts and lowers carry their calling
// convention: FlatParams/FlatResult select between flat core values and
// memory, and each AnnotatedValueType records a flat slot index or byte
// offset accordingly.
//
// ResolveDescription removes all indexed type references once, producing
// the Resolved view consumed by the linker.
package component
