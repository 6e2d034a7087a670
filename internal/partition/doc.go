// Package partition decides which output module owns each type, method body
// and generic dictionary of a whole-program compilation.
//
// # Policy
//
// The compilation driver holds one Policy for the whole run and asks it, for
// every entity it is about to process, whether that entity is contained in
// the output module being emitted, whether it must be exported to other
// output modules, whether it needs a full virtual-dispatch table, and
// whether references to it go through the platform import table.
//
// Every answer is a pure function of the entity and of the data the
// strategy was constructed with, so queries may run concurrently from any
// number of goroutines and in any order.
//
// Answers of any Policy satisfy:
//
//   - ContainsType(t) and ShouldReferenceThroughImportTable(t) are never both true.
//   - A single-file policy never references through the import table and
//     never exports anything.
//   - Every query is total: "not in this module" is false, never an error.
//
// # Strategies
//
//   - SingleFile: one output module contains everything.
//   - SplitByModule: one output module per set of input modules; entities
//     built from other modules are imported, mixed generic instantiations are
//     emitted wherever they are needed.
//
// # Compiler-generated module
//
// Each policy owns a module named GeneratedModuleName that holds types the
// compiler fabricates (thunks, proxies, global initializers). It starts with
// no declared types and exposes a single global type. It has no symbolic
// name table: GetType always fails with a *types.TypeNotFoundError, and in
// builds tagged aotc_debug it also panics, since a by-name lookup into it is
// a bug in the caller.
package partition
