// Package loader instantiates WebAssembly modules with the lib.log and
// lib.resize imports and keeps an accessor table over their memory.
//
// A load moves through four states:
//
//	Pending        imports are merged over the defaults
//	Instantiating  bytes are fetched, compiled, linked and instantiated
//	Resolved       exports are mirrored, resize runs once, Ready completes
//	Rejected       Ready fails with the first error; no exports are added
//
// Start returns the Module at once; Load waits for Ready:
//
//	l, _ := loader.New(ctx, nil)
//	mod, err := l.Load(ctx, loader.Path("https://example.com/app.wasm"), &loader.Options{
//	    Imports: loader.NewImports().Func("env", "seed", seed, nil, []api.ValueType{api.ValueTypeF64}),
//	})
//
// # Imports
//
// lib.log(type, messagePtr) decodes a string from memory and passes it to
// the module's LogSink with severity LOG, INFO, WARN or ERROR. lib.resize()
// rebuilds the accessor table; modules call it after memory.grow. When a
// module imports env.abort the loader supplies one that traps the guest with
// an *errors.AbortError. Caller imports replace defaults of the same name.
//
// # Allocation
//
// The table's Create codecs call the module's malloc and memset exports.
// When the module does not export them the lib.malloc and lib.memset
// imports are used instead. Without memset, memory is zeroed from Go.
// Without any malloc, Create fails with a not_initialized error.
package loader
