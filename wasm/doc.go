// Package wasm provides shallow WebAssembly binary inspection and a small
// module builder.
//
// Inspect decodes only what a host needs before instantiation: function
// signatures, imports, exports, memories and the start function. Code and
// data are skipped by size.
//
//	info, err := wasm.Inspect(bin)
//	for _, imp := range info.ImportedFuncs() {
//	    fmt.Println(imp.Module, imp.Name)
//	}
//
// Builder assembles modules from Code sequences. It is used by tests and the
// examples to produce guests that speak the loader's import protocol:
//
//	b := wasm.NewBuilder()
//	resize := b.ImportFunc("lib", "resize", nil, nil)
//	b.Memory(1, nil)
//	b.Export("memory", wasm.KindMemory, 0)
//	wasm.AddBumpAllocator(b, resize, 1024)
//	bin := b.Build()
package wasm
