// Package wasmloader bridges a WebAssembly module's linear memory with Go values.
//
// The library is organized into a few packages with distinct responsibilities:
//
//	wasmloader/         Root package with the Allocator contract and layout constants
//	├── memory/         Accessor table: typed views, array and string codecs
//	├── loader/         Module instantiation, default imports, readiness
//	├── wasm/           Binary module inspection and a small module builder
//	├── errors/         Structured error types
//	└── cmd/run/        Command line runner and interactive inspector
//
// # Quick Start
//
//	l, err := loader.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mod, err := l.Load(ctx, loader.Path("module.wasm"), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mod.Close(ctx)
//
//	ptr, err := mod.Memory().String.Create(ctx, "World")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := mod.Exports.Func("greet").Call(ctx, uint64(ptr))
//	fmt.Println(mod.Memory().String.Get(uint32(res[0])))
//
// # Memory Layout
//
// Arrays and strings share an 8 byte header followed by element data:
//
//	+0  capacity  i32 little-endian
//	+4  length    i32 little-endian
//	+8  elements  length * element size bytes
//
// Strings store UTF-16LE code units; length counts code units.
//
// # Memory Growth
//
// When the module grows its memory it calls the lib.resize import. The loader
// then builds a new accessor table with a higher generation. Accessors taken
// from an older table are stale and must be fetched again from Module.Memory.
package wasmloader
