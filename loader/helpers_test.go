package loader

import (
	"github.com/wippyai/wasm-loader/wasm"
)

var (
	vI32  = []wasm.ValType{wasm.ValI32}
	vI32s = []wasm.ValType{wasm.ValI32, wasm.ValI32}
)

// "hi" at 16 and "a.ts" at 32 in the string layout.
var (
	hiString  = []byte{2, 0, 0, 0, 2, 0, 0, 0, 'h', 0, 'i', 0}
	tsString  = []byte{4, 0, 0, 0, 4, 0, 0, 0, 'a', 0, '.', 0, 't', 0, 's', 0}
	hiPtr     = uint32(16)
	tsPtr     = uint32(32)
	heapStart = int32(1024)
)

// appModule imports lib.log and lib.resize, exports a one page memory, a
// bump allocator and:
//
//	say(sev)        log(sev, "hi")
//	grow(pages)     memory.grow then resize, returns the old page count
//	strlen(ptr)     length field of the string at ptr
//	answer          i32 global 42
func appModule() []byte {
	b := wasm.NewBuilder()
	logIdx := b.ImportFunc("lib", "log", vI32s, nil)
	resize := b.ImportFunc("lib", "resize", nil, nil)
	b.Memory(1, nil)
	b.Export("memory", wasm.KindMemory, 0)
	wasm.AddBumpAllocator(b, resize, heapStart)

	say := b.Func(vI32, nil, nil, wasm.NewCode().LocalGet(0).I32Const(int32(hiPtr)).Call(logIdx))
	b.ExportFunc("say", say)

	grow := b.Func(vI32, vI32, nil, wasm.NewCode().LocalGet(0).MemoryGrow().Call(resize))
	b.ExportFunc("grow", grow)

	strlen := b.Func(vI32, vI32, nil, wasm.NewCode().LocalGet(0).Mem(wasm.OpI32Load, 2, 4))
	b.ExportFunc("strlen", strlen)

	answer := b.GlobalI32(42, false)
	b.Export("answer", wasm.KindGlobal, answer)

	b.Data(hiPtr, hiString)
	return b.Build()
}

// startLogModule logs "hi" at INFO from its start function, before the
// loader's first resize.
func startLogModule() []byte {
	b := wasm.NewBuilder()
	logIdx := b.ImportFunc("lib", "log", vI32s, nil)
	b.Memory(1, nil)
	start := b.Func(nil, nil, nil, wasm.NewCode().I32Const(int32(SeverityInfo)).I32Const(int32(hiPtr)).Call(logIdx))
	b.Start(start)
	b.Data(hiPtr, hiString)
	return b.Build()
}

// abortModule exports fail(), which calls env.abort("hi", "a.ts", 7, 3).
func abortModule() []byte {
	b := wasm.NewBuilder()
	abort := b.ImportFunc("env", "abort", []wasm.ValType{wasm.ValI32, wasm.ValI32, wasm.ValI32, wasm.ValI32}, nil)
	b.Memory(1, nil)
	b.Export("memory", wasm.KindMemory, 0)
	fail := b.Func(nil, nil, nil, wasm.NewCode().
		I32Const(int32(hiPtr)).I32Const(int32(tsPtr)).I32Const(7).I32Const(3).Call(abort))
	b.ExportFunc("fail", fail)
	b.Data(hiPtr, hiString)
	b.Data(tsPtr, tsString)
	return b.Build()
}

// seedModule imports env.seed() -> i32 and re-exports its value as roll().
func seedModule() []byte {
	b := wasm.NewBuilder()
	seed := b.ImportFunc("env", "seed", nil, vI32)
	b.ImportFunc("lib", "log", vI32s, nil)
	b.Memory(1, nil)
	roll := b.Func(nil, vI32, nil, wasm.NewCode().Call(seed))
	b.ExportFunc("roll", roll)
	return b.Build()
}

// bareModule has a private memory of the given size and no allocator.
func bareModule(pages uint32) []byte {
	b := wasm.NewBuilder()
	b.Memory(pages, nil)
	noop := b.Func(nil, nil, nil, wasm.NewCode())
	b.ExportFunc("noop", noop)
	return b.Build()
}

func isDone(r *Ready) bool {
	select {
	case <-r.Done():
		return true
	default:
		return false
	}
}
