package wasm

var oneI32 = []ValType{ValI32}

// AllocatorFuncs holds the function indices emitted by AddBumpAllocator.
type AllocatorFuncs struct {
	Malloc uint32
	Memset uint32
	Heap   uint32 // global index of the heap pointer
}

// AddBumpAllocator emits malloc(size) -> ptr and memset(ptr, value, size)
// into b, exported under those names. malloc hands out 8-byte aligned
// blocks starting at heapBase and never frees. When the heap passes the end
// of memory it grows memory and calls resize, which must be the index of an
// imported () -> () function (usually lib.resize).
func AddBumpAllocator(b *Builder, resize uint32, heapBase int32) AllocatorFuncs {
	heap := b.GlobalI32(heapBase, true)

	const (
		size = 0
		ptr  = 1
		end  = 2
	)
	malloc := NewCode().
		GlobalGet(heap).LocalSet(ptr).
		// end = (heap + size + 7) & ~7
		GlobalGet(heap).LocalGet(size).Op(OpI32Add).
		I32Const(7).Op(OpI32Add).I32Const(-8).Op(OpI32And).LocalTee(end).
		GlobalSet(heap).
		LocalGet(end).MemorySize().I32Const(16).Op(OpI32Shl).Op(OpI32GtU).
		If().
		// grow by ceil(end / page) - current pages
		LocalGet(end).I32Const(0xFFFF).Op(OpI32Add).I32Const(16).Op(OpI32ShrU).
		MemorySize().Op(OpI32Sub).MemoryGrow().
		I32Const(-1).Op(OpI32Eq).
		If().Op(OpUnreachable).End().
		Call(resize).
		End().
		LocalGet(ptr)
	mallocIdx := b.Func(oneI32, oneI32, []ValType{ValI32, ValI32}, malloc)

	memset := NewCode().LocalGet(0).LocalGet(1).LocalGet(2).MemoryFill()
	memsetIdx := b.Func([]ValType{ValI32, ValI32, ValI32}, nil, nil, memset)

	b.ExportFunc("malloc", mallocIdx)
	b.ExportFunc("memset", memsetIdx)
	return AllocatorFuncs{Malloc: mallocIdx, Memset: memsetIdx, Heap: heap}
}
