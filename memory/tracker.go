package memory

import (
	"sync/atomic"

	"github.com/tetratelabs/wazero/api"

	wasmloader "github.com/wippyai/wasm-loader"
)

// Tracker owns the current Table for one linear memory and replaces it when
// told the memory was resized. Rebuild is expected to be called from the
// goroutine running the guest; Table may be read from anywhere.
type Tracker struct {
	mem       api.Memory
	alloc     wasmloader.Allocator
	onRebuild func(*Table)
	cur       atomic.Pointer[Table]
	gen       atomic.Uint64
}

// NewTracker creates a tracker for mem. No table exists until the first
// Rebuild.
func NewTracker(mem api.Memory, alloc wasmloader.Allocator) *Tracker {
	return &Tracker{mem: mem, alloc: alloc}
}

// Bind replaces the memory and allocator used by subsequent rebuilds.
func (tr *Tracker) Bind(mem api.Memory, alloc wasmloader.Allocator) {
	tr.mem = mem
	tr.alloc = alloc
}

// Memory returns the bound memory.
func (tr *Tracker) Memory() api.Memory {
	return tr.mem
}

// OnRebuild registers fn to be called with every new table.
func (tr *Tracker) OnRebuild(fn func(*Table)) {
	tr.onRebuild = fn
}

// Rebuild binds a new table to the memory's current buffer and publishes it
// with the next generation.
func (tr *Tracker) Rebuild() *Table {
	gen := tr.gen.Add(1)
	t := New(View(tr.mem),
		WithGeneration(gen),
		WithAllocator(tr.alloc),
		WithSource(tr),
	)
	tr.cur.Store(t)
	if tr.onRebuild != nil {
		tr.onRebuild(t)
	}
	return t
}

// Reset withdraws the current table. The generation count is kept.
func (tr *Tracker) Reset() {
	tr.cur.Store(nil)
}

// Table returns the current table, or nil before the first Rebuild.
func (tr *Tracker) Table() *Table {
	return tr.cur.Load()
}

// Generation returns the number of rebuilds so far.
func (tr *Tracker) Generation() uint64 {
	return tr.gen.Load()
}
