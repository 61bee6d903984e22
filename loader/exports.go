package loader

import (
	"context"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-loader/errors"
)

// Exports mirrors a module's exports. Values are api.Function, api.Memory or
// api.Global for guest exports, or whatever the caller seeded.
type Exports struct {
	// Ready completes once the module is loaded.
	Ready *Ready

	values map[string]any
	mu     sync.RWMutex
}

// NewExports creates an empty export table. Entries set before a load are
// kept alongside the module's own exports.
func NewExports() *Exports {
	return &Exports{values: make(map[string]any), Ready: newReady()}
}

// Set stores v under name.
func (e *Exports) Set(name string, v any) {
	e.mu.Lock()
	e.values[name] = v
	e.mu.Unlock()
}

// Get returns the value stored under name.
func (e *Exports) Get(name string) (any, bool) {
	e.mu.RLock()
	v, ok := e.values[name]
	e.mu.RUnlock()
	return v, ok
}

// Names returns all export names in sorted order.
func (e *Exports) Names() []string {
	e.mu.RLock()
	out := make([]string, 0, len(e.values))
	for name := range e.values {
		out = append(out, name)
	}
	e.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the number of entries.
func (e *Exports) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.values)
}

// Func returns a callable handle for the function export name. The handle of
// a missing export fails on Call.
func (e *Exports) Func(name string) *Function {
	v, _ := e.Get(name)
	fn, _ := v.(api.Function)
	return &Function{name: name, fn: fn}
}

// Memory returns the memory exported as name.
func (e *Exports) Memory(name string) (api.Memory, bool) {
	v, _ := e.Get(name)
	mem, ok := v.(api.Memory)
	return mem, ok && mem != nil
}

// Global returns the global exported as name.
func (e *Exports) Global(name string) (api.Global, bool) {
	v, _ := e.Get(name)
	g, ok := v.(api.Global)
	return g, ok && g != nil
}

// mirror copies entries in one step so readers never see half of them. The
// returned func restores the previous contents.
func (e *Exports) mirror(entries map[string]any) (undo func()) {
	type prev struct {
		v  any
		ok bool
	}
	saved := make(map[string]prev, len(entries))

	e.mu.Lock()
	for name, v := range entries {
		old, ok := e.values[name]
		saved[name] = prev{v: old, ok: ok}
		e.values[name] = v
	}
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for name, p := range saved {
			if p.ok {
				e.values[name] = p.v
			} else {
				delete(e.values, name)
			}
		}
	}
}

// Function is a handle on an exported guest function.
type Function struct {
	fn   api.Function
	name string
}

// Name returns the export name.
func (f *Function) Name() string { return f.name }

// Exists reports whether the export was found.
func (f *Function) Exists() bool { return f.fn != nil }

// Definition returns the function's signature, or nil if it does not exist.
func (f *Function) Definition() api.FunctionDefinition {
	if f.fn == nil {
		return nil
	}
	return f.fn.Definition()
}

// Call invokes the function with raw wasm values.
func (f *Function) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	if f.fn == nil {
		return nil, errors.NotFound(errors.PhaseHost, "export function", f.name)
	}
	return f.fn.Call(ctx, params...)
}
