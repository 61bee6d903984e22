package loader

import (
	"context"
	"strings"

	"github.com/tetratelabs/wazero/api"

	wasmloader "github.com/wippyai/wasm-loader"
	"github.com/wippyai/wasm-loader/errors"
	"github.com/wippyai/wasm-loader/memory"
)

const i32 = api.ValueTypeI32

// defaultImports are the lib.log and lib.resize functions every module gets
// unless the caller supplies its own.
func (m *Module) defaultImports() *Imports {
	return NewImports().
		Func(NamespaceLib, FuncLog, m.hostLog, []api.ValueType{i32, i32}, nil).
		Func(NamespaceLib, FuncResize, m.hostResize, nil, nil)
}

// abortImport is env.abort(message, file, line, column), added only for
// modules that import it.
func (m *Module) abortImport() *HostFunc {
	return &HostFunc{
		Fn:     m.hostAbort,
		Params: []api.ValueType{i32, i32, i32, i32},
	}
}

func (m *Module) hostLog(_ context.Context, mod api.Module, stack []uint64) {
	sev := Severity(api.DecodeU32(stack[0]))
	ptr := api.DecodeU32(stack[1])
	m.Log.Log(sev, m.tableFor(mod).String.Get(ptr))
}

func (m *Module) hostResize(_ context.Context, mod api.Module, _ []uint64) {
	m.rebuild(mod)
}

func (m *Module) hostAbort(_ context.Context, mod api.Module, stack []uint64) {
	t := m.tableFor(mod)
	err := &errors.AbortError{
		Message: stringAt(t, api.DecodeU32(stack[0])),
		File:    stringAt(t, api.DecodeU32(stack[1])),
		Line:    api.DecodeU32(stack[2]),
		Column:  api.DecodeU32(stack[3]),
	}
	m.Log.Log(SeverityError, err.Error())
	panic(err)
}

func stringAt(t *memory.Table, ptr uint32) string {
	if ptr == 0 {
		return ""
	}
	return t.String.Get(ptr)
}

// guestAllocator calls the module's malloc and memset exports, or the
// lib.malloc and lib.memset imports when the module does not export them.
type guestAllocator struct {
	mod        api.Module
	mem        api.Memory
	malloc     api.Function
	memset     api.Function
	hostMalloc *HostFunc
	hostMemset *HostFunc
}

// allocatorFor resolves allocation primitives for mod. It returns nil when
// neither an export nor an import provides malloc.
func (m *Module) allocatorFor(mod api.Module, mem api.Memory) wasmloader.Allocator {
	a := &guestAllocator{mod: mod, mem: mem}
	if mod != nil {
		a.malloc = mod.ExportedFunction(FuncMalloc)
		a.memset = mod.ExportedFunction(FuncMemset)
	}
	if a.malloc == nil {
		a.hostMalloc, _ = m.Imports.Lookup(NamespaceLib, FuncMalloc)
	}
	if a.memset == nil {
		a.hostMemset, _ = m.Imports.Lookup(NamespaceLib, FuncMemset)
	}
	if a.malloc == nil && a.hostMalloc == nil {
		return nil
	}
	return a
}

func (a *guestAllocator) Malloc(ctx context.Context, size uint32) (uint32, error) {
	var res []uint64
	if a.malloc != nil {
		var err error
		if res, err = a.malloc.Call(ctx, api.EncodeU32(size)); err != nil {
			return 0, err
		}
	} else {
		res = a.hostMalloc.call(ctx, a.mod, api.EncodeU32(size))
	}
	if len(res) == 0 {
		return 0, errors.TypeMismatch(errors.PhaseMemory, []string{FuncMalloc}, "(i32) -> i32", "no result")
	}
	return api.DecodeU32(res[0]), nil
}

func (a *guestAllocator) Memset(ctx context.Context, ptr uint32, value byte, size uint32) error {
	switch {
	case a.memset != nil:
		// result, if any, is the destination pointer and is ignored
		_, err := a.memset.Call(ctx, api.EncodeU32(ptr), api.EncodeU32(uint32(value)), api.EncodeU32(size))
		return err
	case a.hostMemset != nil:
		a.hostMemset.call(ctx, a.mod, api.EncodeU32(ptr), api.EncodeU32(uint32(value)), api.EncodeU32(size))
		return nil
	}

	// no memset anywhere: fill through the current buffer
	if a.mem == nil {
		return errors.NotInitialized(errors.PhaseMemory, "memory")
	}
	buf, ok := a.mem.Read(ptr, size)
	if !ok {
		return errors.New(errors.PhaseMemory, errors.KindInvalidInput).
			Value(ptr).
			Detail("fill of %d bytes at %d is out of range", size, ptr).
			Build()
	}
	for i := range buf {
		buf[i] = value
	}
	return nil
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func signature(params, results []api.ValueType) string {
	var b strings.Builder
	list := func(types []api.ValueType) {
		b.WriteByte('(')
		for i, t := range types {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(api.ValueTypeName(t))
		}
		b.WriteByte(')')
	}
	list(params)
	b.WriteString(" -> ")
	list(results)
	return b.String()
}
