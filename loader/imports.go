package loader

import (
	"context"
	"sort"

	"github.com/tetratelabs/wazero/api"
)

// Default import names.
const (
	NamespaceLib = "lib"
	NamespaceEnv = "env"

	FuncLog    = "log"
	FuncResize = "resize"
	FuncMalloc = "malloc"
	FuncMemset = "memset"
	FuncAbort  = "abort"
)

// HostFunc is a Go function offered to the guest as an import.
type HostFunc struct {
	Fn      api.GoModuleFunc
	Params  []api.ValueType
	Results []api.ValueType
}

// call runs h outside of the guest, as the loader does for the initial
// resize and for the lib.malloc fallback.
func (h *HostFunc) call(ctx context.Context, mod api.Module, params ...uint64) []uint64 {
	stack := make([]uint64, max(len(h.Params), len(h.Results), 1))
	copy(stack, params)
	h.Fn(ctx, mod, stack)
	return stack[:len(h.Results)]
}

// Imports is a set of host functions keyed by namespace and name.
type Imports struct {
	ns map[string]map[string]*HostFunc
}

// NewImports creates an empty import set.
func NewImports() *Imports {
	return &Imports{ns: make(map[string]map[string]*HostFunc)}
}

// Func adds or replaces namespace.name.
func (im *Imports) Func(namespace, name string, fn api.GoModuleFunc, params, results []api.ValueType) *Imports {
	return im.Set(namespace, name, &HostFunc{Fn: fn, Params: params, Results: results})
}

// Set adds or replaces namespace.name.
func (im *Imports) Set(namespace, name string, h *HostFunc) *Imports {
	funcs, ok := im.ns[namespace]
	if !ok {
		funcs = make(map[string]*HostFunc)
		im.ns[namespace] = funcs
	}
	funcs[name] = h
	return im
}

// Lookup returns the function registered as namespace.name.
func (im *Imports) Lookup(namespace, name string) (*HostFunc, bool) {
	if im == nil {
		return nil, false
	}
	h, ok := im.ns[namespace][name]
	return h, ok
}

// Has reports whether namespace.name is registered.
func (im *Imports) Has(namespace, name string) bool {
	_, ok := im.Lookup(namespace, name)
	return ok
}

// Namespaces returns the registered namespaces in sorted order.
func (im *Imports) Namespaces() []string {
	out := make([]string, 0, len(im.ns))
	for ns := range im.ns {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Names returns the function names of namespace in sorted order.
func (im *Imports) Names(namespace string) []string {
	funcs := im.ns[namespace]
	out := make([]string, 0, len(funcs))
	for name := range funcs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered functions.
func (im *Imports) Len() int {
	n := 0
	for _, funcs := range im.ns {
		n += len(funcs)
	}
	return n
}

// merge returns a new set holding defaults overlaid with overrides. Neither
// argument is modified.
func merge(defaults, overrides *Imports) *Imports {
	out := NewImports()
	for _, src := range []*Imports{defaults, overrides} {
		if src == nil {
			continue
		}
		for ns, funcs := range src.ns {
			for name, h := range funcs {
				out.Set(ns, name, h)
			}
		}
	}
	return out
}
