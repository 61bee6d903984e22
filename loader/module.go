package loader

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-loader/errors"
	"github.com/wippyai/wasm-loader/memory"
	"github.com/wippyai/wasm-loader/wasm"
)

// State is the position of a Module in its load.
type State int32

const (
	StatePending State = iota
	StateInstantiating
	StateResolved
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInstantiating:
		return "instantiating"
	case StateResolved:
		return "resolved"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Module is the handle for one load. Imports and Log are fixed when the load
// starts; Exports is filled in when it succeeds.
type Module struct {
	Imports *Imports
	Exports *Exports
	Log     LogSink

	ready    *Ready
	tracker  *memory.Tracker
	runtime  wazero.Runtime
	instance api.Module
	info     *wasm.Info
	logger   *zap.Logger
	closeErr error
	name     string
	source   string
	state    atomic.Int32
	close    sync.Once
}

// State returns where the load is.
func (m *Module) State() State {
	return State(m.state.Load())
}

// Name returns the instance name.
func (m *Module) Name() string {
	return m.name
}

// Source returns a description of where the binary came from.
func (m *Module) Source() string {
	return m.source
}

// Memory returns the current accessor table. It is nil until the first
// resize, which always happens before Ready completes.
func (m *Module) Memory() *memory.Table {
	return m.tracker.Table()
}

// Generation returns how many times the accessor table has been built.
func (m *Module) Generation() uint64 {
	return m.tracker.Generation()
}

// Resize rebuilds the accessor table against the current buffer, as the
// lib.resize import does.
func (m *Module) Resize() (*memory.Table, error) {
	if m.State() != StateResolved {
		return nil, errors.NotInitialized(errors.PhaseMemory, "module instance")
	}
	return m.rebuild(m.instance), nil
}

// Instance returns the guest instance, or nil before the load resolves.
func (m *Module) Instance() api.Module {
	if m.State() != StateResolved {
		return nil
	}
	return m.instance
}

// Info returns the module's declarations, or nil before the load resolves.
func (m *Module) Info() *wasm.Info {
	if m.State() != StateResolved {
		return nil
	}
	return m.info
}

// Close waits for the load to finish and releases the module's runtime.
func (m *Module) Close(ctx context.Context) error {
	select {
	case <-m.ready.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	m.close.Do(func() {
		if m.runtime != nil {
			m.closeErr = m.runtime.Close(ctx)
		}
	})
	return m.closeErr
}

// rebuild binds a fresh table to the authoritative memory and the
// allocation primitives currently reachable from mod.
func (m *Module) rebuild(mod api.Module) *memory.Table {
	mem := m.memoryFor(mod)
	m.tracker.Bind(mem, m.allocatorFor(mod, mem))
	t := m.tracker.Rebuild()
	m.logger.Debug("accessor table rebuilt",
		zap.Uint64("generation", t.Generation()),
		zap.Uint32("size", t.Size()),
		zap.Bool("allocator", t.Allocator() != nil),
	)
	return t
}

// memoryFor prefers an export named memory over the instance's own memory.
func (m *Module) memoryFor(mod api.Module) api.Memory {
	if mem, ok := m.Exports.Memory("memory"); ok {
		return mem
	}
	if mod == nil {
		return nil
	}
	return mod.Memory()
}

// tableFor returns the current table, building the first one if the guest
// calls in before any resize.
func (m *Module) tableFor(mod api.Module) *memory.Table {
	if t := m.tracker.Table(); t != nil {
		return t
	}
	return m.rebuild(mod)
}
