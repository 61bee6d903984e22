package loader

import (
	"context"
	"net/http"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-loader/errors"
	"github.com/wippyai/wasm-loader/memory"
	"github.com/wippyai/wasm-loader/wasm"
)

const tracerName = "github.com/wippyai/wasm-loader/loader"

// Loader instantiates modules. Every load gets its own wazero runtime; the
// compilation cache is shared so a module is compiled once per loader.
type Loader struct {
	cache   wazero.CompilationCache
	fetcher Fetcher
	urls    *URLFetcher
	logger  *zap.Logger
	tracer  trace.Tracer
	cfg     Config
}

// New creates a loader. A nil cfg means DefaultConfig.
func New(ctx context.Context, cfg *Config) (*Loader, error) {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	}

	l := &Loader{cfg: c, logger: c.Logger, fetcher: c.Fetcher}
	if l.logger == nil {
		l.logger = Logger()
	}

	tp := c.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	l.tracer = tp.Tracer(tracerName)

	if c.CompilationCacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(c.CompilationCacheDir)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "open compilation cache")
		}
		l.cache = cache
	} else {
		l.cache = wazero.NewCompilationCache()
	}

	if l.fetcher == nil {
		client := c.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: c.HTTPTimeout}
		}
		l.urls = NewURLFetcher(client, c.TracerProvider)
		l.fetcher = l.urls
	}

	l.logger.Debug("loader created",
		zap.String("cache_dir", c.CompilationCacheDir),
		zap.Uint32("memory_limit_pages", c.MemoryLimitPages),
	)
	return l, nil
}

// Close releases the compilation cache. Modules must be closed first.
func (l *Loader) Close(ctx context.Context) error {
	if l.urls != nil {
		l.urls.CloseIdleConnections()
	}
	return l.cache.Close(ctx)
}

func (l *Loader) runtimeConfig() wazero.RuntimeConfig {
	rc := wazero.NewRuntimeConfig().
		WithCompilationCache(l.cache).
		WithCloseOnContextDone(l.cfg.CloseOnContextDone)
	if l.cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(l.cfg.MemoryLimitPages)
	}
	return rc
}

// Compile fetches and validates src once so later loads of the result skip
// fetching and compiling.
func (l *Loader) Compile(ctx context.Context, src Source) (*Compiled, error) {
	ctx, span := l.tracer.Start(ctx, "loader.Compile",
		trace.WithAttributes(attribute.String("wasm.source", src.Name())))
	defer span.End()

	data, err := src.read(ctx, l.fetcher)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	rt := wazero.NewRuntimeWithConfig(ctx, l.runtimeConfig())
	defer rt.Close(ctx)

	if _, err := rt.CompileModule(ctx, data); err != nil {
		err := errors.Compile(err)
		recordError(span, err)
		return nil, err
	}
	info, err := wasm.Inspect(data)
	if err != nil {
		err := errors.Compile(err)
		recordError(span, err)
		return nil, err
	}

	l.logger.Debug("module compiled", zap.String("source", src.Name()), zap.Int("bytes", len(data)))
	return &Compiled{info: info, name: src.Name(), bytes: data}, nil
}

// Start begins loading src and returns immediately. The returned module's
// Exports.Ready completes when the load succeeds or fails.
//
// An Exports serves one load at a time. A pending Ready that no load owns yet
// is reused; otherwise Start installs a fresh one, so a second Start on the
// same Exports never settles the first load's Ready.
func (l *Loader) Start(ctx context.Context, src Source, opts *Options) *Module {
	var o Options
	if opts != nil {
		o = *opts
	}

	exports := o.Exports
	if exports == nil {
		exports = NewExports()
	}
	ready := exports.Ready
	if ready == nil || !ready.claim() {
		ready = newReady()
		ready.claim()
		exports.Ready = ready
	}

	name := o.Name
	if name == "" {
		name = "main"
	}

	m := &Module{
		Exports: exports,
		Log:     o.Log,
		ready:   ready,
		tracker: memory.NewTracker(nil, nil),
		logger:  l.logger.With(zap.String("module", name)),
		name:    name,
		source:  src.Name(),
	}
	if m.Log == nil {
		m.Log = NewZapSink(m.logger)
	}
	if o.OnResize != nil {
		m.tracker.OnRebuild(o.OnResize)
	}
	m.Imports = merge(m.defaultImports(), o.Imports)

	go l.run(ctx, m, src)
	return m
}

// Load starts loading src and waits for it to finish.
func (l *Loader) Load(ctx context.Context, src Source, opts *Options) (*Module, error) {
	m := l.Start(ctx, src, opts)
	<-m.ready.Done()
	if err := m.ready.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func (l *Loader) run(ctx context.Context, m *Module, src Source) {
	ctx, span := l.tracer.Start(ctx, "loader.Load", trace.WithAttributes(
		attribute.String("wasm.source", src.Name()),
		attribute.String("wasm.module", m.name),
	))

	m.state.Store(int32(StateInstantiating))
	if err := l.instantiate(ctx, m, src, span); err != nil {
		if m.runtime != nil {
			_ = m.runtime.Close(context.WithoutCancel(ctx))
			m.runtime = nil
		}
		recordError(span, err)
		span.End()
		m.logger.Debug("module rejected", zap.Error(err))
		m.tracker.Reset()
		m.state.Store(int32(StateRejected))
		m.ready.reject(err)
		return
	}

	span.SetAttributes(attribute.Int64("wasm.generation", int64(m.Generation())))
	span.End()
	m.logger.Debug("module ready", zap.Int("exports", m.Exports.Len()))
	m.state.Store(int32(StateResolved))
	m.ready.resolve(m)
}

func (l *Loader) instantiate(ctx context.Context, m *Module, src Source, span trace.Span) error {
	data, err := src.read(ctx, l.fetcher)
	if err != nil {
		return err
	}
	span.AddEvent("fetched", trace.WithAttributes(attribute.Int("wasm.bytes", len(data))))
	m.logger.Debug("module fetched", zap.String("source", src.Name()), zap.Int("bytes", len(data)))

	rt := wazero.NewRuntimeWithConfig(ctx, l.runtimeConfig())
	m.runtime = rt

	compiled, err := rt.CompileModule(ctx, data)
	if err != nil {
		return errors.Compile(err)
	}
	if c, ok := src.(compiledSource); ok {
		m.info = c.c.info
	} else if m.info, err = wasm.Inspect(data); err != nil {
		return errors.Compile(err)
	}
	span.AddEvent("compiled")

	bound, err := m.link(compiled)
	if err != nil {
		return err
	}
	if err := m.instantiateHosts(ctx, rt, bound); err != nil {
		return err
	}

	inst, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(m.name))
	if err != nil {
		return errors.Instantiation(err)
	}
	m.instance = inst
	span.AddEvent("instantiated")

	undo := m.Exports.mirror(collectExports(inst, compiled, m.info))
	if err := m.initialResize(ctx, inst); err != nil {
		undo()
		return err
	}
	return nil
}

// link checks every function import against the effective imports and
// returns the host functions to bind, one entry per guest import. env.abort
// is bound here when the guest needs it, so m.Imports stays as Start left it.
func (m *Module) link(compiled wazero.CompiledModule) (*Imports, error) {
	var missing []string
	bound := NewImports()

	for _, def := range compiled.ImportedFunctions() {
		ns, name, _ := def.Import()
		h, ok := m.Imports.Lookup(ns, name)
		if !ok && ns == NamespaceEnv && name == FuncAbort {
			h, ok = m.abortImport(), true
		}
		if !ok {
			missing = append(missing, ns+"."+name)
			continue
		}
		if h == nil || h.Fn == nil {
			return nil, errors.New(errors.PhaseLink, errors.KindInvalidInput).
				Path(ns, name).
				Detail("host function is nil").
				Build()
		}
		if !sameTypes(def.ParamTypes(), h.Params) || !sameTypes(def.ResultTypes(), h.Results) {
			return nil, errors.TypeMismatch(errors.PhaseLink, []string{ns, name},
				signature(def.ParamTypes(), def.ResultTypes()),
				signature(h.Params, h.Results))
		}
		bound.Set(ns, name, h)
	}
	for _, def := range compiled.ImportedMemories() {
		ns, name, _ := def.Import()
		missing = append(missing, ns+"."+name)
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingImportsError(missing)
	}
	return bound, nil
}

// instantiateHosts builds one host module per namespace of bound.
func (m *Module) instantiateHosts(ctx context.Context, rt wazero.Runtime, bound *Imports) error {
	for _, ns := range bound.Namespaces() {
		b := rt.NewHostModuleBuilder(ns)
		for _, name := range bound.Names(ns) {
			h, _ := bound.Lookup(ns, name)
			b = b.NewFunctionBuilder().
				WithGoModuleFunction(h.Fn, h.Params, h.Results).
				WithName(name).
				Export(name)
		}
		if _, err := b.Instantiate(ctx); err != nil {
			return errors.New(errors.PhaseLink, errors.KindInstantiation).
				Path(ns).
				Cause(err).
				Detail("instantiate host module").
				Build()
		}
	}
	return nil
}

// initialResize runs the effective lib.resize once. A caller override that
// does not build a table is followed by a rebuild here.
func (m *Module) initialResize(ctx context.Context, inst api.Module) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.PhaseInstantiate, errors.KindInstantiation).
				Path(NamespaceLib, FuncResize).
				Value(r).
				Detail("resize panicked: %v", r).
				Build()
		}
	}()

	before := m.tracker.Generation()
	if h, ok := m.Imports.Lookup(NamespaceLib, FuncResize); ok && h != nil && h.Fn != nil {
		h.call(ctx, inst)
	}
	if m.tracker.Generation() == before {
		m.rebuild(inst)
	}
	return nil
}

// collectExports gathers every export of inst. Globals cannot be listed
// through the compiled module, so their names come from the binary.
func collectExports(inst api.Module, compiled wazero.CompiledModule, info *wasm.Info) map[string]any {
	entries := make(map[string]any)
	for name := range compiled.ExportedFunctions() {
		if fn := inst.ExportedFunction(name); fn != nil {
			entries[name] = fn
		}
	}
	for name := range compiled.ExportedMemories() {
		if mem := inst.ExportedMemory(name); mem != nil {
			entries[name] = mem
		}
	}
	if info != nil {
		for _, e := range info.Exports {
			if e.Kind != wasm.KindGlobal {
				continue
			}
			if g := inst.ExportedGlobal(e.Name); g != nil {
				entries[e.Name] = g
			}
		}
	}
	return entries
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
