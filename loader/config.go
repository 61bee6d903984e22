package loader

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-loader/memory"
)

// Config holds configuration for loader creation
type Config struct {
	// Logger receives lifecycle events and, through the default sink, guest
	// log messages. Nil means the package logger.
	Logger *zap.Logger

	// Fetcher retrieves bytes for Path sources. Nil means a fetcher that
	// reads local files and file:// and http(s):// URLs.
	Fetcher Fetcher

	// HTTPClient is used by the default fetcher. Its transport is wrapped
	// for tracing. Nil means a client with HTTPTimeout.
	HTTPClient *http.Client

	// TracerProvider creates the spans recorded around fetch, compile and
	// instantiation. Nil means the global provider.
	TracerProvider trace.TracerProvider

	// CompilationCacheDir persists compiled code across processes.
	// Empty means an in-memory cache shared by all loads of this loader.
	CompilationCacheDir string

	// HTTPTimeout bounds a single remote fetch. 0 means no timeout.
	HTTPTimeout time.Duration

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// CloseOnContextDone makes guest calls return when their context is
	// cancelled, at a small cost per call.
	CloseOnContextDone bool
}

// DefaultConfig returns the configuration used when New is given nil.
func DefaultConfig() Config {
	return Config{
		HTTPTimeout: 30 * time.Second,
	}
}

// Options holds per-load configuration.
type Options struct {
	// Imports are merged over the default lib.log and lib.resize imports.
	// The caller's object is not modified.
	Imports *Imports

	// Exports, when set, is populated in place. Entries already present are
	// kept unless the module exports the same name.
	Exports *Exports

	// Log receives guest log messages. Nil forwards them to the loader logger.
	Log LogSink

	// OnResize is called with every accessor table the module gets.
	OnResize func(*memory.Table)

	// Name is the instance name. Empty means "main".
	Name string
}
