package loader

import (
	"context"
	"io"

	"github.com/wippyai/wasm-loader/errors"
	"github.com/wippyai/wasm-loader/wasm"
)

// Source supplies the module binary for a load.
type Source interface {
	// Name describes the source in logs and errors.
	Name() string
	read(ctx context.Context, f Fetcher) ([]byte, error)
}

type pathSource string

// Path is a local file path or a file://, http:// or https:// URL resolved
// through the loader's Fetcher.
func Path(location string) Source { return pathSource(location) }

func (p pathSource) Name() string { return string(p) }

func (p pathSource) read(ctx context.Context, f Fetcher) ([]byte, error) {
	data, err := f.Fetch(ctx, string(p))
	if err != nil {
		return nil, errors.Fetch(string(p), err)
	}
	return data, nil
}

type bytesSource []byte

// Bytes passes a module binary through unchanged.
func Bytes(data []byte) Source { return bytesSource(data) }

func (b bytesSource) Name() string { return "<bytes>" }

func (b bytesSource) read(context.Context, Fetcher) ([]byte, error) {
	return b, nil
}

type readerSource struct {
	r io.Reader
}

// Reader reads the module binary from r when the load starts.
func Reader(r io.Reader) Source { return readerSource{r: r} }

func (r readerSource) Name() string { return "<reader>" }

func (r readerSource) read(context.Context, Fetcher) ([]byte, error) {
	data, err := io.ReadAll(r.r)
	if err != nil {
		return nil, errors.Fetch(r.Name(), err)
	}
	return data, nil
}

// Compiled is a module that has been fetched, inspected and compiled once.
// Loading it again skips fetching and hits the loader's compilation cache.
type Compiled struct {
	info  *wasm.Info
	name  string
	bytes []byte
}

// Info returns the module's declarations.
func (c *Compiled) Info() *wasm.Info { return c.info }

// Precompiled loads a module returned by Loader.Compile.
func Precompiled(c *Compiled) Source { return compiledSource{c: c} }

type compiledSource struct {
	c *Compiled
}

func (s compiledSource) Name() string {
	if s.c == nil {
		return "<precompiled>"
	}
	return s.c.name
}

func (s compiledSource) read(context.Context, Fetcher) ([]byte, error) {
	if s.c == nil {
		return nil, errors.InvalidInput(errors.PhaseFetch, "nil precompiled module")
	}
	return s.c.bytes, nil
}
