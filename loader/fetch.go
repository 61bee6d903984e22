package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// Fetcher retrieves module bytes for a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, location string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, location string) ([]byte, error) {
	return f(ctx, location)
}

// URLFetcher reads local paths, file:// URLs and http(s):// URLs.
type URLFetcher struct {
	client *http.Client
}

// NewURLFetcher wraps client's transport for tracing with tp. A nil client
// means http.DefaultTransport with no timeout.
func NewURLFetcher(client *http.Client, tp trace.TracerProvider) *URLFetcher {
	base := http.DefaultTransport
	c := &http.Client{}
	if client != nil {
		*c = *client
		if client.Transport != nil {
			base = client.Transport
		}
	}
	var opts []otelhttp.Option
	if tp != nil {
		opts = append(opts, otelhttp.WithTracerProvider(tp))
	}
	c.Transport = otelhttp.NewTransport(base, opts...)
	return &URLFetcher{client: c}
}

// Fetch implements Fetcher.
func (f *URLFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err != nil || !isURL(u) {
		return os.ReadFile(location)
	}

	switch u.Scheme {
	case "file":
		path := u.Path
		if u.Host != "" && u.Host != "localhost" {
			path = "//" + u.Host + path
		}
		return os.ReadFile(filepath.FromSlash(path))
	case "http", "https":
		return f.get(ctx, u.String())
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func (f *URLFetcher) get(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// CloseIdleConnections releases pooled HTTP connections.
func (f *URLFetcher) CloseIdleConnections() {
	f.client.CloseIdleConnections()
}

// isURL rejects Windows drive letters, which url.Parse reads as a scheme.
func isURL(u *url.URL) bool {
	return len(u.Scheme) > 1 && !strings.ContainsAny(u.Scheme, `\/`)
}
