package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// Fetcher retrieves the raw bytes of a resource.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, source string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, source string) ([]byte, error) {
	return f(ctx, source)
}

// MaxResourceSize bounds a single fetched resource.
const MaxResourceSize = 32 << 20

// FileFetcher reads resources from the local filesystem. Relative sources are
// resolved against Root.
type FileFetcher struct {
	Root string
}

func (f FileFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := strings.TrimPrefix(source, "file://")
	if !filepath.IsAbs(path) && f.Root != "" {
		path = filepath.Join(f.Root, path)
	}
	return readFile(path)
}

// HTTPFetcher downloads resources over HTTP(S).
type HTTPFetcher struct {
	Client *http.Client // http.DefaultClient when nil
}

func (f HTTPFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", source, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResourceSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxResourceSize {
		return nil, fmt.Errorf("fetch %s: resource larger than %d bytes", source, MaxResourceSize)
	}
	return data, nil
}

// SchemeFetcher dispatches http(s) sources to HTTP and everything else to File.
type SchemeFetcher struct {
	File FileFetcher
	HTTP HTTPFetcher
}

func (f SchemeFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return f.HTTP.Fetch(ctx, source)
	}
	return f.File.Fetch(ctx, source)
}
