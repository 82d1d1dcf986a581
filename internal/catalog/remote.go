package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultFetchTimeout bounds a remote catalog request.
const DefaultFetchTimeout = 10 * time.Second

// maxCatalogSize caps the size of a remote catalog document.
const maxCatalogSize = 1 << 20

// Load reads a catalog from source: an http(s) URL, a file path, or the
// built-in catalog when source is empty.
func Load(ctx context.Context, source string) (*Catalog, error) {
	switch {
	case source == "":
		return Default(), nil
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return Fetch(ctx, &http.Client{Timeout: DefaultFetchTimeout}, source)
	default:
		return LoadFile(source)
	}
}

// Fetch downloads and parses a YAML catalog from url.
func Fetch(ctx context.Context, client *http.Client, url string) (*Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/yaml, text/yaml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog request failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	if len(data) > maxCatalogSize {
		return nil, fmt.Errorf("catalog exceeds %d bytes", maxCatalogSize)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, err
	}

	slog.Info("catalog_fetched", "url", url, "offers", c.Len())
	return c, nil
}
