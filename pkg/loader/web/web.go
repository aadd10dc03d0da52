package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/OFFIS-RIT/findet/pkg/loader"

	"codeberg.org/readeck/go-readability/v2"
)

// WebGraphLoader loads content from web URLs and extracts readable text.
// For HTML pages, it uses readability to extract the main content.
type WebGraphLoader struct {
	client   *http.Client
	fallback loader.GraphFileLoader
	cache    *loader.Cache
}

// NewWebGraphLoader creates a new web loader. A nil client uses
// http.DefaultClient.
func NewWebGraphLoader(client *http.Client) *WebGraphLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebGraphLoader{
		client: client,
		cache:  loader.NewCache(),
	}
}

// NewWebGraphLoaderWithLoader creates a web loader with a fallback for
// non-HTML content.
func NewWebGraphLoaderWithLoader(client *http.Client, fallback loader.GraphFileLoader) *WebGraphLoader {
	l := NewWebGraphLoader(client)
	l.fallback = fallback
	return l
}

// GetFileText fetches a URL and extracts readable text content.
func (l *WebGraphLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	return l.cache.Load(loader.CacheKey(file), func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.FilePath, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch url: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("failed to fetch url: status %d", resp.StatusCode)
		}

		contentType := resp.Header.Get("Content-Type")
		if strings.Contains(contentType, "text/html") {
			u, err := url.Parse(file.FilePath)
			if err != nil {
				return nil, fmt.Errorf("failed to parse url: %w", err)
			}
			article, err := readability.FromReader(resp.Body, u)
			if err != nil {
				return nil, fmt.Errorf("failed to parse html: %w", err)
			}
			var builder strings.Builder
			if err := article.RenderText(&builder); err != nil {
				return nil, fmt.Errorf("failed to render article text: %w", err)
			}
			return []byte(builder.String()), nil
		}

		if l.fallback != nil && !strings.HasPrefix(contentType, "text/") {
			return l.fallback.GetFileText(ctx, file)
		}

		return io.ReadAll(resp.Body)
	})
}
