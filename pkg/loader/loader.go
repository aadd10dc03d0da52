package loader

import (
	"bytes"
	"context"
	"fmt"
	"unicode/utf8"
)

// GraphFile is a text document that a graph is extracted from. Its content
// is retrieved through the associated GraphFileLoader.
type GraphFile struct {
	ID       string
	FilePath string
	Loader   GraphFileLoader
}

// NewGraphFile creates a GraphFile read by l.
func NewGraphFile(id, filePath string, l GraphFileLoader) GraphFile {
	return GraphFile{
		ID:       id,
		FilePath: filePath,
		Loader:   l,
	}
}

// GetText loads the file and returns its content as one string. Text is
// returned as is apart from a leading UTF-8 byte order mark.
//
// Example:
//
//	file := loader.NewGraphFile("report", "data/raw_report.txt", io.NewIOGraphFileLoader())
//	text, err := file.GetText(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
func (f GraphFile) GetText(ctx context.Context) (string, error) {
	if f.Loader == nil {
		return "", fmt.Errorf("no loader configured for %s", f.FilePath)
	}
	raw, err := f.Loader.GetFileText(ctx, f)
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", f.FilePath, err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%s is not valid UTF-8 text", f.FilePath)
	}
	return string(raw), nil
}

// GraphFileLoader loads the raw bytes of a GraphFile. Implementations may
// read from disk, object storage or the web.
type GraphFileLoader interface {
	GetFileText(ctx context.Context, file GraphFile) ([]byte, error)
}

// CacheKey identifies a file in loader caches.
func CacheKey(file GraphFile) string {
	return file.ID + ":" + file.FilePath
}
