package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/findet/internal/config"
	"github.com/OFFIS-RIT/findet/internal/storage"
	"github.com/OFFIS-RIT/findet/pkg/loader"
	ioloader "github.com/OFFIS-RIT/findet/pkg/loader/io"
	s3loader "github.com/OFFIS-RIT/findet/pkg/loader/s3"
	"github.com/OFFIS-RIT/findet/pkg/loader/web"
)

// parseS3URI splits s3://bucket/key.
func parseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %s", uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri needs a bucket and a key: %s", uri)
	}
	return bucket, key, nil
}

// sourceFile resolves input to a loader.GraphFile.
func sourceFile(ctx context.Context, cfg *config.Config, id, input string) (loader.GraphFile, error) {
	switch {
	case strings.HasPrefix(input, "s3://"):
		bucket, key, err := parseS3URI(input)
		if err != nil {
			return loader.GraphFile{}, err
		}
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return loader.GraphFile{}, err
		}
		return loader.NewGraphFile(id, key, s3loader.NewS3GraphFileLoaderWithClient(bucket, client)), nil
	case strings.HasPrefix(input, "http://"), strings.HasPrefix(input, "https://"):
		return loader.NewGraphFile(id, input, web.NewWebGraphLoader(nil)), nil
	default:
		return loader.NewGraphFile(id, input, ioloader.NewIOGraphFileLoader()), nil
	}
}

func readSource(ctx context.Context, cfg *config.Config, id, input string) (string, error) {
	file, err := sourceFile(ctx, cfg, id, input)
	if err != nil {
		return "", err
	}
	text, err := file.GetText(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("input %s contains no text", input)
	}
	return text, nil
}
