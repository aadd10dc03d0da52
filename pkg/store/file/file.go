package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/logger"
	"github.com/OFFIS-RIT/findet/pkg/store"
)

// GraphFileStorage stores graphs as JSON documents on the local filesystem.
// Relative keys are resolved against dir. An empty dir uses keys as paths.
type GraphFileStorage struct {
	dir string
}

func NewGraphFileStorage(dir string) *GraphFileStorage {
	return &GraphFileStorage{dir: dir}
}

func (s *GraphFileStorage) path(key string) string {
	if s.dir == "" || filepath.IsAbs(key) {
		return key
	}
	return filepath.Join(s.dir, key)
}

// SaveGraph writes g to a temporary file next to the target and renames it
// into place, so readers never see a partial document.
func (s *GraphFileStorage) SaveGraph(ctx context.Context, key string, g *common.Graph) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := store.EncodeGraph(g)
	if err != nil {
		return err
	}

	target := s.path(key)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".graph-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write graph: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write graph: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to move graph into place: %w", err)
	}

	logger.Debug("[Store][File] Saved graph", "path", target, "nodes", len(g.Nodes), "relationships", len(g.Relationships))
	return nil
}

func (s *GraphFileStorage) LoadGraph(ctx context.Context, key string) (*common.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", store.ErrGraphNotFound, key)
		}
		return nil, err
	}
	return store.DecodeGraph(data)
}
