package store

import (
	"context"
	"errors"

	"github.com/OFFIS-RIT/findet/pkg/common"
)

var ErrGraphNotFound = errors.New("graph not found")

// GraphStorage persists extracted graphs under a caller-chosen key. Saving
// to an existing key replaces the stored graph.
type GraphStorage interface {
	SaveGraph(ctx context.Context, key string, g *common.Graph) error
	LoadGraph(ctx context.Context, key string) (*common.Graph, error)
}
