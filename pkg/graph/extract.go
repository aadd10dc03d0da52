package graph

import (
	"context"

	"github.com/OFFIS-RIT/findet/pkg/common"
)

// Extractor turns a piece of text into a graph. Implementations may return
// graphs that break structural invariants; RepairGraph fixes those.
type Extractor interface {
	Extract(ctx context.Context, text string) (*common.Graph, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, text string) (*common.Graph, error)

func (f ExtractorFunc) Extract(ctx context.Context, text string) (*common.Graph, error) {
	return f(ctx, text)
}

// ProgressFunc observes a chunked extraction. It receives the merge of all
// chunks extracted so far together with the 1-based index of the chunk that
// just finished and the total chunk count. Calls arrive in chunk order.
type ProgressFunc func(merged *common.Graph, chunkIndex, totalChunks int)

// ExtractResult is the outcome of an extraction run.
type ExtractResult struct {
	Graph       *common.Graph
	TotalChunks int
	Failures    []ChunkFailure
}

// FailedIndices returns the 1-based indices of the chunks that failed.
func (r *ExtractResult) FailedIndices() []int {
	return failedIndices(r.Failures)
}

type chunkResult struct {
	graph *common.Graph
	err   error
	done  bool
}
