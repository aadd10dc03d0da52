package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/OFFIS-RIT/findet/internal/util"
	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/logger"

	"golang.org/x/sync/errgroup"
)

var errNoGraph = errors.New("extractor returned no graph")

// ExtractGraph extracts a graph from text.
//
// When chunking is disabled or the text fits into one chunk, the extractor is
// called once and its graph is returned untouched. Otherwise the text is
// split with SplitText and every chunk is extracted on its own. Failed chunks
// are recorded in the result and skipped; the run only fails with
// ErrAllChunksFailed when no chunk succeeds. Successful chunk graphs are
// merged in chunk order.
//
// onChunkComplete may be nil. Neither the merged nor the returned graph is
// repaired; call RepairGraph or ValidateGraph on the result.
func (g *GraphClient) ExtractGraph(
	ctx context.Context,
	text string,
	extractor Extractor,
	onChunkComplete ProgressFunc,
) (*ExtractResult, error) {
	if !g.chunkEnabled || EstimateTokens(text) <= g.chunkSizeTokens {
		graph, err := g.extractChunk(ctx, extractor, text)
		if err != nil {
			return nil, fmt.Errorf("failed to extract graph: %w", err)
		}
		return &ExtractResult{Graph: graph, TotalChunks: 1}, nil
	}

	if g.chunkOverlapTokens >= g.chunkSizeTokens {
		return nil, invalidArgument(fmt.Sprintf(
			"overlap (%d) must be less than chunk size (%d)",
			g.chunkOverlapTokens, g.chunkSizeTokens,
		))
	}

	chunks, err := SplitText(text, g.chunkSizeTokens, g.chunkOverlapTokens)
	if err != nil {
		return nil, err
	}
	total := len(chunks)
	if total == 0 {
		return nil, &AllChunksFailedError{Total: 0}
	}

	logger.Info(
		"[Extract] Processing document in chunks",
		"chunks", total,
		"size_tokens", g.chunkSizeTokens,
		"overlap_tokens", g.chunkOverlapTokens,
		"parallel", g.parallelChunks,
	)

	results := make([]chunkResult, total)
	successes := make([]*common.Graph, 0, total)
	failures := make([]ChunkFailure, 0)
	next := 0
	mu := sync.Mutex{}

	// flush reports finished chunks in index order. Callers hold mu.
	flush := func() {
		for next < total && results[next].done {
			res := results[next]
			results[next] = chunkResult{done: true}
			idx := next + 1
			next++

			if res.err != nil {
				failures = append(failures, ChunkFailure{Index: idx, Err: res.err})
				logger.Warn("[Extract] Chunk failed", "chunk", idx, "total", total, "err", res.err)
				continue
			}

			successes = append(successes, res.graph)
			logger.Info(
				"[Extract] Chunk extracted",
				"chunk", idx,
				"total", total,
				"nodes", len(res.graph.Nodes),
				"relationships", len(res.graph.Relationships),
			)

			if onChunkComplete != nil {
				merged, err := MergeGraphs(successes)
				if err != nil {
					logger.Error("[Extract] Failed to merge partial graph", "chunk", idx, "err", err)
					continue
				}
				onChunkComplete(merged, idx, total)
			}
		}
	}

	eg := new(errgroup.Group)
	eg.SetLimit(g.parallelChunks)
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			graph, err := g.extractChunk(ctx, extractor, chunk)

			mu.Lock()
			defer mu.Unlock()
			results[i] = chunkResult{graph: graph, err: err, done: true}
			flush()
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(failures) > 0 {
		logger.Warn(
			"[Extract] Some chunks failed",
			"failed", len(failures),
			"total", total,
			"indices", fmt.Sprint(failedIndices(failures)),
		)
	}

	if len(successes) == 0 {
		return nil, &AllChunksFailedError{Total: total, Failures: failures}
	}

	merged, err := MergeGraphs(successes)
	if err != nil {
		return nil, err
	}

	logger.Info(
		"[Extract] Merged chunk graphs",
		"succeeded", len(successes),
		"total", total,
		"nodes", len(merged.Nodes),
		"relationships", len(merged.Relationships),
	)

	return &ExtractResult{
		Graph:       merged,
		TotalChunks: total,
		Failures:    failures,
	}, nil
}

func (g *GraphClient) extractChunk(ctx context.Context, extractor Extractor, text string) (*common.Graph, error) {
	graph, err := util.RetryWithContext(ctx, g.maxRetries, func(ctx context.Context) (*common.Graph, error) {
		graph, err := extractor.Extract(ctx, text)
		if err != nil {
			return nil, err
		}
		if graph == nil {
			return nil, errNoGraph
		}
		return graph, nil
	})
	if err != nil {
		return nil, err
	}
	return graph, nil
}

func failedIndices(failures []ChunkFailure) []int {
	indices := make([]int, len(failures))
	for i, f := range failures {
		indices[i] = f.Index
	}
	return indices
}
