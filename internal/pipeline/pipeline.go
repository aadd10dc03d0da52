package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/OFFIS-RIT/findet/internal/config"
	"github.com/OFFIS-RIT/findet/pkg/ai"
	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/extractor"
	"github.com/OFFIS-RIT/findet/pkg/graph"
	"github.com/OFFIS-RIT/findet/pkg/logger"
)

// Pipeline bundles an LLM backend, the extractor built on it and the chunked
// extraction client. It is shared by the CLI, the worker and the server.
type Pipeline struct {
	AI        ai.GraphAIClient
	Graph     *graph.GraphClient
	Extractor graph.Extractor
}

// New builds a pipeline for the provider selected in cfg.
func New(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	if err := cfg.ValidateLLM(); err != nil {
		return nil, err
	}

	aiClient, err := extractor.NewAIClient(ctx, cfg.AIClientParams())
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	ex, err := extractor.NewLLMExtractor(cfg.ExtractorParams(aiClient))
	if err != nil {
		return nil, err
	}

	gc, err := graph.NewGraphClient(cfg.GraphClientParams())
	if err != nil {
		return nil, err
	}

	logger.Info("[Pipeline] Ready", "provider", cfg.Provider, "chunking", cfg.ChunkEnabled,
		"chunk_size", cfg.ChunkSizeTokens, "overlap", cfg.ChunkOverlapTokens, "parallel", cfg.ParallelRequests)

	return &Pipeline{
		AI:        aiClient,
		Graph:     gc,
		Extractor: ex,
	}, nil
}

// Close releases the backend connection if the backend holds one.
func (p *Pipeline) Close() error {
	if c, ok := p.AI.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// RunOptions controls the post-processing of one run. Graph overrides the
// pipeline's chunking client when set.
type RunOptions struct {
	Repair   bool
	Clean    bool
	Progress graph.ProgressFunc
	Graph    *graph.GraphClient
}

// Result is the final graph of a run together with what happened on the way.
type Result struct {
	Graph                *common.Graph
	TotalChunks          int
	FailedChunks         []int
	RelationshipsRemoved int
	Prune                *graph.PruneStats
	Duration             time.Duration
}

// Run extracts a graph from text and applies the requested repair and
// cleaning steps. An extraction without nodes is returned unrepaired.
func (p *Pipeline) Run(ctx context.Context, text string, opts RunOptions) (*Result, error) {
	start := time.Now()

	gc := p.Graph
	if opts.Graph != nil {
		gc = opts.Graph
	}

	res, err := gc.ExtractGraph(ctx, text, p.Extractor, opts.Progress)
	if err != nil {
		return nil, err
	}

	out := &Result{
		Graph:        res.Graph,
		TotalChunks:  res.TotalChunks,
		FailedChunks: res.FailedIndices(),
	}

	if opts.Repair || opts.Clean {
		if len(out.Graph.Nodes) == 0 {
			logger.Warn("[Pipeline] Extraction returned no nodes, skipping repair")
		} else {
			before := len(out.Graph.Relationships)
			repaired, err := graph.RepairGraph(out.Graph)
			if err != nil {
				return nil, err
			}
			out.RelationshipsRemoved = before - len(repaired.Relationships)
			out.Graph = repaired
		}
	}

	if opts.Clean {
		pruned, stats := graph.PruneGraph(out.Graph)
		out.Graph = pruned
		out.Prune = &stats
	}

	out.Duration = time.Since(start)
	return out, nil
}

// LogMetrics writes the accumulated model usage and resets it.
func LogMetrics(client ai.GraphAIClient) {
	if client == nil {
		return
	}
	metrics := client.GetMetrics()
	logger.Info(
		"[Pipeline] AI metrics",
		"requests", metrics.Requests,
		"input_tokens", metrics.InputTokens,
		"output_tokens", metrics.OutputTokens,
		"total_tokens", metrics.TotalTokens,
		"duration", FormatDuration(time.Duration(metrics.DurationMs)*time.Millisecond),
	)
	client.ResetMetrics()
}

// FormatDuration renders d as hh:mm:ss.
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
