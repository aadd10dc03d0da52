package cli

import (
	"fmt"
	"time"

	"github.com/OFFIS-RIT/findet/internal/config"
	"github.com/OFFIS-RIT/findet/internal/pipeline"
	"github.com/OFFIS-RIT/findet/internal/util"
	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/logger"
	"github.com/OFFIS-RIT/findet/pkg/store/file"

	"github.com/spf13/cobra"
)

// newPipeline is replaced in tests.
var newPipeline = pipeline.New

func RunExtract(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := cmd.Context()

	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	clean, _ := cmd.Flags().GetBool("clean")
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to read --json flag: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := applyChunkFlags(cmd, cfg); err != nil {
		return err
	}

	runID, err := util.NewID()
	if err != nil {
		return err
	}

	text, err := readSource(ctx, cfg, runID, input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warn("[Extract] Failed to close model client", "err", err)
		}
	}()

	logger.Info("[Extract] Starting", "run", runID, "input", input, "chars", len([]rune(text)))

	out := file.NewGraphFileStorage("")
	progress := func(g *common.Graph, chunk, total int) {
		if err := out.SaveGraph(ctx, output, g); err != nil {
			logger.Error("[Extract] Failed to save partial graph", "chunk", chunk, "err", err)
			return
		}
		logger.Info("[Extract] Saved partial graph", "chunk", chunk, "total", total,
			"nodes", len(g.Nodes), "relationships", len(g.Relationships))
	}

	res, err := p.Run(ctx, text, pipeline.RunOptions{
		Repair:   true,
		Clean:    clean,
		Progress: progress,
	})
	if err != nil {
		return err
	}

	if err := out.SaveGraph(ctx, output, res.Graph); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}
	pipeline.LogMetrics(p.AI)

	summary := newRunSummary(runID, input, output, res)
	summary.DurationMS = time.Since(start).Milliseconds()
	return writeSummary(cmd.OutOrStdout(), summary, asJSON)
}

// applyChunkFlags overrides the environment configuration with the flags
// the user actually set.
func applyChunkFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if noChunk, _ := flags.GetBool("no-chunk"); noChunk {
		cfg.ChunkEnabled = false
	}
	if flags.Changed("chunk-size") {
		cfg.ChunkSizeTokens, _ = flags.GetInt("chunk-size")
	}
	if flags.Changed("overlap") {
		cfg.ChunkOverlapTokens, _ = flags.GetInt("overlap")
	}
	if flags.Changed("parallel") {
		cfg.ParallelRequests, _ = flags.GetInt("parallel")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ChunkEnabled && cfg.ChunkOverlapTokens >= cfg.ChunkSizeTokens {
		return fmt.Errorf("--overlap (%d) must be less than --chunk-size (%d)", cfg.ChunkOverlapTokens, cfg.ChunkSizeTokens)
	}
	return nil
}
