package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/findet/internal/pipeline"
	"github.com/OFFIS-RIT/findet/internal/server/middleware"
	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/graph"

	"github.com/labstack/echo/v4"
)

type extractResponse struct {
	Graph                *common.Graph     `json:"graph"`
	TotalChunks          int               `json:"total_chunks"`
	FailedChunks         []int             `json:"failed_chunks"`
	RelationshipsRemoved int               `json:"relationships_removed"`
	Prune                *graph.PruneStats `json:"prune,omitempty"`
	DurationMs           int64             `json:"duration_ms"`
}

// ExtractHandler runs a synchronous extraction on the posted text.
func ExtractHandler(c echo.Context) error {
	type extractBody struct {
		Text               string `json:"text" validate:"required"`
		ChunkEnabled       *bool  `json:"chunk_enabled"`
		ChunkSizeTokens    *int   `json:"chunk_size_tokens" validate:"omitempty,gt=0"`
		ChunkOverlapTokens *int   `json:"chunk_overlap_tokens" validate:"omitempty,gte=0"`
		Parallel           *int   `json:"parallel" validate:"omitempty,min=1,max=32"`
		Repair             *bool  `json:"repair"`
		Clean              bool   `json:"clean"`
	}

	data := new(extractBody)
	if err := bindAndValidate(c, data); err != nil {
		return invalidBody(c, err)
	}

	p := c.(*middleware.AppContext).App.Pipeline
	if p == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Message: "Extraction is not configured"})
	}

	gc := p.Graph
	if data.ChunkEnabled != nil || data.ChunkSizeTokens != nil || data.ChunkOverlapTokens != nil {
		enabled, size, overlap := gc.Chunking()
		if data.ChunkEnabled != nil {
			enabled = *data.ChunkEnabled
		}
		if data.ChunkSizeTokens != nil {
			size = *data.ChunkSizeTokens
		}
		if data.ChunkOverlapTokens != nil {
			overlap = *data.ChunkOverlapTokens
		}
		gc = gc.WithChunking(enabled, size, overlap)
	}
	if data.Parallel != nil {
		gc = gc.WithParallelChunks(*data.Parallel)
	}

	repair := true
	if data.Repair != nil {
		repair = *data.Repair
	}

	res, err := p.Run(c.Request().Context(), data.Text, pipeline.RunOptions{
		Repair: repair,
		Clean:  data.Clean,
		Graph:  gc,
	})
	if err != nil {
		return respondError(c, "Extraction failed", err)
	}

	failed := res.FailedChunks
	if failed == nil {
		failed = []int{}
	}
	return c.JSON(http.StatusOK, extractResponse{
		Graph:                res.Graph,
		TotalChunks:          res.TotalChunks,
		FailedChunks:         failed,
		RelationshipsRemoved: res.RelationshipsRemoved,
		Prune:                res.Prune,
		DurationMs:           res.Duration.Milliseconds(),
	})
}
