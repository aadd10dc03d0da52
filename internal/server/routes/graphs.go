package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/graph"

	"github.com/labstack/echo/v4"
)

type graphBody struct {
	Graph *common.Graph `json:"graph" validate:"required"`
}

type graphResponse struct {
	Graph                *common.Graph     `json:"graph"`
	RelationshipsRemoved int               `json:"relationships_removed,omitempty"`
	Prune                *graph.PruneStats `json:"prune,omitempty"`
}

// MergeGraphsHandler merges the posted graphs in order.
func MergeGraphsHandler(c echo.Context) error {
	type mergeBody struct {
		Graphs []*common.Graph `json:"graphs" validate:"required,min=1"`
	}

	data := new(mergeBody)
	if err := bindAndValidate(c, data); err != nil {
		return invalidBody(c, err)
	}

	merged, err := graph.MergeGraphs(data.Graphs)
	if err != nil {
		return respondError(c, "Merge failed", err)
	}
	return c.JSON(http.StatusOK, graphResponse{Graph: merged})
}

// RepairGraphHandler drops relationships that break endpoint constraints.
func RepairGraphHandler(c echo.Context) error {
	data := new(graphBody)
	if err := bindAndValidate(c, data); err != nil {
		return invalidBody(c, err)
	}

	repaired, err := graph.RepairGraph(data.Graph)
	if err != nil {
		return respondError(c, "Repair failed", err)
	}
	return c.JSON(http.StatusOK, graphResponse{
		Graph:                repaired,
		RelationshipsRemoved: len(data.Graph.Relationships) - len(repaired.Relationships),
	})
}

// ValidateGraphHandler checks structural integrity.
func ValidateGraphHandler(c echo.Context) error {
	type validateResponse struct {
		Valid   bool   `json:"valid"`
		Message string `json:"message"`
		Error   string `json:"error,omitempty"`
	}

	data := new(graphBody)
	if err := bindAndValidate(c, data); err != nil {
		return invalidBody(c, err)
	}

	if err := graph.ValidateGraph(data.Graph); err != nil {
		return c.JSON(statusForError(err), validateResponse{Message: "Graph is invalid", Error: err.Error()})
	}
	return c.JSON(http.StatusOK, validateResponse{Valid: true, Message: "Graph is valid"})
}

// CleanGraphHandler repairs the graph and prunes meaningless nodes.
func CleanGraphHandler(c echo.Context) error {
	data := new(graphBody)
	if err := bindAndValidate(c, data); err != nil {
		return invalidBody(c, err)
	}

	repaired, err := graph.RepairGraph(data.Graph)
	if err != nil {
		return respondError(c, "Clean failed", err)
	}
	pruned, stats := graph.PruneGraph(repaired)
	return c.JSON(http.StatusOK, graphResponse{
		Graph:                pruned,
		RelationshipsRemoved: len(data.Graph.Relationships) - len(repaired.Relationships),
		Prune:                &stats,
	})
}
