package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/OFFIS-RIT/findet/internal/pipeline"
	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/graph"
)

type RunSummary struct {
	RunID                string            `json:"run_id"`
	Input                string            `json:"input"`
	Output               string            `json:"output"`
	TotalChunks          int               `json:"total_chunks"`
	FailedChunks         []int             `json:"failed_chunks"`
	Nodes                int               `json:"nodes"`
	NodesByType          map[string]int    `json:"nodes_by_type"`
	Relationships        int               `json:"relationships"`
	RelationshipsRemoved int               `json:"relationships_removed"`
	Prune                *graph.PruneStats `json:"prune,omitempty"`
	DurationMS           int64             `json:"duration_ms"`
}

func newRunSummary(runID, input, output string, res *pipeline.Result) RunSummary {
	failed := res.FailedChunks
	if failed == nil {
		failed = []int{}
	}
	return RunSummary{
		RunID:                runID,
		Input:                input,
		Output:               output,
		TotalChunks:          res.TotalChunks,
		FailedChunks:         failed,
		Nodes:                len(res.Graph.Nodes),
		NodesByType:          countByType(res.Graph),
		Relationships:        len(res.Graph.Relationships),
		RelationshipsRemoved: res.RelationshipsRemoved,
		Prune:                res.Prune,
	}
}

func countByType(g *common.Graph) map[string]int {
	counts := make(map[string]int)
	for _, n := range g.Nodes {
		counts[string(n.Type)]++
	}
	return counts
}

func writeSummary(w io.Writer, s RunSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Fprintf(w, "Extraction complete (run %s)\n", s.RunID)
	fmt.Fprintf(w, "  Input:          %s\n", s.Input)
	if len(s.FailedChunks) > 0 {
		fmt.Fprintf(w, "  Chunks:         %d (%d failed: %v)\n", s.TotalChunks, len(s.FailedChunks), s.FailedChunks)
	} else {
		fmt.Fprintf(w, "  Chunks:         %d\n", s.TotalChunks)
	}
	fmt.Fprintf(w, "  Companies:      %d\n", s.NodesByType[string(common.NodeTypeCompany)])
	fmt.Fprintf(w, "  Risk factors:   %d\n", s.NodesByType[string(common.NodeTypeRiskFactor)])
	fmt.Fprintf(w, "  Amounts:        %d\n", s.NodesByType[string(common.NodeTypeDollarAmount)])
	fmt.Fprintf(w, "  Relationships:  %d (%d removed by repair)\n", s.Relationships, s.RelationshipsRemoved)
	if s.Prune != nil {
		fmt.Fprintf(w, "  Pruned:         %d nodes, %d orphans, %d relationships\n",
			s.Prune.NodesRemoved, s.Prune.OrphansRemoved, s.Prune.RelationshipsRemoved)
	}
	fmt.Fprintf(w, "  Output:         %s\n", s.Output)
	fmt.Fprintf(w, "  Duration:       %s\n", pipeline.FormatDuration(time.Duration(s.DurationMS)*time.Millisecond))
	return nil
}
