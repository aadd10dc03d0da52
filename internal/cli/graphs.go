package cli

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/graph"
	"github.com/OFFIS-RIT/findet/pkg/store/file"

	"github.com/spf13/cobra"
)

func loadGraph(ctx context.Context, path string) (*common.Graph, error) {
	g, err := file.NewGraphFileStorage("").LoadGraph(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return g, nil
}

func saveGraph(ctx context.Context, path string, g *common.Graph) error {
	if err := file.NewGraphFileStorage("").SaveGraph(ctx, path, g); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// outputPath returns the -o flag or the input path.
func outputPath(cmd *cobra.Command, input string) string {
	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		return input
	}
	return out
}

func RunRepair(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	g, err := loadGraph(ctx, args[0])
	if err != nil {
		return err
	}

	repaired, err := graph.RepairGraph(g)
	if err != nil {
		return err
	}

	out := outputPath(cmd, args[0])
	if err := saveGraph(ctx, out, repaired); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d of %d relationships, wrote %s\n",
		len(g.Relationships)-len(repaired.Relationships), len(g.Relationships), out)
	return nil
}

func RunValidate(cmd *cobra.Command, args []string) error {
	g, err := loadGraph(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := graph.ValidateGraph(g); err != nil {
		return fmt.Errorf("%s is invalid: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d nodes, %d relationships\n",
		args[0], len(g.Nodes), len(g.Relationships))
	return nil
}

func RunMerge(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	graphs := make([]*common.Graph, 0, len(args))
	for _, path := range args {
		g, err := loadGraph(ctx, path)
		if err != nil {
			return err
		}
		graphs = append(graphs, g)
	}

	merged, err := graph.MergeGraphs(graphs)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("output")
	if err := saveGraph(ctx, out, merged); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d graphs into %d nodes and %d relationships, wrote %s\n",
		len(graphs), len(merged.Nodes), len(merged.Relationships), out)
	return nil
}

func RunClean(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	g, err := loadGraph(ctx, args[0])
	if err != nil {
		return err
	}

	repaired, err := graph.RepairGraph(g)
	if err != nil {
		return err
	}
	pruned, stats := graph.PruneGraph(repaired)

	out := outputPath(cmd, args[0])
	if err := saveGraph(ctx, out, pruned); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d nodes, %d orphans and %d relationships, wrote %s\n",
		stats.NodesRemoved, stats.OrphansRemoved, stats.RelationshipsRemoved, out)
	return nil
}
