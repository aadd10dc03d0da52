package cli

import (
	"github.com/OFFIS-RIT/findet/pkg/logger"
	"github.com/OFFIS-RIT/findet/pkg/logger/console"

	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "findet",
		Short: "Extract financial entity graphs from text with an LLM",
		Long: `Findet reads a financial document, splits it into overlapping chunks,
asks a language model for the companies, risk factors and amounts in
each chunk and merges the answers into one consistent graph.

The graph is written as JSON and can be repaired, validated, merged
and cleaned with the other commands.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, err := cmd.Flags().GetBool("debug")
			if err != nil {
				return err
			}
			logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
				Debug:  debug,
				Output: cmd.ErrOrStderr(),
			}))
			return nil
		},
	}
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	extractCmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract a graph from a local file, s3:// object or web page",
		Args:  cobra.NoArgs,
		RunE:  RunExtract,
	}
	extractCmd.Flags().StringP("input", "i", "data/raw_report.txt", "Input text: path, s3://bucket/key or http(s) URL")
	extractCmd.Flags().StringP("output", "o", "data/graph_output.json", "Output graph JSON")
	extractCmd.Flags().Bool("no-chunk", false, "Send the whole document in one request")
	extractCmd.Flags().Int("chunk-size", 0, "Chunk size in tokens (default from CHUNK_SIZE_TOKENS)")
	extractCmd.Flags().Int("overlap", 0, "Chunk overlap in tokens (default from CHUNK_OVERLAP_TOKENS)")
	extractCmd.Flags().Int("parallel", 0, "Chunks extracted at the same time (default from AI_PARALLEL_REQ)")
	extractCmd.Flags().Bool("clean", false, "Prune meaningless nodes after repair")
	extractCmd.Flags().Bool("json", false, "Print machine-readable run summary")

	repairCmd := &cobra.Command{
		Use:   "repair <graph.json>",
		Short: "Drop relationships that violate endpoint type constraints",
		Args:  cobra.ExactArgs(1),
		RunE:  RunRepair,
	}
	repairCmd.Flags().StringP("output", "o", "", "Output graph JSON (default: overwrite input)")

	validateCmd := &cobra.Command{
		Use:   "validate <graph.json>",
		Short: "Check node ids and relationship endpoints",
		Args:  cobra.ExactArgs(1),
		RunE:  RunValidate,
	}

	mergeCmd := &cobra.Command{
		Use:   "merge <graph.json>...",
		Short: "Merge graphs in order, deduplicating entities by type and name",
		Args:  cobra.MinimumNArgs(1),
		RunE:  RunMerge,
	}
	mergeCmd.Flags().StringP("output", "o", "", "Output graph JSON")
	_ = mergeCmd.MarkFlagRequired("output")

	cleanCmd := &cobra.Command{
		Use:   "clean <graph.json>",
		Short: "Repair a graph and prune meaningless nodes",
		Args:  cobra.ExactArgs(1),
		RunE:  RunClean,
	}
	cleanCmd.Flags().StringP("output", "o", "", "Output graph JSON (default: overwrite input)")

	rootCmd.AddCommand(extractCmd, repairCmd, validateCmd, mergeCmd, cleanCmd)
	return rootCmd
}
