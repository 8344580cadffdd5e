package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := loadServices(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			stats, err := svc.Stats(cmd.Context())
			out := cmd.OutOrStdout()
			if err != nil {
				// Keyword statistics are local and still meaningful when
				// the vector store is unreachable.
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: vector store unreachable: %v\n", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			fmt.Fprintf(out, "documents:       %d\n", stats.TotalDocuments)
			fmt.Fprintf(out, "chunks:          %d\n", stats.TotalChunks)
			fmt.Fprintf(out, "distinct terms:  %d\n", stats.TermCount)
			fmt.Fprintf(out, "avg doc length:  %.1f tokens\n", stats.AvgDocLength)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output statistics as JSON")

	return cmd
}
