package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check reachability of the vector store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := loadServices(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if err := svc.Vectors.HealthCheck(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "vector store: unreachable (%s)\n",
					svc.Config.Vector.Endpoint)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "vector store: ok (%s)\n",
				svc.Config.Vector.Endpoint)
			return nil
		},
	}
}
