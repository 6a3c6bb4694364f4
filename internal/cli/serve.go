package cli

import (
	"github.com/spf13/cobra"

	"github.com/menta2k/sitewatch"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the violations and analytics HTTP API",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "listen address")
	bindFlag(cmd, "listen", "server.listen")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pipeline, err := sitewatch.NewPipeline(cfg, nil)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	return pipeline.Serve()
}
