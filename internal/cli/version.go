package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/menta2k/sitewatch"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sitewatch %s (%s/%s)\n", sitewatch.GetVersion(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
