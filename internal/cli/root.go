// Package cli implements the sitewatch command line interface.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/menta2k/sitewatch/internal/config"
)

var (
	cfgFile string
	verbose bool
)

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "sitewatch",
		Short: "Construction-site PPE compliance monitoring",
		Long: `sitewatch analyzes construction-site photos with a vision model,
records per-worker safety observations in a local database, and serves
risk and compliance reports over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initLogging()
			return initViper()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default sitewatch.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newIngestCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func initLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// initViper loads defaults, the optional config file, and SITEWATCH_*
// environment variables, in increasing precedence.
func initViper() error {
	config.SetDefaults(viper.GetViper())

	viper.SetEnvPrefix("SITEWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("sitewatch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil // no config file is fine, defaults apply
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	slog.Debug("loaded config file", "path", viper.ConfigFileUsed())
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}
