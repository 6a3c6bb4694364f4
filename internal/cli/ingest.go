package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/menta2k/sitewatch"
	"github.com/menta2k/sitewatch/internal/utils"
)

func newIngestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Analyze the images directory and record violations",
		Long: `Ingest sends every image in the configured directory to the vision
model in batches, parses the responses, and stores the detected safety
observations. Images or batches that fail are logged and skipped; the
command only aborts on interrupt.`,
		RunE: runIngest,
	}

	cmd.Flags().String("images", "", "directory of site photos")
	cmd.Flags().Int("batch-size", 0, "images per model call")
	cmd.Flags().Duration("call-spacing", 0, "minimum interval between model calls")
	cmd.Flags().String("model", "", "vision model name")
	cmd.Flags().String("backend", "", "vision backend (ollama or openai)")

	bindFlag(cmd, "images", "images.dir")
	bindFlag(cmd, "batch-size", "ingest.batch_size")
	bindFlag(cmd, "call-spacing", "ingest.call_spacing")
	bindFlag(cmd, "model", "vision.model")
	bindFlag(cmd, "backend", "vision.backend")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !utils.DirExists(cfg.Images.Dir) {
		return fmt.Errorf("images directory does not exist: %s", cfg.Images.Dir)
	}

	pipeline, err := sitewatch.NewPipeline(cfg, nil)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	summary, err := pipeline.Ingest(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d images in %s: %d violations across %d sites\n",
		summary.Images, time.Since(start).Round(time.Second),
		summary.Violations, summary.Sites)
	return nil
}

// bindFlag maps a command flag onto its viper key so flags override
// config file and environment values.
func bindFlag(cmd *cobra.Command, flag, key string) {
	if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(err)
	}
}
