package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"framepickr/internal/config"
	"framepickr/internal/logger"

	"github.com/spf13/cobra"
)

// Version is the application version.
const Version = "0.1.0"

var (
	cfg     *config.Config
	log     *logger.Logger
	verbose bool
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:           "framepickr",
	Short:         "Pick the best shots out of a batch of photos",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if dbPath != "" {
			cfg.DatabasePath = dbPath
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if verbose {
			log = logger.NewWriterLogger(os.Stderr)
		} else {
			log = logger.NewDiscardLogger()
		}
		return nil
	},
}

// Execute runs the CLI until completion or Ctrl+C.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline activity to stderr")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "selection history database (default: DB_PATH or ./framepickr.db)")
}
