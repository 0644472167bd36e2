// Command story builds and serves the road-collapse story datasets.
//
// Usage:
//
//	story convert --in-dir public --out-dir public/data
//	story build --format yaml -o snapshot.yaml
//	story validate
//	story report --format html -o report.html
//	story serve
package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/couchcryptid/collapse-story-etl/internal/config"
	"github.com/couchcryptid/collapse-story-etl/internal/observability"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	envFile string
	cfg     *config.Config
	logger  *slog.Logger
)

// metrics registers with the default registry, which allows it only once
// per process.
var metrics = sync.OnceValue(observability.NewMetrics)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "story",
	Short:        "Road-collapse story data pipeline",
	Long:         "story converts, aggregates, validates and serves the accident and media-coverage datasets behind the road-collapse data story.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cmd.Name() == "serve" {
			logger = observability.NewLogger(cfg)
		} else {
			logger = observability.NewLoggerTo(cmd.ErrOrStderr(), cfg)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to an optional .env file")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
}
