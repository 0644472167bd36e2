package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/collapse-story-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/collapse-story-etl/internal/adapter/kafka"
	"github.com/couchcryptid/collapse-story-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/collapse-story-etl/internal/pipeline"
	"github.com/couchcryptid/collapse-story-etl/internal/report"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

// --- convert command ---

var (
	convertInDir  string
	convertOutDir string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert the source spreadsheets to workbook JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		summary, err := xlsx.ConvertAll(xlsx.DefaultJobs(convertInDir), convertOutDir, clockwork.NewRealClock().Now(), logger)
		if err != nil {
			return err
		}
		for _, f := range summary.Files {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d sheet(s), %d record(s)\n", f.Filename, f.Sheets, f.TotalRecords)
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVar(&convertInDir, "in-dir", "public", "Directory holding the .xlsx sources")
	convertCmd.Flags().StringVar(&convertOutDir, "out-dir", "public/data", "Directory to write workbook JSON to")
}

// --- build command ---

var (
	buildFormat string
	buildOutput string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the snapshot once and print it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		snap, err := buildOnce(cmd.Context())
		if err != nil {
			return err
		}

		w, closeOut, err := openOutput(cmd, buildOutput)
		if err != nil {
			return err
		}
		if err := encodeSnapshot(w, snap, buildFormat); err != nil {
			_ = closeOut()
			return err
		}
		return closeOut()
	},
}

func init() {
	addSourceFlags(buildCmd)
	buildCmd.Flags().StringVarP(&buildFormat, "format", "f", formatJSON, "Output format: json or yaml")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Output file (default stdout)")
}

// --- validate command ---

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Build the snapshot and cross-check its statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		snap, err := buildOnce(cmd.Context())
		if err != nil {
			return err
		}

		checks := pipeline.Validate(snap)
		out := cmd.OutOrStdout()
		for _, c := range checks {
			status := "PASS"
			if !c.Passed() {
				status = "FAIL"
			}
			fmt.Fprintf(out, "%s  %s\n", status, c.Name)
			for _, e := range c.Errors {
				fmt.Fprintf(out, "      %s\n", e)
			}
		}

		if !pipeline.AllPassed(checks) {
			return errors.New("snapshot validation failed")
		}
		fmt.Fprintf(out, "%d accidents, %d articles: all checks passed\n",
			snap.AccidentStats.TotalAccidents, snap.Coverage.TotalArticles)
		return nil
	},
}

func init() {
	addSourceFlags(validateCmd)
}

// --- report command ---

var (
	reportFormat string
	reportOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a Markdown or HTML digest of the snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		snap, err := buildOnce(cmd.Context())
		if err != nil {
			return err
		}

		w, closeOut, err := openOutput(cmd, reportOutput)
		if err != nil {
			return err
		}
		if err := report.Render(w, snap, reportFormat); err != nil {
			_ = closeOut()
			return err
		}
		return closeOut()
	},
}

func init() {
	addSourceFlags(reportCmd)
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", report.FormatMarkdown, "Output format: markdown or html")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Output file (default stdout)")
}

// --- serve command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the snapshot over HTTP, rebuilding it on REFRESH_INTERVAL",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	addSourceFlags(serveCmd)
}

func serve(parent context.Context) error {
	opts := pipeline.Options{
		LoadTimeout:     cfg.LoadTimeout,
		RefreshInterval: cfg.RefreshInterval,
	}

	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger, metrics())
		opts.Publisher = publisher
		logger.Info("kafka export enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka export disabled")
	}

	p := newPipeline(opts)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, cfg.RecentLimit, logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start the build loop.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
