package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/collapse-story-etl/internal/adapter/source"
	"github.com/couchcryptid/collapse-story-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Snapshot output formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	accidentSource string
	mediaSource    string
)

// addSourceFlags lets a command override ACCIDENT_SOURCE and MEDIA_SOURCE.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&accidentSource, "accidents", "", "Accident workbook path or URL (overrides ACCIDENT_SOURCE)")
	cmd.Flags().StringVar(&mediaSource, "media", "", "Media workbook path or URL (overrides MEDIA_SOURCE)")
}

// newPipeline wires loaders and the transformer from the loaded config.
func newPipeline(opts pipeline.Options) *pipeline.Pipeline {
	accidents := cfg.AccidentSource
	if accidentSource != "" {
		accidents = accidentSource
	}
	media := cfg.MediaSource
	if mediaSource != "" {
		media = mediaSource
	}
	if opts.LoadTimeout == 0 {
		opts.LoadTimeout = cfg.LoadTimeout
	}

	m := metrics()
	return pipeline.New(
		source.New(accidents, cfg.LoadTimeout, logger),
		source.New(media, cfg.LoadTimeout, logger),
		pipeline.NewTransformer(cfg.SheetName, cfg.RecentLimit, clockwork.NewRealClock(), m),
		logger,
		m,
		opts,
	)
}

// buildOnce loads both datasets and returns the snapshot.
func buildOnce(ctx context.Context) (pipeline.Snapshot, error) {
	return newPipeline(pipeline.Options{}).Build(ctx)
}

// openOutput returns stdout when path is empty.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// encodeSnapshot writes s as indented JSON or block-style YAML.
func encodeSnapshot(w io.Writer, s pipeline.Snapshot, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case formatYAML:
		data, err := toYAML(s)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", format, formatJSON, formatYAML)
	}
}

// toYAML round-trips v through JSON so the YAML keys match the JSON tags.
func toYAML(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("convert snapshot to yaml: %w", err)
	}
	resetStyle(&node)

	out, err := yaml.Marshal(&node)
	if err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return out, nil
}

// resetStyle drops the flow and quoting styles inherited from JSON.
func resetStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		resetStyle(c)
	}
}
