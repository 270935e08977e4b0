package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"trackgeo/internal/blob"
	"trackgeo/internal/config"
	"trackgeo/internal/core"
	"trackgeo/internal/importer"
	"trackgeo/internal/limits"
	"trackgeo/internal/logging"
	"trackgeo/internal/runner"
	"trackgeo/internal/source"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "trackgeo",
		Short:         "Build tracking geometry from legacy, interchange or native definitions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "job configuration file (YAML)")
	root.AddCommand(
		newConstructCmd(&configPath),
		newPutCmd(&configPath),
		newSourcesCmd(),
		newVersionCmd(),
	)
	return root
}

func newConstructCmd(configPath *string) *cobra.Command {
	var (
		workers     int
		showMetrics bool
	)
	cmd := &cobra.Command{
		Use:   "construct",
		Short: "Construct the geometry of a job and bring up its workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			return construct(cmd.Context(), cfg, cmd.OutOrStdout(), showMetrics)
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "number of workers")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print construction metrics after the summary")
	return cmd
}

func construct(ctx context.Context, cfg *config.Config, out io.Writer, showMetrics bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Mode, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	tp, shutdown, err := newTracerProvider(out, cfg.Tracing.Stdout)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	doc, err := source.Load(ctx, cfg, logger)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	job, m, err := runner.Setup(cfg, doc, runner.Deps{
		Logger:  logger,
		Metrics: core.NewMetrics(reg),
		Tracer:  tp.Tracer("trackgeo"),
	})
	if err != nil {
		return err
	}
	res, err := runner.Run(ctx, job, m, runner.Options{Workers: cfg.Workers, Controls: limits.NewControlVector()})
	if err != nil {
		return err
	}
	logger.Info("geometry constructed",
		zap.String("job", res.JobID.String()),
		zap.String("source", res.Source),
		zap.Int("workers", res.Workers))
	if err := writeSummary(out, res); err != nil {
		return err
	}
	if showMetrics {
		return writeMetrics(out, reg)
	}
	return nil
}

type summary struct {
	Job             string `yaml:"job"`
	Source          string `yaml:"source"`
	LogicalVolumes  int    `yaml:"logical_volumes"`
	PhysicalVolumes int    `yaml:"physical_volumes"`
	Media           int    `yaml:"media"`
	LimitsRecords   int    `yaml:"limits_records"`
	Workers         int    `yaml:"workers"`
	FieldAdapters   int    `yaml:"field_adapters"`
}

func writeSummary(w io.Writer, res runner.Result) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(summary{
		Job:             res.JobID.String(),
		Source:          res.Source,
		LogicalVolumes:  res.LogicalVolumes,
		PhysicalVolumes: res.PhysicalVolumes,
		Media:           res.Media,
		LimitsRecords:   res.LimitsRecords,
		Workers:         res.Workers,
		FieldAdapters:   res.FieldAdapters,
	})
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func newPutCmd(configPath *string) *cobra.Command {
	var (
		key   string
		setup string
	)
	cmd := &cobra.Command{
		Use:   "put FILE",
		Short: "Store a geometry document in the configured blob store or table database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			format := blob.FormatYAML
			if strings.EqualFold(filepath.Ext(args[0]), ".json") {
				format = blob.FormatJSON
			}
			doc, err := source.Decode(data, format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if setup != "" {
				doc.Name = setup
				if err := source.SaveTables(ctx, cfg, doc); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored setup %s\n", setup)
				return err
			}
			if key == "" {
				key = filepath.Base(args[0])
			}
			store, err := blob.Open(ctx, cfg.BlobConfig())
			if err != nil {
				return err
			}
			info, err := source.SaveBlob(ctx, store, key, doc, format)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored %s (%d bytes, etag %s)\n", info.Key, info.Size, info.ETag)
			return err
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "document key (defaults to the file name)")
	cmd.Flags().StringVar(&setup, "setup", "", "store as legacy tables under this setup name instead")
	return cmd
}

func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the accepted geometry source tags",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, tag := range importer.KindTags() {
				k, _ := importer.ParseKind(tag)
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", tag, k); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "trackgeo", version)
			return err
		},
	}
}
