// Package main provides the CLI entry point for qrbench, a benchmarking tool
// that compares QR code decoding libraries on a shared image corpus.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/weiihann/qrbench/config"
	"github.com/weiihann/qrbench/corpus"
	"github.com/weiihann/qrbench/decoders"
	"github.com/weiihann/qrbench/harness"
	"github.com/weiihann/qrbench/report"
	"github.com/weiihann/qrbench/stats"
	"github.com/weiihann/qrbench/workload"
)

func main() {
	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           log.InfoLevel,
	})

	root := newRootCmd(handler)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(handler *log.Logger) *cobra.Command {
	logger := slog.New(handler)

	root := &cobra.Command{
		Use:   "qrbench",
		Short: "QR code decoder benchmarking tool",
		Long: `Qrbench runs every selected QR decoding library against the same
corpus of categorized test images, records one raw measurement per decode
attempt and summarizes success rate and latency per library and category.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString("log-level")

			return setLevel(handler, level)
		},
	}

	root.PersistentFlags().String("log-level", "info",
		"Log level: debug, info, warn, error")

	root.AddCommand(
		newRunCmd(handler, logger),
		newAnalyzeCmd(),
		newChartCmd(logger),
		newGenerateCmd(logger),
		newDecodersCmd(),
	)

	return root
}

func setLevel(handler *log.Logger, level string) error {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	handler.SetLevel(lvl)

	return nil
}

func newRunCmd(handler *log.Logger, logger *slog.Logger) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Benchmark QR decoders on a corpus",
		Long: `Load the corpus, run every selected decoder over every image the
configured number of times, write raw measurements to CSV and print a
summary table.

Settings come from flags, QRBENCH_* environment variables and an optional
config file, in that order of precedence.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := setLevel(handler, cfg.LogLevel); err != nil {
				return err
			}

			return runBenchmark(cmd.Context(), logger, cfg, cmd.OutOrStdout())
		},
	}

	defaults := config.Default()

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "",
		"Config file (yaml, toml or json)")
	flags.StringSliceP("libs", "l", nil,
		"Decoders to benchmark (default: all)")
	flags.IntP("iterations", "n", defaults.Iterations,
		"Measured decode attempts per decoder and image")
	flags.StringSliceP("categories", "c", nil,
		"Categories to run (default: all)")
	flags.StringP("output", "o", report.DefaultRawPath,
		"Raw measurement CSV path (overwritten)")
	flags.StringSliceP("data", "d", defaults.Data,
		"Corpus roots: directories or azblob://account/container/prefix")
	flags.Int("warmup", defaults.Warmup,
		"Unrecorded warm-up attempts per decoder and image")
	flags.Duration("timeout", defaults.Timeout,
		"Per-attempt timeout (0 = none)")
	flags.Float64("corner-tolerance", defaults.CornerTolerance,
		"Mean corner distance in pixels accepted as a match")
	flags.String("summary", "",
		"Also write the summary as CSV to this path")
	flags.String("format", defaults.Format,
		"Summary output: markdown, table, json")
	flags.String("charts", "",
		"Write success and latency charts into this directory")
	flags.Bool("require-ground-truth", false,
		"Skip images without a ground truth sidecar")
	flags.Int("limit-per-category", 0,
		"Load at most this many images per category (0 = all)")
	flags.Int("concurrency", defaults.Concurrency,
		"Parallel corpus reads")

	return cmd
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	out io.Writer,
) error {
	logger.InfoContext(ctx, "starting benchmark",
		slog.Any("libs", cfg.Libs),
		slog.Any("categories", cfg.Categories),
		slog.Any("data", cfg.Data),
		slog.Int("iterations", cfg.Iterations),
		slog.Int("warmup", cfg.Warmup),
		slog.String("output", cfg.Output),
	)

	// Step 1: Resolve decoders before touching the corpus.
	registry, err := decoders.Builtin()
	if err != nil {
		return fmt.Errorf("register decoders: %w", err)
	}

	if _, err := registry.Select(cfg.Libs); err != nil {
		return err
	}

	// Step 2: Load the corpus.
	c, err := loadCorpus(ctx, logger, cfg)
	if err != nil {
		return err
	}

	// Step 3: Open the raw measurement file.
	raw, err := report.CreateCSV(cfg.Output)
	if err != nil {
		return err
	}

	collector := &harness.Collector{}

	// Step 4: Measure.
	runner := harness.NewRunner(registry, logger)
	summary, runErr := runner.Run(ctx, c, harness.RunConfig{
		Decoders:        cfg.Libs,
		Categories:      cfg.Categories,
		Iterations:      cfg.Iterations,
		Warmup:          cfg.Warmup,
		Timeout:         cfg.Timeout,
		CornerTolerance: cfg.CornerTolerance,
	}, harness.Tee(raw, collector))

	if err := raw.Close(); err != nil && runErr == nil {
		runErr = err
	}

	if runErr != nil {
		return fmt.Errorf("run: %w", runErr)
	}

	logger.InfoContext(ctx, "raw measurements written",
		slog.String("path", cfg.Output),
		slog.Int("rows", raw.Rows()),
		slog.String("run_id", summary.ID),
	)

	// Step 5: Aggregate and report.
	summaries := summarize(collector.Attempts)

	if err := writeSummaries(out, cfg.Format, summaries); err != nil {
		return err
	}

	if cfg.Summary != "" {
		if err := writeSummaryFile(cfg.Summary, summaries); err != nil {
			return err
		}

		logger.InfoContext(ctx, "summary written",
			slog.String("path", cfg.Summary))
	}

	if cfg.Charts != "" {
		if err := writeCharts(ctx, logger, cfg.Charts, collector.Attempts); err != nil {
			return err
		}
	}

	logger.InfoContext(ctx, "benchmark complete",
		slog.Int("attempts", summary.Attempts),
		slog.Int("failures", summary.Failures),
		slog.Duration("wall_time", summary.Wall),
	)

	return nil
}

func loadCorpus(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
) (*corpus.Corpus, error) {
	sources := make([]corpus.Source, 0, len(cfg.Data))

	for _, loc := range cfg.Data {
		src, err := corpus.OpenSource(loc)
		if err != nil {
			return nil, fmt.Errorf("open corpus %s: %w", loc, err)
		}

		sources = append(sources, src)
	}

	c, err := corpus.Load(ctx, sources, corpus.LoadOptions{
		Categories:         cfg.Categories,
		LimitPerCategory:   cfg.LimitPerCategory,
		RequireGroundTruth: cfg.RequireGroundTruth,
		Concurrency:        cfg.Concurrency,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	return c, nil
}

// summarize returns the per category summaries followed by one rollup per
// decoder under stats.AllCategories.
func summarize(attempts []harness.Attempt) []stats.Summary {
	return append(stats.Aggregate(attempts), stats.ByDecoder(attempts)...)
}

func writeSummaries(w io.Writer, format string, summaries []stats.Summary) error {
	switch format {
	case config.FormatJSON:
		if err := report.GenerateJSON(w, summaries); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	case config.FormatTable:
		if _, err := fmt.Fprintln(w, report.RenderTable(summaries)); err != nil {
			return fmt.Errorf("render table: %w", err)
		}
	default:
		if err := report.Generate(w, summaries); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	}

	return nil
}

func writeSummaryFile(path string, summaries []stats.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary %s: %w", path, err)
	}

	if err := report.WriteSummaryCSV(f, summaries); err != nil {
		f.Close()

		return fmt.Errorf("write summary %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close summary %s: %w", path, err)
	}

	return nil
}

func writeCharts(
	ctx context.Context,
	logger *slog.Logger,
	dir string,
	attempts []harness.Attempt,
) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}

	paths, err := report.WriteCharts(dir, attempts)
	if err != nil {
		return fmt.Errorf("write charts: %w", err)
	}

	logger.InfoContext(ctx, "charts written", slog.Any("paths", paths))

	return nil
}

func newAnalyzeCmd() *cobra.Command {
	var (
		format      string
		summaryPath string
	)

	cmd := &cobra.Command{
		Use:   "analyze <raw.csv>",
		Short: "Summarize an existing raw measurement file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ValidateFormat(format); err != nil {
				return err
			}

			attempts, err := report.ReadRawFile(args[0])
			if err != nil {
				return err
			}

			summaries := summarize(attempts)

			if err := writeSummaries(cmd.OutOrStdout(), format, summaries); err != nil {
				return err
			}

			if summaryPath != "" {
				return writeSummaryFile(summaryPath, summaries)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", config.FormatMarkdown,
		"Summary output: markdown, table, json")
	cmd.Flags().StringVar(&summaryPath, "summary", "",
		"Also write the summary as CSV to this path")

	return cmd
}

func newChartCmd(logger *slog.Logger) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "chart <raw.csv>",
		Short: "Render charts from a raw measurement file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attempts, err := report.ReadRawFile(args[0])
			if err != nil {
				return err
			}

			return writeCharts(cmd.Context(), logger, outDir, attempts)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", ".",
		"Directory to write charts into")

	return cmd
}

func newGenerateCmd(logger *slog.Logger) *cobra.Command {
	var (
		outDir      string
		perCategory int
		size        int
		seed        int64
		categories  []string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic QR corpus",
		Long: `Render deterministic QR codes with random payloads into one
directory per distortion category, each image paired with a .txt sidecar
holding its payload.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			dir, err := filepath.Abs(outDir)
			if err != nil {
				return fmt.Errorf("resolve output dir: %w", err)
			}

			gen := workload.NewGenerator(workload.Config{
				Categories:  categories,
				PerCategory: perCategory,
				Size:        size,
				Seed:        seed,
			})

			summary, err := gen.Generate(dir)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}

			logger.InfoContext(cmd.Context(), "corpus generated",
				slog.String("path", dir),
				slog.Int64("seed", seed),
				slog.Int("categories", summary.Categories),
				slog.Int("images", summary.Images),
				slog.String("size", summary.Size()),
			)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&outDir, "out", "data",
		"Directory to write the corpus into")
	flags.IntVar(&perCategory, "per-category", 10,
		"Images per category")
	flags.IntVar(&size, "size", 256,
		"Image width and height in pixels")
	flags.Int64Var(&seed, "seed", 0,
		"Random seed (0 = use current time)")
	flags.StringSliceVar(&categories, "categories", nil,
		fmt.Sprintf("Categories to generate (default: %s)",
			strings.Join(workload.KnownCategories(), ",")))

	return cmd
}

func newDecodersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decoders",
		Short: "List available decoders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := decoders.Builtin()
			if err != nil {
				return err
			}

			for _, name := range registry.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}

			return nil
		},
	}
}
