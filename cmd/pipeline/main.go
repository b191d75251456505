package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rpattn/salespipe/internal/catalog"
	"github.com/rpattn/salespipe/internal/config"
	"github.com/rpattn/salespipe/internal/db"
	"github.com/rpattn/salespipe/internal/domain"
	"github.com/rpattn/salespipe/internal/ingestion"
	"github.com/rpattn/salespipe/internal/logger"
	"github.com/rpattn/salespipe/internal/pipeline"
	"github.com/rpattn/salespipe/internal/report"
	"github.com/rpattn/salespipe/internal/repository"
)

type rootOptions struct {
	ConfigPath string
	OutputDir  string
	Workers    int
	TopN       int
	CatalogURL string
	NoCatalog  bool
	UseDB      bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "salespipe",
		Short:         "Sales data cleaning, enrichment and analysis pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", ".", "directory containing config.yaml")
	cmd.PersistentFlags().StringVar(&opts.OutputDir, "output", "", "output directory for report artifacts")
	cmd.PersistentFlags().IntVar(&opts.Workers, "workers", 0, "enrichment worker count")
	cmd.PersistentFlags().IntVar(&opts.TopN, "top-n", 0, "ranking size in the analysis summary")
	cmd.PersistentFlags().StringVar(&opts.CatalogURL, "catalog-url", "", "product catalog base URL")
	cmd.PersistentFlags().BoolVar(&opts.NoCatalog, "no-catalog", false, "skip product enrichment entirely")
	cmd.PersistentFlags().BoolVar(&opts.UseDB, "db", false, "persist run logs to Postgres")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newConsumeCommand(opts))

	return cmd
}

// newRunCommand processes a single input file (pipe-delimited text, CSV, or
// XLSX) and writes the full set of report artifacts.
func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <input-file>",
		Short: "Run the pipeline over an input file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			records, stats, err := ingestion.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			return execute(cmd, cfg, records, stats, filepath.Base(args[0]))
		},
	}
}

// newConsumeCommand reads one bounded batch of records from Kafka and runs
// the pipeline over it.
func newConsumeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Run the pipeline over a batch consumed from Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" {
				return fmt.Errorf("kafka brokers and topic must be configured")
			}

			source := ingestion.NewKafkaSource(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, cfg.Kafka.MaxRecords)
			defer func() { _ = source.Close() }()

			ctx := signalContext(cmd.Context())
			records, stats, err := source.Read(ctx)
			if err != nil {
				return fmt.Errorf("consume batch: %w", err)
			}
			name := fmt.Sprintf("kafka:%s", cfg.Kafka.Topic)
			return execute(cmd, cfg, records, stats, name)
		},
	}
}

func loadConfig(opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}
	if opts.Workers > 0 {
		cfg.Pipeline.Workers = opts.Workers
	}
	if opts.TopN > 0 {
		cfg.Pipeline.TopN = opts.TopN
	}
	if opts.CatalogURL != "" {
		cfg.Catalog.BaseURL = opts.CatalogURL
	}
	if opts.NoCatalog {
		cfg.Catalog.BaseURL = ""
	}
	if opts.UseDB {
		cfg.DatabaseEnabled = true
	}
	return cfg, nil
}

func execute(cmd *cobra.Command, cfg config.Config, records []domain.RawRecord, stats ingestion.Stats, inputName string) error {
	log := logger.New()
	ctx := logger.WithContext(signalContext(cmd.Context()), log)

	var lookup catalog.Lookup
	if cfg.Catalog.BaseURL != "" {
		lookup = catalog.NewClient(cfg.Catalog.BaseURL, catalog.WithTimeout(cfg.Catalog.Timeout))
	}

	runnerOpts := []pipeline.Option{
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithTopN(cfg.Pipeline.TopN),
	}
	if cfg.DatabaseEnabled {
		conn, err := db.NewConnection(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer conn.Close()

		if err := db.RunMigrations(cfg.Database, "./migrations"); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		runnerOpts = append(runnerOpts, pipeline.WithRunLog(repository.NewRunLogRepository(conn.Pool)))

		products := repository.NewProductRepository(conn.Pool)
		if lookup != nil {
			lookup = repository.NewWriteThroughLookup(products, lookup)
		} else {
			lookup = repository.NewProductLookup(products)
		}
	}

	runner := pipeline.NewRunner(lookup, runnerOpts...)
	result, err := runner.Run(ctx, records)
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	reports := report.NewService(report.WithOutputDirectory(cfg.OutputDir))
	files, err := reports.WriteAll(result, stats, inputName)
	if err != nil {
		return fmt.Errorf("write reports: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s complete: %d accepted, %d rejected, %.2f total revenue\n",
		result.RunID, len(result.Enriched), len(result.Rejected), result.Summary.TotalRevenue)
	fmt.Fprintf(out, "  cleaned:  %s\n", files.CleanedCSV)
	fmt.Fprintf(out, "  rejected: %s\n", files.RejectedCSV)
	fmt.Fprintf(out, "  report:   %s\n", files.ReportJSON)
	fmt.Fprintf(out, "  analysis: %s\n", files.AnalysisText)
	fmt.Fprintf(out, "  workbook: %s\n", files.Workbook)
	return nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx
}
