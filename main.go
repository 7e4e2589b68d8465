package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"studio-insights/config"
	"studio-insights/models"
	"studio-insights/services"
	"studio-insights/storage"
	"studio-insights/utils"
)

var (
	envFile string
	debug   bool

	format      string
	outDir      string
	pageNames   []string
	locations   []string
	maxRows     int
	concurrency int
	noTables    bool
	noMetrics   bool

	importTarget string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "studio-insights",
		Short:         "Aggregate studio datasets into dashboard tables and metrics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Env file to load (default: .env if present)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Crawl every page and location and write one export file",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}
	addCrawlFlags(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "", "Export format: "+strings.Join(storage.Formats, ", "))
	exportCmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory")

	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Crawl and print a short summary to stdout",
		Args:  cobra.NoArgs,
		RunE:  runSummary,
	}
	addCrawlFlags(summaryCmd)

	pagesCmd := &cobra.Command{
		Use:   "pages",
		Short: "List dashboard pages and the datasets each reads",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PAGE\tDATASETS")
			for _, p := range services.AllPages() {
				ds := make([]string, 0, len(p.Datasets()))
				for _, d := range p.Datasets() {
					ds = append(ds, string(d))
				}
				fmt.Fprintf(tw, "%s\t%s\n", p.Name(), strings.Join(ds, ", "))
			}
			tw.Flush()
		},
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Copy the JSON/CSV datasets in DATA_DIR into a database",
		Args:  cobra.NoArgs,
		RunE:  runImport,
	}
	importCmd.Flags().StringVar(&importTarget, "to", "sqlite", "Target database: sqlite or postgres")

	rootCmd.AddCommand(exportCmd, summaryCmd, pagesCmd, importCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&pageNames, "pages", "p", nil, "Comma-separated page names (default: all)")
	cmd.Flags().StringArrayVarP(&locations, "location", "l", nil, "Location label, repeatable (default: CRAWL_LOCATIONS)")
	cmd.Flags().IntVar(&maxRows, "max-rows", 0, "Row cap for raw-record tables")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Pages crawled in parallel")
	cmd.Flags().BoolVar(&noTables, "no-tables", false, "Skip tables")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "Skip metrics")
}

func setup() (*config.Config, *utils.Logger, error) {
	var cfg *config.Config
	if envFile != "" {
		c, err := config.LoadFile(envFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", envFile, err)
		}
		cfg = c
	} else {
		cfg = config.Load()
	}

	logger := utils.NewLogger()
	logger.SetDebug(debug || cfg.LogLevel == "debug")
	return cfg, logger, nil
}

func crawlOptions(cfg *config.Config) (services.CrawlOptions, error) {
	names := cfg.Pages
	if len(pageNames) > 0 {
		names = pageNames
	}
	opts := services.CrawlOptions{
		Locations:       cfg.Locations,
		IncludeTables:   services.Bool(cfg.IncludeTables && !noTables),
		IncludeMetrics:  services.Bool(cfg.IncludeMetrics && !noMetrics),
		MaxRowsPerTable: cfg.MaxRowsPerTable,
	}
	if len(names) > 0 {
		pages, err := services.ParsePages(names)
		if err != nil {
			return opts, err
		}
		opts.Pages = pages
	}
	if len(locations) > 0 {
		opts.Locations = locations
	}
	if maxRows > 0 {
		opts.MaxRowsPerTable = maxRows
	}
	return opts, nil
}

func openSource(ctx context.Context, cfg *config.Config, logger *utils.Logger) (storage.DatasetSource, error) {
	switch cfg.DataSource {
	case "files", "":
		return storage.NewFileSource(cfg.DataDir, logger), nil
	case "sqlite":
		return storage.NewSQLiteStore(cfg.SQLitePath, logger)
	case "postgres":
		return connectPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown DATA_SOURCE %q (want files, sqlite or postgres)", cfg.DataSource)
	}
}

func connectPostgres(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*storage.SQLStore, error) {
	retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 2 * time.Second, Logger: logger}
	store, err := storage.NewPostgresStore(ctx, cfg.DSN(), retry, logger)
	if err != nil {
		logger.Error("Make sure PostgreSQL is reachable at %s:%s", cfg.PostgresHost, cfg.PostgresPort)
		return nil, err
	}
	return store, nil
}

func crawl(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*models.ExtractedData, error) {
	opts, err := crawlOptions(cfg)
	if err != nil {
		return nil, err
	}

	src, err := openSource(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	sources, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load datasets: %w", err)
	}
	logger.Info("[source] %s: %d records across %d datasets", cfg.DataSource, sources.Count(), len(sources))

	workers := cfg.Concurrency
	if concurrency > 0 {
		workers = concurrency
	}
	return services.NewCrawler(logger, workers).Crawl(ctx, sources, opts)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if format == "" {
		format = cfg.ExportFormat
	}
	if outDir == "" {
		outDir = cfg.ExportDir
	}
	exp, err := storage.NewExporter(format, cfg.ChromeBin, logger)
	if err != nil {
		return err
	}

	logger.Info("=== Studio Insights export starting ===")
	start := time.Now()
	data, err := crawl(ctx, cfg, logger)
	if err != nil {
		return err
	}

	path, err := storage.WriteFile(outDir, exp, data)
	if err != nil {
		return err
	}
	logger.Info("[export] %d tables, %d metrics written to %s in %v",
		data.Summary.TotalTables, data.Summary.TotalMetrics, path, time.Since(start).Round(time.Millisecond))
	if n := len(data.Summary.Failures); n > 0 {
		logger.Warn("[export] %d page/location pairs failed, see log above", n)
	}
	return nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	data, err := crawl(ctx, cfg, logger)
	if err != nil {
		return err
	}
	services.PrintSummary(cmd.OutOrStdout(), data)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sources, err := storage.NewFileSource(cfg.DataDir, logger).Load(ctx)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return errors.New("no datasets found in " + cfg.DataDir)
	}

	var dst storage.DatasetWriter
	switch importTarget {
	case "sqlite":
		dst, err = storage.NewSQLiteStore(cfg.SQLitePath, logger)
	case "postgres":
		dst, err = connectPostgres(ctx, cfg, logger)
	default:
		return fmt.Errorf("unknown import target %q (want sqlite or postgres)", importTarget)
	}
	if err != nil {
		return err
	}
	defer dst.Close()

	for _, ds := range models.AllDatasets() {
		records, ok := sources[ds]
		if !ok {
			continue
		}
		if err := dst.WriteDataset(ctx, ds, records); err != nil {
			return err
		}
		logger.Info("[import] %s: %d records → %s", ds, len(records), storage.TableName(ds))
	}
	return nil
}
