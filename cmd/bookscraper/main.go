package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crawldata/bookscraper/cleaning"
	"github.com/crawldata/bookscraper/config"
	"github.com/crawldata/bookscraper/crawler"
	"github.com/crawldata/bookscraper/fetcher"
	"github.com/crawldata/bookscraper/models"
	"github.com/crawldata/bookscraper/pipeline"
)

func main() {
	defaultCfg := config.DefaultConfig()

	pagesDefault := defaultCfg.MaxPages
	if value, ok, err := config.EnvInt("SCRAPER_PAGES"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_PAGES: %v\n", err)
		os.Exit(1)
	} else if ok {
		pagesDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Base URL to crawl")
	maxPages := flag.Int("pages", pagesDefault, "Maximum catalog pages to crawl (0 = unbounded)")
	delayMs := flag.Int("delay", int(defaultCfg.Delay/time.Millisecond), "Minimum spacing between requests (milliseconds)")
	randomDelayMs := flag.Int("random-delay", 0, "Random jitter added to the request spacing (milliseconds)")
	pageDelayMs := flag.Int("page-delay", int(defaultCfg.PageDelay/time.Millisecond), "Pause between listing pages (milliseconds)")
	respectRobots := flag.Bool("respect-robots", false, "Respect robots.txt directives")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv, json, or dual")
	clean := flag.Bool("clean", false, "Run the cleaning stage over the crawled dataset")
	cleanedDir := flag.String("cleaned-dir", defaultCfg.CleanedDir, "Directory for cleaned outputs and the outlier report")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.BaseURL = *baseURL
	cfg.MaxPages = *maxPages
	cfg.Delay = time.Duration(*delayMs) * time.Millisecond
	cfg.RandomDelay = time.Duration(*randomDelayMs) * time.Millisecond
	cfg.PageDelay = time.Duration(*pageDelayMs) * time.Millisecond
	cfg.RespectRobotsTxt = *respectRobots
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.CleanedDir = *cleanedDir
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting crawl",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("pages", cfg.MaxPages),
		slog.Duration("delay", cfg.Delay),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing in-flight work")
	}()

	metrics := crawler.NewMetrics()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	f, err := fetcher.New(cfg, metrics, logger)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		os.Exit(1)
	}

	sink := pipeline.NewSink()
	driver, err := crawler.NewDriver(cfg, f, sink, metrics, logger)
	if err != nil {
		slog.Error("initialising driver", slog.Any("error", err))
		os.Exit(1)
	}

	result := driver.Run(ctx)

	if len(result.Books) == 0 {
		slog.Error("crawl produced no records",
			slog.Int("pages", result.PageCount),
			slog.Int("skipped", result.SkippedItems),
			slog.Any("errors", result.ErrorsByType),
		)
		os.Exit(1)
	}

	ds := pipeline.BuildDataset(result.Books)

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Write(ds); err != nil {
		slog.Error("writing dataset", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Close(); err != nil {
		slog.Error("close writer", slog.Any("error", err))
		os.Exit(1)
	}

	if *clean {
		if err := runCleaning(ds, cfg.CleanedDir, logger); err != nil {
			slog.Error("cleaning stage failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, cfg.OutputFile)
}

func runCleaning(ds *pipeline.Dataset, dir string, logger *slog.Logger) error {
	reportPath := filepath.Join(dir, "outliers_info.json")

	cleaner := cleaning.New(logger)
	cleaned, report, err := cleaner.Run(ds, reportPath)
	if err != nil {
		return err
	}

	writer, err := pipeline.NewDualWriter(
		filepath.Join(dir, "cleaned_books.csv"),
		filepath.Join(dir, "cleaned_books.json"),
	)
	if err != nil {
		return err
	}
	if err := writer.Write(cleaned); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	slog.Info("cleaning complete",
		slog.Int("rows", cleaned.Len()),
		slog.Int("outlier_columns", len(report)),
		slog.String("report", reportPath),
	)
	return nil
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.CrawlResult, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Crawl complete")
	fmt.Printf("  Pages:         %d\n", result.PageCount)
	fmt.Printf("  Records:       %d\n", len(result.Books))
	fmt.Printf("  Skipped items: %d\n", result.SkippedItems)
	fmt.Printf("  Duplicates:    %d\n", result.DuplicateURLs)
	fmt.Printf("  Failed URLs:   %d\n", len(result.FailedURLs))
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	fmt.Printf("  Duration:      %v\n", result.Duration())
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
