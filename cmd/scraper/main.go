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
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-shopify/config"
	"github.com/aluiziolira/go-scrape-shopify/models"
	"github.com/aluiziolira/go-scrape-shopify/pipeline"
	"github.com/aluiziolira/go-scrape-shopify/scraper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	config.LoadDotenv()
	defaultCfg := config.DefaultConfig()

	domainDefault := ""
	if value, ok := config.EnvString("SCRAPER_DOMAIN"); ok {
		domainDefault = value
	}
	parallelDefault := defaultCfg.Parallelism
	if value, ok, err := config.EnvInt("SCRAPER_PARALLEL"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_PARALLEL: %v\n", err)
		os.Exit(1)
	} else if ok {
		parallelDefault = value
	}
	maxProductsDefault := defaultCfg.MaxProducts
	if value, ok, err := config.EnvInt("SCRAPER_MAX_PRODUCTS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_MAX_PRODUCTS: %v\n", err)
		os.Exit(1)
	} else if ok {
		maxProductsDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	rpsDefault := defaultCfg.DomainRPS
	if value, ok, err := config.EnvFloat("SCRAPER_DOMAIN_RPS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_DOMAIN_RPS: %v\n", err)
		os.Exit(1)
	} else if ok {
		rpsDefault = value
	}

	domain := flag.String("domain", domainDefault, "Store domain (e.g. store.myshopify.com)")
	products := flag.String("products", "", "Comma-separated product handles to scrape")
	discover := flag.Bool("discover", false, "Auto-discover product handles")
	maxProducts := flag.Int("max-products", maxProductsDefault, "Maximum products to discover per store")
	parallelism := flag.Int("parallel", parallelDefault, "Number of concurrent requests")
	timeoutSecs := flag.Int("timeout", int(defaultCfg.Timeout/time.Second), "Per-request timeout (seconds)")
	domainRPS := flag.Float64("domain-rps", rpsDefault, "Per-domain request rate cap (0 disables)")
	storesFile := flag.String("stores", "", "YAML file listing store domains for a multi-store run")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv, json, or dual")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	respectRobots := flag.Bool("respect-robots", false, "Respect robots.txt directives")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.Domain = *domain
	cfg.Handles = splitHandles(*products)
	cfg.Discover = *discover || len(cfg.Handles) == 0
	cfg.MaxProducts = *maxProducts
	cfg.Parallelism = *parallelism
	cfg.Timeout = time.Duration(*timeoutSecs) * time.Second
	cfg.DomainRPS = *domainRPS
	cfg.StoresFile = *storesFile
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.MetricsAddr = *metricsAddr
	cfg.RespectRobotsTxt = *respectRobots
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	domains := []string{cfg.Domain}
	if cfg.StoresFile != "" {
		stores, err := config.LoadStores(cfg.StoresFile)
		if err != nil {
			slog.Error("loading stores file", slog.Any("error", err))
			os.Exit(1)
		}
		domains = stores
	}

	scrapers := make([]*scraper.Scraper, 0, len(domains))
	for _, d := range domains {
		s, err := scraper.NewScraperFor(cfg, d)
		if err != nil {
			slog.Error("initialising scraper", slog.String("domain", d), slog.Any("error", err))
			os.Exit(1)
		}
		if !scraper.IsShopifyDomain(s.Domain()) {
			slog.Warn("domain may not be a Shopify store", slog.String("domain", s.Domain()))
		}
		scrapers = append(scrapers, s)
	}
	defer func() {
		for _, s := range scrapers {
			s.Close()
		}
	}()

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		gatherers := make(prometheus.Gatherers, 0, len(scrapers))
		for _, s := range scrapers {
			gatherers = append(gatherers, s.Metrics.Registry)
		}
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	p := pipeline.NewPipeline(ctx, writer, cfg)
	p.Start(cfg.Parallelism)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	startTime := time.Now()
	totals := &models.ScrapeResult{ErrorsByType: make(map[string]int)}
	for _, s := range scrapers {
		if ctx.Err() != nil {
			break
		}

		handles := cfg.Handles
		if len(handles) == 0 {
			handles = s.Discover(ctx, cfg.MaxProducts)
		}
		if len(handles) == 0 {
			slog.Warn("no product handles for store", slog.String("domain", s.Domain()))
			continue
		}

		result, err := s.Run(ctx, handles, p)
		if err != nil {
			slog.Error("scraping failed", slog.String("domain", s.Domain()), slog.Any("error", err))
			os.Exit(1)
		}
		merge(totals, result)
	}

	if err := p.Close(); err != nil {
		slog.Error("pipeline shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(totals, p.GetMetrics(), time.Since(startTime), cfg.OutputFile)
}

func splitHandles(arg string) []string {
	if strings.TrimSpace(arg) == "" {
		return nil
	}
	parts := strings.Split(arg, ",")
	handles := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			handles = append(handles, trimmed)
		}
	}
	return handles
}

func merge(totals, result *models.ScrapeResult) {
	totals.Products = append(totals.Products, result.Products...)
	totals.RequestCount += result.RequestCount
	totals.ErrorCount += result.ErrorCount
	totals.NotFoundCount += result.NotFoundCount
	totals.EmptyCount += result.EmptyCount
	totals.FailedHandles = append(totals.FailedHandles, result.FailedHandles...)
	for label, count := range result.ErrorsByType {
		totals.ErrorsByType[label] += count
	}
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

func printSummary(totals *models.ScrapeResult, metrics map[string]interface{}, duration time.Duration, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	written := int64(0)
	if processed, ok := metrics["processed_products"].(int64); ok {
		written = processed
	}

	successRate := 0.0
	if totals.RequestCount > 0 {
		successRate = float64(totals.RequestCount-totals.ErrorCount) / float64(totals.RequestCount) * 100
	}
	itemsPerSec := 0.0
	if duration.Seconds() > 0 {
		itemsPerSec = float64(written) / duration.Seconds()
	}

	fmt.Printf("  Products:      %d scraped, %d written\n", len(totals.Products), written)
	fmt.Printf("  Success rate:  %.2f%%\n", successRate)
	fmt.Printf("  Not found:     %d\n", totals.NotFoundCount)
	fmt.Printf("  Errors:        %d\n", totals.ErrorCount)
	if len(totals.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", totals.ErrorsByType)
	}
	if dropped, ok := metrics["dropped_products"].(map[string]int); ok && len(dropped) > 0 {
		fmt.Printf("  Dropped:       %v\n", dropped)
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Items/sec:     %.2f\n", itemsPerSec)
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
