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
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"webstress/browser"
	"webstress/campaign"
	"webstress/config"
	"webstress/models"
	"webstress/report"
)

func main() {
	// Local overrides may live in a .env file; a missing file is fine.
	_ = godotenv.Load()

	defaultCfg := config.DefaultConfig()
	urlDefault := ""
	if value, ok := config.EnvString("WEBSTRESS_URL"); ok {
		urlDefault = value
	}
	stepsDefault := defaultCfg.StepsFile
	if value, ok := config.EnvString("WEBSTRESS_STEPS"); ok {
		stepsDefault = value
	}
	iterationsDefault := defaultCfg.Iterations
	if value, ok, err := config.EnvInt("WEBSTRESS_ITERATIONS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid WEBSTRESS_ITERATIONS: %v\n", err)
		os.Exit(1)
	} else if ok {
		iterationsDefault = value
	}
	outputDefault := defaultCfg.OutputDir
	if value, ok := config.EnvString("WEBSTRESS_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("WEBSTRESS_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	endpointDefault := defaultCfg.ReportEndpoint
	if value, ok := config.EnvString("WEBSTRESS_REPORT_ENDPOINT"); ok {
		endpointDefault = value
	}

	targetURL := flag.String("url", urlDefault, "Target application URL")
	stepsFile := flag.String("steps", stepsDefault, "Test path file (JSON or YAML)")
	iterations := flag.Int("iterations", iterationsDefault, "Number of iterations to run")
	headless := flag.Bool("headless", defaultCfg.Headless, "Run the browser headless")
	outputDir := flag.String("out", outputDefault, "Directory for reports and screenshots")
	relevanceFile := flag.String("relevance", "", "YAML file with telemetry relevance rules")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	reportEndpoint := flag.String("report-endpoint", endpointDefault, "HTTP endpoint to publish the report to")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.TargetURL = *targetURL
	cfg.StepsFile = *stepsFile
	cfg.Iterations = *iterations
	cfg.Headless = *headless
	cfg.OutputDir = *outputDir
	cfg.MetricsAddr = *metricsAddr
	cfg.ReportEndpoint = *reportEndpoint
	cfg.Verbose = *verbose

	if *relevanceFile != "" {
		rules, err := config.LoadRelevance(*relevanceFile)
		if err != nil {
			slog.Error("loading relevance rules", slog.Any("error", err))
			os.Exit(1)
		}
		cfg.Relevance = rules
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	steps, err := config.LoadSteps(cfg.StepsFile)
	if err != nil {
		slog.Error("loading test path", slog.Any("error", err))
		os.Exit(1)
	}

	writer, err := report.NewWriter(cfg.OutputDir)
	if err != nil {
		slog.Error("creating report writer", slog.Any("error", err))
		os.Exit(1)
	}
	shots, err := report.NewScreenshotStore(filepath.Join(cfg.OutputDir, "screenshots"))
	if err != nil {
		slog.Error("creating screenshot store", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current iteration")
	}()

	session, err := browser.NewSession(ctx, browser.Options{
		Headless:  cfg.Headless,
		UserAgent: cfg.UserAgent,
	})
	if err != nil {
		slog.Error("launching browser", slog.Any("error", err))
		os.Exit(1)
	}
	defer session.Close()

	metrics := campaign.NewMetrics()
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

	aggregator := campaign.NewAggregator(session, cfg, metrics, shots)
	rep, err := aggregator.Execute(ctx, steps)
	if err != nil {
		slog.Error("campaign failed", slog.Any("error", err))
		os.Exit(1)
	}

	reportPath, err := writer.Write(rep)
	if err != nil {
		slog.Error("writing report", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.ReportEndpoint != "" {
		publisher := report.NewPublisher(cfg.ReportEndpoint, nil)
		if err := publisher.Publish(context.Background(), rep); err != nil {
			slog.Warn("report delivery failed, report kept on disk", slog.Any("error", err))
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(rep, reportPath)
	if rep.Incomplete {
		os.Exit(2)
	}
}

func printSummary(rep *models.AggregateReport, reportPath string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Campaign complete")
	fmt.Printf("  Target:        %s\n", rep.TargetURL)
	fmt.Printf("  Runs:          %d/%d\n", rep.TotalRuns, rep.RequestedRuns)
	fmt.Printf("  Success rate:  %.2f%%\n", rep.Summary.SuccessRate)
	fmt.Printf("  Run time:      mean %.2fs, min %.2fs, max %.2fs\n",
		rep.Summary.MeanRunTime, rep.Summary.MinRunTime, rep.Summary.MaxRunTime)
	fmt.Printf("  Console:       %d errors, %d warnings\n", rep.Summary.ConsoleErrors, rep.Summary.ConsoleWarnings)
	fmt.Printf("  Network:       %d failures\n", rep.Summary.NetworkFailures)
	if len(rep.PeakUsageByRun) > 0 {
		peak := rep.PeakUsageByRun[0]
		for _, p := range rep.PeakUsageByRun[1:] {
			if p > peak {
				peak = p
			}
		}
		fmt.Printf("  Peak memory:   %.1f%%\n", peak)
	}
	if len(rep.Degradations) > 0 {
		fmt.Printf("  Degradations:  %d\n", len(rep.Degradations))
	}
	if rep.Incomplete {
		fmt.Printf("  Incomplete:    %s\n", rep.FatalError)
	}
	fmt.Printf("  Report:        %s\n", reportPath)
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
