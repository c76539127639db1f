package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/adapter/http"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/config"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/observability"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/pipeline"
)

const shutdownTimeout = 10 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the full susceptibility pipeline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true
		return runPipeline()
	},
}

func runPipeline() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	p := pipeline.New(cfg, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional observability listener for long runs.
	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("observability server error", "error", err)
			}
		}()
	}

	report, runErr := p.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("observability server shutdown error", "error", err)
		}
	}

	for _, day := range report.Days {
		logger.Info("day result",
			"day", day.Index, "date", day.RawDate,
			"outcome", string(day.Outcome), "output", day.OutputPath)
	}
	if runErr != nil {
		logger.Error("run failed", "error", runErr)
	}

	if code := report.ExitCode(cfg.StrictDays); code != 0 {
		os.Exit(code)
	}
	return nil
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and input files without processing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		var missing []string
		paths := []string{cfg.Paths.Boundary, cfg.Paths.ReferenceRaster, cfg.Rainfall.ForecastCSV, cfg.Rainfall.RecordedCSV}
		for _, f := range cfg.Factors {
			paths = append(paths, f.Path)
		}
		for _, path := range paths {
			if _, err := os.Stat(path); err != nil {
				missing = append(missing, path)
			}
		}
		if len(missing) > 0 {
			for _, path := range missing {
				fmt.Fprintf(os.Stderr, "missing input: %s\n", path)
			}
			return fmt.Errorf("%d input file(s) missing", len(missing))
		}

		fmt.Printf("configuration OK: %d factors, target %s @ %gm\n",
			len(cfg.Factors), cfg.Target.Proj4, cfg.Target.CellSize)
		return nil
	},
}
