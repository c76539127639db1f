// Package pipeline orchestrates the susceptibility run as a strict sequence
// of stages: static factor preparation, static overlay, rainfall parsing,
// then one independent classify+overlay unit per forecast day. Per-day units
// are embarrassingly parallel and run on a bounded worker group; each unit
// either fully publishes its output raster or fails in isolation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ctessum/geom"

	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/classify"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/config"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/domain"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/geometry"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/observability"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/overlay"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/store"
)

// Stage names, used in logs and metrics labels.
const (
	stageStaticPrep    = "static_prep"
	stageStaticOverlay = "static_overlay"
	stageRainfallParse = "rainfall_parse"
	stageDay           = "day"
)

// Pipeline runs the full susceptibility computation for one configuration.
type Pipeline struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	cache   *store.RasterCache

	ready atomic.Bool

	// set during the static stages, read-only afterwards
	boundary geom.Polygonal
	refGrid  domain.GridSpec
	infoGrid domain.GridSpec
}

// New creates a Pipeline.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		cache:   store.NewRasterCache(len(cfg.Factors) + 4),
	}
}

// CheckReadiness reports whether the static baseline has been produced; the
// optional HTTP listener exposes this as /readyz.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("static baseline not yet produced")
	}
	return nil
}

// Run executes the pipeline. Configuration errors and baseline failures are
// returned; per-day failures are contained in the report. The context
// cancels between units: an in-flight day finishes or fails, no partial
// output is ever published.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: domain.Now()}
	defer func() { report.FinishedAt = domain.Now() }()

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.logger.Info("pipeline started",
		"factors", len(p.cfg.Factors),
		"workers", p.cfg.Workers,
		"force", p.cfg.Force,
	)

	boundary, err := store.LoadBoundary(p.cfg.Paths.Boundary, p.cfg.Target.Proj4)
	if err != nil {
		report.BaselineErr = err
		return report, fmt.Errorf("loading boundary: %w", err)
	}
	p.boundary = boundary

	classified, err := p.staticPrep(ctx)
	if err != nil {
		report.BaselineErr = err
		return report, err
	}

	basePath, err := p.staticOverlay(classified)
	if err != nil {
		report.BaselineErr = err
		return report, err
	}
	report.BaselinePath = basePath
	p.ready.Store(true)

	recordedPath, days, err := p.rainfallParse(ctx)
	if err != nil {
		// The baseline stands on its own; rainfall trouble only loses
		// the per-day maps.
		p.logger.Error("rainfall parsing failed, skipping per-day maps", "error", err)
		report.Days = nil
		return report, nil
	}

	report.Days = p.runDays(ctx, basePath, recordedPath, days)

	p.logger.Info("pipeline finished",
		"baseline", report.BaselinePath,
		"days_total", len(report.Days),
		"days_failed", report.FailedDays(),
	)
	return report, nil
}

// staticPrep adapts and classifies every static factor raster, returning the
// classified layers keyed by factor name. The first factor fixes the
// canonical reference grid; every other layer is warped onto it so the
// overlay's alignment invariant holds by construction.
func (p *Pipeline) staticPrep(ctx context.Context) ([]overlay.Layer, error) {
	start := time.Now()
	defer func() {
		p.metrics.StageDuration.WithLabelValues(stageStaticPrep).Observe(time.Since(start).Seconds())
	}()

	layers := make([]overlay.Layer, 0, len(p.cfg.Factors))
	for i, factor := range p.cfg.Factors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outPath := p.cfg.ProcessedPath("raster", factor.Name+"_cls.nc")
		if store.Exists(outPath) && !p.cfg.Force {
			p.logger.Info("classified raster exists, skipping", "factor", factor.Name, "path", outPath)
			r, err := p.cache.Get(outPath)
			if err != nil {
				return nil, fmt.Errorf("factor %s: reading existing artifact: %w", factor.Name, err)
			}
			if i == 0 {
				p.refGrid = r.Grid
			} else if !r.Grid.Equal(p.refGrid) {
				return nil, domain.Geometryf("align",
					"existing artifact for %q is on a stale grid; rerun with force", factor.Name)
			}
			layers = append(layers, overlay.Layer{Factor: factor.Name, Raster: r})
			continue
		}

		cls, err := p.prepareFactor(factor, i == 0)
		if err != nil {
			return nil, fmt.Errorf("factor %s: %w", factor.Name, err)
		}
		if err := store.WriteRaster(outPath, cls); err != nil {
			return nil, fmt.Errorf("factor %s: %w", factor.Name, err)
		}
		p.cache.Invalidate(outPath)
		p.logger.Info("factor classified", "factor", factor.Name, "path", outPath)
		layers = append(layers, overlay.Layer{Factor: factor.Name, Raster: cls})
	}
	return layers, nil
}

// prepareFactor runs one factor through the geometry adapter and classifier.
func (p *Pipeline) prepareFactor(factor config.Factor, first bool) (*domain.Raster, error) {
	src, err := store.ReadRaster(factor.Path)
	if err != nil {
		return nil, err
	}

	var aligned *domain.Raster
	if first {
		reprojected, err := geometry.Reproject(src, p.cfg.Target.Proj4, factor.Method(), factor.GeometryKind())
		if err != nil {
			return nil, err
		}
		resampled, err := geometry.Resample(reprojected, p.cfg.Target.CellSize, p.cfg.Target.CellSize, factor.Method(), factor.GeometryKind())
		if err != nil {
			return nil, err
		}
		clipped, err := geometry.Clip(resampled, p.boundary)
		if err != nil {
			return nil, err
		}
		p.refGrid = clipped.Grid
		aligned = clipped
	} else {
		warped, err := geometry.AlignTo(src, p.refGrid, factor.Method(), factor.GeometryKind())
		if err != nil {
			return nil, err
		}
		aligned, err = geometry.Clip(warped, p.boundary)
		if err != nil {
			return nil, err
		}
	}
	p.metrics.RastersAligned.Inc()

	rules, err := factor.RuleSet()
	if err != nil {
		return nil, err
	}
	cls, err := classify.Apply(aligned, rules)
	if err != nil {
		return nil, err
	}
	p.metrics.RastersClassified.Inc()
	return cls, nil
}

// staticOverlay fuses the classified factor layers into the baseline
// susceptibility raster.
func (p *Pipeline) staticOverlay(layers []overlay.Layer) (string, error) {
	start := time.Now()
	defer func() {
		p.metrics.StageDuration.WithLabelValues(stageStaticOverlay).Observe(time.Since(start).Seconds())
	}()

	basePath := p.cfg.ProcessedPath("landslide_susceptibility_base.nc")
	if store.Exists(basePath) && !p.cfg.Force {
		p.logger.Info("baseline exists, skipping", "path", basePath)
		return basePath, nil
	}

	weights, err := p.cfg.FactorWeights()
	if err != nil {
		return "", err
	}
	base, err := overlay.Combine(layers, weights)
	if err != nil {
		return "", err
	}
	if err := store.WriteRaster(basePath, base); err != nil {
		return "", err
	}
	p.cache.Invalidate(basePath)
	p.metrics.OverlaysProduced.Inc()
	p.logger.Info("baseline produced", "path", basePath)
	return basePath, nil
}
