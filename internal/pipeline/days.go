package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/classify"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/domain"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/geometry"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/overlay"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/rainfall"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/store"
)

// dayInput is one forecast day's unit of work, fully described by its
// persisted per-date CSV so the unit can be retried without rereading the
// source table.
type dayInput struct {
	Index     int
	RawDate   string
	TablePath string
}

// rainfallParse handles the RAINFALL_PARSE stage: it produces the recorded
// rainfall raster shared by every day, splits the forecast table into
// per-date CSV artifacts, and memoizes the reference (information) grid used
// for station gridding.
func (p *Pipeline) rainfallParse(ctx context.Context) (recordedPath string, days []dayInput, err error) {
	start := time.Now()
	defer func() {
		p.metrics.StageDuration.WithLabelValues(stageRainfallParse).Observe(time.Since(start).Seconds())
	}()
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	info, err := store.ReadRaster(p.cfg.Paths.ReferenceRaster)
	if err != nil {
		return "", nil, fmt.Errorf("reading reference raster: %w", err)
	}
	p.infoGrid = info.Grid

	recordedPath, err = p.recordedRaster()
	if err != nil {
		return "", nil, fmt.Errorf("recorded rainfall: %w", err)
	}

	f, err := os.Open(p.cfg.Rainfall.ForecastCSV)
	if err != nil {
		return "", nil, fmt.Errorf("opening forecast CSV: %w", err)
	}
	defer f.Close()

	table, err := rainfall.ParseTable(f, rainfall.ForecastSchema())
	if err != nil {
		return "", nil, fmt.Errorf("parsing forecast CSV: %w", err)
	}
	byDate, order, err := rainfall.SplitByDate(table)
	if err != nil {
		return "", nil, err
	}

	for i, raw := range order {
		tablePath := p.cfg.ProcessedPath("csv", fmt.Sprintf("forecast_%d_rainfall.csv", i+1))
		if err := store.WriteTable(tablePath, byDate[raw], rainfall.ForecastSchema()); err != nil {
			return "", nil, err
		}
		days = append(days, dayInput{Index: i + 1, RawDate: raw, TablePath: tablePath})
	}
	p.logger.Info("forecast table split", "days", len(days))
	return recordedPath, days, nil
}

// recordedRaster sums the recorded rainfall per station and turns the totals
// into a classified raster on the reference grid.
func (p *Pipeline) recordedRaster() (string, error) {
	outPath := p.cfg.ProcessedPath("raster", "recorded_rainfall_cls.nc")
	if store.Exists(outPath) && !p.cfg.Force {
		p.logger.Info("recorded rainfall raster exists, skipping", "path", outPath)
		return outPath, nil
	}

	f, err := os.Open(p.cfg.Rainfall.RecordedCSV)
	if err != nil {
		return "", err
	}
	defer f.Close()

	table, err := rainfall.ParseTable(f, rainfall.RecordedSchema())
	if err != nil {
		return "", err
	}
	summed := rainfall.SumByStation(table)
	if err := store.WriteTable(p.cfg.ProcessedPath("csv", "summed_rainfall.csv"), summed, rainfall.RecordedSchema()); err != nil {
		return "", err
	}

	cls, err := p.rasterizeStations(summed)
	if err != nil {
		return "", err
	}
	if err := store.WriteRaster(outPath, cls); err != nil {
		return "", err
	}
	p.cache.Invalidate(outPath)
	p.logger.Info("recorded rainfall raster produced", "path", outPath)
	return outPath, nil
}

// rasterizeStations grids station rainfall onto the information grid, warps
// the result onto the canonical reference grid, clips it to the boundary,
// and classifies it with the optional rainfall rule set.
func (p *Pipeline) rasterizeStations(table *rainfall.Table) (*domain.Raster, error) {
	gridded, err := rainfall.GridIDW(table, p.infoGrid, p.cfg.Rainfall.IDWPower)
	if err != nil {
		return nil, err
	}
	aligned, err := geometry.AlignTo(gridded, p.refGrid, geometry.Bilinear, geometry.Continuous)
	if err != nil {
		return nil, err
	}
	clipped, err := geometry.Clip(aligned, p.boundary)
	if err != nil {
		return nil, err
	}
	p.metrics.RastersAligned.Inc()

	rules, err := p.cfg.RainfallRuleSet()
	if err != nil {
		return nil, err
	}
	cls, err := classify.Apply(clipped, rules)
	if err != nil {
		return nil, err
	}
	p.metrics.RastersClassified.Inc()
	return cls, nil
}

// runDays executes every forecast day on a bounded worker group. Day
// failures are contained: they are logged, counted, and recorded in the
// report without aborting other days. Cancellation is cooperative between
// units.
func (p *Pipeline) runDays(ctx context.Context, basePath, recordedPath string, days []dayInput) []DayResult {
	results := make([]DayResult, len(days))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, day := range days {
		g.Go(func() error {
			results[i] = p.runDay(ctx, basePath, recordedPath, day)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // unit errors are contained in results

	for _, res := range results {
		switch res.Outcome {
		case OutcomeOK:
			p.metrics.DaysSucceeded.Inc()
		case OutcomeSkipped:
			p.metrics.DaysSkipped.Inc()
		case OutcomeFailed:
			p.metrics.DaysFailed.Inc()
			p.logger.Error("forecast day failed",
				"day", res.Index, "date", res.RawDate, "error", res.Err)
		}
	}
	return results
}

// runDay produces one day's susceptibility map: parse the day's date, grid
// and classify its rainfall, then fuse baseline, recorded, and forecast
// layers. Every error is contained in the returned result.
func (p *Pipeline) runDay(ctx context.Context, basePath, recordedPath string, day dayInput) DayResult {
	res := DayResult{Index: day.Index, RawDate: day.RawDate}
	start := time.Now()
	defer func() {
		p.metrics.StageDuration.WithLabelValues(stageDay).Observe(time.Since(start).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}

	date, err := rainfall.ParseDate(day.RawDate)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	name := date.Format("2006-01-02")
	res.OutputPath = p.cfg.OutputPath(name + "_landslide_map.nc")

	if store.Exists(res.OutputPath) && !p.cfg.Force {
		p.logger.Info("day output exists, skipping", "day", day.Index, "date", name)
		res.Outcome = OutcomeSkipped
		return res
	}

	table, err := store.ReadTable(day.TablePath, rainfall.ForecastSchema())
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	forecast, err := p.rasterizeStations(table)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	clsPath := p.cfg.ProcessedPath("raster", name+"_forecast_rainfall_cls.nc")
	if err := store.WriteRaster(clsPath, forecast); err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}

	base, err := p.cache.Get(basePath)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	recorded, err := p.cache.Get(recordedPath)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	weights, err := p.cfg.FusionWeights()
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}

	final, err := overlay.Combine([]overlay.Layer{
		{Factor: "base", Raster: base},
		{Factor: "recorded", Raster: recorded},
		{Factor: "forecast", Raster: forecast},
	}, weights)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	if err := store.WriteRaster(res.OutputPath, final); err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	p.metrics.OverlaysProduced.Inc()

	p.logger.Info("day output produced", "day", day.Index, "date", name, "path", res.OutputPath)
	res.Outcome = OutcomeOK
	return res
}
