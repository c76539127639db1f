package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/config"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/domain"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/observability"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/rainfall"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/store"
)

const testProj = "+proj=longlat +datum=WGS84 +no_defs"

func fp(v float64) *float64 { return &v }

// testGrid is a 4x4 geographic grid of 0.1 degree cells over central Nepal.
func testGrid() domain.GridSpec {
	return domain.GridSpec{
		Proj4:      testProj,
		OriginX:    85.0,
		OriginY:    28.0,
		CellWidth:  0.1,
		CellHeight: 0.1,
		Width:      4,
		Height:     4,
	}
}

// testBoundary covers the whole test grid so clipping keeps every cell.
func testBoundary() geom.Polygon {
	return geom.Polygon{{
		{X: 84.9, Y: 27.5}, {X: 85.5, Y: 27.5}, {X: 85.5, Y: 28.1}, {X: 84.9, Y: 28.1}, {X: 84.9, Y: 27.5},
	}}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Target: config.Target{Proj4: testProj, CellSize: 0.1},
		Paths: config.Paths{
			Boundary:        filepath.Join(dir, "boundary.shp"),
			ReferenceRaster: filepath.Join(dir, "reference.nc"),
			ProcessedDir:    filepath.Join(dir, "processed"),
			OutputDir:       filepath.Join(dir, "output"),
		},
		Factors: []config.Factor{
			{Name: "slope", Kind: "continuous", Resample: "bilinear", Weight: 1.0},
		},
		Rainfall: config.Rainfall{
			ForecastCSV: filepath.Join(dir, "forecast.csv"),
			RecordedCSV: filepath.Join(dir, "recorded.csv"),
			IDWPower:    2,
			Rules: []config.Rule{
				{Max: fp(20), Class: 1},
				{Min: fp(20), Max: fp(60), Class: 2},
				{Min: fp(60), Class: 3},
			},
			FusionWeights: map[string]float64{"base": 0.5, "recorded": 0.2, "forecast": 0.3},
		},
		Workers: 2,
	}
}

// testPipeline builds a Pipeline with the static stages already "done": the
// boundary and grids are set directly and the baseline and recorded rasters
// are written to disk.
func testPipeline(t *testing.T) (*Pipeline, string, string) {
	t.Helper()
	cfg := testConfig(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := New(cfg, logger, observability.NewMetricsForTesting())
	p.boundary = testBoundary()
	p.refGrid = testGrid()
	p.infoGrid = testGrid()

	base := domain.NewRaster(testGrid(), domain.ClassNoData)
	recorded := domain.NewRaster(testGrid(), domain.ClassNoData)
	for i := range base.Data.Elements {
		base.Data.Elements[i] = 2
		recorded.Data.Elements[i] = 1
	}
	basePath := cfg.ProcessedPath("landslide_susceptibility_base.nc")
	recordedPath := cfg.ProcessedPath("raster", "recorded_rainfall_cls.nc")
	require.NoError(t, store.WriteRaster(basePath, base))
	require.NoError(t, store.WriteRaster(recordedPath, recorded))
	return p, basePath, recordedPath
}

// writeDayTable persists one forecast day's station table and returns its
// dayInput.
func writeDayTable(t *testing.T, p *Pipeline, index int, rawDate string) dayInput {
	t.Helper()
	tbl := &rainfall.Table{Records: []rainfall.Record{
		{Station: "27001", RawDate: rawDate, Lat: 27.75, Lon: 85.15, Rainfall: 30},
		{Station: "27002", RawDate: rawDate, Lat: 27.65, Lon: 85.35, Rainfall: 80},
	}}
	path := p.cfg.ProcessedPath("csv", fmt.Sprintf("forecast_%d_rainfall.csv", index))
	require.NoError(t, store.WriteTable(path, tbl, rainfall.ForecastSchema()))
	return dayInput{Index: index, RawDate: rawDate, TablePath: path}
}

func TestRunDays_FailedDayIsContained(t *testing.T) {
	p, basePath, recordedPath := testPipeline(t)

	days := []dayInput{
		writeDayTable(t, p, 1, "2020-07-10"),
		writeDayTable(t, p, 2, "not-a-date"),
		writeDayTable(t, p, 3, "2020-07-12"),
	}

	results := p.runDays(context.Background(), basePath, recordedPath, days)
	require.Len(t, results, 3)

	assert.Equal(t, OutcomeOK, results[0].Outcome)
	assert.True(t, store.Exists(results[0].OutputPath))

	assert.Equal(t, OutcomeFailed, results[1].Outcome)
	var ferr *domain.DataFormatError
	assert.ErrorAs(t, results[1].Err, &ferr)
	assert.Empty(t, results[1].OutputPath)

	assert.Equal(t, OutcomeOK, results[2].Outcome)
	assert.True(t, store.Exists(results[2].OutputPath))
}

func TestRunDay_ProducesFusedOutput(t *testing.T) {
	p, basePath, recordedPath := testPipeline(t)
	day := writeDayTable(t, p, 1, "2020-07-10")

	res := p.runDay(context.Background(), basePath, recordedPath, day)
	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, p.cfg.OutputPath("2020-07-10_landslide_map.nc"), res.OutputPath)

	out, err := store.ReadRaster(res.OutputPath)
	require.NoError(t, err)

	// base=2, recorded=1, forecast class in [1,3]; with weights
	// 0.5/0.2/0.3 every valid cell lands in [1.5, 2.1].
	valid := 0
	for _, v := range out.Data.Elements {
		if out.IsNoData(v) {
			continue
		}
		assert.GreaterOrEqual(t, v, 1.5)
		assert.LessOrEqual(t, v, 2.1)
		valid++
	}
	assert.NotZero(t, valid)

	// Intermediate forecast classification is persisted too.
	assert.True(t, store.Exists(p.cfg.ProcessedPath("raster", "2020-07-10_forecast_rainfall_cls.nc")))
}

func TestRunDay_SkipsExistingOutput(t *testing.T) {
	p, basePath, recordedPath := testPipeline(t)
	day := writeDayTable(t, p, 1, "2020-07-10")

	first := p.runDay(context.Background(), basePath, recordedPath, day)
	require.Equal(t, OutcomeOK, first.Outcome)
	info, err := os.Stat(first.OutputPath)
	require.NoError(t, err)

	second := p.runDay(context.Background(), basePath, recordedPath, day)
	assert.Equal(t, OutcomeSkipped, second.Outcome)

	// The artifact was not rewritten.
	again, err := os.Stat(first.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime())
}

func TestRunDay_CancelledContext(t *testing.T) {
	p, basePath, recordedPath := testPipeline(t)
	day := writeDayTable(t, p, 1, "2020-07-10")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.runDay(ctx, basePath, recordedPath, day)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestRainfallParse(t *testing.T) {
	p, _, _ := testPipeline(t)

	ref := domain.NewRaster(testGrid(), domain.ContinuousNoData)
	require.NoError(t, store.WriteRaster(p.cfg.Paths.ReferenceRaster, ref))

	recordedCSV := "municipality_id,record_date,lat,lon,rainfall\n" +
		"27001,2020-07-08,27.75,85.15,12\n" +
		"27001,2020-07-09,27.75,85.15,20\n" +
		"27002,2020-07-09,27.65,85.35,5\n"
	require.NoError(t, os.WriteFile(p.cfg.Rainfall.RecordedCSV, []byte(recordedCSV), 0o600))

	forecastCSV := "municipality_id,forecast_date,lat,lon,rainfall\n" +
		"27001,2020-07-10,27.75,85.15,30\n" +
		"27002,2020-07-10,27.65,85.35,10\n" +
		"27001,2020-07-11,27.75,85.15,70\n"
	require.NoError(t, os.WriteFile(p.cfg.Rainfall.ForecastCSV, []byte(forecastCSV), 0o600))

	recordedPath, days, err := p.rainfallParse(context.Background())
	require.NoError(t, err)

	assert.True(t, store.Exists(recordedPath))
	require.Len(t, days, 2)
	assert.Equal(t, dayInput{Index: 1, RawDate: "2020-07-10", TablePath: p.cfg.ProcessedPath("csv", "forecast_1_rainfall.csv")}, days[0])
	assert.Equal(t, "2020-07-11", days[1].RawDate)
	assert.True(t, store.Exists(days[0].TablePath))
	assert.True(t, store.Exists(days[1].TablePath))

	// Recorded totals are persisted per station: 27001 summed over two days.
	summed, err := store.ReadTable(p.cfg.ProcessedPath("csv", "summed_rainfall.csv"), rainfall.RecordedSchema())
	require.NoError(t, err)
	require.Len(t, summed.Records, 2)
	assert.Equal(t, 32.0, summed.Records[0].Rainfall)
}

func TestCheckReadiness(t *testing.T) {
	p, _, _ := testPipeline(t)

	assert.Error(t, p.CheckReadiness(context.Background()))
	p.ready.Store(true)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestReport(t *testing.T) {
	t.Run("exit code", func(t *testing.T) {
		ok := &Report{Days: []DayResult{{Outcome: OutcomeOK}}}
		assert.Equal(t, 0, ok.ExitCode(false))
		assert.Equal(t, 0, ok.ExitCode(true))

		failedDay := &Report{Days: []DayResult{{Outcome: OutcomeOK}, {Outcome: OutcomeFailed}}}
		assert.Equal(t, 0, failedDay.ExitCode(false))
		assert.Equal(t, 1, failedDay.ExitCode(true))

		noBaseline := &Report{BaselineErr: errors.New("boom")}
		assert.Equal(t, 1, noBaseline.ExitCode(false))
	})

	t.Run("failed days", func(t *testing.T) {
		r := &Report{Days: []DayResult{
			{Outcome: OutcomeOK}, {Outcome: OutcomeFailed}, {Outcome: OutcomeSkipped}, {Outcome: OutcomeFailed},
		}}
		assert.Equal(t, 2, r.FailedDays())
		assert.True(t, r.BaselineOK())
	})
}
