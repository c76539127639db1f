// Command genmock generates a small synthetic input set for local pipeline
// runs and test fixtures: factor rasters on a 40x40 grid, recorded and
// forecast rainfall CSVs for three stations over three days, and a matching
// run configuration. It uses the actual domain and store packages so the
// generated files round-trip through the same code paths the pipeline reads.
//
// Usage:
//
//	go run ./cmd/genmock -out testdata/mock -boundary data/boundary/nepal.shp
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/domain"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/rainfall"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/store"
)

// utm45n covers central Nepal; the mock grid sits near Kathmandu.
const utm45n = "+proj=utm +zone=45 +datum=WGS84 +units=m +no_defs"

var baseDate = time.Date(2020, time.July, 10, 0, 0, 0, 0, time.UTC)

type factorDef struct {
	name   string
	kind   string
	weight float64
	// value range for the synthetic continuous surface
	lo, hi float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "testdata/mock", "output directory for generated fixtures")
	boundary := flag.String("boundary", "", "path to a boundary shapefile to reference in the config")
	seed := flag.Int64("seed", 1, "random seed for reproducible surfaces")
	flag.Parse()

	if *boundary == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -boundary")
	}

	rng := rand.New(rand.NewSource(*seed))

	grid := domain.GridSpec{
		Proj4:      utm45n,
		OriginX:    330000,
		OriginY:    3070000,
		CellWidth:  30,
		CellHeight: 30,
		Width:      40,
		Height:     40,
	}

	factors := []factorDef{
		{name: "slope", kind: "continuous", weight: 0.35, lo: 0, hi: 60},
		{name: "elevation", kind: "continuous", weight: 0.25, lo: 600, hi: 2800},
		{name: "geology", kind: "categorical", weight: 0.25, lo: 1, hi: 5},
		{name: "landcover", kind: "categorical", weight: 0.15, lo: 1, hi: 7},
	}

	for _, f := range factors {
		path := filepath.Join(*outDir, "factors", f.name+".nc")
		r := syntheticRaster(grid, f, rng)
		if err := store.WriteRaster(path, r); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
		log.Printf("wrote factor raster: %s", path)
	}

	refPath := filepath.Join(*outDir, "reference.nc")
	if err := store.WriteRaster(refPath, domain.NewRaster(grid, domain.ContinuousNoData)); err != nil {
		return fmt.Errorf("writing reference raster: %w", err)
	}
	log.Printf("wrote reference raster: %s", refPath)

	recPath := filepath.Join(*outDir, "recorded_rainfall.csv")
	if err := store.WriteTable(recPath, recordedTable(rng), rainfall.RecordedSchema()); err != nil {
		return fmt.Errorf("writing recorded CSV: %w", err)
	}
	log.Printf("wrote recorded rainfall: %s", recPath)

	fcPath := filepath.Join(*outDir, "forecast_rainfall.csv")
	if err := store.WriteTable(fcPath, forecastTable(rng), rainfall.ForecastSchema()); err != nil {
		return fmt.Errorf("writing forecast CSV: %w", err)
	}
	log.Printf("wrote forecast rainfall: %s", fcPath)

	cfgPath := filepath.Join(*outDir, "lsmap.yaml")
	if err := writeConfig(cfgPath, *outDir, *boundary, factors); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	log.Printf("wrote config: %s", cfgPath)

	return nil
}

// syntheticRaster builds a smooth-ish surface with a few no-data holes so
// downstream no-data propagation is exercised.
func syntheticRaster(grid domain.GridSpec, f factorDef, rng *rand.Rand) *domain.Raster {
	noData := domain.ContinuousNoData
	if f.kind == "categorical" {
		noData = domain.ClassNoData
	}
	r := domain.NewRaster(grid, noData)
	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			if rng.Float64() < 0.02 {
				continue // leave a no-data hole
			}
			v := f.lo + rng.Float64()*(f.hi-f.lo)
			if f.kind == "categorical" {
				v = float64(int(v))
			}
			r.SetValue(row, col, v)
		}
	}
	return r
}

// stations sit inside the mock grid footprint in geographic coordinates.
var stations = []struct {
	id       string
	lat, lon float64
}{
	{"27001", 27.72, 85.32},
	{"27002", 27.74, 85.36},
	{"27003", 27.70, 85.29},
}

func recordedTable(rng *rand.Rand) *rainfall.Table {
	t := &rainfall.Table{}
	for day := 0; day < 3; day++ {
		date := baseDate.AddDate(0, 0, -3+day).Format("2006-01-02")
		for _, s := range stations {
			t.Records = append(t.Records, rainfall.Record{
				Station:  s.id,
				RawDate:  date,
				Lat:      s.lat,
				Lon:      s.lon,
				Rainfall: 10 + rng.Float64()*90,
			})
		}
	}
	return t
}

func forecastTable(rng *rand.Rand) *rainfall.Table {
	t := &rainfall.Table{}
	for day := 0; day < 3; day++ {
		date := baseDate.AddDate(0, 0, day).Format("2006-01-02")
		for _, s := range stations {
			t.Records = append(t.Records, rainfall.Record{
				Station:  s.id,
				RawDate:  date,
				Lat:      s.lat,
				Lon:      s.lon,
				Rainfall: 5 + rng.Float64()*120,
			})
		}
	}
	return t
}

func writeConfig(path, outDir, boundary string, factors []factorDef) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(f, "target:\n  proj4: %q\n  cell_size: 30\n", utm45n)
	fmt.Fprintf(f, "paths:\n")
	fmt.Fprintf(f, "  boundary: %s\n", boundary)
	fmt.Fprintf(f, "  reference_raster: %s\n", filepath.Join(outDir, "reference.nc"))
	fmt.Fprintf(f, "  processed_dir: %s\n", filepath.Join(outDir, "processed"))
	fmt.Fprintf(f, "  output_dir: %s\n", filepath.Join(outDir, "output"))
	fmt.Fprintf(f, "factors:\n")
	for _, fd := range factors {
		fmt.Fprintf(f, "  - name: %s\n", fd.name)
		fmt.Fprintf(f, "    path: %s\n", filepath.Join(outDir, "factors", fd.name+".nc"))
		fmt.Fprintf(f, "    kind: %s\n", fd.kind)
		fmt.Fprintf(f, "    weight: %g\n", fd.weight)
		if fd.kind == "continuous" {
			fmt.Fprintf(f, "    rules:\n")
			fmt.Fprintf(f, "      - {max: %g, class: 1}\n", fd.hi/3)
			fmt.Fprintf(f, "      - {min: %g, max: %g, class: 2}\n", fd.hi/3, 2*fd.hi/3)
			fmt.Fprintf(f, "      - {min: %g, class: 3}\n", 2*fd.hi/3)
		}
	}
	fmt.Fprintf(f, "rainfall:\n")
	fmt.Fprintf(f, "  forecast_csv: %s\n", filepath.Join(outDir, "forecast_rainfall.csv"))
	fmt.Fprintf(f, "  recorded_csv: %s\n", filepath.Join(outDir, "recorded_rainfall.csv"))
	fmt.Fprintf(f, "  idw_power: 2\n")
	fmt.Fprintf(f, "  rules:\n")
	fmt.Fprintf(f, "    - {max: 20, class: 1}\n")
	fmt.Fprintf(f, "    - {min: 20, max: 60, class: 2}\n")
	fmt.Fprintf(f, "    - {min: 60, class: 3}\n")
	fmt.Fprintf(f, "  fusion_weights:\n")
	fmt.Fprintf(f, "    base: 0.88\n")
	fmt.Fprintf(f, "    recorded: 0.02\n")
	fmt.Fprintf(f, "    forecast: 0.1\n")
	fmt.Fprintf(f, "workers: 2\n")

	return f.Sync()
}
