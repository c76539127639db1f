// Package store persists pipeline artifacts: rasters as NetCDF files,
// per-date rainfall tables as CSVs, and boundary polygons read from
// shapefiles. All writes go through a temp-then-rename discipline so a failed
// unit never leaves a partial artifact behind.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ctessum/cdf"

	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/domain"
)

// NetCDF variable and attribute names for single-band raster files.
const (
	rasterVar = "value"
)

// WriteRaster writes a raster to path as a single-variable NetCDF file.
// The write is atomic: data goes to a temp file in the same directory which
// is renamed into place only after a successful flush.
func WriteRaster(path string, r *domain.Raster) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp raster file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name()) // no-op after successful rename
	}()

	if err := writeNetCDF(tmp, r); err != nil {
		return fmt.Errorf("writing raster %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing raster %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publishing raster %s: %w", path, err)
	}
	return nil
}

func writeNetCDF(f *os.File, r *domain.Raster) error {
	h := cdf.NewHeader([]string{"y", "x"}, []int{r.Grid.Height, r.Grid.Width})
	h.AddAttribute("", "comment", "landslide susceptibility pipeline raster")
	h.AddAttribute("", "proj4", r.Grid.Proj4)
	h.AddAttribute("", "x0", []float64{r.Grid.OriginX})
	h.AddAttribute("", "y0", []float64{r.Grid.OriginY})
	h.AddAttribute("", "dx", []float64{r.Grid.CellWidth})
	h.AddAttribute("", "dy", []float64{r.Grid.CellHeight})
	h.AddAttribute("", "nx", []int32{int32(r.Grid.Width)})
	h.AddAttribute("", "ny", []int32{int32(r.Grid.Height)})
	h.AddAttribute("", "nodata", []float64{r.NoData})
	h.AddVariable(rasterVar, []string{"y", "x"}, []float32{0})
	h.Define()

	cf, err := cdf.Create(f, h)
	if err != nil {
		return err
	}

	data := make([]float32, len(r.Data.Elements))
	for i, v := range r.Data.Elements {
		data[i] = float32(v)
	}
	end := cf.Header.Lengths(rasterVar)
	start := make([]int, len(end))
	w := cf.Writer(rasterVar, start, end)
	if _, err := w.Write(data); err != nil {
		return err
	}
	return cdf.UpdateNumRecs(f)
}

// ReadRaster loads a raster previously written by WriteRaster.
func ReadRaster(path string) (*domain.Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening raster %s: %w", path, err)
	}
	defer f.Close()

	cf, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("reading raster %s: %w", path, err)
	}

	grid := domain.GridSpec{
		Proj4:      cf.Header.GetAttribute("", "proj4").(string),
		OriginX:    cf.Header.GetAttribute("", "x0").([]float64)[0],
		OriginY:    cf.Header.GetAttribute("", "y0").([]float64)[0],
		CellWidth:  cf.Header.GetAttribute("", "dx").([]float64)[0],
		CellHeight: cf.Header.GetAttribute("", "dy").([]float64)[0],
		Width:      int(cf.Header.GetAttribute("", "nx").([]int32)[0]),
		Height:     int(cf.Header.GetAttribute("", "ny").([]int32)[0]),
	}
	noData := cf.Header.GetAttribute("", "nodata").([]float64)[0]
	if err := grid.Validate(); err != nil {
		return nil, fmt.Errorf("raster %s: %w", path, err)
	}

	out := domain.NewRaster(grid, noData)
	tmp := make([]float32, grid.Width*grid.Height)
	rd := cf.Reader(rasterVar, nil, nil)
	if _, err := rd.Read(tmp); err != nil {
		return nil, fmt.Errorf("reading raster data %s: %w", path, err)
	}
	for i, v := range tmp {
		out.Data.Elements[i] = float64(v)
	}
	return out, nil
}

// Exists reports whether a previously produced artifact is already in place,
// allowing reruns to skip completed work.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
