// Package overlay fuses aligned classified rasters into a single
// susceptibility surface by per-cell weighted summation.
package overlay

import (
	"math"

	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/domain"
)

// Layer pairs a classified raster with the factor name that selects its
// weight from the weight vector.
type Layer struct {
	Factor string
	Raster *domain.Raster
}

// Combine produces the weighted overlay of the given layers:
// out(cell) = Σ value_i(cell) × weight(factor_i).
//
// Preconditions, both checked: every layer is aligned with the first
// (identical CRS, cell size, dimensions, origin), and the weight vector's
// keys match the layers' factor names exactly and sum to 1 within tolerance.
// An orphan weight key would make the applied weights sum below 1, so it is
// rejected rather than ignored.
//
// If any contributing layer is no-data at a cell, the output cell is no-data.
// Partial contributions would silently underweight the missing factor, so
// missing data is all-or-nothing.
func Combine(layers []Layer, weights domain.WeightVector) (*domain.Raster, error) {
	if len(layers) == 0 {
		return nil, domain.Configf("overlay requires at least one layer")
	}
	if _, err := domain.NewWeightVector(weights); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(layers))
	for _, l := range layers {
		if _, ok := weights[l.Factor]; !ok {
			return nil, domain.Configf("no weight configured for layer %q", l.Factor)
		}
		seen[l.Factor] = true
	}
	for name := range weights {
		if !seen[name] {
			return nil, domain.Configf("weight %q matches no layer", name)
		}
	}

	ref := layers[0].Raster
	for _, l := range layers[1:] {
		if !ref.Aligned(l.Raster) {
			return nil, domain.Geometryf("combine",
				"layer %q is not aligned with layer %q", l.Factor, layers[0].Factor)
		}
	}

	out := domain.NewRaster(ref.Grid, domain.ClassNoData)
	n := len(out.Data.Elements)
	for i := 0; i < n; i++ {
		sum := 0.0
		valid := true
		for _, l := range layers {
			v := l.Raster.Data.Elements[i]
			if l.Raster.IsNoData(v) {
				valid = false
				break
			}
			sum += v * weights[l.Factor]
		}
		if valid {
			out.Data.Elements[i] = sum
		}
	}
	return out, nil
}

// Stats returns the minimum and maximum valid cell values, with ok false when
// the raster holds no valid cells.
func Stats(r *domain.Raster) (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range r.Data.Elements {
		if r.IsNoData(v) {
			continue
		}
		min, max = math.Min(min, v), math.Max(max, v)
		ok = true
	}
	return min, max, ok
}
