// Package classify maps raster cell values to discrete susceptibility
// classes via ordered rule sets.
package classify

import (
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/domain"
)

// Apply classifies every cell of a raster against the rule set and returns a
// new class-id raster on the same grid, with the standard class no-data
// sentinel. Classification is pure and deterministic: identical inputs yield
// identical outputs.
//
// No-data and NaN cells short-circuit to no-data before any predicate runs,
// so rules never see invalid values. A nil rule set passes values through
// unchanged apart from the no-data remapping, which is how continuous
// rainfall rasters travel the same path as classified factors.
func Apply(r *domain.Raster, rules *domain.RuleSet) (*domain.Raster, error) {
	if rules != nil {
		if err := rules.Validate(); err != nil {
			return nil, err
		}
	}

	out := domain.NewRaster(r.Grid, domain.ClassNoData)
	for i, v := range r.Data.Elements {
		if r.IsNoData(v) {
			continue // already ClassNoData
		}
		if rules == nil {
			out.Data.Elements[i] = v
			continue
		}
		out.Data.Elements[i] = float64(rules.Classify(v))
	}
	return out, nil
}
