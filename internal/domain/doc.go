// Package domain holds the core types of the landslide susceptibility
// pipeline: rasters and their grids, classification rule sets, weight
// vectors, and the error taxonomy shared by every stage.
//
// # Rasters
//
// A Raster is a single-band, row-major grid of float64 values with an
// explicit no-data sentinel and a GridSpec describing its georeferencing
// (PROJ.4 CRS string, north-west origin, cell size, dimensions). Two rasters
// are "aligned" when their GridSpecs are equal; alignment is the precondition
// for any per-cell combination and is checked, not assumed.
//
// # No-data propagation
//
// A no-data cell in any input stays no-data in every derived output.
// Raster.IsNoData also treats NaN as no-data so invalid values never reach
// rule predicates or overlay arithmetic.
//
// # Classification rule sets
//
// A RuleSet is an ordered list of tagged predicates (range, equals,
// categorical set) mapping cell values to small integer class ids. Rules are
// evaluated in declaration order and the first match wins. Source data uses
// class ids 1-10 and the sentinel -128 for no-data.
//
// # Weight vectors
//
// A WeightVector maps factor names to overlay weights. Its "sums to 1"
// invariant is enforced once, in NewWeightVector, rather than rechecked at
// call sites; a violating sum is a ConfigError, never normalized away.
//
// # Error taxonomy
//
// ConfigError aborts a run before processing. GeometryError and
// DataFormatError are contained at the orchestrator boundary: the affected
// raster or forecast day is skipped and remaining units proceed.
package domain
