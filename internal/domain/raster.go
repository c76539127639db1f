package domain

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// Raster no-data sentinels, matching the values burned into the source data:
// class rasters use -128, continuous rasters use -9999.
const (
	ClassNoData      = -128.0
	ContinuousNoData = -9999.0
)

// gridTolerance is the maximum difference, in map units, below which two grid
// origins or cell sizes are considered identical.
const gridTolerance = 1e-9

// GridSpec describes the georeferencing of a raster: coordinate reference
// system (as a PROJ.4 string), origin at the north-west corner, cell size,
// and pixel dimensions. Rows advance southward, columns eastward.
type GridSpec struct {
	Proj4      string  `yaml:"proj4"`
	OriginX    float64 `yaml:"origin_x"` // west edge
	OriginY    float64 `yaml:"origin_y"` // north edge
	CellWidth  float64 `yaml:"cell_width"`
	CellHeight float64 `yaml:"cell_height"`
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
}

// Bounds returns the rectangular extent of the grid in its own CRS.
func (g GridSpec) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: g.OriginX, Y: g.OriginY - g.CellHeight*float64(g.Height)},
		Max: geom.Point{X: g.OriginX + g.CellWidth*float64(g.Width), Y: g.OriginY},
	}
}

// CellCenter returns the map coordinate at the center of cell (row, col).
func (g GridSpec) CellCenter(row, col int) geom.Point {
	return geom.Point{
		X: g.OriginX + (float64(col)+0.5)*g.CellWidth,
		Y: g.OriginY - (float64(row)+0.5)*g.CellHeight,
	}
}

// CellAt returns the grid cell containing map coordinate (x, y). ok is false
// when the coordinate falls outside the grid extent.
func (g GridSpec) CellAt(x, y float64) (row, col int, ok bool) {
	col = int(math.Floor((x - g.OriginX) / g.CellWidth))
	row = int(math.Floor((g.OriginY - y) / g.CellHeight))
	if col < 0 || col >= g.Width || row < 0 || row >= g.Height {
		return 0, 0, false
	}
	return row, col, true
}

// Equal reports whether two grids share CRS, origin, cell size, and
// dimensions, i.e. whether rasters on them are aligned cell-for-cell.
func (g GridSpec) Equal(o GridSpec) bool {
	return g.Proj4 == o.Proj4 &&
		g.Width == o.Width && g.Height == o.Height &&
		math.Abs(g.OriginX-o.OriginX) < gridTolerance &&
		math.Abs(g.OriginY-o.OriginY) < gridTolerance &&
		math.Abs(g.CellWidth-o.CellWidth) < gridTolerance &&
		math.Abs(g.CellHeight-o.CellHeight) < gridTolerance
}

// Validate checks that the grid is well-formed.
func (g GridSpec) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return Geometryf("grid", "dimensions must be positive, got %dx%d", g.Width, g.Height)
	}
	if g.CellWidth <= 0 || g.CellHeight <= 0 {
		return Geometryf("grid", "cell size must be positive, got %gx%g", g.CellWidth, g.CellHeight)
	}
	return nil
}

// Raster is a single-band grid of float64 cell values with georeferencing and
// an explicit no-data sentinel. The backing array is dense, row-major.
type Raster struct {
	Grid   GridSpec
	NoData float64
	Data   *sparse.DenseArray
}

// NewRaster allocates a raster on the given grid with every cell set to the
// no-data sentinel.
func NewRaster(grid GridSpec, noData float64) *Raster {
	data := sparse.ZerosDense(grid.Height, grid.Width)
	for i := range data.Elements {
		data.Elements[i] = noData
	}
	return &Raster{Grid: grid, NoData: noData, Data: data}
}

// Value returns the cell value at (row, col).
func (r *Raster) Value(row, col int) float64 {
	return r.Data.Elements[row*r.Grid.Width+col]
}

// SetValue writes the cell value at (row, col).
func (r *Raster) SetValue(row, col int, v float64) {
	r.Data.Elements[row*r.Grid.Width+col] = v
}

// IsNoData reports whether v is this raster's no-data sentinel. NaN values
// are always treated as no-data so they never reach rule predicates.
func (r *Raster) IsNoData(v float64) bool {
	return v == r.NoData || math.IsNaN(v)
}

// Aligned reports whether r and o share an identical grid, the precondition
// for any per-cell combination.
func (r *Raster) Aligned(o *Raster) bool {
	return r.Grid.Equal(o.Grid)
}

// Clone returns a deep copy of the raster.
func (r *Raster) Clone() *Raster {
	out := NewRaster(r.Grid, r.NoData)
	copy(out.Data.Elements, r.Data.Elements)
	return out
}
