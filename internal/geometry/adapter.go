// Package geometry aligns heterogeneous rasters onto a common grid:
// reprojection between coordinate reference systems, resampling to a target
// cell size, and clipping to a boundary polygon. After adaptation every
// raster used together shares CRS, cell size, and a zero grid offset relative
// to the chosen reference layer.
package geometry

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"

	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/domain"
)

// Kind declares whether a raster carries categorical class values or
// continuous measurements. Interpolating resamplers invent values that do not
// exist in categorical data, so the adapter refuses the combination.
type Kind string

const (
	Categorical Kind = "categorical"
	Continuous  Kind = "continuous"
)

// Method selects the resampling algorithm used when a warp maps target cells
// back onto the source grid.
type Method string

const (
	Nearest  Method = "nearest"
	Bilinear Method = "bilinear"
	Cubic    Method = "cubic"
	Mode     Method = "mode"
)

// Valid reports whether the method is one of the supported algorithms.
func (m Method) Valid() bool {
	switch m {
	case Nearest, Bilinear, Cubic, Mode:
		return true
	}
	return false
}

// CheckMethod rejects unknown methods, interpolating methods on categorical
// rasters, and order-statistic methods on continuous ones.
func CheckMethod(m Method, k Kind) error {
	if !m.Valid() {
		return domain.Configf("unknown resampling method %q", m)
	}
	switch k {
	case Categorical:
		if m == Bilinear || m == Cubic {
			return domain.Configf("method %q interpolates and cannot be used on categorical rasters", m)
		}
	case Continuous:
		if m == Mode {
			return domain.Configf("method %q is for categorical rasters only", m)
		}
	default:
		return domain.Configf("unknown raster kind %q", k)
	}
	return nil
}

// edgeSamples is the number of points sampled along each raster edge when
// estimating the reprojected extent. Corners alone under-estimate bounds for
// projections that curve grid edges.
const edgeSamples = 21

// Reproject warps a raster into the target CRS, choosing a target grid that
// covers the reprojected extent at an equivalent resolution. Fails with a
// GeometryError when the source CRS is undefined or the transform between the
// two systems cannot be built.
func Reproject(r *domain.Raster, targetProj4 string, method Method, kind Kind) (*domain.Raster, error) {
	if err := CheckMethod(method, kind); err != nil {
		return nil, err
	}
	if r.Grid.Proj4 == "" {
		return nil, domain.Geometryf("reproject", "source CRS is undefined")
	}
	if targetProj4 == "" {
		return nil, domain.Geometryf("reproject", "target CRS is undefined")
	}
	if r.Grid.Proj4 == targetProj4 {
		return r.Clone(), nil
	}

	srcSR, err := proj.Parse(r.Grid.Proj4)
	if err != nil {
		return nil, &domain.GeometryError{Op: "reproject", Msg: "parsing source CRS", Err: err}
	}
	dstSR, err := proj.Parse(targetProj4)
	if err != nil {
		return nil, &domain.GeometryError{Op: "reproject", Msg: "parsing target CRS", Err: err}
	}
	forward, err := srcSR.NewTransform(dstSR)
	if err != nil {
		return nil, &domain.GeometryError{Op: "reproject", Msg: "building forward transform", Err: err}
	}

	bounds, err := projectedBounds(r.Grid, forward)
	if err != nil {
		return nil, &domain.GeometryError{Op: "reproject", Msg: "projecting source extent", Err: err}
	}

	// Keep roughly the source pixel count so reprojection neither invents
	// nor discards resolution; Resample handles deliberate size changes.
	target := domain.GridSpec{
		Proj4:      targetProj4,
		OriginX:    bounds.Min.X,
		OriginY:    bounds.Max.Y,
		CellWidth:  (bounds.Max.X - bounds.Min.X) / float64(r.Grid.Width),
		CellHeight: (bounds.Max.Y - bounds.Min.Y) / float64(r.Grid.Height),
		Width:      r.Grid.Width,
		Height:     r.Grid.Height,
	}
	return Warp(r, target, method)
}

// Resample regrids a raster to the given cell size within its own CRS,
// keeping the origin fixed so grids derived from the same origin stay
// offset-aligned.
func Resample(r *domain.Raster, cellWidth, cellHeight float64, method Method, kind Kind) (*domain.Raster, error) {
	if err := CheckMethod(method, kind); err != nil {
		return nil, err
	}
	if cellWidth <= 0 || cellHeight <= 0 {
		return nil, domain.Geometryf("resample", "cell size must be positive, got %gx%g", cellWidth, cellHeight)
	}
	extentW := r.Grid.CellWidth * float64(r.Grid.Width)
	extentH := r.Grid.CellHeight * float64(r.Grid.Height)
	target := domain.GridSpec{
		Proj4:      r.Grid.Proj4,
		OriginX:    r.Grid.OriginX,
		OriginY:    r.Grid.OriginY,
		CellWidth:  cellWidth,
		CellHeight: cellHeight,
		Width:      int(math.Ceil(extentW/cellWidth - 1e-9)),
		Height:     int(math.Ceil(extentH/cellHeight - 1e-9)),
	}
	return Warp(r, target, method)
}

// Clip masks a raster to the cells whose centers fall inside the boundary
// polygon and crops the grid to the boundary's extent, snapped outward to the
// source grid lines so cell alignment is preserved. The boundary must be in
// the raster's CRS. Fails with a GeometryError when the boundary does not
// intersect the raster extent.
func Clip(r *domain.Raster, boundary geom.Polygonal) (*domain.Raster, error) {
	bb := boundary.Bounds()
	rb := r.Grid.Bounds()
	if bb.Min.X >= rb.Max.X || bb.Max.X <= rb.Min.X || bb.Min.Y >= rb.Max.Y || bb.Max.Y <= rb.Min.Y {
		return nil, domain.Geometryf("clip", "boundary does not intersect raster extent")
	}

	// Crop window in source cell indices, snapped outward.
	colMin := clampInt(int(math.Floor((bb.Min.X-r.Grid.OriginX)/r.Grid.CellWidth)), 0, r.Grid.Width-1)
	colMax := clampInt(int(math.Ceil((bb.Max.X-r.Grid.OriginX)/r.Grid.CellWidth))-1, 0, r.Grid.Width-1)
	rowMin := clampInt(int(math.Floor((r.Grid.OriginY-bb.Max.Y)/r.Grid.CellHeight)), 0, r.Grid.Height-1)
	rowMax := clampInt(int(math.Ceil((r.Grid.OriginY-bb.Min.Y)/r.Grid.CellHeight))-1, 0, r.Grid.Height-1)

	target := domain.GridSpec{
		Proj4:      r.Grid.Proj4,
		OriginX:    r.Grid.OriginX + float64(colMin)*r.Grid.CellWidth,
		OriginY:    r.Grid.OriginY - float64(rowMin)*r.Grid.CellHeight,
		CellWidth:  r.Grid.CellWidth,
		CellHeight: r.Grid.CellHeight,
		Width:      colMax - colMin + 1,
		Height:     rowMax - rowMin + 1,
	}

	out := domain.NewRaster(target, r.NoData)
	hit := false
	for row := 0; row < target.Height; row++ {
		for col := 0; col < target.Width; col++ {
			center := target.CellCenter(row, col)
			if center.Within(boundary) == geom.Outside {
				continue
			}
			v := r.Value(rowMin+row, colMin+col)
			out.SetValue(row, col, v)
			if !r.IsNoData(v) {
				hit = true
			}
		}
	}
	if !hit {
		return nil, domain.Geometryf("clip", "no valid cells inside boundary")
	}
	return out, nil
}

// AlignTo warps a raster onto exactly the reference grid, composing
// reprojection and resampling in a single pass. The result is aligned
// cell-for-cell with any other raster adapted to the same reference.
func AlignTo(r *domain.Raster, ref domain.GridSpec, method Method, kind Kind) (*domain.Raster, error) {
	if err := CheckMethod(method, kind); err != nil {
		return nil, err
	}
	if ref.Proj4 == "" {
		return nil, domain.Geometryf("align", "reference CRS is undefined")
	}
	if r.Grid.Proj4 == "" {
		return nil, domain.Geometryf("align", "source CRS is undefined")
	}
	return Warp(r, ref, method)
}

// Warp resamples a raster onto an arbitrary target grid by inverse mapping:
// each target cell center is transformed back into source coordinates and the
// source is sampled there with the requested method. Cells falling outside
// the source extent become no-data.
func Warp(r *domain.Raster, target domain.GridSpec, method Method) (*domain.Raster, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	inverse, err := inverseTransform(target.Proj4, r.Grid.Proj4)
	if err != nil {
		return nil, err
	}

	out := domain.NewRaster(target, r.NoData)
	for row := 0; row < target.Height; row++ {
		for col := 0; col < target.Width; col++ {
			center := target.CellCenter(row, col)
			x, y := center.X, center.Y
			if inverse != nil {
				x, y, err = inverse(center.X, center.Y)
				if err != nil {
					// Points outside the valid projection area stay no-data.
					continue
				}
			}
			var v float64
			switch method {
			case Nearest:
				v = sampleNearest(r, x, y)
			case Bilinear:
				v = sampleBilinear(r, x, y)
			case Cubic:
				v = sampleCubic(r, x, y)
			case Mode:
				v = sampleMode(r, target, row, col, inverse)
			default:
				return nil, domain.Configf("unknown resampling method %q", method)
			}
			out.SetValue(row, col, v)
		}
	}
	return out, nil
}

// inverseTransform builds the target-to-source coordinate transform, or nil
// when both grids share a CRS.
func inverseTransform(fromProj4, toProj4 string) (proj.Transformer, error) {
	if fromProj4 == toProj4 {
		return nil, nil
	}
	fromSR, err := proj.Parse(fromProj4)
	if err != nil {
		return nil, &domain.GeometryError{Op: "warp", Msg: "parsing target CRS", Err: err}
	}
	toSR, err := proj.Parse(toProj4)
	if err != nil {
		return nil, &domain.GeometryError{Op: "warp", Msg: "parsing source CRS", Err: err}
	}
	t, err := fromSR.NewTransform(toSR)
	if err != nil {
		return nil, &domain.GeometryError{Op: "warp", Msg: "building inverse transform", Err: err}
	}
	return t, nil
}

// projectedBounds transforms samples along the grid's edges and returns their
// bounding box in the target CRS.
func projectedBounds(g domain.GridSpec, t proj.Transformer) (*geom.Bounds, error) {
	b := g.Bounds()
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := 0; i < edgeSamples; i++ {
		f := float64(i) / float64(edgeSamples-1)
		pts := [4]geom.Point{
			{X: b.Min.X + f*(b.Max.X-b.Min.X), Y: b.Min.Y}, // south edge
			{X: b.Min.X + f*(b.Max.X-b.Min.X), Y: b.Max.Y}, // north edge
			{X: b.Min.X, Y: b.Min.Y + f*(b.Max.Y-b.Min.Y)}, // west edge
			{X: b.Max.X, Y: b.Min.Y + f*(b.Max.Y-b.Min.Y)}, // east edge
		}
		for _, p := range pts {
			x, y, err := t(p.X, p.Y)
			if err != nil {
				return nil, err
			}
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}
	}
	if maxX <= minX || maxY <= minY {
		return nil, domain.Geometryf("reproject", "transform collapses source extent")
	}
	return &geom.Bounds{
		Min: geom.Point{X: minX, Y: minY},
		Max: geom.Point{X: maxX, Y: maxY},
	}, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
