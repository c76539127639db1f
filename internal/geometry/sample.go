package geometry

import (
	"math"
	"sort"

	"github.com/ctessum/geom/proj"

	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/domain"
)

// sampleNearest returns the value of the source cell containing (x, y), or
// no-data when the point is off the grid.
func sampleNearest(r *domain.Raster, x, y float64) float64 {
	row, col, ok := r.Grid.CellAt(x, y)
	if !ok {
		return r.NoData
	}
	return r.Value(row, col)
}

// fractionalCell converts map coordinates to continuous cell-center space,
// where integer values land exactly on cell centers.
func fractionalCell(g domain.GridSpec, x, y float64) (fr, fc float64) {
	fc = (x-g.OriginX)/g.CellWidth - 0.5
	fr = (g.OriginY-y)/g.CellHeight - 0.5
	return fr, fc
}

// sampleBilinear interpolates between the four cell centers surrounding
// (x, y). Any no-data neighbor poisons the result so invalid measurements
// never leak into interpolated values.
func sampleBilinear(r *domain.Raster, x, y float64) float64 {
	fr, fc := fractionalCell(r.Grid, x, y)
	r0, c0 := int(math.Floor(fr)), int(math.Floor(fc))
	if r0 < 0 || c0 < 0 || r0+1 >= r.Grid.Height || c0+1 >= r.Grid.Width {
		return sampleNearest(r, x, y)
	}
	dr, dc := fr-float64(r0), fc-float64(c0)

	v00 := r.Value(r0, c0)
	v01 := r.Value(r0, c0+1)
	v10 := r.Value(r0+1, c0)
	v11 := r.Value(r0+1, c0+1)
	if r.IsNoData(v00) || r.IsNoData(v01) || r.IsNoData(v10) || r.IsNoData(v11) {
		return r.NoData
	}

	top := v00*(1-dc) + v01*dc
	bottom := v10*(1-dc) + v11*dc
	return top*(1-dr) + bottom*dr
}

// cubicKernel is the Catmull-Rom interpolation weight for offset t in [-2, 2].
func cubicKernel(t float64) float64 {
	t = math.Abs(t)
	switch {
	case t <= 1:
		return 1.5*t*t*t - 2.5*t*t + 1
	case t < 2:
		return -0.5*t*t*t + 2.5*t*t - 4*t + 2
	default:
		return 0
	}
}

// sampleCubic interpolates over the 4x4 neighborhood of (x, y) with a
// Catmull-Rom kernel, falling back to bilinear near the grid border. No-data
// anywhere in the window poisons the result.
func sampleCubic(r *domain.Raster, x, y float64) float64 {
	fr, fc := fractionalCell(r.Grid, x, y)
	r0, c0 := int(math.Floor(fr)), int(math.Floor(fc))
	if r0-1 < 0 || c0-1 < 0 || r0+2 >= r.Grid.Height || c0+2 >= r.Grid.Width {
		return sampleBilinear(r, x, y)
	}
	dr, dc := fr-float64(r0), fc-float64(c0)

	var sum, weight float64
	for i := -1; i <= 2; i++ {
		wr := cubicKernel(float64(i) - dr)
		for j := -1; j <= 2; j++ {
			v := r.Value(r0+i, c0+j)
			if r.IsNoData(v) {
				return r.NoData
			}
			w := wr * cubicKernel(float64(j)-dc)
			sum += v * w
			weight += w
		}
	}
	if weight == 0 {
		return r.NoData
	}
	return sum / weight
}

// sampleMode returns the most frequent valid source value within the
// footprint of target cell (row, col), for categorical rasters warped to a
// coarser grid. Ties break toward the smallest value so output is
// deterministic. An empty footprint degrades to nearest-neighbor at the cell
// center.
func sampleMode(r *domain.Raster, target domain.GridSpec, row, col int, inverse proj.Transformer) float64 {
	corners := [4][2]float64{
		{target.OriginX + float64(col)*target.CellWidth, target.OriginY - float64(row)*target.CellHeight},
		{target.OriginX + float64(col+1)*target.CellWidth, target.OriginY - float64(row)*target.CellHeight},
		{target.OriginX + float64(col)*target.CellWidth, target.OriginY - float64(row+1)*target.CellHeight},
		{target.OriginX + float64(col+1)*target.CellWidth, target.OriginY - float64(row+1)*target.CellHeight},
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x, y := c[0], c[1]
		if inverse != nil {
			var err error
			x, y, err = inverse(c[0], c[1])
			if err != nil {
				return r.NoData
			}
		}
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}

	colMin := clampInt(int(math.Floor((minX-r.Grid.OriginX)/r.Grid.CellWidth)), 0, r.Grid.Width-1)
	colMax := clampInt(int(math.Ceil((maxX-r.Grid.OriginX)/r.Grid.CellWidth))-1, 0, r.Grid.Width-1)
	rowMin := clampInt(int(math.Floor((r.Grid.OriginY-maxY)/r.Grid.CellHeight)), 0, r.Grid.Height-1)
	rowMax := clampInt(int(math.Ceil((r.Grid.OriginY-minY)/r.Grid.CellHeight))-1, 0, r.Grid.Height-1)

	counts := make(map[float64]int)
	for sr := rowMin; sr <= rowMax; sr++ {
		for sc := colMin; sc <= colMax; sc++ {
			v := r.Value(sr, sc)
			if r.IsNoData(v) {
				continue
			}
			counts[v]++
		}
	}
	if len(counts) == 0 {
		centerX, centerY := (minX+maxX)/2, (minY+maxY)/2
		return sampleNearest(r, centerX, centerY)
	}

	values := make([]float64, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Float64s(values)
	best, bestCount := values[0], counts[values[0]]
	for _, v := range values[1:] {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}
