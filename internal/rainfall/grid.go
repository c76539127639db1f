package rainfall

import (
	"math"

	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/domain"
)

// DefaultIDWPower is the inverse-distance exponent used when the
// configuration does not override it.
const DefaultIDWPower = 2.0

// coincidentDistance is the squared distance below which a cell center is
// considered to sit on a station and takes its value exactly.
const coincidentDistance = 1e-12

// GridIDW interpolates station rainfall onto the reference grid by
// inverse-distance weighting: each cell gets Σ(z_i/d_i^p) / Σ(1/d_i^p) over
// all stations. Station coordinates must be in the reference grid's CRS
// (x = longitude, y = latitude for geographic grids). The resulting raster is
// continuous, with the continuous no-data sentinel, ready for the geometry
// adapter and classifier.
func GridIDW(t *Table, ref domain.GridSpec, power float64) (*domain.Raster, error) {
	if len(t.Records) == 0 {
		return nil, domain.DataFormatf("cannot grid an empty rainfall table")
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if power <= 0 {
		power = DefaultIDWPower
	}

	out := domain.NewRaster(ref, domain.ContinuousNoData)
	for row := 0; row < ref.Height; row++ {
		for col := 0; col < ref.Width; col++ {
			center := ref.CellCenter(row, col)
			var num, den float64
			exact := false
			for _, rec := range t.Records {
				dx := center.X - rec.Lon
				dy := center.Y - rec.Lat
				d2 := dx*dx + dy*dy
				if d2 < coincidentDistance {
					out.SetValue(row, col, rec.Rainfall)
					exact = true
					break
				}
				w := 1 / math.Pow(d2, power/2)
				num += w * rec.Rainfall
				den += w
			}
			if !exact && den > 0 {
				out.SetValue(row, col, num/den)
			}
		}
	}
	return out, nil
}
