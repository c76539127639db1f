package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/domain"
)

func grid(w, h int) domain.GridSpec {
	return domain.GridSpec{
		Proj4:      "+proj=utm +zone=45 +datum=WGS84 +units=m +no_defs",
		OriginX:    330000,
		OriginY:    3070000,
		CellWidth:  30,
		CellHeight: 30,
		Width:      w,
		Height:     h,
	}
}

func classRaster(g domain.GridSpec, values ...float64) *domain.Raster {
	r := domain.NewRaster(g, domain.ClassNoData)
	copy(r.Data.Elements, values)
	return r
}

func TestCombine(t *testing.T) {
	g := grid(1, 1)
	weights, err := domain.NewWeightVector(map[string]float64{"slope": 0.6, "soil": 0.4})
	require.NoError(t, err)

	out, err := Combine([]Layer{
		{Factor: "slope", Raster: classRaster(g, 2)},
		{Factor: "soil", Raster: classRaster(g, 1)},
	}, weights)
	require.NoError(t, err)

	// 2*0.6 + 1*0.4
	assert.InDelta(t, 1.6, out.Value(0, 0), 1e-12)
}

func TestCombine_NoDataIsAllOrNothing(t *testing.T) {
	g := grid(2, 1)
	weights, err := domain.NewWeightVector(map[string]float64{"a": 0.5, "b": 0.5})
	require.NoError(t, err)

	a := classRaster(g, 3, 3)
	b := classRaster(g, 1, domain.ClassNoData)

	out, err := Combine([]Layer{{Factor: "a", Raster: a}, {Factor: "b", Raster: b}}, weights)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, out.Value(0, 0), 1e-12)
	assert.Equal(t, domain.ClassNoData, out.Value(0, 1))
}

func TestCombine_RejectsMisalignedLayers(t *testing.T) {
	weights, err := domain.NewWeightVector(map[string]float64{"a": 0.5, "b": 0.5})
	require.NoError(t, err)

	shifted := grid(1, 1)
	shifted.OriginX += 30

	_, err = Combine([]Layer{
		{Factor: "a", Raster: classRaster(grid(1, 1), 1)},
		{Factor: "b", Raster: classRaster(shifted, 1)},
	}, weights)

	var gerr *domain.GeometryError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "combine", gerr.Op)
}

func TestCombine_RejectsBadWeights(t *testing.T) {
	g := grid(1, 1)
	layers := []Layer{{Factor: "a", Raster: classRaster(g, 1)}}

	t.Run("weights not summing to one", func(t *testing.T) {
		_, err := Combine(layers, domain.WeightVector{"a": 0.5})
		assert.Error(t, err)
	})

	t.Run("missing layer weight", func(t *testing.T) {
		_, err := Combine(layers, domain.WeightVector{"other": 1.0})
		assert.Error(t, err)
	})

	t.Run("weight key without a layer", func(t *testing.T) {
		// A misspelled fusion key sums to 1 but only 0.7 of it would apply,
		// underweighting every cell. Must be rejected, not silently dropped.
		out, err := Combine([]Layer{
			{Factor: "base", Raster: classRaster(g, 2)},
			{Factor: "recorded", Raster: classRaster(g, 2)},
		}, domain.WeightVector{"base": 0.5, "recorded": 0.2, "forcast": 0.3})

		var cerr *domain.ConfigError
		require.ErrorAs(t, err, &cerr)
		assert.Nil(t, out)
	})

	t.Run("no layers", func(t *testing.T) {
		_, err := Combine(nil, domain.WeightVector{"a": 1.0})
		assert.Error(t, err)
	})
}

func TestStats(t *testing.T) {
	g := grid(3, 1)
	r := classRaster(g, 2, domain.ClassNoData, 7)

	min, max, ok := Stats(r)
	require.True(t, ok)
	assert.Equal(t, 2.0, min)
	assert.Equal(t, 7.0, max)

	_, _, ok = Stats(domain.NewRaster(g, domain.ClassNoData))
	assert.False(t, ok)
}
