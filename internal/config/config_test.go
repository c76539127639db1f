package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/domain"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/geometry"
)

const validYAML = `
target:
  proj4: "+proj=utm +zone=45 +datum=WGS84 +units=m +no_defs"
  cell_size: 30
paths:
  boundary: data/boundary.shp
  reference_raster: data/reference.nc
  processed_dir: out/processed
  output_dir: out/final
factors:
  - name: slope
    path: data/slope.nc
    kind: continuous
    weight: 0.6
    rules:
      - {max: 15, class: 1}
      - {min: 15, max: 30, class: 2}
      - {min: 30, class: 3}
  - name: geology
    path: data/geology.nc
    kind: categorical
    weight: 0.4
rainfall:
  forecast_csv: data/forecast.csv
  recorded_csv: data/recorded.csv
  rules:
    - {max: 20, class: 1}
    - {min: 20, class: 2}
  default_class: 1
  fusion_weights:
    base: 0.88
    recorded: 0.02
    forecast: 0.1
`

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lsmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func loadValid(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	return cfg
}

func TestLoad(t *testing.T) {
	cfg := loadValid(t)

	assert.Equal(t, 30.0, cfg.Target.CellSize)
	require.Len(t, cfg.Factors, 2)
	assert.Equal(t, "slope", cfg.Factors[0].Name)
	assert.Equal(t, 0.6, cfg.Factors[0].Weight)

	t.Run("defaults applied", func(t *testing.T) {
		assert.Equal(t, 1, cfg.Workers)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, 2.0, cfg.Rainfall.IDWPower)
		// Resample defaults follow the factor kind.
		assert.Equal(t, string(geometry.Bilinear), cfg.Factors[0].Resample)
		assert.Equal(t, string(geometry.Nearest), cfg.Factors[1].Resample)
	})

	t.Run("env overrides log settings", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("LOG_FORMAT", "text")
		cfg, err := Load(writeConfig(t, validYAML))
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "text", cfg.LogFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "target: ["))
		var cerr *domain.ConfigError
		assert.ErrorAs(t, err, &cerr)
	})
}

func TestValidate_FactorWeights(t *testing.T) {
	run := func(t *testing.T, slopeW, geoW float64) error {
		cfg := loadValid(t)
		cfg.Factors[0].Weight = slopeW
		cfg.Factors[1].Weight = geoW
		return cfg.Validate()
	}

	t.Run("sum below one rejected", func(t *testing.T) {
		assert.Error(t, run(t, 0.3, 0.2))
	})

	t.Run("sum above one rejected", func(t *testing.T) {
		assert.Error(t, run(t, 1.0, 0.5))
	})

	t.Run("within tolerance accepted", func(t *testing.T) {
		assert.NoError(t, run(t, 0.6, 0.3999999))
	})

	t.Run("negative weight rejected", func(t *testing.T) {
		assert.Error(t, run(t, 1.4, -0.4))
	})
}

func TestValidate_Errors(t *testing.T) {
	t.Run("missing target proj4", func(t *testing.T) {
		cfg := loadValid(t)
		cfg.Target.Proj4 = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive cell size", func(t *testing.T) {
		cfg := loadValid(t)
		cfg.Target.CellSize = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("no factors", func(t *testing.T) {
		cfg := loadValid(t)
		cfg.Factors = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("duplicate factor names", func(t *testing.T) {
		cfg := loadValid(t)
		cfg.Factors[1].Name = cfg.Factors[0].Name
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown kind", func(t *testing.T) {
		cfg := loadValid(t)
		cfg.Factors[0].Kind = "ordinal"
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown resample method", func(t *testing.T) {
		cfg := loadValid(t)
		cfg.Factors[0].Resample = "lanczos"
		assert.Error(t, cfg.Validate())
	})

	t.Run("interpolating method on categorical factor", func(t *testing.T) {
		cfg := loadValid(t)
		cfg.Factors[1].Resample = string(geometry.Bilinear)
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing rainfall csv", func(t *testing.T) {
		cfg := loadValid(t)
		cfg.Rainfall.ForecastCSV = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing fusion weights", func(t *testing.T) {
		cfg := loadValid(t)
		cfg.Rainfall.FusionWeights = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("misspelled fusion key", func(t *testing.T) {
		cfg := loadValid(t)
		cfg.Rainfall.FusionWeights = map[string]float64{
			"base": 0.88, "recorded": 0.02, "forcast": 0.1,
		}
		err := cfg.Validate()
		var cerr *domain.ConfigError
		require.ErrorAs(t, err, &cerr)
		assert.Contains(t, cerr.Error(), "forcast")
	})

	t.Run("extra fusion key", func(t *testing.T) {
		// Sums to one but carries a fourth key; must fail at load, not
		// underweight every day's overlay.
		cfg := loadValid(t)
		cfg.Rainfall.FusionWeights = map[string]float64{
			"base": 0.8, "recorded": 0.02, "forecast": 0.1, "observed": 0.08,
		}
		assert.Error(t, cfg.Validate())
	})
}

func TestRule_PredicateShapes(t *testing.T) {
	five := 5.0

	t.Run("range", func(t *testing.T) {
		p, err := Rule{Min: &five, Class: 1}.predicate()
		require.NoError(t, err)
		assert.Equal(t, domain.PredicateRange, p.Kind)
	})

	t.Run("equals", func(t *testing.T) {
		p, err := Rule{Equals: &five, Class: 1}.predicate()
		require.NoError(t, err)
		assert.Equal(t, domain.PredicateEquals, p.Kind)
	})

	t.Run("in", func(t *testing.T) {
		p, err := Rule{In: []float64{1, 2}, Class: 1}.predicate()
		require.NoError(t, err)
		assert.Equal(t, domain.PredicateIn, p.Kind)
	})

	t.Run("no shape rejected", func(t *testing.T) {
		_, err := Rule{Class: 1}.predicate()
		assert.Error(t, err)
	})

	t.Run("mixed shapes rejected", func(t *testing.T) {
		_, err := Rule{Min: &five, Equals: &five, Class: 1}.predicate()
		assert.Error(t, err)
	})
}

func TestFactor_RuleSet(t *testing.T) {
	cfg := loadValid(t)

	t.Run("rules become a validated set", func(t *testing.T) {
		rs, err := cfg.Factors[0].RuleSet()
		require.NoError(t, err)
		require.NotNil(t, rs)
		assert.Equal(t, 1, rs.Classify(10))
		assert.Equal(t, 3, rs.Classify(45))
		assert.Equal(t, int(domain.ClassNoData), rs.DefaultClass)
	})

	t.Run("no rules means passthrough", func(t *testing.T) {
		rs, err := cfg.Factors[1].RuleSet()
		require.NoError(t, err)
		assert.Nil(t, rs)
	})

	t.Run("configurable default class", func(t *testing.T) {
		def := 2
		f := cfg.Factors[0]
		f.DefaultClass = &def
		rs, err := f.RuleSet()
		require.NoError(t, err)
		assert.Equal(t, 2, rs.DefaultClass)
	})
}

func TestRainfallRuleSet_DefaultClass(t *testing.T) {
	cfg := loadValid(t)

	rs, err := cfg.RainfallRuleSet()
	require.NoError(t, err)
	require.NotNil(t, rs)
	assert.Equal(t, 1, rs.DefaultClass)
}

func TestPathHelpers(t *testing.T) {
	cfg := loadValid(t)

	assert.Equal(t, filepath.Join("out", "processed", "csv", "forecast_1_rainfall.csv"),
		cfg.ProcessedPath("csv", "forecast_1_rainfall.csv"))
	assert.Equal(t, filepath.Join("out", "final", "day.nc"), cfg.OutputPath("day.nc"))
}
