// Package config loads and validates the run configuration: factor layers
// with their classification rule sets and weights, rainfall inputs, target
// grid, and output locations. Configuration is supplied once at startup and
// immutable for the run; every invariant that can be checked up front is
// checked here so violations abort before any processing.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/domain"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/geometry"
	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/rainfall"
)

// Config is the full run configuration, read from one YAML file.
type Config struct {
	Target     Target   `yaml:"target"`
	Paths      Paths    `yaml:"paths"`
	Factors    []Factor `yaml:"factors"`
	Rainfall   Rainfall `yaml:"rainfall"`
	Workers    int      `yaml:"workers"`
	Force      bool     `yaml:"force"`       // recompute artifacts that already exist
	StrictDays bool     `yaml:"strict_days"` // any failed day makes the run exit nonzero
	HTTPAddr   string   `yaml:"http_addr"`   // optional /metrics listener; empty = disabled
	LogLevel   string   `yaml:"log_level"`
	LogFormat  string   `yaml:"log_format"`
}

// Target describes the common grid every layer is adapted to.
type Target struct {
	Proj4    string  `yaml:"proj4"`
	CellSize float64 `yaml:"cell_size"`
}

// Paths locates the input collaborators and the produced stores.
type Paths struct {
	Boundary        string `yaml:"boundary"`         // clip shapefile
	ReferenceRaster string `yaml:"reference_raster"` // grid template for rainfall rasterization
	ProcessedDir    string `yaml:"processed_dir"`
	OutputDir       string `yaml:"output_dir"`
}

// Factor is one static susceptibility factor: its source raster, value kind,
// resampling method, overlay weight, and classification rules.
type Factor struct {
	Name     string  `yaml:"name"`
	Path     string  `yaml:"path"`
	Kind     string  `yaml:"kind"`     // "continuous" or "categorical"
	Resample string  `yaml:"resample"` // nearest, bilinear, cubic, mode
	Weight   float64 `yaml:"weight"`
	Rules    []Rule  `yaml:"rules"`
	// DefaultClass is assigned to values no rule matches. Omitted, unmatched
	// values become no-data.
	DefaultClass *int `yaml:"default_class,omitempty"`
}

// Rule is the YAML form of one classification rule. Exactly one predicate
// shape applies per rule: min/max bounds (half-open range, either side
// omitted for unbounded), equals, or in.
type Rule struct {
	Min    *float64  `yaml:"min,omitempty"`
	Max    *float64  `yaml:"max,omitempty"`
	Equals *float64  `yaml:"equals,omitempty"`
	In     []float64 `yaml:"in,omitempty"`
	Class  int       `yaml:"class"`
}

// Rainfall configures the time-series inputs and the per-day fusion step.
type Rainfall struct {
	ForecastCSV   string             `yaml:"forecast_csv"`
	RecordedCSV   string             `yaml:"recorded_csv"`
	IDWPower      float64            `yaml:"idw_power"`
	Rules         []Rule             `yaml:"rules"`                   // optional; omitted = raw values pass through
	DefaultClass  *int               `yaml:"default_class,omitempty"` // see Factor.DefaultClass
	FusionWeights map[string]float64 `yaml:"fusion_weights"`          // keys: base, recorded, forecast
}

// Load reads, parses, and validates the configuration file. Environment
// variables LOG_LEVEL and LOG_FORMAT override their file counterparts.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, &domain.ConfigError{Msg: fmt.Sprintf("parsing %s: %v", path, err)}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.Rainfall.IDWPower == 0 {
		c.Rainfall.IDWPower = rainfall.DefaultIDWPower
	}
	for i := range c.Factors {
		if c.Factors[i].Resample != "" {
			continue
		}
		if geometry.Kind(c.Factors[i].Kind) == geometry.Categorical {
			c.Factors[i].Resample = string(geometry.Nearest)
		} else {
			c.Factors[i].Resample = string(geometry.Bilinear)
		}
	}
}

// Validate enforces every configuration invariant. All violations are
// ConfigErrors: fatal, reported before processing starts.
func (c *Config) Validate() error {
	if c.Target.Proj4 == "" {
		return domain.Configf("target.proj4 is required")
	}
	if c.Target.CellSize <= 0 {
		return domain.Configf("target.cell_size must be positive, got %g", c.Target.CellSize)
	}
	for _, p := range []struct{ name, v string }{
		{"paths.boundary", c.Paths.Boundary},
		{"paths.reference_raster", c.Paths.ReferenceRaster},
		{"paths.processed_dir", c.Paths.ProcessedDir},
		{"paths.output_dir", c.Paths.OutputDir},
	} {
		if p.v == "" {
			return domain.Configf("%s is required", p.name)
		}
	}
	if len(c.Factors) == 0 {
		return domain.Configf("at least one factor is required")
	}

	seen := make(map[string]bool, len(c.Factors))
	for _, f := range c.Factors {
		if f.Name == "" {
			return domain.Configf("factor with empty name")
		}
		if seen[f.Name] {
			return domain.Configf("duplicate factor %q", f.Name)
		}
		seen[f.Name] = true
		if f.Path == "" {
			return domain.Configf("factor %q: path is required", f.Name)
		}
		if _, err := f.kind(); err != nil {
			return err
		}
		if !geometry.Method(f.Resample).Valid() {
			return domain.Configf("factor %q: unknown resample method %q", f.Name, f.Resample)
		}
		if err := geometry.CheckMethod(f.Method(), f.GeometryKind()); err != nil {
			return fmt.Errorf("factor %q: %w", f.Name, err)
		}
		if _, err := f.RuleSet(); err != nil {
			return err
		}
	}

	// Validating constructors enforce the sums-to-one invariant once, here.
	if _, err := c.FactorWeights(); err != nil {
		return err
	}
	if _, err := c.FusionWeights(); err != nil {
		return err
	}
	if c.Rainfall.ForecastCSV == "" {
		return domain.Configf("rainfall.forecast_csv is required")
	}
	if c.Rainfall.RecordedCSV == "" {
		return domain.Configf("rainfall.recorded_csv is required")
	}
	if _, err := c.RainfallRuleSet(); err != nil {
		return err
	}
	return nil
}

func (f Factor) kind() (geometry.Kind, error) {
	switch geometry.Kind(f.Kind) {
	case geometry.Continuous, geometry.Categorical:
		return geometry.Kind(f.Kind), nil
	default:
		return "", domain.Configf("factor %q: kind must be continuous or categorical, got %q", f.Name, f.Kind)
	}
}

// GeometryKind returns the factor's raster kind.
func (f Factor) GeometryKind() geometry.Kind {
	k, _ := f.kind()
	return k
}

// Method returns the factor's resampling method.
func (f Factor) Method() geometry.Method {
	return geometry.Method(f.Resample)
}

// RuleSet converts the factor's YAML rules into a validated domain rule set.
// A factor with no rules (carried through unclassified, like the geology
// layer in the source data) returns nil.
func (f Factor) RuleSet() (*domain.RuleSet, error) {
	if len(f.Rules) == 0 {
		return nil, nil
	}
	return ruleSet(f.Name, f.Rules, f.DefaultClass)
}

// RainfallRuleSet returns the optional rainfall classification rules.
func (c *Config) RainfallRuleSet() (*domain.RuleSet, error) {
	if len(c.Rainfall.Rules) == 0 {
		return nil, nil
	}
	return ruleSet("rainfall", c.Rainfall.Rules, c.Rainfall.DefaultClass)
}

func ruleSet(factor string, rules []Rule, defaultClass *int) (*domain.RuleSet, error) {
	rs := &domain.RuleSet{Factor: factor, DefaultClass: int(domain.ClassNoData)}
	if defaultClass != nil {
		rs.DefaultClass = *defaultClass
	}
	for i, r := range rules {
		p, err := r.predicate()
		if err != nil {
			return nil, fmt.Errorf("factor %q, rule %d: %w", factor, i, err)
		}
		rs.Rules = append(rs.Rules, domain.Rule{Predicate: p, Class: r.Class})
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

func (r Rule) predicate() (domain.Predicate, error) {
	hasRange := r.Min != nil || r.Max != nil
	hasEquals := r.Equals != nil
	hasIn := len(r.In) > 0
	switch {
	case hasRange && !hasEquals && !hasIn:
		return domain.Predicate{Kind: domain.PredicateRange, Min: r.Min, Max: r.Max}, nil
	case hasEquals && !hasRange && !hasIn:
		return domain.Predicate{Kind: domain.PredicateEquals, Value: *r.Equals}, nil
	case hasIn && !hasRange && !hasEquals:
		return domain.Predicate{Kind: domain.PredicateIn, Values: r.In}, nil
	default:
		return domain.Predicate{}, domain.Configf("rule must set exactly one of min/max, equals, or in")
	}
}

// FactorWeights returns the validated static overlay weight vector.
func (c *Config) FactorWeights() (domain.WeightVector, error) {
	w := make(map[string]float64, len(c.Factors))
	for _, f := range c.Factors {
		w[f.Name] = f.Weight
	}
	return domain.NewWeightVector(w)
}

// FusionWeights returns the validated per-day fusion weight vector. The key
// set must be exactly "base", "recorded", and "forecast": a misspelled or
// extra key would otherwise pass the sum check and fail (or underweight)
// every forecast day at overlay time.
func (c *Config) FusionWeights() (domain.WeightVector, error) {
	if len(c.Rainfall.FusionWeights) == 0 {
		return nil, domain.Configf("rainfall.fusion_weights is required")
	}
	for k := range c.Rainfall.FusionWeights {
		switch k {
		case "base", "recorded", "forecast":
		default:
			return nil, domain.Configf("rainfall.fusion_weights: unknown key %q", k)
		}
	}
	for _, k := range []string{"base", "recorded", "forecast"} {
		if _, ok := c.Rainfall.FusionWeights[k]; !ok {
			return nil, domain.Configf("rainfall.fusion_weights: missing key %q", k)
		}
	}
	return domain.NewWeightVector(c.Rainfall.FusionWeights)
}

// ProcessedPath joins a file name into the processed (scratch) store.
func (c *Config) ProcessedPath(parts ...string) string {
	return filepath.Join(append([]string{c.Paths.ProcessedDir}, parts...)...)
}

// OutputPath joins a file name into the output store.
func (c *Config) OutputPath(parts ...string) string {
	return filepath.Join(append([]string{c.Paths.OutputDir}, parts...)...)
}
