package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coralworks/reefplan/internal/allocator"
	"github.com/coralworks/reefplan/internal/benchmark"
	"github.com/coralworks/reefplan/internal/storage"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50

	defaultSurvivalRate = 0.60
	defaultTolerance    = 0.05
	defaultSiteAreaM2   = 100.0
	defaultSiteAspect   = 4.0
	defaultClusterSize  = 14
)

// RunDefaults holds the domain scalars used when a plan request omits them.
// The benchmark range and survival rate are externally published figures
// carried as configuration data.
type RunDefaults struct {
	SurvivalRate float64         `yaml:"survival_rate"`
	Tolerance    float64         `yaml:"tolerance"`
	Normalize    bool            `yaml:"normalize"`
	UseWeights   bool            `yaml:"use_weights"`
	SiteAreaM2   float64         `yaml:"site_area_m2"`
	SiteAspect   float64         `yaml:"site_aspect"`
	ClusterSize  int             `yaml:"cluster_size"`
	Benchmark    benchmark.Range `yaml:"benchmark"`
}

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string                 `yaml:"port"`
	InitialGrowthForms   []allocator.GrowthForm `yaml:"growth_forms"`
	Defaults             RunDefaults            `yaml:"run"`
	ShutdownGracePeriod  time.Duration          `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    time.Duration          `yaml:"read_header_timeout"`
	WriteTimeout         time.Duration          `yaml:"write_timeout"`
	IdleTimeout          time.Duration          `yaml:"idle_timeout"`
	EnableRequestLogging bool                   `yaml:"enable_request_logging"`
	RateLimitRPS         float64                `yaml:"-"`
	RateLimitBurst       int                    `yaml:"-"`
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string                 `yaml:"port"`
	GrowthForms          []allocator.GrowthForm `yaml:"growth_forms"`
	Run                  yamlRun                `yaml:"run"`
	ShutdownGracePeriod  string                 `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string                 `yaml:"read_header_timeout"`
	WriteTimeout         string                 `yaml:"write_timeout"`
	IdleTimeout          string                 `yaml:"idle_timeout"`
	EnableRequestLogging bool                   `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit          `yaml:"rate_limit"`
}

// yamlRun represents the run defaults section in YAML. Pointer fields
// distinguish "absent" from explicit zero values.
type yamlRun struct {
	SurvivalRate *float64 `yaml:"survival_rate"`
	Tolerance    *float64 `yaml:"tolerance"`
	Normalize    *bool    `yaml:"normalize"`
	UseWeights   *bool    `yaml:"use_weights"`
	SiteAreaM2   *float64 `yaml:"site_area_m2"`
	SiteAspect   *float64 `yaml:"site_aspect"`
	ClusterSize  *int     `yaml:"cluster_size"`
	BenchmarkLow *float64 `yaml:"benchmark_low"`
	BenchmarkHi  *float64 `yaml:"benchmark_high"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	SurvivalRate   *float64
	SiteAreaM2     *float64
	ClusterSize    *int
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Apply environment variables first so a YAML file can override them
	applyEnvConfig(&cfg)

	// Load from YAML file if specified
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		applyYAMLConfig(&cfg, yamlCfg)
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:               defaultPort,
		InitialGrowthForms: storage.DefaultGrowthForms(),
		Defaults: RunDefaults{
			SurvivalRate: defaultSurvivalRate,
			Tolerance:    defaultTolerance,
			Normalize:    true,
			UseWeights:   true,
			SiteAreaM2:   defaultSiteAreaM2,
			SiteAspect:   defaultSiteAspect,
			ClusterSize:  defaultClusterSize,
			Benchmark:    benchmark.DefaultRange(),
		},
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	if len(yamlCfg.GrowthForms) > 0 {
		cfg.InitialGrowthForms = yamlCfg.GrowthForms
	}

	if yamlCfg.Run.SurvivalRate != nil {
		cfg.Defaults.SurvivalRate = *yamlCfg.Run.SurvivalRate
	}
	if yamlCfg.Run.Tolerance != nil {
		cfg.Defaults.Tolerance = *yamlCfg.Run.Tolerance
	}
	if yamlCfg.Run.Normalize != nil {
		cfg.Defaults.Normalize = *yamlCfg.Run.Normalize
	}
	if yamlCfg.Run.UseWeights != nil {
		cfg.Defaults.UseWeights = *yamlCfg.Run.UseWeights
	}
	if yamlCfg.Run.SiteAreaM2 != nil {
		cfg.Defaults.SiteAreaM2 = *yamlCfg.Run.SiteAreaM2
	}
	if yamlCfg.Run.SiteAspect != nil {
		cfg.Defaults.SiteAspect = *yamlCfg.Run.SiteAspect
	}
	if yamlCfg.Run.ClusterSize != nil {
		cfg.Defaults.ClusterSize = *yamlCfg.Run.ClusterSize
	}
	if yamlCfg.Run.BenchmarkLow != nil {
		cfg.Defaults.Benchmark.Low = *yamlCfg.Run.BenchmarkLow
	}
	if yamlCfg.Run.BenchmarkHi != nil {
		cfg.Defaults.Benchmark.High = *yamlCfg.Run.BenchmarkHi
	}

	if yamlCfg.ShutdownGracePeriod != "" {
		if d, err := time.ParseDuration(yamlCfg.ShutdownGracePeriod); err == nil {
			cfg.ShutdownGracePeriod = d
		}
	}

	if yamlCfg.ReadHeaderTimeout != "" {
		if d, err := time.ParseDuration(yamlCfg.ReadHeaderTimeout); err == nil {
			cfg.ReadHeaderTimeout = d
		}
	}

	if yamlCfg.WriteTimeout != "" {
		if d, err := time.ParseDuration(yamlCfg.WriteTimeout); err == nil {
			cfg.WriteTimeout = d
		}
	}

	if yamlCfg.IdleTimeout != "" {
		if d, err := time.ParseDuration(yamlCfg.IdleTimeout); err == nil {
			cfg.IdleTimeout = d
		}
	}

	cfg.EnableRequestLogging = yamlCfg.EnableRequestLogging

	if yamlCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = yamlCfg.RateLimit.Burst
	}
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if raw := strings.TrimSpace(os.Getenv("SURVIVAL_RATE")); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 && value <= 1 {
			cfg.Defaults.SurvivalRate = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("SITE_AREA_M2")); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			cfg.Defaults.SiteAreaM2 = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("CLUSTER_SIZE")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 1 {
			cfg.Defaults.ClusterSize = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("BENCHMARK_RANGE")); raw != "" {
		if r, err := parseBenchmarkRange(raw); err == nil {
			cfg.Defaults.Benchmark = r
		}
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.SurvivalRate != nil {
		cfg.Defaults.SurvivalRate = *overrides.SurvivalRate
	}

	if overrides.SiteAreaM2 != nil {
		cfg.Defaults.SiteAreaM2 = *overrides.SiteAreaM2
	}

	if overrides.ClusterSize != nil {
		cfg.Defaults.ClusterSize = *overrides.ClusterSize
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if len(cfg.InitialGrowthForms) == 0 {
		return fmt.Errorf("growth forms cannot be empty")
	}

	d := cfg.Defaults
	if d.SurvivalRate <= 0 || d.SurvivalRate > 1 {
		return fmt.Errorf("survival rate must be in (0,1], got %g", d.SurvivalRate)
	}
	if d.Tolerance < 0 {
		return fmt.Errorf("tolerance must be >= 0, got %g", d.Tolerance)
	}
	if d.SiteAreaM2 <= 0 {
		return fmt.Errorf("site area must be positive, got %g", d.SiteAreaM2)
	}
	if d.SiteAspect <= 0 {
		return fmt.Errorf("site aspect must be positive, got %g", d.SiteAspect)
	}
	if d.ClusterSize < 1 {
		return fmt.Errorf("cluster size must be >= 1, got %d", d.ClusterSize)
	}
	if d.Benchmark.Low < 0 || d.Benchmark.High < d.Benchmark.Low {
		return fmt.Errorf("benchmark range must satisfy 0 <= low <= high, got [%g, %g]", d.Benchmark.Low, d.Benchmark.High)
	}
	return nil
}

// parseBenchmarkRange parses a "low,high" pair of colony densities.
func parseBenchmarkRange(raw string) (benchmark.Range, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return benchmark.Range{}, fmt.Errorf("benchmark range must be low,high, got %q", raw)
	}
	low, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return benchmark.Range{}, fmt.Errorf("invalid benchmark low %q", parts[0])
	}
	high, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return benchmark.Range{}, fmt.Errorf("invalid benchmark high %q", parts[1])
	}
	if low < 0 || high < low {
		return benchmark.Range{}, fmt.Errorf("benchmark range must satisfy 0 <= low <= high, got [%g, %g]", low, high)
	}
	return benchmark.Range{Low: low, High: high}, nil
}
