package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"examseed/internal/synth"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for configuration when --config is not given.
const DefaultPath = "examseed.yaml"

// Config holds all examseed configuration.
type Config struct {
	Name string `yaml:"name"`

	// RandomSeed fixes every random draw of a run. Zero seeds from the clock.
	RandomSeed int64 `yaml:"random_seed"`

	Service    ServiceConfig    `yaml:"service"`
	Seeding    SeedingConfig    `yaml:"seeding"`
	Simulation SimulationConfig `yaml:"simulation"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServiceConfig configures the remote exam-management service.
type ServiceConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
	// Pacing is the minimum gap between two creation calls.
	Pacing   string `yaml:"pacing"`
	PageSize int    `yaml:"page_size"`
	// MaxPages bounds a single paginated fetch. Zero means unlimited.
	MaxPages int `yaml:"max_pages"`
	// DuplicateMarkers are substrings of a 5xx body that mean "already exists".
	DuplicateMarkers []string `yaml:"duplicate_markers"`
	// LegacyLists uses the non-paginated getAll endpoints.
	LegacyLists bool `yaml:"legacy_lists"`
}

// RegionPlan names a region and the centres to create inside it.
// ID pins the region when it is already known.
type RegionPlan struct {
	Name    string   `yaml:"name"`
	ID      int64    `yaml:"id,omitempty"`
	Centres []string `yaml:"centres"`
}

// SeedingConfig configures the hierarchy seeding run.
type SeedingConfig struct {
	Regions           []RegionPlan `yaml:"regions"`
	SchoolsPerCentre  int          `yaml:"schools_per_centre"`
	StudentsPerSchool int          `yaml:"students_per_school"`
	// ExamsFile overrides the embedded exam catalogue.
	ExamsFile string `yaml:"exams_file"`

	Generator synth.Config `yaml:"generator"`
}

// SimulationConfig configures application submission and result publication.
type SimulationConfig struct {
	ApplicationStatus string `yaml:"application_status"`
	ApplicationType   string `yaml:"application_type"`
	// SubmissionDate is stamped into every form; empty means today.
	SubmissionDate  string  `yaml:"submission_date"`
	PassThreshold   float64 `yaml:"pass_threshold"`
	PerPaperMinimum bool    `yaml:"per_paper_minimum"`
}

// CacheConfig configures the blob cache for fetched collections.
type CacheConfig struct {
	Driver string `yaml:"driver"` // file, sqlite
	Path   string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "examseed",

		Service: ServiceConfig{
			BaseURL:          "http://localhost:8080",
			Timeout:          "10s",
			Pacing:           "300ms",
			PageSize:         100,
			DuplicateMarkers: []string{"Duplicate entry"},
		},

		Seeding: SeedingConfig{
			Regions: []RegionPlan{
				{Name: "Pune", Centres: []string{"Pune Central", "Kothrud Academy", "Hadinagar School of Excellence", "Baner Global Centre"}},
				{Name: "Mumbai", Centres: []string{"South Mumbai High", "Andheri Technical Institute", "Borivali Science Centre", "Navi Mumbai Hub"}},
				{Name: "Nashik", Centres: []string{"Nashik Road High", "Panchavati Academy", "Gangapur Road Centre", "College Road Hub"}},
			},
			SchoolsPerCentre:  5,
			StudentsPerSchool: 10,
			Generator:         synth.DefaultConfig(),
		},

		Simulation: SimulationConfig{
			ApplicationStatus: "PENDING",
			ApplicationType:   "Auto-Generated",
			PassThreshold:     40,
		},

		Cache: CacheConfig{
			Driver: "file",
			Path:   "output_data",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
// A .env file in the working directory is loaded before environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
		// defaults
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("EXAMSEED_BASE_URL"); v != "" {
		c.Service.BaseURL = v
	}
	if v := os.Getenv("EXAMSEED_PACING"); v != "" {
		c.Service.Pacing = v
	}
	if v := os.Getenv("EXAMSEED_CACHE_DIR"); v != "" {
		c.Cache.Path = v
	}
	if v := os.Getenv("EXAMSEED_CACHE_DRIVER"); v != "" {
		c.Cache.Driver = v
	}
	if v := os.Getenv("EXAMSEED_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("EXAMSEED_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.RandomSeed = seed
		}
	}
}

// GetTimeout returns the per-request timeout.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Service.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetPacing returns the gap between creation calls. "0" or "0s" disables pacing.
func (c *Config) GetPacing() time.Duration {
	d, err := time.ParseDuration(c.Service.Pacing)
	if err != nil || d < 0 {
		return 300 * time.Millisecond
	}
	return d
}

// GetPageSize returns the page size for list calls.
func (c *Config) GetPageSize() int {
	if c.Service.PageSize <= 0 {
		return 100
	}
	return c.Service.PageSize
}

// ValidCacheDrivers lists the supported cache drivers.
var ValidCacheDrivers = []string{"file", "sqlite"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Service.BaseURL, "http://") && !strings.HasPrefix(c.Service.BaseURL, "https://") {
		return fmt.Errorf("service base_url must be an http(s) URL, got %q", c.Service.BaseURL)
	}
	if c.Seeding.SchoolsPerCentre < 0 || c.Seeding.StudentsPerSchool < 0 {
		return fmt.Errorf("per-parent multiplicities must not be negative")
	}
	if c.Simulation.PassThreshold < 0 || c.Simulation.PassThreshold > 100 {
		return fmt.Errorf("pass_threshold must be within [0,100], got %v", c.Simulation.PassThreshold)
	}

	validDriver := false
	for _, d := range ValidCacheDrivers {
		if strings.EqualFold(c.Cache.Driver, d) {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid cache driver: %s (valid: %v)", c.Cache.Driver, ValidCacheDrivers)
	}

	if err := c.Seeding.Generator.Validate(); err != nil {
		return fmt.Errorf("invalid generator config: %w", err)
	}
	return nil
}
