package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ==================== CONFIGURATION STRUCTURES ====================

type CalculationConfig struct {
	Bound        int `mapstructure:"bound" json:"bound" yaml:"bound"`
	OutlierPrime int `mapstructure:"outlier_prime" json:"outlier_prime" yaml:"outlier_prime"`
}

type OutputConfig struct {
	OutputDirectory string `mapstructure:"output_directory" json:"output_directory" yaml:"output_directory"`
	FilenamePrefix  string `mapstructure:"filename_prefix" json:"filename_prefix" yaml:"filename_prefix"`
	SaveStats       bool   `mapstructure:"save_stats" json:"save_stats" yaml:"save_stats"`
	SQLitePath      string `mapstructure:"sqlite_path" json:"sqlite_path" yaml:"sqlite_path"`
	MetricsPath     string `mapstructure:"metrics_path" json:"metrics_path" yaml:"metrics_path"`
	LogLevel        string `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
	Verbose         bool   `mapstructure:"verbose" json:"verbose" yaml:"verbose"`
	ProgressEvery   int    `mapstructure:"progress_every" json:"progress_every" yaml:"progress_every"`
}

type PerformanceConfig struct {
	MaxWorkers     int     `mapstructure:"max_workers" json:"max_workers" yaml:"max_workers"`
	ThreadsPerCore float64 `mapstructure:"threads_per_core" json:"threads_per_core" yaml:"threads_per_core"`
}

// Config is read once at start and treated as immutable afterwards.
type Config struct {
	Calculation CalculationConfig `mapstructure:"calculation" json:"calculation" yaml:"calculation"`
	Output      OutputConfig      `mapstructure:"output" json:"output" yaml:"output"`
	Performance PerformanceConfig `mapstructure:"performance" json:"performance" yaml:"performance"`

	configPath string
	loadedFrom string
}

const (
	DefaultBound        = 50000
	DefaultOutlierPrime = 283
	maxWorkersCap       = 32
)

// TablePath is where the per-prime CSV table is written.
func (c *Config) TablePath() string {
	return filepath.Join(c.Output.OutputDirectory, c.Output.FilenamePrefix+".csv")
}

// StatsPath is where the JSON run summary is written.
func (c *Config) StatsPath() string {
	return filepath.Join(c.Output.OutputDirectory, c.Output.FilenamePrefix+"_stats.json")
}

// ==================== CONFIGURATION MANAGEMENT ====================

func setDefaults(v *viper.Viper) {
	// Calculation defaults
	v.SetDefault("calculation.bound", DefaultBound)
	v.SetDefault("calculation.outlier_prime", DefaultOutlierPrime)

	// Output defaults
	v.SetDefault("output.output_directory", "data")
	v.SetDefault("output.filename_prefix", "exponential_sums")
	v.SetDefault("output.save_stats", true)
	v.SetDefault("output.sqlite_path", "")
	v.SetDefault("output.metrics_path", "")
	v.SetDefault("output.log_level", "info")
	v.SetDefault("output.verbose", false)
	v.SetDefault("output.progress_every", 20)

	// Performance defaults
	v.SetDefault("performance.max_workers", 0) // 0 = auto
	v.SetDefault("performance.threads_per_core", 1.0)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("EXPSUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfigFromFile reads path into v (a missing file falls back to
// defaults), then validates and fills in dynamic values.
func loadConfigFromFile(v *viper.Viper, path string) (*Config, error) {
	loadedFrom := "defaults"
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else {
			loadedFrom = v.ConfigFileUsed()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	calculateDynamicValues(&cfg)

	cfg.configPath = path
	cfg.loadedFrom = loadedFrom

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Calculation.Bound < 2 {
		return &ConfigurationError{Bound: cfg.Calculation.Bound, Reason: "bound must be at least 2"}
	}
	if cfg.Calculation.OutlierPrime < 0 {
		return fmt.Errorf("outlier_prime cannot be negative")
	}

	if cfg.Output.FilenamePrefix == "" {
		return fmt.Errorf("filename_prefix cannot be empty")
	}
	if cfg.Output.ProgressEvery < 1 {
		return fmt.Errorf("progress_every must be at least 1")
	}
	switch strings.ToLower(cfg.Output.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", cfg.Output.LogLevel)
	}

	if cfg.Performance.MaxWorkers < 0 {
		return fmt.Errorf("max_workers cannot be negative")
	}
	if cfg.Performance.ThreadsPerCore < 0.1 || cfg.Performance.ThreadsPerCore > 10 {
		return fmt.Errorf("threads_per_core must be between 0.1 and 10")
	}

	return nil
}

func calculateDynamicValues(cfg *Config) {
	if cfg.Output.OutputDirectory == "" {
		cfg.Output.OutputDirectory = "."
	}

	// Calculate max workers if auto
	if cfg.Performance.MaxWorkers <= 0 {
		cores := runtime.NumCPU()
		cfg.Performance.MaxWorkers = int(float64(cores) * cfg.Performance.ThreadsPerCore)

		if cfg.Performance.MaxWorkers < 1 {
			cfg.Performance.MaxWorkers = 1
		}
		if cfg.Performance.MaxWorkers > maxWorkersCap {
			cfg.Performance.MaxWorkers = maxWorkersCap
		}
	}
}

// createDefaultConfig returns the defaults with dynamic values resolved.
func createDefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)

	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	calculateDynamicValues(cfg)
	cfg.loadedFrom = "defaults"
	return cfg
}

func saveDefaultConfig(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &PersistenceError{Path: dir, Op: "create directory", Err: err}
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := `# expsum-hunter configuration v` + Version + `
# Generated on ` + time.Now().Format("2006-01-02 15:04:05") + `

`

	if err := os.WriteFile(path, []byte(header+string(data)), 0644); err != nil {
		return &PersistenceError{Path: path, Op: "write config", Err: err}
	}
	return nil
}
