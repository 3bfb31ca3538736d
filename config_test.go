package main

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfigFromFile(newViper(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBound, cfg.Calculation.Bound)
	assert.Equal(t, DefaultOutlierPrime, cfg.Calculation.OutlierPrime)
	assert.Equal(t, "data", cfg.Output.OutputDirectory)
	assert.Equal(t, filepath.Join("data", "exponential_sums.csv"), cfg.TablePath())
	assert.Equal(t, filepath.Join("data", "exponential_sums_stats.json"), cfg.StatsPath())
	assert.True(t, cfg.Output.SaveStats)
	assert.Equal(t, 20, cfg.Output.ProgressEvery)
	assert.Equal(t, "defaults", cfg.loadedFrom)

	want := runtime.NumCPU()
	if want > maxWorkersCap {
		want = maxWorkersCap
	}
	assert.Equal(t, want, cfg.Performance.MaxWorkers)
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expsum.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
calculation:
  bound: 1000
  outlier_prime: 659
output:
  output_directory: out
  filename_prefix: q47
  progress_every: 5
performance:
  max_workers: 3
`), 0644))

	cfg, err := loadConfigFromFile(newViper(), path)
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Calculation.Bound)
	assert.Equal(t, 659, cfg.Calculation.OutlierPrime)
	assert.Equal(t, filepath.Join("out", "q47.csv"), cfg.TablePath())
	assert.Equal(t, 5, cfg.Output.ProgressEvery)
	assert.Equal(t, 3, cfg.Performance.MaxWorkers)
	assert.Equal(t, path, cfg.loadedFrom)
}

func TestLoadConfigEnvironmentOverride(t *testing.T) {
	t.Setenv("EXPSUM_CALCULATION_BOUND", "2000")

	cfg, err := loadConfigFromFile(newViper(), "")
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.Calculation.Bound)
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("calculation: [unterminated"), 0644))

	_, err := loadConfigFromFile(newViper(), path)
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"bound below two":      func(c *Config) { c.Calculation.Bound = 1 },
		"negative outlier":     func(c *Config) { c.Calculation.OutlierPrime = -1 },
		"empty prefix":         func(c *Config) { c.Output.FilenamePrefix = "" },
		"zero progress":        func(c *Config) { c.Output.ProgressEvery = 0 },
		"unknown log level":    func(c *Config) { c.Output.LogLevel = "loud" },
		"negative workers":     func(c *Config) { c.Performance.MaxWorkers = -2 },
		"threads per core low": func(c *Config) { c.Performance.ThreadsPerCore = 0 },
	}

	require.NoError(t, validateConfig(createDefaultConfig()))
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := createDefaultConfig()
			mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}

	cfg := createDefaultConfig()
	cfg.Calculation.Bound = 0
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, validateConfig(cfg), &cfgErr)
}

func TestSaveDefaultConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "expsum.yaml")
	cfg := createDefaultConfig()
	cfg.Calculation.Bound = 4321
	require.NoError(t, saveDefaultConfig(path, cfg))

	loaded, err := loadConfigFromFile(newViper(), path)
	require.NoError(t, err)
	assert.Equal(t, 4321, loaded.Calculation.Bound)
	assert.Equal(t, cfg.Output, loaded.Output)
}
