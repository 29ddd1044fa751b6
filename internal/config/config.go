package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/kappa/internal/kappa"
	"github.com/banshee-data/kappa/internal/sweep"
)

// DefaultConfigPath is the path to the canonical run defaults file.
const DefaultConfigPath = "config/kappa.defaults.json"

// RunConfig holds the settings shared by kappa-sweep and kappa-rewards.
// Every field is optional; the Get* methods fall back to built-in defaults
// for anything the file leaves out. The formula constants are fixed in
// package kappa and are not part of the configuration.
type RunConfig struct {
	Variant *string `json:"variant,omitempty"`

	// Sweep ranges: "min:max:step" or a comma-separated list
	TMedRange *string `json:"t_med_range,omitempty"`
	TSRange   *string `json:"t_s_range,omitempty"`

	// Outputs; "-" is stdout. An empty output falls back to stdout, an
	// empty path disables any of the others.
	Output        *string `json:"output,omitempty"`
	SummaryOutput *string `json:"summary_output,omitempty"`
	PlotPNG       *string `json:"plot_png,omitempty"`
	PlotHTML      *string `json:"plot_html,omitempty"`
	DBPath        *string `json:"db_path,omitempty"`

	// Reward allocation
	RewardPool     *float64 `json:"reward_pool,omitempty"`
	WeightedMedian *bool    `json:"weighted_median,omitempty"`
}

func ptrString(v string) *string    { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }

// EmptyRunConfig returns a RunConfig with all fields unset.
func EmptyRunConfig() *RunConfig {
	return &RunConfig{}
}

// DefaultRunConfig returns a RunConfig with every field set to its built-in
// default.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Variant:        ptrString(string(kappa.VariantV2)),
		TMedRange:      ptrString("0:15:1"),
		TSRange:        ptrString("0:20:1"),
		Output:         ptrString("-"),
		SummaryOutput:  ptrString(""),
		PlotPNG:        ptrString(""),
		PlotHTML:       ptrString(""),
		DBPath:         ptrString(""),
		RewardPool:     ptrFloat64(1000),
		WeightedMedian: ptrBool(false),
	}
}

// LoadConfig loads a RunConfig from a JSON file. The path must have a .json
// extension and the file must be at most 1MB. Omitted fields keep their
// defaults, so partial configs are safe.
func LoadConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRunConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory or
// one of its parents. It panics if the file cannot be found, and is intended
// for test setup.
func MustLoadDefaultConfig() *RunConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are usable.
func (c *RunConfig) Validate() error {
	if c.Variant != nil {
		if _, err := kappa.ParseVariant(*c.Variant); err != nil {
			return fmt.Errorf("variant: %w", err)
		}
	}

	if c.TMedRange != nil && *c.TMedRange != "" {
		if _, err := sweep.ParseParamList(*c.TMedRange); err != nil {
			return fmt.Errorf("invalid t_med_range '%s': %w", *c.TMedRange, err)
		}
	}
	if c.TSRange != nil && *c.TSRange != "" {
		if _, err := sweep.ParseParamList(*c.TSRange); err != nil {
			return fmt.Errorf("invalid t_s_range '%s': %w", *c.TSRange, err)
		}
	}

	if c.RewardPool != nil {
		if math.IsNaN(*c.RewardPool) || math.IsInf(*c.RewardPool, 0) {
			return fmt.Errorf("reward_pool must be finite, got %f", *c.RewardPool)
		}
		if *c.RewardPool < 0 {
			return fmt.Errorf("reward_pool must be non-negative, got %f", *c.RewardPool)
		}
	}

	return nil
}

// GetVariant returns the configured variant or v2.
func (c *RunConfig) GetVariant() kappa.Variant {
	if c.Variant == nil {
		return kappa.VariantV2
	}
	v, err := kappa.ParseVariant(*c.Variant)
	if err != nil {
		return kappa.VariantV2 // default on parse error
	}
	return v
}

// GetTMedRange returns the t_med_range spec or the default.
func (c *RunConfig) GetTMedRange() string {
	if c.TMedRange == nil || *c.TMedRange == "" {
		return "0:15:1"
	}
	return *c.TMedRange
}

// GetTSRange returns the t_s_range spec or the default.
func (c *RunConfig) GetTSRange() string {
	if c.TSRange == nil || *c.TSRange == "" {
		return "0:20:1"
	}
	return *c.TSRange
}

// GetOutput returns the point CSV destination or "-" for stdout.
func (c *RunConfig) GetOutput() string {
	if c.Output == nil || *c.Output == "" {
		return "-"
	}
	return *c.Output
}

// GetSummaryOutput returns the summary CSV path, empty when disabled.
func (c *RunConfig) GetSummaryOutput() string {
	if c.SummaryOutput == nil {
		return ""
	}
	return *c.SummaryOutput
}

// GetPlotPNG returns the PNG chart path, empty when disabled.
func (c *RunConfig) GetPlotPNG() string {
	if c.PlotPNG == nil {
		return ""
	}
	return *c.PlotPNG
}

// GetPlotHTML returns the HTML chart path, empty when disabled.
func (c *RunConfig) GetPlotHTML() string {
	if c.PlotHTML == nil {
		return ""
	}
	return *c.PlotHTML
}

// GetDBPath returns the sqlite database path, empty when runs are not recorded.
func (c *RunConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetRewardPool returns the reward_pool value or the default.
func (c *RunConfig) GetRewardPool() float64 {
	if c.RewardPool == nil {
		return 1000
	}
	return *c.RewardPool
}

// GetWeightedMedian returns the weighted_median value or the default.
func (c *RunConfig) GetWeightedMedian() bool {
	if c.WeightedMedian == nil {
		return false
	}
	return *c.WeightedMedian
}
