package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TuningConfig represents the root configuration for recognition tuning
// parameters. All fields are optional pointers so a partial JSON file only
// overrides what it names; the Get* methods provide fallback defaults.
type TuningConfig struct {
	// Merge params
	FitMergeThreshold *float64 `json:"fit_merge_threshold,omitempty"`

	// Dispatch params
	MaxWorkers    *int     `json:"max_workers,omitempty"`
	IndexCellSize *float64 `json:"index_cell_size,omitempty"`

	// Fitter params
	FitMaxIterations  *int     `json:"fit_max_iterations,omitempty"`
	FitConvergence    *float64 `json:"fit_convergence,omitempty"`
	FitMaxCorrespond  *float64 `json:"fit_max_correspond,omitempty"`
	FitTruncationDist *float64 `json:"fit_truncation_dist,omitempty"`

	// Registry params
	ModelSamples *int `json:"model_samples,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and stay under the max file size. Fields omitted
// from the JSON retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
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

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.FitMergeThreshold != nil && *c.FitMergeThreshold <= 0 {
		return fmt.Errorf("fit_merge_threshold must be positive, got %f", *c.FitMergeThreshold)
	}
	if c.MaxWorkers != nil && *c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1, got %d", *c.MaxWorkers)
	}
	if c.IndexCellSize != nil && *c.IndexCellSize <= 0 {
		return fmt.Errorf("index_cell_size must be positive, got %f", *c.IndexCellSize)
	}
	if c.FitMaxIterations != nil && *c.FitMaxIterations < 1 {
		return fmt.Errorf("fit_max_iterations must be at least 1, got %d", *c.FitMaxIterations)
	}
	if c.FitConvergence != nil && *c.FitConvergence <= 0 {
		return fmt.Errorf("fit_convergence must be positive, got %f", *c.FitConvergence)
	}
	if c.FitMaxCorrespond != nil && *c.FitMaxCorrespond <= 0 {
		return fmt.Errorf("fit_max_correspond must be positive, got %f", *c.FitMaxCorrespond)
	}
	if c.FitTruncationDist != nil && *c.FitTruncationDist <= 0 {
		return fmt.Errorf("fit_truncation_dist must be positive, got %f", *c.FitTruncationDist)
	}
	if c.ModelSamples != nil && *c.ModelSamples < 1 {
		return fmt.Errorf("model_samples must be at least 1, got %d", *c.ModelSamples)
	}
	return nil
}

// GetFitMergeThreshold returns the fit_merge_threshold value or the default.
func (c *TuningConfig) GetFitMergeThreshold() float64 {
	if c.FitMergeThreshold == nil {
		return 0.02
	}
	return *c.FitMergeThreshold
}

// GetMaxWorkers returns the max_workers value or 0, meaning one worker per CPU.
func (c *TuningConfig) GetMaxWorkers() int {
	if c.MaxWorkers == nil {
		return 0
	}
	return *c.MaxWorkers
}

// GetIndexCellSize returns the index_cell_size value or the default.
func (c *TuningConfig) GetIndexCellSize() float64 {
	if c.IndexCellSize == nil {
		return 0.02
	}
	return *c.IndexCellSize
}

// GetFitMaxIterations returns the fit_max_iterations value or the default.
func (c *TuningConfig) GetFitMaxIterations() int {
	if c.FitMaxIterations == nil {
		return 100
	}
	return *c.FitMaxIterations
}

// GetFitConvergence returns the fit_convergence value or the default.
func (c *TuningConfig) GetFitConvergence() float64 {
	if c.FitConvergence == nil {
		return 1e-4
	}
	return *c.FitConvergence
}

// GetFitMaxCorrespond returns the fit_max_correspond value or the default.
func (c *TuningConfig) GetFitMaxCorrespond() float64 {
	if c.FitMaxCorrespond == nil {
		return 0.10
	}
	return *c.FitMaxCorrespond
}

// GetFitTruncationDist returns the fit_truncation_dist value or the default.
func (c *TuningConfig) GetFitTruncationDist() float64 {
	if c.FitTruncationDist == nil {
		return 0.05
	}
	return *c.FitTruncationDist
}

// GetModelSamples returns the model_samples value or the default.
func (c *TuningConfig) GetModelSamples() int {
	if c.ModelSamples == nil {
		return 300
	}
	return *c.ModelSamples
}
