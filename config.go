package fusion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is fixed at estimator construction.
type Config struct {
	UseLidar bool `json:"use_lidar"` // lidar measurements are ignored after initialization when false
	UseRadar bool `json:"use_radar"` // radar measurements are ignored after initialization when false

	// Process noise, tunable.
	StdA     float64 `json:"std_a"`     // longitudinal acceleration, m/s^2
	StdYawdd float64 `json:"std_yawdd"` // yaw acceleration, rad/s^2

	// Measurement noise from the sensor manufacturers. Do not tune.
	StdLaserPx     float64 `json:"std_laser_px"`      // m
	StdLaserPy     float64 `json:"std_laser_py"`      // m
	StdRadarRho    float64 `json:"std_radar_rho"`     // m
	StdRadarPhi    float64 `json:"std_radar_phi"`     // rad
	StdRadarRhoDot float64 `json:"std_radar_rho_dot"` // m/s

	MinRange            float64 `json:"min_range"`            // radar range divisor floor, m
	NISConfidence       float64 `json:"nis_confidence"`       // chi-square confidence for NIS bookkeeping
	CovarianceTolerance float64 `json:"covariance_tolerance"` // relative tolerance of the covariance health check
}

// DefaultConfig returns the standard sensor constants and process noise.
func DefaultConfig() Config {
	return Config{
		UseLidar:            true,
		UseRadar:            true,
		StdA:                3,
		StdYawdd:            2,
		StdLaserPx:          0.15,
		StdLaserPy:          0.15,
		StdRadarRho:         0.3,
		StdRadarPhi:         0.03,
		StdRadarRhoDot:      0.3,
		MinRange:            DefaultMinRange,
		NISConfidence:       0.95,
		CovarianceTolerance: DefaultCovarianceTolerance,
	}
}

// ProcessNoise returns the process noise part of the configuration.
func (c Config) ProcessNoise() ProcessNoise {
	return ProcessNoise{StdA: c.StdA, StdYawdd: c.StdYawdd}
}

// Validate checks the configuration for values the filter cannot run with.
func (c Config) Validate() error {
	if c.StdA < 0 || c.StdYawdd < 0 {
		return fmt.Errorf("process noise must be non-negative, got std_a=%g std_yawdd=%g", c.StdA, c.StdYawdd)
	}
	sensors := map[string]float64{
		"std_laser_px":      c.StdLaserPx,
		"std_laser_py":      c.StdLaserPy,
		"std_radar_rho":     c.StdRadarRho,
		"std_radar_phi":     c.StdRadarPhi,
		"std_radar_rho_dot": c.StdRadarRhoDot,
	}
	for name, v := range sensors {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %g", name, v)
		}
	}
	if c.MinRange <= 0 {
		return fmt.Errorf("min_range must be positive, got %g", c.MinRange)
	}
	if c.NISConfidence <= 0 || c.NISConfidence >= 1 {
		return fmt.Errorf("nis_confidence must be in (0, 1), got %g", c.NISConfidence)
	}
	if c.CovarianceTolerance <= 0 {
		return fmt.Errorf("covariance_tolerance must be positive, got %g", c.CovarianceTolerance)
	}
	return nil
}

// LoadConfig reads a JSON configuration file. Fields omitted from the file
// keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if info.Size() > maxFileSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
