// Package config holds the application configuration.
//
// Values come from, in increasing priority: DefaultConfig, a JSON file,
// MPA_* environment variables and command line flags (applied by the
// caller).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/OpenTraceLab/OpenTraceMeasure/internal/logging"
)

// Config is the application configuration.
type Config struct {
	Logging logging.Config `json:"logging"`

	// ToleranceTable is the tolerance table file. LegacyTolerances selects
	// the flat tolerances.json format.
	ToleranceTable   string `json:"tolerance_table"`
	LegacyTolerances bool   `json:"legacy_tolerances"`

	// Mapping and Template are empty for the built-in default layout.
	Mapping  string `json:"mapping,omitempty"`
	Template string `json:"template,omitempty"`

	PickRadius float64 `json:"pick_radius_px"`
	ZoomFactor float64 `json:"zoom_factor"`
	FitMargin  float64 `json:"fit_margin"`

	// MetricsAddr serves /metrics while the viewer runs when set.
	MetricsAddr string `json:"metrics_addr,omitempty"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging:        logging.DefaultConfig(),
		ToleranceTable: "tolerances.json",
		PickRadius:     50,
		ZoomFactor:     1.2,
		FitMargin:      0.05,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.ToleranceTable == "" {
		errs = append(errs, errors.New("tolerance_table is required"))
	}
	if !(c.PickRadius > 0) {
		errs = append(errs, fmt.Errorf("pick_radius_px must be positive, got %v", c.PickRadius))
	}
	if !(c.ZoomFactor > 1) {
		errs = append(errs, fmt.Errorf("zoom_factor must be greater than 1, got %v", c.ZoomFactor))
	}
	if c.FitMargin < 0 || c.FitMargin >= 0.5 {
		errs = append(errs, fmt.Errorf("fit_margin must be in [0, 0.5), got %v", c.FitMargin))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Load reads a configuration file on top of the defaults and applies the
// environment. An empty filename skips the file.
func Load(filename string) (*Config, error) {
	cfg := DefaultConfig()

	if filename != "" {
		file, err := os.Open(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer file.Close()

		dec := json.NewDecoder(file)
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("%s: decode config: %w", filename, err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	strs := map[string]*string{
		"MPA_LOG_LEVEL":       &c.Logging.Level,
		"MPA_LOG_FORMAT":      &c.Logging.Format,
		"MPA_LOG_OUTPUT":      &c.Logging.OutputPath,
		"MPA_TOLERANCE_TABLE": &c.ToleranceTable,
		"MPA_MAPPING":         &c.Mapping,
		"MPA_TEMPLATE":        &c.Template,
		"MPA_METRICS_ADDR":    &c.MetricsAddr,
	}
	for name, p := range strs {
		if value, ok := os.LookupEnv(name); ok {
			*p = value
		}
	}

	floats := map[string]*float64{
		"MPA_PICK_RADIUS": &c.PickRadius,
		"MPA_ZOOM_FACTOR": &c.ZoomFactor,
		"MPA_FIT_MARGIN":  &c.FitMargin,
	}
	for name, p := range floats {
		if value, ok := os.LookupEnv(name); ok {
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("%s: invalid number %q", name, value)
			}
			*p = f
		}
	}

	bools := map[string]*bool{
		"MPA_LEGACY_TOLERANCES": &c.LegacyTolerances,
		"MPA_LOG_DEVELOPMENT":   &c.Logging.Development,
	}
	for name, p := range bools {
		if value, ok := os.LookupEnv(name); ok {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("%s: invalid boolean %q", name, value)
			}
			*p = b
		}
	}
	return nil
}
