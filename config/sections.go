package config

import (
	"fmt"
	"time"
)

// DatabaseConfig points at the PostgreSQL instance holding locations,
// lots, occupancy samples and forecasts.
type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

// Validate checks mandatory fields.
func (c DatabaseConfig) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	return nil
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// APIKey protects the batch-trigger endpoint.
	APIKey string `json:"api_key"`
	// TimeoutSeconds bounds online store reads per request.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
}

// Timeout returns the per-request upstream timeout.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ForecastConfig configures batch generation.
type ForecastConfig struct {
	IntervalMin  int    `json:"interval_min"`
	Model        string `json:"model"`
	ModelVersion string `json:"model_version"`
	// Cron schedules automatic generation runs; empty disables them.
	Cron string `json:"cron"`
	// UnitTimeoutSeconds bounds store and model calls per lot/day.
	UnitTimeoutSeconds int `json:"unit_timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *ForecastConfig) SetDefaults() {
	if c.IntervalMin <= 0 {
		c.IntervalMin = 30
	}
	if c.Model == "" {
		c.Model = "mean_last_3_weeks"
	}
	if c.ModelVersion == "" {
		c.ModelVersion = "v1"
	}
	if c.UnitTimeoutSeconds <= 0 {
		c.UnitTimeoutSeconds = 30
	}
}

// Validate checks field ranges.
func (c ForecastConfig) Validate() error {
	if c.IntervalMin < 1 || c.IntervalMin > 24*60 {
		return fmt.Errorf("forecast.interval_min out of range: %d", c.IntervalMin)
	}
	return nil
}

// UnitTimeout returns the per-lot/day timeout.
func (c ForecastConfig) UnitTimeout() time.Duration {
	return time.Duration(c.UnitTimeoutSeconds) * time.Second
}

// ProviderConfig is one external HTTP provider endpoint.
type ProviderConfig struct {
	URL            string `json:"url"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Timeout returns the per-call timeout.
func (c ProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ProvidersConfig groups the travel-matrix and geocoding providers.
type ProvidersConfig struct {
	OpenRoute ProviderConfig `json:"openroute"`
	OpenCage  ProviderConfig `json:"opencage"`
}

// SetDefaults applies sane defaults.
func (c *ProvidersConfig) SetDefaults() {
	if c.OpenRoute.URL == "" {
		c.OpenRoute.URL = "https://api.openrouteservice.org/v2"
	}
	if c.OpenRoute.TimeoutSeconds <= 0 {
		c.OpenRoute.TimeoutSeconds = 10
	}
	if c.OpenCage.TimeoutSeconds <= 0 {
		c.OpenCage.TimeoutSeconds = 10
	}
}

// MetricsConfig configures the metrics sinks.
type MetricsConfig struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// SetDefaults applies sane defaults.
func (c *MetricsConfig) SetDefaults() {
	if c.PrometheusPort == "" {
		c.PrometheusPort = ":9090"
	}
}
