// Package config handles configuration loading for the POI tile server.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Data   DataConfig   `yaml:"data"`
	Cache  CacheConfig  `yaml:"cache"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DataConfig contains dataset source settings. POI candidates are tried in
// order: line-delimited, then the GeoJSON document, then the summary fallback.
type DataConfig struct {
	POINDJSONPath  string `yaml:"poi_ndjson_path"`
	POIGeoJSONPath string `yaml:"poi_geojson_path"`
	POISummaryPath string `yaml:"poi_summary_path"`
	CityPath       string `yaml:"city_geojson_path"`
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	Dir               string `yaml:"dir"`
	PayloadSizeMB     int    `yaml:"payload_size_mb"`
	PayloadTTLMinutes int    `yaml:"payload_ttl_minutes"`
	QueryEntries      int    `yaml:"query_entries"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Data: DataConfig{
			POINDJSONPath:  "./data/pois.ndjson",
			POIGeoJSONPath: "./data/pois.geojson",
			POISummaryPath: "./data/poi_summary.json",
			CityPath:       "./data/cities.geojson",
		},
		Cache: CacheConfig{
			Dir:               "./data/cache",
			PayloadSizeMB:     256,
			PayloadTTLMinutes: 10,
			QueryEntries:      1000,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Data.POINDJSONPath == "" {
		cfg.Data.POINDJSONPath = defaults.Data.POINDJSONPath
	}
	if cfg.Data.POIGeoJSONPath == "" {
		cfg.Data.POIGeoJSONPath = defaults.Data.POIGeoJSONPath
	}
	if cfg.Data.POISummaryPath == "" {
		cfg.Data.POISummaryPath = defaults.Data.POISummaryPath
	}
	if cfg.Data.CityPath == "" {
		cfg.Data.CityPath = defaults.Data.CityPath
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = defaults.Cache.Dir
	}
	if cfg.Cache.PayloadSizeMB == 0 {
		cfg.Cache.PayloadSizeMB = defaults.Cache.PayloadSizeMB
	}
	if cfg.Cache.PayloadTTLMinutes == 0 {
		cfg.Cache.PayloadTTLMinutes = defaults.Cache.PayloadTTLMinutes
	}
	if cfg.Cache.QueryEntries == 0 {
		cfg.Cache.QueryEntries = defaults.Cache.QueryEntries
	}
}
