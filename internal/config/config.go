package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Source types
const (
	SourceStatic  = "static"
	SourceJenkins = "jenkins"
	SourceNomad   = "nomad"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Log         LogConfig         `koanf:"log"`
	Cache       CacheConfig       `koanf:"cache"`
	HealthCheck HealthCheckConfig `koanf:"health_check"`
	Source      SourceConfig      `koanf:"source"`
	Views       []ViewConfig      `koanf:"views"`
	Etcd        EtcdConfig        `koanf:"etcd"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	BasePath     string        `koanf:"base_path"` // Optional base path for reverse proxy (e.g., "/mission-control")
}

// LogConfig represents logger configuration
type LogConfig struct {
	Level  string `koanf:"level"`  // debug | info | warn | error | off
	Format string `koanf:"format"` // json | text
}

// CacheConfig represents source snapshot cache configuration
type CacheConfig struct {
	TTL time.Duration `koanf:"ttl"` // 0 disables the cache
}

// HealthCheckConfig represents health check configuration for the job source
type HealthCheckConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Interval        time.Duration `koanf:"interval"`
	Timeout         time.Duration `koanf:"timeout"`
	FailedThreshold int           `koanf:"failed_threshold"`
}

// SourceConfig selects and configures the job/run source
type SourceConfig struct {
	Type    string        `koanf:"type"`
	Static  StaticConfig  `koanf:"static"`
	Jenkins JenkinsConfig `koanf:"jenkins"`
	Nomad   NomadConfig   `koanf:"nomad"`
}

// StaticConfig points to a YAML fixture with jobs and runs
type StaticConfig struct {
	Path string `koanf:"path"`
}

// JenkinsConfig represents a Jenkins controller connection
type JenkinsConfig struct {
	URL           string     `koanf:"url"`
	Username      string     `koanf:"username"`
	Token         string     `koanf:"token"`
	MaxConcurrent int        `koanf:"max_concurrent"`
	FolderDepth   int        `koanf:"folder_depth"` // folder levels read per tree request
	TLS           *TLSConfig `koanf:"tls"`
}

// NomadConfig represents the Nomad clusters read as a job source
type NomadConfig struct {
	Clusters      []ClusterConfig `koanf:"clusters"`
	MaxConcurrent int             `koanf:"max_concurrent"`
}

// ClusterConfig represents a single Nomad cluster configuration
type ClusterConfig struct {
	Name    string     `koanf:"name"`
	Region  string     `koanf:"region"`
	Address string     `koanf:"address"`
	TLS     *TLSConfig `koanf:"tls"`
}

// EtcdConfig represents the optional etcd store for view overrides
type EtcdConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Endpoints   []string      `koanf:"endpoints"`
	DialTimeout time.Duration `koanf:"dial_timeout"`
	Username    string        `koanf:"username"`
	Password    string        `koanf:"password"`
	Prefix      string        `koanf:"prefix"`
	TLS         *TLSConfig    `koanf:"tls"`
}

// TLSConfig represents TLS configuration for outgoing clients
type TLSConfig struct {
	CA                 string `koanf:"ca"`
	Cert               string `koanf:"cert"`
	Key                string `koanf:"key"`
	InsecureSkipVerify bool   `koanf:"insecure_skip_verify"`
}

// ViewConfig is the raw definition of a dashboard view.
// It is turned into a validated view.View before it reaches the aggregators.
type ViewConfig struct {
	Name               string `koanf:"name" json:"name"`
	HistoryLimit       int    `koanf:"history_limit" json:"history_limit"`
	BuildHistorySize   int    `koanf:"build_history_size" json:"build_history_size"`
	BuildQueueSize     int    `koanf:"build_queue_size" json:"build_queue_size"`
	FontSize           int    `koanf:"font_size" json:"font_size"`
	UseCondensedTables bool   `koanf:"use_condensed_tables" json:"use_condensed_tables"`
	FilterByFailures   bool   `koanf:"filter_by_failures" json:"filter_by_failures"`
	HideBuildHistory   bool   `koanf:"hide_build_history" json:"hide_build_history"`
	HideJobs           bool   `koanf:"hide_jobs" json:"hide_jobs"`
	HideBuildQueue     bool   `koanf:"hide_build_queue" json:"hide_build_queue"`
	HideNodes          bool   `koanf:"hide_nodes" json:"hide_nodes"`
	StatusButtonSize   string `koanf:"status_button_size" json:"status_button_size"`
	LayoutHeightRatio  string `koanf:"layout_height_ratio" json:"layout_height_ratio"`
	FilterBuildHistory string `koanf:"filter_build_history" json:"filter_build_history"`
	FilterJobStatuses  string `koanf:"filter_job_statuses" json:"filter_job_statuses"`

	// Pointers so that an absent key keeps the default instead of false
	HonorBuildableFlag *bool `koanf:"honor_buildable_flag" json:"honor_buildable_flag,omitempty"`
	QualifyFolderNames *bool `koanf:"qualify_folder_names" json:"qualify_folder_names,omitempty"`
}

// defaults are loaded before the config file so that the file only overrides what it sets
var defaults = map[string]any{
	"server.addr":                   ":8080",
	"server.read_timeout":           "15s",
	"server.write_timeout":          "15s",
	"log.level":                     "info",
	"log.format":                    "json",
	"cache.ttl":                     "5s",
	"health_check.enabled":          true,
	"health_check.interval":         "30s",
	"health_check.timeout":          "10s",
	"health_check.failed_threshold": 3,
	"source.type":                   SourceStatic,
	"source.jenkins.max_concurrent": 8,
	"source.jenkins.folder_depth":   3,
	"source.nomad.max_concurrent":   8,
	"etcd.dial_timeout":             "5s",
	"etcd.prefix":                   "mission-control/views/",
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Load YAML config
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	switch c.Source.Type {
	case SourceStatic:
		if c.Source.Static.Path == "" {
			return fmt.Errorf("source.static.path is required for static source")
		}
	case SourceJenkins:
		if c.Source.Jenkins.URL == "" {
			return fmt.Errorf("source.jenkins.url is required for jenkins source")
		}
		if c.Source.Jenkins.FolderDepth < 1 {
			return fmt.Errorf("source.jenkins.folder_depth must be at least 1")
		}
	case SourceNomad:
		if len(c.Source.Nomad.Clusters) == 0 {
			return fmt.Errorf("at least one nomad cluster must be configured")
		}
		for i, cluster := range c.Source.Nomad.Clusters {
			if cluster.Address == "" {
				return fmt.Errorf("source.nomad.clusters[%d].address is required", i)
			}
		}
	default:
		return fmt.Errorf("unknown source.type %q", c.Source.Type)
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}

	// Validate health check configuration
	if c.HealthCheck.Enabled {
		if c.HealthCheck.Interval <= 0 {
			return fmt.Errorf("health_check.interval must be positive when health check is enabled")
		}
		if c.HealthCheck.FailedThreshold <= 0 {
			return fmt.Errorf("health_check.failed_threshold must be positive when health check is enabled")
		}
	}

	if len(c.Views) == 0 {
		return fmt.Errorf("at least one view must be configured")
	}

	seen := make(map[string]bool, len(c.Views))
	for i, v := range c.Views {
		if v.Name == "" {
			return fmt.Errorf("views[%d].name is required", i)
		}
		if seen[v.Name] {
			return fmt.Errorf("duplicate view name %q", v.Name)
		}
		seen[v.Name] = true
		if v.HistoryLimit < 0 {
			return fmt.Errorf("views[%d].history_limit must not be negative", i)
		}
	}

	if c.Etcd.Enabled && len(c.Etcd.Endpoints) == 0 {
		return fmt.Errorf("etcd.endpoints is required when etcd is enabled")
	}

	return nil
}
