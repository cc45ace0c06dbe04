// Package config handles loading and validating mqtt-pg-logger-go's
// configuration.
//
// This package manages:
//   - Loading configuration from a YAML file
//   - Validating the config file's permission bits (must be 0600)
//   - Required-field validation for the database and mqtt sections
//   - Default value handling
//
// Security Considerations:
//   - The config file may contain broker/DB credentials; a file mode
//     other than 0600 causes startup to fail rather than run insecurely.
//
// Usage:
//
//	cfg, err := config.Load("/etc/mqtt-pg-logger.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// requiredConfigFileMode is the only permission mode a config file is
// allowed to have, since it may carry MQTT/DB credentials.
const requiredConfigFileMode = 0o600

// Config is the root configuration structure, mirroring the top-level
// YAML objects: database, mqtt, and the optional logging and metrics
// sections.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig holds the PostgreSQL journal connection and batching
// settings (spec.md §3, §6).
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`

	TableName string `yaml:"table_name"`
	Timezone  string `yaml:"timezone"`

	BatchSize         int `yaml:"batch_size"`
	WaitMaxSeconds    int `yaml:"wait_max_seconds"`
	CleanUpAfterDays  int `yaml:"clean_up_after_days"`
}

// Defaults for DatabaseConfig, applied when the YAML key is absent.
const (
	DefaultTableName        = "journal"
	DefaultBatchSize        = 100
	DefaultWaitMaxSeconds   = 10
	DefaultCleanUpAfterDays = 14
)

// MQTTConfig holds broker connection, TLS, credentials, and the
// subscription/filter configuration (spec.md §3, §6).
type MQTTConfig struct {
	ClientID  string `yaml:"client_id"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Keepalive int    `yaml:"keepalive"`
	Protocol  int    `yaml:"protocol"`

	SSLCACerts  string `yaml:"ssl_ca_certs"`
	SSLCertFile string `yaml:"ssl_certfile"`
	SSLKeyFile  string `yaml:"ssl_keyfile"`
	SSLInsecure bool   `yaml:"ssl_insecure"`

	User     string `yaml:"user"`
	Password string `yaml:"password"`

	FilterMessageID0 bool `yaml:"filter_message_id_0"`

	Subscriptions           []string `yaml:"subscriptions"`
	SkipSubscriptionRegexes []string `yaml:"skip_subscription_regexes"`
}

// Defaults for MQTTConfig.
const (
	DefaultKeepalive   = 60
	DefaultProtocol    = 4
	DefaultPortPlain   = 1883
	DefaultPortTLS     = 8883
	DefaultSubscribeQoS = 1
)

// IsTLS reports whether any TLS material was configured, which is the
// same condition the original tool uses to decide to enable TLS at all.
func (c MQTTConfig) IsTLS() bool {
	return c.SSLCACerts != "" || c.SSLCertFile != "" || c.SSLKeyFile != ""
}

// EffectivePort returns the configured port, or the plain/TLS default
// if none was given.
func (c MQTTConfig) EffectivePort() int {
	if c.Port != 0 {
		return c.Port
	}
	if c.IsTLS() {
		return DefaultPortTLS
	}
	return DefaultPortPlain
}

// LoggingConfig configures the external logging setup (spec.md §6).
type LoggingConfig struct {
	LogFile     string `yaml:"log_file"`
	LogLevel    string `yaml:"log_level"`
	MaxBytes    int64  `yaml:"max_bytes"`
	MaxCount    int    `yaml:"max_count"`
	PrintLogs   bool   `yaml:"print_logs"`
	SystemdMode bool   `yaml:"systemd_mode"`
}

// Logging defaults.
const (
	DefaultLogLevel = "info"
	MinMaxBytes     = 102400
	DefaultMaxBytes = 1048576
	DefaultMaxCount = 5
)

// MetricsConfig configures the optional InfluxDB ingestion-metrics
// sink (SPEC_FULL §6.1). Off by default; never part of the core
// invariants.
type MetricsConfig struct {
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
}

// InfluxDBConfig holds InfluxDB v2 connection settings for the
// optional metrics recorder.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// Load reads configuration from a YAML file, applies defaults,
// validates the config file's permission bits and required fields,
// and returns the resulting Config.
//
// Parameters:
//   - path: Path to the YAML configuration file.
//
// Returns:
//   - *Config: Loaded and validated configuration.
//   - error: If the file is missing, has the wrong permissions, fails
//     to parse, or fails validation.
func Load(path string) (*Config, error) {
	if err := checkConfigFileAccess(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// checkConfigFileAccess verifies the config file exists and has mode
// 0600. A config file with broader permissions may leak MQTT/DB
// credentials to other local users, so it is treated as a fatal
// startup error rather than a warning.
func checkConfigFileAccess(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config file (%s) does not exist: %w", path, err)
	}

	mode := info.Mode().Perm()
	if mode != requiredConfigFileMode {
		return fmt.Errorf(
			"wrong config file permissions (%s: expected %04o, got %04o); change via chmod, this file may contain sensitive information",
			path, requiredConfigFileMode, mode,
		)
	}

	return nil
}

// defaultConfig returns a Config with the defaults described in
// spec.md §6.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			TableName:        DefaultTableName,
			BatchSize:        DefaultBatchSize,
			WaitMaxSeconds:   DefaultWaitMaxSeconds,
			CleanUpAfterDays: DefaultCleanUpAfterDays,
		},
		MQTT: MQTTConfig{
			Keepalive: DefaultKeepalive,
			Protocol:  DefaultProtocol,
		},
		Logging: LoggingConfig{
			LogLevel: DefaultLogLevel,
			MaxBytes: DefaultMaxBytes,
			MaxCount: DefaultMaxCount,
		},
	}
}

// Validate checks the configuration against spec.md §6's required-key
// and range constraints, aggregating every violation into one error.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port < 1 {
		errs = append(errs, "database.port is required and must be >= 1")
	}
	if c.Database.Database == "" {
		errs = append(errs, "database.database is required")
	}
	if c.Database.BatchSize < 1 {
		errs = append(errs, "database.batch_size must be >= 1")
	}
	if c.Database.WaitMaxSeconds < 0 {
		errs = append(errs, "database.wait_max_seconds must be >= 0")
	}

	if c.MQTT.Host == "" {
		errs = append(errs, "mqtt.host is required")
	}
	if c.MQTT.Port < 0 {
		errs = append(errs, "mqtt.port must be >= 0")
	}
	if len(c.MQTT.Subscriptions) == 0 {
		errs = append(errs, "mqtt.subscriptions is required and must be non-empty")
	}
	if c.MQTT.Protocol != 3 && c.MQTT.Protocol != 4 && c.MQTT.Protocol != 5 {
		errs = append(errs, "mqtt.protocol must be 3, 4, or 5")
	}
	for _, sub := range c.MQTT.Subscriptions {
		if sub == "" {
			errs = append(errs, "mqtt.subscriptions entries must not be empty")
			break
		}
	}

	if c.Logging.LogLevel != "" {
		switch strings.ToLower(c.Logging.LogLevel) {
		case "debug", "info", "warning", "error":
		default:
			errs = append(errs, fmt.Sprintf("logging.log_level %q is not one of debug|info|warning|error", c.Logging.LogLevel))
		}
	}
	if c.Logging.MaxBytes != 0 && c.Logging.MaxBytes < MinMaxBytes {
		errs = append(errs, fmt.Sprintf("logging.max_bytes must be >= %d", MinMaxBytes))
	}
	if c.Logging.MaxCount != 0 && c.Logging.MaxCount < 1 {
		errs = append(errs, "logging.max_count must be >= 1")
	}

	if c.Metrics.InfluxDB.Enabled {
		if c.Metrics.InfluxDB.URL == "" {
			errs = append(errs, "metrics.influxdb.url is required when metrics.influxdb.enabled is true")
		}
		if c.Metrics.InfluxDB.Bucket == "" {
			errs = append(errs, "metrics.influxdb.bucket is required when metrics.influxdb.enabled is true")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}

// EffectiveBatchSize clamps the configured batch size to the writer's
// hard ceiling (spec.md §9: the source's `max(batch_size, 10000)` is a
// bug; intent is `min`).
func (c DatabaseConfig) EffectiveBatchSize(ceiling int) int {
	if c.BatchSize > ceiling {
		return ceiling
	}
	if c.BatchSize < 1 {
		return DefaultBatchSize
	}
	return c.BatchSize
}
