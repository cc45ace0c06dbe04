package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
database:
  host: localhost
  port: 5432
  user: logger
  password: secret
  database: logger_db

mqtt:
  host: localhost
  port: 1883
  subscriptions:
    - "#"
`

func writeConfig(t *testing.T, content string, mode os.FileMode) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

// === Load Tests ===

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, validYAML, 0o600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want localhost", cfg.Database.Host)
	}
	if cfg.Database.TableName != DefaultTableName {
		t.Errorf("Database.TableName = %q, want default %q", cfg.Database.TableName, DefaultTableName)
	}
	if cfg.Database.BatchSize != DefaultBatchSize {
		t.Errorf("Database.BatchSize = %d, want default %d", cfg.Database.BatchSize, DefaultBatchSize)
	}
	if cfg.MQTT.Keepalive != DefaultKeepalive {
		t.Errorf("MQTT.Keepalive = %d, want default %d", cfg.MQTT.Keepalive, DefaultKeepalive)
	}
	if len(cfg.MQTT.Subscriptions) != 1 || cfg.MQTT.Subscriptions[0] != "#" {
		t.Errorf("MQTT.Subscriptions = %v, want [#]", cfg.MQTT.Subscriptions)
	}
}

func TestLoadRejectsWrongPermissions(t *testing.T) {
	path := writeConfig(t, validYAML, 0o644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want permission error for mode 0644")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "database: [this is not", 0o600)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}

func TestLoadMissingRequiredFields(t *testing.T) {
	path := writeConfig(t, "database:\n  host: localhost\n", 0o600)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want validation error for missing required fields")
	}
}

// === Validate Tests ===

func TestValidateRequiresDatabaseFields(t *testing.T) {
	cfg := defaultConfig()
	cfg.MQTT.Host = "localhost"
	cfg.MQTT.Subscriptions = []string{"#"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil, want error for missing database fields")
	}
}

func TestValidateRequiresSubscriptions(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.Database = "logger_db"
	cfg.MQTT.Host = "localhost"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil, want error for empty subscriptions")
	}
}

func TestValidateRejectsBadProtocol(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.Database = "logger_db"
	cfg.MQTT.Host = "localhost"
	cfg.MQTT.Subscriptions = []string{"#"}
	cfg.MQTT.Protocol = 99

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil, want error for invalid protocol")
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.Database = "logger_db"
	cfg.MQTT.Host = "localhost"
	cfg.MQTT.Subscriptions = []string{"#"}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestValidateRequiresInfluxFieldsWhenEnabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.Database = "logger_db"
	cfg.MQTT.Host = "localhost"
	cfg.MQTT.Subscriptions = []string{"#"}
	cfg.Metrics.InfluxDB.Enabled = true

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil, want error for enabled influxdb without url/bucket")
	}
}

// === MQTTConfig Tests ===

func TestMQTTConfigEffectivePortDefaultsPlain(t *testing.T) {
	c := MQTTConfig{}
	if got := c.EffectivePort(); got != DefaultPortPlain {
		t.Errorf("EffectivePort() = %d, want %d", got, DefaultPortPlain)
	}
}

func TestMQTTConfigEffectivePortDefaultsTLS(t *testing.T) {
	c := MQTTConfig{SSLCACerts: "/etc/ca.pem"}
	if got := c.EffectivePort(); got != DefaultPortTLS {
		t.Errorf("EffectivePort() = %d, want %d", got, DefaultPortTLS)
	}
}

func TestMQTTConfigEffectivePortExplicit(t *testing.T) {
	c := MQTTConfig{Port: 18883}
	if got := c.EffectivePort(); got != 18883 {
		t.Errorf("EffectivePort() = %d, want 18883", got)
	}
}

// === DatabaseConfig Tests ===

func TestEffectiveBatchSizeClampsToCeiling(t *testing.T) {
	c := DatabaseConfig{BatchSize: 50000}
	if got := c.EffectiveBatchSize(10000); got != 10000 {
		t.Errorf("EffectiveBatchSize() = %d, want 10000", got)
	}
}

func TestEffectiveBatchSizeFallsBackToDefault(t *testing.T) {
	c := DatabaseConfig{BatchSize: 0}
	if got := c.EffectiveBatchSize(10000); got != DefaultBatchSize {
		t.Errorf("EffectiveBatchSize() = %d, want default %d", got, DefaultBatchSize)
	}
}

func TestEffectiveBatchSizePassesThrough(t *testing.T) {
	c := DatabaseConfig{BatchSize: 250}
	if got := c.EffectiveBatchSize(10000); got != 250 {
		t.Errorf("EffectiveBatchSize() = %d, want 250", got)
	}
}
