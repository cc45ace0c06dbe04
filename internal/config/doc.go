// Package config loads and validates the YAML configuration file used
// by the mqtt-pg-logger-go service and its --create schema helper.
//
// The config file is expected to live at a fixed, operator-chosen path
// (conventionally /etc/mqtt-pg-logger.yaml) and must be mode 0600,
// since it typically carries database and MQTT broker credentials.
package config
