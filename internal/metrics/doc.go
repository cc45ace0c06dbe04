// Package metrics optionally records ingestion-pipeline counters to
// InfluxDB. Disabled by default; see config.MetricsConfig.
package metrics
