// Command mqtt-pg-logger journals messages from configured MQTT topics
// into a PostgreSQL table, or (with --create) bootstraps that table's
// schema and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/config"
	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/lifecycle"
	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/logging"
	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/metrics"
	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/mqttlistener"
	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/runner"
	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/store"
)

// Version information, set at build time via ldflags, e.g.:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configFile := flag.String("config-file", "/etc/mqtt-pg-logger.yaml", "config file")
	create := flag.Bool("create", false, "create database table (if not exists) and create or replace the json trigger")
	logFile := flag.String("log-file", "", "log file (overrides logging.log_file)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warning, error (overrides logging.log_level)")
	printLogs := flag.Bool("print-logs", false, "print log output to console too")
	systemdMode := flag.Bool("systemd-mode", false, "systemd/journald integration: skip timestamp + print to console")
	flag.Parse()

	if err := run(*configFile, *create, *logFile, *logLevel, *printLogs, *systemdMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string, create bool, logFile, logLevel string, printLogs, systemdMode bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if logFile != "" {
		cfg.Logging.LogFile = logFile
	}
	if logLevel != "" {
		cfg.Logging.LogLevel = logLevel
	}
	if printLogs {
		cfg.Logging.PrintLogs = true
	}
	if systemdMode {
		cfg.Logging.SystemdMode = true
	}

	logger, err := logging.New(cfg.Logging, version)
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}
	defer logger.Close()

	logger.Info("starting", "version", version, "commit", commit)
	defer logger.Info("shutdown")

	if create {
		return runCreate(cfg.Database, logger)
	}
	return runService(cfg, logger)
}

func runCreate(dbCfg config.DatabaseConfig, logger *logging.Logger) error {
	creator, err := store.NewSchemaCreator(dbCfg)
	if err != nil {
		return fmt.Errorf("connecting for schema creation: %w", err)
	}
	defer creator.Close()

	if err := creator.CreateSchema(); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("schema created")
	return nil
}

func runService(cfg *config.Config, logger *logging.Logger) error {
	ctrl := lifecycle.New(logger)
	ctrl.InstallSignalHandlers()
	defer ctrl.StopSignalHandlers()

	var storeRecorder store.MetricsRecorder
	var listenerRecorder mqttlistener.MetricsRecorder
	if cfg.Metrics.InfluxDB.Enabled {
		client, err := metrics.Connect(context.Background(), cfg.Metrics.InfluxDB)
		if err != nil {
			logger.Error("connecting to influxdb metrics sink, continuing without metrics", "error", err)
		} else {
			defer client.Close()
			client.SetOnError(func(err error) {
				logger.Error("writing metrics to influxdb", "error", err)
			})
			recorder := metrics.NewRecorder(client)
			storeRecorder = recorder
			listenerRecorder = recorder
		}
	}

	writer := store.New(cfg.Database, ctrl, logger, storeRecorder)
	go writer.Run()
	defer writer.Close()

	listener, err := mqttlistener.New(cfg.MQTT, ctrl, logger, listenerRecorder)
	if err != nil {
		return fmt.Errorf("building mqtt listener: %w", err)
	}
	if err := listener.Connect(); err != nil {
		return fmt.Errorf("connecting to mqtt broker: %w", err)
	}

	r := runner.New(listener, writer, ctrl)
	defer r.Close()

	if err := r.Loop(); err != nil {
		return fmt.Errorf("runner loop: %w", err)
	}

	return nil
}
