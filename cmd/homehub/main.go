// HomeHub - home automation hub
//
// This is the main entry point for the HomeHub server. It hosts the
// HTTP API plus the background workers (HTTP poll loop, bus
// subscription loop, metrics exporter) in one process; each worker is
// toggled from configuration.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hubforge/homehub/internal/api"
	"github.com/hubforge/homehub/internal/device"
	"github.com/hubforge/homehub/internal/infrastructure/config"
	"github.com/hubforge/homehub/internal/infrastructure/database"
	"github.com/hubforge/homehub/internal/infrastructure/influxdb"
	"github.com/hubforge/homehub/internal/infrastructure/logging"
	"github.com/hubforge/homehub/internal/infrastructure/mqtt"
	"github.com/hubforge/homehub/internal/scene"
	"github.com/hubforge/homehub/internal/store"
	"github.com/hubforge/homehub/internal/transport"
	"github.com/hubforge/homehub/internal/worker"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// deviceHTTPTimeout bounds every device-native HTTP call.
const deviceHTTPTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error lets main handle exit codes
// consistently.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting HomeHub", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "devices", len(cfg.Devices))

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open the state database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	stateStore, err := store.NewSQLiteStore(ctx, db.DB)
	if err != nil {
		return fmt.Errorf("initialising state store: %w", err)
	}

	// Connect to the MQTT bus
	bus, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := bus.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	bus.SetLogger(log)
	bus.SetOnConnect(func() { log.Info("MQTT connected") })
	bus.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"topic_prefix", cfg.MQTT.TopicPrefix,
	)

	// Connect to InfluxDB (optional, feeds the metrics worker)
	var influxClient *influxdb.Client
	if cfg.Metrics.Influx.Enabled {
		influxClient, err = influxdb.Connect(cfg.Metrics.Influx)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.Metrics.Influx.URL)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the device environment and registry
	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)
	registry := device.NewRegistry(cfg.Devices, device.Env{
		Store:    stateStore,
		Bus:      bus,
		HTTP:     transport.NewHTTPAdapter(deviceHTTPTimeout),
		Speakers: transport.NewSpeakerAdapter(deviceHTTPTimeout, log),
		Scenes:   scene.NewRunner(cfg.Scenes, log),
		Topics:   topics,
		Logger:   log,
	})
	log.Info("device registry initialised", "devices", len(registry.Names()))

	// Start the API server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Metrics:  cfg.Metrics,
		Logger:   log,
		Registry: registry,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Start the background workers
	var wg sync.WaitGroup

	if cfg.Workers.HTTPPoll.Enabled {
		poll := worker.NewPollWorker(registry, cfg.Workers.HTTPPoll, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			poll.Run(ctx)
		}()
	} else {
		log.Info("HTTP poll worker disabled")
	}

	if cfg.Workers.Bus.Enabled {
		busWorker := worker.NewBusWorker(registry, bus, topics, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := busWorker.Run(ctx); err != nil {
				log.Error("bus worker failed", "error", err)
			}
		}()
	} else {
		log.Info("bus worker disabled")
	}

	if cfg.Workers.Metrics.Enabled && influxClient != nil {
		metrics := worker.NewMetricsWorker(registry, influxClient, cfg.Workers.Metrics, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			metrics.Run(ctx)
		}()
	} else {
		log.Info("metrics worker disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	wg.Wait()

	log.Info("HomeHub stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMEHUB_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMEHUB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
