package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for HomeHub.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database Database          `yaml:"database"`
	MQTT     MQTT              `yaml:"mqtt"`
	API      API               `yaml:"api"`
	Workers  Workers           `yaml:"workers"`
	Metrics  Metrics           `yaml:"metrics"`
	Logging  Logging           `yaml:"logging"`
	Scenes   Scenes            `yaml:"scenes"`
	Devices  map[string]Device `yaml:"devices"`
}

// Database contains SQLite state store settings.
type Database struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTT contains broker connection settings for the zigbee2mqtt bus.
type MQTT struct {
	Broker    MQTTBroker    `yaml:"broker"`
	Auth      MQTTAuth      `yaml:"auth"`
	QoS       int           `yaml:"qos"`
	Reconnect MQTTReconnect `yaml:"reconnect"`

	// TopicPrefix is the base topic under which zigbee devices publish,
	// typically "zigbee2mqtt". Device topics are <prefix>/<bus-id>.
	TopicPrefix string `yaml:"topic_prefix"`
}

// MQTTBroker contains MQTT broker connection details.
type MQTTBroker struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuth contains MQTT authentication credentials.
type MQTTAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnect contains MQTT reconnection settings in seconds.
type MQTTReconnect struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// API contains HTTP API server settings.
type API struct {
	Host     string      `yaml:"host"`
	Port     int         `yaml:"port"`
	Timeouts APITimeouts `yaml:"timeouts"`
}

// APITimeouts contains HTTP timeout settings in seconds.
type APITimeouts struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// Workers contains background worker settings.
type Workers struct {
	HTTPPoll HTTPPollWorker `yaml:"http_poll"`
	Bus      BusWorker      `yaml:"bus"`
	Metrics  MetricsWorker  `yaml:"metrics"`
}

// HTTPPollWorker configures the HTTP device poll loop.
type HTTPPollWorker struct {
	Enabled  bool `yaml:"enabled"`
	Interval int  `yaml:"interval"` // seconds between ticks
}

// BusWorker configures the MQTT subscription loop.
type BusWorker struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsWorker configures the metrics export loop.
type MetricsWorker struct {
	Enabled  bool `yaml:"enabled"`
	Interval int  `yaml:"interval"` // seconds between export rounds
}

// Metrics contains the metrics sink and graph renderer settings.
type Metrics struct {
	Influx InfluxDB `yaml:"influx"`

	// RenderURL is the base URL of the external time-series renderer that
	// the /api/v1/graph passthrough proxies to.
	RenderURL string `yaml:"render_url"`
}

// InfluxDB contains InfluxDB connection settings.
type InfluxDB struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// Logging contains logging settings.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Scenes contains scene script settings.
type Scenes struct {
	// Directory holds the executable scene scripts referenced by device
	// scene maps. Commands are resolved relative to this directory.
	Directory string `yaml:"directory"`

	// Timeout is the maximum runtime for a scene process in seconds.
	Timeout int `yaml:"timeout"`
}

// Device is a static device descriptor from configuration.
//
// Type selects the device variant; unrecognised values fall back to a
// passive generic variant. Address is used by HTTP-class devices, ZigbeeID
// by bus-class devices (falling back to the device name when empty).
type Device struct {
	Type       string               `yaml:"type"`
	Address    string               `yaml:"address"`
	ZigbeeID   string               `yaml:"zigbee_id"`
	StaleAfter int                  `yaml:"stale_after"` // seconds; 0 disables staleness detection
	Metrics    bool                 `yaml:"metrics"`
	Scenes     map[string]SceneSpec `yaml:"scenes"`
	JoinTarget string               `yaml:"join_target"` // speaker groups: zone to join
}

// SceneSpec maps a button action value to a scene invocation.
type SceneSpec struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Load reads configuration from a YAML file, merges overlay files from the
// conf.d directory next to it, and applies environment variable overrides.
//
// The loading order is:
//  1. Default values (hardcoded)
//  2. Main YAML file
//  3. conf.d/*.yml and conf.d/*.yaml next to the main file, in lexical order.
//     Overlays merge shallowly: the devices map gains or overwrites entries
//     per device name, scalar sections are replaced when present.
//  4. Environment variables (HOMEHUB_SECTION_KEY)
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := mergeConfDir(cfg, filepath.Join(filepath.Dir(path), "conf.d")); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// mergeConfDir unmarshals each overlay file into cfg. Unmarshalling into the
// existing struct leaves absent keys untouched, so overlays only override
// what they declare.
func mergeConfDir(cfg *Config, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading conf.d: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("reading overlay %s: %w", name, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing overlay %s: %w", name, err)
		}
	}

	return nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: Database{
			Path:        "./data/homehub.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTT{
			Broker: MQTTBroker{
				Host:     "localhost",
				Port:     1883,
				ClientID: "homehub",
			},
			QoS: 0,
			Reconnect: MQTTReconnect{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "zigbee2mqtt",
		},
		API: API{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeouts{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Workers: Workers{
			HTTPPoll: HTTPPollWorker{Enabled: true, Interval: 30},
			Bus:      BusWorker{Enabled: true},
			Metrics:  MetricsWorker{Enabled: false, Interval: 60},
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Scenes: Scenes{
			Directory: "./scenes",
			Timeout:   60,
		},
		Devices: map[string]Device{},
	}
}

// applyEnvOverrides applies environment variable overrides.
// Environment variables follow the pattern: HOMEHUB_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOMEHUB_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("HOMEHUB_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOMEHUB_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOMEHUB_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("HOMEHUB_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HOMEHUB_INFLUX_TOKEN"); v != "" {
		cfg.Metrics.Influx.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.Workers.HTTPPoll.Enabled && c.Workers.HTTPPoll.Interval < 1 {
		errs = append(errs, "workers.http_poll.interval must be at least 1 second")
	}
	if c.Workers.Metrics.Enabled && c.Workers.Metrics.Interval < 1 {
		errs = append(errs, "workers.metrics.interval must be at least 1 second")
	}
	for name, dev := range c.Devices {
		if name == "" {
			errs = append(errs, "device names must not be empty")
		}
		for action, scene := range dev.Scenes {
			if scene.Command == "" {
				errs = append(errs, fmt.Sprintf("devices.%s.scenes.%s: command is required", name, action))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ReadTimeout returns the API read timeout as a Duration.
func (a API) ReadTimeout() time.Duration {
	return time.Duration(a.Timeouts.Read) * time.Second
}

// WriteTimeout returns the API write timeout as a Duration.
func (a API) WriteTimeout() time.Duration {
	return time.Duration(a.Timeouts.Write) * time.Second
}

// IdleTimeout returns the API idle timeout as a Duration.
func (a API) IdleTimeout() time.Duration {
	return time.Duration(a.Timeouts.Idle) * time.Second
}
