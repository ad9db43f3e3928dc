package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
devices:
  lamp1:
    type: zigbee_lamp
    zigbee_id: "0xlamp"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.MQTT.TopicPrefix != "zigbee2mqtt" {
		t.Errorf("topic_prefix = %s, want default zigbee2mqtt", cfg.MQTT.TopicPrefix)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("api.port = %d, want default 8080", cfg.API.Port)
	}
	if !cfg.Workers.HTTPPoll.Enabled || cfg.Workers.HTTPPoll.Interval != 30 {
		t.Errorf("http_poll defaults wrong: %+v", cfg.Workers.HTTPPoll)
	}
	if cfg.Workers.Metrics.Enabled {
		t.Error("metrics worker must default to disabled")
	}
	if cfg.Devices["lamp1"].Type != "zigbee_lamp" {
		t.Errorf("device not loaded: %+v", cfg.Devices)
	}
}

func TestLoadMergesConfDOverlays(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
api:
  port: 9000
devices:
  lamp1:
    type: zigbee_lamp
    zigbee_id: "0xlamp"
`)

	confD := filepath.Join(dir, "conf.d")
	if err := os.MkdirAll(confD, 0o755); err != nil {
		t.Fatalf("creating conf.d: %v", err)
	}
	writeConfig(t, confD, "10-devices.yaml", `
devices:
  plug1:
    type: plug
    address: 10.0.0.5
`)
	writeConfig(t, confD, "20-override.yml", `
devices:
  lamp1:
    type: zigbee_lamp
    zigbee_id: "0xlamp"
    metrics: true
`)
	writeConfig(t, confD, "ignored.txt", "not yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.API.Port != 9000 {
		t.Errorf("api.port = %d, main file value must survive overlays", cfg.API.Port)
	}
	if _, found := cfg.Devices["plug1"]; !found {
		t.Error("overlay device plug1 not merged")
	}
	if !cfg.Devices["lamp1"].Metrics {
		t.Error("later overlay must override lamp1")
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
mqtt:
  broker:
    host: broker.local
`)

	t.Setenv("HOMEHUB_MQTT_HOST", "env.broker")
	t.Setenv("HOMEHUB_INFLUX_TOKEN", "secret-token")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.MQTT.Broker.Host != "env.broker" {
		t.Errorf("mqtt host = %s, env must win", cfg.MQTT.Broker.Host)
	}
	if cfg.Metrics.Influx.Token != "secret-token" {
		t.Errorf("influx token not overridden")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "bad qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "missing topic prefix",
			mutate:  func(c *Config) { c.MQTT.TopicPrefix = "" },
			wantErr: "topic_prefix",
		},
		{
			name:    "bad api port",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: "api.port",
		},
		{
			name:    "poll interval too low",
			mutate:  func(c *Config) { c.Workers.HTTPPoll.Interval = 0 },
			wantErr: "http_poll.interval",
		},
		{
			name: "scene without command",
			mutate: func(c *Config) {
				c.Devices["button1"] = Device{
					Type:   "zigbee_button",
					Scenes: map[string]SceneSpec{"single": {}},
				}
			},
			wantErr: "command is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
