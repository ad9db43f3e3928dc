// Package mqtt wraps the Eclipse Paho client for HomeHub's bus traffic.
//
// Zigbee-class devices are reached through a zigbee2mqtt bridge: commands go
// to <prefix>/<bus-id>/set, explicit state requests to <prefix>/<bus-id>/get,
// and device-originated telemetry arrives on <prefix>/<bus-id> with no suffix.
//
// The Client provides connection management, publish with delivery
// confirmation, subscription handling with automatic restoration after
// reconnect, and panic recovery around message handlers.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil { ... }
//	defer client.Close()
//
//	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)
//	client.Subscribe(topics.Device("abc123"), 0, handler)
//	client.Publish(topics.Set("abc123"), payload, 0, false)
package mqtt
