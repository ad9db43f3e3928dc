package mqtt

import "strings"

// Topics builds and parses bus topics for the configured zigbee2mqtt prefix.
//
// Topic pattern: <prefix>/<bus-id>[/suffix]
//   - no suffix: device-originated telemetry and events
//   - /set:      commands to a device
//   - /get:      explicit state requests
type Topics struct {
	prefix string
}

// NewTopics creates a topic builder for the given prefix (e.g. "zigbee2mqtt").
// A trailing slash on the prefix is tolerated.
func NewTopics(prefix string) Topics {
	return Topics{prefix: strings.TrimSuffix(prefix, "/")}
}

// Device returns the telemetry topic for a bus id.
//
// Example: zigbee2mqtt/0x00158d0001e2f8a1
func (t Topics) Device(busID string) string {
	return t.prefix + "/" + busID
}

// Set returns the command topic for a bus id.
//
// Example: zigbee2mqtt/0x00158d0001e2f8a1/set
func (t Topics) Set(busID string) string {
	return t.Device(busID) + "/set"
}

// Get returns the explicit state-request topic for a bus id.
//
// Example: zigbee2mqtt/0x00158d0001e2f8a1/get
func (t Topics) Get(busID string) string {
	return t.Device(busID) + "/get"
}

// ParseBusID extracts the bus id from a telemetry topic.
//
// It returns false for topics outside the configured prefix and for /set
// and /get command echoes, which are not device-originated telemetry.
func (t Topics) ParseBusID(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.prefix+"/")
	if !ok || rest == "" {
		return "", false
	}
	if strings.ContainsRune(rest, '/') {
		return "", false
	}
	return rest, true
}
