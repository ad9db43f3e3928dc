package mqtt

import "testing"

func TestTopicBuilding(t *testing.T) {
	topics := NewTopics("zigbee2mqtt")

	if got := topics.Device("0xabc"); got != "zigbee2mqtt/0xabc" {
		t.Errorf("Device = %s", got)
	}
	if got := topics.Set("0xabc"); got != "zigbee2mqtt/0xabc/set" {
		t.Errorf("Set = %s", got)
	}
	if got := topics.Get("0xabc"); got != "zigbee2mqtt/0xabc/get" {
		t.Errorf("Get = %s", got)
	}
}

func TestNewTopicsToleratesTrailingSlash(t *testing.T) {
	topics := NewTopics("zigbee2mqtt/")
	if got := topics.Device("0xabc"); got != "zigbee2mqtt/0xabc" {
		t.Errorf("Device = %s", got)
	}
}

func TestParseBusID(t *testing.T) {
	topics := NewTopics("zigbee2mqtt")

	tests := []struct {
		name   string
		topic  string
		want   string
		wantOK bool
	}{
		{"telemetry topic", "zigbee2mqtt/0xabc", "0xabc", true},
		{"named device", "zigbee2mqtt/kitchen_sensor", "kitchen_sensor", true},
		{"set echo rejected", "zigbee2mqtt/0xabc/set", "", false},
		{"get echo rejected", "zigbee2mqtt/0xabc/get", "", false},
		{"foreign prefix rejected", "homeassistant/0xabc", "", false},
		{"bare prefix rejected", "zigbee2mqtt", "", false},
		{"empty bus id rejected", "zigbee2mqtt/", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := topics.ParseBusID(tt.topic)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseBusID(%s) = (%q, %v), want (%q, %v)",
					tt.topic, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
