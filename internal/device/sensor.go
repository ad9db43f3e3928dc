package device

import "context"

// Field aliases translate family-specific payload names into the
// canonical field names the rest of the system (CLI allow-lists,
// metrics exporter) expects.
var (
	zigbeeLogAliases = map[string]string{
		"device_temperature": "temperature",
	}

	loraLogAliases = map[string]string{
		"TempC_SHT": "temperature",
		"Hum_SHT":   "humidity",
		"BatV":      "battery_voltage",
	}
)

// logSensor is a passive telemetry source (zigbee environment sensor or
// LoRa node). It has no actions; inbound payloads are renamed to
// canonical fields and merged.
type logSensor struct {
	base
	aliases map[string]string
}

func newZigbeeLog(desc Descriptor, env Env) Instance {
	return &logSensor{
		base:    newBase(desc, env, TransportBus),
		aliases: zigbeeLogAliases,
	}
}

func newLoraLog(desc Descriptor, env Env) Instance {
	return &logSensor{
		base:    newBase(desc, env, TransportBus),
		aliases: loraLogAliases,
	}
}

func (s *logSensor) ReceiveMessage(ctx context.Context, payload map[string]any) error {
	canonical := make(map[string]any, len(payload))
	for k, v := range payload {
		if alias, found := s.aliases[k]; found {
			k = alias
		}
		canonical[k] = v
	}
	return s.mergeAndPersist(ctx, canonical)
}
