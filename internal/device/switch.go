package device

import "context"

// zigbeeSwitch is an on/off actor behind zigbee2mqtt. Commands publish
// a state payload to the /set topic; the authoritative state comes back
// as telemetry on the device topic and merges via ReceiveMessage.
type zigbeeSwitch struct {
	base
}

func newZigbeeSwitch(desc Descriptor, env Env) Instance {
	return &zigbeeSwitch{base: newBase(desc, env, TransportBus,
		"on", "off", "toggle", "getState")}
}

func (s *zigbeeSwitch) Dispatch(ctx context.Context, action string, _ any) (Result, error) {
	switch action {
	case "on":
		return s.setState(ctx, "ON"), nil
	case "off":
		return s.setState(ctx, "OFF"), nil
	case "toggle":
		// The resulting state is unknown until the device reports back,
		// so nothing merges locally.
		if err := s.publishSet(map[string]any{"state": "TOGGLE"}); err != nil {
			s.env.log().Warn("switch toggle publish failed",
				"device", s.desc.Name, "error", err)
			return Result{OK: false, Err: "bus publish failed"}, nil
		}
		return Result{OK: true}, nil
	case "getState":
		if err := s.publishGet(map[string]any{"state": ""}); err != nil {
			s.env.log().Warn("switch state request failed",
				"device", s.desc.Name, "error", err)
			return Result{OK: false, Err: "bus publish failed"}, nil
		}
		return Result{OK: true}, nil
	default:
		return s.unknownAction(action)
	}
}

func (s *zigbeeSwitch) setState(ctx context.Context, state string) Result {
	changed := map[string]any{"state": state}
	if err := s.publishSet(changed); err != nil {
		s.env.log().Warn("switch command publish failed",
			"device", s.desc.Name, "state", state, "error", err)
		return Result{OK: false, Err: "bus publish failed"}
	}
	if err := s.mergeAndPersist(ctx, changed); err != nil {
		return Result{OK: false, Err: err.Error()}
	}
	return Result{OK: true, Changed: changed}
}
