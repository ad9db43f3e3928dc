package device

import "context"

// fingerbot is a zigbee button-pusher. The only action publishes a
// fixed actuation payload; the mode field is required by the device
// protocol even though click is the only mode used.
type fingerbot struct {
	base
}

func newFingerbot(desc Descriptor, env Env) Instance {
	return &fingerbot{base: newBase(desc, env, TransportBus, "press")}
}

func (f *fingerbot) Dispatch(_ context.Context, action string, _ any) (Result, error) {
	if action != "press" {
		return f.unknownAction(action)
	}

	payload := map[string]any{"state": true, "mode": "click"}
	if err := f.publishGet(payload); err != nil {
		f.env.log().Warn("fingerbot press publish failed",
			"device", f.desc.Name, "error", err)
		return Result{OK: false, Err: "bus publish failed"}, nil
	}
	return Result{OK: true}, nil
}
