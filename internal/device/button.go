package device

import (
	"context"
	"fmt"
)

// historyLimit caps the button event history, newest first.
const historyLimit = 10

// zigbeeButton is an event source: it takes no inbound actions, only
// device-originated events. Each event must carry an action value; if
// the descriptor maps that value to a scene, the scene fires
// asynchronously and the event lands in a bounded history.
type zigbeeButton struct {
	base
}

func newZigbeeButton(desc Descriptor, env Env) Instance {
	return &zigbeeButton{base: newBase(desc, env, TransportBus)}
}

func (b *zigbeeButton) ReceiveMessage(ctx context.Context, payload map[string]any) error {
	action, ok := payload["action"].(string)
	if !ok || action == "" {
		return fmt.Errorf("%w: button %s", ErrMissingAction, b.desc.Name)
	}

	if scene, found := b.desc.Scenes[action]; found {
		b.env.log().Info("button scene triggered",
			"device", b.desc.Name, "action", action, "command", scene.Command)
		b.env.Scenes.Trigger(scene.Command, scene.Args...)
	}

	changed := cloneDoc(payload)
	changed["history"] = b.appendHistory(action)
	return b.mergeAndPersist(ctx, changed)
}

// appendHistory prepends one event and drops the oldest past the cap.
func (b *zigbeeButton) appendHistory(action string) []any {
	entry := map[string]any{
		"action": action,
		"unix":   b.env.now().Unix(),
	}

	existing, _ := b.state["history"].([]any)
	history := make([]any, 0, len(existing)+1)
	history = append(history, any(entry))
	history = append(history, existing...)
	if len(history) > historyLimit {
		history = history[:historyLimit]
	}
	return history
}
