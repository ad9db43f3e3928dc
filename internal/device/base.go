package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hubforge/homehub/internal/store"
)

// base carries the state shared by every variant: descriptor, merged
// state document, and the fixed capability set. Variants embed it and
// override Dispatch, ReceiveMessage, and Refresh as needed.
type base struct {
	desc      Descriptor
	env       Env
	actions   []string
	transport string
	state     map[string]any
}

func newBase(desc Descriptor, env Env, transport string, actions ...string) base {
	return base{
		desc:      desc,
		env:       env,
		actions:   actions,
		transport: transport,
	}
}

func (b *base) Name() string      { return b.desc.Name }
func (b *base) Type() string      { return b.desc.Type }
func (b *base) Transport() string { return b.transport }

func (b *base) BusID() string {
	if b.transport != TransportBus {
		return ""
	}
	return b.desc.BusID()
}

func (b *base) MetricsEnabled() bool { return b.desc.Metrics }

func (b *base) Actions() []string {
	out := make([]string, len(b.actions))
	copy(out, b.actions)
	return out
}

func (b *base) State() map[string]any {
	return cloneDoc(b.state)
}

// load merges the stored document with the descriptor. Stored state is
// read first, then descriptor fields are re-applied on top so config
// stays authoritative even when a stale stored value exists. The
// outdated flag is derived here and never written back.
func (b *base) load(ctx context.Context) error {
	doc, err := b.env.Store.Load(ctx, b.desc.Name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("loading state for %s: %w", b.desc.Name, err)
		}
		doc = make(map[string]any)
	}

	doc["name"] = b.desc.Name
	doc["type"] = b.desc.Type
	if b.desc.Address != "" {
		doc["address"] = b.desc.Address
	}
	if b.desc.ZigbeeID != "" {
		doc["zigbee_id"] = b.desc.ZigbeeID
	}
	if b.desc.StaleAfter > 0 {
		doc["stale_after"] = b.desc.StaleAfter
	}
	if b.desc.Metrics {
		doc["metrics"] = true
	}

	delete(doc, "outdated")
	if b.desc.StaleAfter > 0 {
		if unix, ok := LastUpdateUnix(doc); ok {
			age := b.env.now().Unix() - unix
			if age > int64(b.desc.StaleAfter) {
				doc["outdated"] = true
			}
		}
	}

	b.state = doc
	return nil
}

// mergeAndPersist stamps last_update, shallow-merges the changed keys
// into the state document, and rewrites the whole record. New keys are
// added, existing keys overwritten; nested objects are replaced, not
// deep-merged. Concurrent writers race last-write-wins (see store).
func (b *base) mergeAndPersist(ctx context.Context, partial map[string]any) error {
	mergeDoc(b.state, partial)
	b.state["last_update"] = lastUpdateStamp(b.env.now())
	delete(b.state, "outdated")
	return b.persist(ctx)
}

// persist rewrites the whole document without touching last_update.
// Used for degradation markers (offline), which are not device-
// originated updates and must not reset the staleness clock.
func (b *base) persist(ctx context.Context) error {
	doc := cloneDoc(b.state)
	delete(doc, "outdated")
	if err := b.env.Store.Save(ctx, b.desc.Name, doc); err != nil {
		return fmt.Errorf("persisting state for %s: %w", b.desc.Name, err)
	}
	return nil
}

// markOffline degrades the device after a transport failure and returns
// the failed result the caller hands back. Persist errors are logged,
// not propagated; nothing past the adapter boundary is fatal.
func (b *base) markOffline(ctx context.Context, reason string) Result {
	b.state["online"] = false
	if err := b.persist(ctx); err != nil {
		b.env.log().Warn("persisting offline marker failed",
			"device", b.desc.Name, "error", err)
	}
	return Result{OK: false, Err: reason}
}

func (b *base) unknownAction(action string) (Result, error) {
	return Result{}, &UnknownActionError{Action: action, Allowed: b.Actions()}
}

// Dispatch on the base variant rejects everything; passive variants
// have an empty capability set.
func (b *base) Dispatch(_ context.Context, action string, _ any) (Result, error) {
	return b.unknownAction(action)
}

// ReceiveMessage merges a device-originated payload into state. This is
// the default passive behaviour; variants with field aliasing or event
// handling override it.
func (b *base) ReceiveMessage(ctx context.Context, payload map[string]any) error {
	return b.mergeAndPersist(ctx, payload)
}

// Refresh is a no-op for bus and passive variants.
func (b *base) Refresh(context.Context) {}

// publishSet publishes a command payload to the device's /set topic.
func (b *base) publishSet(payload map[string]any) error {
	return b.publishBus(b.env.Topics.Set(b.desc.BusID()), payload)
}

// publishGet publishes a state request payload to the device's /get topic.
func (b *base) publishGet(payload map[string]any) error {
	return b.publishBus(b.env.Topics.Get(b.desc.BusID()), payload)
}

func (b *base) publishBus(topic string, payload map[string]any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding bus payload for %s: %w", b.desc.Name, err)
	}
	return b.env.Bus.Publish(topic, raw, 0, false)
}
