package device

import (
	"context"
	"fmt"
	"sort"

	"github.com/hubforge/homehub/internal/infrastructure/config"
)

// builders maps type discriminators to variant constructors. Selected
// once per load; unknown types fall back to newGeneric.
var builders = map[string]func(Descriptor, Env) Instance{
	TypePlug:          newPlug,
	TypeZigbeeSwitch:  newZigbeeSwitch,
	TypeZigbeeLamp:    newZigbeeLamp,
	TypeZigbeeButton:  newZigbeeButton,
	TypeZigbeeLog:     newZigbeeLog,
	TypeLoraLog:       newLoraLog,
	TypeMediaRenderer: newRenderer,
	TypeSpeakerGroup:  newSpeakerGroup,
	TypeFingerbot:     newFingerbot,
}

// Registry constructs device instances from the configured descriptors.
// Instances are built fresh on every load; the registry itself holds no
// per-device state.
type Registry struct {
	devices map[string]config.Device
	env     Env
}

// NewRegistry creates a registry over the configured device map.
func NewRegistry(devices map[string]config.Device, env Env) *Registry {
	return &Registry{devices: devices, env: env}
}

// Names returns all configured device names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.devices))
	for name := range r.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadOne constructs and loads a single device instance. HTTP-class
// instances get a best-effort state refresh; refresh failures degrade
// the instance to offline instead of aborting construction. Returns
// ErrDeviceNotFound for unconfigured names.
func (r *Registry) LoadOne(ctx context.Context, name string) (Instance, error) {
	cfg, found := r.devices[name]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}

	inst, err := r.build(ctx, name, cfg)
	if err != nil {
		return nil, err
	}
	inst.Refresh(ctx)
	return inst, nil
}

// LoadAll constructs and loads every configured device, optionally
// filtered by transport tag (empty string loads everything). No refresh
// happens here; workers drive their own refresh cycle and a full load
// must not fan out one network call per device.
func (r *Registry) LoadAll(ctx context.Context, transport string) (map[string]Instance, error) {
	out := make(map[string]Instance, len(r.devices))
	for name, cfg := range r.devices {
		inst, err := r.build(ctx, name, cfg)
		if err != nil {
			return nil, err
		}
		if transport != "" && inst.Transport() != transport {
			continue
		}
		out[name] = inst
	}
	return out, nil
}

// loader is satisfied by every variant through the embedded base.
type loader interface {
	load(ctx context.Context) error
}

func (r *Registry) build(ctx context.Context, name string, cfg config.Device) (Instance, error) {
	desc := NewDescriptor(name, cfg)

	builder, found := builders[desc.Type]
	if !found {
		builder = newGeneric
	}

	inst := builder(desc, r.env)
	if err := inst.(loader).load(ctx); err != nil {
		return nil, err
	}
	return inst, nil
}
