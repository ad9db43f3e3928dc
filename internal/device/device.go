package device

import (
	"context"
	"time"

	"github.com/hubforge/homehub/internal/infrastructure/config"
	"github.com/hubforge/homehub/internal/infrastructure/logging"
	"github.com/hubforge/homehub/internal/infrastructure/mqtt"
	"github.com/hubforge/homehub/internal/store"
)

// Transport tags classify which worker path owns a device variant.
const (
	// TransportHTTP marks devices reached over their native REST API.
	// These are refreshed by the HTTP poll worker.
	TransportHTTP = "http"

	// TransportBus marks devices reached over the MQTT bus. These are
	// fed by the bus subscription worker.
	TransportBus = "bus"

	// TransportNone marks passive devices with no transport of their own.
	TransportNone = "none"
)

// Device type discriminators recognised by the registry. Any other type
// string falls back to the generic passive variant.
const (
	TypePlug          = "plug"
	TypeZigbeeSwitch  = "zigbee_switch"
	TypeZigbeeLamp    = "zigbee_lamp"
	TypeZigbeeButton  = "zigbee_button"
	TypeZigbeeLog     = "zigbee_log"
	TypeLoraLog       = "lora_log"
	TypeMediaRenderer = "media_renderer"
	TypeSpeakerGroup  = "speaker_group"
	TypeFingerbot     = "fingerbot"
	TypeGeneric       = "generic"
)

// Descriptor is the static, config-sourced definition of one device.
// It is immutable for the process lifetime and always authoritative
// over stored state for connection and config fields.
type Descriptor struct {
	Name       string
	Type       string
	Address    string
	ZigbeeID   string
	StaleAfter int
	Metrics    bool
	Scenes     map[string]config.SceneSpec
	JoinTarget string
}

// NewDescriptor builds a Descriptor from a named config entry.
func NewDescriptor(name string, cfg config.Device) Descriptor {
	return Descriptor{
		Name:       name,
		Type:       cfg.Type,
		Address:    cfg.Address,
		ZigbeeID:   cfg.ZigbeeID,
		StaleAfter: cfg.StaleAfter,
		Metrics:    cfg.Metrics,
		Scenes:     cfg.Scenes,
		JoinTarget: cfg.JoinTarget,
	}
}

// BusID returns the identifier used in bus topics, falling back to the
// device name when no explicit zigbee id is configured.
func (d Descriptor) BusID() string {
	if d.ZigbeeID != "" {
		return d.ZigbeeID
	}
	return d.Name
}

// Result is the uniform outcome of every device operation.
//
// Changed holds only the concrete fields the operation changed, not the
// whole state document. Err carries a transport failure description when
// OK is false; validation failures surface as errors, not results.
type Result struct {
	OK      bool           `json:"ok"`
	Changed map[string]any `json:"changed,omitempty"`
	Err     string         `json:"error,omitempty"`
}

// Instance is a live device: descriptor plus current state plus the
// fixed capability set of its variant.
type Instance interface {
	// Name returns the unique device name.
	Name() string

	// Type returns the configured type discriminator.
	Type() string

	// Transport returns the transport tag of the variant.
	Transport() string

	// BusID returns the bus topic identifier, empty for non-bus devices.
	BusID() string

	// MetricsEnabled reports whether the metrics exporter should
	// include this device.
	MetricsEnabled() bool

	// Actions returns the capability set in declaration order.
	// The returned slice is a copy.
	Actions() []string

	// State returns a deep copy of the current state document.
	State() map[string]any

	// Dispatch runs one action against the device. Validation failures
	// and unknown actions return a typed error with no side effect;
	// transport failures return a failed Result with a nil error.
	Dispatch(ctx context.Context, action string, msg any) (Result, error)

	// ReceiveMessage ingests a device-originated bus payload, merging
	// it into state and persisting the result.
	ReceiveMessage(ctx context.Context, payload map[string]any) error

	// Refresh performs a best-effort state refresh for HTTP-class
	// devices. Failures degrade the instance to offline and are not
	// returned. No-op for bus and passive variants.
	Refresh(ctx context.Context)
}

// BusPublisher publishes one message to the bus with delivery
// confirmation. Satisfied by the infrastructure mqtt client.
type BusPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// JSONFetcher performs a GET against a device-native HTTP endpoint and
// decodes the JSON response. Implementations must apply a short fixed
// timeout and never panic on malformed bodies; an empty body decodes to
// an empty map.
type JSONFetcher interface {
	GetJSON(ctx context.Context, url string) (map[string]any, error)
}

// SpeakerMember is one discovered speaker in a multi-room group.
type SpeakerMember struct {
	Name        string
	Address     string
	Group       string
	Coordinator bool
}

// SpeakerControl discovers and commands multi-room speaker groups.
// Discover scans the topology behind the group's configured address and
// returns an empty set on failure, never an error the caller must
// distinguish from "offline".
type SpeakerControl interface {
	Discover(ctx context.Context, address string) []SpeakerMember
	Toggle(ctx context.Context, m SpeakerMember) error
	SetVolume(ctx context.Context, m SpeakerMember, volume int) error
	Join(ctx context.Context, m SpeakerMember, target string) error
	Unjoin(ctx context.Context, m SpeakerMember) error
	Blink(ctx context.Context, m SpeakerMember) error
}

// SceneTrigger launches a scene script. Fire-and-forget: the device
// model's contract ends at successful dispatch of the trigger.
type SceneTrigger interface {
	Trigger(command string, args ...string)
}

// Env carries the collaborators every instance needs. One Env is built
// at startup and shared by the registry across all loads.
type Env struct {
	Store    store.Store
	Bus      BusPublisher
	HTTP     JSONFetcher
	Speakers SpeakerControl
	Scenes   SceneTrigger
	Topics   mqtt.Topics
	Logger   *logging.Logger

	// Now is the clock used for last_update stamps and staleness
	// derivation. Defaults to time.Now when nil.
	Now func() time.Time
}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Env) log() *logging.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logging.Default()
}
