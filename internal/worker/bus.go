package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hubforge/homehub/internal/device"
	"github.com/hubforge/homehub/internal/infrastructure/logging"
	"github.com/hubforge/homehub/internal/infrastructure/mqtt"
)

// Subscriber is the slice of the bus client the worker needs.
// Satisfied by the infrastructure mqtt client.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// busBinding pairs a configured device name with its bus id. The
// binding set is fixed at startup; descriptors are immutable for the
// process lifetime.
type busBinding struct {
	name  string
	busID string
}

// BusWorker subscribes to one telemetry topic per bus-class device and
// feeds inbound payloads into ReceiveMessage. Unmatched topics are
// logged and dropped; a malformed payload affects no device's state.
type BusWorker struct {
	registry *device.Registry
	bus      Subscriber
	topics   mqtt.Topics
	logger   *logging.Logger

	bindings []busBinding
}

// NewBusWorker creates the bus subscription loop.
func NewBusWorker(registry *device.Registry, bus Subscriber, topics mqtt.Topics, logger *logging.Logger) *BusWorker {
	return &BusWorker{
		registry: registry,
		bus:      bus,
		topics:   topics,
		logger:   logger.With("worker", "bus"),
	}
}

// Run subscribes for every bus-class device and then blocks until ctx
// is cancelled. Message delivery happens on the bus client's
// goroutines; re-subscription after reconnects is handled by the client.
func (w *BusWorker) Run(ctx context.Context) error {
	instances, err := w.registry.LoadAll(ctx, device.TransportBus)
	if err != nil {
		return fmt.Errorf("loading bus devices: %w", err)
	}

	for name, inst := range instances {
		w.bindings = append(w.bindings, busBinding{name: name, busID: inst.BusID()})

		topic := w.topics.Device(inst.BusID())
		if err := w.bus.Subscribe(topic, 0, w.handleMessage(ctx)); err != nil {
			return fmt.Errorf("subscribing %s to %s: %w", name, topic, err)
		}
		w.logger.Info("subscribed", "device", name, "topic", topic)
	}

	<-ctx.Done()
	w.logger.Info("bus worker stopped")
	return nil
}

// handleMessage resolves an inbound topic to a device by linear bus-id
// lookup, loads a fresh instance, and hands the decoded payload over.
func (w *BusWorker) handleMessage(ctx context.Context) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		busID, ok := w.topics.ParseBusID(topic)
		if !ok {
			w.logger.Warn("message on unparseable topic dropped", "topic", topic)
			return nil
		}

		name, found := w.lookup(busID)
		if !found {
			w.logger.Warn("message without matching device dropped",
				"topic", topic, "bus_id", busID)
			return nil
		}

		var doc map[string]any
		if err := json.Unmarshal(payload, &doc); err != nil {
			w.logger.Warn("malformed bus payload dropped",
				"device", name, "topic", topic, "error", err)
			return nil
		}

		inst, err := w.registry.LoadOne(ctx, name)
		if err != nil {
			return fmt.Errorf("loading %s for bus message: %w", name, err)
		}
		if err := inst.ReceiveMessage(ctx, doc); err != nil {
			return fmt.Errorf("ingesting bus message for %s: %w", name, err)
		}

		w.logger.Debug("bus message ingested", "device", name, "topic", topic)
		return nil
	}
}

func (w *BusWorker) lookup(busID string) (string, bool) {
	for _, b := range w.bindings {
		if b.busID == busID {
			return b.name, true
		}
	}
	return "", false
}
