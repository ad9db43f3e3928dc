package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hubforge/homehub/internal/device"
	"github.com/hubforge/homehub/internal/infrastructure/config"
	"github.com/hubforge/homehub/internal/infrastructure/logging"
	"github.com/hubforge/homehub/internal/infrastructure/mqtt"
	"github.com/hubforge/homehub/internal/store"
)

type memStore struct {
	docs map[string]map[string]any
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]map[string]any{}}
}

func (s *memStore) Load(_ context.Context, name string) (map[string]any, error) {
	doc, found := s.docs[name]
	if !found {
		return nil, store.ErrNotFound
	}
	return copyDoc(doc), nil
}

func (s *memStore) Save(_ context.Context, name string, doc map[string]any) error {
	s.docs[name] = copyDoc(doc)
	return nil
}

func (s *memStore) Names(context.Context) ([]string, error) { return nil, nil }
func (s *memStore) Delete(_ context.Context, name string) error {
	delete(s.docs, name)
	return nil
}

func copyDoc(doc map[string]any) map[string]any {
	raw, _ := json.Marshal(doc)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return out
}

type stubFetcher struct {
	responses map[string]map[string]any
	failFor   map[string]bool
	calls     []string
}

func (f *stubFetcher) GetJSON(_ context.Context, url string) (map[string]any, error) {
	f.calls = append(f.calls, url)
	if f.failFor[url] {
		return nil, errors.New("connection refused")
	}
	if doc, found := f.responses[url]; found {
		return copyDoc(doc), nil
	}
	return map[string]any{}, nil
}

// fakeSubscriber records subscriptions and hands the captured handlers
// back to the test for direct invocation.
type fakeSubscriber struct {
	handlers map[string]mqtt.MessageHandler
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: map[string]mqtt.MessageHandler{}}
}

func (s *fakeSubscriber) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	s.handlers[topic] = handler
	return nil
}

type fakeSink struct {
	metrics map[string]float64 // "device/field" -> value
	ages    map[string]float64
}

func newFakeSink() *fakeSink {
	return &fakeSink{metrics: map[string]float64{}, ages: map[string]float64{}}
}

func (s *fakeSink) WriteDeviceMetric(device, field string, value float64) {
	s.metrics[device+"/"+field] = value
}

func (s *fakeSink) WriteLastReceivedAge(device string, ageSeconds float64) {
	s.ages[device] = ageSeconds
}

func testLogger() *logging.Logger {
	return logging.New(config.Logging{Level: "error", Format: "text", Output: "stderr"}, "test")
}

func newRegistry(devices map[string]config.Device, st *memStore, fetcher *stubFetcher) *device.Registry {
	return device.NewRegistry(devices, device.Env{
		Store:  st,
		Bus:    nopPublisher{},
		HTTP:   fetcher,
		Topics: mqtt.NewTopics("zigbee2mqtt"),
		Logger: testLogger(),
		Now:    func() time.Time { return time.Unix(1700000000, 0) },
	})
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, []byte, byte, bool) error { return nil }

func TestBusWorkerRoutesByBusID(t *testing.T) {
	st := newMemStore()
	devices := map[string]config.Device{
		"hall_sensor":  {Type: device.TypeZigbeeLog, ZigbeeID: "0xaaa"},
		"attic_sensor": {Type: device.TypeZigbeeLog, ZigbeeID: "0xbbb"},
		"plug1":        {Type: device.TypePlug, Address: "10.0.0.5"},
	}
	registry := newRegistry(devices, st, &stubFetcher{})

	sub := newFakeSubscriber()
	w := NewBusWorker(registry, sub, mqtt.NewTopics("zigbee2mqtt"), testLogger())

	// With the context already cancelled, Run subscribes and returns.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// Only bus-class devices get a subscription.
	if len(sub.handlers) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", len(sub.handlers))
	}
	handler, found := sub.handlers["zigbee2mqtt/0xaaa"]
	if !found {
		t.Fatal("no subscription for zigbee2mqtt/0xaaa")
	}

	if err := handler("zigbee2mqtt/0xaaa", []byte(`{"temperature":21.5}`)); err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	if st.docs["hall_sensor"]["temperature"] != 21.5 {
		t.Errorf("hall_sensor temperature = %v, want 21.5", st.docs["hall_sensor"]["temperature"])
	}
	if _, touched := st.docs["attic_sensor"]; touched {
		t.Error("message must update only the matching device")
	}
}

func TestBusWorkerDropsUnroutableMessages(t *testing.T) {
	st := newMemStore()
	devices := map[string]config.Device{
		"hall_sensor": {Type: device.TypeZigbeeLog, ZigbeeID: "0xaaa"},
	}
	registry := newRegistry(devices, st, &stubFetcher{})

	sub := newFakeSubscriber()
	w := NewBusWorker(registry, sub, mqtt.NewTopics("zigbee2mqtt"), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	handler := sub.handlers["zigbee2mqtt/0xaaa"]

	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"unmatched bus id", "zigbee2mqtt/0xdead", `{"temperature":1}`},
		{"command echo", "zigbee2mqtt/0xaaa/set", `{"state":"ON"}`},
		{"foreign prefix", "homeassistant/0xaaa", `{"temperature":1}`},
		{"malformed payload", "zigbee2mqtt/0xaaa", `{"temperature":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := handler(tt.topic, []byte(tt.payload)); err != nil {
				t.Fatalf("dropped message must not error: %v", err)
			}
			if len(st.docs) != 0 {
				t.Errorf("dropped message must not touch state: %v", st.docs)
			}
		})
	}
}

func TestPollWorkerRefreshesHTTPDevices(t *testing.T) {
	st := newMemStore()
	fetcher := &stubFetcher{
		responses: map[string]map[string]any{
			"http://10.0.0.5/report": {"relay": true, "power": 42.0},
		},
		failFor: map[string]bool{
			"http://10.0.0.6/report": true,
		},
	}
	devices := map[string]config.Device{
		"plug_ok":   {Type: device.TypePlug, Address: "10.0.0.5"},
		"plug_down": {Type: device.TypePlug, Address: "10.0.0.6"},
		"lamp1":     {Type: device.TypeZigbeeLamp, ZigbeeID: "0xlamp"},
	}
	registry := newRegistry(devices, st, fetcher)

	w := NewPollWorker(registry, config.HTTPPollWorker{Enabled: true, Interval: 30}, testLogger())
	w.tick(context.Background())

	if st.docs["plug_ok"]["relay"] != true || st.docs["plug_ok"]["online"] != true {
		t.Errorf("plug_ok not refreshed: %v", st.docs["plug_ok"])
	}
	if st.docs["plug_down"]["online"] != false {
		t.Errorf("plug_down must degrade to offline: %v", st.docs["plug_down"])
	}
	if _, touched := st.docs["lamp1"]; touched {
		t.Error("bus devices are not polled")
	}
}

func TestMetricsWorkerExportsNumericFieldsAndAge(t *testing.T) {
	st := newMemStore()
	st.docs["sensor1"] = map[string]any{
		"temperature": 21.5,
		"battery":     90,
		"online":      true,   // bool, skipped
		"vendor":      "acme", // string, skipped
		"last_update": map[string]any{"unix": 1699999940, "human": "earlier"},
	}
	devices := map[string]config.Device{
		"sensor1": {Type: device.TypeZigbeeLog, ZigbeeID: "0xaaa", Metrics: true},
		"sensor2": {Type: device.TypeZigbeeLog, ZigbeeID: "0xbbb"},
	}
	st.docs["sensor2"] = map[string]any{"temperature": 10.0}

	registry := newRegistry(devices, st, &stubFetcher{})
	sink := newFakeSink()

	w := NewMetricsWorker(registry, sink, config.MetricsWorker{Enabled: true, Interval: 60}, testLogger())
	w.now = func() time.Time { return time.Unix(1700000000, 0) }
	w.tick(context.Background())

	if got := sink.metrics["sensor1/temperature"]; got != 21.5 {
		t.Errorf("temperature = %v, want 21.5", got)
	}
	if got := sink.metrics["sensor1/battery"]; got != 90 {
		t.Errorf("battery = %v, want 90", got)
	}
	for key := range sink.metrics {
		if key == "sensor1/online" || key == "sensor1/vendor" {
			t.Errorf("non-numeric field exported: %s", key)
		}
	}

	if got := sink.ages["sensor1"]; got != 60 {
		t.Errorf("last-received age = %v, want 60", got)
	}

	// Devices without metrics enabled are skipped entirely.
	if _, found := sink.metrics["sensor2/temperature"]; found {
		t.Error("sensor2 has metrics disabled and must not export")
	}
	if _, found := sink.ages["sensor2"]; found {
		t.Error("sensor2 has metrics disabled and must not export an age")
	}
}
