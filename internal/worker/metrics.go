package worker

import (
	"context"
	"time"

	"github.com/hubforge/homehub/internal/device"
	"github.com/hubforge/homehub/internal/infrastructure/config"
	"github.com/hubforge/homehub/internal/infrastructure/logging"
)

// MetricsSink receives exported device gauges. Satisfied by the
// infrastructure influxdb client.
type MetricsSink interface {
	WriteDeviceMetric(device string, field string, value float64)
	WriteLastReceivedAge(device string, ageSeconds float64)
}

// MetricsWorker exports device state to the metrics sink on a fixed
// interval. For every device with metrics enabled it reloads the stored
// state and writes each numeric top-level field plus a derived
// last-received age gauge.
type MetricsWorker struct {
	registry *device.Registry
	sink     MetricsSink
	interval time.Duration
	logger   *logging.Logger

	// now is the clock for age derivation, swappable in tests.
	now func() time.Time
}

// NewMetricsWorker creates the metrics export loop from config.
func NewMetricsWorker(registry *device.Registry, sink MetricsSink, cfg config.MetricsWorker, logger *logging.Logger) *MetricsWorker {
	return &MetricsWorker{
		registry: registry,
		sink:     sink,
		interval: time.Duration(cfg.Interval) * time.Second,
		logger:   logger.With("worker", "metrics"),
		now:      time.Now,
	}
}

// Run executes the export loop until ctx is cancelled.
func (w *MetricsWorker) Run(ctx context.Context) {
	w.logger.Info("metrics worker started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("metrics worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *MetricsWorker) tick(ctx context.Context) {
	devices, err := w.registry.LoadAll(ctx, "")
	if err != nil {
		w.logger.Error("loading devices for metrics tick failed", "error", err)
		return
	}

	for name, inst := range devices {
		if !inst.MetricsEnabled() {
			continue
		}
		w.export(name, inst.State())
	}
}

func (w *MetricsWorker) export(name string, state map[string]any) {
	for field, value := range state {
		if _, isBool := value.(bool); isBool {
			continue
		}
		f, ok := numericValue(value)
		if !ok {
			continue
		}
		w.sink.WriteDeviceMetric(name, field, f)
	}

	if unix, ok := device.LastUpdateUnix(state); ok {
		age := float64(w.now().Unix() - unix)
		w.sink.WriteLastReceivedAge(name, age)
	}
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
