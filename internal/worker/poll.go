package worker

import (
	"context"
	"time"

	"github.com/hubforge/homehub/internal/device"
	"github.com/hubforge/homehub/internal/infrastructure/config"
	"github.com/hubforge/homehub/internal/infrastructure/logging"
)

// PollWorker periodically refreshes every HTTP-class device by
// dispatching getState. One tick walks all devices; a failure on one
// device logs and continues, never aborting the tick or the loop.
type PollWorker struct {
	registry *device.Registry
	interval time.Duration
	logger   *logging.Logger
}

// NewPollWorker creates the HTTP poll loop from config.
func NewPollWorker(registry *device.Registry, cfg config.HTTPPollWorker, logger *logging.Logger) *PollWorker {
	return &PollWorker{
		registry: registry,
		interval: time.Duration(cfg.Interval) * time.Second,
		logger:   logger.With("worker", "http_poll"),
	}
}

// Run executes the poll loop until ctx is cancelled.
func (w *PollWorker) Run(ctx context.Context) {
	w.logger.Info("poll worker started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("poll worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *PollWorker) tick(ctx context.Context) {
	devices, err := w.registry.LoadAll(ctx, device.TransportHTTP)
	if err != nil {
		w.logger.Error("loading devices for poll tick failed", "error", err)
		return
	}

	for name, inst := range devices {
		res, err := inst.Dispatch(ctx, "getState", nil)
		if err != nil {
			w.logger.Warn("poll getState rejected", "device", name, "error", err)
			continue
		}
		if !res.OK {
			w.logger.Warn("poll getState failed", "device", name, "reason", res.Err)
			continue
		}
		w.logger.Debug("poll getState ok", "device", name)
	}
}
