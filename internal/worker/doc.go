// Package worker contains the long-lived background loops that keep
// persisted device state converged with physical reality: an HTTP poll
// loop for devices with native REST APIs, a bus subscription loop for
// zigbee-class devices, and a metrics export loop feeding InfluxDB.
//
// Every loop runs until its context is cancelled. Per-device failures
// are logged and skipped; nothing a single device does can terminate a
// worker.
package worker
