// Package influxdb provides InfluxDB connectivity for HomeHub.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, non-blocking batched writes, and health monitoring. The
// metrics worker uses it to export numeric device state fields and
// last-received ages on a fixed interval.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.Metrics.Influx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteDeviceMetric("hallway_sensor", "temperature", 21.5)
//
// # Error Handling
//
// Writes are non-blocking; batch errors are delivered via the SetOnError
// callback. Connection and health check errors are returned directly.
package influxdb
