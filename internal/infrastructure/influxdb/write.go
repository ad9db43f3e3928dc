package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteDeviceMetric writes a single numeric device state field to InfluxDB.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Points land in the device_state measurement tagged by device name and
// field, so dashboards can filter per device or per field.
//
// Example:
//
//	client.WriteDeviceMetric("hallway_sensor", "temperature", 21.5)
//	client.WriteDeviceMetric("kettle_plug", "power", 1820.0)
func (c *Client) WriteDeviceMetric(device string, field string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"device": device,
			"field":  field,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteLastReceivedAge records how long ago a device last reported, in
// seconds. Exported alongside the numeric fields so dashboards can alert
// on silent devices.
func (c *Client) WriteLastReceivedAge(device string, ageSeconds float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_last_received",
		map[string]string{
			"device": device,
		},
		map[string]interface{}{
			"age_seconds": ageSeconds,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
