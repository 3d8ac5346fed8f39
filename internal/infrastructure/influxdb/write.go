package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the gateway.
const (
	MeasurementDatapoint   = "knx_datapoint"
	MeasurementBridgeStats = "knx_bridge"
)

// Datapoint is one decoded group value ready to be recorded.
type Datapoint struct {
	GroupAddress string
	DPT          string
	Name         string
	Unit         string
	Value        float64
	Time         time.Time
}

// WriteDatapoint records a decoded group value at the telegram's receive
// time, or now when the datapoint carries none.
//
// Example:
//
//	client.WriteDatapoint(influxdb.Datapoint{
//	    GroupAddress: "1/2/3", DPT: "9.001", Unit: "°C", Value: 21.5, Time: msg.Timestamp,
//	})
func (c *Client) WriteDatapoint(dp Datapoint) {
	ts := dp.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	tags, fields := datapointSeries(dp)
	c.WritePointWithTime(MeasurementDatapoint, tags, fields, ts)
}

// WriteBridgeStats records the bridge counters published with health.
func (c *Client) WriteBridgeStats(bridgeID string, counters map[string]int64, ts time.Time) {
	if len(counters) == 0 {
		return
	}
	fields := make(map[string]interface{}, len(counters))
	for k, v := range counters {
		fields[k] = v
	}
	c.WritePointWithTime(MeasurementBridgeStats, map[string]string{"bridge_id": bridgeID}, fields, ts)
}

// WritePointWithTime queues one point. It is dropped when the client is
// not connected.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}

// datapointSeries returns the tags and fields of a knx_datapoint point.
// Empty name and unit tags are omitted to keep series cardinality down.
func datapointSeries(dp Datapoint) (map[string]string, map[string]interface{}) {
	tags := map[string]string{
		"group_address": dp.GroupAddress,
		"dpt":           dp.DPT,
	}
	if dp.Name != "" {
		tags["name"] = dp.Name
	}
	if dp.Unit != "" {
		tags["unit"] = dp.Unit
	}
	return tags, map[string]interface{}{"value": dp.Value}
}
