// Package influxdb provides InfluxDB connectivity for the datapoint gateway.
//
// It wraps influxdb-client-go v2. Points carry the receive time of the
// telegram they came from, not the time the batch is flushed.
//
// # Purpose
//
// This package records:
//   - Decoded numeric and boolean group values (knx_datapoint)
//   - Bridge counters published alongside health (knx_bridge)
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "graylogic",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteDatapoint(influxdb.Datapoint{GroupAddress: "1/2/3", DPT: "9.001", Value: 21.5})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Writes never return errors. Batch failures reach the SetOnError callback
// wrapped in ErrWriteFailed; the gateway logs them. Connection and health
// check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency telemetry data.
package influxdb
