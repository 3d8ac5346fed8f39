package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/gray-logic-dpt/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	// Batch defaults for a non-positive batch_size or flush_interval.
	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Client records decoded group values and bridge counters in an InfluxDB v2
// bucket. Writes are batched and never block the telegram path; a write on
// a closed or unconnected client is dropped.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	connected atomic.Bool

	onErrorMu sync.RWMutex
	onError   func(err error)
}

// Connect creates the client and pings the server. It returns ErrDisabled
// when the influxdb section is switched off, so callers can treat metrics
// as optional.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, batchOptions(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrConnectionFailed, cfg.URL, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: %s not healthy", ErrConnectionFailed, cfg.URL)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
	}
	c.connected.Store(true)

	go c.forwardWriteErrors(c.writeAPI.Errors())
	return c, nil
}

// batchOptions applies the configured batch size and flush interval
// (seconds), falling back to the defaults for non-positive values.
func batchOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	size := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		size = uint(cfg.BatchSize)
	}
	interval := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		interval = time.Duration(cfg.FlushInterval) * time.Second
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(size).
		SetFlushInterval(uint(interval.Milliseconds()))
}

// forwardWriteErrors passes asynchronous batch failures to the error
// callback, wrapped in ErrWriteFailed.
func (c *Client) forwardWriteErrors(errs <-chan error) {
	for err := range errs {
		c.onErrorMu.RLock()
		callback := c.onError
		c.onErrorMu.RUnlock()

		if callback != nil {
			callback(fmt.Errorf("%w: %w", ErrWriteFailed, err))
		}
	}
}

// Close flushes pending points and shuts the client down. Calling it more
// than once, or on a client that never connected, is a no-op.
func (c *Client) Close() error {
	if !c.connected.CompareAndSwap(true, false) {
		return nil
	}
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}

// HealthCheck pings the server, bounded by ctx and a five second timeout.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check: server not healthy")
	}
	return nil
}

// IsConnected reports whether Connect succeeded and Close has not run.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// SetOnError sets the callback for asynchronous write failures.
func (c *Client) SetOnError(callback func(err error)) {
	c.onErrorMu.Lock()
	c.onError = callback
	c.onErrorMu.Unlock()
}
