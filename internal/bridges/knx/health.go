package knx

import (
	"context"
	"sync"
	"time"
)

const defaultHealthInterval = 30 * time.Second

// HealthReporter publishes periodic health messages and, when a metrics
// writer is configured, the bridge counters.
type HealthReporter struct {
	bridgeID  string
	version   string
	startTime time.Time
	interval  time.Duration
	publisher HealthPublisher
	codec     PayloadCodec
	stats     *Stats
	metrics   StatsWriter

	bindingCount   int
	bindingCountMu sync.RWMutex

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// HealthPublisher publishes retained health messages for a protocol.
// *mqtt.Client satisfies it.
type HealthPublisher interface {
	PublishHealth(protocol string, payload []byte) error
	IsConnected() bool
}

// StatsWriter receives the bridge counters on every health tick.
type StatsWriter interface {
	WriteBridgeStats(bridgeID string, counters map[string]int64, ts time.Time)
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	BridgeID string
	Version  string

	// Interval is how often to publish health status. Default: 30 seconds.
	Interval time.Duration

	Publisher HealthPublisher

	// Codec serialises health messages. Default: JSON.
	Codec PayloadCodec

	Stats *Stats

	// Metrics is optional.
	Metrics StatsWriter
}

// NewHealthReporter creates a reporter. Call Start to begin reporting.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	codec := cfg.Codec
	if codec == nil {
		codec = jsonCodec{}
	}
	stats := cfg.Stats
	if stats == nil {
		stats = &Stats{}
	}

	return &HealthReporter{
		bridgeID:  cfg.BridgeID,
		version:   cfg.Version,
		startTime: time.Now(),
		interval:  interval,
		publisher: cfg.Publisher,
		codec:     codec,
		stats:     stats,
		metrics:   cfg.Metrics,
		done:      make(chan struct{}),
	}
}

// Start begins periodic health reporting until ctx is cancelled or Stop
// is called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop halts reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // Best-effort during shutdown
		h.publishStatus(HealthStopping, "")
	})
}

// SetBindingCount updates the number of loaded bindings.
func (h *HealthReporter) SetBindingCount(count int) {
	h.bindingCountMu.Lock()
	h.bindingCount = count
	h.bindingCountMu.Unlock()
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// PublishStarting publishes a "starting" status.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "bridge starting")
}

// PublishNow publishes the current health status immediately and writes
// the counters to the metrics writer.
func (h *HealthReporter) PublishNow() error {
	if h.metrics != nil {
		h.metrics.WriteBridgeStats(h.bridgeID, h.stats.Snapshot().Counters(), time.Now())
	}
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

// LWTPayload returns the Last Will and Testament payload for the MQTT
// connection.
func (h *HealthReporter) LWTPayload() ([]byte, error) {
	return h.codec.Marshal(NewLWTMessage(h.bridgeID))
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
		}
	}
}

func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}

	h.bindingCountMu.RLock()
	bindings := h.bindingCount
	h.bindingCountMu.RUnlock()
	if bindings == 0 {
		return HealthDegraded, "no bindings loaded"
	}

	return HealthHealthy, ""
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}

	h.bindingCountMu.RLock()
	bindings := h.bindingCount
	h.bindingCountMu.RUnlock()

	msg := NewHealthMessage(h.bridgeID, h.version, status, h.stats.Snapshot(), bindings, h.startTime)
	msg.Reason = reason

	payload, err := h.codec.Marshal(msg)
	if err != nil {
		return err
	}
	return h.publisher.PublishHealth(Protocol, payload)
}

func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
