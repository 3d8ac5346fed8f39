package knx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-dpt/internal/datapoint"
	"github.com/nerrad567/gray-logic-dpt/internal/dpt"
	"github.com/nerrad567/gray-logic-dpt/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-dpt/internal/infrastructure/mqtt"
)

// recordTimeout bounds the last-value write for one telegram.
const recordTimeout = 5 * time.Second

var topics mqtt.Topics

// Logger is the structured logging interface used by the bridge.
// *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MQTTClient is the subset of the MQTT client used by the bridge.
// *mqtt.Client satisfies it.
type MQTTClient interface {
	HealthPublisher
	PublishTelegram(protocol string, frame []byte) error
	PublishState(protocol, address string, payload []byte) error
	PublishAck(protocol, address string, payload []byte) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
	Unsubscribe(topic string) error
}

// BindingStore is the subset of the datapoint repository used by the bridge.
type BindingStore interface {
	List(ctx context.Context) ([]datapoint.Binding, error)
	RecordValue(ctx context.Context, groupAddress string, value any, at time.Time) error
}

// MetricsWriter receives numeric datapoint values and bridge counters.
// *influxdb.Client satisfies it.
type MetricsWriter interface {
	WriteDatapoint(dp influxdb.Datapoint)
	StatsWriter
}

// Config holds the bridge settings.
type Config struct {
	// ID identifies the bridge in health messages and metrics.
	ID string

	Version string

	// PayloadFormat is "json" (default) or "cbor".
	PayloadFormat string

	HealthInterval time.Duration
}

// BridgeOptions holds the dependencies of a bridge.
type BridgeOptions struct {
	Config Config

	MQTTClient MQTTClient

	// Bindings supplies the group address to datapoint type table.
	Bindings BindingStore

	// Registry resolves datapoint types. Default: dpt.Default().
	Registry *dpt.Registry

	// Stats is shared with the registry's diagnostic hook. Optional.
	Stats *Stats

	// Metrics is optional.
	Metrics MetricsWriter

	// OnState is called after every published state. Optional.
	OnState func(StateMessage)

	Logger Logger
}

// binding is a datapoint binding with its address parsed and type resolved.
type binding struct {
	ga      GroupAddress
	dpt     string
	name    string
	measure string
	handle  *dpt.Handle
}

// Bridge translates between raw KNX telegrams on the bus topics and decoded
// datapoint values on the state, command and ack topics.
//
//	bus rx  ──► decode ──► state (+ metrics, last value, OnState)
//	command ──► encode ──► bus tx ──► ack
//
// All methods are safe for concurrent use.
type Bridge struct {
	cfg      Config
	mqtt     MQTTClient
	store    BindingStore
	registry *dpt.Registry
	codec    PayloadCodec
	stats    *Stats
	metrics  MetricsWriter
	onState  func(StateMessage)
	health   *HealthReporter

	bindings   map[GroupAddress]binding
	bindingsMu sync.RWMutex

	// Shutdown coordination
	done      chan struct{}
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a bridge. Call Start to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Bindings == nil {
		return nil, fmt.Errorf("binding store is required")
	}
	if opts.Config.ID == "" {
		return nil, fmt.Errorf("bridge ID is required")
	}

	codec, err := NewPayloadCodec(opts.Config.PayloadFormat)
	if err != nil {
		return nil, err
	}

	registry := opts.Registry
	if registry == nil {
		registry = dpt.Default()
	}
	stats := opts.Stats
	if stats == nil {
		stats = &Stats{}
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		cfg:       opts.Config,
		mqtt:      opts.MQTTClient,
		store:     opts.Bindings,
		registry:  registry,
		codec:     codec,
		stats:     stats,
		onState:   opts.OnState,
		bindings:  make(map[GroupAddress]binding),
		done:      make(chan struct{}),
		ctx:       ctx,
		ctxCancel: ctxCancel,
		logger:    opts.Logger,
	}

	hcfg := HealthReporterConfig{
		BridgeID:  opts.Config.ID,
		Version:   opts.Config.Version,
		Interval:  opts.Config.HealthInterval,
		Publisher: opts.MQTTClient,
		Codec:     codec,
		Stats:     stats,
	}
	if opts.Metrics != nil {
		b.metrics = opts.Metrics
		hcfg.Metrics = opts.Metrics
	}
	b.health = NewHealthReporter(hcfg)
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start loads the bindings, subscribes to the receive and command topics
// and starts health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	select {
	case <-b.done:
		return ErrStopped
	default:
	}

	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	if err := b.ReloadBindings(ctx); err != nil {
		return err
	}

	rx := topics.BusRx(Protocol)
	if err := b.mqtt.Subscribe(rx, 1, b.handleBusMessage); err != nil {
		return fmt.Errorf("subscribe to %s: %w", rx, err)
	}

	commands := topics.BridgeCommands(Protocol)
	if err := b.mqtt.Subscribe(commands, 1, b.handleCommandMessage); err != nil {
		return fmt.Errorf("subscribe to %s: %w", commands, err)
	}

	b.health.Start(ctx)
	if err := b.health.PublishNow(); err != nil {
		b.logError("failed to publish healthy status", err)
	}

	b.logInfo("bridge started",
		"bridge_id", b.cfg.ID,
		"bindings", b.BindingCount(),
		"payload_format", b.codec.Name())
	return nil
}

// Stop unsubscribes, cancels in-flight work and publishes a final
// "stopping" health status. Safe to call multiple times.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.ctxCancel()

		for _, topic := range []string{topics.BusRx(Protocol), topics.BridgeCommands(Protocol)} {
			if err := b.mqtt.Unsubscribe(topic); err != nil {
				b.logDebug("unsubscribe skipped", "topic", topic, "reason", err.Error())
			}
		}

		b.health.Stop()

		b.logInfo("bridge stopped")
	})
}

// ReloadBindings replaces the binding table with the store's contents.
// Entries whose group address or datapoint type is invalid are logged and
// skipped. On a store error the previous table is kept.
func (b *Bridge) ReloadBindings(ctx context.Context) error {
	list, err := b.store.List(ctx)
	if err != nil {
		return fmt.Errorf("loading bindings: %w", err)
	}

	table := make(map[GroupAddress]binding, len(list))
	for _, dp := range list {
		ga, err := ParseGroupAddress(dp.GroupAddress)
		if err != nil {
			b.logWarn("skipping binding", "group_address", dp.GroupAddress, "error", err)
			continue
		}
		h, err := b.registry.Resolve(dp.DPT)
		if err != nil {
			b.logWarn("skipping binding", "group_address", dp.GroupAddress, "dpt", dp.DPT, "error", err)
			continue
		}
		table[ga] = binding{
			ga:      ga,
			dpt:     dp.DPT,
			name:    dp.Name,
			measure: dp.Measurement,
			handle:  h,
		}
	}

	b.bindingsMu.Lock()
	b.bindings = table
	b.bindingsMu.Unlock()

	b.health.SetBindingCount(len(table))
	b.logInfo("bindings loaded", "count", len(table), "skipped", len(list)-len(table))
	return nil
}

// BindingCount returns the number of active bindings.
func (b *Bridge) BindingCount() int {
	b.bindingsMu.RLock()
	defer b.bindingsMu.RUnlock()
	return len(b.bindings)
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() StatsSnapshot {
	return b.stats.Snapshot()
}

// Write encodes value for ga and publishes a group write on the transmit
// topic. A non-empty dptID overrides the bound type, and is required when
// ga is unbound. It returns the encoded data and the datapoint type used.
func (b *Bridge) Write(ga GroupAddress, value any, dptID string) ([]byte, string, error) {
	h, id, err := b.handleFor(ga, dptID)
	if err != nil {
		return nil, "", err
	}

	data, err := h.Encode(value)
	if err != nil {
		b.stats.encodeErrors.Add(1)
		return nil, id, fmt.Errorf("%w: %s %s: %w", ErrEncodingFailed, ga, id, err)
	}

	t := NewWriteTelegram(ga, data, compactBits(h.BitLength))
	if err := b.send(t); err != nil {
		return nil, id, err
	}
	return data, id, nil
}

// Read publishes a group read request for ga.
func (b *Bridge) Read(ga GroupAddress) error {
	return b.send(NewReadTelegram(ga))
}

func (b *Bridge) send(t Telegram) error {
	select {
	case <-b.done:
		return ErrStopped
	default:
	}

	if err := b.mqtt.PublishTelegram(Protocol, t.Encode()); err != nil {
		return fmt.Errorf("%w: %w", ErrTelegramFailed, err)
	}
	b.stats.telegramsTx.Add(1)
	b.logDebug("telegram sent", "telegram", t.String())
	return nil
}

// handleFor resolves the codec for ga, preferring an explicit dptID.
func (b *Bridge) handleFor(ga GroupAddress, dptID string) (*dpt.Handle, string, error) {
	if dptID = strings.TrimSpace(dptID); dptID != "" {
		h, err := b.registry.Resolve(dptID)
		if err != nil {
			return nil, dptID, err
		}
		return h, dptID, nil
	}

	b.bindingsMu.RLock()
	bound, ok := b.bindings[ga]
	b.bindingsMu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrNotBound, ga)
	}
	return bound.handle, bound.dpt, nil
}

// handleBusMessage processes a telegram received from the bus.
func (b *Bridge) handleBusMessage(_ string, payload []byte) error {
	t, err := ParseTelegram(payload)
	if err != nil {
		b.stats.decodeErrors.Add(1)
		return err
	}
	b.stats.telegramsRx.Add(1)

	if t.IsRead() {
		b.logDebug("read request seen", "group_address", t.Destination.String(), "source", t.Source)
		return nil
	}

	b.bindingsMu.RLock()
	bound, ok := b.bindings[t.Destination]
	b.bindingsMu.RUnlock()
	if !ok {
		b.stats.unbound.Add(1)
		return nil
	}

	value, err := bound.handle.Decode(t.Data)
	if err != nil {
		b.stats.decodeErrors.Add(1)
		return fmt.Errorf("%w: ga=%s dpt=%s: %w", ErrDecodingFailed, t.Destination, bound.dpt, err)
	}

	msg := NewStateMessage(t, bound.dpt, bound.name, bound.handle.Unit(), value)
	encoded, err := b.codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := b.mqtt.PublishState(Protocol, msg.Address, encoded); err != nil {
		return fmt.Errorf("publishing state: %w", err)
	}

	if b.onState != nil {
		b.onState(msg)
	}
	b.writeMetric(bound, msg)
	b.recordValue(msg)
	return nil
}

func (b *Bridge) writeMetric(bound binding, msg StateMessage) {
	if b.metrics == nil {
		return
	}
	v, ok := numericValue(msg.Value)
	if !ok {
		return
	}
	name := bound.measure
	if name == "" {
		name = bound.name
	}
	b.metrics.WriteDatapoint(influxdb.Datapoint{
		GroupAddress: msg.Address,
		DPT:          msg.DPT,
		Name:         name,
		Unit:         msg.Unit,
		Value:        v,
		Time:         msg.Timestamp,
	})
}

func (b *Bridge) recordValue(msg StateMessage) {
	ctx, cancel := context.WithTimeout(b.ctx, recordTimeout)
	defer cancel()

	err := b.store.RecordValue(ctx, msg.Address, msg.Value, msg.Timestamp)
	if err != nil && !errors.Is(err, datapoint.ErrNotFound) {
		b.logDebug("last value not recorded", "group_address", msg.Address, "reason", err.Error())
	}
}

// numericValue maps decoded values onto a metric field.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// handleCommandMessage processes a write or read command.
func (b *Bridge) handleCommandMessage(topic string, payload []byte) error {
	var cmd CommandMessage
	address, ok := topics.AddressFromTopic(topic, "command", Protocol)
	if !ok {
		return fmt.Errorf("unexpected command topic %q", topic)
	}

	if err := b.codec.Unmarshal(payload, &cmd); err != nil {
		b.publishAck(address, NewAckError(cmd, address, ErrCodeInvalidCommand, err.Error()))
		return fmt.Errorf("parsing command: %w", err)
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	ga, err := ParseGroupAddress(address)
	if err != nil {
		b.publishAck(address, NewAckError(cmd, address, ErrCodeInvalidAddress, err.Error()))
		return err
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"group_address", address,
		"read", cmd.Read)

	if cmd.Read {
		if err := b.Read(ga); err != nil {
			b.publishAck(address, NewAckError(cmd, address, ErrCodeBridgeError, err.Error()))
			return err
		}
		b.publishAck(address, NewAckMessage(cmd, address, "", nil))
		return nil
	}

	data, id, err := b.Write(ga, cmd.Value, cmd.DPT)
	if err != nil {
		b.publishAck(address, NewAckError(cmd, address, ackCode(err), err.Error()))
		return err
	}
	b.publishAck(address, NewAckMessage(cmd, address, id, data))
	return nil
}

// ackCode maps a write error onto an acknowledgement error code.
func ackCode(err error) string {
	switch {
	case errors.Is(err, ErrNotBound):
		return ErrCodeNotConfigured
	case errors.Is(err, dpt.ErrUnknownType), errors.Is(err, dpt.ErrMalformedIdentifier):
		return ErrCodeUnknownDPT
	case errors.Is(err, ErrEncodingFailed):
		return ErrCodeInvalidValue
	default:
		return ErrCodeBridgeError
	}
}

func (b *Bridge) publishAck(address string, ack AckMessage) {
	payload, err := b.codec.Marshal(ack)
	if err == nil {
		err = b.mqtt.PublishAck(Protocol, address, payload)
	}
	if err != nil {
		b.logError("failed to publish ack", err)
	}
	if ack.Error != nil {
		b.logWarn("command failed",
			"command_id", ack.CommandID,
			"group_address", address,
			"code", ack.Error.Code,
			"message", ack.Error.Message)
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	b.health.SetLogger(logger)
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logInfo(msg string, args ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, args...)
	}
}

func (b *Bridge) logWarn(msg string, args ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, args...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}

func (b *Bridge) logDebug(msg string, args ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, args...)
	}
}
