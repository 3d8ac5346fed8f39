package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-dpt/internal/infrastructure/config"
)

// Client is the gateway's broker connection.
//
// It carries three kinds of traffic: framed telegrams to and from the line
// driver, decoded states and acknowledgements for consumers, and the
// bridge's health. Subscriptions are remembered and restored after every
// reconnect, since the session is clean.
//
// All methods are safe for concurrent use.
type Client struct {
	pc  pahomqtt.Client
	cfg config.MQTTConfig

	connected atomic.Bool

	subsMu sync.RWMutex
	subs   map[string]subscription

	hooksMu      sync.RWMutex
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger

	// deliver hands a validated message to the broker. Nil means the paho
	// connection.
	deliver func(topic string, qos byte, retained bool, payload []byte) error
}

// Logger is the logging surface used for handler failures and reconnects.
// *logging.Logger satisfies it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler is invoked for each received message, on a paho goroutine.
// A returned error is logged; the message is acknowledged regardless.
//
// It is an alias so that client interfaces declared elsewhere can take
// plain func literals.
type MessageHandler = func(topic string, payload []byte) error

// Connect dials the broker described by cfg and waits for the first
// connection. Options such as WithWill are applied after the settings
// from cfg. Without a will the broker publishes nothing when the gateway
// drops off.
func Connect(cfg config.MQTTConfig, extra ...Option) (*Client, error) {
	opts := buildClientOptions(cfg)
	for _, apply := range extra {
		apply(opts)
	}

	c := &Client{
		cfg:  cfg,
		subs: make(map[string]subscription),
	}

	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.onConnected() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.onConnectionLost(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT reconnecting", "broker", cfg.Broker.Host)
		}
	})

	c.pc = pahomqtt.NewClient(opts)
	token := c.pc.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs asynchronously and may not have fired yet.
	c.connected.Store(true)
	return c, nil
}

func (c *Client) onConnected() {
	c.connected.Store(true)
	c.resubscribe()

	c.hooksMu.RLock()
	hook := c.onConnect
	c.hooksMu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (c *Client) onConnectionLost(err error) {
	c.connected.Store(false)

	c.hooksMu.RLock()
	hook := c.onDisconnect
	c.hooksMu.RUnlock()
	if hook != nil {
		hook(err)
	}
}

// resubscribe restores every tracked subscription. Failures are logged
// without blocking the connect handler.
func (c *Client) resubscribe() {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()

	for topic, sub := range c.subs {
		token := c.pc.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
		go func(topic string) {
			if token.WaitTimeout(defaultPublishTimeout) && token.Error() == nil {
				return
			}
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT resubscribe failed", "topic", topic, "error", token.Error())
			}
		}(topic)
	}
}

// Close disconnects after letting in-flight publishes drain. The bridge
// publishes its own final health before this runs, so no status message
// is sent here.
func (c *Client) Close() error {
	if c.pc == nil {
		return nil
	}
	c.pc.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.pc != nil && c.pc.IsConnected()
}

// SetOnConnect sets a callback run after the initial connect and every
// reconnect, once subscriptions have been restored.
func (c *Client) SetOnConnect(callback func()) {
	c.hooksMu.Lock()
	c.onConnect = callback
	c.hooksMu.Unlock()
}

// SetOnDisconnect sets a callback run when the connection is lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.hooksMu.Lock()
	c.onDisconnect = callback
	c.hooksMu.Unlock()
}

// SetLogger sets the logger. Without one, handler errors are dropped.
func (c *Client) SetLogger(logger Logger) {
	c.hooksMu.Lock()
	c.logger = logger
	c.hooksMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.hooksMu.RLock()
	defer c.hooksMu.RUnlock()
	return c.logger
}

// wrapHandler adapts a MessageHandler to paho. Panics and returned errors
// are logged.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
			}
		}
	}
}
