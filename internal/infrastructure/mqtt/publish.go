package mqtt

import (
	"fmt"
)

// maxPayloadSize caps a single message at 1 MiB. Telegrams and states are
// a few hundred bytes at most.
const maxPayloadSize = 1 << 20

var topics Topics

// PublishTelegram sends a framed group telegram to the line driver on the
// protocol's bus tx topic. Telegrams are never retained.
func (c *Client) PublishTelegram(protocol string, frame []byte) error {
	return c.Publish(topics.BusTx(protocol), frame, c.qos(), false)
}

// PublishState publishes the decoded value of a group address. States are
// retained, so a new subscriber receives the last value of every address.
func (c *Client) PublishState(protocol, address string, payload []byte) error {
	return c.PublishRetained(topics.BridgeState(protocol, address), payload)
}

// PublishAck answers a command on the address's ack topic.
func (c *Client) PublishAck(protocol, address string, payload []byte) error {
	return c.Publish(topics.BridgeAck(protocol, address), payload, c.qos(), false)
}

// PublishHealth publishes a retained bridge health message. It shares its
// topic with the will registered through WithWill.
func (c *Client) PublishHealth(protocol string, payload []byte) error {
	return c.PublishRetained(topics.BridgeHealth(protocol), payload)
}

// PublishRetained publishes a retained message at the configured QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, c.qos(), true)
}

// Publish sends payload to topic.
//
// QoS 1 (the default) may deliver duplicates; consumers of state topics
// treat every message as the current value, so duplicates are harmless.
//
// Example:
//
//	err := client.Publish(mqtt.Topics{}.BusRx("knx"), frame, 1, false)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, len(payload), maxPayloadSize)
	}

	if c.deliver != nil {
		return c.deliver(topic, qos, retained, payload)
	}
	return c.publishBroker(topic, qos, retained, payload)
}

func (c *Client) publishBroker(topic string, qos byte, retained bool, payload []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.pc.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: %s: timeout after %v", ErrPublishFailed, topic, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// qos returns the configured QoS, clamped to the valid range.
func (c *Client) qos() byte {
	switch {
	case c.cfg.QoS < 0:
		return 0
	case c.cfg.QoS > maxQoS:
		return maxQoS
	default:
		return byte(c.cfg.QoS)
	}
}
