package mqtt

import (
	"fmt"
)

// Subscribe registers handler for topic, which may contain wildcards.
// Group addresses contain slashes, so per-address patterns use the
// multi-level wildcard:
//
//	err := client.Subscribe(mqtt.Topics{}.BridgeCommands("knx"), 1, handleCommand)
//
// The subscription is remembered and restored after a reconnect. A second
// Subscribe on the same topic replaces the handler.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: %s: nil handler", ErrSubscribeFailed, topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subsMu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.subsMu.Unlock()

	token := c.pc.Subscribe(topic, qos, c.wrapHandler(handler))
	var err error
	if token.WaitTimeout(defaultPublishTimeout) {
		err = token.Error()
	} else {
		err = fmt.Errorf("timeout after %v", defaultPublishTimeout)
	}
	if err != nil {
		c.forget(topic)
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}
	return nil
}

// Unsubscribe removes the subscription for topic. Messages already in
// flight may still reach the old handler.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.forget(topic)

	token := c.pc.Unsubscribe(topic)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: %s: timeout after %v", ErrUnsubscribeFailed, topic, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnsubscribeFailed, topic, err)
	}
	return nil
}

func (c *Client) forget(topic string) {
	c.subsMu.Lock()
	delete(c.subs, topic)
	c.subsMu.Unlock()
}
