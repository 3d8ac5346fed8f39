package mqtt

import "errors"

// Errors returned by the client. Publish and subscribe failures wrap one of
// these with the topic, so errors.Is works on the result.
var (
	ErrNotConnected      = errors.New("mqtt: not connected")
	ErrConnectionFailed  = errors.New("mqtt: connect failed")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS means a QoS above 2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	ErrInvalidTopic = errors.New("mqtt: empty topic")

	// ErrPayloadTooLarge means the payload exceeds the 1 MiB limit.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")
)
