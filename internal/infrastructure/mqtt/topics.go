package mqtt

import "fmt"

// Topic prefixes.
//
// Bridge topics use the flat scheme graylogic/{category}/{protocol}/{address}.
// Raw bus traffic uses graylogic/bus/{protocol}/{rx|tx}.
const (
	// TopicPrefixBridge is the base for all bridge topics.
	TopicPrefixBridge = "graylogic"

	// TopicPrefixBus is the base for raw telegram topics.
	TopicPrefixBus = "graylogic/bus"
)

// Topics provides builders for the gateway's MQTT topics.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.BridgeState("knx", "1/2/3")
//	// Returns: "graylogic/state/knx/1/2/3"
//
// Group addresses contain slashes, so a per-address subscription needs the
// multi-level wildcard (see BridgeCommands).
type Topics struct{}

// BusRx returns the topic on which framed telegrams read from the bus arrive.
//
// Example: graylogic/bus/knx/rx
func (Topics) BusRx(protocol string) string {
	return fmt.Sprintf("%s/%s/rx", TopicPrefixBus, protocol)
}

// BusTx returns the topic on which framed telegrams for the bus are published.
//
// Example: graylogic/bus/knx/tx
func (Topics) BusTx(protocol string) string {
	return fmt.Sprintf("%s/%s/tx", TopicPrefixBus, protocol)
}

// BridgeState returns the topic for decoded datapoint values.
//
// Example: graylogic/state/knx/1/2/3
func (Topics) BridgeState(protocol, address string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeCommand returns the topic for commands to a bound address.
//
// Example: graylogic/command/knx/1/2/3
func (Topics) BridgeCommand(protocol, address string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeAck returns the topic for command acknowledgements.
//
// Example: graylogic/ack/knx/1/2/3
func (Topics) BridgeAck(protocol, address string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeHealth returns the topic for bridge health status.
//
// Example: graylogic/health/knx
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefixBridge, protocol)
}

// BridgeCommands returns a pattern matching every command for a protocol.
//
// Pattern: graylogic/command/knx/#
func (Topics) BridgeCommands(protocol string) string {
	return fmt.Sprintf("%s/command/%s/#", TopicPrefixBridge, protocol)
}

// BridgeStates returns a pattern matching every state for a protocol.
//
// Pattern: graylogic/state/knx/#
func (Topics) BridgeStates(protocol string) string {
	return fmt.Sprintf("%s/state/%s/#", TopicPrefixBridge, protocol)
}

// AddressFromTopic returns the address suffix of a bridge topic built with
// the given category and protocol, or false if the topic does not match.
//
// Example: AddressFromTopic("graylogic/command/knx/1/2/3", "command", "knx") = "1/2/3"
func (Topics) AddressFromTopic(topic, category, protocol string) (string, bool) {
	prefix := fmt.Sprintf("%s/%s/%s/", TopicPrefixBridge, category, protocol)
	if len(topic) <= len(prefix) || topic[:len(prefix)] != prefix {
		return "", false
	}
	return topic[len(prefix):], true
}
