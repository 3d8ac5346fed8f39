// Package mqtt is the datapoint gateway's broker connection.
//
// The gateway never opens a bus socket. A line driver (knxd, a tunnelling
// client, a test harness) publishes framed group telegrams on the bus rx
// topic and forwards whatever arrives on the bus tx topic:
//
//	KNX line driver ↔ MQTT Broker ↔ dptgateway ↔ MQTT Broker ↔ consumers
//
// Topic layout (see Topics):
//
//	graylogic/bus/{protocol}/{rx|tx}          framed telegrams
//	graylogic/state/{protocol}/{ga}           decoded values, retained
//	graylogic/command/{protocol}/{ga}         write and read commands
//	graylogic/ack/{protocol}/{ga}             command results
//	graylogic/health/{protocol}               bridge health, retained, also the will
//
// The client publishes on these through PublishTelegram, PublishState,
// PublishAck and PublishHealth, at the QoS from configuration.
//
// TLS is required for production deployments (cfg.Broker.TLS=true);
// anonymous access is only for local development.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT,
//	    mqtt.WithWill(mqtt.Topics{}.BridgeHealth("knx"), offline, 1, true))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.BusRx("knx"), 1, handleTelegram)
//	err = client.PublishTelegram("knx", frame)
package mqtt
