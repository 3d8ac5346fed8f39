// Package knx implements the KNX datapoint bridge for the Gray Logic gateway.
//
// The bridge sits between the raw telegram topics fed by a bus interface
// and the decoded state/command topics used by everything else. It owns no
// bus connection of its own: framed telegrams arrive on graylogic/bus/knx/rx
// and leave on graylogic/bus/knx/tx.
//
// # Architecture
//
//	┌─────────────┐  bus rx/tx  ┌─────────────┐  state/command/ack  ┌──────────┐
//	│ bus adapter │◄───────────►│   Bridge    │◄───────────────────►│ clients  │
//	└─────────────┘    MQTT     └──────┬──────┘        MQTT         └──────────┘
//	                                   │
//	                     bindings (SQLite), metrics (InfluxDB)
//
// Every group address the bridge handles is bound to a datapoint type by a
// datapoint.Binding. The type is resolved through a dpt.Registry once, when
// bindings are loaded, and the resulting handle is used for every telegram.
//
// # Group Addresses
//
// Group addresses use the 3-level format Main/Middle/Sub:
//
//	addr, err := knx.ParseGroupAddress("1/2/3")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(addr.ToUint16()) // 2563
//
// # Compact Frames
//
// Types of 6 bits or fewer (DPT1, DPT3) travel in the low bits of the APCI
// byte. Everything else, including 1-byte types whose value happens to be
// small, is sent with the data after the APCI byte.
//
// # Payload Formats
//
// State, ack and health messages are JSON by default. Setting the payload
// format to "cbor" switches all of them, and the expected command format,
// to CBOR.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
package knx
