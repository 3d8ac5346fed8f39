package knxnetip

import "fmt"

// ServiceType identifies a KNXnet/IP service in the frame header.
type ServiceType uint16

// KNXnet/IP service types.
const (
	SearchRequest              ServiceType = 0x0201
	SearchResponse             ServiceType = 0x0202
	DescriptionRequest         ServiceType = 0x0203
	DescriptionResponse        ServiceType = 0x0204
	ConnectRequest             ServiceType = 0x0205
	ConnectResponse            ServiceType = 0x0206
	ConnectionStateRequest     ServiceType = 0x0207
	ConnectionStateResponse    ServiceType = 0x0208
	DisconnectRequest          ServiceType = 0x0209
	DisconnectResponse         ServiceType = 0x020A
	DeviceConfigurationRequest ServiceType = 0x0310
	DeviceConfigurationAck     ServiceType = 0x0311
	TunnelingRequest           ServiceType = 0x0420
	TunnelingAck               ServiceType = 0x0421
	RoutingIndication          ServiceType = 0x0530
	RoutingLostMessage         ServiceType = 0x0531
)

var serviceTypeNames = map[ServiceType]string{
	SearchRequest:              "SEARCH_REQUEST",
	SearchResponse:             "SEARCH_RESPONSE",
	DescriptionRequest:         "DESCRIPTION_REQUEST",
	DescriptionResponse:        "DESCRIPTION_RESPONSE",
	ConnectRequest:             "CONNECT_REQUEST",
	ConnectResponse:            "CONNECT_RESPONSE",
	ConnectionStateRequest:     "CONNECTIONSTATE_REQUEST",
	ConnectionStateResponse:    "CONNECTIONSTATE_RESPONSE",
	DisconnectRequest:          "DISCONNECT_REQUEST",
	DisconnectResponse:         "DISCONNECT_RESPONSE",
	DeviceConfigurationRequest: "DEVICE_CONFIGURATION_REQUEST",
	DeviceConfigurationAck:     "DEVICE_CONFIGURATION_ACK",
	TunnelingRequest:           "TUNNELING_REQUEST",
	TunnelingAck:               "TUNNELING_ACK",
	RoutingIndication:          "ROUTING_INDICATION",
	RoutingLostMessage:         "ROUTING_LOST_MESSAGE",
}

func (s ServiceType) String() string {
	if name, ok := serviceTypeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%04X)", uint16(s))
}

// ConnectionType is carried in the connection request information (CRI).
type ConnectionType uint8

// Connection types.
const (
	DeviceMgmtConnection          ConnectionType = 0x03
	TunnelConnection              ConnectionType = 0x04
	RemoteLoggingConnection       ConnectionType = 0x06
	RemoteConfigurationConnection ConnectionType = 0x07
	ObjectServerConnection        ConnectionType = 0x08
)

var connectionTypeNames = map[ConnectionType]string{
	DeviceMgmtConnection:          "DEVICE_MGMT_CONNECTION",
	TunnelConnection:              "TUNNEL_CONNECTION",
	RemoteLoggingConnection:       "REMOTE_LOGGING_CONNECTION",
	RemoteConfigurationConnection: "REMOTE_CONFIGURATION_CONNECTION",
	ObjectServerConnection:        "OBJECT_SERVER_CONNECTION",
}

func (c ConnectionType) String() string {
	return lookupName(connectionTypeNames, c, "UNKNOWN(0x%02X)")
}

// ProtocolType is the host protocol of an HPAI.
type ProtocolType uint8

// Host protocol types.
const (
	IPv4UDP ProtocolType = 0x01
	IPv4TCP ProtocolType = 0x02
)

var protocolTypeNames = map[ProtocolType]string{
	IPv4UDP: "IPV4_UDP",
	IPv4TCP: "IPV4_TCP",
}

func (p ProtocolType) String() string {
	return lookupName(protocolTypeNames, p, "UNKNOWN(0x%02X)")
}

// Layer is the tunnelling layer requested in a CRI.
type Layer uint8

// Tunnelling layers.
const (
	// LinkLayer establishes a link layer tunnel to the KNX network.
	LinkLayer Layer = 0x02
	// RawLayer establishes a raw tunnel.
	RawLayer Layer = 0x04
	// BusmonitorLayer establishes a bus monitor tunnel.
	BusmonitorLayer Layer = 0x80
)

var layerNames = map[Layer]string{
	LinkLayer:       "LINK_LAYER",
	RawLayer:        "RAW_LAYER",
	BusmonitorLayer: "BUSMONITOR_LAYER",
}

func (l Layer) String() string {
	return lookupName(layerNames, l, "UNKNOWN(0x%02X)")
}

// FrameType is the cEMI frame format.
type FrameType uint8

// Frame types.
const (
	FrameExtended FrameType = 0x00
	FrameStandard FrameType = 0x01
)

var frameTypeNames = map[FrameType]string{
	FrameExtended: "EXTENDED",
	FrameStandard: "STANDARD",
}

func (f FrameType) String() string {
	return lookupName(frameTypeNames, f, "UNKNOWN(0x%02X)")
}

// ResponseCode is the status returned by a KNXnet/IP server.
type ResponseCode uint8

// Response codes.
const (
	ResponseNoError             ResponseCode = 0x00
	ResponseHostProtocolType    ResponseCode = 0x01
	ResponseVersionNotSupported ResponseCode = 0x02
	ResponseSequenceNumber      ResponseCode = 0x04
	ResponseConnstateLost       ResponseCode = 0x15
	ResponseConnectionID        ResponseCode = 0x21
	ResponseConnectionType      ResponseCode = 0x22
	ResponseConnectionOption    ResponseCode = 0x23
	ResponseNoMoreConnections   ResponseCode = 0x24
	ResponseDataConnection      ResponseCode = 0x26
	ResponseKNXConnection       ResponseCode = 0x27
	ResponseTunnelingLayer      ResponseCode = 0x29
)

var responseCodeNames = map[ResponseCode]string{
	ResponseNoError:             "NO_ERROR",
	ResponseHostProtocolType:    "E_HOST_PROTOCOL_TYPE",
	ResponseVersionNotSupported: "E_VERSION_NOT_SUPPORTED",
	ResponseSequenceNumber:      "E_SEQUENCE_NUMBER",
	ResponseConnstateLost:       "E_CONNSTATE_LOST",
	ResponseConnectionID:        "E_CONNECTION_ID",
	ResponseConnectionType:      "E_CONNECTION_TYPE",
	ResponseConnectionOption:    "E_CONNECTION_OPTION",
	ResponseNoMoreConnections:   "E_NO_MORE_CONNECTIONS",
	ResponseDataConnection:      "E_DATA_CONNECTION",
	ResponseKNXConnection:       "E_KNX_CONNECTION",
	ResponseTunnelingLayer:      "E_TUNNELING_LAYER",
}

func (c ResponseCode) String() string {
	return lookupName(responseCodeNames, c, "UNKNOWN(0x%02X)")
}

// MessageCode is a cEMI message code.
type MessageCode uint8

// cEMI message codes.
const (
	LRawReq      MessageCode = 0x10
	LDataReq     MessageCode = 0x11
	LPollDataReq MessageCode = 0x13
	LPollDataCon MessageCode = 0x25
	LDataInd     MessageCode = 0x29
	LBusmonInd   MessageCode = 0x2B
	LRawInd      MessageCode = 0x2D
	LDataCon     MessageCode = 0x2E
	LRawCon      MessageCode = 0x2F
	ETSDummy1    MessageCode = 0xC1
)

var messageCodeNames = map[MessageCode]string{
	LRawReq:      "L_Raw.req",
	LDataReq:     "L_Data.req",
	LPollDataReq: "L_Poll_Data.req",
	LPollDataCon: "L_Poll_Data.con",
	LDataInd:     "L_Data.ind",
	LBusmonInd:   "L_Busmon.ind",
	LRawInd:      "L_Raw.ind",
	LDataCon:     "L_Data.con",
	LRawCon:      "L_Raw.con",
	ETSDummy1:    "ETS.Dummy1",
}

func (m MessageCode) String() string {
	return lookupName(messageCodeNames, m, "UNKNOWN(0x%02X)")
}

// apciNames are the application-layer service names, indexed by the 4-bit
// APCI code.
var apciNames = [16]string{
	"GroupValue_Read",
	"GroupValue_Response",
	"GroupValue_Write",
	"PhysicalAddress_Write",
	"PhysicalAddress_Read",
	"PhysicalAddress_Response",
	"ADC_Read",
	"ADC_Response",
	"Memory_Read",
	"Memory_Response",
	"Memory_Write",
	"UserMemory",
	"DeviceDescriptor_Read",
	"DeviceDescriptor_Response",
	"Restart",
	"OTHER",
}

// APCIName returns the service name of a 4-bit APCI code.
func APCIName(code uint8) string {
	return apciNames[code&0x0F]
}

// APCICode returns the 4-bit code for a service name.
func APCICode(name string) (uint8, bool) {
	for i, n := range apciNames {
		if n == name {
			return uint8(i), true
		}
	}
	return 0, false
}

func lookupName[K ~uint8](names map[K]string, k K, unknown string) string {
	if name, ok := names[k]; ok {
		return name
	}
	return fmt.Sprintf(unknown, uint8(k))
}
