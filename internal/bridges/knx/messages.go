package knx

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Protocol is the protocol segment used in every bridge topic.
const Protocol = "knx"

// CommandMessage asks the bridge to write a value to, or read, a group
// address. Topic: graylogic/command/knx/{main}/{middle}/{sub}
type CommandMessage struct {
	// ID correlates the command with its acknowledgement. The bridge
	// assigns one when empty.
	ID string `json:"id,omitempty"`

	// Value is the value to encode. Ignored for reads.
	Value any `json:"value,omitempty"`

	// DPT overrides the bound datapoint type (e.g. "9.001").
	DPT string `json:"dpt,omitempty"`

	// Read sends a GroupValue_Read instead of a write.
	Read bool `json:"read,omitempty"`
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the telegram was handed to the transport.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"
)

// Error codes carried in failed acknowledgements.
const (
	ErrCodeInvalidCommand = "INVALID_COMMAND"
	ErrCodeInvalidAddress = "INVALID_ADDRESS"
	ErrCodeInvalidValue   = "INVALID_VALUE"
	ErrCodeUnknownDPT     = "UNKNOWN_DPT"
	ErrCodeNotConfigured  = "NOT_CONFIGURED"
	ErrCodeBridgeError    = "BRIDGE_ERROR"
)

// AckMessage acknowledges a command.
// Topic: graylogic/ack/knx/{main}/{middle}/{sub}
type AckMessage struct {
	ID        string    `json:"id"`
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`
	Address   string    `json:"address"`

	// DPT is the datapoint type the value was encoded with.
	DPT string `json:"dpt,omitempty"`

	// Raw is the encoded data as hex.
	Raw string `json:"raw,omitempty"`

	Error *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StateMessage carries a decoded datapoint value.
// Topic: graylogic/state/knx/{main}/{middle}/{sub}
// QoS: 1, Retained: Yes
type StateMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Protocol  string    `json:"protocol"`
	Address   string    `json:"address"`

	// Source is the sender's individual address.
	Source string `json:"source,omitempty"`

	DPT  string `json:"dpt"`
	Name string `json:"name,omitempty"`
	Unit string `json:"unit,omitempty"`

	// Value is the decoded value: bool, number, string or a structured
	// value such as a DPT3 control.
	Value any `json:"value"`

	// Raw is the telegram data as hex.
	Raw string `json:"raw"`

	// Response is true when the value answered a read request.
	Response bool `json:"response,omitempty"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthOffline  HealthStatus = "offline"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports bridge status.
// Topic: graylogic/health/knx
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge        string         `json:"bridge"`
	Timestamp     time.Time      `json:"timestamp"`
	Status        HealthStatus   `json:"status"`
	Version       string         `json:"version,omitempty"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Bindings      int            `json:"bindings"`
	Statistics    *StatsSnapshot `json:"statistics,omitempty"`
	Reason        string         `json:"reason,omitempty"`
}

// NewStateMessage creates a state message for a decoded telegram.
func NewStateMessage(t Telegram, dpt, name, unit string, value any) StateMessage {
	return StateMessage{
		ID:        uuid.NewString(),
		Timestamp: t.Timestamp.UTC(),
		Protocol:  Protocol,
		Address:   t.Destination.String(),
		Source:    t.Source,
		DPT:       dpt,
		Name:      name,
		Unit:      unit,
		Value:     value,
		Raw:       strings.ToUpper(hex.EncodeToString(t.Data)),
		Response:  t.IsResponse(),
	}
}

// NewAckMessage creates an accepted acknowledgement.
func NewAckMessage(cmd CommandMessage, address, dpt string, raw []byte) AckMessage {
	return AckMessage{
		ID:        uuid.NewString(),
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		Status:    AckAccepted,
		Protocol:  Protocol,
		Address:   address,
		DPT:       dpt,
		Raw:       strings.ToUpper(hex.EncodeToString(raw)),
	}
}

// NewAckError creates a failed acknowledgement.
func NewAckError(cmd CommandMessage, address, code, message string) AckMessage {
	return AckMessage{
		ID:        uuid.NewString(),
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		Status:    AckFailed,
		Protocol:  Protocol,
		Address:   address,
		Error:     &AckError{Code: code, Message: message},
	}
}

// NewHealthMessage creates a health status message.
func NewHealthMessage(bridgeID, version string, status HealthStatus, stats StatsSnapshot, bindings int, startTime time.Time) HealthMessage {
	return HealthMessage{
		Bridge:        bridgeID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		Bindings:      bindings,
		Statistics:    &stats,
	}
}

// NewLWTMessage creates the Last Will and Testament published by the
// broker if the bridge disconnects unexpectedly.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}

// ─── Payload codecs ─────────────────────────────────────────────

// PayloadCodec serialises bridge messages.
type PayloadCodec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Payload format names accepted by NewPayloadCodec.
const (
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// NewPayloadCodec returns the codec for format ("json" or "cbor").
// An empty format selects JSON.
func NewPayloadCodec(format string) (PayloadCodec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		return jsonCodec{}, nil
	case FormatCBOR:
		return cborCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return FormatJSON }

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	cborEnc, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Maps decode with string keys so command values look the same as
	// their JSON counterparts.
	decOpts := cbor.DecOptions{
		DupMapKey:      cbor.DupMapKeyQuiet,
		IndefLength:    cbor.IndefLengthAllowed,
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}
	cborDec, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

type cborCodec struct{}

func (cborCodec) Marshal(v any) ([]byte, error) { return cborEnc.Marshal(v) }

func (cborCodec) Unmarshal(data []byte, v any) error { return cborDec.Unmarshal(data, v) }

func (cborCodec) Name() string { return FormatCBOR }
