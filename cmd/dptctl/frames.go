package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-dpt/internal/knxnetip"
)

// frameResult is the JSON form of a built or decoded frame.
type frameResult struct {
	Service string         `json:"service"`
	Length  int            `json:"length"`
	Data    string         `json:"data"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func (c *cli) endpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoint",
		Short: "Convert IPv4 endpoints to and from their 6-byte wire form",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "encode <ip:port>",
			Short: "Encode an endpoint, e.g. 192.168.1.10:3671",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				b, err := knxnetip.EncodeEndpoint(args[0])
				if err != nil {
					return err
				}
				data := strings.ToUpper(hex.EncodeToString(b))
				return c.emit(map[string]string{"endpoint": args[0], "data": data}, func() {
					fmt.Fprintln(c.out, data)
				})
			},
		},
		&cobra.Command{
			Use:   "decode <hex>",
			Short: "Decode 6 bytes into ip:port",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				b, err := parseHex(args[0])
				if err != nil {
					return err
				}
				endpoint, err := knxnetip.DecodeEndpoint(b)
				if err != nil {
					return err
				}
				data := strings.ToUpper(hex.EncodeToString(b))
				return c.emit(map[string]string{"endpoint": endpoint, "data": data}, func() {
					fmt.Fprintln(c.out, endpoint)
				})
			},
		},
	)
	return cmd
}

func (c *cli) frameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Build and decode KNXnet/IP tunnelling frames",
	}

	var control, data string
	connect := &cobra.Command{
		Use:   "connect-request",
		Short: "Build a tunnelling CONNECT_REQUEST",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if data == "" {
				data = control
			}
			b, err := knxnetip.BuildConnectRequest(knxnetip.New(), control, data)
			if err != nil {
				return err
			}
			return c.emitFrame(knxnetip.ConnectRequest, b, nil)
		},
	}
	connect.Flags().StringVar(&control, "control", "", "control endpoint ip:port")
	connect.Flags().StringVar(&data, "data", "", "data endpoint ip:port (default: control endpoint)")
	//nolint:errcheck // flag is defined above
	connect.MarkFlagRequired("control")

	cmd.AddCommand(
		connect,
		c.channelFrameCmd("connstate-request", "Build a CONNECTIONSTATE_REQUEST heartbeat",
			knxnetip.ConnectionStateRequest, knxnetip.BuildConnectionStateRequest),
		c.channelFrameCmd("disconnect-request", "Build a DISCONNECT_REQUEST",
			knxnetip.DisconnectRequest, knxnetip.BuildDisconnectRequest),
		c.frameDecodeCmd(),
	)
	return cmd
}

// channelFrameCmd builds a command for the frames that carry a channel ID
// and a control endpoint.
func (c *cli) channelFrameCmd(use, short string, service knxnetip.ServiceType,
	build func(*knxnetip.Protocol, uint8, string) ([]byte, error)) *cobra.Command {
	var (
		channel uint8
		control string
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			b, err := build(knxnetip.New(), channel, control)
			if err != nil {
				return err
			}
			return c.emitFrame(service, b, nil)
		},
	}
	cmd.Flags().Uint8Var(&channel, "channel", 0, "tunnel channel ID")
	cmd.Flags().StringVar(&control, "control", "", "control endpoint ip:port")
	//nolint:errcheck // flag is defined above
	cmd.MarkFlagRequired("control")
	return cmd
}

func (c *cli) frameDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a frame header and, for known requests, its body",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			b, err := parseHex(args[0])
			if err != nil {
				return err
			}
			h, err := knxnetip.DecodeHeader(b)
			if err != nil {
				return err
			}
			if h.HeaderLength != knxnetip.HeaderLength || h.ProtocolVersion != knxnetip.ProtocolVersion {
				c.logger.Warn("unexpected frame header",
					"header_length", h.HeaderLength,
					"protocol_version", fmt.Sprintf("0x%02X", h.ProtocolVersion))
			}
			if int(h.TotalLength) != len(b) {
				c.logger.Warn("total length does not match data", "total_length", h.TotalLength, "bytes", len(b))
			}

			p := knxnetip.New()
			var layout *knxnetip.Frame
			switch h.ServiceType {
			case knxnetip.ConnectRequest:
				f := knxnetip.ConnectRequestFrame(p)
				layout = &f
			case knxnetip.ConnectionStateRequest, knxnetip.DisconnectRequest:
				f := knxnetip.ConnectionStateRequestFrame(p)
				layout = &f
			}

			var fields map[string]any
			if layout != nil {
				fields, err = layout.Decode(b)
				if err != nil {
					return fmt.Errorf("decoding %s: %w", h.ServiceType, err)
				}
			}
			return c.emitFrame(h.ServiceType, b, fields)
		},
	}
}

// emitFrame prints a frame as hex, with its decoded fields when known.
func (c *cli) emitFrame(service knxnetip.ServiceType, b []byte, fields map[string]any) error {
	res := frameResult{
		Service: service.String(),
		Length:  len(b),
		Data:    strings.ToUpper(hex.EncodeToString(b)),
		Fields:  fields,
	}
	return c.emit(res, func() {
		if fields == nil {
			fmt.Fprintln(c.out, res.Data)
			return
		}
		fmt.Fprintf(c.out, "%s (%d bytes)\n", res.Service, res.Length)
		for _, name := range sortedKeys(fields) {
			fmt.Fprintf(c.out, "  %s: %s\n", name, formatValue(fields[name]))
		}
	})
}
