// Dptctl is the offline companion to the datapoint gateway.
//
// It resolves, encodes and decodes KNX datapoint values with the same
// registry the gateway uses, builds KNXnet/IP tunnelling frames and
// endpoints for bench testing, and hashes API account passwords.
//
// Usage:
//
//	dptctl [command] [flags]
//
// Every flag can also be set through the environment with the DPTCTL_
// prefix, e.g. DPTCTL_FLOAT_MODE=compat.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nerrad567/gray-logic-dpt/internal/dpt"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli carries the settings shared by every subcommand.
type cli struct {
	v      *viper.Viper
	out    io.Writer
	logger *slog.Logger
}

// newRootCmd builds the command tree writing results to out.
func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:   "dptctl",
		Short: "KNX datapoint and KNXnet/IP toolbox",
		Long: `dptctl works with KNX datapoint types without a bus connection.

Examples:
  # Show a datapoint type and its subtype
  dptctl resolve 9.001

  # Encode a temperature
  dptctl encode 9.001 21.5

  # Decode a dimming step
  dptctl decode 3.007 0B

  # Build a tunnelling connect request
  dptctl frame connect-request --control 192.168.1.10:3671 --data 192.168.1.10:3672

  # Hash a password for the gateway's account list
  dptctl hash-password`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelWarn
			if c.v.GetBool("verbose") {
				level = slog.LevelDebug
			}
			c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			switch c.v.GetString("output") {
			case outputText, outputJSON:
				return nil
			default:
				return fmt.Errorf("unknown output format %q (want text or json)", c.v.GetString("output"))
			}
		},
	}
	root.SetOut(out)
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.String("float-mode", dpt.FloatCorrected.String(), "16-bit float exponent search (corrected, compat)")
	flags.String("range-policy", dpt.RangeLenient.String(), "out-of-range handling (lenient, clamp, reject)")
	flags.String("catalogue", "", "YAML file of extra datapoint types")
	flags.StringP("output", "o", outputText, "output format (text, json)")
	flags.BoolP("verbose", "v", false, "log range diagnostics to stderr")

	//nolint:errcheck // flags are defined above
	c.v.BindPFlags(flags)
	c.v.SetEnvPrefix("DPTCTL")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root.AddCommand(
		c.listCmd(),
		c.resolveCmd(),
		c.encodeCmd(),
		c.decodeCmd(),
		c.endpointCmd(),
		c.frameCmd(),
		c.hashPasswordCmd(),
	)
	return root
}

// registry builds a registry from the codec flags. Range diagnostics are
// logged at debug level, visible with --verbose.
func (c *cli) registry() (*dpt.Registry, error) {
	mode, err := dpt.ParseFloatMode(c.v.GetString("float-mode"))
	if err != nil {
		return nil, err
	}
	policy, err := dpt.ParseRangePolicy(c.v.GetString("range-policy"))
	if err != nil {
		return nil, err
	}

	reg := dpt.NewStandardRegistry(
		dpt.WithFloatMode(mode),
		dpt.WithRangePolicy(policy),
		dpt.WithDiagnostics(func(d dpt.Diagnostic) {
			c.logger.Debug("range diagnostic", "detail", d.String())
		}),
	)

	if path := c.v.GetString("catalogue"); path != "" {
		n, err := reg.LoadCatalogueFile(path)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("catalogue loaded", "path", path, "types", n)
	}
	return reg, nil
}
