// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thermalworks/aquabridge/internal/uart"
	"github.com/thermalworks/aquabridge/pkg/aquarea"
)

var setCmd = &cobra.Command{
	Use:   "set <field>=<value> [<field>=<value>...]",
	Short: "Send a setting command to the heat pump",
	Long: `Encode field assignments into a single setting command and send it.

Values are validated against the protocol bounds before anything reaches the
wire. Writable fields and their ranges are listed by the run service at
/api/fields.

Examples:
  aquabridge set -p /dev/ttyUSB0 dhw_target_temp=48
  aquabridge set -p /dev/ttyUSB0 hp_status=1 operating_mode=2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	if portName == "" {
		return fmt.Errorf("--port is required")
	}

	fields := make(map[string]interface{}, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("expected <field>=<value>, got %q", arg)
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("field %q: invalid value %q", name, raw)
		}
		fields[name] = value
	}

	codec := aquarea.NewCodec(aquarea.StandardFields, nil)
	frame, err := codec.Encode(aquarea.Message{Fields: fields}, nil)
	if err != nil {
		return err
	}

	conn, err := uart.Open(portName, baudRate)
	if err != nil {
		return err
	}
	defer conn.Close()

	tr := uart.NewTransceiver(conn, nil)
	if err := tr.Send(frame); err != nil {
		return err
	}

	fmt.Printf("Setting command sent (%d fields)\n", len(fields))
	return nil
}
