// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// Config file flag
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "aquabridge",
	Short: "Aquarea Heat Pump UART Bridge",
	Long: `Aquabridge - a bridge for the Panasonic Aquarea heat pump UART protocol.

Talks the CZ-TAW1 serial protocol directly: periodic telemetry queries,
decoded field values, and validated setting writes with EEPROM-wear
protection.

The run command starts the full bridge service (telemetry polling, WebSocket
feed, optional SQLite history). The listen, decode, set, capture and monitor
commands are standalone diagnostics over the same protocol stack.

Serial flags override the config file:
  --port /dev/ttyUSB0 [--baud 9600]`,
	Version: "1.0.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 9600, "Baud rate")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Config file path")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
