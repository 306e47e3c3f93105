// SPDX-License-Identifier: Apache-2.0
//
// Aquabridge - Aquarea Heat Pump UART Bridge
//
// Talks the Panasonic Aquarea CZ-TAW1 serial protocol: periodic telemetry
// queries, decoded field values, and validated setting writes.

package main

import (
	"os"

	"github.com/thermalworks/aquabridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
