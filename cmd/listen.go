// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/thermalworks/aquabridge/internal/uart"
	"github.com/thermalworks/aquabridge/pkg/aquarea"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Display decoded report frames in human-readable format",
	Long: `Passively decode and display heat pump report frames as they arrive.

No queries are sent; this only works while another controller (or the run
command) is polling the heat pump. Each validated frame is printed with its
timestamp and decoded field values.`,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	if portName == "" {
		return fmt.Errorf("--port is required")
	}

	conn, err := uart.Open(portName, baudRate)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Aquabridge - Report Frame Log\n")
	fmt.Printf("Port: %s @ %d baud\n", portName, baudRate)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	proto := aquarea.NewProtocol(nil)
	framer := aquarea.NewFramer()
	buf := make([]byte, 256)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			log.Printf("Read error: %v", err)
			continue
		}

		for i := 0; i < n; i++ {
			frame := framer.Feed(buf[i])
			if frame == nil {
				continue
			}

			msg, err := proto.Decode(frame)
			if err != nil {
				fmt.Printf("[ERROR] %v\n", err)
				continue
			}
			fmt.Printf("[%s] %s", time.Now().Format("15:04:05.000"), aquarea.FormatMessage(msg))
		}
	}
}
