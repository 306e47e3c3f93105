// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thermalworks/aquabridge/internal/capture"
	"github.com/thermalworks/aquabridge/internal/uart"
)

var captureOutFile string

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record validated frames to a capture file",
	Long: `Passively record every validated frame to a CBOR capture file for later
replay with the decode command.

No queries are sent; this only works while another controller is polling the
heat pump.`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().StringVarP(&captureOutFile, "out", "o", "frames.cbor", "Output capture file")
}

func runCapture(cmd *cobra.Command, args []string) error {
	if portName == "" {
		return fmt.Errorf("--port is required")
	}

	conn, err := uart.Open(portName, baudRate)
	if err != nil {
		return err
	}

	out, err := os.Create(captureOutFile)
	if err != nil {
		conn.Close()
		return err
	}

	w := capture.NewWriter(out)
	count := 0
	tr := uart.NewTransceiver(conn, func(frame []byte) {
		if err := w.Write(time.Now(), frame); err != nil {
			log.Printf("[capture] write failed: %v", err)
			return
		}
		count++
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Aquabridge - Frame Capture\n")
	fmt.Printf("Port: %s @ %d baud -> %s\n", portName, baudRate, captureOutFile)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	tr.Start(ctx)
	<-ctx.Done()
	tr.Close()
	out.Close()

	stats := tr.Stats()
	fmt.Printf("\n%d frames captured (%d bytes scanned, %d checksum errors)\n",
		count, stats.BytesScanned, stats.ChecksumErrors)
	return nil
}
