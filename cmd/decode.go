// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thermalworks/aquabridge/internal/capture"
	"github.com/thermalworks/aquabridge/pkg/aquarea"
)

var decodeCaptureFile string

var decodeCmd = &cobra.Command{
	Use:   "decode [hex bytes...]",
	Short: "Decode frames from hex input or a capture file",
	Long: `Decode heat pump frames offline.

Frame bytes are given as hex arguments (spaces optional):

  aquabridge decode 71 6C 01 10 56 00 ...
  aquabridge decode 716C011056...

or replayed from a capture file recorded with the capture command:

  aquabridge decode --capture frames.cbor

Each frame is validated (length and checksum) and printed with its decoded
field values.`,
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVar(&decodeCaptureFile, "capture", "", "Capture file to replay")
}

func runDecode(cmd *cobra.Command, args []string) error {
	if decodeCaptureFile != "" {
		return decodeCapture(decodeCaptureFile)
	}
	if len(args) == 0 {
		return fmt.Errorf("provide hex frame bytes or --capture")
	}

	data, err := hex.DecodeString(strings.ToLower(strings.Join(args, "")))
	if err != nil {
		return fmt.Errorf("invalid hex input: %w", err)
	}
	return decodeAndPrint(data)
}

func decodeCapture(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := capture.NewReader(f)
	count := 0
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		fmt.Printf("--- %s ---\n", rec.Time().Format("2006-01-02 15:04:05.000"))
		if err := decodeAndPrint(rec.Frame); err != nil {
			fmt.Printf("[ERROR] %v\n", err)
		}
		count++
	}
	fmt.Printf("\n%d frames replayed\n", count)
	return nil
}

func decodeAndPrint(frame []byte) error {
	if !aquarea.ValidateLength(frame) {
		return fmt.Errorf("length validation failed (%d bytes, declared %d)",
			len(frame), declaredLength(frame))
	}
	if !aquarea.VerifyChecksum(frame) {
		return fmt.Errorf("checksum validation failed")
	}

	proto := aquarea.NewProtocol(nil)
	msg, err := proto.Decode(frame)
	if err != nil {
		return err
	}

	fmt.Print(aquarea.FormatMessage(msg))
	return nil
}

func declaredLength(frame []byte) int {
	if len(frame) < 2 {
		return -1
	}
	return int(frame[1])
}
