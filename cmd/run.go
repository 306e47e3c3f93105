// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"io"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thermalworks/aquabridge/internal/bridge"
	"github.com/thermalworks/aquabridge/internal/config"
	"github.com/thermalworks/aquabridge/internal/server"
	"github.com/thermalworks/aquabridge/internal/store"
	"github.com/thermalworks/aquabridge/internal/uart"
)

// openRetryInterval paces reconnection attempts when the serial port is
// absent at startup (USB adapter unplugged, udev still settling).
const openRetryInterval = 3 * time.Second

// snapshotInterval paces telemetry rows written to the history store.
const snapshotInterval = time.Minute

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bridge service",
	Long: `Run the full bridge service: periodic telemetry queries over the serial
port, a WebSocket feed of decoded values, setting writes via HTTP and
WebSocket, and an optional SQLite telemetry history.

Configuration comes from the config file (--config); the --port and --baud
flags override the file's uart section.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.UART.Port = portName
	}
	if cmd.Flags().Changed("baud") {
		cfg.UART.BaudRate = baudRate
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := openWithRetry(ctx, cfg.UART.Port, cfg.UART.BaudRate)
	if err != nil {
		return err
	}

	b := bridge.New(conn, cfg.MaxOverrides())

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.New(cfg.Server.ListenAddr, b)
		b.Subscribe(srv.Publish)
	}

	if cfg.Store.Enabled {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		b.Subscribe(st.Apply)
		go st.Run(ctx, snapshotInterval)
	}

	b.Start(ctx)
	defer b.Close()
	log.Printf("[run] bridge started on %s @ %d baud", cfg.UART.Port, cfg.UART.BaudRate)

	if srv != nil {
		return srv.Run(ctx)
	}

	<-ctx.Done()
	return nil
}

// openWithRetry keeps trying the serial port until it opens or the context
// is cancelled.
func openWithRetry(ctx context.Context, port string, baud int) (io.ReadWriteCloser, error) {
	for {
		conn, err := uart.Open(port, baud)
		if err == nil {
			return conn, nil
		}
		log.Printf("[run] %v, retrying in %s", err, openRetryInterval)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(openRetryInterval):
		}
	}
}
