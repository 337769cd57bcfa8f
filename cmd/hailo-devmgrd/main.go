// Command hailo-devmgrd is the device manager daemon: it owns exclusive
// access to the Hailo accelerator and serves model load/infer/unload
// requests over a Unix domain socket to every other process on the box.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ferro-labs/hailo-devmgr/internal/config"
	"github.com/ferro-labs/hailo-devmgr/internal/devmgr"
	"github.com/ferro-labs/hailo-devmgr/internal/handlers"
	"github.com/ferro-labs/hailo-devmgr/internal/handlerregistry"
	"github.com/ferro-labs/hailo-devmgr/internal/logging"
	"github.com/ferro-labs/hailo-devmgr/internal/requestlog"
	"github.com/ferro-labs/hailo-devmgr/internal/sidecar"
	"github.com/ferro-labs/hailo-devmgr/internal/version"
)

var socketPathFlag string

func main() {
	root := &cobra.Command{
		Use:   "hailo-devmgrd",
		Short: "Serializes exclusive access to the Hailo accelerator over a Unix socket",
		RunE:  runDaemon,
	}
	root.Flags().StringVar(&socketPathFlag, "socket-path", "", "override the device manager socket path")
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.String())
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, file, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if socketPathFlag != "" {
		cfg.SocketPath = socketPathFlag
	}

	logLevel := os.Getenv("LOG_LEVEL")
	logFormat := os.Getenv("LOG_FORMAT")
	if file != nil {
		if file.LogLevel != "" {
			logLevel = file.LogLevel
		}
		if file.LogFormat != "" {
			logFormat = file.LogFormat
		}
		if file.RequestLogDSN != "" {
			writer, err := newRequestLogWriter(file.RequestLogDriver, file.RequestLogDSN)
			if err != nil {
				return fmt.Errorf("configure request log: %w", err)
			}
			cfg.RequestLog = writer
		}
	}
	if dsn := os.Getenv("HAILO_DEVICE_REQUEST_LOG_DSN"); dsn != "" && file == nil {
		writer, err := requestlog.NewSQLiteWriter(dsn)
		if err != nil {
			return fmt.Errorf("configure request log: %w", err)
		}
		cfg.RequestLog = writer
	}

	logging.Setup(logLevel, logFormat)
	logger := logging.Logger

	registry := handlerregistry.NewRegistry()
	handlers.RegisterAll(registry)

	manager, err := devmgr.New(cfg, registry, logger)
	if err != nil {
		return fmt.Errorf("initialize device manager: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpAddr, httpDisabled := config.NormalizeHTTPBind(cfg.HTTPBind)
	if !httpDisabled {
		statusServer := sidecar.New(httpAddr, manager, logger)
		go func() {
			if err := statusServer.Run(ctx); err != nil {
				logger.Error("status sidecar stopped with error", "error", err)
			}
		}()
	}

	logger.Info("hailo-devmgrd starting", "version", version.Short(), "socket", cfg.SocketPath)
	if err := manager.Run(ctx); err != nil {
		return fmt.Errorf("device manager stopped with error: %w", err)
	}
	return nil
}

func newRequestLogWriter(driver, dsn string) (requestlog.Writer, error) {
	switch driver {
	case "postgres":
		return requestlog.NewPostgresWriter(dsn)
	default:
		return requestlog.NewSQLiteWriter(dsn)
	}
}
