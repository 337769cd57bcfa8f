// Command hailo-devmgr-cli is a diagnostic tool for talking to a running
// hailo-devmgrd over its Unix socket: ping, status, and model lifecycle
// operations, from the shell instead of a service's own client import.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ferro-labs/hailo-devmgr/client"
	"github.com/ferro-labs/hailo-devmgr/internal/version"
)

var (
	socketPath string
	timeout    time.Duration
	modelType  string
)

func main() {
	root := &cobra.Command{
		Use:   "hailo-devmgr-cli",
		Short: "Talk to a running hailo-devmgrd over its Unix socket",
	}
	root.PersistentFlags().StringVar(&socketPath, "socket-path", "", "device manager socket path (default: HAILO_DEVICE_SOCKET or /run/hailo/device.sock)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", client.DefaultTimeout, "request timeout")

	root.AddCommand(
		pingCmd(),
		statusCmd(),
		deviceStatusCmd(),
		loadCmd(),
		inferCmd(),
		unloadCmd(),
		versionCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.String())
		},
	}
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Verify the daemon is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *client.Client) error {
				resp, err := c.Ping(ctx)
				return printResult(resp, err)
			})
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and loaded models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *client.Client) error {
				resp, err := c.Status(ctx)
				return printResult(resp, err)
			})
		},
	}
}

func deviceStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "device-status",
		Short: "Show accelerator identity, temperature, and loaded networks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *client.Client) error {
				resp, err := c.DeviceStatus(ctx)
				return printResult(resp, err)
			})
		},
	}
}

func loadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <model-path>",
		Short: "Load a model into the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *client.Client) error {
				resp, err := c.LoadModel(ctx, args[0], modelType, nil)
				return printResult(resp, err)
			})
		},
	}
	cmd.Flags().StringVar(&modelType, "model-type", "vlm", "model type")
	return cmd
}

func unloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unload <model-path>",
		Short: "Unload a model from the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *client.Client) error {
				resp, err := c.UnloadModel(ctx, args[0], modelType)
				return printResult(resp, err)
			})
		},
	}
	cmd.Flags().StringVar(&modelType, "model-type", "vlm", "model type")
	return cmd
}

func inferCmd() *cobra.Command {
	var inputJSON string
	cmd := &cobra.Command{
		Use:   "infer <model-path>",
		Short: "Run one inference call, loading the model first if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input any
			if inputJSON != "" {
				if err := json.Unmarshal([]byte(inputJSON), &input); err != nil {
					return fmt.Errorf("parse --input as JSON: %w", err)
				}
			}
			return withClient(func(ctx context.Context, c *client.Client) error {
				resp, err := c.Infer(ctx, args[0], input, modelType, nil)
				return printResult(resp, err)
			})
		},
	}
	cmd.Flags().StringVar(&modelType, "model-type", "vlm", "model type")
	cmd.Flags().StringVar(&inputJSON, "input", "", "input_data as a JSON literal")
	return cmd
}

func withClient(fn func(ctx context.Context, c *client.Client) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return client.WithClient(ctx, socketPath, func(c *client.Client) error {
		return fn(ctx, c)
	}, client.WithTimeout(timeout))
}

func printResult(resp map[string]any, err error) error {
	if err != nil {
		return err
	}
	out, encodeErr := json.MarshalIndent(resp, "", "  ")
	if encodeErr != nil {
		return encodeErr
	}
	fmt.Println(string(out))
	return nil
}
